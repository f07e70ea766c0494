package domain

import "time"

// ExamStatus is the lifecycle state of an exam, owned by the teacher.
type ExamStatus string

const (
	StatusWaiting   ExamStatus = "WAITING"
	StatusRunning   ExamStatus = "RUNNING"
	StatusCompleted ExamStatus = "COMPLETED"
)

// DefaultTimeLimit is the per-question countdown used when a question does
// not carry its own limit.
const DefaultTimeLimit = 30

// Question is a four-option multiple choice question.
type Question struct {
	ID           string   `json:"id"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctAnswerIndex"`
	TimeLimit    int      `json:"timeLimit,omitempty"` // seconds
}

// Limit returns the question's countdown in seconds.
func (q Question) Limit() int {
	if q.TimeLimit > 0 {
		return q.TimeLimit
	}
	return DefaultTimeLimit
}

// Exam is the teacher-authored question set. Questions holds the master
// order used for grading; students only ever see read-only snapshots.
type Exam struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"createdAt"`
	Questions   []Question `json:"questions"`
	Status      ExamStatus `json:"status"`
}

// StudentResult is one student's graded submission. Answers are normalized
// to master order; -1 marks an unanswered question.
type StudentResult struct {
	ExamID         string    `json:"examId"`
	StudentName    string    `json:"studentName"`
	Team           string    `json:"team"`
	Score          float64   `json:"score"` // 0-10, one decimal
	RawScore       int       `json:"rawScore"`
	TotalQuestions int       `json:"totalQuestions"`
	SubmittedAt    time.Time `json:"submittedAt"`
	Answers        []int     `json:"answers"`
}

// PeerMeta is the metadata a student declares when dialing a teacher.
type PeerMeta struct {
	Name string `json:"name"`
	Team string `json:"team"`
}

// TeamScore is one row of the ranked live leaderboard.
type TeamScore struct {
	Team   string `json:"team"`
	Points int    `json:"points"`
}

// DefaultTeams is the roster used until the teacher configures their own.
func DefaultTeams() []string {
	return []string{"Đội Đỏ", "Đội Xanh"}
}
