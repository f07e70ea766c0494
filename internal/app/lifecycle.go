package app

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"exam-arena/internal/domain"
	"exam-arena/internal/room"
)

// Broadcaster pushes an exam snapshot to every connected student.
type Broadcaster interface {
	Broadcast(exam domain.Exam)
}

// Lifecycle is the teacher-side exam state machine. It guarantees that at
// most one exam is RUNNING at a time and that every transition is both
// persisted and broadcast.
type Lifecycle struct {
	store  Store
	scores *Scoreboard
	cast   Broadcaster
	log    zerolog.Logger
}

func NewLifecycle(store Store, scores *Scoreboard, cast Broadcaster, log zerolog.Logger) *Lifecycle {
	return &Lifecycle{
		store:  store,
		scores: scores,
		cast:   cast,
		log:    log.With().Str("component", "lifecycle").Logger(),
	}
}

// Activate marks the target exam RUNNING and every other exam WAITING.
// Live scores are cleared before the fresh snapshot goes out. Activating
// with no students connected is legal; the state change still persists.
func (l *Lifecycle) Activate(examID string) (domain.Exam, error) {
	exams, err := l.store.Exams()
	if err != nil {
		return domain.Exam{}, fmt.Errorf("loading exams: %w", err)
	}

	var running *domain.Exam
	for i := range exams {
		if exams[i].ID == examID {
			exams[i].Status = domain.StatusRunning
			running = &exams[i]
		} else {
			exams[i].Status = domain.StatusWaiting
		}
	}
	if running == nil {
		return domain.Exam{}, domain.ErrExamNotFound
	}

	l.scores.Reset()

	for _, exam := range exams {
		if err := l.store.SaveExam(exam); err != nil {
			return domain.Exam{}, fmt.Errorf("saving exam %s: %w", exam.ID, err)
		}
	}

	l.log.Info().Str("exam", running.ID).Str("title", running.Title).Msg("exam activated")
	l.cast.Broadcast(*running)
	return *running, nil
}

// Stop flips a RUNNING exam to COMPLETED so students see the reveal.
func (l *Lifecycle) Stop(examID string) (domain.Exam, error) {
	return l.transition(examID, domain.StatusCompleted, false)
}

// Reset returns a COMPLETED exam to WAITING and clears the live scores.
func (l *Lifecycle) Reset(examID string) (domain.Exam, error) {
	return l.transition(examID, domain.StatusWaiting, true)
}

func (l *Lifecycle) transition(examID string, status domain.ExamStatus, clearScores bool) (domain.Exam, error) {
	exam, err := l.find(examID)
	if err != nil {
		return domain.Exam{}, err
	}
	exam.Status = status
	if err := l.store.SaveExam(exam); err != nil {
		return domain.Exam{}, fmt.Errorf("saving exam %s: %w", exam.ID, err)
	}
	if clearScores {
		l.scores.Reset()
	}
	l.log.Info().Str("exam", exam.ID).Str("status", string(status)).Msg("exam transitioned")
	l.cast.Broadcast(exam)
	return exam, nil
}

// Delete removes an exam and all of its stored results. The confirmed flag
// is the explicit confirmation step; without it nothing is touched.
func (l *Lifecycle) Delete(examID string, confirmed bool) error {
	if !confirmed {
		return domain.ErrConfirmationRequired
	}
	if err := l.store.DeleteExam(examID); err != nil {
		return fmt.Errorf("deleting exam %s: %w", examID, err)
	}
	l.log.Info().Str("exam", examID).Msg("exam deleted")
	return nil
}

func (l *Lifecycle) find(examID string) (domain.Exam, error) {
	exams, err := l.store.Exams()
	if err != nil {
		return domain.Exam{}, fmt.Errorf("loading exams: %w", err)
	}
	for _, exam := range exams {
		if exam.ID == examID {
			return exam, nil
		}
	}
	return domain.Exam{}, domain.ErrExamNotFound
}

// NewExam builds a WAITING exam from authored questions. Validation runs
// before anything touches storage: an empty title, an empty question set,
// or any blank option text rejects the whole exam.
func NewExam(rnd *rand.Rand, title, description string, questions []domain.Question) (domain.Exam, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Exam{}, domain.ErrTitleRequired
	}
	if len(questions) == 0 {
		return domain.Exam{}, domain.ErrNoQuestions
	}
	for i, q := range questions {
		if err := ValidateQuestion(q); err != nil {
			return domain.Exam{}, fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return domain.Exam{
		ID:          uuid.NewString(),
		Code:        room.NewCode(rnd),
		Title:       title,
		Description: description,
		CreatedAt:   time.Now(),
		Questions:   questions,
		Status:      domain.StatusWaiting,
	}, nil
}

// ValidateQuestion checks the four-option invariant and option contents.
func ValidateQuestion(q domain.Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("question text is empty")
	}
	if len(q.Options) != 4 {
		return fmt.Errorf("expected 4 options, got %d", len(q.Options))
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("option %d is empty", i+1)
		}
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return fmt.Errorf("correct index %d out of range", q.CorrectIndex)
	}
	return nil
}
