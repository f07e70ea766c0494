package app

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"exam-arena/internal/domain"
)

// LiveReward is the flat team reward for leaving a question answered
// correctly. There is no time or difficulty bonus.
const LiveReward = 10

// Phase is the student runner's position in the exam flow.
type Phase string

const (
	PhaseJoining   Phase = "JOINING"
	PhaseWaiting   Phase = "WAITING_FOR_START"
	PhaseAnswering Phase = "ANSWERING"
	PhaseSubmitted Phase = "SUBMITTED_PENDING_REVEAL"
	PhaseRevealed  Phase = "REVEALED"
)

// Sender is the student session surface the runner emits through.
type Sender interface {
	SendLiveScore(team string, points int) error
	SendResult(result domain.StudentResult) error
	IsConnected() bool
}

// ResultKeeper persists a result locally when the teacher is unreachable.
type ResultKeeper interface {
	SaveResult(result domain.StudentResult) error
}

// QuestionReview is one row of the post-exam breakdown, in master order.
type QuestionReview struct {
	Question domain.Question
	Answer   int // -1 when unanswered
	Correct  bool
}

// Runner drives one student through an exam: receive snapshot, shuffle
// once, count down per question, advance, submit, await reveal. All events
// funnel through the mutex so arriving snapshots and countdown ticks can
// never race.
type Runner struct {
	name   string
	team   string
	sender Sender
	local  ResultKeeper
	rnd    *rand.Rand
	now    func() time.Time
	log    zerolog.Logger

	mu       sync.Mutex
	phase    Phase
	exam     *domain.Exam
	shuffled []domain.Question
	answers  []int
	idx      int
	timeLeft int
	result   *domain.StudentResult
}

func NewRunner(name, team string, sender Sender, local ResultKeeper, rnd *rand.Rand, log zerolog.Logger) *Runner {
	return &Runner{
		name:   name,
		team:   team,
		sender: sender,
		local:  local,
		rnd:    rnd,
		now:    time.Now,
		log:    log.With().Str("component", "runner").Str("student", name).Logger(),
		phase:  PhaseJoining,
	}
}

// ApplySnapshot replaces the held exam wholesale. A genuinely new exam is
// shuffled exactly once and the slate reset; a same-exam snapshot only
// reacts to status changes.
func (r *Runner) ApplySnapshot(exam domain.Exam) {
	r.mu.Lock()
	defer r.mu.Unlock()

	newExam := r.exam == nil || r.exam.ID != exam.ID
	if newExam {
		r.shuffled = domain.Shuffle(r.rnd, exam.Questions)
		r.answers = make([]int, len(r.shuffled))
		for i := range r.answers {
			r.answers[i] = -1
		}
		r.idx = 0
		r.result = nil
		if len(r.shuffled) > 0 {
			r.timeLeft = r.shuffled[0].Limit()
		}
	}

	sameWasWaiting := !newExam && r.exam.Status == domain.StatusWaiting
	r.exam = &exam

	switch exam.Status {
	case domain.StatusWaiting:
		if r.result == nil {
			r.phase = PhaseWaiting
		}
	case domain.StatusRunning:
		if r.result != nil {
			break
		}
		if newExam {
			r.phase = PhaseAnswering
		} else if sameWasWaiting {
			// WAITING -> RUNNING: re-arm the countdown for the current
			// question; the value comes from the question's own limit, not
			// from whatever the timer last held.
			r.phase = PhaseAnswering
			if r.idx < len(r.shuffled) {
				r.timeLeft = r.shuffled[r.idx].Limit()
			}
		}
	case domain.StatusCompleted:
		if r.result != nil {
			r.phase = PhaseRevealed
		}
	}

	// An exam with no questions has nothing to answer; submit the empty
	// slate right away instead of ticking forever.
	if r.phase == PhaseAnswering && len(r.shuffled) == 0 {
		r.submitLocked()
	}
}

// Tick decrements the countdown by one second. Reaching zero advances
// exactly like a manual next-question action.
func (r *Runner) Tick() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseAnswering || r.exam == nil || r.exam.Status != domain.StatusRunning {
		return
	}
	r.timeLeft--
	if r.timeLeft <= 0 {
		r.advanceLocked()
	}
}

// StartTicker drives Tick once per second until ctx is done.
func (r *Runner) StartTicker(done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				r.Tick()
			}
		}
	}()
}

// SelectAnswer records the option chosen for the current question.
func (r *Runner) SelectAnswer(option int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseAnswering || r.idx >= len(r.shuffled) {
		return
	}
	if option < 0 || option >= len(r.shuffled[r.idx].Options) {
		return
	}
	r.answers[r.idx] = option
}

// Advance scores the question being left, emitting one live reward if it
// was answered correctly, then moves on or submits.
func (r *Runner) Advance() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.advanceLocked()
}

// advanceLocked is the single transition out of a question. It runs under
// r.mu for its whole extent, so a timer expiry and a manual advance racing
// on the same question produce exactly one grade, one move, one submit.
func (r *Runner) advanceLocked() {
	if r.phase != PhaseAnswering || r.idx >= len(r.shuffled) {
		return
	}

	correct := r.answers[r.idx] == r.shuffled[r.idx].CorrectIndex
	last := r.idx >= len(r.shuffled)-1
	if !last {
		r.idx++
		r.timeLeft = r.shuffled[r.idx].Limit()
	}

	if correct {
		if err := r.sender.SendLiveScore(r.team, LiveReward); err != nil {
			r.log.Warn().Err(err).Msg("live score delta not delivered")
		}
	}
	if last {
		r.submitLocked()
	}
}

// submitLocked grades against the shuffled slate, normalizes answers back
// to master order keyed by question ID, and delivers the result to the
// teacher, or to local storage when offline. Caller holds r.mu; a result
// is produced at most once.
func (r *Runner) submitLocked() {
	if r.result != nil {
		return
	}
	byID := make(map[string]int, len(r.shuffled))
	correctCount := 0
	for i, q := range r.shuffled {
		byID[q.ID] = r.answers[i]
		if r.answers[i] == q.CorrectIndex {
			correctCount++
		}
	}

	master := r.exam.Questions
	normalized := make([]int, len(master))
	for i, q := range master {
		if answer, ok := byID[q.ID]; ok {
			normalized[i] = answer
		} else {
			normalized[i] = -1
		}
	}

	result := domain.StudentResult{
		ExamID:         r.exam.ID,
		StudentName:    r.name,
		Team:           r.team,
		Score:          scoreOutOfTen(correctCount, len(master)),
		RawScore:       correctCount,
		TotalQuestions: len(master),
		SubmittedAt:    r.now(),
		Answers:        normalized,
	}
	r.result = &result
	if r.exam.Status == domain.StatusCompleted {
		r.phase = PhaseRevealed
	} else {
		r.phase = PhaseSubmitted
	}

	if r.sender.IsConnected() {
		if err := r.sender.SendResult(result); err != nil {
			r.log.Warn().Err(err).Msg("result submission failed, keeping local copy")
			r.keepLocal(result)
		}
	} else {
		r.keepLocal(result)
	}
	r.log.Info().Float64("score", result.Score).Int("raw", result.RawScore).Msg("exam submitted")
}

func (r *Runner) keepLocal(result domain.StudentResult) {
	if err := r.local.SaveResult(result); err != nil {
		r.log.Error().Err(err).Msg("saving local result")
	}
}

// Review returns the per-question breakdown in master order. It is only
// available once the exam is COMPLETED and a result exists.
func (r *Runner) Review() ([]QuestionReview, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseRevealed || r.result == nil || r.exam == nil {
		return nil, false
	}
	rows := make([]QuestionReview, len(r.exam.Questions))
	for i, q := range r.exam.Questions {
		answer := r.result.Answers[i]
		rows[i] = QuestionReview{
			Question: q,
			Answer:   answer,
			Correct:  answer == q.CorrectIndex,
		}
	}
	return rows, true
}

// Phase returns the runner's current phase.
func (r *Runner) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// TimeLeft returns the seconds remaining on the current question.
func (r *Runner) TimeLeft() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timeLeft
}

// Current returns the active shuffled question and its position.
func (r *Runner) Current() (domain.Question, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.idx >= len(r.shuffled) {
		return domain.Question{}, r.idx, len(r.shuffled)
	}
	return r.shuffled[r.idx], r.idx, len(r.shuffled)
}

// Result returns a copy of the final result, if one exists.
func (r *Runner) Result() (domain.StudentResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.result == nil {
		return domain.StudentResult{}, false
	}
	return *r.result, true
}

// scoreOutOfTen converts a raw correct count to the 0-10 scale with one
// decimal place. Zero questions score zero.
func scoreOutOfTen(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(total)*100) / 10
}
