package app

import "exam-arena/internal/domain"

// Store is the persistent key-value contract the core depends on. Calls
// are treated as atomic and always available; implementations live under
// internal/infra.
type Store interface {
	SaveExam(exam domain.Exam) error
	Exams() ([]domain.Exam, error)
	// DeleteExam removes an exam and cascades to its stored results.
	DeleteExam(id string) error

	SaveResult(result domain.StudentResult) error
	Results() ([]domain.StudentResult, error)
	ResultsForExam(examID string) ([]domain.StudentResult, error)

	SaveLiveScores(scores map[string]int) error
	LiveScores() (map[string]int, error)
	ClearLiveScores() error

	Teams() ([]string, error)
	SaveTeams(teams []string) error
}
