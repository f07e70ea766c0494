// Package memory holds the in-process storage implementations used for
// tests, demos, and as the fallback when no backing services are
// configured.
package memory

import (
	"sync"

	"exam-arena/internal/domain"
)

// Store is an in-memory implementation of app.Store. Exams keep insertion
// order; saving an existing ID updates it in place.
type Store struct {
	mu         sync.RWMutex
	exams      []domain.Exam
	results    []domain.StudentResult
	liveScores map[string]int
	teams      []string
}

func NewStore() *Store {
	return &Store{liveScores: make(map[string]int)}
}

func (s *Store) SaveExam(exam domain.Exam) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.exams {
		if s.exams[i].ID == exam.ID {
			s.exams[i] = exam
			return nil
		}
	}
	s.exams = append(s.exams, exam)
	return nil
}

func (s *Store) Exams() ([]domain.Exam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Exam, len(s.exams))
	copy(out, s.exams)
	return out, nil
}

func (s *Store) DeleteExam(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exams := s.exams[:0]
	for _, exam := range s.exams {
		if exam.ID != id {
			exams = append(exams, exam)
		}
	}
	s.exams = exams

	results := s.results[:0]
	for _, result := range s.results {
		if result.ExamID != id {
			results = append(results, result)
		}
	}
	s.results = results
	return nil
}

func (s *Store) SaveResult(result domain.StudentResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

func (s *Store) Results() ([]domain.StudentResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.StudentResult, len(s.results))
	copy(out, s.results)
	return out, nil
}

func (s *Store) ResultsForExam(examID string) ([]domain.StudentResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.StudentResult
	for _, result := range s.results {
		if result.ExamID == examID {
			out = append(out, result)
		}
	}
	return out, nil
}

func (s *Store) SaveLiveScores(scores map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveScores = make(map[string]int, len(scores))
	for team, points := range scores {
		s.liveScores[team] = points
	}
	return nil
}

func (s *Store) LiveScores() (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.liveScores))
	for team, points := range s.liveScores {
		out[team] = points
	}
	return out, nil
}

func (s *Store) ClearLiveScores() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveScores = make(map[string]int)
	return nil
}

func (s *Store) Teams() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.teams) == 0 {
		return domain.DefaultTeams(), nil
	}
	out := make([]string, len(s.teams))
	copy(out, s.teams)
	return out, nil
}

func (s *Store) SaveTeams(teams []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams = make([]string, len(teams))
	copy(s.teams, teams)
	return nil
}
