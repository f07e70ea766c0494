// Package redis backs the storage contract with Redis. Each collection is
// one JSON value, mirroring the simple key-value shape the core expects.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"exam-arena/internal/domain"
)

const (
	examsKey      = "arena:exams"
	resultsKey    = "arena:results"
	liveScoresKey = "arena:live_scores"
	teamsKey      = "arena:teams"
)

// Store implements app.Store on a Redis client. Collections are stored as
// whole JSON values, so every mutation is a read-modify-write; mu
// serializes those within the process so concurrent student submissions
// cannot overwrite each other.
type Store struct {
	client *redis.Client

	mu sync.Mutex
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) SaveExam(exam domain.Exam) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exams, err := s.Exams()
	if err != nil {
		return err
	}
	updated := false
	for i := range exams {
		if exams[i].ID == exam.ID {
			exams[i] = exam
			updated = true
			break
		}
	}
	if !updated {
		exams = append(exams, exam)
	}
	return s.setJSON(examsKey, exams)
}

func (s *Store) Exams() ([]domain.Exam, error) {
	var exams []domain.Exam
	if err := s.getJSON(examsKey, &exams); err != nil {
		return nil, err
	}
	return exams, nil
}

func (s *Store) DeleteExam(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exams, err := s.Exams()
	if err != nil {
		return err
	}
	kept := exams[:0]
	for _, exam := range exams {
		if exam.ID != id {
			kept = append(kept, exam)
		}
	}
	if err := s.setJSON(examsKey, kept); err != nil {
		return err
	}

	results, err := s.Results()
	if err != nil {
		return err
	}
	keptResults := results[:0]
	for _, result := range results {
		if result.ExamID != id {
			keptResults = append(keptResults, result)
		}
	}
	return s.setJSON(resultsKey, keptResults)
}

func (s *Store) SaveResult(result domain.StudentResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	results, err := s.Results()
	if err != nil {
		return err
	}
	results = append(results, result)
	return s.setJSON(resultsKey, results)
}

func (s *Store) Results() ([]domain.StudentResult, error) {
	var results []domain.StudentResult
	if err := s.getJSON(resultsKey, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Store) ResultsForExam(examID string) ([]domain.StudentResult, error) {
	results, err := s.Results()
	if err != nil {
		return nil, err
	}
	var out []domain.StudentResult
	for _, result := range results {
		if result.ExamID == examID {
			out = append(out, result)
		}
	}
	return out, nil
}

func (s *Store) SaveLiveScores(scores map[string]int) error {
	return s.setJSON(liveScoresKey, scores)
}

func (s *Store) LiveScores() (map[string]int, error) {
	scores := make(map[string]int)
	if err := s.getJSON(liveScoresKey, &scores); err != nil {
		return nil, err
	}
	return scores, nil
}

func (s *Store) ClearLiveScores() error {
	return s.client.Del(context.Background(), liveScoresKey).Err()
}

func (s *Store) Teams() ([]string, error) {
	var teams []string
	if err := s.getJSON(teamsKey, &teams); err != nil {
		return nil, err
	}
	if len(teams) == 0 {
		return domain.DefaultTeams(), nil
	}
	return teams, nil
}

func (s *Store) SaveTeams(teams []string) error {
	return s.setJSON(teamsKey, teams)
}

func (s *Store) setJSON(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.client.Set(context.Background(), key, data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *Store) getJSON(key string, out any) error {
	data, err := s.client.Get(context.Background(), key).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}
