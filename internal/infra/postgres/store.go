// Package postgres persists exams and results as JSONB rows.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"exam-arena/internal/domain"
)

const (
	teamsKey      = "teams"
	liveScoresKey = "live_scores"
)

// Store implements app.Store on a pgx connection pool. Exams and results
// keep their full JSON shape in a data column; teams and live scores live
// in a small key-value settings table.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) SaveExam(exam domain.Exam) error {
	data, err := json.Marshal(exam)
	if err != nil {
		return fmt.Errorf("marshal exam: %w", err)
	}
	_, err = s.pool.Exec(context.Background(),
		`INSERT INTO exams (id, data, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`,
		exam.ID, data, exam.CreatedAt)
	if err != nil {
		return fmt.Errorf("save exam: %w", err)
	}
	return nil
}

func (s *Store) Exams() ([]domain.Exam, error) {
	rows, err := s.pool.Query(context.Background(),
		`SELECT data FROM exams ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	defer rows.Close()

	var exams []domain.Exam
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan exam: %w", err)
		}
		var exam domain.Exam
		if err := json.Unmarshal(raw, &exam); err != nil {
			return nil, fmt.Errorf("unmarshal exam: %w", err)
		}
		exams = append(exams, exam)
	}
	return exams, rows.Err()
}

func (s *Store) DeleteExam(id string) error {
	ctx := context.Background()
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete exam: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM results WHERE exam_id=$1`, id); err != nil {
		return fmt.Errorf("delete exam results: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM exams WHERE id=$1`, id); err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Store) SaveResult(result domain.StudentResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.pool.Exec(context.Background(),
		`INSERT INTO results (exam_id, data, submitted_at) VALUES ($1, $2, $3)`,
		result.ExamID, data, result.SubmittedAt)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

func (s *Store) Results() ([]domain.StudentResult, error) {
	return s.queryResults(`SELECT data FROM results ORDER BY id`)
}

func (s *Store) ResultsForExam(examID string) ([]domain.StudentResult, error) {
	return s.queryResults(`SELECT data FROM results WHERE exam_id=$1 ORDER BY id`, examID)
}

func (s *Store) queryResults(query string, args ...interface{}) ([]domain.StudentResult, error) {
	rows, err := s.pool.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var results []domain.StudentResult
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		var result domain.StudentResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

func (s *Store) SaveLiveScores(scores map[string]int) error {
	return s.setSetting(liveScoresKey, scores)
}

func (s *Store) LiveScores() (map[string]int, error) {
	scores := make(map[string]int)
	if err := s.getSetting(liveScoresKey, &scores); err != nil {
		return nil, err
	}
	return scores, nil
}

func (s *Store) ClearLiveScores() error {
	_, err := s.pool.Exec(context.Background(),
		`DELETE FROM settings WHERE key=$1`, liveScoresKey)
	if err != nil {
		return fmt.Errorf("clear live scores: %w", err)
	}
	return nil
}

func (s *Store) Teams() ([]string, error) {
	var teams []string
	if err := s.getSetting(teamsKey, &teams); err != nil {
		return nil, err
	}
	if len(teams) == 0 {
		return domain.DefaultTeams(), nil
	}
	return teams, nil
}

func (s *Store) SaveTeams(teams []string) error {
	return s.setSetting(teamsKey, teams)
}

func (s *Store) setSetting(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	_, err = s.pool.Exec(context.Background(),
		`INSERT INTO settings (key, data) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data`,
		key, data)
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (s *Store) getSetting(key string, out any) error {
	var raw []byte
	err := s.pool.QueryRow(context.Background(),
		`SELECT data FROM settings WHERE key=$1`, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}
