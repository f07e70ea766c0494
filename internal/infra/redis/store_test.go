package redis

import (
	"fmt"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"exam-arena/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestExamRoundTrip(t *testing.T) {
	store := newTestStore(t)

	exam := domain.Exam{
		ID:     "e1",
		Code:   "123456",
		Title:  "Đề 1",
		Status: domain.StatusWaiting,
		Questions: []domain.Question{
			{ID: "q1", Text: "H2O?", Options: []string{"a", "b", "c", "d"}, CorrectIndex: 1},
		},
	}
	if err := store.SaveExam(exam); err != nil {
		t.Fatalf("save: %v", err)
	}

	exam.Status = domain.StatusRunning
	if err := store.SaveExam(exam); err != nil {
		t.Fatalf("update: %v", err)
	}

	exams, err := store.Exams()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(exams) != 1 {
		t.Fatalf("expected one exam after upsert, got %d", len(exams))
	}
	if exams[0].Status != domain.StatusRunning {
		t.Fatalf("update lost: %+v", exams[0])
	}
	if exams[0].Questions[0].CorrectIndex != 1 {
		t.Fatalf("question payload lost: %+v", exams[0].Questions)
	}
}

func TestDeleteExamCascades(t *testing.T) {
	store := newTestStore(t)
	_ = store.SaveExam(domain.Exam{ID: "e1"})
	_ = store.SaveExam(domain.Exam{ID: "e2"})
	_ = store.SaveResult(domain.StudentResult{ExamID: "e1", StudentName: "An"})
	_ = store.SaveResult(domain.StudentResult{ExamID: "e2", StudentName: "Bình"})

	if err := store.DeleteExam("e1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	exams, _ := store.Exams()
	if len(exams) != 1 || exams[0].ID != "e2" {
		t.Fatalf("expected only e2, got %+v", exams)
	}
	results, _ := store.Results()
	if len(results) != 1 || results[0].ExamID != "e2" {
		t.Fatalf("expected only e2 results, got %+v", results)
	}
}

func TestConcurrentSaveResultKeepsEverySubmission(t *testing.T) {
	store := newTestStore(t)

	// A class submitting at once must not lose results to overlapping
	// read-modify-write cycles on the shared JSON value.
	const students = 20
	var wg sync.WaitGroup
	for i := 0; i < students; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.SaveResult(domain.StudentResult{
				ExamID:      "e1",
				StudentName: fmt.Sprintf("HS %02d", i),
			})
			if err != nil {
				t.Errorf("save result %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	results, err := store.Results()
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(results) != students {
		t.Fatalf("expected %d results, got %d", students, len(results))
	}
}

func TestResultsForExam(t *testing.T) {
	store := newTestStore(t)
	_ = store.SaveResult(domain.StudentResult{ExamID: "e1", StudentName: "An"})
	_ = store.SaveResult(domain.StudentResult{ExamID: "e2", StudentName: "Bình"})
	_ = store.SaveResult(domain.StudentResult{ExamID: "e1", StudentName: "Chi"})

	results, err := store.ResultsForExam("e1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestLiveScoresAndTeams(t *testing.T) {
	store := newTestStore(t)

	if teams, _ := store.Teams(); len(teams) != len(domain.DefaultTeams()) {
		t.Fatalf("expected default teams, got %v", teams)
	}
	if err := store.SaveTeams([]string{"Tổ 1", "Tổ 2"}); err != nil {
		t.Fatalf("save teams: %v", err)
	}
	if teams, _ := store.Teams(); len(teams) != 2 || teams[0] != "Tổ 1" {
		t.Fatalf("expected custom teams, got %v", teams)
	}

	if err := store.SaveLiveScores(map[string]int{"Tổ 1": 30}); err != nil {
		t.Fatalf("save scores: %v", err)
	}
	scores, _ := store.LiveScores()
	if scores["Tổ 1"] != 30 {
		t.Fatalf("expected 30, got %v", scores)
	}

	if err := store.ClearLiveScores(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	scores, _ = store.LiveScores()
	if len(scores) != 0 {
		t.Fatalf("expected cleared scores, got %v", scores)
	}
}
