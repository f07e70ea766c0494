package memory

import (
	"testing"

	"exam-arena/internal/domain"
)

func TestSaveExamUpserts(t *testing.T) {
	store := NewStore()

	if err := store.SaveExam(domain.Exam{ID: "e1", Title: "Đề 1"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SaveExam(domain.Exam{ID: "e2", Title: "Đề 2"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SaveExam(domain.Exam{ID: "e1", Title: "Đề 1 sửa"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	exams, err := store.Exams()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(exams) != 2 {
		t.Fatalf("expected 2 exams, got %d", len(exams))
	}
	if exams[0].ID != "e1" || exams[0].Title != "Đề 1 sửa" {
		t.Fatalf("update must keep position and change content: %+v", exams[0])
	}
}

func TestDeleteExamCascadesResults(t *testing.T) {
	store := NewStore()
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

func TestResultsForExam(t *testing.T) {
	store := NewStore()
	_ = store.SaveResult(domain.StudentResult{ExamID: "e1", StudentName: "An"})
	_ = store.SaveResult(domain.StudentResult{ExamID: "e2", StudentName: "Bình"})
	_ = store.SaveResult(domain.StudentResult{ExamID: "e1", StudentName: "Chi"})

	results, err := store.ResultsForExam("e1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results for e1, got %d", len(results))
	}
}

func TestTeamsDefaultWhenUnset(t *testing.T) {
	store := NewStore()

	teams, err := store.Teams()
	if err != nil {
		t.Fatalf("teams: %v", err)
	}
	if len(teams) != len(domain.DefaultTeams()) {
		t.Fatalf("expected default roster, got %v", teams)
	}

	if err := store.SaveTeams([]string{"Tổ 1", "Tổ 2", "Tổ 3"}); err != nil {
		t.Fatalf("save teams: %v", err)
	}
	teams, _ = store.Teams()
	if len(teams) != 3 || teams[0] != "Tổ 1" {
		t.Fatalf("expected custom roster, got %v", teams)
	}
}

func TestLiveScoresRoundTrip(t *testing.T) {
	store := NewStore()

	if err := store.SaveLiveScores(map[string]int{"Đội Đỏ": 20}); err != nil {
		t.Fatalf("save: %v", err)
	}
	scores, _ := store.LiveScores()
	if scores["Đội Đỏ"] != 20 {
		t.Fatalf("expected 20, got %v", scores)
	}

	if err := store.ClearLiveScores(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	scores, _ = store.LiveScores()
	if len(scores) != 0 {
		t.Fatalf("expected empty scores, got %v", scores)
	}
}
