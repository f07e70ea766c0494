package gen_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"exam-arena/internal/gen"
)

func TestGenerateQuestions(t *testing.T) {
	var gotTopic string
	var gotCount int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Topic string `json:"topic"`
			Count int    `json:"count"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		gotTopic, gotCount = req.Topic, req.Count

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]any{
			{
				"text":               "Nguyên tố nào nhẹ nhất?",
				"options":            []string{"Hydro", "Heli", "Oxy", "Sắt"},
				"correctAnswerIndex": 0,
			},
			{
				"text":               "Kim loại lỏng ở nhiệt độ phòng?",
				"options":            []string{"Sắt", "Thủy ngân", "Chì", "Kẽm"},
				"correctAnswerIndex": 1,
			},
		})
	}))
	defer server.Close()

	g := &gen.HTTPGenerator{URL: server.URL}
	questions, err := g.GenerateQuestions(context.Background(), "Hóa học", 2)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if gotTopic != "Hóa học" || gotCount != 2 {
		t.Fatalf("request payload wrong: topic=%q count=%d", gotTopic, gotCount)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	if questions[0].ID == "" || questions[0].ID == questions[1].ID {
		t.Fatalf("questions must get unique IDs: %q vs %q", questions[0].ID, questions[1].ID)
	}
	if questions[1].CorrectIndex != 1 {
		t.Fatalf("correct index lost: %+v", questions[1])
	}
}

func TestGenerateDefaultsCount(t *testing.T) {
	var gotCount int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Count int `json:"count"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotCount = req.Count
		w.Write([]byte("[]"))
	}))
	defer server.Close()

	g := &gen.HTTPGenerator{URL: server.URL}
	if _, err := g.GenerateQuestions(context.Background(), "Lịch sử", 0); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if gotCount != gen.DefaultCount {
		t.Fatalf("expected default count %d, got %d", gen.DefaultCount, gotCount)
	}
}

func TestGenerateRejectsMalformedQuestions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"text": "thiếu lựa chọn", "options": []string{"a", "b"}, "correctAnswerIndex": 0},
		})
	}))
	defer server.Close()

	g := &gen.HTTPGenerator{URL: server.URL}
	if _, err := g.GenerateQuestions(context.Background(), "Toán", 1); err == nil {
		t.Fatal("expected validation error for two-option question")
	}
}

func TestGenerateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	g := &gen.HTTPGenerator{URL: server.URL}
	if _, err := g.GenerateQuestions(context.Background(), "Toán", 1); err == nil {
		t.Fatal("expected error for 500 response")
	}
}
