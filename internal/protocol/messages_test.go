package protocol_test

import (
	"strings"
	"testing"

	"exam-arena/internal/domain"
	"exam-arena/internal/protocol"
)

func TestEncodeDecodeSyncExam(t *testing.T) {
	exam := domain.Exam{
		ID:     "e1",
		Code:   "123456",
		Title:  "Hóa học 10",
		Status: domain.StatusRunning,
		Questions: []domain.Question{
			{ID: "q1", Text: "H2O là gì?", Options: []string{"a", "b", "c", "d"}, CorrectIndex: 2},
		},
	}

	data, err := protocol.Encode(protocol.SyncExam{Exam: exam})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	msg, err := protocol.Decode(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	sync, ok := msg.(protocol.SyncExam)
	if !ok {
		t.Fatalf("expected SyncExam, got %T", msg)
	}
	if sync.Exam.ID != "e1" || sync.Exam.Status != domain.StatusRunning {
		t.Fatalf("round trip lost exam fields: %+v", sync.Exam)
	}
	if sync.Exam.Questions[0].CorrectIndex != 2 {
		t.Fatalf("round trip lost correct index: %+v", sync.Exam.Questions[0])
	}
}

func TestEncodeDecodeStudentMessages(t *testing.T) {
	data, err := protocol.Encode(protocol.LiveScoreUpdate{Team: "Đội Đỏ", Points: 10})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	msg, err := protocol.Decode(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	update, ok := msg.(protocol.LiveScoreUpdate)
	if !ok || update.Team != "Đội Đỏ" || update.Points != 10 {
		t.Fatalf("unexpected decode: %#v", msg)
	}

	data, err = protocol.Encode(protocol.SubmitResult{Result: domain.StudentResult{
		ExamID:      "e1",
		StudentName: "An",
		Team:        "Đội Xanh",
		Score:       3.3,
		RawScore:    1,
		Answers:     []int{1, -1, 0},
	}})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	msg, err = protocol.Decode(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	submit, ok := msg.(protocol.SubmitResult)
	if !ok || submit.Result.Score != 3.3 || len(submit.Result.Answers) != 3 {
		t.Fatalf("unexpected decode: %#v", msg)
	}
	if submit.Result.Answers[1] != -1 {
		t.Fatalf("unanswered marker lost: %v", submit.Result.Answers)
	}
}

func TestDecodeUnknownTypeFails(t *testing.T) {
	_, err := protocol.Decode([]byte(`{"type":"PING","payload":{}}`))
	if err == nil || !strings.Contains(err.Error(), "unknown message type") {
		t.Fatalf("expected unknown type error, got %v", err)
	}
}

func TestDecodeGarbageFails(t *testing.T) {
	if _, err := protocol.Decode([]byte("not json")); err == nil {
		t.Fatal("expected error for malformed frame")
	}
}
