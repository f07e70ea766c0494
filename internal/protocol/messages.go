// Package protocol defines the closed set of messages exchanged between a
// teacher session and its students. Every frame on the wire is an Envelope
// whose Type selects exactly one payload shape.
package protocol

import (
	"encoding/json"
	"fmt"

	"exam-arena/internal/domain"
)

const (
	TypeSyncExam        = "SYNC_EXAM"
	TypeLiveScoreUpdate = "LIVE_SCORE_UPDATE"
	TypeSubmitResult    = "SUBMIT_RESULT"
)

// Message is implemented by the three wire payloads and nothing else.
type Message interface {
	Kind() string
}

// SyncExam carries a full exam snapshot, teacher to student.
type SyncExam struct {
	Exam domain.Exam `json:"exam"`
}

func (SyncExam) Kind() string { return TypeSyncExam }

// LiveScoreUpdate carries one team point delta, student to teacher.
type LiveScoreUpdate struct {
	Team   string `json:"team"`
	Points int    `json:"points"`
}

func (LiveScoreUpdate) Kind() string { return TypeLiveScoreUpdate }

// SubmitResult carries a final graded submission, student to teacher.
type SubmitResult struct {
	Result domain.StudentResult `json:"result"`
}

func (SubmitResult) Kind() string { return TypeSubmitResult }

// Envelope is the frame layout shared by all message kinds.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Encode wraps a message in its envelope and marshals it.
func Encode(msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", msg.Kind(), err)
	}
	return json.Marshal(Envelope{Type: msg.Kind(), Payload: payload})
}

// Decode parses an envelope and returns its typed payload. Unknown types
// are an error; the message set is closed.
func Decode(data []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	switch env.Type {
	case TypeSyncExam:
		var msg SyncExam
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return msg, nil
	case TypeLiveScoreUpdate:
		var msg LiveScoreUpdate
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return msg, nil
	case TypeSubmitResult:
		var msg SubmitResult
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return msg, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}
}
