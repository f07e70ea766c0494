// Package gen produces draft questions from an external generation
// service.
package gen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"exam-arena/internal/app"
	"exam-arena/internal/domain"
)

// Generator produces multiple-choice questions for a topic.
type Generator interface {
	GenerateQuestions(ctx context.Context, topic string, count int) ([]domain.Question, error)
}

const DefaultCount = 5

// HTTPGenerator calls a JSON question-generation endpoint. The endpoint
// takes {"topic": ..., "count": ...} and returns an array of questions
// without IDs; IDs are assigned here.
type HTTPGenerator struct {
	URL    string
	APIKey string
	Client *http.Client
}

type generateRequest struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

type generatedQuestion struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctAnswerIndex"`
}

func (g *HTTPGenerator) GenerateQuestions(ctx context.Context, topic string, count int) ([]domain.Question, error) {
	if count <= 0 {
		count = DefaultCount
	}

	body, err := json.Marshal(generateRequest{Topic: topic, Count: count})
	if err != nil {
		return nil, fmt.Errorf("marshal generate request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.APIKey)
	}

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling generator: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generator returned %s", resp.Status)
	}

	var raw []generatedQuestion
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode generated questions: %w", err)
	}

	questions := make([]domain.Question, 0, len(raw))
	for _, q := range raw {
		question := domain.Question{
			ID:           uuid.NewString(),
			Text:         q.Text,
			Options:      q.Options,
			CorrectIndex: q.CorrectIndex,
		}
		if err := app.ValidateQuestion(question); err != nil {
			return nil, fmt.Errorf("generated question rejected: %w", err)
		}
		questions = append(questions, question)
	}
	return questions, nil
}
