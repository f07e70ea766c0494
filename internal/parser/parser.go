// Package parser turns plain-text exam files into questions and renders
// inline notation (superscripts, subscripts, chemical formulas, images)
// as HTML fragments.
package parser

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"exam-arena/internal/domain"
)

var (
	// Accepts "Câu 1:", "Câu 1.", "Câu 1"
	questionStartRe = regexp.MustCompile(`(?i)^Câu\s+\d+[:.]?\s*(.+)`)
	// Accepts "A.", "A)", "A։"
	optionRe = regexp.MustCompile(`(?i)^[A-D][.։)]\s*(.+)`)
	// Accepts "Đáp án:", "Đáp án", "Answer:"
	answerRe = regexp.MustCompile(`(?i)^(?:Đáp án|Answer|Dap an)[:.]?\s*([A-D])`)
)

// ParseExamFile extracts multiple-choice questions from exam text. A
// question needs a "Câu N" line, exactly four A-D options, and optionally
// an answer line (defaults to A). Lines between the prompt and the first
// option extend the prompt. Questions without exactly four options are
// dropped.
func ParseExamFile(content string) []domain.Question {
	var questions []domain.Question

	var current *domain.Question
	var options []string

	flush := func() {
		if current != nil && len(options) == 4 {
			current.ID = uuid.NewString()
			current.Options = append([]string(nil), options...)
			questions = append(questions, *current)
		}
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := questionStartRe.FindStringSubmatch(line); m != nil {
			flush()
			current = &domain.Question{Text: m[1]}
			options = nil
			continue
		}

		if m := optionRe.FindStringSubmatch(line); m != nil && current != nil {
			options = append(options, m[1])
			continue
		}

		if m := answerRe.FindStringSubmatch(line); m != nil && current != nil {
			current.CorrectIndex = int(strings.ToUpper(m[1])[0] - 'A')
			continue
		}

		// Continuation of a multiline prompt, before any option showed up.
		// Malformed answer lines never extend the prompt.
		if current != nil && len(options) == 0 && !isAnswerPrefix(line) {
			current.Text += " <br/> " + line
		}
	}
	flush()

	return questions
}

func isAnswerPrefix(line string) bool {
	return strings.HasPrefix(line, "Đáp án") ||
		strings.HasPrefix(line, "Answer") ||
		strings.HasPrefix(line, "Dap an")
}
