package tweetrivia

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/cespare/xxhash"
)

// questionPayload is the parse-boundary shape for one model-emitted question.
// The correct answer arrives either as a 0-based index or as the literal
// option string; resolve converts both to the canonical index form.
type questionPayload struct {
	Question      string          `json:"question"`
	Options       []string        `json:"options"`
	CorrectAnswer json.RawMessage `json:"correct_answer"`
	Hash          string          `json:"hash"`
}

func (p questionPayload) resolve() Question {
	question := Question{
		Text:         p.Question,
		Options:      p.Options,
		CorrectIndex: -1,
		Fingerprint:  p.Hash,
	}

	if len(p.CorrectAnswer) == 0 {
		return question
	}

	var index int
	if err := json.Unmarshal(p.CorrectAnswer, &index); err == nil {
		question.CorrectIndex = index
		return question
	}

	var literal string
	if err := json.Unmarshal(p.CorrectAnswer, &literal); err == nil {
		for i, option := range p.Options {
			if option == literal {
				question.CorrectIndex = i
				return question
			}
		}
	}

	return question
}

func removeMarkdownBackticks(input string) string {
	lines := strings.Split(input, "\n")

	// Filter out lines that start with triple backticks
	var filteredLines []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "```") {
			filteredLines = append(filteredLines, line)
		}
	}

	return strings.Join(filteredLines, "\n")
}

// ParseQuestions parses raw model output into questions. It strips code-fence
// lines, trims surrounding prose down to the outermost array brackets, and
// falls back to a single JSON repair pass when strict decoding fails. It
// returns ErrMalformedResponse when no array can be recovered. Shape
// validation is the caller's responsibility.
func ParseQuestions(raw string) ([]Question, error) {
	content := strings.TrimSpace(removeMarkdownBackticks(raw))

	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start == -1 || end == -1 || end < start {
		return nil, ErrMalformedResponse
	}
	content = content[start : end+1]

	var payloads []questionPayload
	if err := json.Unmarshal([]byte(content), &payloads); err != nil {
		repaired, repairErr := jsonrepair.RepairJSON(content)
		if repairErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
		if err := json.Unmarshal([]byte(repaired), &payloads); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
	}

	questions := make([]Question, len(payloads))
	for i, payload := range payloads {
		questions[i] = payload.resolve()
	}

	return questions, nil
}

func validateQuestion(q Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: empty question text", ErrInvalidShape)
	}
	if len(q.Options) != 4 {
		return fmt.Errorf("%w: expected 4 options, got %d", ErrInvalidShape, len(q.Options))
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return fmt.Errorf("%w: correct answer index %d out of range", ErrInvalidShape, q.CorrectIndex)
	}
	return nil
}

var defaultOptions = []string{"AI", "Blockchain", "NFTs", "Travel"}

// repairQuestion fills missing or out-of-range fields with defaults so a
// batch never fails over a single malformed entry. It returns the repaired
// question and whether anything was changed.
func repairQuestion(q Question, position int) (Question, bool) {
	changed := false
	if strings.TrimSpace(q.Text) == "" {
		q.Text = fmt.Sprintf("What topic was mentioned in the posts? (Question %d)", position+1)
		changed = true
	}
	if len(q.Options) != 4 {
		q.Options = append([]string(nil), defaultOptions...)
		changed = true
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		q.CorrectIndex = 0
		changed = true
	}
	return q, changed
}

var fillerTopics = []string{"AI", "Blockchain", "Crypto", "NFTs", "Technology", "Fitness", "Travel"}

// fillerQuestions synthesizes count placeholder questions from a fixed topic
// rotation. They guarantee the exact-count contract when generation degrades,
// at the cost of content quality.
func fillerQuestions(count int) []Question {
	questions := make([]Question, count)
	for i := range questions {
		topic := fillerTopics[i%len(fillerTopics)]
		questions[i] = Question{
			Text: fmt.Sprintf("Based on the posts, which %s-related activity might the author be interested in?", topic),
			Options: []string{
				topic + " conference",
				topic + " development",
				topic + " investment",
				topic + " community",
			},
			CorrectIndex: i % 4,
		}
	}
	return questions
}

func questionKey(text string) uint64 {
	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))
	return xxhash.Sum64String(normalized)
}

// mergeQuestions appends extra questions to existing, dropping any whose
// normalized text duplicates one already accepted.
func mergeQuestions(existing, extra []Question) []Question {
	seen := make(map[uint64]struct{}, len(existing))
	for _, q := range existing {
		seen[questionKey(q.Text)] = struct{}{}
	}

	for _, q := range extra {
		key := questionKey(q.Text)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		existing = append(existing, q)
	}

	return existing
}
