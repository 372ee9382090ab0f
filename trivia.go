package tweetrivia

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// LLM defines the interface for language model operations.
// A message with an even index is guaranteed to be sent by the user, while the odd index is
// sent by the assistant.
type LLM interface {
	Chat(messages []string) (string, error)
}

// GameStore defines the interface for persisting games, their staged question
// sets, and answer submissions. Schema details are owned by the implementation.
type GameStore interface {
	SaveGame(ctx context.Context, game Game) error
	SaveQuestions(ctx context.Context, gameID string, stage int, questions []Question) error

	// Questions returns the ordered question set for a game stage with the
	// correct answer withheld.
	Questions(ctx context.Context, gameID string, stage int) ([]PublicQuestion, error)
	// QuestionFingerprints returns the ordered fingerprints for a game stage,
	// used for positional answer validation.
	QuestionFingerprints(ctx context.Context, gameID string, stage int) ([]string, error)

	JoinGame(ctx context.Context, gameID, username string) error
	SaveSubmission(ctx context.Context, submission Submission) error
}

// Post represents a single timestamped text snippet used as question source
// material. CreatedAt is "Unknown" when the source carried no timestamp.
type Post struct {
	Text      string
	CreatedAt string
}

// Question is one trivia question with four options, a designated correct
// answer, and a fingerprint committing the question/answer pair.
//
// The correct answer is canonically a 0-based index into Options. Model
// output that designates the answer by its literal option string is converted
// to the index form at the parse boundary.
type Question struct {
	Text         string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_answer"`
	Fingerprint  string   `json:"hash"`
}

// PublicQuestion is the answer-withheld projection of a Question, safe to
// hand to players. The fingerprint stays exposed so clients can commit their
// answers by hash.
type PublicQuestion struct {
	Text        string   `json:"question"`
	Options     []string `json:"options"`
	Fingerprint string   `json:"hash"`
}

// Public returns the answer-withheld projection of q.
func (q Question) Public() PublicQuestion {
	return PublicQuestion{
		Text:        q.Text,
		Options:     q.Options,
		Fingerprint: q.Fingerprint,
	}
}

// Answer returns the text of the designated correct option, or an empty
// string when CorrectIndex is out of range.
func (q Question) Answer() string {
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return ""
	}
	return q.Options[q.CorrectIndex]
}

// Game represents one trivia game round.
type Game struct {
	ID          string
	Basename    string
	StakeAmount int
	PlayerLimit int
	Duration    int
	Status      string
	EndTime     time.Time
	CreatedAt   time.Time
}

// Submission records one player's submitted answer fingerprints for a game
// stage along with the score they earned.
type Submission struct {
	GameID       string
	Username     string
	Stage        int
	Score        int
	AnswerHashes []string
	SubmittedAt  time.Time
}

var (
	// ErrMalformedResponse is returned when model output cannot be parsed as
	// a JSON array even after repair.
	ErrMalformedResponse = errors.New("response does not contain a valid JSON array")
	// ErrInvalidShape is returned when parsed model output is not an array of
	// well-formed question objects.
	ErrInvalidShape = errors.New("question has invalid shape")
	// ErrScoreLookup is returned when the stored fingerprints needed for
	// scoring cannot be retrieved.
	ErrScoreLookup = errors.New("failed to look up stored fingerprints")
)

const unknownTimestamp = "Unknown"

// UnmarshalJSON accepts the heterogeneous post encodings seen in input files
// and fetch payloads: a bare string, or an object with "text" plus an
// optional "created_at" or "timestamp" field.
func (p *Post) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		p.Text = text
		p.CreatedAt = unknownTimestamp
		return nil
	}

	var obj struct {
		Text      string `json:"text"`
		CreatedAt string `json:"created_at"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	p.Text = obj.Text
	p.CreatedAt = obj.CreatedAt
	if p.CreatedAt == "" {
		p.CreatedAt = obj.Timestamp
	}
	if p.CreatedAt == "" {
		p.CreatedAt = unknownTimestamp
	}
	return nil
}

// MarshalJSON renders a Post in the canonical object form.
func (p Post) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Text      string `json:"text"`
		CreatedAt string `json:"created_at"`
	}{Text: p.Text, CreatedAt: p.CreatedAt})
}

// NormalizePosts drops posts with no usable text and fills missing
// timestamps, preserving input order.
func NormalizePosts(posts []Post) []Post {
	normalized := make([]Post, 0, len(posts))
	for _, post := range posts {
		text := strings.TrimSpace(post.Text)
		if text == "" {
			continue
		}
		createdAt := strings.TrimSpace(post.CreatedAt)
		if createdAt == "" {
			createdAt = unknownTimestamp
		}
		normalized = append(normalized, Post{Text: text, CreatedAt: createdAt})
	}
	return normalized
}

// DecodePosts parses an input document holding either a bare JSON array of
// post records or an object of the form {"username": ..., "tweets": [...]}.
// It returns the username when present, and the normalized posts.
func DecodePosts(data []byte) (string, []Post, error) {
	trimmed := strings.TrimSpace(string(data))

	if strings.HasPrefix(trimmed, "[") {
		var posts []Post
		if err := json.Unmarshal(data, &posts); err != nil {
			return "", nil, err
		}
		return "", NormalizePosts(posts), nil
	}

	var doc struct {
		Username string `json:"username"`
		Tweets   []Post `json:"tweets"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", nil, err
	}
	return doc.Username, NormalizePosts(doc.Tweets), nil
}
