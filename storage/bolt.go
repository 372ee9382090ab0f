package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	tweetrivia "github.com/tweetrivia/tweetrivia"
	bolt "go.etcd.io/bbolt"
)

// Bolt provides a BoltDB implementation of the GameStore interface. It backs
// the CLI and tests, where a relational server is not available.
type Bolt struct {
	DB *bolt.DB
}

var boltBuckets = []string{"games", "questions", "participants", "submissions"}

// NewBolt creates a new BoltDB client with the provided file path. The
// function ensures that required buckets exist in the database.
func NewBolt(path string) (Bolt, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return Bolt{}, fmt.Errorf("failed to open bolt database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range boltBuckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return Bolt{}, fmt.Errorf("failed to create buckets: %w", err)
	}

	return Bolt{DB: db}, nil
}

func stageKey(gameID string, stage int) []byte {
	return []byte(fmt.Sprintf("%s/%d", gameID, stage))
}

// SaveGame creates or updates a game record.
func (b Bolt) SaveGame(ctx context.Context, game tweetrivia.Game) error {
	return b.DB.Update(func(tx *bolt.Tx) error {
		encoded, err := json.Marshal(game)
		if err != nil {
			return fmt.Errorf("failed to encode game: %w", err)
		}

		if err := tx.Bucket([]byte("games")).Put([]byte(game.ID), encoded); err != nil {
			return fmt.Errorf("failed to put game: %w", err)
		}

		return nil
	})
}

// SaveQuestions stores the ordered question set for a game stage.
func (b Bolt) SaveQuestions(ctx context.Context, gameID string, stage int, questions []tweetrivia.Question) error {
	return b.DB.Update(func(tx *bolt.Tx) error {
		encoded, err := json.Marshal(questions)
		if err != nil {
			return fmt.Errorf("failed to encode questions: %w", err)
		}

		if err := tx.Bucket([]byte("questions")).Put(stageKey(gameID, stage), encoded); err != nil {
			return fmt.Errorf("failed to put questions: %w", err)
		}

		return nil
	})
}

func (b Bolt) stageQuestions(gameID string, stage int) ([]tweetrivia.Question, error) {
	var questions []tweetrivia.Question

	err := b.DB.View(func(tx *bolt.Tx) error {
		content := tx.Bucket([]byte("questions")).Get(stageKey(gameID, stage))
		if content == nil {
			return fmt.Errorf("questions not found for game %s stage %d", gameID, stage)
		}

		return json.Unmarshal(content, &questions)
	})
	if err != nil {
		return nil, err
	}

	return questions, nil
}

// Questions returns the ordered question set for a game stage with the
// correct answer withheld.
func (b Bolt) Questions(ctx context.Context, gameID string, stage int) ([]tweetrivia.PublicQuestion, error) {
	questions, err := b.stageQuestions(gameID, stage)
	if err != nil {
		return nil, err
	}

	public := make([]tweetrivia.PublicQuestion, len(questions))
	for i, q := range questions {
		public[i] = q.Public()
	}

	return public, nil
}

// QuestionFingerprints returns the ordered fingerprints for a game stage.
func (b Bolt) QuestionFingerprints(ctx context.Context, gameID string, stage int) ([]string, error) {
	questions, err := b.stageQuestions(gameID, stage)
	if err != nil {
		return nil, err
	}

	fingerprints := make([]string, len(questions))
	for i, q := range questions {
		fingerprints[i] = q.Fingerprint
	}

	return fingerprints, nil
}

// JoinGame records a participant for a game.
func (b Bolt) JoinGame(ctx context.Context, gameID, username string) error {
	return b.DB.Update(func(tx *bolt.Tx) error {
		key := []byte(gameID + "/" + username)
		if err := tx.Bucket([]byte("participants")).Put(key, []byte{}); err != nil {
			return fmt.Errorf("failed to put participant: %w", err)
		}
		return nil
	})
}

// SaveSubmission records a scored answer submission.
func (b Bolt) SaveSubmission(ctx context.Context, submission tweetrivia.Submission) error {
	return b.DB.Update(func(tx *bolt.Tx) error {
		encoded, err := json.Marshal(submission)
		if err != nil {
			return fmt.Errorf("failed to encode submission: %w", err)
		}

		if err := tx.Bucket([]byte("submissions")).Put([]byte(uuid.NewString()), encoded); err != nil {
			return fmt.Errorf("failed to put submission: %w", err)
		}

		return nil
	})
}
