package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tweetrivia "github.com/tweetrivia/tweetrivia"
	"github.com/tweetrivia/tweetrivia/storage"
)

func newBolt(t *testing.T) storage.Bolt {
	t.Helper()

	db, err := storage.NewBolt(filepath.Join(t.TempDir(), "trivia.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.DB.Close())
	})

	return db
}

func boltQuestions() []tweetrivia.Question {
	questions := []tweetrivia.Question{
		{Text: "First?", Options: []string{"a", "b", "c", "d"}, CorrectIndex: 1},
		{Text: "Second?", Options: []string{"e", "f", "g", "h"}, CorrectIndex: 3},
	}
	for i := range questions {
		questions[i].Fingerprint = tweetrivia.Fingerprint(questions[i].Text, questions[i].Answer())
	}
	return questions
}

func TestBoltQuestions(t *testing.T) {
	db := newBolt(t)
	ctx := context.Background()

	require.NoError(t, db.SaveQuestions(ctx, "g1", 0, boltQuestions()))

	t.Run("Public view withholds the answer", func(t *testing.T) {
		public, err := db.Questions(ctx, "g1", 0)

		require.NoError(t, err)
		require.Len(t, public, 2)
		assert.Equal(t, "First?", public[0].Text)
		assert.Equal(t, []string{"a", "b", "c", "d"}, public[0].Options)
	})

	t.Run("Fingerprints keep question order", func(t *testing.T) {
		fingerprints, err := db.QuestionFingerprints(ctx, "g1", 0)

		require.NoError(t, err)
		want := []string{
			tweetrivia.Fingerprint("First?", "b"),
			tweetrivia.Fingerprint("Second?", "h"),
		}
		assert.Equal(t, want, fingerprints)
	})

	t.Run("Stages are independent", func(t *testing.T) {
		_, err := db.Questions(ctx, "g1", 1)

		assert.Error(t, err)
	})

	t.Run("Unknown game is an error", func(t *testing.T) {
		_, err := db.Questions(ctx, "missing", 0)

		assert.Error(t, err)
	})
}

func TestBoltGameLifecycle(t *testing.T) {
	db := newBolt(t)
	ctx := context.Background()

	game := tweetrivia.Game{ID: "g1", Basename: "alice", Status: "open"}
	require.NoError(t, db.SaveGame(ctx, game))
	require.NoError(t, db.JoinGame(ctx, "g1", "bob"))
	require.NoError(t, db.JoinGame(ctx, "g1", "bob"))

	sub := tweetrivia.Submission{
		GameID:       "g1",
		Username:     "bob",
		Stage:        0,
		Score:        2,
		AnswerHashes: []string{"0xaa", "0xbb"},
	}
	require.NoError(t, db.SaveSubmission(ctx, sub))
	require.NoError(t, db.SaveSubmission(ctx, sub))
}
