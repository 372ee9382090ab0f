package tweetrivia

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Fingerprint computes the commitment of a question/answer pair: the
// lowercase hex SHA-256 of the question text concatenated with the correct
// answer text, prefixed with "0x". The output is always 66 characters.
//
// Both the generation and validation paths depend on this exact encoding;
// changing it breaks every persisted fingerprint.
func Fingerprint(question, answer string) string {
	sum := sha256.Sum256([]byte(question + answer))
	return "0x" + hex.EncodeToString(sum[:])
}

// Score counts positional fingerprint matches between the stored correct
// sequence and a submitted sequence. Only indices present in both are
// compared, so a submission longer or shorter than the stored set never
// fails; reordered answers score as wrong.
func Score(correct, submitted []string) int {
	score := 0
	for i, hash := range submitted {
		if i >= len(correct) {
			break
		}
		if hash == correct[i] {
			score++
		}
	}
	return score
}

// FingerprintSource is the subset of GameStore needed for answer validation.
type FingerprintSource interface {
	QuestionFingerprints(ctx context.Context, gameID string, stage int) ([]string, error)
}

// ValidateAnswers scores submitted fingerprints against the stored set for a
// game stage. A storage failure is reported as an error wrapping
// ErrScoreLookup so callers can distinguish "lookup failed" from "all wrong";
// the public boundary collapses both to a score of 0.
func ValidateAnswers(ctx context.Context, source FingerprintSource, gameID string, stage int, submitted []string) (int, error) {
	correct, err := source.QuestionFingerprints(ctx, gameID, stage)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrScoreLookup, err)
	}
	return Score(correct, submitted), nil
}
