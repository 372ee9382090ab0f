package internal

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// EncodeStringByTiktoken encodes a string into token IDs using the GPT-4o tokenizer.
func EncodeStringByTiktoken(content string) ([]uint, error) {
	enc, err := tokenizer.ForModel(tokenizer.GPT4o)
	if err != nil {
		return nil, fmt.Errorf("failed to get tokenizer: %w", err)
	}

	ids, _, err := enc.Encode(content)
	if err != nil {
		return nil, fmt.Errorf("failed to encode string: %w", err)
	}

	return ids, nil
}

// CountTokens counts the number of tokens in a string using the GPT-4o tokenizer.
// It is used to keep rendered prompts within the model's context budget.
func CountTokens(content string) (int, error) {
	tokenIDs, err := EncodeStringByTiktoken(content)
	if err != nil {
		return 0, fmt.Errorf("failed to encode string: %w", err)
	}
	return len(tokenIDs), nil
}
