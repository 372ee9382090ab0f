package llm_test

import (
	"testing"

	"github.com/tweetrivia/tweetrivia/llm"
)

func TestRemoveThinkTags(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "No tags",
			input: `[{"question": "q"}]`,
			want:  `[{"question": "q"}]`,
		},
		{
			name:  "Single block stripped",
			input: "<think>pondering the posts</think>[1, 2]",
			want:  "[1, 2]",
		},
		{
			name:  "Multiline block stripped",
			input: "<think>line one\nline two</think>result",
			want:  "result",
		},
		{
			name:  "Multiple blocks stripped",
			input: "<think>a</think>keep<think>b</think>this",
			want:  "keepthis",
		},
		{
			name:  "Unclosed tag left intact",
			input: "<think>never closed",
			want:  "<think>never closed",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := llm.RemoveThinkTags(tc.input); got != tc.want {
				t.Errorf("Expected %q, got %q", tc.want, got)
			}
		})
	}
}
