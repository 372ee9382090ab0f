package llm

import (
	"regexp"
)

var thinkTagPattern = regexp.MustCompile(`(?s)<think>.*?</think>`)

// RemoveThinkTags removes <think> tags and everything in between them from a
// string. Reasoning models emit these blocks before the JSON payload the
// caller wants to parse.
func RemoveThinkTags(input string) string {
	return thinkTagPattern.ReplaceAllString(input, "")
}
