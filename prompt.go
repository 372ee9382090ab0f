package tweetrivia

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/tweetrivia/tweetrivia/internal"
)

type generationPromptData struct {
	Count   int
	Subject string
	Posts   string
}

type followUpPromptData struct {
	Missing  int
	Existing string
	Posts    string
}

//nolint:lll
const generationPrompt = `Your task is to generate EXACTLY {{.Count}} trivia questions with 4 multiple-choice answers each based on the following posts.

IMPORTANT: You MUST generate EXACTLY {{.Count}} questions - no more, no less. This is critical.

{{if .Subject -}}
The questions must be based on post content (events, mentions, interests, etc.). Because these are {{.Subject}}'s own statements, phrase each question as "According to {{.Subject}}'s statements..." rather than asserting the content as objective fact. When an answer is inferred rather than stated outright, mark it as implied or suggested in the question. Do not let more than 3 questions share a single theme.
{{- else -}}
The questions must be based on post content (events, mentions, interests, etc.) and should be engaging for someone familiar with the author's public activity. If the posts don't provide enough direct content, create plausible questions related to the topics mentioned.
{{- end}}

Return a JSON array of EXACTLY {{.Count}} objects, each with:
- 'question': The trivia question
- 'options': Array of 4 strings representing possible answers
- 'correct_answer': Index of the correct answer (0-3)
- 'hash': SHA256 of question + correct answer (leave this blank, it will be added later)

Output only the JSON array, without Markdown code fences or extra text.

Posts:
{{.Posts}}

Example of expected format:
[
    {
        "question": "Which event did the author post about in April?",
        "options": ["Conference", "Birthday", "Concert", "Meeting"],
        "correct_answer": 0,
        "hash": ""
    },
    ...and so on until EXACTLY {{.Count}} questions
]

Remember: I need EXACTLY {{.Count}} questions. Create additional relevant questions if needed to reach this count.`

//nolint:lll
const followUpPrompt = `Based on these posts, generate exactly {{.Missing}} more trivia questions with 4 multiple-choice answers each.
Make them different from these existing questions:
{{.Existing}}

Posts:
{{.Posts}}

Return ONLY a JSON array with exactly {{.Missing}} question objects, each with 'question', 'options' (4 strings), 'correct_answer' (index 0-3), and 'hash' (blank). No Markdown code fences.`

func promptTemplate(name, templ string, data any) (string, error) {
	buf := strings.Builder{}
	tmpl := template.Must(template.New(name).Parse(templ))
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// renderPosts renders posts as "<timestamp>: <text>" lines in input order.
// When maxTokens is positive, posts past the token budget are dropped from
// the tail; counting failures skip the cap rather than fail the build.
func renderPosts(posts []Post, maxTokens int, logger *slog.Logger) string {
	lines := make([]string, 0, len(posts))
	used := 0
	for _, post := range posts {
		line := fmt.Sprintf("%s: %s", post.CreatedAt, post.Text)
		if maxTokens > 0 {
			count, err := internal.CountTokens(line)
			if err != nil {
				logger.Warn("Token counting failed, skipping prompt budget", "error", err)
				maxTokens = 0
			} else {
				if used+count > maxTokens {
					break
				}
				used += count
			}
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func buildGenerationPrompt(postBlock string, count int, subject string) (string, error) {
	return promptTemplate("generate-questions", generationPrompt, generationPromptData{
		Count:   count,
		Subject: subject,
		Posts:   postBlock,
	})
}

func buildFollowUpPrompt(postBlock string, missing int, existing []Question) (string, error) {
	existingJSON, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode existing questions: %w", err)
	}

	return promptTemplate("follow-up-questions", followUpPrompt, followUpPromptData{
		Missing:  missing,
		Existing: string(existingJSON),
		Posts:    postBlock,
	})
}
