package tweetrivia

import (
	"fmt"
	"log/slog"
	"time"
)

// RepairKind identifies one class of automated correction applied to a
// generated batch.
type RepairKind string

const (
	// RepairFollowUp marks questions obtained from a follow-up model call
	// issued to cover a small shortfall.
	RepairFollowUp RepairKind = "follow-up"
	// RepairFiller marks synthesized placeholder questions added to reach the
	// exact requested count.
	RepairFiller RepairKind = "filler"
	// RepairTruncate marks excess questions dropped from the end of a batch.
	RepairTruncate RepairKind = "truncate"
	// RepairFieldFix marks malformed entries whose fields were replaced with
	// defaults in place.
	RepairFieldFix RepairKind = "field-fix"
)

// RepairAction records one automated correction, so callers and tests can
// tell repaired output from genuine generation.
type RepairAction struct {
	Kind   RepairKind
	Count  int
	Detail string
}

// Result is the outcome of one generation run. Questions always holds
// exactly the requested count unless the run short-circuited on empty input.
type Result struct {
	Questions []Question
	Repairs   []RepairAction
	Attempts  int
}

// DefaultNumQuestions is the question count requested when the caller does
// not choose one.
const DefaultNumQuestions = 15

const (
	defaultMaxRetries    = 3
	defaultBackoff       = 2 * time.Second
	defaultMaxPostTokens = 6000
)

// GenerateConfig carries the generation policy: target count, retry budget,
// backoff, prompt token budget, and the optional subject label that binds
// questions to the author's statements. A negative MaxPostTokens disables the
// token budget. Sleep is injectable so tests can run without waiting; nil
// means time.Sleep.
type GenerateConfig struct {
	NumQuestions  int
	MaxRetries    int
	Backoff       time.Duration
	MaxPostTokens int
	Subject       string

	Sleep func(time.Duration)
}

// DefaultGenerateConfig returns the production generation policy.
func DefaultGenerateConfig() GenerateConfig {
	return GenerateConfig{
		NumQuestions:  DefaultNumQuestions,
		MaxRetries:    defaultMaxRetries,
		Backoff:       defaultBackoff,
		MaxPostTokens: defaultMaxPostTokens,
	}
}

// Generate drives up to MaxRetries attempts of build prompt, call model,
// parse, repair, and finalize. It never fails outward: when every attempt
// degrades it returns the best partial batch padded by the repair rules, or
// a fully synthetic batch of exactly NumQuestions questions. Empty posts or
// a zero question count short-circuit to an empty Result without a model
// call.
func Generate(posts []Post, cfg GenerateConfig, llm LLM, logger *slog.Logger) Result {
	logger = logger.With(
		slog.String("package", "tweetrivia"),
		slog.String("function", "Generate"),
	)

	sleep := cfg.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	backoff := cfg.Backoff
	if backoff == 0 {
		backoff = defaultBackoff
	}
	maxPostTokens := cfg.MaxPostTokens
	if maxPostTokens == 0 {
		maxPostTokens = defaultMaxPostTokens
	}

	target := cfg.NumQuestions
	posts = NormalizePosts(posts)

	if target <= 0 || len(posts) == 0 {
		logger.Info("Nothing to generate", "posts", len(posts), "target", target)
		return Result{}
	}

	postBlock := renderPosts(posts, maxPostTokens, logger)

	var repairs []RepairAction
	var best []Question

	for attempt := 1; attempt <= maxRetries; attempt++ {
		final := attempt == maxRetries
		if attempt > 1 {
			sleep(backoff)
		}

		questions, err := runAttempt(postBlock, target, cfg.Subject, llm, logger)
		if err != nil {
			logger.Warn("Attempt failed", "attempt", attempt, "error", err)
			continue
		}
		if len(questions) > 0 {
			best = questions
		}

		logger.Info("Model returned questions", "attempt", attempt, "received", len(questions))

		if len(questions) < target {
			missing := target - len(questions)
			if missing <= 2 && !final {
				added, merged := followUp(postBlock, missing, questions, llm, logger)
				questions = merged
				if added > 0 {
					repairs = append(repairs, RepairAction{
						Kind:   RepairFollowUp,
						Count:  added,
						Detail: fmt.Sprintf("follow-up call covered %d of %d missing questions", added, missing),
					})
					best = questions
				}
			}
			if len(questions) < target {
				if !final {
					logger.Warn("Still short of target, retrying", "attempt", attempt, "received", len(questions))
					continue
				}
				fill := fillerQuestions(target - len(questions))
				repairs = append(repairs, RepairAction{
					Kind:   RepairFiller,
					Count:  len(fill),
					Detail: "synthesized placeholder questions to reach the target count",
				})
				logger.Warn("Padding batch with filler questions", "count", len(fill))
				questions = append(questions, fill...)
			}
		}

		if len(questions) > target {
			excess := len(questions) - target
			questions = questions[:target]
			repairs = append(repairs, RepairAction{
				Kind:   RepairTruncate,
				Count:  excess,
				Detail: "dropped excess questions past the target count",
			})
			logger.Warn("Truncated batch to target count", "dropped", excess)
		}

		invalid := invalidPositions(questions)
		if len(invalid) > 0 {
			if !final {
				logger.Warn("Batch contains malformed questions, retrying", "attempt", attempt, "invalid", invalid)
				continue
			}
			for _, i := range invalid {
				questions[i], _ = repairQuestion(questions[i], i)
			}
			repairs = append(repairs, RepairAction{
				Kind:   RepairFieldFix,
				Count:  len(invalid),
				Detail: "replaced malformed fields with defaults",
			})
			logger.Warn("Repaired malformed questions in place", "count", len(invalid))
		}

		return finalize(questions, repairs, attempt)
	}

	// Every attempt degraded. Return the best partial batch padded to the
	// target, or a fully synthetic batch.
	questions := best
	if len(questions) > target {
		questions = questions[:target]
	}
	fixed := 0
	for i := range questions {
		var changed bool
		questions[i], changed = repairQuestion(questions[i], i)
		if changed {
			fixed++
		}
	}
	if fixed > 0 {
		repairs = append(repairs, RepairAction{
			Kind:   RepairFieldFix,
			Count:  fixed,
			Detail: "replaced malformed fields with defaults",
		})
	}
	if len(questions) < target {
		fill := fillerQuestions(target - len(questions))
		repairs = append(repairs, RepairAction{
			Kind:   RepairFiller,
			Count:  len(fill),
			Detail: "synthesized fallback batch after exhausting retries",
		})
		logger.Error("Generation exhausted retries, falling back to synthetic questions", "synthetic", len(fill))
		questions = append(questions, fill...)
	}

	return finalize(questions, repairs, maxRetries)
}

func runAttempt(postBlock string, target int, subject string, llm LLM, logger *slog.Logger) ([]Question, error) {
	prompt, err := buildGenerationPrompt(postBlock, target, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}

	logger.Debug("Use LLM to generate questions", "prompt", prompt)

	raw, err := llm.Chat([]string{prompt})
	if err != nil {
		return nil, fmt.Errorf("failed to call LLM: %w", err)
	}

	questions, err := ParseQuestions(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse model output: %w", err)
	}

	return questions, nil
}

// followUp issues one additional model call requesting exactly the missing
// count, excluding the already-accepted questions, and merges the results.
// Its failures are advisory; the caller falls back to retry or filler.
func followUp(postBlock string, missing int, accepted []Question, llm LLM, logger *slog.Logger) (int, []Question) {
	prompt, err := buildFollowUpPrompt(postBlock, missing, accepted)
	if err != nil {
		logger.Warn("Failed to build follow-up prompt", "error", err)
		return 0, accepted
	}

	raw, err := llm.Chat([]string{prompt})
	if err != nil {
		logger.Warn("Follow-up call failed", "error", err)
		return 0, accepted
	}

	extra, err := ParseQuestions(raw)
	if err != nil {
		logger.Warn("Failed to parse follow-up output", "error", err)
		return 0, accepted
	}

	merged := mergeQuestions(accepted, extra)
	return len(merged) - len(accepted), merged
}

func invalidPositions(questions []Question) []int {
	var invalid []int
	for i, q := range questions {
		if err := validateQuestion(q); err != nil {
			invalid = append(invalid, i)
		}
	}
	return invalid
}

func finalize(questions []Question, repairs []RepairAction, attempts int) Result {
	for i := range questions {
		questions[i].Fingerprint = Fingerprint(questions[i].Text, questions[i].Answer())
	}
	return Result{
		Questions: questions,
		Repairs:   repairs,
		Attempts:  attempts,
	}
}
