package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	tweetrivia "github.com/tweetrivia/tweetrivia"
	"github.com/tweetrivia/tweetrivia/config"
	"github.com/tweetrivia/tweetrivia/llm"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "tweetrivia",
	Short: "Turn a user's social posts into hash-committed trivia games",
	Long: `tweetrivia fetches a user's social posts, asks a language model to turn
them into multiple-choice trivia questions, persists games and questions,
pins question sets to IPFS, and validates submitted answers by hash
comparison.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML config file")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initDBCmd)
}

func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	return cfg, logger, nil
}

func newLLM(cfg config.Config, logger *slog.Logger) (tweetrivia.LLM, error) {
	params := llm.Parameters{}

	switch cfg.LLMProvider {
	case "openai":
		return llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.Model, params, logger), nil
	case "openai-compat":
		return llm.NewOpenAICompat(cfg.LLMHost, cfg.OpenAIAPIKey, cfg.Model, params, logger), nil
	case "ollama":
		return llm.NewOllama(cfg.LLMHost, cfg.Model, params, logger), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
