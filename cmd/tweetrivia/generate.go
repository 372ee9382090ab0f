package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	tweetrivia "github.com/tweetrivia/tweetrivia"
)

var generateCount int

var generateCmd = &cobra.Command{
	Use:   "generate <file>",
	Short: "Generate a question set from a file of posts and print it as JSON",
	Long: `Generate reads a JSON file holding either a bare array of tweet-like
records or an object of the form {"username": ..., "tweets": [...]},
generates a question set from it, and prints the result to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.ValidateGenerate(); err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}

		username, posts, err := tweetrivia.DecodePosts(data)
		if err != nil {
			return fmt.Errorf("failed to parse input file: %w", err)
		}

		chat, err := newLLM(cfg, logger)
		if err != nil {
			return err
		}

		genCfg := tweetrivia.DefaultGenerateConfig()
		if cfg.NumQuestions > 0 {
			genCfg.NumQuestions = cfg.NumQuestions
		}
		if generateCount > 0 {
			genCfg.NumQuestions = generateCount
		}
		genCfg.Subject = username

		result := tweetrivia.Generate(posts, genCfg, chat, logger)

		encoded, err := json.MarshalIndent(result.Questions, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode questions: %w", err)
		}

		fmt.Println(string(encoded))

		return nil
	},
}

func init() {
	generateCmd.Flags().IntVarP(&generateCount, "count", "n", 0, "number of questions to generate (overrides config)")
}
