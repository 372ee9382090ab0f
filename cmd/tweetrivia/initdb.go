package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/tweetrivia/tweetrivia/config"
	"github.com/tweetrivia/tweetrivia/storage"
)

var initDBCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Create the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.DatabaseURL == "" {
			return &config.Error{Field: "database_url"}
		}

		ctx := context.Background()

		store, err := storage.NewPostgres(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		return store.InitSchema(ctx)
	},
}
