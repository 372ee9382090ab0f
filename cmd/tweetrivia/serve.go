package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	tweetrivia "github.com/tweetrivia/tweetrivia"
	"github.com/tweetrivia/tweetrivia/config"
	"github.com/tweetrivia/tweetrivia/ipfs"
	"github.com/tweetrivia/tweetrivia/server"
	"github.com/tweetrivia/tweetrivia/storage"
	"github.com/tweetrivia/tweetrivia/twitter"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the trivia-game HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.ValidateServe(); err != nil {
			return err
		}

		chat, err := newLLM(cfg, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, err := storage.NewPostgres(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.InitSchema(ctx); err != nil {
			return err
		}

		deps := server.Deps{
			Store:   store,
			Fetcher: twitter.NewClient(cfg.TwitterBearerToken, logger),
			LLM:     chat,

			GenerateConfig: generateConfig(cfg),
			StageSize:      cfg.StageSize,
			CacheTTL:       cfg.PostCacheTTL,

			Logger: logger,
		}

		if cfg.PinataAPIKey != "" {
			deps.Pinner = ipfs.NewPinata(cfg.PinataAPIKey, logger)
		} else {
			logger.Warn("No Pinata API key configured, question sets will not be pinned")
		}

		if cfg.RedisAddr != "" {
			cache, err := storage.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
			if err != nil {
				return err
			}
			deps.Cache = cache
		}

		srv := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           server.New(deps).Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, ctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			logger.Info("Listening", "addr", cfg.ListenAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

func generateConfig(cfg config.Config) tweetrivia.GenerateConfig {
	genCfg := tweetrivia.DefaultGenerateConfig()
	if cfg.NumQuestions > 0 {
		genCfg.NumQuestions = cfg.NumQuestions
	}
	return genCfg
}
