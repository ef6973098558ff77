package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/christopherklint97/planr/internal/ratelimit"
	"github.com/christopherklint97/planr/internal/server"
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stdout)

	if cfg.AI.Provider == "openai" && cfg.AI.APIKey == "" {
		logger.Warn("OPENAI_API_KEY is not set; planning requests will fail until it is configured")
	}

	limiter := ratelimit.NewSlidingWindow(cfg.RateLimit.Window(), cfg.RateLimit.MaxRequests)
	sweeper, err := ratelimit.NewSweeper(limiter, cfg.RateLimit.SweepInterval(), logger)
	if err != nil {
		return err
	}
	sweeper.Start()
	defer sweeper.Stop()

	srv := server.New(cfg, newAIProvider(cfg, logger), limiter, logger)

	ctx, cancel := signalContext()
	defer cancel()

	return srv.Run(ctx, fmt.Sprintf(":%d", cfg.Server.Port))
}
