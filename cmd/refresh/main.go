// Package main runs a single refresh cycle and exits.
// Exit code is 0 when the snapshot was replaced and 1 otherwise, for use from cron.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"top-tickers/internal/config"
	"top-tickers/internal/logging"
	"top-tickers/internal/orchestrator"
	"top-tickers/internal/source"
	"top-tickers/internal/storage/backends"
)

func main() {
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall deadline for the cycle")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("refresh failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, cleanup, err := backends.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	orch := orchestrator.New(orchestrator.Options{
		Source: source.NewClient(cfg.Source.URL, source.WithTimeout(cfg.Source.Timeout)),
		Store:  store,
		Limit:  cfg.Refresh.Limit,
		Logger: logger,
		Retry:  orchestrator.RetryPolicy{MaxRetries: cfg.Refresh.MaxRetries},
	})

	result, err := orch.Refresh(ctx)
	if err != nil {
		return err
	}

	logger.Info("snapshot replaced",
		zap.String("cycle_id", result.CycleID),
		zap.Int("stored", result.Stored),
	)
	return nil
}
