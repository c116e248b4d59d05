// Package main runs the ticker service:
// - Refresh (background): fetch upstream tickers, rank, replace the stored snapshot
// - HTTP: /api/stocks, /api/tickers, /health, /status, /metrics
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"top-tickers/internal/config"
	"top-tickers/internal/httpapi"
	"top-tickers/internal/logging"
	"top-tickers/internal/orchestrator"
	"top-tickers/internal/query"
	"top-tickers/internal/source"
	"top-tickers/internal/storage/backends"
)

const shutdownGrace = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not configured yet.
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	// Create context with cancellation on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := backends.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	client := source.NewClient(cfg.Source.URL, source.WithTimeout(cfg.Source.Timeout))

	orch := orchestrator.New(orchestrator.Options{
		Source: client,
		Store:  store,
		Limit:  cfg.Refresh.Limit,
		Logger: logger,
		Retry:  orchestrator.RetryPolicy{MaxRetries: cfg.Refresh.MaxRetries},
	})

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: httpapi.NewHandler(httpapi.Options{
			Snapshots: query.New(store, logger),
			Status:    orch,
			StaticDir: cfg.HTTP.StaticDir,
			Logger:    logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	var wg sync.WaitGroup

	// Start the refresh loop. SIGHUP forces an extra cycle.
	wg.Add(1)
	go func() {
		defer wg.Done()
		trigger := orchestrator.Multi(scheduleTrigger(cfg.Refresh.Interval), orchestrator.Signal(syscall.SIGHUP))
		if err := orch.Run(ctx, trigger); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("refresh loop stopped", zap.Error(err))
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server running", zap.String("addr", srv.Addr), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal, initiating graceful shutdown")
	case err := <-serveErr:
		if err != nil {
			stop()
			wg.Wait()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}

	wg.Wait()
	return nil
}

// scheduleTrigger refreshes once at start, or on a fixed interval when one is configured.
func scheduleTrigger(interval time.Duration) orchestrator.Trigger {
	if interval <= 0 {
		return orchestrator.Once()
	}
	return orchestrator.Interval(interval)
}
