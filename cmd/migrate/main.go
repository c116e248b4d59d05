// Package main applies the embedded schema to the configured SQL store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"top-tickers/internal/config"
	"top-tickers/internal/logging"
	chstore "top-tickers/internal/storage/clickhouse"
	pgstore "top-tickers/internal/storage/postgres"
)

func main() {
	timeout := flag.Duration("timeout", time.Minute, "Deadline for applying migrations")
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

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := migrate(ctx, cfg); err != nil {
		logger.Fatal("migration failed", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	logger.Info("migrations applied", zap.String("driver", cfg.Store.Driver))
}

func migrate(ctx context.Context, cfg *config.Config) error {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.DB.ConnString())
		if err != nil {
			return err
		}
		defer pool.Close()
		return pool.Migrate(ctx)

	case config.DriverClickhouse:
		conn, err := chstore.NewConn(ctx, cfg.Clickhouse.DSN)
		if err != nil {
			return err
		}
		defer conn.Close()
		return conn.Migrate(ctx)

	default:
		return fmt.Errorf("store driver %q has no schema to migrate", cfg.Store.Driver)
	}
}
