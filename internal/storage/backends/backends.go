// Package backends opens the configured snapshot store.
package backends

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"top-tickers/internal/config"
	"top-tickers/internal/logging"
	"top-tickers/internal/storage"
	chstore "top-tickers/internal/storage/clickhouse"
	"top-tickers/internal/storage/memory"
	pebblestore "top-tickers/internal/storage/pebble"
	pgstore "top-tickers/internal/storage/postgres"
	redisstore "top-tickers/internal/storage/redis"
)

// Open creates the store selected by cfg.Store.Driver, wrapped with metrics.
// The returned cleanup releases the backend's resources and is never nil.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.SnapshotStore, func(), error) {
	driver := cfg.Store.Driver
	logger = logging.OrNop(logger).With(zap.String("driver", driver))

	store, cleanup, err := open(ctx, cfg, logger)
	if err != nil {
		return nil, func() {}, fmt.Errorf("open %s store: %w", driver, err)
	}

	logger.Info("snapshot store ready")
	return storage.WithMetrics(driver, store), cleanup, nil
}

func open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.SnapshotStore, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		return memory.NewSnapshotStore(), func() {}, nil

	case config.DriverPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.DB.ConnString(), pgstore.PoolOptions{
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			return nil, nil, err
		}
		if cfg.Store.Migrate {
			if err := pool.Migrate(ctx); err != nil {
				pool.Close()
				return nil, nil, err
			}
			logger.Info("postgres migrations applied")
		}
		return pgstore.NewSnapshotStore(pool), pool.Close, nil

	case config.DriverRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w: %w", storage.ErrUnavailable, err)
		}
		store := redisstore.NewSnapshotStore(client, cfg.Redis.Key)
		return store, closer(logger, "redis", store.Close), nil

	case config.DriverPebble:
		store, err := pebblestore.Open(cfg.Pebble.Dir)
		if err != nil {
			return nil, nil, err
		}
		return store, closer(logger, "pebble", store.Close), nil

	case config.DriverClickhouse:
		conn, err := chstore.NewConn(ctx, cfg.Clickhouse.DSN)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Store.Migrate {
			if err := conn.Migrate(ctx); err != nil {
				conn.Close()
				return nil, nil, err
			}
			logger.Info("clickhouse migrations applied")
		}
		return chstore.NewSnapshotStore(conn), closer(logger, "clickhouse", conn.Close), nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func closer(logger *zap.Logger, name string, closeFn func() error) func() {
	return func() {
		if err := closeFn(); err != nil {
			logger.Warn("close store", zap.String("backend", name), zap.Error(err))
		}
	}
}
