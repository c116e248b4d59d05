// Package redis stores the ticker snapshot as a Redis list of JSON documents.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/redis/go-redis/v9"

	"top-tickers/internal/domain"
	"top-tickers/internal/storage"
)

const backend = "redis"

// DefaultKey is the list key holding the snapshot.
const DefaultKey = "tickers:snapshot"

// Compile-time check to ensure SnapshotStore implements storage.SnapshotStore
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// SnapshotStore keeps the snapshot under a single list key.
// ReplaceAll runs DEL and RPUSH inside MULTI/EXEC so readers see either
// the previous list or the new one.
type SnapshotStore struct {
	client *redis.Client
	key    string
}

// NewSnapshotStore creates a store on client. An empty key means DefaultKey.
func NewSnapshotStore(client *redis.Client, key string) *SnapshotStore {
	if key == "" {
		key = DefaultKey
	}
	return &SnapshotStore{client: client, key: key}
}

// ReplaceAll atomically replaces the snapshot. Fails entire batch on any duplicate.
func (s *SnapshotStore) ReplaceAll(ctx context.Context, tickers []domain.Ticker) error {
	if err := storage.CheckUnique(tickers); err != nil {
		return storage.Wrap(backend, storage.OpReplaceAll, err)
	}

	values := make([]interface{}, len(tickers))
	for i, t := range tickers {
		payload, err := json.Marshal(t)
		if err != nil {
			return storage.Wrap(backend, storage.OpReplaceAll, fmt.Errorf("encode %s: %w", t.Name, err))
		}
		values[i] = payload
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(values) > 0 {
			pipe.RPush(ctx, s.key, values...)
		}
		return nil
	})
	if err != nil {
		return storage.Wrap(backend, storage.OpReplaceAll, classify(err))
	}

	return nil
}

// ReadAll returns the snapshot in stored order.
func (s *SnapshotStore) ReadAll(ctx context.Context) ([]domain.Ticker, error) {
	items, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, storage.Wrap(backend, storage.OpReadAll, classify(err))
	}

	tickers := make([]domain.Ticker, 0, len(items))
	for i, item := range items {
		var t domain.Ticker
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, storage.Wrap(backend, storage.OpReadAll, fmt.Errorf("decode item %d: %w", i, err))
		}
		tickers = append(tickers, t)
	}

	return tickers, nil
}

// Close closes the underlying client.
func (s *SnapshotStore) Close() error {
	return s.client.Close()
}

func classify(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	}
	return err
}
