// Package pebble stores the ticker snapshot in an embedded Pebble database.
package pebble

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"top-tickers/internal/domain"
	"top-tickers/internal/storage"
)

const backend = "pebble"

var (
	keyPrefix = []byte("ticker/")
	keyUpper  = []byte("ticker/~")
)

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// SnapshotStore keeps one key per ranked position under the ticker/ prefix.
// ReplaceAll commits a single batch holding a range delete and the new rows,
// and readers iterate a consistent point-in-time view.
type SnapshotStore struct {
	db *pebble.DB
}

// Open opens (or creates) a Pebble database in dir.
func Open(dir string) (*SnapshotStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		DisableWAL: false,
	})
	if err != nil {
		return nil, fmt.Errorf("open pebble %s: %w", dir, err)
	}
	return &SnapshotStore{db: db}, nil
}

// Close closes the database.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// ReplaceAll atomically replaces the snapshot. Fails entire batch on any duplicate.
func (s *SnapshotStore) ReplaceAll(ctx context.Context, tickers []domain.Ticker) error {
	if err := ctx.Err(); err != nil {
		return storage.Wrap(backend, storage.OpReplaceAll, err)
	}
	if err := storage.CheckUnique(tickers); err != nil {
		return storage.Wrap(backend, storage.OpReplaceAll, err)
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	if err := batch.DeleteRange(keyPrefix, keyUpper, nil); err != nil {
		return storage.Wrap(backend, storage.OpReplaceAll, fmt.Errorf("clear snapshot: %w", err))
	}
	for i, t := range tickers {
		value, err := json.Marshal(t)
		if err != nil {
			return storage.Wrap(backend, storage.OpReplaceAll, fmt.Errorf("encode %s: %w", t.Name, err))
		}
		if err := batch.Set(keyFor(i), value, nil); err != nil {
			return storage.Wrap(backend, storage.OpReplaceAll, fmt.Errorf("stage %s: %w", t.Name, err))
		}
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return storage.Wrap(backend, storage.OpReplaceAll, fmt.Errorf("commit: %w", err))
	}
	return nil
}

// ReadAll returns the snapshot in position order.
func (s *SnapshotStore) ReadAll(ctx context.Context) ([]domain.Ticker, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.Wrap(backend, storage.OpReadAll, err)
	}

	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: keyPrefix,
		UpperBound: keyUpper,
	})
	if err != nil {
		return nil, storage.Wrap(backend, storage.OpReadAll, err)
	}
	defer iter.Close()

	tickers := make([]domain.Ticker, 0)
	for iter.First(); iter.Valid(); iter.Next() {
		var t domain.Ticker
		if err := json.Unmarshal(iter.Value(), &t); err != nil {
			return nil, storage.Wrap(backend, storage.OpReadAll, fmt.Errorf("decode %s: %w", iter.Key(), err))
		}
		tickers = append(tickers, t)
	}
	if err := iter.Error(); err != nil {
		return nil, storage.Wrap(backend, storage.OpReadAll, err)
	}

	return tickers, nil
}

func keyFor(position int) []byte {
	return []byte(fmt.Sprintf("ticker/%06d", position))
}
