package memory

import (
	"context"
	"sync"

	"top-tickers/internal/domain"
	"top-tickers/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
// ReplaceAll swaps in a freshly built slice; readers copy whichever slice is current.
type SnapshotStore struct {
	mu      sync.RWMutex
	tickers []domain.Ticker
}

// NewSnapshotStore creates a new empty in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{tickers: []domain.Ticker{}}
}

// ReplaceAll atomically replaces the snapshot. Fails entire batch on any duplicate.
func (s *SnapshotStore) ReplaceAll(ctx context.Context, tickers []domain.Ticker) error {
	if err := ctx.Err(); err != nil {
		return storage.Wrap("memory", storage.OpReplaceAll, err)
	}
	if err := storage.CheckUnique(tickers); err != nil {
		return storage.Wrap("memory", storage.OpReplaceAll, err)
	}

	next := make([]domain.Ticker, len(tickers))
	copy(next, tickers)

	s.mu.Lock()
	s.tickers = next
	s.mu.Unlock()

	return nil
}

// ReadAll returns a copy of the current snapshot in stored order.
func (s *SnapshotStore) ReadAll(ctx context.Context) ([]domain.Ticker, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.Wrap("memory", storage.OpReadAll, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Ticker, len(s.tickers))
	copy(result, s.tickers)
	return result, nil
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
