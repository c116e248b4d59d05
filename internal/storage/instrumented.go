package storage

import (
	"context"
	"time"

	"top-tickers/internal/domain"
	"top-tickers/internal/observability"
)

// instrumented records duration and error metrics around a SnapshotStore.
type instrumented struct {
	backend string
	next    SnapshotStore
}

// WithMetrics wraps s so every call is recorded under the given backend label.
func WithMetrics(backend string, s SnapshotStore) SnapshotStore {
	return &instrumented{backend: backend, next: s}
}

func (i *instrumented) ReplaceAll(ctx context.Context, tickers []domain.Ticker) error {
	start := time.Now()
	err := i.next.ReplaceAll(ctx, tickers)
	observability.RecordStoreOp(i.backend, OpReplaceAll, time.Since(start).Seconds(), err)
	return Wrap(i.backend, OpReplaceAll, err)
}

func (i *instrumented) ReadAll(ctx context.Context) ([]domain.Ticker, error) {
	start := time.Now()
	tickers, err := i.next.ReadAll(ctx)
	observability.RecordStoreOp(i.backend, OpReadAll, time.Since(start).Seconds(), err)
	if err != nil {
		return nil, Wrap(i.backend, OpReadAll, err)
	}
	return tickers, nil
}
