package storage

import (
	"context"

	"top-tickers/internal/domain"
)

// SnapshotStore holds the ranked ticker snapshot served to readers.
//
// Implementations guarantee that a concurrent ReadAll observes either the
// snapshot before a ReplaceAll or the one after it, never a mix, and that
// concurrent ReplaceAll calls are serialized (last committed wins).
type SnapshotStore interface {
	// ReplaceAll atomically replaces the whole snapshot with tickers, keeping their order.
	// Returns ErrDuplicateKey if two tickers share a name; nothing is written in that case.
	ReplaceAll(ctx context.Context, tickers []domain.Ticker) error

	// ReadAll returns the current snapshot in stored order. An empty store yields an empty slice.
	ReadAll(ctx context.Context) ([]domain.Ticker, error)
}
