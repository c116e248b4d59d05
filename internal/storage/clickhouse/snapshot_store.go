package clickhouse

import (
	"context"
	"fmt"
	"sync"

	"top-tickers/internal/domain"
	"top-tickers/internal/storage"
)

const backend = "clickhouse"

// SnapshotStore implements storage.SnapshotStore using ClickHouse.
//
// Writes fill tickers_staging and then swap it with tickers via
// EXCHANGE TABLES, which is atomic on Atomic databases. Writers are
// serialized by an in-process mutex, so only one process may write.
type SnapshotStore struct {
	conn *Conn
	mu   sync.Mutex
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// ReplaceAll atomically replaces the snapshot. Fails entire batch on any duplicate.
func (s *SnapshotStore) ReplaceAll(ctx context.Context, tickers []domain.Ticker) error {
	if err := storage.CheckUnique(tickers); err != nil {
		return storage.Wrap(backend, storage.OpReplaceAll, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.Exec(ctx, `TRUNCATE TABLE IF EXISTS tickers_staging`); err != nil {
		return storage.Wrap(backend, storage.OpReplaceAll, fmt.Errorf("truncate staging: %w", err))
	}

	if len(tickers) > 0 {
		batch, err := s.conn.PrepareBatch(ctx, `
			INSERT INTO tickers_staging (
				name, position, last, buy, sell, volume, base_unit
			)
		`)
		if err != nil {
			return storage.Wrap(backend, storage.OpReplaceAll, fmt.Errorf("prepare batch: %w", err))
		}

		for i, t := range tickers {
			err = batch.Append(
				t.Name,
				uint32(i),
				t.Last,
				t.Buy,
				t.Sell,
				t.Volume,
				t.BaseUnit,
			)
			if err != nil {
				_ = batch.Abort()
				return storage.Wrap(backend, storage.OpReplaceAll, fmt.Errorf("append to batch: %w", err))
			}
		}

		if err := batch.Send(); err != nil {
			return storage.Wrap(backend, storage.OpReplaceAll, fmt.Errorf("send batch: %w", err))
		}
	}

	if err := s.conn.Exec(ctx, `EXCHANGE TABLES tickers AND tickers_staging`); err != nil {
		return storage.Wrap(backend, storage.OpReplaceAll, fmt.Errorf("exchange tables: %w", err))
	}

	return nil
}

// ReadAll retrieves the snapshot ordered by rank position.
func (s *SnapshotStore) ReadAll(ctx context.Context) ([]domain.Ticker, error) {
	query := `
		SELECT name, last, buy, sell, volume, base_unit
		FROM tickers
		ORDER BY position ASC
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, storage.Wrap(backend, storage.OpReadAll, fmt.Errorf("query tickers: %w", err))
	}
	defer rows.Close()

	tickers := make([]domain.Ticker, 0)
	for rows.Next() {
		var t domain.Ticker
		if err := rows.Scan(&t.Name, &t.Last, &t.Buy, &t.Sell, &t.Volume, &t.BaseUnit); err != nil {
			return nil, storage.Wrap(backend, storage.OpReadAll, fmt.Errorf("scan ticker row: %w", err))
		}
		tickers = append(tickers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Wrap(backend, storage.OpReadAll, fmt.Errorf("iterate ticker rows: %w", err))
	}

	return tickers, nil
}
