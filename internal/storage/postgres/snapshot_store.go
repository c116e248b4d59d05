package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"top-tickers/internal/domain"
	"top-tickers/internal/storage"
)

const backend = "postgres"

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
//
// ReplaceAll runs in a single transaction that first takes an EXCLUSIVE
// table lock. The lock serializes writers while plain SELECTs (ACCESS SHARE)
// continue against the last committed snapshot under MVCC.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// ReplaceAll atomically replaces the stored snapshot. Fails entire batch on any duplicate.
func (s *SnapshotStore) ReplaceAll(ctx context.Context, tickers []domain.Ticker) error {
	if err := storage.CheckUnique(tickers); err != nil {
		return storage.Wrap(backend, storage.OpReplaceAll, err)
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `LOCK TABLE tickers IN EXCLUSIVE MODE`); err != nil {
			return classify("lock tickers", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM tickers`); err != nil {
			return classify("clear tickers", err)
		}
		if len(tickers) == 0 {
			return nil
		}

		query := `
			INSERT INTO tickers (
				name, position, last, buy, sell, volume, base_unit
			) VALUES ($1, $2, $3::text::numeric, $4::text::numeric, $5::text::numeric, $6::text::numeric, $7)
		`

		batch := &pgx.Batch{}
		for i, t := range tickers {
			batch.Queue(query,
				t.Name,
				i,
				t.Last.String(),
				t.Buy.String(),
				t.Sell.String(),
				t.Volume.String(),
				t.BaseUnit,
			)
		}

		results := tx.SendBatch(ctx, batch)
		for range tickers {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return classify("insert ticker", err)
			}
		}
		if err := results.Close(); err != nil {
			return classify("close batch", err)
		}
		return nil
	})
	if err != nil {
		return storage.Wrap(backend, storage.OpReplaceAll, err)
	}

	return nil
}

// ReadAll retrieves the snapshot ordered by rank position.
func (s *SnapshotStore) ReadAll(ctx context.Context) ([]domain.Ticker, error) {
	query := `
		SELECT name, last::text, buy::text, sell::text, volume::text, base_unit
		FROM tickers
		ORDER BY position ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, storage.Wrap(backend, storage.OpReadAll, classify("query tickers", err))
	}
	defer rows.Close()

	tickers, err := scanTickers(rows)
	if err != nil {
		return nil, storage.Wrap(backend, storage.OpReadAll, err)
	}
	return tickers, nil
}

// scanTickers scans multiple rows into a slice of Ticker.
func scanTickers(rows pgx.Rows) ([]domain.Ticker, error) {
	tickers := make([]domain.Ticker, 0)

	for rows.Next() {
		var (
			t                       domain.Ticker
			last, buy, sell, volume string
		)

		err := rows.Scan(
			&t.Name,
			&last,
			&buy,
			&sell,
			&volume,
			&t.BaseUnit,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ticker row: %w", err)
		}

		if t.Last, err = decimal.NewFromString(last); err != nil {
			return nil, fmt.Errorf("parse last for %s: %w", t.Name, err)
		}
		if t.Buy, err = decimal.NewFromString(buy); err != nil {
			return nil, fmt.Errorf("parse buy for %s: %w", t.Name, err)
		}
		if t.Sell, err = decimal.NewFromString(sell); err != nil {
			return nil, fmt.Errorf("parse sell for %s: %w", t.Name, err)
		}
		if t.Volume, err = decimal.NewFromString(volume); err != nil {
			return nil, fmt.Errorf("parse volume for %s: %w", t.Name, err)
		}

		tickers = append(tickers, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ticker rows: %w", classify("read rows", err))
	}

	return tickers, nil
}
