package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"top-tickers/internal/storage"
	"top-tickers/internal/storage/storagetest"
)

func TestSnapshotStore(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	storagetest.Run(t, func(t *testing.T) storage.SnapshotStore {
		truncate(t, pool)
		return NewSnapshotStore(pool)
	})
}

func TestSnapshotStore_MigrateIsIdempotent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, pool.Migrate(context.Background()))
}

func TestSnapshotStore_WritesPositions(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSnapshotStore(pool)
	want := storagetest.Tickers("pos", 3)
	require.NoError(t, store.ReplaceAll(ctx, want))

	rows, err := pool.Query(ctx, `SELECT name, position FROM tickers ORDER BY position`)
	require.NoError(t, err)
	defer rows.Close()

	i := 0
	for rows.Next() {
		var (
			name     string
			position int
		)
		require.NoError(t, rows.Scan(&name, &position))
		assert.Equal(t, want[i].Name, name)
		assert.Equal(t, i, position)
		i++
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, len(want), i)
}

func TestSnapshotStore_ClosedPoolReportsError(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	cleanup()

	store := NewSnapshotStore(pool)
	_, err := store.ReadAll(context.Background())
	require.Error(t, err)

	var storeErr *storage.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "postgres", storeErr.Backend)
	assert.Equal(t, storage.OpReadAll, storeErr.Op)
}
