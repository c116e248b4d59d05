package pebble

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"top-tickers/internal/storage"
	"top-tickers/internal/storage/storagetest"
)

func openTestStore(t *testing.T, dir string) *SnapshotStore {
	t.Helper()
	store, err := Open(dir)
	require.NoError(t, err)
	return store
}

func TestSnapshotStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.SnapshotStore {
		store := openTestStore(t, t.TempDir())
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func TestSnapshotStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	want := storagetest.Tickers("disk", 4)

	store := openTestStore(t, dir)
	require.NoError(t, store.ReplaceAll(ctx, want))
	require.NoError(t, store.Close())

	reopened := openTestStore(t, dir)
	defer reopened.Close()

	got, err := reopened.ReadAll(ctx)
	require.NoError(t, err)
	storagetest.AssertTickers(t, want, got)
}

func TestSnapshotStore_PositionKeysSortNumerically(t *testing.T) {
	assert.Less(t, string(keyFor(9)), string(keyFor(10)))
	assert.Less(t, string(keyFor(99)), string(keyFor(100)))
	assert.Less(t, string(keyFor(999999)), string(keyUpper))
}

func TestSnapshotStore_CanceledContext(t *testing.T) {
	store := openTestStore(t, t.TempDir())
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.ReplaceAll(ctx, storagetest.Tickers("x", 1)), context.Canceled)
	_, err := store.ReadAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
