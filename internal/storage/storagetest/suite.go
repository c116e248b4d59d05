// Package storagetest provides a behavioural test suite shared by every
// storage.SnapshotStore implementation.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"top-tickers/internal/domain"
	"top-tickers/internal/storage"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) storage.SnapshotStore

// Tickers builds n distinct tickers named prefix-00..prefix-(n-1) with descending volume.
func Tickers(prefix string, n int) []domain.Ticker {
	out := make([]domain.Ticker, n)
	for i := 0; i < n; i++ {
		out[i] = domain.Ticker{
			Name:     fmt.Sprintf("%s-%02d", prefix, i),
			Last:     decimal.RequireFromString("101.25"),
			Buy:      decimal.RequireFromString("101.2"),
			Sell:     decimal.RequireFromString("101.3"),
			Volume:   decimal.NewFromInt(int64(1000 - i)),
			BaseUnit: prefix,
		}
	}
	return out
}

// AssertTickers checks that got holds the same tickers as want, in order.
func AssertTickers(t *testing.T, want, got []domain.Ticker) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, want[i].Equal(got[i]), "index %d: want %+v, got %+v", i, want[i], got[i])
	}
}

// Run executes the shared suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("EmptyStoreReadsEmpty", func(t *testing.T) {
		store := newStore(t)
		got, err := store.ReadAll(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("ReplaceThenReadKeepsOrder", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		want := Tickers("btc", 10)

		require.NoError(t, store.ReplaceAll(ctx, want))

		got, err := store.ReadAll(ctx)
		require.NoError(t, err)
		AssertTickers(t, want, got)
	})

	t.Run("ReplaceIsIdempotent", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		want := Tickers("eth", 5)

		require.NoError(t, store.ReplaceAll(ctx, want))
		got, err := store.ReadAll(ctx)
		require.NoError(t, err)
		AssertTickers(t, want, got)

		require.NoError(t, store.ReplaceAll(ctx, want))
		got, err = store.ReadAll(ctx)
		require.NoError(t, err)
		AssertTickers(t, want, got)
	})

	t.Run("ReplaceSupersedesWholeSnapshot", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.ReplaceAll(ctx, Tickers("old", 10)))
		want := Tickers("new", 3)
		require.NoError(t, store.ReplaceAll(ctx, want))

		got, err := store.ReadAll(ctx)
		require.NoError(t, err)
		AssertTickers(t, want, got)
	})

	t.Run("ReplaceWithEmptyClears", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.ReplaceAll(ctx, Tickers("old", 4)))
		require.NoError(t, store.ReplaceAll(ctx, []domain.Ticker{}))

		got, err := store.ReadAll(ctx)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("DuplicateNamesRejected", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		before := Tickers("keep", 2)
		require.NoError(t, store.ReplaceAll(ctx, before))

		dup := Tickers("dup", 3)
		dup[2].Name = dup[0].Name

		err := store.ReplaceAll(ctx, dup)
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)

		got, err := store.ReadAll(ctx)
		require.NoError(t, err)
		AssertTickers(t, before, got)
	})

	t.Run("PreservesDecimalValues", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		want := []domain.Ticker{{
			Name:     "SHIB/INR",
			Last:     decimal.RequireFromString("0.000812"),
			Buy:      decimal.RequireFromString("0.0008"),
			Sell:     decimal.RequireFromString("0.000825"),
			Volume:   decimal.RequireFromString("98765432109.5"),
			BaseUnit: "shib",
		}}

		require.NoError(t, store.ReplaceAll(ctx, want))
		got, err := store.ReadAll(ctx)
		require.NoError(t, err)
		AssertTickers(t, want, got)
	})

	t.Run("ConcurrentReadersSeeWholeSnapshots", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		snapA := Tickers("a", 10)
		snapB := Tickers("b", 4)
		require.NoError(t, store.ReplaceAll(ctx, snapA))

		var (
			stop  atomic.Bool
			wg    sync.WaitGroup
			reads atomic.Int64
			mixed atomic.Int64
		)

		for r := 0; r < 4; r++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for !stop.Load() {
					got, err := store.ReadAll(ctx)
					if err != nil {
						t.Errorf("read: %v", err)
						return
					}
					reads.Add(1)
					if !isWhole(got, snapA) && !isWhole(got, snapB) {
						mixed.Add(1)
					}
				}
			}()
		}

		for i := 0; i < 20; i++ {
			snap := snapA
			if i%2 == 0 {
				snap = snapB
			}
			require.NoError(t, store.ReplaceAll(ctx, snap))
		}
		time.Sleep(10 * time.Millisecond)
		stop.Store(true)
		wg.Wait()

		assert.Positive(t, reads.Load())
		assert.Zero(t, mixed.Load(), "readers observed partial snapshots")
	})

	t.Run("ConcurrentWritersSerialize", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		snaps := [][]domain.Ticker{Tickers("w1", 6), Tickers("w2", 8), Tickers("w3", 3)}

		var wg sync.WaitGroup
		for _, snap := range snaps {
			wg.Add(1)
			go func(snap []domain.Ticker) {
				defer wg.Done()
				for i := 0; i < 5; i++ {
					if err := store.ReplaceAll(ctx, snap); err != nil {
						t.Errorf("replace: %v", err)
						return
					}
				}
			}(snap)
		}
		wg.Wait()

		got, err := store.ReadAll(ctx)
		require.NoError(t, err)

		matched := false
		for _, snap := range snaps {
			if isWhole(got, snap) {
				matched = true
			}
		}
		assert.True(t, matched, "final snapshot is not one of the written snapshots: %d rows", len(got))
	})
}

func isWhole(got, want []domain.Ticker) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if !want[i].Equal(got[i]) {
			return false
		}
	}
	return true
}
