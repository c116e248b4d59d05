package orchestrator

import (
	"context"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counter() (*atomic.Int32, func(context.Context)) {
	var n atomic.Int32
	return &n, func(context.Context) { n.Add(1) }
}

func TestOnce(t *testing.T) {
	n, fire := counter()
	require.NoError(t, Once().Run(context.Background(), fire))
	assert.Equal(t, int32(1), n.Load())
}

func TestOnce_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, fire := counter()
	assert.ErrorIs(t, Once().Run(ctx, fire), context.Canceled)
	assert.Zero(t, n.Load())
}

func TestInterval(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()

	n, fire := counter()
	err := Interval(10*time.Millisecond).Run(ctx, fire)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, n.Load(), int32(2))
}

func TestInterval_FiresImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var n atomic.Int32
	err := Interval(time.Hour).Run(ctx, func(context.Context) {
		n.Add(1)
		cancel()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), n.Load())
}

func TestInterval_RejectsNonPositive(t *testing.T) {
	_, fire := counter()
	assert.Error(t, Interval(0).Run(context.Background(), fire))
}

func TestFromChannel(t *testing.T) {
	ch := make(chan struct{}, 3)
	ch <- struct{}{}
	ch <- struct{}{}
	ch <- struct{}{}
	close(ch)

	n, fire := counter()
	require.NoError(t, fromChannel(ch).Run(context.Background(), fire))
	assert.Equal(t, int32(3), n.Load())
}

func TestSignal_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	n, fire := counter()
	err := Signal(syscall.SIGUSR2).Run(ctx, fire)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, n.Load())
}

func TestMulti(t *testing.T) {
	ch := make(chan struct{}, 1)
	ch <- struct{}{}
	close(ch)

	n, fire := counter()
	require.NoError(t, Multi(Once(), fromChannel(ch)).Run(context.Background(), fire))
	assert.Equal(t, int32(2), n.Load())
}

func TestMulti_ErrorCancelsOthers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, fire := counter()
	start := time.Now()
	err := Multi(Interval(0), Interval(time.Hour)).Run(ctx, fire)
	require.Error(t, err)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}
