// Package orchestrator runs refresh cycles: fetch upstream tickers, rank them,
// and replace the stored snapshot.
// Flow: fetch → rank → replace
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"top-tickers/internal/domain"
	"top-tickers/internal/idhash"
	"top-tickers/internal/logging"
	"top-tickers/internal/observability"
	"top-tickers/internal/ranking"
	"top-tickers/internal/source"
	"top-tickers/internal/storage"
)

// State is the orchestrator's position in the refresh cycle.
type State string

const (
	StateIdle      State = "idle"
	StateFetching  State = "fetching"
	StateRanking   State = "ranking"
	StateReplacing State = "replacing"
	StateFailed    State = "failed"
)

// RetryPolicy controls fetch retries within one cycle.
// MaxRetries of zero means a single attempt.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Options for creating Orchestrator.
type Options struct {
	// Required
	Source source.Fetcher
	Store  storage.SnapshotStore

	// Optional
	Limit  int // snapshot size; defaults to ranking.DefaultLimit
	Logger *zap.Logger
	Retry  RetryPolicy
	Now    func() time.Time
}

// CycleResult summarizes a successful cycle.
type CycleResult struct {
	CycleID      string
	Fetched      int
	Dropped      int
	Stored       int
	SnapshotHash string
	StartedAt    time.Time
	Duration     time.Duration
}

// Status is a point-in-time view of the orchestrator for /status.
// State stays StateFailed after a failed cycle until the next one starts.
type Status struct {
	State        State     `json:"state"`
	LastCycleID  string    `json:"last_cycle_id,omitempty"`
	LastSuccess  time.Time `json:"last_success,omitzero"`
	LastFailure  time.Time `json:"last_failure,omitzero"`
	LastError    string    `json:"last_error,omitempty"`
	SnapshotSize int       `json:"snapshot_size"`
	SnapshotHash string    `json:"snapshot_hash,omitempty"`
	Runs         int       `json:"runs"`
	Failures     int       `json:"failures"`
}

// Orchestrator coordinates refresh cycles. At most one cycle runs at a time.
type Orchestrator struct {
	source source.Fetcher
	store  storage.SnapshotStore
	limit  int
	retry  RetryPolicy
	logger *zap.Logger
	now    func() time.Time

	running atomic.Bool

	mu     sync.Mutex
	status Status
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	limit := opts.Limit
	if limit <= 0 {
		limit = ranking.DefaultLimit
	}
	logger := logging.OrNop(opts.Logger)
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Orchestrator{
		source: opts.Source,
		store:  opts.Store,
		limit:  limit,
		retry:  opts.Retry,
		logger: logger.Named("orchestrator"),
		now:    now,
		status: Status{State: StateIdle},
	}
}

// Refresh runs one cycle. On failure it returns a *CycleError and the
// stored snapshot is unchanged. If a cycle is already running it returns
// ErrCycleInProgress without doing anything.
func (o *Orchestrator) Refresh(ctx context.Context) (*CycleResult, error) {
	if !o.running.CompareAndSwap(false, true) {
		o.logger.Debug("refresh skipped", zap.Error(ErrCycleInProgress))
		return nil, ErrCycleInProgress
	}
	defer o.running.Store(false)

	cycleID := uuid.NewString()
	start := o.now()
	log := o.logger.With(zap.String("cycle_id", cycleID))
	o.begin(cycleID)

	// Phase 1: fetch
	o.setState(StateFetching)
	raw, err := o.fetch(ctx, log)
	if err != nil {
		return nil, o.fail(log, cycleID, StageFetch, err, start)
	}

	// Phase 2: rank
	o.setState(StateRanking)
	ranked := ranking.Rank(raw, o.limit)
	dropped := o.countInvalid(log, raw)
	if err := ctx.Err(); err != nil {
		return nil, o.fail(log, cycleID, StageRank, err, start)
	}

	// Phase 3: replace
	o.setState(StateReplacing)
	if err := o.store.ReplaceAll(ctx, ranked); err != nil {
		return nil, o.fail(log, cycleID, StageReplace, err, start)
	}

	result := &CycleResult{
		CycleID:      cycleID,
		Fetched:      len(raw),
		Dropped:      dropped,
		Stored:       len(ranked),
		SnapshotHash: idhash.ComputeSnapshotHash(ranked),
		StartedAt:    start,
		Duration:     o.now().Sub(start),
	}
	o.succeed(result)

	observability.RecordRefreshCycle("success", "", result.Duration.Seconds())
	observability.RecordSnapshotStored(result.Stored, result.StartedAt.Add(result.Duration))
	observability.RecordDroppedTickers(dropped)

	log.Info("refresh cycle completed",
		zap.Int("fetched", result.Fetched),
		zap.Int("dropped", result.Dropped),
		zap.Int("stored", result.Stored),
		zap.String("snapshot_hash", result.SnapshotHash),
		zap.Duration("duration", result.Duration),
	)

	return result, nil
}

// Run drives cycles from trigger until ctx is done or the trigger is exhausted.
// Failed cycles are logged and never stop the loop.
func (o *Orchestrator) Run(ctx context.Context, trigger Trigger) error {
	o.logger.Info("refresh loop started")
	defer o.logger.Info("refresh loop stopped")

	return trigger.Run(ctx, func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error("refresh cycle panicked", zap.Any("panic", r))
			}
		}()
		// Refresh logs its own failures.
		_, _ = o.Refresh(ctx)
	})
}

// Status returns a copy of the current orchestrator state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// fetch calls the source, retrying retryable failures per the retry policy.
func (o *Orchestrator) fetch(ctx context.Context, log *zap.Logger) (domain.RawTickers, error) {
	if o.retry.MaxRetries <= 0 {
		return o.source.Fetch(ctx)
	}

	b := backoff.NewExponentialBackOff()
	if o.retry.InitialInterval > 0 {
		b.InitialInterval = o.retry.InitialInterval
	}
	if o.retry.MaxInterval > 0 {
		b.MaxInterval = o.retry.MaxInterval
	}
	b.MaxElapsedTime = 0
	b.Reset()
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(o.retry.MaxRetries)), ctx)

	var (
		raw     domain.RawTickers
		attempt int
	)
	operation := func() error {
		attempt++
		result, err := o.source.Fetch(ctx)
		if err == nil {
			raw = result
			return nil
		}
		var fetchErr *source.FetchError
		if ctx.Err() != nil || (errors.As(err, &fetchErr) && !fetchErr.IsRetryable()) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Warn("fetch failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, fmt.Errorf("after %d attempts: %w", attempt, err)
	}
	return raw, nil
}

// countInvalid reports entries the ranker skipped, logging each at debug.
func (o *Orchestrator) countInvalid(log *zap.Logger, raw domain.RawTickers) int {
	dropped := 0
	for _, r := range raw {
		if _, err := ranking.Validate(r); err != nil {
			dropped++
			log.Debug("ticker dropped", zap.String("symbol", r.Symbol), zap.Error(err))
		}
	}
	return dropped
}

func (o *Orchestrator) fail(log *zap.Logger, cycleID string, stage Stage, cause error, start time.Time) error {
	now := o.now()
	cerr := &CycleError{
		CycleID:   cycleID,
		Stage:     stage,
		Cause:     cause,
		Timestamp: now,
	}

	o.mu.Lock()
	o.status.State = StateFailed
	o.status.LastFailure = now
	o.status.LastError = cerr.Error()
	o.status.Failures++
	o.mu.Unlock()

	observability.RecordRefreshCycle("error", string(stage), now.Sub(start).Seconds())
	log.Error("refresh cycle failed", zap.Object("error", cerr))

	return cerr
}

func (o *Orchestrator) begin(cycleID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status.LastCycleID = cycleID
	o.status.Runs++
}

func (o *Orchestrator) succeed(result *CycleResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status.State = StateIdle
	o.status.LastSuccess = result.StartedAt.Add(result.Duration)
	o.status.SnapshotSize = result.Stored
	o.status.SnapshotHash = result.SnapshotHash
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.status.State = s
	o.mu.Unlock()
}
