// Package query serves the stored snapshot to readers.
package query

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"top-tickers/internal/domain"
	"top-tickers/internal/logging"
	"top-tickers/internal/storage"
)

// ServiceError reports a failed snapshot read.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("query %s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Service reads the current snapshot. It never triggers or waits for a refresh.
type Service struct {
	store  storage.SnapshotStore
	logger *zap.Logger
}

// New creates a new Service.
func New(store storage.SnapshotStore, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logging.OrNop(logger).Named("query")}
}

// GetSnapshot returns the stored tickers in ranked order; an empty store yields an empty slice.
func (s *Service) GetSnapshot(ctx context.Context) ([]domain.Ticker, error) {
	tickers, err := s.store.ReadAll(ctx)
	if err != nil {
		s.logger.Error("read snapshot", zap.Error(err))
		return nil, &ServiceError{Op: "get_snapshot", Err: err}
	}
	if tickers == nil {
		tickers = []domain.Ticker{}
	}
	return tickers, nil
}
