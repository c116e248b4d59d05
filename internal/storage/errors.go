package storage

import (
	"errors"
	"fmt"

	"top-tickers/internal/domain"
)

// Storage errors.
var (
	// ErrDuplicateKey is returned when a snapshot contains the same ticker name twice.
	ErrDuplicateKey = errors.New("duplicate key: ticker name must be unique within a snapshot")

	// ErrUnavailable is returned when the backing store cannot be reached.
	ErrUnavailable = errors.New("store unavailable")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)

// Operation names used in StoreError and metrics.
const (
	OpReplaceAll = "replace_all"
	OpReadAll    = "read_all"
)

// StoreError reports a failed store operation.
type StoreError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s store %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Wrap returns err as a *StoreError, or nil if err is nil.
func Wrap(backend, op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Backend: backend, Op: op, Err: err}
}

// CheckUnique returns ErrDuplicateKey if any two tickers share a name.
func CheckUnique(tickers []domain.Ticker) error {
	seen := make(map[string]struct{}, len(tickers))
	for _, t := range tickers {
		if t.Name == "" {
			return fmt.Errorf("empty ticker name: %w", ErrInvalidInput)
		}
		if _, exists := seen[t.Name]; exists {
			return fmt.Errorf("%q: %w", t.Name, ErrDuplicateKey)
		}
		seen[t.Name] = struct{}{}
	}
	return nil
}
