package orchestrator

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"
)

// ErrCycleInProgress is returned by Refresh when another cycle is still running.
var ErrCycleInProgress = errors.New("refresh cycle already in progress")

// Stage names the step of a cycle that failed.
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageRank    Stage = "rank"
	StageReplace Stage = "replace"
)

// CycleError describes a failed refresh cycle. The store is left untouched.
type CycleError struct {
	CycleID   string
	Stage     Stage
	Cause     error
	Timestamp time.Time
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("refresh cycle %s failed at %s: %v", e.CycleID, e.Stage, e.Cause)
}

func (e *CycleError) Unwrap() error {
	return e.Cause
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (e *CycleError) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("cycle_id", e.CycleID)
	enc.AddString("stage", string(e.Stage))
	enc.AddTime("timestamp", e.Timestamp)
	if e.Cause != nil {
		enc.AddString("cause", e.Cause.Error())
	}
	return nil
}
