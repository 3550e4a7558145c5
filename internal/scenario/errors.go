package scenario

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes scenario execution errors.
type ErrorCode string

const (
	// ErrCodeInconsistentStatus: an interval's endpoint statuses form a
	// combination Start cannot interpret.
	ErrCodeInconsistentStatus ErrorCode = "INCONSISTENT_STATUS"

	// ErrCodeInvalidTransition: a TimeEvent status move outside its lifecycle.
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"

	// ErrCodeInvalidRatio: a quantized request ratio outside [0,1].
	ErrCodeInvalidRatio ErrorCode = "INVALID_RATIO"

	// ErrCodeReentrantWalk: a graph walk was started from inside another one.
	ErrCodeReentrantWalk ErrorCode = "REENTRANT_WALK"

	// ErrCodeStartSyncRemoval: the scenario's start sync cannot be removed.
	ErrCodeStartSyncRemoval ErrorCode = "START_SYNC_REMOVAL"

	// ErrCodeUnknownEntity: a sync, event or interval is not part of the scenario.
	ErrCodeUnknownEntity ErrorCode = "UNKNOWN_ENTITY"

	// ErrCodeDuplicateID: a different entity with the same handle is already present.
	ErrCodeDuplicateID ErrorCode = "DUPLICATE_ID"
)

// ExecutionError is returned by scenario operations that cannot proceed.
// Only the fields relevant to Code are set.
type ExecutionError struct {
	Code     ErrorCode
	Message  string
	Interval IntervalID
	Sync     SyncID
	Event    EventID

	// Start and End carry the offending statuses: the interval endpoints for
	// ErrCodeInconsistentStatus, from/to for ErrCodeInvalidTransition.
	Start Status
	End   Status
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	switch {
	case e.Code == ErrCodeInconsistentStatus:
		return fmt.Sprintf("%s: %s (interval=%s, start=%s, end=%s)", e.Code, e.Message, e.Interval, e.Start, e.End)
	case e.Interval != "":
		return fmt.Sprintf("%s: %s (interval=%s)", e.Code, e.Message, e.Interval)
	case e.Sync != "":
		return fmt.Sprintf("%s: %s (sync=%s)", e.Code, e.Message, e.Sync)
	case e.Event != "":
		return fmt.Sprintf("%s: %s (event=%s)", e.Code, e.Message, e.Event)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInconsistentStatus reports whether err is (or wraps) a Start consistency error.
func IsInconsistentStatus(err error) bool {
	return hasCode(err, ErrCodeInconsistentStatus)
}

// IsReentrantWalk reports whether err is (or wraps) a nested graph walk error.
func IsReentrantWalk(err error) bool {
	return hasCode(err, ErrCodeReentrantWalk)
}

// CodeOf extracts the ErrorCode from err, or "" if err is not an ExecutionError.
func CodeOf(err error) ErrorCode {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

func hasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

func unknownSync(id SyncID) *ExecutionError {
	return &ExecutionError{Code: ErrCodeUnknownEntity, Message: "sync is not part of the scenario", Sync: id}
}

func unknownInterval(id IntervalID) *ExecutionError {
	return &ExecutionError{Code: ErrCodeUnknownEntity, Message: "interval is not part of the scenario", Interval: id}
}
