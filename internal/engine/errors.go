package engine

import (
	"errors"
	"fmt"
)

// CommandErrorCode categorizes command failures detected by the engine
// itself. Failures raised by the scenario keep their scenario.ExecutionError.
type CommandErrorCode string

const (
	// ErrCodeInvalidCommand: the command is malformed for its kind.
	ErrCodeInvalidCommand CommandErrorCode = "INVALID_COMMAND"

	// ErrCodeUnknownTarget: a sync, event or interval handle names nothing
	// in the scenario.
	ErrCodeUnknownTarget CommandErrorCode = "UNKNOWN_TARGET"
)

// CommandError is returned when a command cannot be applied.
type CommandError struct {
	Code    CommandErrorCode
	Message string
	Kind    CommandKind
	Target  string
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s: %s (kind=%s, target=%s)", e.Code, e.Message, e.Kind, e.Target)
	}
	return fmt.Sprintf("%s: %s (kind=%s)", e.Code, e.Message, e.Kind)
}

// IsInvalidCommand reports whether err is (or wraps) a malformed command error.
func IsInvalidCommand(err error) bool {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeInvalidCommand
	}
	return false
}

// IsUnknownTarget reports whether err is (or wraps) an unresolved handle error.
func IsUnknownTarget(err error) bool {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeUnknownTarget
	}
	return false
}

func unknownTarget(kind CommandKind, what, id string) *CommandError {
	return &CommandError{
		Code:    ErrCodeUnknownTarget,
		Message: what + " not found",
		Kind:    kind,
		Target:  id,
	}
}

// SinkError reports a trace record that could not be written.
type SinkError struct {
	Seq int64
	Err error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("write trace record %d: %v", e.Seq, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

// IsSinkError reports whether err is (or wraps) a trace sink failure.
func IsSinkError(err error) bool {
	var se *SinkError
	return errors.As(err, &se)
}
