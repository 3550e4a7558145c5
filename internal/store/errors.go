package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = errors.New("not found")

// ConflictError reports a write that collides with different stored content
// under the same key.
type ConflictError struct {
	Table  string
	Key    string
	Stored string
	Given  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting %s record %s: stored %s, given %s", e.Table, e.Key, e.Stored, e.Given)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
