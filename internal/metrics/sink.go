// Package metrics records engine activity.
//
// Sinks are fire-and-forget: implementations must not block or return
// errors. When the backend is unavailable they log and carry on.
package metrics

import "time"

// Sink defines the interface for recording metrics.
type Sink interface {
	// CommandApplied counts one applied control command. err is the
	// command's own failure, if any.
	CommandApplied(kind string, err error)

	// TickCompleted records one tick: the running interval count after it
	// and how long applying it took.
	TickCompleted(running int, duration time.Duration)

	// ComponentReset records a component teardown and its size.
	ComponentReset(syncs, intervals int)

	// StartFailed counts scenario starts rejected for inconsistent statuses.
	StartFailed()
}

// Outcome label values for CommandApplied.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Outcome maps a command error to its label value.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
