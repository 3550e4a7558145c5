package metrics

import "time"

// NoopSink is a no-op implementation of Sink.
// Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) CommandApplied(kind string, err error)             {}
func (n *NoopSink) TickCompleted(running int, duration time.Duration) {}
func (n *NoopSink) ComponentReset(syncs, intervals int)               {}
func (n *NoopSink) StartFailed()                                      {}
