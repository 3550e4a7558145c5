package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSink(t *testing.T) (*PrometheusSink, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewPrometheusSink(reg), reg
}

func TestPrometheusSink_CommandApplied(t *testing.T) {
	sink, _ := newTestSink(t)

	sink.CommandApplied("tick", nil)
	sink.CommandApplied("tick", nil)
	sink.CommandApplied("start", errors.New("inconsistent"))

	assert.Equal(t, 2.0, testutil.ToFloat64(sink.commandsTotal.WithLabelValues("tick", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.commandsTotal.WithLabelValues("start", OutcomeError)))
	assert.Equal(t, 0.0, testutil.ToFloat64(sink.commandsTotal.WithLabelValues("start", OutcomeOK)))
}

func TestPrometheusSink_TickCompleted(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.TickCompleted(3, time.Millisecond)
	sink.TickCompleted(1, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(sink.ticksTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.runningIntervals))
	assert.Equal(t, 1, testutil.CollectAndCount(sink.tickDuration))

	count, err := testutil.GatherAndCount(reg, "timeline_tick_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPrometheusSink_ComponentReset(t *testing.T) {
	sink, _ := newTestSink(t)

	sink.ComponentReset(3, 2)
	sink.ComponentReset(1, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(sink.componentResets))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.stoppedIntervals))
}

func TestPrometheusSink_StartFailed(t *testing.T) {
	sink, _ := newTestSink(t)
	sink.StartFailed()
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.startFailuresTotal))
}

func TestPrometheusSink_DuplicateRegistrationDoesNotPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewPrometheusSink(reg)
	second := NewPrometheusSink(reg)

	// The second sink's collectors are unregistered but still usable.
	second.CommandApplied("tick", nil)
	first.CommandApplied("tick", nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(first.commandsTotal.WithLabelValues("tick", OutcomeOK)))
}

func TestNoopSink(t *testing.T) {
	var s Sink = NewNoopSink()
	s.CommandApplied("tick", nil)
	s.TickCompleted(0, 0)
	s.ComponentReset(0, 0)
	s.StartFailed()
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeOK, Outcome(nil))
	assert.Equal(t, OutcomeError, Outcome(errors.New("x")))
}
