package metrics

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink with the Prometheus client library.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	commandsTotal       *prometheus.CounterVec
	ticksTotal          prometheus.Counter
	tickDuration        prometheus.Histogram
	runningIntervals    prometheus.Gauge
	componentResets     prometheus.Counter
	componentResetSyncs prometheus.Histogram
	stoppedIntervals    prometheus.Counter
	startFailuresTotal  prometheus.Counter
}

// NewPrometheusSink creates a sink and registers its collectors with reg.
// A collector that fails to register still works; it is just not exported.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timeline_commands_total",
			Help: "Control commands applied, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timeline_ticks_total",
			Help: "Ticks applied to the scenario.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "timeline_tick_duration_seconds",
			Help:    "Wall time spent applying one tick.",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
		}),
		runningIntervals: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timeline_running_intervals",
			Help: "Running intervals after the last tick.",
		}),
		componentResets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timeline_component_resets_total",
			Help: "Components torn down by reset propagation.",
		}),
		componentResetSyncs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "timeline_component_reset_syncs",
			Help:    "Syncs reset per component teardown.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		}),
		stoppedIntervals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timeline_component_reset_intervals_total",
			Help: "Running intervals stopped by component teardowns.",
		}),
		startFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timeline_start_failures_total",
			Help: "Scenario starts rejected for inconsistent event statuses.",
		}),
	}

	s.register(reg, s.commandsTotal, "timeline_commands_total")
	s.register(reg, s.ticksTotal, "timeline_ticks_total")
	s.register(reg, s.tickDuration, "timeline_tick_duration_seconds")
	s.register(reg, s.runningIntervals, "timeline_running_intervals")
	s.register(reg, s.componentResets, "timeline_component_resets_total")
	s.register(reg, s.componentResetSyncs, "timeline_component_reset_syncs")
	s.register(reg, s.stoppedIntervals, "timeline_component_reset_intervals_total")
	s.register(reg, s.startFailuresTotal, "timeline_start_failures_total")
	return s
}

func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		slog.Warn("metrics: failed to register collector", "name", name, "error", err)
	}
}

func (s *PrometheusSink) CommandApplied(kind string, err error) {
	s.commandsTotal.WithLabelValues(kind, Outcome(err)).Inc()
}

func (s *PrometheusSink) TickCompleted(running int, duration time.Duration) {
	s.ticksTotal.Inc()
	s.tickDuration.Observe(duration.Seconds())
	s.runningIntervals.Set(float64(running))
}

func (s *PrometheusSink) ComponentReset(syncs, intervals int) {
	s.componentResets.Inc()
	s.componentResetSyncs.Observe(float64(syncs))
	s.stoppedIntervals.Add(float64(intervals))
}

func (s *PrometheusSink) StartFailed() {
	s.startFailuresTotal.Inc()
}
