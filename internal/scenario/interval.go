package scenario

import (
	"math"
	"time"
)

// Infinite is the sentinel for "no bound" durations and for a scenario that
// has never been ticked.
const Infinite time.Duration = math.MaxInt64

// IntervalID identifies a TimeInterval within a scenario.
type IntervalID string

// Durations bounds how long an interval may run. Max == Infinite means the
// interval waits on its end trigger indefinitely.
type Durations struct {
	Nominal time.Duration
	Min     time.Duration
	Max     time.Duration
}

// TimeInterval is a timed edge between two TimeEvents.
//
// Endpoints are fixed at construction. The interval joins the graph (appears
// in its events' adjacency lists) only once added to a Scenario.
type TimeInterval struct {
	id        IntervalID
	start     *TimeEvent
	end       *TimeEvent
	durations Durations

	running bool
	paused  bool
	muted   bool
	date    time.Duration
}

// NewTimeInterval creates an interval from start to end. start and end may
// belong to the same sync.
func NewTimeInterval(id IntervalID, start, end *TimeEvent, d Durations) *TimeInterval {
	return &TimeInterval{
		id:        id,
		start:     start,
		end:       end,
		durations: d,
	}
}

func (i *TimeInterval) ID() IntervalID         { return i.id }
func (i *TimeInterval) StartEvent() *TimeEvent { return i.start }
func (i *TimeInterval) EndEvent() *TimeEvent   { return i.end }
func (i *TimeInterval) Durations() Durations   { return i.durations }
func (i *TimeInterval) Running() bool          { return i.running }
func (i *TimeInterval) Paused() bool           { return i.paused }
func (i *TimeInterval) Muted() bool            { return i.muted }

// Date returns the progress accrued since Start.
func (i *TimeInterval) Date() time.Duration { return i.date }

// Start marks the interval running and resets its progress. Starting a
// running interval is a no-op.
func (i *TimeInterval) Start() {
	if i.running {
		return
	}
	i.running = true
	i.paused = false
	i.date = 0
}

// Stop clears running and any accrued progress. Safe on a stopped interval.
func (i *TimeInterval) Stop() {
	i.running = false
	i.paused = false
	i.date = 0
}

// Pause suspends progress accounting without clearing it.
func (i *TimeInterval) Pause() { i.paused = true }

// Resume lifts a Pause.
func (i *TimeInterval) Resume() { i.paused = false }

// Mute toggles execution side effects. Time keeps advancing while muted.
func (i *TimeInterval) Mute(m bool) { i.muted = m }

// Advance adds delta to the progress of a running, unpaused interval and
// returns the resulting date.
func (i *TimeInterval) Advance(delta time.Duration) time.Duration {
	if !i.running || i.paused || delta <= 0 {
		return i.date
	}
	if i.date > Infinite-delta {
		i.date = Infinite
	} else {
		i.date += delta
	}
	return i.date
}

// MaxReached reports whether a bounded interval has run to its maximum.
func (i *TimeInterval) MaxReached() bool {
	return i.durations.Max != Infinite && i.date >= i.durations.Max
}

func (i *TimeInterval) attach() {
	i.start.attachNext(i)
	i.end.attachPrevious(i)
}

func (i *TimeInterval) detach() {
	i.start.detach(i)
	i.end.detach(i)
}

// QuantizedRequest asks the tick driver to start or stop an interval at a
// fractional position (Ratio in [0,1]) of the current tick.
type QuantizedRequest struct {
	Interval *TimeInterval
	Ratio    float64
}
