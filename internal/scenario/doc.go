// Package scenario implements the temporal graph state machine of an
// interactive timeline.
//
// A Scenario is a graph of TimeSyncs (synchronization points) whose
// TimeEvents are joined by TimeIntervals. The package decides which
// intervals run, which syncs are waiting to fire, and how resets propagate
// through a connected component when a branch is abandoned.
//
// ARCHITECTURE:
//
// Single control context:
// Every mutation (add/remove, Start/Stop/Pause/Resume, component resets) and
// every tick-time query runs on one goroutine. Nothing here blocks, performs
// I/O or logs. Independent scenarios share no state and may run on separate
// goroutines.
//
// Handles, not owners:
// Derived sets (running, waiting, roots, pending, ...) store SyncID,
// IntervalID and EventID handles. The Scenario owns the TimeSyncs and
// TimeIntervals; events are owned by their sync.
//
// Collaborators:
// Trigger evaluation and time accounting live outside this package. The tick
// driver talks to a Scenario through RequestStartInterval/RequestStopInterval,
// StartInterval/StopInterval, TimeEvent.SetStatus and the component reset
// operations.
package scenario
