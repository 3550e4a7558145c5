// Package engine drives a scenario from a stream of control commands.
//
// ARCHITECTURE:
//
// Single-writer loop:
// A Scenario is not safe for concurrent use, so exactly one goroutine, the
// one running Engine.Run, touches it. Other goroutines submit Commands
// through Enqueue. Tests and the harness call Apply directly instead of
// running the loop; the two must not be mixed on one engine.
//
// Command processing:
//  1. A command is dequeued in FIFO order
//  2. It is validated and its handles resolved against the scenario
//  3. The scenario operation runs
//  4. A TraceRecord is stamped with the next Clock seq and the running and
//     waiting snapshots, then written to the TraceSink
//  5. The outcome is reported to the metrics Sink
//
// Failed commands still produce a record, with Error set. Run logs the
// failure and carries on with the next command.
//
// Tick:
// A tick command is the periodic driver call. It applies queued stop
// requests, then queued start requests, clears both queues, advances every
// running interval by the tick delta, marks the end event of every interval
// that reached its maximum, and moves the scenario date forward.
//
// Trigger:
// A trigger fires one event of a sync: the event happens, the intervals
// ending on it stop, the intervals leaving it start, pending sibling events
// are disposed, and an exclusive scenario resets every other live component.
package engine
