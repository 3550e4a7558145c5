package scenario

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of a TimeEvent.
type Status int

const (
	// StatusNone means the event has not been evaluated yet.
	StatusNone Status = iota
	// StatusPending means the owning sync's trigger is being awaited.
	StatusPending
	// StatusHappened means the event fired.
	StatusHappened
	// StatusDisposed means the event was abandoned and will not fire this run.
	StatusDisposed
)

var statusNames = [...]string{"NONE", "PENDING", "HAPPENED", "DISPOSED"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// ParseStatus converts a status name ("NONE", "PENDING", ...) to a Status.
// Lower-case names are accepted.
func ParseStatus(name string) (Status, error) {
	upper := strings.ToUpper(name)
	for i, n := range statusNames {
		if n == upper {
			return Status(i), nil
		}
	}
	return StatusNone, fmt.Errorf("unknown event status %q", name)
}

// EventID identifies a TimeEvent within a scenario.
type EventID string

// TimeEvent is a status holder owned by exactly one TimeSync. It is the
// attachment point for interval edges.
type TimeEvent struct {
	id       EventID
	sync     *TimeSync
	status   Status
	previous []*TimeInterval
	next     []*TimeInterval
}

// ID returns the event handle.
func (e *TimeEvent) ID() EventID { return e.id }

// TimeSync returns the owning sync.
func (e *TimeEvent) TimeSync() *TimeSync { return e.sync }

// Status returns the current status.
func (e *TimeEvent) Status() Status { return e.status }

// PreviousIntervals returns the intervals ending on this event.
func (e *TimeEvent) PreviousIntervals() []*TimeInterval { return e.previous }

// NextIntervals returns the intervals starting from this event.
func (e *TimeEvent) NextIntervals() []*TimeInterval { return e.next }

// SetStatus moves the event forward along NONE → PENDING → HAPPENED, or to
// DISPOSED from PENDING or HAPPENED. Setting the current status again is a
// no-op. Any other move fails with ErrCodeInvalidTransition; Reset is the
// only way back to NONE.
func (e *TimeEvent) SetStatus(next Status) error {
	if next == e.status {
		return nil
	}
	if !validTransition(e.status, next) {
		return &ExecutionError{
			Code:    ErrCodeInvalidTransition,
			Message: fmt.Sprintf("event %s cannot move from %s to %s", e.id, e.status, next),
			Event:   e.id,
			Start:   e.status,
			End:     next,
		}
	}
	e.status = next
	return nil
}

// RestoreStatus sets the status without transition checks. It is meant for
// loading authored or persisted state; Scenario.Start validates the result.
func (e *TimeEvent) RestoreStatus(s Status) {
	e.status = s
}

// Reset forces the status back to NONE. Connected intervals are untouched.
func (e *TimeEvent) Reset() {
	e.status = StatusNone
}

func validTransition(from, to Status) bool {
	switch to {
	case StatusNone:
		return false
	case StatusDisposed:
		return from == StatusPending || from == StatusHappened
	default:
		return from != StatusDisposed && to > from
	}
}

func (e *TimeEvent) attachNext(itv *TimeInterval)     { e.next = append(e.next, itv) }
func (e *TimeEvent) attachPrevious(itv *TimeInterval) { e.previous = append(e.previous, itv) }

func (e *TimeEvent) detach(itv *TimeInterval) {
	e.next = removeInterval(e.next, itv)
	e.previous = removeInterval(e.previous, itv)
}

func removeInterval(list []*TimeInterval, itv *TimeInterval) []*TimeInterval {
	for i, x := range list {
		if x == itv {
			copy(list[i:], list[i+1:])
			list[len(list)-1] = nil
			return list[:len(list)-1]
		}
	}
	return list
}
