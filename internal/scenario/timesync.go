package scenario

import "fmt"

// SyncID identifies a TimeSync within a scenario.
type SyncID string

// TimeSync groups one or more TimeEvents that share a trigger-evaluation
// context. Several events model OR-triggering: downstream intervals follow
// the specific event they are attached to, not the sync as a whole.
type TimeSync struct {
	id        SyncID
	events    []*TimeEvent
	start     bool
	muted     bool
	triggered bool
}

// NewTimeSync creates a sync owning one event per id in eventIDs. With no
// ids, a single event "<id>/0" is created.
func NewTimeSync(id SyncID, eventIDs ...EventID) *TimeSync {
	s := &TimeSync{id: id}
	if len(eventIDs) == 0 {
		eventIDs = []EventID{EventID(fmt.Sprintf("%s/0", id))}
	}
	for _, eid := range eventIDs {
		s.AddEvent(eid)
	}
	return s
}

func (s *TimeSync) ID() SyncID             { return s.id }
func (s *TimeSync) Events() []*TimeEvent   { return s.events }
func (s *TimeSync) IsStart() bool          { return s.start }
func (s *TimeSync) SetStart(start bool)    { s.start = start }
func (s *TimeSync) Muted() bool            { return s.muted }
func (s *TimeSync) Mute(m bool)            { s.muted = m }
func (s *TimeSync) IsBeingTriggered() bool { return s.triggered }

// SetBeingTriggered is written by the trigger evaluator while it fires the sync.
func (s *TimeSync) SetBeingTriggered(t bool) { s.triggered = t }

// AddEvent appends a new NONE event owned by this sync.
func (s *TimeSync) AddEvent(id EventID) *TimeEvent {
	ev := &TimeEvent{id: id, sync: s}
	s.events = append(s.events, ev)
	return ev
}

// Event returns the owned event with the given id.
func (s *TimeSync) Event(id EventID) (*TimeEvent, bool) {
	for _, ev := range s.events {
		if ev.id == id {
			return ev, true
		}
	}
	return nil, false
}

// Reset sets every owned event back to NONE and clears the trigger flag.
func (s *TimeSync) Reset() {
	for _, ev := range s.events {
		ev.Reset()
	}
	s.triggered = false
}

// hasIncoming reports whether any interval ends on one of the sync's events.
func (s *TimeSync) hasIncoming() bool {
	for _, ev := range s.events {
		if len(ev.previous) > 0 {
			return true
		}
	}
	return false
}

// hasRunningNeighbour reports whether any interval adjacent to the sync runs.
func (s *TimeSync) hasRunningNeighbour() bool {
	for _, ev := range s.events {
		for _, itv := range ev.previous {
			if itv.running {
				return true
			}
		}
		for _, itv := range ev.next {
			if itv.running {
				return true
			}
		}
	}
	return false
}
