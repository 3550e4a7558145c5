package scenario

import (
	"fmt"
	"math"
	"time"
)

// DefaultStartSyncID is the handle of the start sync created by New.
const DefaultStartSyncID SyncID = "start"

// Overtick records how far past a sync's trigger a tick went, so the driver
// can compensate on the next cycle.
type Overtick struct {
	Min time.Duration
	Max time.Duration
}

// Scenario owns the TimeSyncs and TimeIntervals of a timeline and maintains
// the derived sets the tick driver reads every cycle.
//
// INVARIANTS:
//   - nodes[0] is the start sync; IsStart() is true and it is never removed
//   - running ⊆ intervals
//   - roots ⊆ waiting ⊆ nodes
//   - lastDate == Infinite until the driver reports a first tick
//
// A Scenario is not safe for concurrent use.
type Scenario struct {
	nodes     []*TimeSync
	intervals []*TimeInterval
	syncIndex map[SyncID]*TimeSync
	itvIndex  map[IntervalID]*TimeInterval

	running       map[IntervalID]struct{}
	waiting       map[SyncID]struct{}
	roots         []SyncID
	pendingEvents map[EventID]struct{}
	maxReached    map[EventID]struct{}
	overticks     map[SyncID]Overtick
	endNodes      map[SyncID]struct{}
	retrySyncs    map[SyncID]struct{}
	itvEndMap     map[IntervalID]time.Duration
	startRequests []QuantizedRequest
	stopRequests  []QuantizedRequest

	lastDate  time.Duration
	exclusive bool
	muted     bool
	observer  Observer

	// Scratch state for graph walks; reused across calls, not reentrant.
	visitStack []*TimeSync
	visitCache map[SyncID]struct{}
	walking    bool
}

// Option configures a Scenario at construction.
type Option func(*config)

type config struct {
	startID   SyncID
	start     *TimeSync
	observer  Observer
	exclusive bool
}

// WithStartSyncID sets the handle of the start sync (default "start").
func WithStartSyncID(id SyncID) Option {
	return func(c *config) { c.startID = id }
}

// WithStartSync uses ts as the start sync instead of a fresh one, so its
// events can be authored up front. ts is flagged start-capable.
func WithStartSync(ts *TimeSync) Option {
	return func(c *config) { c.start = ts }
}

// WithObserver installs an Observer. nil keeps the NoopObserver.
func WithObserver(o Observer) Option {
	return func(c *config) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithExclusive sets the exclusive flag advertised to the tick driver.
func WithExclusive(excl bool) Option {
	return func(c *config) { c.exclusive = excl }
}

// New creates a scenario holding a single start sync with one NONE event.
func New(opts ...Option) *Scenario {
	cfg := config{startID: DefaultStartSyncID, observer: NoopObserver{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Scenario{
		syncIndex:     make(map[SyncID]*TimeSync),
		itvIndex:      make(map[IntervalID]*TimeInterval),
		running:       make(map[IntervalID]struct{}),
		waiting:       make(map[SyncID]struct{}),
		pendingEvents: make(map[EventID]struct{}),
		maxReached:    make(map[EventID]struct{}),
		overticks:     make(map[SyncID]Overtick),
		endNodes:      make(map[SyncID]struct{}),
		retrySyncs:    make(map[SyncID]struct{}),
		itvEndMap:     make(map[IntervalID]time.Duration),
		visitCache:    make(map[SyncID]struct{}),
		lastDate:      Infinite,
		exclusive:     cfg.exclusive,
		observer:      cfg.observer,
	}

	start := cfg.start
	if start == nil {
		start = NewTimeSync(cfg.startID)
	}
	start.SetStart(true)
	s.nodes = append(s.nodes, start)
	s.syncIndex[start.id] = start

	return s
}

// =============================================================================
// Lifecycle
// =============================================================================

// Start is called once when the scenario goes from idle to running.
//
// Every interval is classified by its (start, end) event statuses before
// anything is mutated; an unhandled combination aborts with an
// ErrCodeInconsistentStatus ExecutionError and leaves the scenario as it was.
// Then the root set is recomputed and seeded into the waiting set, the
// transient trigger flag of every sync is cleared, and intervals whose start
// has happened while their end has not are started.
func (s *Scenario) Start() error {
	toRun := make([]*TimeInterval, 0, len(s.intervals))
	for _, itv := range s.intervals {
		run, err := classify(itv)
		if err != nil {
			return err
		}
		if run {
			toRun = append(toRun, itv)
		}
	}

	s.roots = s.candidateRoots()
	for _, id := range s.roots {
		s.waiting[id] = struct{}{}
	}

	for _, n := range s.nodes {
		n.SetBeingTriggered(false)
	}

	for _, itv := range toRun {
		s.startInterval(itv)
	}
	return nil
}

// classify reports whether an interval must run when the scenario starts.
func classify(itv *TimeInterval) (bool, error) {
	startStatus := itv.start.status
	endStatus := itv.end.status

	switch {
	// in the past
	case startStatus == StatusHappened && endStatus == StatusHappened:
		return false, nil
	// start pending
	case startStatus == StatusPending && endStatus == StatusNone:
		return false, nil
	// supposed to be running
	case startStatus == StatusHappened && endStatus == StatusNone:
		return true, nil
	// starts in the void, ends on a sync that already executed
	case startStatus == StatusNone && endStatus == StatusHappened:
		return false, nil
	// end pending
	case startStatus == StatusHappened && endStatus == StatusPending:
		return true, nil
	// in the future
	case startStatus == StatusNone && endStatus == StatusNone:
		return false, nil
	// started by a false condition
	case startStatus == StatusDisposed && endStatus == StatusDisposed:
		return false, nil
	}

	return false, &ExecutionError{
		Code:     ErrCodeInconsistentStatus,
		Message:  "time event status configuration of the interval is not handled",
		Interval: itv.id,
		Start:    startStatus,
		End:      endStatus,
	}
}

// Stop stops every interval, resets every sync and clears all derived state.
// Afterwards the scenario behaves as if it had never been started.
func (s *Scenario) Stop() {
	for _, itv := range s.intervals {
		_, tracked := s.running[itv.id]
		wasRunning := itv.running || tracked
		itv.Stop()
		if wasRunning {
			s.observer.OnIntervalStopped(itv)
		}
	}

	for _, n := range s.nodes {
		n.Reset()
	}

	clear(s.running)
	s.startRequests = s.startRequests[:0]
	s.stopRequests = s.stopRequests[:0]
	clear(s.waiting)
	s.roots = s.roots[:0]
	clear(s.pendingEvents)
	clear(s.maxReached)
	clear(s.overticks)
	clear(s.itvEndMap)
	s.lastDate = Infinite
}

// Pause suspends progress on every interval. Trigger state is untouched.
func (s *Scenario) Pause() {
	for _, itv := range s.intervals {
		itv.Pause()
	}
}

// Resume lifts Pause on every interval.
func (s *Scenario) Resume() {
	for _, itv := range s.intervals {
		itv.Resume()
	}
}

// Close releases the scenario: every sync is reset and reported to the
// observer's OnCleanup.
func (s *Scenario) Close() {
	for _, n := range s.nodes {
		n.Reset()
		s.observer.OnCleanup(n)
	}
}

// Started reports whether the driver has ticked the scenario at least once.
func (s *Scenario) Started() bool { return s.lastDate != Infinite }

// LastDate returns the date of the last tick, or Infinite.
func (s *Scenario) LastDate() time.Duration { return s.lastDate }

// SetLastDate is called by the tick driver after each tick.
func (s *Scenario) SetLastDate(d time.Duration) { s.lastDate = d }

// =============================================================================
// Graph authoring
// =============================================================================

// AddTimeSync adds a sync. Adding a sync that is already present is a no-op;
// adding a different sync under an existing handle fails with
// ErrCodeDuplicateID. Once started, a start-capable sync joins the waiting
// set immediately.
func (s *Scenario) AddTimeSync(ts *TimeSync) error {
	if ts == nil {
		return nil
	}
	if existing, ok := s.syncIndex[ts.id]; ok {
		if existing == ts {
			return nil
		}
		return &ExecutionError{Code: ErrCodeDuplicateID, Message: "another sync uses this id", Sync: ts.id}
	}

	if s.muted {
		ts.Mute(true)
	}
	s.nodes = append(s.nodes, ts)
	s.syncIndex[ts.id] = ts

	if s.Started() && ts.IsStart() {
		s.waiting[ts.id] = struct{}{}
		s.roots = s.rootIDs()
	}
	return nil
}

// RemoveTimeSync removes a sync and purges it from every derived set.
// Intervals attached to its events are removed first. Removing an absent sync
// is a no-op; the start sync cannot be removed.
func (s *Scenario) RemoveTimeSync(ts *TimeSync) error {
	if ts == nil {
		return nil
	}
	if ts == s.nodes[0] {
		return &ExecutionError{Code: ErrCodeStartSyncRemoval, Message: "the start sync cannot be removed", Sync: ts.id}
	}
	if s.syncIndex[ts.id] != ts {
		return nil
	}

	for _, ev := range ts.events {
		for _, itv := range append([]*TimeInterval(nil), ev.previous...) {
			s.RemoveTimeInterval(itv)
		}
		for _, itv := range append([]*TimeInterval(nil), ev.next...) {
			s.RemoveTimeInterval(itv)
		}
		delete(s.pendingEvents, ev.id)
		delete(s.maxReached, ev.id)
	}

	delete(s.waiting, ts.id)
	s.roots = removeSyncID(s.roots, ts.id)
	delete(s.overticks, ts.id)
	delete(s.endNodes, ts.id)
	delete(s.retrySyncs, ts.id)

	for i, n := range s.nodes {
		if n == ts {
			s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)
			break
		}
	}
	delete(s.syncIndex, ts.id)
	return nil
}

// AddTimeInterval adds an interval and links it into its events' adjacency.
// Adding an interval that is already present is a no-op. Both endpoint syncs
// must already be part of the scenario.
//
// Once started, if the interval ends on a start-capable sync, that sync stops
// being free floating: it leaves the waiting set and roots are recomputed.
func (s *Scenario) AddTimeInterval(itv *TimeInterval) error {
	if itv == nil {
		return nil
	}
	if existing, ok := s.itvIndex[itv.id]; ok {
		if existing == itv {
			return nil
		}
		return &ExecutionError{Code: ErrCodeDuplicateID, Message: "another interval uses this id", Interval: itv.id}
	}
	for _, ev := range []*TimeEvent{itv.start, itv.end} {
		if ev == nil || s.syncIndex[ev.sync.id] != ev.sync {
			return &ExecutionError{Code: ErrCodeUnknownEntity, Message: "interval endpoint is not part of the scenario", Interval: itv.id}
		}
	}

	var endRoot *TimeSync
	if s.Started() && itv.end.sync.IsStart() {
		endRoot = itv.end.sync
	}

	if s.muted {
		itv.Mute(true)
	}
	itv.attach()
	s.intervals = append(s.intervals, itv)
	s.itvIndex[itv.id] = itv

	if endRoot != nil {
		delete(s.waiting, endRoot.id)
		s.roots = s.rootIDs()
	}
	return nil
}

// RemoveTimeInterval removes an interval, unlinks it from its events and
// evicts it from the running set, both request queues and the end-date map.
// Removing an absent interval is a no-op.
//
// Once started, a start-capable end sync becomes free again and re-enters the
// waiting set.
func (s *Scenario) RemoveTimeInterval(itv *TimeInterval) {
	if itv == nil || s.itvIndex[itv.id] != itv {
		return
	}

	itv.detach()

	if s.Started() {
		if t := itv.end.sync; t.IsStart() {
			s.waiting[t.id] = struct{}{}
		}
		s.roots = s.rootIDs()
	}

	delete(s.running, itv.id)
	s.startRequests = removeRequest(s.startRequests, itv)
	s.stopRequests = removeRequest(s.stopRequests, itv)
	delete(s.itvEndMap, itv.id)

	for i, x := range s.intervals {
		if x == itv {
			s.intervals = append(s.intervals[:i], s.intervals[i+1:]...)
			break
		}
	}
	delete(s.itvIndex, itv.id)
}

// =============================================================================
// Roots
// =============================================================================

// GetRoots returns, in node order, the start-capable syncs currently waiting
// that no interval forces to wait on an upstream event.
func (s *Scenario) GetRoots() []*TimeSync {
	var res []*TimeSync
	for _, n := range s.nodes {
		if !n.IsStart() || n.hasIncoming() {
			continue
		}
		if _, ok := s.waiting[n.id]; ok {
			res = append(res, n)
		}
	}
	return res
}

// Roots returns the root set as last recomputed.
func (s *Scenario) Roots() []*TimeSync {
	res := make([]*TimeSync, 0, len(s.roots))
	for _, id := range s.roots {
		if n, ok := s.syncIndex[id]; ok {
			res = append(res, n)
		}
	}
	return res
}

// candidateRoots ignores the waiting set; Start uses it to seed waiting.
func (s *Scenario) candidateRoots() []SyncID {
	var res []SyncID
	for _, n := range s.nodes {
		if n.IsStart() && !n.hasIncoming() {
			res = append(res, n.id)
		}
	}
	return res
}

func (s *Scenario) rootIDs() []SyncID {
	roots := s.GetRoots()
	res := make([]SyncID, len(roots))
	for i, n := range roots {
		res[i] = n.id
	}
	return res
}

// =============================================================================
// Tick driver interface
// =============================================================================

// RequestStartInterval queues a start at a fractional position of the
// current tick. The ratio is not interpreted here beyond range checking.
func (s *Scenario) RequestStartInterval(itv *TimeInterval, ratio float64) error {
	if err := s.checkRequest(itv, ratio); err != nil {
		return err
	}
	s.startRequests = append(s.startRequests, QuantizedRequest{Interval: itv, Ratio: ratio})
	return nil
}

// RequestStopInterval queues a stop at a fractional position of the current tick.
func (s *Scenario) RequestStopInterval(itv *TimeInterval, ratio float64) error {
	if err := s.checkRequest(itv, ratio); err != nil {
		return err
	}
	s.stopRequests = append(s.stopRequests, QuantizedRequest{Interval: itv, Ratio: ratio})
	return nil
}

func (s *Scenario) checkRequest(itv *TimeInterval, ratio float64) error {
	if itv == nil || s.itvIndex[itv.id] != itv {
		id := IntervalID("")
		if itv != nil {
			id = itv.id
		}
		return unknownInterval(id)
	}
	if math.IsNaN(ratio) || ratio < 0 || ratio > 1 {
		return &ExecutionError{
			Code:     ErrCodeInvalidRatio,
			Message:  fmt.Sprintf("ratio %v is outside [0,1]", ratio),
			Interval: itv.id,
		}
	}
	return nil
}

// StartRequests returns the queued start requests in submission order.
func (s *Scenario) StartRequests() []QuantizedRequest { return s.startRequests }

// StopRequests returns the queued stop requests in submission order.
func (s *Scenario) StopRequests() []QuantizedRequest { return s.stopRequests }

// ClearRequests empties both queues; the driver calls it once per tick.
func (s *Scenario) ClearRequests() {
	s.startRequests = s.startRequests[:0]
	s.stopRequests = s.stopRequests[:0]
}

// StartInterval starts an interval and records it as running.
func (s *Scenario) StartInterval(itv *TimeInterval) error {
	if itv == nil || s.itvIndex[itv.id] != itv {
		return unknownInterval(idOf(itv))
	}
	s.startInterval(itv)
	return nil
}

// StopInterval stops an interval and evicts it from the running set and the
// end-date map.
func (s *Scenario) StopInterval(itv *TimeInterval) error {
	if itv == nil || s.itvIndex[itv.id] != itv {
		return unknownInterval(idOf(itv))
	}
	s.stopInterval(itv)
	return nil
}

func (s *Scenario) startInterval(itv *TimeInterval) {
	if _, ok := s.running[itv.id]; ok && itv.running {
		return
	}
	s.running[itv.id] = struct{}{}
	itv.Start()
	s.observer.OnIntervalStarted(itv)
}

// stopInterval reports whether the interval was running.
func (s *Scenario) stopInterval(itv *TimeInterval) bool {
	_, tracked := s.running[itv.id]
	wasRunning := tracked || itv.running
	itv.Stop()
	delete(s.running, itv.id)
	delete(s.itvEndMap, itv.id)
	if wasRunning {
		s.observer.OnIntervalStopped(itv)
	}
	return wasRunning
}

func idOf(itv *TimeInterval) IntervalID {
	if itv == nil {
		return ""
	}
	return itv.id
}

// =============================================================================
// Flags
// =============================================================================

// Exclusive tells the tick driver whether sibling intervals under one sync
// may run concurrently. It is stored and exposed only.
func (s *Scenario) Exclusive() bool { return s.exclusive }

// SetExclusive sets the exclusive flag.
func (s *Scenario) SetExclusive(excl bool) { s.exclusive = excl }

// Muted reports the scenario-level mute flag.
func (s *Scenario) Muted() bool { return s.muted }

// Mute sets the scenario-level flag and propagates it to every interval and
// sync. Running and status state are unchanged.
func (s *Scenario) Mute(m bool) {
	s.muted = m
	for _, itv := range s.intervals {
		itv.Mute(m)
	}
	for _, n := range s.nodes {
		n.Mute(m)
	}
}

// =============================================================================
// Read accessors
// =============================================================================

func (s *Scenario) StartTimeSync() *TimeSync       { return s.nodes[0] }
func (s *Scenario) TimeSyncs() []*TimeSync         { return s.nodes }
func (s *Scenario) TimeIntervals() []*TimeInterval { return s.intervals }
func (s *Scenario) SetObserver(o Observer)         { s.observer = o }
func (s *Scenario) Observer() Observer             { return s.observer }
func (s *Scenario) HasInterval(itv *TimeInterval) bool {
	return itv != nil && s.itvIndex[itv.id] == itv
}

// TimeSync looks up a sync by handle.
func (s *Scenario) TimeSync(id SyncID) (*TimeSync, bool) {
	n, ok := s.syncIndex[id]
	return n, ok
}

// TimeInterval looks up an interval by handle.
func (s *Scenario) TimeInterval(id IntervalID) (*TimeInterval, bool) {
	itv, ok := s.itvIndex[id]
	return itv, ok
}

// Event looks up an event by handle across every sync.
func (s *Scenario) Event(id EventID) (*TimeEvent, bool) {
	for _, n := range s.nodes {
		if ev, ok := n.Event(id); ok {
			return ev, true
		}
	}
	return nil, false
}

// RunningIntervals returns the running intervals in authoring order.
func (s *Scenario) RunningIntervals() []*TimeInterval {
	res := make([]*TimeInterval, 0, len(s.running))
	for _, itv := range s.intervals {
		if _, ok := s.running[itv.id]; ok {
			res = append(res, itv)
		}
	}
	return res
}

// IsRunning reports whether itv is in the running set.
func (s *Scenario) IsRunning(itv *TimeInterval) bool {
	if itv == nil {
		return false
	}
	_, ok := s.running[itv.id]
	return ok
}

// WaitingNodes returns the waiting syncs in node order.
func (s *Scenario) WaitingNodes() []*TimeSync {
	return s.syncsIn(s.waiting)
}

// IsWaiting reports whether ts is in the waiting set.
func (s *Scenario) IsWaiting(ts *TimeSync) bool {
	if ts == nil {
		return false
	}
	_, ok := s.waiting[ts.id]
	return ok
}

func (s *Scenario) syncsIn(set map[SyncID]struct{}) []*TimeSync {
	res := make([]*TimeSync, 0, len(set))
	for _, n := range s.nodes {
		if _, ok := set[n.id]; ok {
			res = append(res, n)
		}
	}
	return res
}

func (s *Scenario) eventsIn(set map[EventID]struct{}) []*TimeEvent {
	res := make([]*TimeEvent, 0, len(set))
	for _, n := range s.nodes {
		for _, ev := range n.events {
			if _, ok := set[ev.id]; ok {
				res = append(res, ev)
			}
		}
	}
	return res
}

// =============================================================================
// Driver bookkeeping
// =============================================================================

// MarkPending records an event whose sync trigger is being awaited.
func (s *Scenario) MarkPending(ev *TimeEvent) error {
	if err := s.checkEvent(ev); err != nil {
		return err
	}
	s.pendingEvents[ev.id] = struct{}{}
	return nil
}

// PendingEvents returns the pending events in node order.
func (s *Scenario) PendingEvents() []*TimeEvent { return s.eventsIn(s.pendingEvents) }

// MarkMaxReached records an event whose incoming interval hit its maximum.
func (s *Scenario) MarkMaxReached(ev *TimeEvent) error {
	if err := s.checkEvent(ev); err != nil {
		return err
	}
	s.maxReached[ev.id] = struct{}{}
	return nil
}

// MaxReachedEvents returns the max-reached events in node order.
func (s *Scenario) MaxReachedEvents() []*TimeEvent { return s.eventsIn(s.maxReached) }

// SetOvertick stores the overtick of a sync for the current tick.
func (s *Scenario) SetOvertick(ts *TimeSync, o Overtick) error {
	if ts == nil || s.syncIndex[ts.id] != ts {
		return unknownSync(syncIDOf(ts))
	}
	s.overticks[ts.id] = o
	return nil
}

// Overticks returns a copy of the overtick map.
func (s *Scenario) Overticks() map[SyncID]Overtick {
	res := make(map[SyncID]Overtick, len(s.overticks))
	for k, v := range s.overticks {
		res[k] = v
	}
	return res
}

// AddEndNode records a sync reached at the end of a branch.
func (s *Scenario) AddEndNode(ts *TimeSync) error {
	if ts == nil || s.syncIndex[ts.id] != ts {
		return unknownSync(syncIDOf(ts))
	}
	s.endNodes[ts.id] = struct{}{}
	return nil
}

// EndNodes returns the end syncs in node order.
func (s *Scenario) EndNodes() []*TimeSync { return s.syncsIn(s.endNodes) }

// AddRetrySync records a sync whose trigger must be evaluated again next tick.
func (s *Scenario) AddRetrySync(ts *TimeSync) error {
	if ts == nil || s.syncIndex[ts.id] != ts {
		return unknownSync(syncIDOf(ts))
	}
	s.retrySyncs[ts.id] = struct{}{}
	return nil
}

// RetrySyncs returns the retry syncs in node order.
func (s *Scenario) RetrySyncs() []*TimeSync { return s.syncsIn(s.retrySyncs) }

// ClearRetrySyncs empties the retry list.
func (s *Scenario) ClearRetrySyncs() { clear(s.retrySyncs) }

// SetIntervalEnd caches the date at which an interval ended this tick.
func (s *Scenario) SetIntervalEnd(itv *TimeInterval, date time.Duration) error {
	if itv == nil || s.itvIndex[itv.id] != itv {
		return unknownInterval(idOf(itv))
	}
	s.itvEndMap[itv.id] = date
	return nil
}

// IntervalEnd returns the cached end date of an interval.
func (s *Scenario) IntervalEnd(itv *TimeInterval) (time.Duration, bool) {
	if itv == nil {
		return 0, false
	}
	d, ok := s.itvEndMap[itv.id]
	return d, ok
}

func (s *Scenario) checkEvent(ev *TimeEvent) error {
	if ev == nil || ev.sync == nil || s.syncIndex[ev.sync.id] != ev.sync {
		id := EventID("")
		if ev != nil {
			id = ev.id
		}
		return &ExecutionError{Code: ErrCodeUnknownEntity, Message: "event is not part of the scenario", Event: id}
	}
	return nil
}

func syncIDOf(ts *TimeSync) SyncID {
	if ts == nil {
		return ""
	}
	return ts.id
}

func removeSyncID(ids []SyncID, id SyncID) []SyncID {
	for i, x := range ids {
		if x == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func removeRequest(reqs []QuantizedRequest, itv *TimeInterval) []QuantizedRequest {
	out := reqs[:0]
	for _, r := range reqs {
		if r.Interval != itv {
			out = append(out, r)
		}
	}
	return out
}
