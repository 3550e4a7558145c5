package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/timeline/internal/ir"
	"github.com/roach88/timeline/internal/metrics"
	"github.com/roach88/timeline/internal/scenario"
)

// TraceSink receives one record per applied command. Implemented by
// store.Store.
type TraceSink interface {
	WriteTrace(ctx context.Context, rec ir.TraceRecord) error
}

// Engine is the single-writer control loop around one Scenario.
//
// Thread-safety model:
//   - Enqueue(), Stop(): safe from any goroutine
//   - Run(), Apply(): the owning goroutine only
type Engine struct {
	sc      *scenario.Scenario
	runID   string
	clock   *Clock
	queue   *commandQueue
	sink    TraceSink
	metrics metrics.Sink
	now     func() time.Time

	// resets collects component resets reported by the scenario while the
	// current command runs.
	resets []componentReset
}

type componentReset struct {
	root      scenario.SyncID
	syncs     int
	intervals int
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithTraceSink sets where trace records are written. Without one, records
// are only returned by Apply.
func WithTraceSink(s TraceSink) EngineOption {
	return func(e *Engine) { e.sink = s }
}

// WithMetrics sets the metrics sink (default: metrics.NoopSink).
func WithMetrics(m metrics.Sink) EngineOption {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithClock sets the logical clock, for resuming a run after its last
// stored seq.
func WithClock(c *Clock) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithNow sets the wall-clock source used for tick durations in metrics.
func WithNow(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an engine for sc. The run id is drawn from gen once.
//
// The engine chains its own observer after the scenario's current one to
// account for component resets.
func New(sc *scenario.Scenario, gen RunTokenGenerator, opts ...EngineOption) *Engine {
	e := &Engine{
		sc:      sc,
		runID:   gen.Generate(),
		clock:   NewClock(),
		queue:   newCommandQueue(),
		metrics: metrics.NewNoopSink(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	sc.SetObserver(scenario.NewCompositeObserver(sc.Observer(), &resetObserver{e: e}))
	return e
}

// RunID returns the id stamped on every trace record.
func (e *Engine) RunID() string { return e.runID }

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock { return e.clock }

// Scenario returns the driven scenario. Only the owning goroutine may use it.
func (e *Engine) Scenario() *scenario.Scenario { return e.sc }

// Enqueue submits a command to the Run loop.
// Returns false if the engine has been stopped.
func (e *Engine) Enqueue(c Command) bool {
	return e.queue.Enqueue(c)
}

// Run applies queued commands until ctx is cancelled or Stop is called and
// the queue has drained.
//
// A failed command is logged with its context and the loop moves on; the
// failure is also in the trace record. Only a trace sink failure is
// returned, since the run can no longer be reconstructed after one.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting", "run", e.runID)

	for {
		cmd, ok := e.queue.TryDequeue()
		if ok {
			if _, err := e.Apply(ctx, cmd); err != nil {
				if IsSinkError(err) {
					slog.Error("engine stopping: trace sink failed", "run", e.runID, "error", err)
					e.queue.Close()
					return err
				}
				logCommandError(e.runID, cmd, err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled", "run", e.runID)
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// A closed queue keeps this case ready; stop once it is drained.
			if e.queue.Len() == 0 && e.queue.Closed() {
				slog.Info("engine stopping: queue closed", "run", e.runID)
				return nil
			}
		}
	}
}

// Stop closes the command queue. Run returns once queued commands are applied.
func (e *Engine) Stop() {
	e.queue.Close()
}

func logCommandError(runID string, cmd Command, err error) {
	slog.Warn("command failed",
		"run", runID,
		"kind", cmd.Kind,
		"target", cmd.Target(),
		"error", err,
	)
}

// Apply runs one command synchronously and returns its trace record.
//
// The returned error is the command's own failure, which is also recorded
// in rec.Error, or a *SinkError when the record could not be written.
func (e *Engine) Apply(ctx context.Context, cmd Command) (ir.TraceRecord, error) {
	e.resets = e.resets[:0]
	began := e.now()

	detail, cmdErr := e.execute(cmd)

	rec := ir.TraceRecord{
		RunID:   e.runID,
		Seq:     e.clock.Next(),
		Kind:    string(cmd.Kind),
		Target:  cmd.Target(),
		Detail:  detail,
		Running: runningIDs(e.sc),
		Waiting: waitingIDs(e.sc),
	}
	if rec.Detail == nil {
		rec.Detail = ir.Object{}
	}
	if cmdErr != nil {
		rec.Error = cmdErr.Error()
	}
	hash, err := rec.ComputeHash()
	if err != nil {
		return rec, fmt.Errorf("hash trace record %d: %w", rec.Seq, err)
	}
	rec.Hash = hash

	slog.Debug("command applied",
		"run", e.runID,
		"seq", rec.Seq,
		"kind", cmd.Kind,
		"target", rec.Target,
		"running", len(rec.Running),
	)

	e.metrics.CommandApplied(string(cmd.Kind), cmdErr)
	switch {
	case cmd.Kind == KindTick && cmdErr == nil:
		e.metrics.TickCompleted(len(rec.Running), e.now().Sub(began))
	case cmd.Kind == KindStart && scenario.IsInconsistentStatus(cmdErr):
		e.metrics.StartFailed()
	}

	if e.sink != nil {
		if err := e.sink.WriteTrace(ctx, rec); err != nil {
			return rec, &SinkError{Seq: rec.Seq, Err: err}
		}
	}
	return rec, cmdErr
}

// execute dispatches one command to the scenario.
func (e *Engine) execute(cmd Command) (ir.Object, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	switch cmd.Kind {
	case KindStart:
		return nil, e.sc.Start()

	case KindStop:
		e.sc.Stop()
		return nil, nil

	case KindPause, KindResume:
		return nil, e.pauseResume(cmd)

	case KindTick:
		return e.tick(cmd.Delta.Std()), nil

	case KindSetStatus:
		return e.setStatus(cmd)

	case KindTrigger:
		return e.trigger(cmd)

	case KindRequestStart, KindRequestStop:
		itv, err := e.interval(cmd)
		if err != nil {
			return nil, err
		}
		if cmd.Kind == KindRequestStart {
			err = e.sc.RequestStartInterval(itv, cmd.Ratio)
		} else {
			err = e.sc.RequestStopInterval(itv, cmd.Ratio)
		}
		return ir.Object{"ratio": ir.String(formatRatio(cmd.Ratio))}, err

	case KindResetComponent:
		ts, err := e.sync(cmd)
		if err != nil {
			return nil, err
		}
		if err := e.sc.ResetComponent(ts); err != nil {
			return nil, err
		}
		return e.resetDetail(), nil

	case KindResetAllExcept:
		ts, err := e.sync(cmd)
		if err != nil {
			return nil, err
		}
		if err := e.sc.ResetAllComponentsExcept(ts); err != nil {
			return nil, err
		}
		return e.resetDetail(), nil

	case KindMute:
		return ir.Object{"flag": ir.Bool(cmd.Flag)}, e.mute(cmd)

	case KindRemoveInterval:
		itv, err := e.interval(cmd)
		if err != nil {
			return nil, err
		}
		e.sc.RemoveTimeInterval(itv)
		return nil, nil

	case KindRemoveSync:
		ts, err := e.sync(cmd)
		if err != nil {
			return nil, err
		}
		return nil, e.sc.RemoveTimeSync(ts)
	}
	// Validate rejects unknown kinds.
	return nil, fmt.Errorf("unhandled command kind %q", cmd.Kind)
}

// tick runs one driver cycle of length delta.
func (e *Engine) tick(delta time.Duration) ir.Object {
	sc := e.sc

	stopped := make([]string, 0)
	for _, req := range sc.StopRequests() {
		if req.Interval.Running() {
			stopped = append(stopped, string(req.Interval.ID()))
		}
		// Requests were range-checked on submission; the interval may have
		// been removed since.
		_ = sc.StopInterval(req.Interval)
	}
	started := make([]string, 0)
	for _, req := range sc.StartRequests() {
		if sc.StartInterval(req.Interval) == nil {
			started = append(started, string(req.Interval.ID()))
		}
	}
	sc.ClearRequests()

	last := sc.LastDate()
	if !sc.Started() {
		last = 0
	}
	last = addSaturating(last, delta)

	maxReached := make([]string, 0)
	for _, itv := range sc.RunningIntervals() {
		itv.Advance(delta)
		if !itv.MaxReached() {
			continue
		}
		if _, seen := sc.IntervalEnd(itv); seen {
			continue
		}
		if sc.MarkMaxReached(itv.EndEvent()) == nil {
			_ = sc.SetIntervalEnd(itv, last)
			maxReached = append(maxReached, string(itv.ID()))
		}
	}
	sc.SetLastDate(last)

	return ir.Object{
		"delta":       ir.String(ir.Duration(delta).String()),
		"started":     ir.Strings(started...),
		"stopped":     ir.Strings(stopped...),
		"max_reached": ir.Strings(maxReached...),
		"last_date":   ir.String(ir.Duration(last).String()),
	}
}

func addSaturating(a, b time.Duration) time.Duration {
	if b > 0 && a > scenario.Infinite-b {
		return scenario.Infinite
	}
	return a + b
}

func (e *Engine) setStatus(cmd Command) (ir.Object, error) {
	ev, err := e.event(cmd)
	if err != nil {
		return nil, err
	}
	status, err := scenario.ParseStatus(cmd.Status)
	if err != nil {
		return nil, &CommandError{Code: ErrCodeInvalidCommand, Message: err.Error(), Kind: cmd.Kind, Target: cmd.Event}
	}
	if err := ev.SetStatus(status); err != nil {
		return nil, err
	}
	if status == scenario.StatusPending {
		if err := e.sc.MarkPending(ev); err != nil {
			return nil, err
		}
	}
	return ir.Object{"status": ir.String(status.String())}, nil
}

// trigger fires one event of a sync and moves execution past it.
func (e *Engine) trigger(cmd Command) (ir.Object, error) {
	ts, err := e.sync(cmd)
	if err != nil {
		return nil, err
	}
	ev := ts.Events()[0]
	if cmd.Event != "" {
		var ok bool
		if ev, ok = ts.Event(scenario.EventID(cmd.Event)); !ok {
			return nil, unknownTarget(cmd.Kind, "event", cmd.Event)
		}
	}

	// The status move is the only step that can fail; nothing is touched
	// before it succeeds.
	if err := ev.SetStatus(scenario.StatusHappened); err != nil {
		return nil, err
	}
	ts.SetBeingTriggered(true)
	defer ts.SetBeingTriggered(false)

	stopped := make([]string, 0)
	for _, itv := range ev.PreviousIntervals() {
		if itv.Running() {
			stopped = append(stopped, string(itv.ID()))
		}
		if err := e.sc.StopInterval(itv); err != nil {
			return nil, err
		}
	}

	disposed := make([]string, 0)
	for _, sibling := range ts.Events() {
		if sibling == ev || sibling.Status() != scenario.StatusPending {
			continue
		}
		if err := sibling.SetStatus(scenario.StatusDisposed); err != nil {
			return nil, err
		}
		disposed = append(disposed, string(sibling.ID()))
	}

	started := make([]string, 0)
	for _, itv := range ev.NextIntervals() {
		if err := e.sc.StartInterval(itv); err != nil {
			return nil, err
		}
		started = append(started, string(itv.ID()))
	}
	if len(started) == 0 {
		if err := e.sc.AddEndNode(ts); err != nil {
			return nil, err
		}
	}

	if e.sc.Exclusive() {
		if err := e.sc.ResetAllComponentsExcept(ts); err != nil {
			return nil, err
		}
	}

	return ir.Object{
		"event":      ir.String(string(ev.ID())),
		"started":    ir.Strings(started...),
		"stopped":    ir.Strings(stopped...),
		"disposed":   ir.Strings(disposed...),
		"components": ir.Int(len(e.resets)),
	}, nil
}

func (e *Engine) pauseResume(cmd Command) error {
	if cmd.Interval == "" {
		if cmd.Kind == KindPause {
			e.sc.Pause()
		} else {
			e.sc.Resume()
		}
		return nil
	}
	itv, err := e.interval(cmd)
	if err != nil {
		return err
	}
	if cmd.Kind == KindPause {
		itv.Pause()
	} else {
		itv.Resume()
	}
	return nil
}

func (e *Engine) mute(cmd Command) error {
	switch {
	case cmd.Interval != "":
		itv, err := e.interval(cmd)
		if err != nil {
			return err
		}
		itv.Mute(cmd.Flag)
	case cmd.Sync != "":
		ts, err := e.sync(cmd)
		if err != nil {
			return err
		}
		ts.Mute(cmd.Flag)
	default:
		e.sc.Mute(cmd.Flag)
	}
	return nil
}

func (e *Engine) resetDetail() ir.Object {
	roots := make([]string, 0, len(e.resets))
	syncs, intervals := 0, 0
	for _, r := range e.resets {
		roots = append(roots, string(r.root))
		syncs += r.syncs
		intervals += r.intervals
	}
	return ir.Object{
		"components": ir.Strings(roots...),
		"syncs":      ir.Int(syncs),
		"intervals":  ir.Int(intervals),
	}
}

func (e *Engine) sync(cmd Command) (*scenario.TimeSync, error) {
	ts, ok := e.sc.TimeSync(scenario.SyncID(cmd.Sync))
	if !ok {
		return nil, unknownTarget(cmd.Kind, "sync", cmd.Sync)
	}
	return ts, nil
}

func (e *Engine) interval(cmd Command) (*scenario.TimeInterval, error) {
	itv, ok := e.sc.TimeInterval(scenario.IntervalID(cmd.Interval))
	if !ok {
		return nil, unknownTarget(cmd.Kind, "interval", cmd.Interval)
	}
	return itv, nil
}

func (e *Engine) event(cmd Command) (*scenario.TimeEvent, error) {
	ev, ok := e.sc.Event(scenario.EventID(cmd.Event))
	if !ok {
		return nil, unknownTarget(cmd.Kind, "event", cmd.Event)
	}
	return ev, nil
}

func runningIDs(sc *scenario.Scenario) []string {
	running := sc.RunningIntervals()
	ids := make([]string, len(running))
	for i, itv := range running {
		ids[i] = string(itv.ID())
	}
	return ids
}

func waitingIDs(sc *scenario.Scenario) []string {
	waiting := sc.WaitingNodes()
	ids := make([]string, len(waiting))
	for i, ts := range waiting {
		ids[i] = string(ts.ID())
	}
	return ids
}

// resetObserver forwards component resets to the engine.
type resetObserver struct {
	scenario.NoopObserver
	e *Engine
}

func (o *resetObserver) OnComponentReset(root scenario.SyncID, syncs, intervals int) {
	o.e.resets = append(o.e.resets, componentReset{root: root, syncs: syncs, intervals: intervals})
	o.e.metrics.ComponentReset(syncs, intervals)
}
