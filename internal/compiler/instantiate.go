package compiler

import (
	"fmt"

	"github.com/roach88/timeline/internal/ir"
	"github.com/roach88/timeline/internal/scenario"
)

// Instantiate builds a live scenario from a document. The document's start
// sync becomes the scenario's start sync; authored statuses are restored
// as-is (Scenario.Start checks them). Extra options are applied after the
// document's own.
//
// Instantiate does not run Validate; a document with dangling references or
// duplicate ids fails here with the first problem found.
func Instantiate(doc *ir.Document, opts ...scenario.Option) (*scenario.Scenario, error) {
	idx := indexDocument(doc)

	syncs := make([]*scenario.TimeSync, 0, len(idx.syncs))
	for _, spec := range idx.syncs {
		ts, err := buildSync(spec)
		if err != nil {
			return nil, err
		}
		syncs = append(syncs, ts)
	}

	// idx.syncs starts with the start sync when it was implicit; otherwise
	// find it by id.
	startID := doc.StartSyncID()
	var start *scenario.TimeSync
	for _, ts := range syncs {
		if string(ts.ID()) == startID {
			start = ts
			break
		}
	}

	all := append([]scenario.Option{
		scenario.WithStartSync(start),
		scenario.WithExclusive(doc.Exclusive),
	}, opts...)
	sc := scenario.New(all...)

	for _, ts := range syncs {
		if ts == start {
			continue
		}
		if err := sc.AddTimeSync(ts); err != nil {
			return nil, fmt.Errorf("sync %q: %w", ts.ID(), err)
		}
	}

	for _, spec := range doc.Intervals {
		itv, err := buildInterval(sc, idx, spec)
		if err != nil {
			return nil, err
		}
		if err := sc.AddTimeInterval(itv); err != nil {
			return nil, fmt.Errorf("interval %q: %w", spec.ID, err)
		}
	}

	if doc.Muted {
		sc.Mute(true)
	}
	return sc, nil
}

func buildSync(spec ir.SyncSpec) (*scenario.TimeSync, error) {
	ids := spec.EventIDs()
	eventIDs := make([]scenario.EventID, len(ids))
	for i, id := range ids {
		eventIDs[i] = scenario.EventID(id)
	}

	ts := scenario.NewTimeSync(scenario.SyncID(spec.ID), eventIDs...)
	ts.SetStart(spec.Start)
	ts.Mute(spec.Muted)

	for i, ev := range spec.Events {
		if ev.Status == "" {
			continue
		}
		st, err := scenario.ParseStatus(ev.Status)
		if err != nil {
			return nil, fmt.Errorf("sync %q event %q: %w", spec.ID, ev.ID, err)
		}
		ts.Events()[i].RestoreStatus(st)
	}
	return ts, nil
}

func buildInterval(sc *scenario.Scenario, idx *docIndex, spec ir.IntervalSpec) (*scenario.TimeInterval, error) {
	endpoints := [2]*scenario.TimeEvent{}
	for i, ref := range []string{spec.From, spec.To} {
		_, eventID, ok := idx.resolve(ref)
		if !ok {
			return nil, fmt.Errorf("interval %q: no event or sync named %q", spec.ID, ref)
		}
		ev, ok := sc.Event(scenario.EventID(eventID))
		if !ok {
			return nil, fmt.Errorf("interval %q: event %q is not in the scenario", spec.ID, eventID)
		}
		endpoints[i] = ev
	}

	itv := scenario.NewTimeInterval(scenario.IntervalID(spec.ID), endpoints[0], endpoints[1], scenario.Durations{
		Nominal: spec.Nominal.Std(),
		Min:     spec.Min.Std(),
		Max:     spec.MaxOrInfinite().Std(),
	})
	itv.Mute(spec.Muted)
	return itv, nil
}
