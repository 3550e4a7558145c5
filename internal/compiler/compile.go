package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/timeline/internal/ir"
)

// CompileDocument parses a CUE value into a Document.
// Uses the CUE SDK's Go API directly (not the CLI).
//
// The value is the scenario struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`scenario: intro: { ... }`)
//	doc, err := CompileDocument(v.LookupPath(cue.ParsePath("scenario.intro")))
//
// Syncs and intervals are structs keyed by id, in declaration order:
//
//	syncs: {
//		start: events: [{id: "start/0", status: "HAPPENED"}]
//		s1: {}
//	}
//	intervals: {
//		A: {from: "start", to: "s1", nominal: "1s", max: "inf"}
//	}
func CompileDocument(v cue.Value) (*ir.Document, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	doc := &ir.Document{}

	// The struct label names the document unless name is set.
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		doc.Name = labels[len(labels)-1].String()
	}

	var err error
	if doc.Name, err = optionalString(v, "name", doc.Name); err != nil {
		return nil, err
	}
	if doc.Description, err = optionalString(v, "description", ""); err != nil {
		return nil, err
	}
	if doc.StartSync, err = optionalString(v, "start_sync", ""); err != nil {
		return nil, err
	}
	if doc.Exclusive, err = optionalBool(v, "exclusive"); err != nil {
		return nil, err
	}
	if doc.Muted, err = optionalBool(v, "muted"); err != nil {
		return nil, err
	}

	if doc.Syncs, err = parseSyncs(v); err != nil {
		return nil, err
	}
	if doc.Intervals, err = parseIntervals(v); err != nil {
		return nil, err
	}

	if len(doc.Syncs) == 0 && len(doc.Intervals) == 0 {
		return nil, &CompileError{
			Field:   "syncs",
			Message: "a scenario needs at least one sync or interval",
			Pos:     v.Pos(),
		}
	}

	return doc, nil
}

func parseSyncs(v cue.Value) ([]ir.SyncSpec, error) {
	syncsVal := v.LookupPath(cue.ParsePath("syncs"))
	if !syncsVal.Exists() {
		return nil, nil
	}

	iter, err := syncsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var syncs []ir.SyncSpec
	for iter.Next() {
		sv := iter.Value()
		spec := ir.SyncSpec{ID: iter.Label()}

		if spec.Start, err = optionalBool(sv, "start"); err != nil {
			return nil, err
		}
		if spec.Muted, err = optionalBool(sv, "muted"); err != nil {
			return nil, err
		}
		if spec.Events, err = parseEvents(sv); err != nil {
			return nil, err
		}
		syncs = append(syncs, spec)
	}
	return syncs, nil
}

func parseEvents(v cue.Value) ([]ir.EventSpec, error) {
	eventsVal := v.LookupPath(cue.ParsePath("events"))
	if !eventsVal.Exists() {
		return nil, nil
	}

	iter, err := eventsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var events []ir.EventSpec
	for iter.Next() {
		ev := iter.Value()

		// Shorthand: a bare string is an event id.
		if id, err := ev.String(); err == nil {
			events = append(events, ir.EventSpec{ID: id})
			continue
		}

		idVal := ev.LookupPath(cue.ParsePath("id"))
		if !idVal.Exists() {
			return nil, &CompileError{
				Field:   "events.id",
				Message: "event id is required",
				Pos:     ev.Pos(),
			}
		}
		id, err := idVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		status, err := optionalString(ev, "status", "")
		if err != nil {
			return nil, err
		}
		events = append(events, ir.EventSpec{ID: id, Status: status})
	}
	return events, nil
}

func parseIntervals(v cue.Value) ([]ir.IntervalSpec, error) {
	itvsVal := v.LookupPath(cue.ParsePath("intervals"))
	if !itvsVal.Exists() {
		return nil, nil
	}

	iter, err := itvsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var intervals []ir.IntervalSpec
	for iter.Next() {
		iv := iter.Value()
		spec := ir.IntervalSpec{ID: iter.Label()}

		for _, f := range []struct {
			name string
			dst  *string
		}{{"from", &spec.From}, {"to", &spec.To}} {
			fv := iv.LookupPath(cue.ParsePath(f.name))
			if !fv.Exists() {
				return nil, &CompileError{
					Field:   "intervals." + f.name,
					Message: fmt.Sprintf("interval %q: %s is required", spec.ID, f.name),
					Pos:     iv.Pos(),
				}
			}
			s, err := fv.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			*f.dst = s
		}

		if spec.Nominal, err = optionalDuration(iv, "nominal"); err != nil {
			return nil, err
		}
		if spec.Min, err = optionalDuration(iv, "min"); err != nil {
			return nil, err
		}
		if mv := iv.LookupPath(cue.ParsePath("max")); mv.Exists() {
			d, err := parseDuration(mv, "max")
			if err != nil {
				return nil, err
			}
			spec.Max = &d
		}
		if spec.Muted, err = optionalBool(iv, "muted"); err != nil {
			return nil, err
		}
		intervals = append(intervals, spec)
	}
	return intervals, nil
}

func optionalString(v cue.Value, field, def string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return def, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalBool(v cue.Value, field string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func optionalDuration(v cue.Value, field string) (ir.Duration, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, nil
	}
	return parseDuration(fv, field)
}

// parseDuration accepts a duration string ("1.5s", "inf"). Numbers are
// rejected so that units are always explicit.
func parseDuration(v cue.Value, field string) (ir.Duration, error) {
	if v.IncompleteKind() != cue.StringKind {
		return 0, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("durations are strings with a unit, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
	s, err := v.String()
	if err != nil {
		return 0, formatCUEError(err)
	}
	d, err := ir.ParseDuration(s)
	if err != nil {
		return 0, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
	}
	return d, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// First error with position info wins.
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
