package ir

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DefaultStartSync is the start sync handle used when a document names none.
const DefaultStartSync = "start"

// Document is an authored scenario.
type Document struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Exclusive   bool           `json:"exclusive,omitempty" yaml:"exclusive,omitempty"`
	Muted       bool           `json:"muted,omitempty" yaml:"muted,omitempty"`
	StartSync   string         `json:"start_sync,omitempty" yaml:"start_sync,omitempty"`
	Syncs       []SyncSpec     `json:"syncs" yaml:"syncs"`
	Intervals   []IntervalSpec `json:"intervals" yaml:"intervals"`
}

// SyncSpec describes a sync point. A sync listed under the document's
// start_sync handle configures the scenario's start sync.
type SyncSpec struct {
	ID     string      `json:"id" yaml:"id"`
	Start  bool        `json:"start,omitempty" yaml:"start,omitempty"`
	Muted  bool        `json:"muted,omitempty" yaml:"muted,omitempty"`
	Events []EventSpec `json:"events,omitempty" yaml:"events,omitempty"`
}

// EventSpec describes one event of a sync. Status is a status name
// ("NONE", "PENDING", ...); empty means NONE.
type EventSpec struct {
	ID     string `json:"id" yaml:"id"`
	Status string `json:"status,omitempty" yaml:"status,omitempty"`
}

// IntervalSpec describes an interval between two events. From and To name an
// event id, or a sync id meaning that sync's first event. A nil Max means the
// interval has no upper bound.
type IntervalSpec struct {
	ID      string    `json:"id" yaml:"id"`
	From    string    `json:"from" yaml:"from"`
	To      string    `json:"to" yaml:"to"`
	Nominal Duration  `json:"nominal,omitempty" yaml:"nominal,omitempty"`
	Min     Duration  `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *Duration `json:"max,omitempty" yaml:"max,omitempty"`
	Muted   bool      `json:"muted,omitempty" yaml:"muted,omitempty"`
}

// StartSyncID returns the start sync handle, defaulting to DefaultStartSync.
func (d *Document) StartSyncID() string {
	if d.StartSync == "" {
		return DefaultStartSync
	}
	return d.StartSync
}

// EventIDs returns the event ids of the sync, generating "<sync>/0" when the
// sync lists no events.
func (s SyncSpec) EventIDs() []string {
	if len(s.Events) == 0 {
		return []string{s.ID + "/0"}
	}
	ids := make([]string, len(s.Events))
	for i, ev := range s.Events {
		ids[i] = ev.ID
	}
	return ids
}

// MaxOrInfinite returns Max, or Infinite when unset.
func (i IntervalSpec) MaxOrInfinite() Duration {
	if i.Max == nil {
		return Infinite
	}
	return *i.Max
}

// Canonical converts the document to an Object for hashing.
func (d *Document) Canonical() Object {
	syncs := make(Array, len(d.Syncs))
	for i, s := range d.Syncs {
		events := make(Array, len(s.Events))
		for j, ev := range s.Events {
			status := strings.ToUpper(ev.Status)
			if status == "" {
				status = "NONE"
			}
			events[j] = Object{"id": String(ev.ID), "status": String(status)}
		}
		syncs[i] = Object{
			"id":     String(s.ID),
			"start":  Bool(s.Start),
			"muted":  Bool(s.Muted),
			"events": events,
		}
	}

	intervals := make(Array, len(d.Intervals))
	for i, itv := range d.Intervals {
		intervals[i] = Object{
			"id":      String(itv.ID),
			"from":    String(itv.From),
			"to":      String(itv.To),
			"nominal": String(itv.Nominal.String()),
			"min":     String(itv.Min.String()),
			"max":     String(itv.MaxOrInfinite().String()),
			"muted":   Bool(itv.Muted),
		}
	}

	return Object{
		"name":       String(d.Name),
		"exclusive":  Bool(d.Exclusive),
		"muted":      Bool(d.Muted),
		"start_sync": String(d.StartSyncID()),
		"syncs":      syncs,
		"intervals":  intervals,
		"ir_version": String(IRVersion),
	}
}

// Duration is a time.Duration that reads and writes Go duration strings.
// "inf" stands for Infinite.
type Duration time.Duration

// Infinite is the unbounded duration.
const Infinite = Duration(math.MaxInt64)

// ParseDuration parses a Go duration string or "inf".
func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "inf") {
		return Infinite, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid duration %q: negative", s)
	}
	return Duration(d), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string {
	if d == Infinite {
		return "inf"
	}
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler; JSON and YAML both use it.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
