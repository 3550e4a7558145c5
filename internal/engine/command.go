package engine

import (
	"strconv"

	"github.com/roach88/timeline/internal/ir"
)

// CommandKind names a control operation on the scenario.
type CommandKind string

const (
	KindStart          CommandKind = "start"
	KindStop           CommandKind = "stop"
	KindPause          CommandKind = "pause"
	KindResume         CommandKind = "resume"
	KindTick           CommandKind = "tick"
	KindSetStatus      CommandKind = "set_status"
	KindTrigger        CommandKind = "trigger"
	KindRequestStart   CommandKind = "request_start"
	KindRequestStop    CommandKind = "request_stop"
	KindResetComponent CommandKind = "reset_component"
	KindResetAllExcept CommandKind = "reset_all_except"
	KindMute           CommandKind = "mute"
	KindRemoveInterval CommandKind = "remove_interval"
	KindRemoveSync     CommandKind = "remove_sync"
)

// Kinds lists every command kind in declaration order.
var Kinds = []CommandKind{
	KindStart, KindStop, KindPause, KindResume, KindTick, KindSetStatus,
	KindTrigger, KindRequestStart, KindRequestStop, KindResetComponent,
	KindResetAllExcept, KindMute, KindRemoveInterval, KindRemoveSync,
}

// Command is one control operation submitted to the engine. Only the fields
// relevant to Kind are read:
//
//	tick                              Delta
//	set_status                        Event, Status
//	trigger                           Sync, optional Event (default: first)
//	request_start, request_stop       Interval, Ratio
//	reset_component, reset_all_except Sync
//	mute                              Flag, optional Interval or Sync
//	pause, resume                     optional Interval
//	remove_interval                   Interval
//	remove_sync                       Sync
type Command struct {
	Kind     CommandKind `json:"kind" yaml:"kind"`
	Sync     string      `json:"sync,omitempty" yaml:"sync,omitempty"`
	Event    string      `json:"event,omitempty" yaml:"event,omitempty"`
	Interval string      `json:"interval,omitempty" yaml:"interval,omitempty"`
	Status   string      `json:"status,omitempty" yaml:"status,omitempty"`
	Ratio    float64     `json:"ratio,omitempty" yaml:"ratio,omitempty"`
	Delta    ir.Duration `json:"delta,omitempty" yaml:"delta,omitempty"`
	Flag     bool        `json:"flag,omitempty" yaml:"flag,omitempty"`
}

// Target returns the handle the command acts on, or "" for scenario-wide
// commands. An interval wins over an event, an event over a sync.
func (c Command) Target() string {
	switch {
	case c.Interval != "":
		return c.Interval
	case c.Event != "":
		return c.Event
	default:
		return c.Sync
	}
}

// Validate checks that the fields Kind needs are present. It does not look
// the handles up; that happens when the command is applied.
func (c Command) Validate() error {
	need := func(field, value string) error {
		if value == "" {
			return &CommandError{
				Code:    ErrCodeInvalidCommand,
				Message: field + " is required",
				Kind:    c.Kind,
			}
		}
		return nil
	}

	switch c.Kind {
	case KindStart, KindStop, KindPause, KindResume, KindMute:
		return nil
	case KindTick:
		if c.Delta < 0 {
			return &CommandError{Code: ErrCodeInvalidCommand, Message: "delta must not be negative", Kind: c.Kind}
		}
		return nil
	case KindSetStatus:
		if err := need("event", c.Event); err != nil {
			return err
		}
		return need("status", c.Status)
	case KindTrigger, KindResetComponent, KindResetAllExcept, KindRemoveSync:
		return need("sync", c.Sync)
	case KindRequestStart, KindRequestStop, KindRemoveInterval:
		return need("interval", c.Interval)
	}
	return &CommandError{
		Code:    ErrCodeInvalidCommand,
		Message: "unknown command kind",
		Kind:    c.Kind,
	}
}

func formatRatio(r float64) string {
	return strconv.FormatFloat(r, 'g', -1, 64)
}
