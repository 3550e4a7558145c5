package harness

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/timeline/internal/engine"
	"github.com/roach88/timeline/internal/ir"
	"github.com/roach88/timeline/internal/scenario"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     AssertionType
	Step     int    // 0 for the final state
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	if e.Step > 0 {
		fmt.Fprintf(&buf, "Assertion failed: %s (after step %d)\n", e.Type, e.Step)
	} else {
		fmt.Fprintf(&buf, "Assertion failed: %s (final state)\n", e.Type)
	}
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// AssertionContext is the state an assertion is checked against.
type AssertionContext struct {
	Scenario *scenario.Scenario

	// Step is the 1-based step just applied, 0 for the final state.
	Step int

	// StepErr is the error the step returned.
	StepErr error
}

// EvaluateAssertions checks every assertion against actx and returns the
// failure messages.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertRunning:
			err = assertIDs(a, actx.Step, intervalIDs(actx.Scenario.RunningIntervals()))
		case AssertWaiting:
			err = assertIDs(a, actx.Step, syncIDs(actx.Scenario.WaitingNodes()))
		case AssertRoots:
			err = assertIDs(a, actx.Step, syncIDs(actx.Scenario.GetRoots()))
		case AssertStatus:
			err = assertStatus(a, actx)
		case AssertInterval:
			err = assertInterval(a, actx)
		case AssertError:
			err = assertError(a, actx)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

// assertIDs compares two id sets; order is ignored.
func assertIDs(a Assertion, step int, actual []string) error {
	want := slices.Clone(a.IDs)
	got := slices.Clone(actual)
	slices.Sort(want)
	slices.Sort(got)
	if slices.Equal(want, got) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Step:     step,
		Expected: formatIDs(want),
		Actual:   formatIDs(got),
	}
}

func assertStatus(a Assertion, actx *AssertionContext) error {
	ev, ok := actx.Scenario.Event(scenario.EventID(a.Event))
	if !ok {
		return &AssertionError{
			Type:     a.Type,
			Step:     actx.Step,
			Expected: fmt.Sprintf("event %s is %s", a.Event, strings.ToUpper(a.Status)),
			Actual:   "no such event",
		}
	}
	want, err := scenario.ParseStatus(a.Status)
	if err != nil {
		return err
	}
	if ev.Status() == want {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Step:     actx.Step,
		Expected: fmt.Sprintf("event %s is %s", a.Event, want),
		Actual:   ev.Status().String(),
	}
}

func assertInterval(a Assertion, actx *AssertionContext) error {
	itv, ok := actx.Scenario.TimeInterval(scenario.IntervalID(a.Interval))
	if !ok {
		return &AssertionError{
			Type:     a.Type,
			Step:     actx.Step,
			Expected: fmt.Sprintf("interval %s exists", a.Interval),
			Actual:   "no such interval",
		}
	}

	if a.Running != nil && actx.Scenario.IsRunning(itv) != *a.Running {
		return &AssertionError{
			Type:     a.Type,
			Step:     actx.Step,
			Expected: fmt.Sprintf("interval %s running=%t", a.Interval, *a.Running),
			Actual:   fmt.Sprintf("running=%t", !*a.Running),
		}
	}
	if a.Date != nil && itv.Date() != a.Date.Std() {
		return &AssertionError{
			Type:     a.Type,
			Step:     actx.Step,
			Expected: fmt.Sprintf("interval %s date=%s", a.Interval, a.Date),
			Actual:   fmt.Sprintf("date=%s", ir.Duration(itv.Date())),
		}
	}
	return nil
}

func assertError(a Assertion, actx *AssertionContext) error {
	got := errorCode(actx.StepErr)
	if strings.EqualFold(got, a.Code) {
		return nil
	}
	actual := got
	if actx.StepErr != nil {
		actual = actx.StepErr.Error()
	}
	return &AssertionError{
		Type:     a.Type,
		Step:     actx.Step,
		Expected: a.Code,
		Actual:   actual,
	}
}

// errorCode maps a step error to its code: scenario codes first, then engine
// command codes. Anything else is "UNKNOWN".
func errorCode(err error) string {
	if err == nil {
		return CodeNone
	}
	if code := scenario.CodeOf(err); code != "" {
		return string(code)
	}
	var ce *engine.CommandError
	if errors.As(err, &ce) {
		return string(ce.Code)
	}
	return "UNKNOWN"
}

func intervalIDs(itvs []*scenario.TimeInterval) []string {
	ids := make([]string, len(itvs))
	for i, itv := range itvs {
		ids[i] = string(itv.ID())
	}
	return ids
}

func syncIDs(syncs []*scenario.TimeSync) []string {
	ids := make([]string, len(syncs))
	for i, ts := range syncs {
		ids[i] = string(ts.ID())
	}
	return ids
}

func formatIDs(ids []string) string {
	return "[" + strings.Join(ids, " ") + "]"
}
