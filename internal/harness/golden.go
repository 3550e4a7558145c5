package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/timeline/internal/ir"
)

// TraceSnapshot is the golden form of a script run. Record hashes are left
// out; they are covered by store verification.
type TraceSnapshot struct {
	Script string           `json:"script"`
	RunID  string           `json:"run_id"`
	Trace  []ir.TraceRecord `json:"trace"`
}

// canonical converts the snapshot to an ir.Object for ir.MarshalCanonical.
func (s *TraceSnapshot) canonical() ir.Object {
	trace := make(ir.Array, len(s.Trace))
	for i, rec := range s.Trace {
		obj := ir.Object{
			"seq":     ir.Int(rec.Seq),
			"kind":    ir.String(rec.Kind),
			"detail":  rec.Detail,
			"running": ir.Strings(rec.Running...),
			"waiting": ir.Strings(rec.Waiting...),
		}
		if rec.Detail == nil {
			obj["detail"] = ir.Object{}
		}
		if rec.Target != "" {
			obj["target"] = ir.String(rec.Target)
		}
		if rec.Error != "" {
			obj["error"] = ir.String(rec.Error)
		}
		trace[i] = obj
	}
	return ir.Object{
		"script": ir.String(s.Script),
		"run_id": ir.String(s.RunID),
		"trace":  trace,
	}
}

// Snapshot returns the canonical JSON golden form of a result.
func Snapshot(name string, result *Result) ([]byte, error) {
	runID := ""
	if len(result.Trace) > 0 {
		runID = result.Trace[0].RunID
	}
	snapshot := TraceSnapshot{Script: name, RunID: runID, Trace: result.Trace}
	return ir.MarshalCanonical(snapshot.canonical())
}

// RunWithGolden runs a script and compares its trace against
// testdata/golden/{script.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// The returned error is a run failure; a trace mismatch fails t via goldie.
// The result is returned so callers can also check assertions.
func RunWithGolden(t *testing.T, script *Script) (*Result, error) {
	t.Helper()

	result, err := Run(script)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, script.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against the golden file
// named name.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
