package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/timeline/internal/compiler"
	"github.com/roach88/timeline/internal/engine"
	"github.com/roach88/timeline/internal/ir"
	"github.com/roach88/timeline/internal/scenario"
	"github.com/roach88/timeline/internal/store"
	"github.com/roach88/timeline/internal/testutil"
)

// Harness holds the per-run state of one script execution.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	sc     *scenario.Scenario
	run    ir.Run
}

// Run executes a script and returns the result.
//
// Each script runs in a fresh in-memory database for isolation.
// Execution flow:
//  1. Load, validate and instantiate the document
//  2. Record the run in the store
//  3. Apply each step, checking the assertions attached to it
//  4. Check the final-state assertions
//  5. Verify the stored trace against the applied records
//
// The returned error is an infrastructure failure; failed assertions and
// failed steps end up in the Result.
func Run(script *Script) (*Result, error) {
	return RunContext(context.Background(), script)
}

// RunFile loads the script at path and runs it.
func RunFile(ctx context.Context, path string) (*Script, *Result, error) {
	script, err := LoadScript(path)
	if err != nil {
		return nil, nil, err
	}
	result, err := RunContext(ctx, script)
	return script, result, err
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, script *Script) (*Result, error) {
	h, err := setup(ctx, script)
	if err != nil {
		return nil, err
	}
	defer h.store.Close()

	byStep := make(map[int][]Assertion)
	for _, a := range script.Assertions {
		byStep[a.Step] = append(byStep[a.Step], a)
	}

	result := NewResult()
	for i, cmd := range script.Steps {
		step := i + 1
		rec, err := h.engine.Apply(ctx, cmd)
		if engine.IsSinkError(err) {
			return nil, fmt.Errorf("step %d: %w", step, err)
		}
		result.Trace = append(result.Trace, rec)

		actx := &AssertionContext{Scenario: h.sc, Step: step, StepErr: err}
		for _, msg := range EvaluateAssertions(byStep[step], actx) {
			result.AddError(msg)
		}
	}

	for _, msg := range EvaluateAssertions(byStep[0], &AssertionContext{Scenario: h.sc}) {
		result.AddError(msg)
	}

	if err := h.verifyStored(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// setup builds the scenario, the store and the engine for one run.
func setup(ctx context.Context, script *Script) (*Harness, error) {
	doc, err := compiler.LoadFile(script.Document)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	if verrs := compiler.Validate(doc); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, v := range verrs {
			errs[i] = v
		}
		return nil, fmt.Errorf("document %q is invalid: %w", doc.Name, errors.Join(errs...))
	}

	sc, err := compiler.Instantiate(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate document: %w", err)
	}

	hash, err := ir.DocumentHash(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to hash document: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}

	eng := engine.New(sc, testutil.NewFixedRunGenerator(script.RunID),
		engine.WithTraceSink(st),
		engine.WithNow(testutil.NewDeterministicClock().Now),
	)

	run := ir.Run{
		ID:            eng.RunID(),
		Name:          doc.Name,
		DocumentHash:  hash,
		IRVersion:     ir.IRVersion,
		EngineVersion: ir.EngineVersion,
	}
	if err := st.WriteRun(ctx, run); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to write run: %w", err)
	}

	return &Harness{store: st, engine: eng, sc: sc, run: run}, nil
}

// verifyStored checks that the store holds exactly the applied records and
// that they pass integrity verification.
func (h *Harness) verifyStored(ctx context.Context, result *Result) error {
	stored, err := h.store.ReadTrace(ctx, h.run.ID)
	if err != nil {
		return fmt.Errorf("failed to read trace: %w", err)
	}
	if len(stored) != len(result.Trace) {
		result.AddError(fmt.Sprintf("store holds %d trace records, expected %d", len(stored), len(result.Trace)))
	}
	for i := range min(len(stored), len(result.Trace)) {
		if stored[i].Hash != result.Trace[i].Hash {
			result.AddError(fmt.Sprintf("stored trace record %d differs from the applied one", stored[i].Seq))
		}
	}

	issues, err := h.store.VerifyTrace(ctx, h.run.ID)
	if err != nil {
		return fmt.Errorf("failed to verify trace: %w", err)
	}
	for _, issue := range issues {
		result.AddError(fmt.Sprintf("trace seq %d: %s", issue.Seq, issue.Message))
	}
	return nil
}
