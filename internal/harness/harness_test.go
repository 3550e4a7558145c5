package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/timeline/internal/engine"
	"github.com/roach88/timeline/internal/ir"
	"github.com/roach88/timeline/internal/testutil"
)

const branchingDoc = "testdata/documents/branching.yaml"

func TestRun_BranchingLeftPasses(t *testing.T) {
	script, err := LoadScript("testdata/scripts/branching_left.yaml")
	require.NoError(t, err)

	result, err := Run(script)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)

	require.Len(t, result.Trace, len(script.Steps))
	for i, rec := range result.Trace {
		assert.Equal(t, int64(i+1), rec.Seq)
		assert.Equal(t, "run-branching", rec.RunID)
		assert.NotEmpty(t, rec.Hash)
	}
	assert.NotEmpty(t, result.Trace[8].Error, "unknown sync must be recorded as a failed step")
}

func TestRun_IslandsExclusive(t *testing.T) {
	script, err := LoadScript("testdata/scripts/islands_exclusive.yaml")
	require.NoError(t, err)

	result, err := Run(script)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	trigger := result.Trace[1]
	assert.Equal(t, "trigger", trigger.Kind)
	assert.Equal(t, ir.Int(1), trigger.Detail["components"])
}

func TestRun_InconsistentStartFailsCleanly(t *testing.T) {
	script, err := LoadScript("testdata/scripts/inconsistent_start.yaml")
	require.NoError(t, err)

	result, err := Run(script)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Contains(t, result.Trace[1].Error, "INCONSISTENT_STATUS")
	assert.Equal(t, testutil.DefaultRunID, result.Trace[0].RunID)
}

func TestRun_RequestsAppliedOnTick(t *testing.T) {
	script := &Script{
		Name:     "requests",
		Document: branchingDoc,
		RunID:    "run-requests",
		Steps: []engine.Command{
			{Kind: engine.KindStart},
			{Kind: engine.KindRequestStop, Interval: "A", Ratio: 0.5},
			{Kind: engine.KindRequestStart, Interval: "R", Ratio: 0},
			{Kind: engine.KindTick, Delta: 500_000_000},
		},
		Assertions: []Assertion{
			{Type: AssertRunning, Step: 3, IDs: []string{"A"}},
			{Type: AssertRunning, Step: 4, IDs: []string{"R"}},
			{Type: AssertInterval, Interval: "R", Running: boolPtr(true), Date: durPtr(500_000_000)},
		},
	}

	result, err := Run(script)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_FailingAssertionsAreReported(t *testing.T) {
	script := &Script{
		Name:     "wrong-expectations",
		Document: branchingDoc,
		Steps: []engine.Command{
			{Kind: engine.KindStart},
			{Kind: engine.KindTrigger},
		},
		Assertions: []Assertion{
			{Type: AssertRunning, Step: 1, IDs: []string{"B"}},
			{Type: AssertError, Step: 2, Code: CodeNone},
			{Type: AssertWaiting, IDs: []string{}},
		},
	}

	result, err := Run(script)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "running (after step 1)")
	assert.Contains(t, result.Errors[1], "INVALID_COMMAND")
	assert.Contains(t, result.Errors[2], "waiting (final state)")
}

func TestRun_Deterministic(t *testing.T) {
	script, err := LoadScript("testdata/scripts/branching_left.yaml")
	require.NoError(t, err)

	first, err := Run(script)
	require.NoError(t, err)
	second, err := Run(script)
	require.NoError(t, err)

	require.Len(t, second.Trace, len(first.Trace))
	for i := range first.Trace {
		assert.Equal(t, first.Trace[i].Hash, second.Trace[i].Hash, "seq %d", first.Trace[i].Seq)
	}
}

func TestRun_InvalidDocument(t *testing.T) {
	script := &Script{
		Name:     "invalid",
		Document: "testdata/documents/inconsistent.yaml",
		Steps:    []engine.Command{{Kind: engine.KindStart}},
	}

	_, err := Run(script)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `document "inconsistent" is invalid`)
	assert.Contains(t, err.Error(), "E108")
}

func TestRun_MissingDocument(t *testing.T) {
	script := &Script{
		Name:     "missing",
		Document: "testdata/documents/nope.yaml",
		Steps:    []engine.Command{{Kind: engine.KindStart}},
	}

	_, err := Run(script)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load document")
}

func TestRunFile(t *testing.T) {
	script, result, err := RunFile(context.Background(), "testdata/scripts/islands_exclusive.yaml")
	require.NoError(t, err)
	assert.Equal(t, "islands-exclusive", script.Name)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}
