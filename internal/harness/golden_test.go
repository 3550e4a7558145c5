package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/timeline/internal/ir"
)

func TestRunWithGolden_BranchingLeft(t *testing.T) {
	script, err := LoadScript("testdata/scripts/branching_left.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, script)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestTraceSnapshot_LeavesOutHashAndEmptyFields(t *testing.T) {
	snap := TraceSnapshot{
		Script: "snap",
		RunID:  "run-snap",
		Trace: []ir.TraceRecord{
			{RunID: "run-snap", Seq: 1, Kind: "start", Hash: "abc"},
			{RunID: "run-snap", Seq: 2, Kind: "trigger", Target: "nope", Error: "boom", Hash: "def"},
		},
	}

	trace, ok := snap.canonical()["trace"].(ir.Array)
	require.True(t, ok)
	require.Len(t, trace, 2)

	first := trace[0].(ir.Object)
	assert.NotContains(t, first, "hash")
	assert.NotContains(t, first, "target")
	assert.NotContains(t, first, "error")
	assert.Equal(t, ir.Object{}, first["detail"])
	assert.Equal(t, ir.Array{}, first["running"])

	second := trace[1].(ir.Object)
	assert.Equal(t, ir.String("nope"), second["target"])
	assert.Equal(t, ir.String("boom"), second["error"])
}
