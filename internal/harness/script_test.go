package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/timeline/internal/engine"
)

func TestLoadScript_ResolvesDocumentRelativeToScript(t *testing.T) {
	script, err := LoadScript("testdata/scripts/branching_left.yaml")
	require.NoError(t, err)

	assert.Equal(t, "branching-left", script.Name)
	assert.Equal(t, "run-branching", script.RunID)
	assert.Equal(t, filepath.Join("testdata", "documents", "branching.yaml"), script.Document)
	require.Len(t, script.Steps, 9)
	assert.Equal(t, engine.KindStart, script.Steps[0].Kind)
	assert.Equal(t, engine.KindTick, script.Steps[1].Kind)
	assert.Equal(t, "left", script.Steps[5].Event)
}

func TestLoadScript_DecodesAssertions(t *testing.T) {
	script, err := LoadScript("testdata/scripts/branching_left.yaml")
	require.NoError(t, err)

	var interval *Assertion
	for i := range script.Assertions {
		if script.Assertions[i].Type == AssertInterval && script.Assertions[i].Step == 7 {
			interval = &script.Assertions[i]
		}
	}
	require.NotNil(t, interval)
	assert.Equal(t, "L", interval.Interval)
	assert.Nil(t, interval.Running)
	require.NotNil(t, interval.Date)
	assert.Equal(t, "3s", interval.Date.String())
}

func TestLoadScript_MissingFile(t *testing.T) {
	_, err := LoadScript("testdata/scripts/does_not_exist.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read script file")
}

func TestLoadScript_MissingDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.yaml")
	content := `
name: orphan
document: nowhere.yaml
steps:
  - kind: start
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadScript(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document not found")
}

func TestParseScript_RejectsUnknownFields(t *testing.T) {
	_, err := ParseScript([]byte(`
name: typo
document: doc.yaml
stepz:
  - kind: start
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScript_RejectsUnknownStepFields(t *testing.T) {
	_, err := ParseScript([]byte(`
name: typo
document: doc.yaml
steps:
  - kind: tick
    delat: 1s
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScript_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "document: d.yaml\nsteps: [{kind: start}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing document",
			yaml:    "name: x\nsteps: [{kind: start}]\n",
			wantErr: "document is required",
		},
		{
			name:    "no steps",
			yaml:    "name: x\ndocument: d.yaml\nsteps: []\n",
			wantErr: "steps list is required",
		},
		{
			name:    "step without kind",
			yaml:    "name: x\ndocument: d.yaml\nsteps: [{sync: s1}]\n",
			wantErr: "steps[0]: kind is required",
		},
		{
			name:    "assertion without type",
			yaml:    "name: x\ndocument: d.yaml\nsteps: [{kind: start}]\nassertions: [{ids: [A]}]\n",
			wantErr: "assertions[0]: type is required",
		},
		{
			name:    "unknown assertion type",
			yaml:    "name: x\ndocument: d.yaml\nsteps: [{kind: start}]\nassertions: [{type: vibes}]\n",
			wantErr: `unknown assertion type "vibes"`,
		},
		{
			name:    "step out of range",
			yaml:    "name: x\ndocument: d.yaml\nsteps: [{kind: start}]\nassertions: [{type: running, step: 2}]\n",
			wantErr: "step 2 out of range",
		},
		{
			name:    "status without event",
			yaml:    "name: x\ndocument: d.yaml\nsteps: [{kind: start}]\nassertions: [{type: status, status: NONE}]\n",
			wantErr: "event is required for status",
		},
		{
			name:    "status with unknown value",
			yaml:    "name: x\ndocument: d.yaml\nsteps: [{kind: start}]\nassertions: [{type: status, event: e, status: MAYBE}]\n",
			wantErr: "unknown event status",
		},
		{
			name:    "interval without expectation",
			yaml:    "name: x\ndocument: d.yaml\nsteps: [{kind: start}]\nassertions: [{type: interval, interval: A}]\n",
			wantErr: "running or date is required",
		},
		{
			name:    "error without step",
			yaml:    "name: x\ndocument: d.yaml\nsteps: [{kind: start}]\nassertions: [{type: error, code: none}]\n",
			wantErr: "step is required for error",
		},
		{
			name:    "error without code",
			yaml:    "name: x\ndocument: d.yaml\nsteps: [{kind: start}]\nassertions: [{type: error, step: 1}]\n",
			wantErr: "code is required for error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScript([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid script")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseScript_MalformedStepIsAccepted(t *testing.T) {
	// A trigger without a sync fails when applied, not when parsed.
	script, err := ParseScript([]byte(`
name: malformed
document: d.yaml
steps:
  - kind: trigger
assertions:
  - type: error
    step: 1
    code: INVALID_COMMAND
`))
	require.NoError(t, err)
	assert.Equal(t, engine.KindTrigger, script.Steps[0].Kind)
}
