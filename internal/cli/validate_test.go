package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidDocument(t *testing.T) {
	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), filepath.Join(documentsDir, "branching.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ branching")
	assert.Contains(t, out, "✓ All documents valid")
}

func TestValidateCUEDocument(t *testing.T) {
	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), filepath.Join("..", "compiler", "testdata", "branching.cue"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ branching")
}

func TestValidateValidDocumentJSON(t *testing.T) {
	out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), filepath.Join(documentsDir, "branching.yaml"))
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	require.Len(t, resp.Data.Documents, 1)
	assert.Equal(t, "branching", resp.Data.Documents[0].Name)
	assert.Equal(t, 4, resp.Data.Documents[0].Syncs)
	assert.NotEmpty(t, resp.Data.Documents[0].Hash)
}

func TestValidateInconsistentStatuses(t *testing.T) {
	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), filepath.Join(documentsDir, "inconsistent.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ inconsistent")
	assert.Contains(t, out, "E108")
	assert.Contains(t, out, "Validation failed")
}

func TestValidateInvalidDocumentJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "dangling.yaml", `name: dangling
syncs:
  - id: start
intervals:
  - id: A
    from: start
    to: nowhere
    nominal: 1s
`)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E106", resp.Error.Code)
	assert.Empty(t, resp.Data.Documents[0].Hash, "invalid documents carry no hash")
}

func TestValidateReportsLoops(t *testing.T) {
	out, _ := execute(NewValidateCommand(&RootOptions{Format: "text"}), filepath.Join("..", "compiler", "testdata", "loop.yaml"))
	assert.Contains(t, out, "warning: Loop between syncs: s1 → s2 → s1")
}

func TestValidateAcceptsSelfLoop(t *testing.T) {
	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), filepath.Join("..", "compiler", "testdata", "selfloop.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ selfloop")
	assert.Contains(t, out, "warning: Interval loops on sync: s1 → s1")
}

func TestValidateNonExistentPath(t *testing.T) {
	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), "/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]")
	assert.Contains(t, out, "path not found")
}

func TestValidateMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", "name: bad\nsyncs: [\n")

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")
}
