package compiler

import (
	"errors"
	"testing"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/timeline/internal/ir"
)

const branchingCUE = `
scenario: branching: {
	description: "start, then a choice between two branches"
	exclusive: true

	syncs: {
		start: events: [{id: "start/0", status: "HAPPENED"}]
		s1: {}
		choice: events: ["left", "right"]
		s2: start: true
	}

	intervals: {
		A: {from: "start", to: "s1", nominal: "1s", max: "inf"}
		L: {from: "left", to: "s2", nominal: "500ms", min: "100ms", max: "2s"}
		R: {from: "right", to: "s2", nominal: "1s", muted: true}
	}
}
`

func compileScenario(t *testing.T, src, path string) (*ir.Document, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	require.NoError(t, v.Err())
	return CompileDocument(v.LookupPath(cue.ParsePath(path)))
}

func TestCompileDocumentBasic(t *testing.T) {
	doc, err := compileScenario(t, branchingCUE, "scenario.branching")
	require.NoError(t, err)

	assert.Equal(t, "branching", doc.Name)
	assert.Equal(t, "start, then a choice between two branches", doc.Description)
	assert.True(t, doc.Exclusive)
	assert.False(t, doc.Muted)

	require.Len(t, doc.Syncs, 4)
	assert.Equal(t, []string{"start", "s1", "choice", "s2"},
		[]string{doc.Syncs[0].ID, doc.Syncs[1].ID, doc.Syncs[2].ID, doc.Syncs[3].ID},
		"declaration order is kept")
	assert.Equal(t, []ir.EventSpec{{ID: "start/0", Status: "HAPPENED"}}, doc.Syncs[0].Events)
	assert.Equal(t, []string{"left", "right"}, doc.Syncs[2].EventIDs())
	assert.True(t, doc.Syncs[3].Start)

	require.Len(t, doc.Intervals, 3)
	a := doc.Intervals[0]
	assert.Equal(t, "A", a.ID)
	assert.Equal(t, ir.Duration(time.Second), a.Nominal)
	assert.Equal(t, ir.Infinite, a.MaxOrInfinite())

	l := doc.Intervals[1]
	assert.Equal(t, ir.Duration(100*time.Millisecond), l.Min)
	require.NotNil(t, l.Max)
	assert.Equal(t, ir.Duration(2*time.Second), *l.Max)

	r := doc.Intervals[2]
	assert.Nil(t, r.Max)
	assert.True(t, r.Muted)
}

func TestCompileDocumentNameOverridesLabel(t *testing.T) {
	doc, err := compileScenario(t, `
		scenario: x: {
			name: "Intro"
			syncs: s1: {}
		}
	`, "scenario.x")
	require.NoError(t, err)
	assert.Equal(t, "Intro", doc.Name)
}

func TestCompileDocumentErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{
			name:  "empty",
			src:   `scenario: e: { description: "nothing" }`,
			field: "syncs",
		},
		{
			name:  "missing to",
			src:   `scenario: e: { intervals: A: { from: "start" } }`,
			field: "intervals.to",
		},
		{
			name:  "numeric duration",
			src:   `scenario: e: { intervals: A: { from: "start", to: "s1", nominal: 5 } }`,
			field: "nominal",
		},
		{
			name:  "bad duration",
			src:   `scenario: e: { intervals: A: { from: "start", to: "s1", max: "forever" } }`,
			field: "max",
		},
		{
			name:  "event without id",
			src:   `scenario: e: { syncs: s1: events: [{status: "NONE"}] }`,
			field: "events.id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileScenario(t, tt.src, "scenario.e")
			require.Error(t, err)

			var ce *CompileError
			require.True(t, errors.As(err, &ce), "want *CompileError, got %T", err)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCompileDocumentWrongType(t *testing.T) {
	_, err := compileScenario(t, `scenario: e: { exclusive: "yes", syncs: s1: {} }`, "scenario.e")
	require.Error(t, err)
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "max", Message: "bad"}
	assert.Equal(t, "max: bad", err.Error())
}
