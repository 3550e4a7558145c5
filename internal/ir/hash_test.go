package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() *Document {
	limit := Duration(5e9)
	return &Document{
		Name: "branching",
		Syncs: []SyncSpec{
			{ID: "start", Events: []EventSpec{{ID: "start/0", Status: "happened"}}},
			{ID: "s1"},
		},
		Intervals: []IntervalSpec{
			{ID: "A", From: "start", To: "s1", Nominal: Duration(1e9), Max: &limit},
		},
	}
}

func TestDocumentHashDeterminism(t *testing.T) {
	h1, err := DocumentHash(sampleDocument())
	require.NoError(t, err)
	h2, err := DocumentHash(sampleDocument())
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "DocumentHash must be deterministic")
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestDocumentHashIgnoresDescription(t *testing.T) {
	a := sampleDocument()
	b := sampleDocument()
	b.Description = "same graph, different words"

	assert.Equal(t, MustDocumentHash(a), MustDocumentHash(b))
}

func TestDocumentHashChangesWithGraph(t *testing.T) {
	base := MustDocumentHash(sampleDocument())

	renamed := sampleDocument()
	renamed.Intervals[0].ID = "B"
	assert.NotEqual(t, base, MustDocumentHash(renamed))

	unbounded := sampleDocument()
	unbounded.Intervals[0].Max = nil
	assert.NotEqual(t, base, MustDocumentHash(unbounded))

	status := sampleDocument()
	status.Syncs[0].Events[0].Status = "PENDING"
	assert.NotEqual(t, base, MustDocumentHash(status))
}

func TestDocumentHashStatusCaseInsensitive(t *testing.T) {
	upper := sampleDocument()
	upper.Syncs[0].Events[0].Status = "HAPPENED"
	assert.Equal(t, MustDocumentHash(sampleDocument()), MustDocumentHash(upper))
}

func TestTraceHash(t *testing.T) {
	detail := Object{"target": String("A")}

	h1, err := TraceHash("run-1", 1, "start", detail)
	require.NoError(t, err)
	h2, err := TraceHash("run-1", 2, "start", detail)
	require.NoError(t, err)
	h3, err := TraceHash("run-1", 1, "start", nil)
	require.NoError(t, err)

	assert.Len(t, h1, 64)
	assert.NotEqual(t, h1, h2, "seq is part of identity")
	assert.NotEqual(t, h1, h3, "detail is part of identity")
}

func TestHashDomainSeparation(t *testing.T) {
	data := []byte(`{}`)
	assert.NotEqual(t, hashWithDomain(DomainDocument, data), hashWithDomain(DomainTrace, data))
}

func TestTraceRecord_ComputeHash(t *testing.T) {
	rec := TraceRecord{
		RunID:   "run-1",
		Seq:     3,
		Kind:    "tick",
		Detail:  Object{"delta": String("1s")},
		Running: []string{"A"},
		Waiting: []string{"s1"},
	}
	h1, err := rec.ComputeHash()
	require.NoError(t, err)

	again, err := rec.ComputeHash()
	require.NoError(t, err)
	assert.Equal(t, h1, again)

	changed := rec
	changed.Running = []string{"A", "B"}
	h2, err := changed.ComputeHash()
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)

	failed := rec
	failed.Error = "UNKNOWN_ENTITY: sync is not part of the scenario"
	h3, err := failed.ComputeHash()
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}
