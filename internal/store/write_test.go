package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/timeline/internal/ir"
)

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	run := createTestRun(t, s, "run-1")

	require.NoError(t, s.WriteRun(ctx, run), "same run twice is a no-op")

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ir.Run{run}, runs)
}

func TestWriteRun_ConflictingDocument(t *testing.T) {
	s := createTestStore(t)
	run := createTestRun(t, s, "run-1")

	run.DocumentHash = "other"
	err := s.WriteRun(context.Background(), run)

	require.Error(t, err)
	assert.True(t, IsConflict(err))
}

func TestWriteTrace_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")
	rec := createTestRecord(t, "run-1", 1, "start", "A")

	require.NoError(t, s.WriteTrace(ctx, rec))
	require.NoError(t, s.WriteTrace(ctx, rec))

	records, err := s.ReadTrace(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestWriteTrace_ConflictingRecord(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")
	require.NoError(t, s.WriteTrace(ctx, createTestRecord(t, "run-1", 1, "start", "A")))

	err := s.WriteTrace(ctx, createTestRecord(t, "run-1", 1, "start", "B"))

	require.Error(t, err)
	assert.True(t, IsConflict(err))
	assert.Contains(t, err.Error(), "run-1/1")
}

func TestWriteTrace_RequiresRun(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteTrace(context.Background(), createTestRecord(t, "ghost", 1, "start"))

	require.Error(t, err, "foreign key on runs(id)")
	assert.False(t, IsConflict(err))
}

func TestWriteTrace_StoresCanonicalDetail(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1")
	rec := createTestRecord(t, "run-1", 1, "tick")
	rec.Detail = ir.Object{"z": ir.Int(1), "a": ir.String("<b>")}
	hash, err := rec.ComputeHash()
	require.NoError(t, err)
	rec.Hash = hash

	require.NoError(t, s.WriteTrace(ctx, rec))

	var detail string
	require.NoError(t, s.db.QueryRow(`SELECT detail FROM trace WHERE run_id = ? AND seq = 1`, "run-1").Scan(&detail))
	assert.Equal(t, `{"a":"<b>","z":1}`, detail)
}
