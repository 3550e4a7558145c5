package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/timeline/internal/ir"
)

// createTestStore opens a fresh file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun writes a run record and returns it.
func createTestRun(t *testing.T, s *Store, id string) ir.Run {
	t.Helper()
	run := ir.Run{
		ID:            id,
		Name:          "branching",
		DocumentHash:  "doc-hash-" + id,
		IRVersion:     ir.IRVersion,
		EngineVersion: ir.EngineVersion,
	}
	if err := s.WriteRun(context.Background(), run); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	return run
}

// createTestRecord builds a hashed trace record.
func createTestRecord(t *testing.T, runID string, seq int64, kind string, running ...string) ir.TraceRecord {
	t.Helper()
	if running == nil {
		running = []string{}
	}
	rec := ir.TraceRecord{
		RunID:   runID,
		Seq:     seq,
		Kind:    kind,
		Detail:  ir.Object{"n": ir.Int(seq)},
		Running: running,
		Waiting: []string{"start"},
	}
	hash, err := rec.ComputeHash()
	if err != nil {
		t.Fatalf("ComputeHash() failed: %v", err)
	}
	rec.Hash = hash
	return rec
}
