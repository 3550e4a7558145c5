package store

import (
	"context"
	"fmt"
)

// GetLastSeq returns the highest seq recorded for a run, or 0 if it has no
// records. An engine resuming the run starts its clock there.
func (s *Store) GetLastSeq(ctx context.Context, runID string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM trace WHERE run_id = ?`, runID,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return seq, nil
}

// TraceIssue is one integrity problem found by VerifyTrace.
type TraceIssue struct {
	Seq     int64
	Message string
}

// VerifyTrace re-hashes every record of a run and checks that seqs are
// contiguous from 1. It returns the problems found, empty if none.
func (s *Store) VerifyTrace(ctx context.Context, runID string) ([]TraceIssue, error) {
	records, err := s.ReadTrace(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("verify trace: %w", err)
	}

	issues := []TraceIssue{}
	var want int64 = 1
	for _, rec := range records {
		if rec.Seq != want {
			issues = append(issues, TraceIssue{Seq: rec.Seq, Message: fmt.Sprintf("expected seq %d", want)})
		}
		want = rec.Seq + 1

		hash, err := rec.ComputeHash()
		if err != nil {
			return nil, fmt.Errorf("verify trace: seq %d: %w", rec.Seq, err)
		}
		if hash != rec.Hash {
			issues = append(issues, TraceIssue{Seq: rec.Seq, Message: "hash mismatch"})
		}
	}
	return issues, nil
}
