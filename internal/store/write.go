package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/timeline/internal/ir"
)

// WriteRun inserts a run record. Writing the same run again is a no-op;
// reusing a run id for a different document is a ConflictError.
func (s *Store) WriteRun(ctx context.Context, run ir.Run) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, name, document_hash, ir_version, engine_version)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.Name, run.DocumentHash, run.IRVersion, run.EngineVersion)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	stored, err := s.ReadRun(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	if stored.DocumentHash != run.DocumentHash {
		return &ConflictError{Table: "runs", Key: run.ID, Stored: stored.DocumentHash, Given: run.DocumentHash}
	}
	return nil
}

// WriteTrace inserts a trace record. Idempotent on (run_id, seq): the same
// record written twice is stored once, while a record whose hash differs
// from the stored one is a ConflictError.
//
// The run must have been written first (foreign key).
func (s *Store) WriteTrace(ctx context.Context, rec ir.TraceRecord) error {
	detail, err := marshalDetail(rec.Detail)
	if err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	running, err := marshalIDs(rec.Running)
	if err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	waiting, err := marshalIDs(rec.Waiting)
	if err != nil {
		return fmt.Errorf("write trace: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write trace: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx, `
		INSERT INTO trace (run_id, seq, kind, target, detail, running, waiting, error, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`, rec.RunID, rec.Seq, rec.Kind, rec.Target, detail, running, waiting, rec.Error, rec.Hash)
	if err != nil {
		return fmt.Errorf("write trace: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		var stored string
		err := tx.QueryRowContext(ctx,
			`SELECT hash FROM trace WHERE run_id = ? AND seq = ?`, rec.RunID, rec.Seq,
		).Scan(&stored)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("write trace: record %s/%d neither inserted nor found", rec.RunID, rec.Seq)
		}
		if err != nil {
			return fmt.Errorf("write trace: read existing: %w", err)
		}
		if stored != rec.Hash {
			return &ConflictError{
				Table:  "trace",
				Key:    fmt.Sprintf("%s/%d", rec.RunID, rec.Seq),
				Stored: stored,
				Given:  rec.Hash,
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write trace: commit: %w", err)
	}
	return nil
}
