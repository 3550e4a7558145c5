package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/timeline/internal/ir"
)

// ReadRun returns the run with the given id, or an error wrapping
// ErrNotFound.
func (s *Store) ReadRun(ctx context.Context, id string) (ir.Run, error) {
	var run ir.Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, document_hash, ir_version, engine_version
		FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &run.Name, &run.DocumentHash, &run.IRVersion, &run.EngineVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Run{}, fmt.Errorf("run %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return ir.Run{}, fmt.Errorf("read run: %w", err)
	}
	return run, nil
}

// ListRuns returns every run ordered by id. UUIDv7 ids sort by creation time.
//
// Returns an empty slice (not nil) when there are no runs.
func (s *Store) ListRuns(ctx context.Context) ([]ir.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, document_hash, ir_version, engine_version
		FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []ir.Run{}
	for rows.Next() {
		var run ir.Run
		if err := rows.Scan(&run.ID, &run.Name, &run.DocumentHash, &run.IRVersion, &run.EngineVersion); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadTrace returns the records of a run ordered by seq.
//
// Returns an empty slice (not nil) if the run has no records.
func (s *Store) ReadTrace(ctx context.Context, runID string) ([]ir.TraceRecord, error) {
	return s.readTrace(ctx, `
		SELECT run_id, seq, kind, target, detail, running, waiting, error, hash
		FROM trace
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
}

// ReadTraceKind returns the records of one command kind, ordered by seq.
func (s *Store) ReadTraceKind(ctx context.Context, runID, kind string) ([]ir.TraceRecord, error) {
	return s.readTrace(ctx, `
		SELECT run_id, seq, kind, target, detail, running, waiting, error, hash
		FROM trace
		WHERE run_id = ? AND kind = ?
		ORDER BY seq ASC
	`, runID, kind)
}

func (s *Store) readTrace(ctx context.Context, query string, args ...any) ([]ir.TraceRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trace: %w", err)
	}
	defer rows.Close()

	records := []ir.TraceRecord{}
	for rows.Next() {
		rec, err := scanTrace(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trace: %w", err)
	}
	return records, nil
}

func scanTrace(rows *sql.Rows) (ir.TraceRecord, error) {
	var rec ir.TraceRecord
	var detail, running, waiting string
	if err := rows.Scan(&rec.RunID, &rec.Seq, &rec.Kind, &rec.Target, &detail, &running, &waiting, &rec.Error, &rec.Hash); err != nil {
		return ir.TraceRecord{}, fmt.Errorf("scan trace: %w", err)
	}

	var err error
	if rec.Detail, err = unmarshalDetail(detail); err != nil {
		return ir.TraceRecord{}, fmt.Errorf("trace %s/%d: %w", rec.RunID, rec.Seq, err)
	}
	if rec.Running, err = unmarshalIDs(running); err != nil {
		return ir.TraceRecord{}, fmt.Errorf("trace %s/%d: %w", rec.RunID, rec.Seq, err)
	}
	if rec.Waiting, err = unmarshalIDs(waiting); err != nil {
		return ir.TraceRecord{}, fmt.Errorf("trace %s/%d: %w", rec.RunID, rec.Seq, err)
	}
	return rec, nil
}
