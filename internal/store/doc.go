// Package store provides SQLite-backed storage for run traces.
//
// Two tables:
//   - runs: one row per engine run, keyed by run id, carrying the hash of
//     the document it executed
//   - trace: one row per applied command, keyed by (run_id, seq)
//
// # Patterns
//
// Logical time:
//   - All ordering uses seq INTEGER from the engine clock, never timestamps
//   - Reads are ORDER BY seq ASC, so a replay reads back identically
//
// Idempotent writes:
//   - Writing the same run or trace record twice is a no-op
//   - Writing a different record under an existing key is a ConflictError,
//     detected by comparing content hashes
//
// Detail, running and waiting columns hold canonical JSON produced by
// ir.MarshalCanonical.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON: trace rows need their run
package store
