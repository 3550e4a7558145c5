// Package harness runs conformance scripts against the timeline engine.
//
// A script names a scenario document, a list of engine commands and the
// state expected along the way. Each run compiles the document, drives a
// fresh engine through the steps and checks every assertion.
//
// # Script Format
//
//	name: branching-left
//	description: "take the left branch of a choice"
//	document: ../documents/branching.yaml
//	run_id: run-branching
//	steps:
//	  - kind: start
//	  - kind: tick
//	    delta: 1s
//	  - kind: trigger
//	    sync: s1
//	assertions:
//	  - type: running
//	    step: 3
//	    ids: [B]
//	  - type: status
//	    event: s1/0
//	    status: HAPPENED
//
// Steps are engine.Command values. The document path is relative to the
// script file.
//
// # Assertion Types
//
//   - running: the running intervals are exactly ids (any order)
//   - waiting: the waiting syncs are exactly ids (any order)
//   - roots: the current roots are exactly ids (any order)
//   - status: event has status
//   - interval: interval is running or not, and optionally its date
//   - error: the step failed with code, or succeeded when code is "none"
//
// An assertion with a step is checked right after that step (1-based);
// without one it is checked after the last step. error assertions always
// need a step.
//
// # Deterministic Testing
//
// The harness uses:
//   - A fixed run id (script.run_id, default testutil.DefaultRunID)
//   - A stepping wall clock (testutil.DeterministicClock)
//   - An in-memory SQLite trace store, isolated per run
//
// so the same script always yields byte-identical trace records, which
// RunWithGolden compares against testdata/golden.
package harness
