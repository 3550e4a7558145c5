// Package ir holds the authored form of a timeline scenario and the
// canonical encoding used to identify it.
//
// A Document is what authors write (CUE or YAML) and what the compiler
// validates before building a live scenario.Scenario from it. Trace details
// recorded by the engine are Objects, so they serialize deterministically.
//
// ir imports nothing internal; every other package may import it.
//
// Key constraints:
//   - No float values: ratios travel as strings, durations as Duration
//   - All JSON/YAML tags use snake_case
//   - Sequence numbers come from the logical clock, never wall time
package ir
