package testutil

// DefaultRunID is returned by a FixedRunGenerator created with an empty id.
const DefaultRunID = "test-run-default"

// FixedRunGenerator returns the same run id every time.
//
// Unlike engine.FixedGenerator, which hands out a list of ids in order and
// then panics, this generator never runs out. A script run with the same
// FixedRunGenerator produces byte-identical trace records.
//
// Thread-safety: FixedRunGenerator is stateless and safe for concurrent use.
type FixedRunGenerator struct {
	id string
}

// NewFixedRunGenerator creates a generator for id. The id is typically set
// in the script YAML:
//
//	run_id: run-branching
func NewFixedRunGenerator(id string) *FixedRunGenerator {
	if id == "" {
		id = DefaultRunID
	}
	return &FixedRunGenerator{id: id}
}

// Generate implements engine.RunTokenGenerator.
func (g *FixedRunGenerator) Generate() string {
	return g.id
}
