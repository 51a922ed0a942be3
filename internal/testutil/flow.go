package testutil

// FixedBatchGenerator generates the same import batch id every time.
//
// Import logs and scenario output carry the batch id, so tests that compare
// output byte-for-byte need it pinned.
//
// Thread-safety: FixedBatchGenerator is stateless and safe for concurrent use.
type FixedBatchGenerator struct {
	id string
}

// NewFixedBatchGenerator creates a new fixed batch id generator.
//
// If id is empty, Generate() returns "test-batch-default".
func NewFixedBatchGenerator(id string) *FixedBatchGenerator {
	if id == "" {
		id = "test-batch-default"
	}
	return &FixedBatchGenerator{id: id}
}

// Generate returns the fixed batch id.
//
// Implements engine.BatchIDGenerator.
func (g *FixedBatchGenerator) Generate() string {
	return g.id
}
