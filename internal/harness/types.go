package harness

import (
	"github.com/roach88/electrolyte/internal/materialize"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every rejection and expectation held.
	Pass bool

	// Stored lists the ids of the submitted records, in submission order.
	Stored []string

	// Table is the materialized query result.
	Table materialize.Table

	// Key is the table's identifier column.
	Key string

	// Errors holds one message per failed check. Empty if Pass is true.
	Errors []string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a failed check and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Snapshot is the table used for golden comparison: no ID column and rows
// in a stable order, since ids are content hashes and unreadable in diffs.
func (r *Result) Snapshot() materialize.Table {
	return r.Table.Without(r.Key).Sorted()
}
