package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/electrolyte/internal/materialize"
)

func sampleTable() materialize.Table {
	return materialize.Table{
		Columns: []string{"ID", "Density", "Date", "DMC_Percentage"},
		Rows: [][]any{
			{"a", 1.2, "01/15/2024", 50.0},
			{"b", 1.1, "01/16/2024", 0.0},
		},
	}
}

func intp(n int) *int { return &n }

func TestEvaluateExpectation_Passes(t *testing.T) {
	failures := EvaluateExpectation(sampleTable(), Expectation{
		Count: intp(2),
		Contains: []map[string]any{
			{"Density": 1.2, "DMC_Percentage": 50},
			{"Date": "01/16/2024"},
		},
		Excludes: []map[string]any{
			{"Density": 1.3},
			{"Salt": "LiPF6"},
		},
	})
	assert.Empty(t, failures)
}

func TestEvaluateExpectation_Count(t *testing.T) {
	failures := EvaluateExpectation(sampleTable(), Expectation{Count: intp(3)})
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "Assertion failed: count")
	assert.Contains(t, failures[0], "Expected: 3 rows")
	assert.Contains(t, failures[0], "Actual: 2 rows")
}

func TestEvaluateExpectation_ContainsMissingRow(t *testing.T) {
	failures := EvaluateExpectation(sampleTable(), Expectation{
		Contains: []map[string]any{{"Density": 1.2, "DMC_Percentage": 0}},
	})
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "row matching {DMC_Percentage=0, Density=1.2}")
	assert.Contains(t, failures[0], "no matching row")
	assert.Contains(t, failures[0], "a, 1.2, 01/15/2024, 50")
}

func TestEvaluateExpectation_ContainsMissingColumn(t *testing.T) {
	failures := EvaluateExpectation(sampleTable(), Expectation{
		Contains: []map[string]any{{"EMC_Percentage": 50}},
	})
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "no column named EMC_Percentage")
}

func TestEvaluateExpectation_Excludes(t *testing.T) {
	failures := EvaluateExpectation(sampleTable(), Expectation{
		Excludes: []map[string]any{{"DMC_Percentage": 0}},
	})
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "Assertion failed: excludes")
	assert.Contains(t, failures[0], "row 2 matches")
}
