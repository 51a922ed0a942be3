package harness

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/electrolyte/internal/materialize"
)

// Expectation types, used in AssertionError.Type.
const (
	ExpectCount    = "count"
	ExpectContains = "contains"
	ExpectExcludes = "excludes"
)

// AssertionError is returned when an expectation fails.
// It includes the result table to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Table    materialize.Table
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nResult (%d rows):\n", e.Table.Len())
	fmt.Fprintf(&buf, "  %s\n", strings.Join(e.Table.Columns, ", "))
	for _, row := range e.Table.Rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = materialize.FormatCell(cell)
		}
		fmt.Fprintf(&buf, "  %s\n", strings.Join(cells, ", "))
	}
	return buf.String()
}

// EvaluateExpectation checks a table against an expectation and returns one
// message per failure.
func EvaluateExpectation(table materialize.Table, expect Expectation) []string {
	var failures []string
	add := func(err error) {
		if err != nil {
			failures = append(failures, err.Error())
		}
	}

	if expect.Count != nil {
		add(assertCount(table, *expect.Count))
	}
	for _, want := range expect.Contains {
		add(assertContains(table, want))
	}
	for _, unwanted := range expect.Excludes {
		add(assertExcludes(table, unwanted))
	}
	return failures
}

func assertCount(table materialize.Table, want int) error {
	if table.Len() == want {
		return nil
	}
	return &AssertionError{
		Type:     ExpectCount,
		Expected: fmt.Sprintf("%d rows", want),
		Actual:   fmt.Sprintf("%d rows", table.Len()),
		Table:    table,
	}
}

// assertContains checks that at least one row matches every given column.
func assertContains(table materialize.Table, want map[string]any) error {
	if missing := missingColumns(table, want); len(missing) > 0 {
		return &AssertionError{
			Type:     ExpectContains,
			Expected: fmt.Sprintf("row matching %s", formatRow(want)),
			Actual:   fmt.Sprintf("no column named %s", strings.Join(missing, ", ")),
			Table:    table,
		}
	}
	for _, row := range table.Rows {
		if rowMatches(table.Columns, row, want) {
			return nil
		}
	}
	return &AssertionError{
		Type:     ExpectContains,
		Expected: fmt.Sprintf("row matching %s", formatRow(want)),
		Actual:   "no matching row",
		Table:    table,
	}
}

// assertExcludes checks that no row matches every given column. A column the
// table does not have cannot match.
func assertExcludes(table materialize.Table, unwanted map[string]any) error {
	if len(missingColumns(table, unwanted)) > 0 {
		return nil
	}
	for i, row := range table.Rows {
		if rowMatches(table.Columns, row, unwanted) {
			return &AssertionError{
				Type:     ExpectExcludes,
				Expected: fmt.Sprintf("no row matching %s", formatRow(unwanted)),
				Actual:   fmt.Sprintf("row %d matches", i+1),
				Table:    table,
			}
		}
	}
	return nil
}

// rowMatches compares cells by formatted text (subset semantics).
func rowMatches(columns []string, row []any, want map[string]any) bool {
	for col, val := range want {
		idx := slices.Index(columns, col)
		if idx < 0 {
			return false
		}
		if materialize.FormatCell(row[idx]) != materialize.FormatCell(val) {
			return false
		}
	}
	return true
}

func missingColumns(table materialize.Table, want map[string]any) []string {
	var missing []string
	for col := range want {
		if !slices.Contains(table.Columns, col) {
			missing = append(missing, col)
		}
	}
	sort.Strings(missing)
	return missing
}

// formatRow renders a row subset with sorted keys for stable messages.
func formatRow(row map[string]any) string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + materialize.FormatCell(row[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
