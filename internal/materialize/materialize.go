// Package materialize turns a raw query result into a display table and
// writes it out as CSV, JSON or a text table.
//
// Display transforms come from the schema registry (a day count becomes
// MM/DD/YYYY, for example). Any cell still absent afterwards is replaced with
// zero, so consumers never see a missing-value marker.
package materialize

import (
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/electrolyte/internal/record"
	"github.com/roach88/electrolyte/internal/schema"
	"github.com/roach88/electrolyte/internal/store"
)

// Table is a display-ready result. Cells are string, int64 or float64.
type Table struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Apply runs the registry's display transform on every cell and fills absent
// cells with zero. The key column passes through as its hex string.
func Apply(reg *schema.Registry, res *store.Result) Table {
	vars := make([]schema.Variable, len(res.Columns))
	for i, col := range res.Columns {
		if v, ok := reg.Describe(col); ok {
			vars[i] = v
		}
	}

	out := Table{Columns: slices.Clone(res.Columns), Rows: make([][]any, 0, len(res.Rows))}
	for _, row := range res.Rows {
		cells := make([]any, len(row))
		for i, val := range row {
			var cell any
			if vars[i] != nil {
				cell = vars[i].Display(val)
			} else {
				cell = record.Native(val)
			}
			if cell == nil {
				cell = float64(0)
			}
			cells[i] = cell
		}
		out.Rows = append(out.Rows, cells)
	}
	return out
}

// Without returns a copy of t with the named column removed.
func (t Table) Without(column string) Table {
	idx := slices.Index(t.Columns, column)
	if idx < 0 {
		return t
	}
	out := Table{
		Columns: slices.Delete(slices.Clone(t.Columns), idx, idx+1),
		Rows:    make([][]any, 0, len(t.Rows)),
	}
	for _, row := range t.Rows {
		out.Rows = append(out.Rows, slices.Delete(slices.Clone(row), idx, idx+1))
	}
	return out
}

// Sorted returns a copy of t with rows ordered by their formatted cells,
// column by column.
func (t Table) Sorted() Table {
	rows := slices.Clone(t.Rows)
	slices.SortStableFunc(rows, func(a, b []any) int {
		for i := range a {
			if c := strings.Compare(FormatCell(a[i]), FormatCell(b[i])); c != 0 {
				return c
			}
		}
		return 0
	})
	return Table{Columns: t.Columns, Rows: rows}
}

// Column returns the cells of one column, or nil when the column is absent.
func (t Table) Column(name string) []any {
	idx := slices.Index(t.Columns, name)
	if idx < 0 {
		return nil
	}
	out := make([]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, row[idx])
	}
	return out
}

// FormatCell renders one cell as text. Numbers use the shortest exact form.
func FormatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return "0"
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}
