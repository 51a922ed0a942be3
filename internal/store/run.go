package store

import (
	"context"
	"fmt"

	"github.com/roach88/electrolyte/internal/compiler"
	"github.com/roach88/electrolyte/internal/querysql"
	"github.com/roach88/electrolyte/internal/record"
	"github.com/roach88/electrolyte/internal/schema"
)

// Result is a compiled query's raw output: stored values, before display
// transforms. Rows are ordered by ID.
type Result struct {
	Columns []string
	Rows    [][]record.Value
}

// Len returns the number of rows.
func (r *Result) Len() int { return len(r.Rows) }

// Render compiles a plan to SQL for this store's dialect.
func (s *Store) Render(plan *compiler.Plan) (string, []any, error) {
	return querysql.NewSQLCompiler(s.dialect).Compile(plan.Query)
}

// Run executes a compiled plan. A failure is returned, never an empty or
// partial result.
func (s *Store) Run(ctx context.Context, plan *compiler.Plan) (*Result, error) {
	query, params, err := s.Render(plan)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, wrap("query", err)
	}
	defer rows.Close()

	columns := plan.Columns()
	types := s.columnTypes(plan)

	result := &Result{Columns: columns, Rows: [][]record.Value{}}
	raw := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range raw {
		dest[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, wrap("query", err)
		}
		row := make([]record.Value, len(columns))
		for i := range raw {
			v, err := scanValue(raw[i], types[i])
			if err != nil {
				return nil, &StorageError{Op: "query", Kind: Permanent, Err: fmt.Errorf("%s: %w", columns[i], err)}
			}
			row[i] = v
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("query", err)
	}
	return result, nil
}

// columnTypes gives the storage type of each plan output column.
func (s *Store) columnTypes(plan *compiler.Plan) []schema.ColumnType {
	types := make([]schema.ColumnType, 0, len(plan.Columns()))
	types = append(types, schema.ColumnText)
	for _, name := range plan.Query.Columns {
		t := schema.ColumnReal
		if v, ok := s.reg.Describe(name); ok {
			t = v.Column()
		}
		types = append(types, t)
	}
	for range plan.Query.Values {
		types = append(types, schema.ColumnReal)
	}
	return types
}
