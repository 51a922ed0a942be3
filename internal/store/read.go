package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/roach88/electrolyte/internal/record"
	"github.com/roach88/electrolyte/internal/schema"
)

// Get reads an experiment back: its header fields and its components.
// Components are ordered by name. Returns ErrNotFound for an unknown ID.
func (s *Store) Get(ctx context.Context, id string) (record.Experiment, error) {
	header := s.reg.Header()
	vars := s.reg.Variables()

	cols := make([]string, 0, len(vars))
	for _, v := range vars {
		cols = append(cols, q(v.Name()))
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		strings.Join(cols, ", "), q(header.Table), q(header.ID), s.ph(1))

	raw := make([]any, len(vars))
	dest := make([]any, len(vars))
	for i := range raw {
		dest[i] = &raw[i]
	}
	err := s.db.QueryRowContext(ctx, query, id).Scan(dest...)
	if err == sql.ErrNoRows {
		return record.Experiment{}, ErrNotFound
	}
	if err != nil {
		return record.Experiment{}, wrap("get", err)
	}

	exp := record.Experiment{
		ID:         id,
		Fields:     make(record.Fields, len(vars)),
		Components: make(map[string][]record.Component),
	}
	for i, v := range vars {
		val, err := scanValue(raw[i], v.Column())
		if err != nil {
			return record.Experiment{}, &StorageError{Op: "get", Kind: Permanent, Err: fmt.Errorf("%s: %w", v.Name(), err)}
		}
		exp.Fields[v.Name()] = val
	}

	for _, c := range s.reg.Components() {
		comps, err := s.components(ctx, c, id)
		if err != nil {
			return record.Experiment{}, err
		}
		exp.Components[c.Category] = comps
	}
	return exp, nil
}

func (s *Store) components(ctx context.Context, c schema.ComponentCategory, id string) ([]record.Component, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s = %s ORDER BY %s",
			q(c.NameColumn), q(c.ValueColumn), q(c.Table), q(s.reg.Header().ID), s.ph(1), q(c.NameColumn)),
		id,
	)
	if err != nil {
		return nil, wrap("get", err)
	}
	defer rows.Close()

	comps := []record.Component{}
	for rows.Next() {
		var comp record.Component
		if err := rows.Scan(&comp.Name, &comp.Value); err != nil {
			return nil, wrap("get", err)
		}
		comps = append(comps, comp)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("get", err)
	}
	return comps, nil
}

// Counts returns the number of rows stored for id, per table name.
func (s *Store) Counts(ctx context.Context, id string) (map[string]int, error) {
	header := s.reg.Header()
	tables := []string{header.Table}
	for _, c := range s.reg.Components() {
		tables = append(tables, c.Table)
	}

	counts := make(map[string]int, len(tables))
	for _, table := range tables {
		var n int
		err := s.db.QueryRowContext(ctx,
			fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = %s", q(table), q(header.ID), s.ph(1)), id,
		).Scan(&n)
		if err != nil {
			return nil, wrap("counts", err)
		}
		counts[table] = n
	}
	return counts, nil
}

// Total returns the number of stored experiments.
func (s *Store) Total(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+q(s.reg.Header().Table)).Scan(&n)
	if err != nil {
		return 0, wrap("total", err)
	}
	return n, nil
}

// Choices lists filter options per category: header groups with their
// variables, then each component category with the distinct component names
// stored so far.
func (s *Store) Choices(ctx context.Context) ([]schema.Choice, error) {
	choices := s.reg.HeaderChoices()

	for _, c := range s.reg.Components() {
		rows, err := s.db.QueryContext(ctx,
			fmt.Sprintf("SELECT DISTINCT %s FROM %s", q(c.NameColumn), q(c.Table)))
		if err != nil {
			return nil, wrap("choices", err)
		}
		opts := []string{}
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				rows.Close()
				return nil, wrap("choices", err)
			}
			opts = append(opts, name)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, wrap("choices", err)
		}
		schema.SortOptions(opts)
		choices = append(choices, schema.Choice{Title: c.Category, Options: opts})
	}
	return choices, nil
}

// scanValue converts a scanned column into a record value of the column's
// storage type.
func scanValue(raw any, t schema.ColumnType) (record.Value, error) {
	v, err := record.FromNative(raw)
	if err != nil {
		return nil, err
	}
	switch val := v.(type) {
	case record.Int:
		if t == schema.ColumnReal {
			return record.Decimal(val), nil
		}
	case record.Decimal:
		if t == schema.ColumnInteger && float64(val) == math.Trunc(float64(val)) {
			return record.Int(int64(val)), nil
		}
	}
	return v, nil
}
