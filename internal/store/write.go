package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/electrolyte/internal/record"
)

// UpsertResult reports what an upsert did to one record.
type UpsertResult struct {
	ID string
	// Replaced is true when rows for the ID existed before the upsert.
	Replaced bool
}

// BatchResult lists every record applied by UpsertBatch, in input order.
type BatchResult struct {
	Applied []UpsertResult
}

// Replaced counts records that overwrote an existing experiment.
func (b BatchResult) Replaced() int {
	n := 0
	for _, r := range b.Applied {
		if r.Replaced {
			n++
		}
	}
	return n
}

// Upsert stores exp, replacing any rows already stored under its ID.
//
// The ID is re-derived from the fields; an experiment whose ID does not
// match its content is rejected. After Upsert returns, the header table
// holds exactly one row for the ID and each component table holds exactly
// the experiment's components.
func (s *Store) Upsert(ctx context.Context, exp record.Experiment) (UpsertResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return UpsertResult{}, wrap("upsert", err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := s.upsertTx(ctx, tx, exp)
	if err != nil {
		return UpsertResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return UpsertResult{}, wrap("upsert", err)
	}
	return res, nil
}

// UpsertBatch applies every experiment in one transaction. Either all of
// them are stored or, on the first failure, none are. Records repeated
// within the batch collapse to one stored experiment; the later copy reports
// Replaced.
func (s *Store) UpsertBatch(ctx context.Context, exps []record.Experiment) (BatchResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return BatchResult{}, wrap("upsert batch", err)
	}
	defer tx.Rollback() // No-op if committed

	result := BatchResult{Applied: make([]UpsertResult, 0, len(exps))}
	for i, exp := range exps {
		res, err := s.upsertTx(ctx, tx, exp)
		if err != nil {
			return BatchResult{}, fmt.Errorf("record %d: %w", i, err)
		}
		result.Applied = append(result.Applied, res)
	}

	if err := tx.Commit(); err != nil {
		return BatchResult{}, wrap("upsert batch", err)
	}
	return result, nil
}

func (s *Store) upsertTx(ctx context.Context, tx *sql.Tx, exp record.Experiment) (UpsertResult, error) {
	id, err := record.DeriveID(exp.Fields)
	if err != nil {
		return UpsertResult{}, &StorageError{Op: "upsert", Kind: Permanent, Err: err}
	}
	if exp.ID != "" && exp.ID != id {
		return UpsertResult{}, &StorageError{Op: "upsert", Kind: Permanent, Err: fmt.Errorf(
			"experiment id %s does not match its content (want %s)", exp.ID, id)}
	}
	for category := range exp.Components {
		if _, ok := s.reg.Component(category); !ok {
			return UpsertResult{}, &StorageError{Op: "upsert", Kind: Permanent, Err: fmt.Errorf(
				"unknown component category %q", category)}
		}
	}

	header := s.reg.Header()

	var existing int
	err = tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = %s", q(header.Table), q(header.ID), s.ph(1)),
		id,
	).Scan(&existing)
	if err != nil {
		return UpsertResult{}, wrap("upsert", err)
	}

	// Children first so the delete never depends on cascade support.
	for _, c := range s.reg.Components() {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE %s = %s", q(c.Table), q(header.ID), s.ph(1)), id,
		); err != nil {
			return UpsertResult{}, wrap("upsert", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s = %s", q(header.Table), q(header.ID), s.ph(1)), id,
	); err != nil {
		return UpsertResult{}, wrap("upsert", err)
	}

	cols := []string{q(header.ID)}
	args := []any{id}
	for _, v := range s.reg.Variables() {
		cols = append(cols, q(v.Name()))
		args = append(args, record.Native(exp.Fields[v.Name()]))
	}
	marks := make([]string, len(cols))
	for i := range marks {
		marks[i] = s.ph(i + 1)
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", q(header.Table), strings.Join(cols, ", "), strings.Join(marks, ", ")),
		args...,
	); err != nil {
		return UpsertResult{}, wrap("upsert", err)
	}

	for _, c := range s.reg.Components() {
		stmt := fmt.Sprintf("INSERT INTO %s (%s, %s, %s) VALUES (%s, %s, %s)",
			q(c.Table), q(header.ID), q(c.NameColumn), q(c.ValueColumn),
			s.ph(1), s.ph(2), s.ph(3))
		for _, comp := range exp.Components[c.Category] {
			if _, err := tx.ExecContext(ctx, stmt, id, comp.Name, comp.Value); err != nil {
				return UpsertResult{}, wrap("upsert", fmt.Errorf("%s %q: %w", c.Category, comp.Name, err))
			}
		}
	}

	return UpsertResult{ID: id, Replaced: existing > 0}, nil
}
