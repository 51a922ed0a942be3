// Package testutil provides fixtures shared by package tests: temporary
// stores, raw record builders and deterministic id generators.
package testutil

import (
	"context"
	"maps"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/electrolyte/internal/record"
	"github.com/roach88/electrolyte/internal/schema"
	"github.com/roach88/electrolyte/internal/store"
)

// OpenStore opens a migrated SQLite store in a temporary directory and
// closes it when the test ends.
func OpenStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "electrolyte.db")
	s, err := store.Open(context.Background(), store.Config{Driver: store.DriverSQLite, DSN: path}, schema.MustDefault())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// Raw returns raw form input for a valid experiment. Overrides replace the
// defaults; an override of "" clears the field.
func Raw(composition string, overrides map[string]string) map[string]string {
	raw := map[string]string{
		"CompositionID": composition,
		"Date":          "1/15/2024",
		"Trial":         "1",
	}
	maps.Copy(raw, overrides)
	return raw
}

// Build validates raw input against the default registry.
func Build(t *testing.T, raw map[string]string) record.Experiment {
	t.Helper()
	exp, err := schema.MustDefault().Build(raw)
	require.NoError(t, err)
	return exp
}

// Seed builds and upserts each raw record, returning the ids in order.
func Seed(t *testing.T, s *store.Store, raws ...map[string]string) []string {
	t.Helper()
	ids := make([]string, 0, len(raws))
	for _, raw := range raws {
		res, err := s.Upsert(context.Background(), Build(t, raw))
		require.NoError(t, err)
		ids = append(ids, res.ID)
	}
	return ids
}
