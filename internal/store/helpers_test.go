package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/electrolyte/internal/record"
	"github.com/roach88/electrolyte/internal/schema"
)

// createTestStore opens a fresh SQLite store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	return openAt(t, filepath.Join(t.TempDir(), "test.db"))
}

func openAt(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{Driver: DriverSQLite, DSN: path}, schema.MustDefault())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// buildExperiment validates raw input against the default registry,
// filling in required fields the test does not care about.
func buildExperiment(t *testing.T, raw map[string]string) record.Experiment {
	t.Helper()
	full := map[string]string{
		"Date":  "1/15/2024",
		"Trial": "1",
	}
	for k, v := range raw {
		full[k] = v
	}
	exp, err := schema.MustDefault().Build(full)
	require.NoError(t, err)
	return exp
}
