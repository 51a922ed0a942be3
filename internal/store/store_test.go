package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/electrolyte/internal/record"
	"github.com/roach88/electrolyte/internal/schema"
)

func TestOpen_CreatesTables(t *testing.T) {
	s := createTestStore(t)

	for _, table := range []string{"experiments", "solvents", "salts", "electrolyte_meta"} {
		var name string
		err := s.DB().QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	var mode string
	require.NoError(t, s.DB().QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, s.DB().QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s := openAt(t, path)
	_, err := s.Upsert(context.Background(), buildExperiment(t, map[string]string{
		"CompositionID": "DMC|100|LiPF6|1",
	}))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2 := openAt(t, path)
	n, err := s2.Total(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpen_AddsMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")

	old, err := schema.Load([]byte(`
header: {table: "experiments", id: "ID"}
groups: [{name: "Dependent variables", variables: ["Density"]}]
variables: Density: {kind: "numeric", min: 0}
components: []
`))
	require.NoError(t, err)
	s, err := Open(context.Background(), Config{DSN: path}, old)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2 := openAt(t, path)
	rows, err := s2.DB().Query(`SELECT name FROM pragma_table_info('experiments')`)
	require.NoError(t, err)
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var c string
		require.NoError(t, rows.Scan(&c))
		cols = append(cols, c)
	}
	assert.Contains(t, cols, "Temperature")
	assert.Contains(t, cols, "CompositionID")
	assert.Contains(t, cols, "Trial")
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.db")
	s := openAt(t, path)
	_, err := s.DB().Exec(`UPDATE "electrolyte_meta" SET "value" = '99' WHERE "key" = 'schema_version'`)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(context.Background(), Config{DSN: path}, schema.MustDefault())
	require.Error(t, err)
	assert.True(t, IsStorageError(err))
	assert.False(t, IsTransient(err))
	assert.Contains(t, err.Error(), "newer")
}

func TestOpen_BadConfig(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle", DSN: "x"}, schema.MustDefault())
	assert.True(t, IsStorageError(err))

	_, err = Open(context.Background(), Config{}, schema.MustDefault())
	assert.True(t, IsStorageError(err))
}

func TestUpsert_InsertThenReplace(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	exp := buildExperiment(t, map[string]string{
		"CompositionID": "DMC_EMC|50_50|LiPF6|1",
		"Density":       "1.2",
	})

	res, err := s.Upsert(ctx, exp)
	require.NoError(t, err)
	assert.Equal(t, exp.ID, res.ID)
	assert.False(t, res.Replaced)

	res, err = s.Upsert(ctx, exp)
	require.NoError(t, err)
	assert.True(t, res.Replaced)

	counts, err := s.Counts(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"experiments": 1, "solvents": 2, "salts": 1}, counts)
}

func TestUpsert_RepeatedUpsertsKeepOneCopy(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	exp := buildExperiment(t, map[string]string{"CompositionID": "EC_DMC_EMC|30_30_40|LiPF6_LiTFSI|1_0.5"})

	for i := 0; i < 5; i++ {
		_, err := s.Upsert(ctx, exp)
		require.NoError(t, err)
	}

	counts, err := s.Counts(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["experiments"])
	assert.Equal(t, 3, counts["solvents"])
	assert.Equal(t, 2, counts["salts"])

	total, err := s.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestUpsert_RejectsMismatchedID(t *testing.T) {
	s := createTestStore(t)
	exp := buildExperiment(t, map[string]string{"CompositionID": "DMC|100||"})
	exp.ID = record.MustDeriveID(record.Fields{"x": record.Int(1)})

	_, err := s.Upsert(context.Background(), exp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")

	total, err := s.Total(context.Background())
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestUpsert_DerivesMissingID(t *testing.T) {
	s := createTestStore(t)
	exp := buildExperiment(t, map[string]string{"CompositionID": "DMC|100||"})
	want := exp.ID
	exp.ID = ""

	res, err := s.Upsert(context.Background(), exp)
	require.NoError(t, err)
	assert.Equal(t, want, res.ID)
}

func TestGet_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	exp := buildExperiment(t, map[string]string{
		"CompositionID": "EMC_DMC|40_60|LiPF6|1.2",
		"Density":       "1.25",
		"Temperature":   "-10",
	})
	_, err := s.Upsert(ctx, exp)
	require.NoError(t, err)

	got, err := s.Get(ctx, exp.ID)
	require.NoError(t, err)

	assert.Equal(t, exp.ID, got.ID)
	assert.Equal(t, exp.Fields, got.Fields)
	assert.Equal(t, []record.Component{{Name: "DMC", Value: 60}, {Name: "EMC", Value: 40}}, got.Components["Solvents"])
	assert.Equal(t, []record.Component{{Name: "LiPF6", Value: 1.2}}, got.Components["Salts"])

	id, err := got.Identify()
	require.NoError(t, err)
	assert.Equal(t, exp.ID, id)
}

func TestGet_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertBatch_AllOrNothing(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	good := buildExperiment(t, map[string]string{"CompositionID": "DMC|100|LiPF6|1"})
	bad := buildExperiment(t, map[string]string{"CompositionID": "EMC|100|LiPF6|1"})
	bad.Components["Additives"] = []record.Component{{Name: "VC", Value: 2}}

	_, err := s.UpsertBatch(ctx, []record.Experiment{good, bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 1")

	total, err := s.Total(ctx)
	require.NoError(t, err)
	assert.Zero(t, total, "failed batch must not leave partial writes")
}

func TestUpsertBatch_Applies(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a := buildExperiment(t, map[string]string{"CompositionID": "DMC|100|LiPF6|1"})
	b := buildExperiment(t, map[string]string{"CompositionID": "EMC|100|LiPF6|1"})

	res, err := s.UpsertBatch(ctx, []record.Experiment{a, b, a})
	require.NoError(t, err)
	require.Len(t, res.Applied, 3)
	assert.Equal(t, a.ID, res.Applied[0].ID)
	assert.Equal(t, b.ID, res.Applied[1].ID)
	assert.True(t, res.Applied[2].Replaced)
	assert.Equal(t, 1, res.Replaced())

	total, err := s.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestChoices(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, comp := range []string{"EMC|100|LiPF6|1", "DMC_EC|50_50|LiTFSI|1", "EC|100|LiPF6|2"} {
		_, err := s.Upsert(ctx, buildExperiment(t, map[string]string{"CompositionID": comp}))
		require.NoError(t, err)
	}

	choices, err := s.Choices(ctx)
	require.NoError(t, err)
	require.Len(t, choices, 4)
	assert.Equal(t, "Dependent variables", choices[0].Title)
	assert.Equal(t, schema.Choice{Title: "Solvents", Options: []string{"DMC", "EC", "EMC"}}, choices[2])
	assert.Equal(t, schema.Choice{Title: "Salts", Options: []string{"LiPF6", "LiTFSI"}}, choices[3])
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{"busy", sqlite3.Error{Code: sqlite3.ErrBusy}, Transient},
		{"locked", sqlite3.Error{Code: sqlite3.ErrLocked}, Transient},
		{"constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, Permanent},
		{"wrapped busy", fmt.Errorf("exec: %w", sqlite3.Error{Code: sqlite3.ErrBusy}), Transient},
		{"deadline", context.DeadlineExceeded, Transient},
		{"other", errors.New("no such column: Colour"), Permanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrap("test", tt.err)
			var se *StorageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.kind, se.Kind)
			assert.Equal(t, tt.kind == Transient, IsTransient(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestWrap_KeepsStorageError(t *testing.T) {
	inner := &StorageError{Op: "inner", Kind: Transient, Err: errors.New("x")}
	assert.Same(t, inner, wrap("outer", inner))
	assert.Nil(t, wrap("outer", nil))
}
