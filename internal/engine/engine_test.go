package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/electrolyte/internal/compiler"
	"github.com/roach88/electrolyte/internal/filter"
	"github.com/roach88/electrolyte/internal/ingest"
	"github.com/roach88/electrolyte/internal/metrics"
	"github.com/roach88/electrolyte/internal/schema"
	"github.com/roach88/electrolyte/internal/store"
	"github.com/roach88/electrolyte/internal/testutil"
)

const csvHeader = "CompositionID,Density,Conductivity,Viscosity,Mass,Volume,Temperature,Date,Trial\n"

func setupEngine(t *testing.T, batchIDs ...string) (*Engine, *store.Store, *metrics.Recorder) {
	t.Helper()
	s := testutil.OpenStore(t)
	rec, err := metrics.New("")
	require.NoError(t, err)
	if len(batchIDs) == 0 {
		batchIDs = []string{"batch-1"}
	}
	return New(s, WithMetrics(rec), WithBatchIDs(NewSequenceGenerator(batchIDs...))), s, rec
}

func TestEngine_New(t *testing.T) {
	s := testutil.OpenStore(t)
	e := New(s)

	assert.Same(t, s.Registry(), e.Registry())
	assert.IsType(t, UUIDv7Generator{}, e.batchGen)
	assert.Nil(t, e.metrics)
}

func TestEngine_SubmitThenResubmit(t *testing.T) {
	ctx := context.Background()
	e, s, rec := setupEngine(t)
	raw := testutil.Raw("DMC_EMC|50_50|LiPF6|1", map[string]string{"Density": "1.2"})

	first, err := e.Submit(ctx, raw)
	require.NoError(t, err)
	assert.False(t, first.Replaced)

	second, err := e.Submit(ctx, raw)
	require.NoError(t, err)
	assert.True(t, second.Replaced)
	assert.Equal(t, first.ID, second.ID)

	total, err := s.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	series, err := promtest.GatherAndCount(rec.Registry(), "electrolyte_upserts_total", "electrolyte_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, series)
	assert.Equal(t, 1.0, counterValue(t, rec, "electrolyte_upserts_total", "outcome", metrics.OutcomeReplaced))
}

func TestEngine_SubmitChangedScalarIsNewRecord(t *testing.T) {
	ctx := context.Background()
	e, s, _ := setupEngine(t)

	a, err := e.Submit(ctx, testutil.Raw("DMC|100|LiPF6|1", map[string]string{"Density": "1.2"}))
	require.NoError(t, err)
	b, err := e.Submit(ctx, testutil.Raw("DMC|100|LiPF6|1", map[string]string{"Density": "1.3"}))
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, b.Replaced)
	total, err := s.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestEngine_SubmitValidationFailure(t *testing.T) {
	ctx := context.Background()
	e, s, _ := setupEngine(t)

	_, err := e.Submit(ctx, testutil.Raw("DMC|100|LiPF6|1", map[string]string{"Density": "-2"}))
	require.Error(t, err)
	assert.Equal(t, "Density must be greater than 0!", err.Error())
	assert.Equal(t, ClassValidation, Classify(err))

	total, err := s.Total(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestEngine_Import(t *testing.T) {
	ctx := context.Background()
	e, s, rec := setupEngine(t, "batch-7")
	src := csvHeader +
		"DMC_EMC|50_50|LiPF6|1,1.2,,,,,25,1/15/2024,1\n" +
		"DMC|100|LiPF6|1.5,1.1,,,,,40,1/16/2024,1\n" +
		"DMC_EMC|50_50|LiPF6|1,1.2,,,,,25,1/15/2024,1\n"

	res, err := e.Import(ctx, strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "batch-7", res.BatchID)
	require.Len(t, res.Applied, 3)
	assert.Equal(t, 1, res.Replaced())
	assert.Equal(t, res.Applied[0].ID, res.Applied[2].ID)

	total, err := s.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	assert.Equal(t, 3.0, counterValue(t, rec, "electrolyte_import_rows_total", "status", metrics.StatusApplied))
	assert.Equal(t, 1.0, counterValue(t, rec, "electrolyte_upserts_total", "outcome", metrics.OutcomeReplaced))
}

func TestEngine_ImportRejectsWholeFile(t *testing.T) {
	ctx := context.Background()
	e, s, _ := setupEngine(t)
	src := csvHeader +
		"DMC|100|LiPF6|1,1.2,,,,,25,1/15/2024,1\n" +
		"DMC|100|LiPF6|1,1.2,,,,,25,someday,1\n"

	res, err := e.Import(ctx, strings.NewReader(src))
	require.Error(t, err)
	assert.Equal(t, "batch-1", res.BatchID)
	assert.Equal(t, "Error on line 3: Date must be in MM/DD/YY format!", err.Error())
	assert.Equal(t, ClassValidation, Classify(err))

	total, err := s.Total(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestEngine_ImportFile(t *testing.T) {
	ctx := context.Background()
	e, _, _ := setupEngine(t, "b1", "b2")
	dir := t.TempDir()

	path := filepath.Join(dir, "upload.csv")
	require.NoError(t, os.WriteFile(path, []byte(csvHeader+"EC|100|LiPF6|1,,,,,,,3/5/2023,2\n"), 0o644))
	res, err := e.ImportFile(ctx, path)
	require.NoError(t, err)
	assert.Len(t, res.Applied, 1)

	_, err = e.ImportFile(ctx, filepath.Join(dir, "upload.txt"))
	assert.ErrorIs(t, err, ingest.ErrNotCSV)
}

func seedQueryData(t *testing.T, e *Engine) {
	t.Helper()
	ctx := context.Background()
	for _, raw := range []map[string]string{
		testutil.Raw("DMC_EMC|50_50|LiPF6|1", map[string]string{"Density": "1.2", "Temperature": "25"}),
		testutil.Raw("DMC|100|LiPF6|1.5", map[string]string{"Density": "1.1", "Temperature": "40"}),
		testutil.Raw("EMC_EC|70_30|LiTFSI|1", map[string]string{"Density": "1.3", "Temperature": "25"}),
	} {
		_, err := e.Submit(ctx, raw)
		require.NoError(t, err)
	}
}

func TestEngine_Query(t *testing.T) {
	ctx := context.Background()
	e, _, rec := setupEngine(t)
	seedQueryData(t, e)

	m := filter.Model{}
	m.Set("Solvents", filter.Or, "DMC", filter.Any())
	m.Set("Independent variables", filter.And, "Temperature", filter.AtMost(30))

	table, err := e.Query(ctx, m, compiler.Options{})
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, []string{"ID", "Temperature", "DMC_Percentage"}, table.Columns)
	assert.Equal(t, []any{float64(50)}, table.Column("DMC_Percentage"))

	assert.Equal(t, 1.0, counterValue(t, rec, "electrolyte_queries_total", "status", metrics.StatusOK))
}

func TestEngine_QueryDisplaysDates(t *testing.T) {
	ctx := context.Background()
	e, _, _ := setupEngine(t)
	seedQueryData(t, e)

	table, err := e.Query(ctx, filter.Model{}, compiler.Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())
	for _, d := range table.Column("Date") {
		assert.Equal(t, "01/15/2024", d)
	}
}

func TestEngine_QueryCompileError(t *testing.T) {
	e, _, rec := setupEngine(t)

	m := filter.Model{}
	m.Set("Additives", filter.Or, "VC", filter.Any())

	_, err := e.Query(context.Background(), m, compiler.Options{})
	require.Error(t, err)
	assert.Equal(t, ClassCompile, Classify(err))
	assert.Equal(t, 1.0, counterValue(t, rec, "electrolyte_queries_total", "status", metrics.StatusError))
}

func TestEngine_QueryStorageError(t *testing.T) {
	e, s, _ := setupEngine(t)
	require.NoError(t, s.Close())

	_, err := e.Query(context.Background(), filter.Model{}, compiler.Options{})
	require.Error(t, err)

	var oe *OperationError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "query", oe.Op)
}

func TestEngine_Explain(t *testing.T) {
	e, _, _ := setupEngine(t)

	m := filter.Model{}
	m.Set("Salts", filter.Or, "LiPF6", filter.Between(0.5, 2))

	ex, err := e.Explain(m, compiler.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Salts"}, ex.Categories)
	assert.Equal(t, []string{"ID", "LiPF6_Molality"}, ex.Columns)
	assert.True(t, strings.HasPrefix(ex.SQL, "WITH "))
	assert.Equal(t, []any{"LiPF6", 0.5, 2.0}, ex.Params)
}

func TestEngine_Choices(t *testing.T) {
	e, _, _ := setupEngine(t)
	seedQueryData(t, e)

	choices, err := e.Choices(context.Background())
	require.NoError(t, err)

	byTitle := map[string][]string{}
	for _, c := range choices {
		byTitle[c.Title] = c.Options
	}
	assert.Equal(t, []string{"DMC", "EC", "EMC"}, byTitle["Solvents"])
	assert.Equal(t, []string{"LiPF6", "LiTFSI"}, byTitle["Salts"])
}

func TestEngine_Get(t *testing.T) {
	ctx := context.Background()
	e, _, _ := setupEngine(t)

	res, err := e.Submit(ctx, testutil.Raw("DMC|100|LiPF6|1", nil))
	require.NoError(t, err)

	exp, err := e.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.ID, exp.ID)

	_, err = e.Get(ctx, "not-an-id")
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = e.Get(ctx, strings.Repeat("0", 64))
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, ClassStorage, Classify(err))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ""},
		{"validation", &schema.ValidationError{Variable: "Density", Message: "bad"}, ClassValidation},
		{"row", &ingest.RowError{Line: 2, Err: errors.New("bad")}, ClassValidation},
		{"column", &ingest.SchemaError{Column: "Date"}, ClassValidation},
		{"not csv", ingest.ErrNotCSV, ClassValidation},
		{"compile", &compiler.CompileError{Code: compiler.ErrUnknownCategory}, ClassCompile},
		{"storage", opErr("query", &store.StorageError{Op: "query", Err: errors.New("io")}), ClassStorage},
		{"other", errors.New("boom"), ClassUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func counterValue(t *testing.T, rec *metrics.Recorder, name, label, value string) float64 {
	t.Helper()
	families, err := rec.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
