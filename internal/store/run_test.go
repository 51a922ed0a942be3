package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/electrolyte/internal/compiler"
	"github.com/roach88/electrolyte/internal/filter"
	"github.com/roach88/electrolyte/internal/record"
	"github.com/roach88/electrolyte/internal/schema"
)

type fixture struct {
	s       *Store
	a, b, c record.Experiment
}

func seed(t *testing.T) fixture {
	t.Helper()
	s := createTestStore(t)
	f := fixture{
		s: s,
		a: buildExperiment(t, map[string]string{"CompositionID": "DMC_EMC|50_50|LiPF6|1", "Density": "1.2", "Temperature": "25"}),
		b: buildExperiment(t, map[string]string{"CompositionID": "DMC|100|LiPF6|1.5", "Density": "1.1", "Temperature": "40"}),
		c: buildExperiment(t, map[string]string{"CompositionID": "EMC_EC|70_30|LiTFSI|1", "Density": "1.3", "Temperature": "25"}),
	}
	_, err := s.UpsertBatch(context.Background(), []record.Experiment{f.a, f.b, f.c})
	require.NoError(t, err)
	return f
}

func run(t *testing.T, s *Store, m filter.Model, opts compiler.Options) *Result {
	t.Helper()
	plan, err := compiler.Compile(schema.MustDefault(), m, opts)
	require.NoError(t, err)
	res, err := s.Run(context.Background(), plan)
	require.NoError(t, err)
	return res
}

// byID indexes result rows by ID, then column name.
func byID(res *Result) map[string]map[string]record.Value {
	out := make(map[string]map[string]record.Value)
	for _, row := range res.Rows {
		m := make(map[string]record.Value)
		for i, col := range res.Columns {
			m[col] = row[i]
		}
		out[string(row[0].(record.Text))] = m
	}
	return out
}

func TestRun_EmptyFilterReturnsEverything(t *testing.T) {
	f := seed(t)
	res := run(t, f.s, filter.Model{}, compiler.Options{})

	assert.Equal(t, 3, res.Len())
	assert.Equal(t, []string{"ID", "Density", "Conductivity", "Viscosity", "Mass", "Volume",
		"Temperature", "CompositionID", "Date", "Trial"}, res.Columns)

	rows := byID(res)
	assert.Equal(t, record.Decimal(1.2), rows[f.a.ID]["Density"])
	assert.Equal(t, record.Absent{}, rows[f.a.ID]["Viscosity"])
	assert.Equal(t, record.Int(19737), rows[f.a.ID]["Date"])
	assert.Equal(t, record.Text("DMC|100|LiPF6|1.5"), rows[f.b.ID]["CompositionID"])
}

func TestRun_OrderedByID(t *testing.T) {
	f := seed(t)
	res := run(t, f.s, filter.Model{}, compiler.Options{})

	for i := 1; i < len(res.Rows); i++ {
		prev := string(res.Rows[i-1][0].(record.Text))
		cur := string(res.Rows[i][0].(record.Text))
		assert.Less(t, prev, cur)
	}
}

func TestRun_ComponentAnd(t *testing.T) {
	f := seed(t)
	m := filter.Model{}
	m.Set("Solvents", filter.And, "DMC", filter.AtLeast(10))
	m.Set("Solvents", filter.And, "EMC", filter.AtLeast(10))

	res := run(t, f.s, m, compiler.Options{})
	require.Equal(t, 1, res.Len())
	assert.Equal(t, []string{"ID", "DMC_Percentage", "EMC_Percentage"}, res.Columns)

	row := byID(res)[f.a.ID]
	require.NotNil(t, row)
	assert.Equal(t, record.Decimal(50), row["DMC_Percentage"])
	assert.Equal(t, record.Decimal(50), row["EMC_Percentage"])
}

func TestRun_ComponentOrFillsZero(t *testing.T) {
	f := seed(t)
	m := filter.Model{}
	m.Set("Solvents", filter.Or, "DMC", filter.AtLeast(60))
	m.Set("Solvents", filter.Or, "EMC", filter.AtLeast(60))

	res := run(t, f.s, m, compiler.Options{})
	rows := byID(res)
	require.Len(t, rows, 2)
	assert.NotContains(t, rows, f.a.ID)

	assert.Equal(t, record.Decimal(100), rows[f.b.ID]["DMC_Percentage"])
	assert.Equal(t, record.Decimal(0), rows[f.b.ID]["EMC_Percentage"])
	assert.Equal(t, record.Decimal(0), rows[f.c.ID]["DMC_Percentage"])
	assert.Equal(t, record.Decimal(70), rows[f.c.ID]["EMC_Percentage"])
}

func TestRun_AndIsSubsetOfOr(t *testing.T) {
	f := seed(t)

	and := filter.Model{}
	and.Set("Solvents", filter.And, "DMC", filter.Any())
	and.Set("Solvents", filter.And, "EMC", filter.Any())
	or := filter.Model{}
	or.Set("Solvents", filter.Or, "DMC", filter.Any())
	or.Set("Solvents", filter.Or, "EMC", filter.Any())

	andRows := byID(run(t, f.s, and, compiler.Options{}))
	orRows := byID(run(t, f.s, or, compiler.Options{}))

	assert.Len(t, andRows, 1)
	assert.Len(t, orRows, 3)
	for id := range andRows {
		assert.Contains(t, orRows, id)
	}
}

func TestRun_CategoriesIntersect(t *testing.T) {
	f := seed(t)
	m := filter.Model{}
	m.Set("Salts", filter.Or, "LiPF6", filter.Any())
	m.Set("Independent variables", filter.And, "Temperature", filter.Between(20, 30))

	res := run(t, f.s, m, compiler.Options{})
	rows := byID(res)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"ID", "Temperature", "LiPF6_Molality"}, res.Columns)
	assert.Equal(t, record.Decimal(25), rows[f.a.ID]["Temperature"])
	assert.Equal(t, record.Decimal(1), rows[f.a.ID]["LiPF6_Molality"])
}

func TestRun_HeaderOrUnboundedMatchesAll(t *testing.T) {
	f := seed(t)
	m := filter.Model{}
	m.Set("Dependent variables", filter.Or, "Density", filter.AtLeast(5))
	m.Set("Dependent variables", filter.Or, "Mass", filter.Any())

	res := run(t, f.s, m, compiler.Options{})
	assert.Equal(t, 3, res.Len())
	assert.Equal(t, record.Absent{}, byID(res)[f.a.ID]["Mass"])
}

func TestRun_DateRange(t *testing.T) {
	f := seed(t)
	m := filter.Model{}
	m.Set("Independent variables", filter.And, "Date", filter.Range{Min: filter.Text("1/1/2024"), Max: filter.Text("2024-01-31")})

	assert.Equal(t, 3, run(t, f.s, m, compiler.Options{}).Len())

	m = filter.Model{}
	m.Set("Independent variables", filter.And, "Date", filter.Range{Min: filter.Text("2/1/2024")})
	assert.Equal(t, 0, run(t, f.s, m, compiler.Options{}).Len())
}

func TestRun_NoMatchesIsEmptyNotError(t *testing.T) {
	f := seed(t)
	m := filter.Model{}
	m.Set("Solvents", filter.And, "PC", filter.Any())

	res := run(t, f.s, m, compiler.Options{})
	assert.Equal(t, 0, res.Len())
	assert.NotNil(t, res.Rows)
}

func TestRun_ClosedStoreFails(t *testing.T) {
	f := seed(t)
	plan, err := compiler.Compile(schema.MustDefault(), filter.Model{}, compiler.Options{})
	require.NoError(t, err)
	require.NoError(t, f.s.Close())

	_, err = f.s.Run(context.Background(), plan)
	require.Error(t, err)
	assert.True(t, IsStorageError(err))
}
