package materialize

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/electrolyte/internal/record"
	"github.com/roach88/electrolyte/internal/schema"
	"github.com/roach88/electrolyte/internal/store"
)

func sampleResult() *store.Result {
	return &store.Result{
		Columns: []string{"ID", "Density", "Date", "CompositionID", "DMC_Percentage"},
		Rows: [][]record.Value{
			{record.Text("bb"), record.Decimal(1.2), record.Int(19737), record.Text("DMC|100|LiPF6|1"), record.Decimal(100)},
			{record.Text("aa"), record.Absent{}, record.Int(0), record.Text("EMC|100||"), record.Decimal(0)},
		},
	}
}

func TestApply_DisplayTransforms(t *testing.T) {
	tbl := Apply(schema.MustDefault(), sampleResult())

	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, []any{"bb", 1.2, "01/15/2024", "DMC|100|LiPF6|1", 100.0}, tbl.Rows[0])
	assert.Equal(t, []any{"aa", 0.0, "01/01/1970", "EMC|100||", 0.0}, tbl.Rows[1])
}

func TestApply_NoAbsentCells(t *testing.T) {
	res := &store.Result{
		Columns: []string{"ID", "Mass", "Viscosity", "LiPF6_Molality"},
		Rows:    [][]record.Value{{record.Text("x"), record.Absent{}, record.Absent{}, record.Absent{}}},
	}
	tbl := Apply(schema.MustDefault(), res)
	for _, cell := range tbl.Rows[0] {
		assert.NotNil(t, cell)
	}
	assert.Equal(t, []any{0.0, 0.0}, tbl.Rows[0][1:3])
}

func TestTable_WithoutAndSorted(t *testing.T) {
	tbl := Apply(schema.MustDefault(), sampleResult()).Without("ID").Sorted()

	assert.Equal(t, []string{"Density", "Date", "CompositionID", "DMC_Percentage"}, tbl.Columns)
	assert.Equal(t, "0", FormatCell(tbl.Rows[0][0]))
	assert.Equal(t, "1.2", FormatCell(tbl.Rows[1][0]))

	same := tbl.Without("Nope")
	assert.Equal(t, tbl, same)
}

func TestTable_Column(t *testing.T) {
	tbl := Apply(schema.MustDefault(), sampleResult())
	assert.Equal(t, []any{100.0, 0.0}, tbl.Column("DMC_Percentage"))
	assert.Nil(t, tbl.Column("EMC_Percentage"))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Apply(schema.MustDefault(), sampleResult())))

	assert.Equal(t, "ID,Density,Date,CompositionID,DMC_Percentage\n"+
		"bb,1.2,01/15/2024,DMC|100|LiPF6|1,100\n"+
		"aa,0,01/01/1970,EMC|100||,0\n", buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, Apply(schema.MustDefault(), sampleResult())))

	assert.Equal(t, `[
  {"ID": "bb", "Density": 1.2, "Date": "01/15/2024", "CompositionID": "DMC|100|LiPF6|1", "DMC_Percentage": 100},
  {"ID": "aa", "Density": 0, "Date": "01/01/1970", "CompositionID": "EMC|100||", "DMC_Percentage": 0}
]
`, buf.String())
}

func TestWriteJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, Table{Columns: []string{"ID"}}))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, Apply(schema.MustDefault(), sampleResult())))

	out := buf.String()
	assert.Contains(t, out, "DMC_Percentage")
	assert.Contains(t, out, "01/15/2024")
	assert.Contains(t, out, "LiPF6")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("csv")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestWrite_Dispatch(t *testing.T) {
	tbl := Table{Columns: []string{"A"}, Rows: [][]any{{int64(1)}}}

	var csvBuf, jsonBuf bytes.Buffer
	require.NoError(t, Write(&csvBuf, FormatCSV, tbl))
	require.NoError(t, Write(&jsonBuf, FormatJSON, tbl))

	assert.Equal(t, "A\n1\n", csvBuf.String())
	assert.Equal(t, "[\n  {\"A\": 1}\n]\n", jsonBuf.String())
}
