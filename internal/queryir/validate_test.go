package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solventSelect(name string, min, max *float64) *Select {
	return &Select{
		From: "solvents",
		Key:  "ID",
		Filter: &And{Predicates: []Predicate{
			&Equals{Field: "solvent", Value: name},
			&Range{Field: "percentage", Min: min, Max: max},
		}},
		Values: []Binding{{Column: "percentage", As: name + "_Percentage"}},
	}
}

func TestValidate_ValidPlan(t *testing.T) {
	dmc := solventSelect("DMC", Float(10), nil)
	emc := solventSelect("EMC", nil, Float(90))
	header := &Select{From: "experiments", Key: "ID", Filter: &Or{Predicates: []Predicate{
		&Range{Field: "Density", Min: Float(1), Max: Float(2)},
		&Range{Field: "Temperature", Min: Float(20)},
	}}}

	plan := &Project{
		Matched: &Intersect{Inputs: []Query{&Union{Inputs: []Query{dmc, emc}}, header}},
		Header:  "experiments",
		Key:     "ID",
		Columns: []string{"Density", "Temperature"},
		Values:  []string{"DMC_Percentage", "EMC_Percentage"},
	}

	result := Validate(plan)
	assert.True(t, result.IsValid, result.Problems)
	assert.NoError(t, result.Err())
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name    string
		query   Query
		problem string
	}{
		{"nil", nil, "nil query node"},
		{"select without table", &Select{Key: "ID"}, "select without table"},
		{"select without key", &Select{From: "t"}, "without key column"},
		{"duplicate output", &Select{From: "t", Key: "ID", Values: []Binding{{"a", "x"}, {"b", "x"}}}, `outputs "x" twice`},
		{"empty intersect", &Intersect{}, "intersect without inputs"},
		{"empty union", &Union{}, "union without inputs"},
		{"overlapping intersect", &Intersect{Inputs: []Query{
			solventSelect("DMC", Float(1), nil),
			solventSelect("DMC", nil, Float(2)),
		}}, `both carry column "DMC_Percentage"`},
		{"mixed keys", &Union{Inputs: []Query{
			&Select{From: "a", Key: "ID"},
			&Select{From: "b", Key: "RunID"},
		}}, `keyed by "ID" and "RunID"`},
		{"open range", &Select{From: "t", Key: "ID", Filter: &Range{Field: "x"}}, "has no bounds"},
		{"empty or", &Select{From: "t", Key: "ID", Filter: &Or{}}, "empty or"},
		{"empty and", &Select{From: "t", Key: "ID", Filter: &And{}}, "empty and"},
		{"bad equals", &Select{From: "t", Key: "ID", Filter: &Equals{Field: "x", Value: true}}, "unsupported bool"},
		{"unknown value", &Project{
			Matched: &Select{From: "experiments", Key: "ID"},
			Header:  "experiments",
			Key:     "ID",
			Values:  []string{"DMC_Percentage"},
		}, `"DMC_Percentage" is not produced`},
		{"shadowed value", &Project{
			Matched: &Select{From: "t", Key: "ID", Values: []Binding{{"v", "Density"}}},
			Header:  "experiments",
			Key:     "ID",
			Columns: []string{"Density"},
			Values:  []string{"Density"},
		}, "shadows a header column"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.query)
			require.False(t, result.IsValid)
			require.Error(t, result.Err())
			assert.Contains(t, result.Err().Error(), tt.problem)
		})
	}
}

func TestValidate_InvertedRangeIsValid(t *testing.T) {
	q := solventSelect("DMC", Float(50), Float(10))
	assert.True(t, Validate(q).IsValid)
}

func TestValueColumns(t *testing.T) {
	dmc := solventSelect("DMC", Float(10), nil)
	emc := solventSelect("EMC", Float(10), nil)
	lipf6 := &Select{From: "salts", Key: "ID", Values: []Binding{{"molality", "LiPF6_Molality"}}}

	assert.Equal(t, []string{"DMC_Percentage"}, ValueColumns(dmc))
	assert.Equal(t, []string{"DMC_Percentage", "EMC_Percentage"}, ValueColumns(&Union{Inputs: []Query{dmc, emc, dmc}}))
	assert.Equal(t, []string{"DMC_Percentage", "LiPF6_Molality"}, ValueColumns(&Intersect{Inputs: []Query{dmc, lipf6}}))

	p := &Project{Matched: dmc, Columns: []string{"Density"}, Values: []string{"DMC_Percentage"}}
	assert.Equal(t, []string{"Density", "DMC_Percentage"}, ValueColumns(p))
}

func TestWalk_SharedNodeVisitedOnce(t *testing.T) {
	dmc := solventSelect("DMC", Float(10), nil)
	u := &Union{Inputs: []Query{dmc}}
	i := &Intersect{Inputs: []Query{u, dmc}}

	var order []Query
	Walk(i, func(q Query) { order = append(order, q) })

	require.Len(t, order, 3)
	assert.Same(t, dmc, order[0])
	assert.Same(t, u, order[1])
	assert.Same(t, i, order[2])
}
