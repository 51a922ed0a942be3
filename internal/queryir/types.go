package queryir

// Query is a node producing a set of rows keyed by experiment ID.
type Query interface {
	queryNode()
}

// Predicate is a row filter inside a Select.
type Predicate interface {
	predicateNode()
}

// Binding projects a source column under an output name.
type Binding struct {
	Column string // source column
	As     string // output column
}

// Select reads one table.
//
//	SELECT <key>, <column> AS <as>, ... FROM <from> WHERE <filter>
//
// Example, solvent DMC between 10 and 20 percent:
//
//	&Select{
//	  From: "solvents",
//	  Key:  "ID",
//	  Filter: &And{Predicates: []Predicate{
//	    &Equals{Field: "solvent", Value: "DMC"},
//	    &Range{Field: "percentage", Min: ptr(10), Max: ptr(20)},
//	  }},
//	  Values: []Binding{{Column: "percentage", As: "DMC_Percentage"}},
//	}
type Select struct {
	From   string
	Key    string
	Filter Predicate // nil = every row
	Values []Binding
}

func (*Select) queryNode() {}

// Intersect keeps IDs present in every input (inner join on the key).
// The output carries the value columns of all inputs, which must not
// overlap.
type Intersect struct {
	Inputs []Query
}

func (*Intersect) queryNode() {}

// Union keeps IDs present in at least one input (existential, one row per
// ID). Each output value column is the maximum of that column over the
// ID's input rows, with zero standing in for inputs that lack the column or
// hold NULL.
type Union struct {
	Inputs []Query
}

func (*Union) queryNode() {}

// Project joins the matched ID set back to the header table.
//
// Columns are header columns, output in order after the key. Values are
// value columns of Matched, output after Columns with NULL replaced by zero.
type Project struct {
	Matched Query
	Header  string
	Key     string
	Columns []string
	Values  []string
}

func (*Project) queryNode() {}

// Equals is field = value. Value is a string, int64 or float64.
type Equals struct {
	Field string
	Value any
}

func (*Equals) predicateNode() {}

// Range is Min <= field <= Max. A nil side is open. Rows where the field is
// NULL never match a Range with at least one side set.
type Range struct {
	Field string
	Min   *float64
	Max   *float64
}

func (*Range) predicateNode() {}

// Open reports whether neither side is set.
func (r *Range) Open() bool { return r.Min == nil && r.Max == nil }

// And is the conjunction of its predicates.
type And struct {
	Predicates []Predicate
}

func (*And) predicateNode() {}

// Or is the disjunction of its predicates.
type Or struct {
	Predicates []Predicate
}

func (*Or) predicateNode() {}

// Float returns a pointer to f, for Range bounds.
func Float(f float64) *float64 { return &f }

// ValueColumns returns the value columns a node outputs, excluding the key,
// in output order.
func ValueColumns(q Query) []string {
	switch n := q.(type) {
	case *Select:
		out := make([]string, 0, len(n.Values))
		for _, b := range n.Values {
			out = append(out, b.As)
		}
		return out
	case *Intersect:
		return mergeColumns(n.Inputs)
	case *Union:
		return mergeColumns(n.Inputs)
	case *Project:
		out := make([]string, 0, len(n.Columns)+len(n.Values))
		out = append(out, n.Columns...)
		return append(out, n.Values...)
	default:
		return nil
	}
}

// mergeColumns is the ordered union of the inputs' value columns, first
// appearance wins.
func mergeColumns(inputs []Query) []string {
	seen := make(map[string]bool)
	var out []string
	for _, in := range inputs {
		for _, c := range ValueColumns(in) {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

// Walk visits q and its sub-queries depth-first, inputs before parents.
// A node shared along several paths is visited once.
func Walk(q Query, visit func(Query)) {
	seen := make(map[Query]bool)
	var walk func(Query)
	walk = func(q Query) {
		if q == nil || seen[q] {
			return
		}
		seen[q] = true
		switch n := q.(type) {
		case *Intersect:
			for _, in := range n.Inputs {
				walk(in)
			}
		case *Union:
			for _, in := range n.Inputs {
				walk(in)
			}
		case *Project:
			walk(n.Matched)
		}
		visit(q)
	}
	walk(q)
}
