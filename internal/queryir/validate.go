package queryir

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationResult lists the structural problems found in a plan.
type ValidationResult struct {
	// IsValid is true when Problems is empty.
	IsValid bool

	Problems []string
}

// Err returns nil for a valid plan and an error joining every problem
// otherwise.
func (r ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	return errors.New("invalid query plan: " + strings.Join(r.Problems, "; "))
}

// Validate checks structural rules a backend relies on:
//  1. Every node and predicate is non-nil and of a known type
//  2. Select names a table and key; output names are non-empty and unique
//  3. Intersect and Union have at least one input, all keyed alike
//  4. Intersect inputs do not share value columns
//  5. Project values are value columns of its matched input
//  6. And/Or are non-empty and every Range has at least one bound
//  7. Equals compares to a string, int64 or float64
//
// A Range with Min above Max is valid and matches nothing.
//
// Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{problems: []string{}}
	v.validateQuery(query)
	return ValidationResult{
		IsValid:  len(v.problems) == 0,
		Problems: v.problems,
	}
}

type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

// validateQuery validates q and returns its key column ("" if unknown).
func (v *validator) validateQuery(q Query) string {
	switch n := q.(type) {
	case nil:
		v.addProblem("nil query node")
		return ""
	case *Select:
		if n == nil {
			v.addProblem("nil query node")
			return ""
		}
		v.validateSelect(n)
		return n.Key
	case *Intersect:
		if n == nil {
			v.addProblem("nil query node")
			return ""
		}
		key := v.validateInputs("intersect", n.Inputs)
		seen := make(map[string]bool)
		for _, in := range n.Inputs {
			for _, c := range ValueColumns(in) {
				if seen[c] {
					v.addProblem("intersect inputs both carry column %q", c)
				}
				seen[c] = true
			}
		}
		return key
	case *Union:
		if n == nil {
			v.addProblem("nil query node")
			return ""
		}
		return v.validateInputs("union", n.Inputs)
	case *Project:
		if n == nil {
			v.addProblem("nil query node")
			return ""
		}
		v.validateProject(n)
		return n.Key
	default:
		v.addProblem("unknown query type %T", q)
		return ""
	}
}

func (v *validator) validateSelect(sel *Select) {
	if sel.From == "" {
		v.addProblem("select without table")
	}
	if sel.Key == "" {
		v.addProblem("select from %q without key column", sel.From)
	}
	names := map[string]bool{sel.Key: true}
	for _, b := range sel.Values {
		if b.Column == "" || b.As == "" {
			v.addProblem("select from %q has an empty binding", sel.From)
			continue
		}
		if names[b.As] {
			v.addProblem("select from %q outputs %q twice", sel.From, b.As)
		}
		names[b.As] = true
	}
	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}
}

func (v *validator) validateInputs(kind string, inputs []Query) string {
	if len(inputs) == 0 {
		v.addProblem("%s without inputs", kind)
		return ""
	}
	key := ""
	for i, in := range inputs {
		k := v.validateQuery(in)
		if i == 0 {
			key = k
			continue
		}
		if k != "" && key != "" && k != key {
			v.addProblem("%s inputs keyed by %q and %q", kind, key, k)
		}
	}
	return key
}

func (v *validator) validateProject(p *Project) {
	if p.Header == "" {
		v.addProblem("project without header table")
	}
	if p.Key == "" {
		v.addProblem("project without key column")
	}
	key := v.validateQuery(p.Matched)
	if key != "" && p.Key != "" && key != p.Key {
		v.addProblem("project keyed by %q but matched set keyed by %q", p.Key, key)
	}

	names := map[string]bool{p.Key: true}
	for _, c := range p.Columns {
		if c == "" || names[c] {
			v.addProblem("project column %q is empty or repeated", c)
		}
		names[c] = true
	}

	available := make(map[string]bool)
	if p.Matched != nil {
		for _, c := range ValueColumns(p.Matched) {
			available[c] = true
		}
	}
	for _, c := range p.Values {
		if names[c] {
			v.addProblem("project value %q is repeated or shadows a header column", c)
		}
		names[c] = true
		if !available[c] {
			v.addProblem("project value %q is not produced by the matched set", c)
		}
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
		v.addProblem("nil predicate")
	case *Equals:
		if pred == nil {
			v.addProblem("nil predicate")
			return
		}
		if pred.Field == "" {
			v.addProblem("equals without field")
		}
		switch pred.Value.(type) {
		case string, int64, float64:
		default:
			v.addProblem("equals on %q compares to unsupported %T", pred.Field, pred.Value)
		}
	case *Range:
		if pred == nil {
			v.addProblem("nil predicate")
			return
		}
		if pred.Field == "" {
			v.addProblem("range without field")
		}
		if pred.Open() {
			v.addProblem("range on %q has no bounds", pred.Field)
		}
	case *And:
		if pred == nil {
			v.addProblem("nil predicate")
			return
		}
		v.validateList("and", pred.Predicates)
	case *Or:
		if pred == nil {
			v.addProblem("nil predicate")
			return
		}
		v.validateList("or", pred.Predicates)
	default:
		v.addProblem("unknown predicate type %T", p)
	}
}

func (v *validator) validateList(kind string, preds []Predicate) {
	if len(preds) == 0 {
		v.addProblem("empty %s", kind)
	}
	for _, sub := range preds {
		v.validatePredicate(sub)
	}
}
