// Package filter holds the filter model a user submits to the query compiler.
//
// A Model maps category names ("Solvents", "Independent variables", ...) to a
// Category. Each Category carries a combinator and a set of selections, where
// a selection names one entity in the category (a component name or a header
// variable) together with an inclusive range. Either side of a range may be
// unbounded.
//
// Bounds are kept in their raw form (number or string) because their meaning
// depends on the variable: a date bound may be written as a calendar date.
// The compiler coerces them through the schema registry.
package filter

import (
	"fmt"
	"slices"
	"strings"
)

// Combinator joins the selections of one category.
type Combinator string

const (
	// And keeps experiments that satisfy every selection.
	And Combinator = "AND"
	// Or keeps experiments that satisfy at least one selection.
	Or Combinator = "OR"
)

// DefaultCombinator applies when a category names none.
const DefaultCombinator = Or

// ParseCombinator accepts "and"/"or" in any case. Empty means the default.
func ParseCombinator(s string) (Combinator, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return DefaultCombinator, nil
	case string(And):
		return And, nil
	case string(Or):
		return Or, nil
	default:
		return "", fmt.Errorf("unknown combinator %q (want AND or OR)", s)
	}
}

// Bound is one side of a range: unbounded, a number, or a date string.
type Bound struct {
	raw any
}

// Unbounded returns an open bound.
func Unbounded() Bound { return Bound{} }

// Number returns a numeric bound.
func Number(f float64) Bound { return Bound{raw: f} }

// Text returns a textual bound such as "1/15/2024".
func Text(s string) Bound { return Bound{raw: s} }

// IsSet reports whether the bound constrains anything.
func (b Bound) IsSet() bool { return b.raw != nil }

// Raw returns nil, a float64 or a string.
func (b Bound) Raw() any { return b.raw }

func (b Bound) String() string {
	switch v := b.raw.(type) {
	case nil:
		return "*"
	case string:
		return fmt.Sprintf("%q", v)
	default:
		return fmt.Sprint(v)
	}
}

// Range is an inclusive interval.
type Range struct {
	Min Bound
	Max Bound
}

// Any is the fully unbounded range.
func Any() Range { return Range{} }

// Between is the closed range [lo, hi].
func Between(lo, hi float64) Range { return Range{Min: Number(lo), Max: Number(hi)} }

// AtLeast is [lo, +inf).
func AtLeast(lo float64) Range { return Range{Min: Number(lo)} }

// AtMost is (-inf, hi].
func AtMost(hi float64) Range { return Range{Max: Number(hi)} }

// Unbounded reports whether neither side is set.
func (r Range) Unbounded() bool { return !r.Min.IsSet() && !r.Max.IsSet() }

func (r Range) String() string {
	return "[" + r.Min.String() + ", " + r.Max.String() + "]"
}

// Category is the filter for one category.
type Category struct {
	Combinator Combinator
	Selections map[string]Range
}

// Empty reports whether the category selects nothing. Empty categories are
// skipped by the compiler.
func (c Category) Empty() bool { return len(c.Selections) == 0 }

// Names returns the selected entity names in lexical order.
func (c Category) Names() []string {
	names := make([]string, 0, len(c.Selections))
	for name := range c.Selections {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Model is a full filter: category name to Category.
type Model map[string]Category

// Categories returns category names in lexical order.
func (m Model) Categories() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Active returns the names of non-empty categories in lexical order.
func (m Model) Active() []string {
	var names []string
	for _, name := range m.Categories() {
		if !m[name].Empty() {
			names = append(names, name)
		}
	}
	return names
}

// Empty reports whether no category selects anything.
func (m Model) Empty() bool { return len(m.Active()) == 0 }

// Set adds a selection, creating the category with the given combinator when
// it does not exist yet.
func (m Model) Set(category string, comb Combinator, entity string, r Range) {
	c, ok := m[category]
	if !ok {
		c = Category{Combinator: comb, Selections: make(map[string]Range)}
	}
	if c.Selections == nil {
		c.Selections = make(map[string]Range)
	}
	c.Selections[entity] = r
	m[category] = c
}
