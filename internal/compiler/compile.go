// Package compiler translates a filter model into a join plan.
//
// For every non-empty category the compiler builds one sub-plan:
//
//   - component categories select matching rows per component name and
//     combine them with Intersect (AND) or Union (OR)
//   - header groups become a single Select on the header table whose filter
//     is the conjunction (AND) or disjunction (OR) of the bounded ranges
//
// Category sub-plans are intersected, and the result is projected back onto
// the header table for display. An empty filter matches every experiment.
package compiler

import (
	"math"
	"slices"

	"github.com/roach88/electrolyte/internal/composition"
	"github.com/roach88/electrolyte/internal/filter"
	"github.com/roach88/electrolyte/internal/queryir"
	"github.com/roach88/electrolyte/internal/schema"
)

// Options adjust the projected columns.
type Options struct {
	// AllColumns displays every header variable regardless of selections.
	AllColumns bool
}

// Plan is a compiled filter.
type Plan struct {
	Query *queryir.Project

	// Categories lists the non-empty categories that shaped the plan.
	Categories []string
}

// Key is the identity column name.
func (p *Plan) Key() string { return p.Query.Key }

// Columns returns every output column in order: key, header columns,
// component value columns.
func (p *Plan) Columns() []string {
	out := make([]string, 0, 1+len(p.Query.Columns)+len(p.Query.Values))
	out = append(out, p.Query.Key)
	out = append(out, p.Query.Columns...)
	return append(out, p.Query.Values...)
}

// Compile builds the plan for a filter model.
func Compile(reg *schema.Registry, model filter.Model, opts Options) (*Plan, error) {
	header := reg.Header()
	c := &compilation{
		reg:      reg,
		selected: make(map[string]bool),
	}

	var parts []queryir.Query
	active := model.Active()
	for _, name := range active {
		part, err := c.category(name, model[name])
		if err != nil {
			return nil, err
		}
		if part != nil {
			parts = append(parts, part)
		}
	}

	var matched queryir.Query
	switch len(parts) {
	case 0:
		matched = &queryir.Select{From: header.Table, Key: header.ID}
	case 1:
		matched = parts[0]
	default:
		matched = &queryir.Intersect{Inputs: parts}
	}

	showAll := opts.AllColumns || len(active) == 0
	var columns []string
	for _, v := range reg.Variables() {
		if showAll || c.selected[v.Name()] {
			columns = append(columns, v.Name())
		}
	}

	plan := &queryir.Project{
		Matched: matched,
		Header:  header.Table,
		Key:     header.ID,
		Columns: columns,
		Values:  c.values,
	}
	if result := queryir.Validate(plan); !result.IsValid {
		return nil, compileErr(ErrInvalidPlan, "", "%v", result.Err())
	}
	return &Plan{Query: plan, Categories: active}, nil
}

type compilation struct {
	reg      *schema.Registry
	selected map[string]bool // header variables chosen for display
	values   []string        // component display columns
}

func (c *compilation) category(name string, cat filter.Category) (queryir.Query, error) {
	comb := cat.Combinator
	if comb == "" {
		comb = filter.DefaultCombinator
	}
	if comb != filter.And && comb != filter.Or {
		return nil, compileErr(ErrBadCombinator, name, "unknown combinator %q", cat.Combinator)
	}

	switch c.reg.Locate(name) {
	case schema.LocationComponent:
		cc, _ := c.reg.Component(name)
		return c.componentCategory(cc, comb, cat)
	case schema.LocationHeader:
		return c.headerGroup(name, comb, cat)
	default:
		return nil, compileErr(ErrUnknownCategory, name, "unknown filter category")
	}
}

// componentCategory selects, per component name, the experiments holding
// that component within range.
func (c *compilation) componentCategory(cc schema.ComponentCategory, comb filter.Combinator, cat filter.Category) (queryir.Query, error) {
	key := c.reg.Header().ID

	var inputs []queryir.Query
	for _, entity := range cat.Names() {
		if !composition.ValidName(entity) {
			return nil, compileErr(ErrUnknownVariable, cc.Category, "%q is not a component name", entity)
		}
		r := cat.Selections[entity]
		lo, err := componentBound(cc.Category, entity, r.Min)
		if err != nil {
			return nil, err
		}
		hi, err := componentBound(cc.Category, entity, r.Max)
		if err != nil {
			return nil, err
		}

		var pred queryir.Predicate = &queryir.Equals{Field: cc.NameColumn, Value: entity}
		if lo != nil || hi != nil {
			pred = &queryir.And{Predicates: []queryir.Predicate{
				pred,
				&queryir.Range{Field: cc.ValueColumn, Min: lo, Max: hi},
			}}
		}

		column := cc.DisplayColumn(entity)
		c.values = append(c.values, column)
		inputs = append(inputs, &queryir.Select{
			From:   cc.Table,
			Key:    key,
			Filter: pred,
			Values: []queryir.Binding{{Column: cc.ValueColumn, As: column}},
		})
	}

	if len(inputs) == 1 {
		return inputs[0], nil
	}
	if comb == filter.And {
		return &queryir.Intersect{Inputs: inputs}, nil
	}
	return &queryir.Union{Inputs: inputs}, nil
}

func componentBound(category, entity string, b filter.Bound) (*float64, error) {
	switch v := b.Raw().(type) {
	case nil:
		return nil, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, compileErr(ErrBadBound, category, "%s bound must be finite", entity)
		}
		return queryir.Float(v), nil
	default:
		return nil, compileErr(ErrBadBound, category, "%s bound %v is not a number", entity, b)
	}
}

// headerGroup builds one Select on the header table. Under OR any unbounded
// selection matches every experiment, so the group contributes no filter.
func (c *compilation) headerGroup(name string, comb filter.Combinator, cat filter.Category) (queryir.Query, error) {
	group := c.groupNamed(name)

	var preds []queryir.Predicate
	unbounded := false
	for _, entity := range cat.Names() {
		if !slices.Contains(group.Variables, entity) {
			return nil, compileErr(ErrUnknownVariable, name, "%q is not a variable of this group", entity)
		}
		v, _ := c.reg.Describe(entity)
		if !v.FilterSpec().Filterable {
			return nil, compileErr(ErrNotFilterable, name, "%q cannot be filtered by range", entity)
		}
		c.selected[entity] = true

		r := cat.Selections[entity]
		lo, err := headerBound(name, v, r.Min)
		if err != nil {
			return nil, err
		}
		hi, err := headerBound(name, v, r.Max)
		if err != nil {
			return nil, err
		}
		if lo == nil && hi == nil {
			unbounded = true
			continue
		}
		preds = append(preds, &queryir.Range{Field: entity, Min: lo, Max: hi})
	}

	if len(preds) == 0 || (comb == filter.Or && unbounded) {
		return nil, nil
	}

	header := c.reg.Header()
	sel := &queryir.Select{From: header.Table, Key: header.ID}
	switch {
	case len(preds) == 1:
		sel.Filter = preds[0]
	case comb == filter.And:
		sel.Filter = &queryir.And{Predicates: preds}
	default:
		sel.Filter = &queryir.Or{Predicates: preds}
	}
	return sel, nil
}

func (c *compilation) groupNamed(name string) schema.Group {
	for _, g := range c.reg.Groups() {
		if g.Name == name {
			return g
		}
	}
	return schema.Group{}
}

func headerBound(category string, v schema.Variable, b filter.Bound) (*float64, error) {
	if !b.IsSet() {
		return nil, nil
	}
	f, err := v.Bound(b.Raw())
	if err != nil {
		return nil, compileErr(ErrBadBound, category, "%v", err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, compileErr(ErrBadBound, category, "%s bound must be finite", v.Name())
	}
	return queryir.Float(f), nil
}
