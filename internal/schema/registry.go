package schema

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/electrolyte/internal/record"
)

//go:embed registry.cue
var defaultDefinition []byte

// HeaderTable names the per-experiment table and its identity column.
type HeaderTable struct {
	Table string
	ID    string
}

// Group is a named, ordered set of header variables. Groups double as filter
// categories for header-resident variables.
type Group struct {
	Name      string
	Variables []string
}

// Part selects which half of a composition feeds a component category.
type Part string

const (
	PartSolvents Part = "solvents"
	PartSalts    Part = "salts"
)

// ComponentCategory maps a filter category onto a child table.
type ComponentCategory struct {
	Category    string
	Part        Part
	Table       string
	NameColumn  string
	ValueColumn string
	Suffix      string
	Unit        string
}

// DisplayColumn is the result-column name for a component of this category,
// e.g. "DMC_Percentage".
func (c ComponentCategory) DisplayColumn(name string) string {
	return name + "_" + c.Suffix
}

// Location says where a filter category's data lives.
type Location int

const (
	LocationUnknown Location = iota
	LocationHeader
	LocationComponent
)

func (l Location) String() string {
	switch l {
	case LocationHeader:
		return "header"
	case LocationComponent:
		return "component"
	default:
		return "unknown"
	}
}

// Registry is the immutable schema description. It is safe for concurrent
// use once built.
type Registry struct {
	header     HeaderTable
	variables  []Variable
	byName     map[string]Variable
	groups     []Group
	components []ComponentCategory
}

// DefinitionError reports a malformed registry document.
type DefinitionError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *DefinitionError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var loadDefault = sync.OnceValues(func() (*Registry, error) {
	return Load(defaultDefinition)
})

// Default returns the registry built from the embedded definition.
func Default() (*Registry, error) {
	return loadDefault()
}

// MustDefault is Default for callers that cannot proceed without a registry.
func MustDefault() *Registry {
	r, err := Default()
	if err != nil {
		panic(err)
	}
	return r
}

// document mirrors registry.cue.
type document struct {
	Header struct {
		Table string `json:"table"`
		ID    string `json:"id"`
	} `json:"header"`
	Groups []struct {
		Name      string   `json:"name"`
		Variables []string `json:"variables"`
	} `json:"groups"`
	Variables  map[string]variableDoc `json:"variables"`
	Components []componentDoc         `json:"components"`
}

type variableDoc struct {
	Kind     string   `json:"kind"`
	Unit     string   `json:"unit"`
	Min      *float64 `json:"min"`
	Max      *float64 `json:"max"`
	Integer  bool     `json:"integer"`
	Required bool     `json:"required"`
	Formats  []string `json:"formats"`
}

type componentDoc struct {
	Category string `json:"category"`
	Part     string `json:"part"`
	Table    string `json:"table"`
	Name     string `json:"name"`
	Value    string `json:"value"`
	Suffix   string `json:"suffix"`
	Unit     string `json:"unit"`
}

// Load builds a Registry from a CUE document.
//
// Variable order follows the groups list, which is also the order columns are
// displayed in. Every variable must belong to exactly one group.
func Load(src []byte) (*Registry, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename("registry.cue"))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var doc document
	if err := v.Decode(&doc); err != nil {
		return nil, formatCUEError(err)
	}

	r := &Registry{
		header: HeaderTable{Table: doc.Header.Table, ID: doc.Header.ID},
		byName: make(map[string]Variable, len(doc.Variables)),
	}
	if r.header.Table == "" || r.header.ID == "" {
		return nil, &DefinitionError{Field: "header", Message: "table and id are required", Pos: v.Pos()}
	}

	for _, g := range doc.Groups {
		group := Group{Name: g.Name}
		for _, name := range g.Variables {
			vd, ok := doc.Variables[name]
			if !ok {
				return nil, &DefinitionError{
					Field:   "groups",
					Message: fmt.Sprintf("group %q lists undefined variable %q", g.Name, name),
					Pos:     v.LookupPath(cue.ParsePath("groups")).Pos(),
				}
			}
			if _, dup := r.byName[name]; dup {
				return nil, &DefinitionError{
					Field:   "groups",
					Message: fmt.Sprintf("variable %q appears in more than one group", name),
				}
			}
			variable, err := newVariable(name, vd)
			if err != nil {
				return nil, &DefinitionError{
					Field:   "variables." + name,
					Message: err.Error(),
					Pos:     v.LookupPath(cue.MakePath(cue.Str("variables"), cue.Str(name))).Pos(),
				}
			}
			r.variables = append(r.variables, variable)
			r.byName[name] = variable
			group.Variables = append(group.Variables, name)
		}
		r.groups = append(r.groups, group)
	}
	for name := range doc.Variables {
		if _, ok := r.byName[name]; !ok {
			return nil, &DefinitionError{
				Field:   "variables." + name,
				Message: "variable is not listed in any group",
			}
		}
	}
	if _, ok := r.byName[r.header.ID]; ok {
		return nil, &DefinitionError{Field: "header", Message: "id column collides with a variable name"}
	}

	seen := make(map[string]bool)
	for _, cd := range doc.Components {
		if seen[cd.Category] || r.isGroup(cd.Category) {
			return nil, &DefinitionError{
				Field:   "components",
				Message: fmt.Sprintf("category %q is defined more than once", cd.Category),
			}
		}
		seen[cd.Category] = true
		r.components = append(r.components, ComponentCategory{
			Category:    cd.Category,
			Part:        Part(cd.Part),
			Table:       cd.Table,
			NameColumn:  cd.Name,
			ValueColumn: cd.Value,
			Suffix:      cd.Suffix,
			Unit:        cd.Unit,
		})
	}

	return r, nil
}

func newVariable(name string, vd variableDoc) (Variable, error) {
	switch Kind(vd.Kind) {
	case KindNumeric:
		if vd.Min != nil && vd.Max != nil && *vd.Min > *vd.Max {
			return nil, fmt.Errorf("min %v exceeds max %v", *vd.Min, *vd.Max)
		}
		return &Numeric{
			name:     name,
			unit:     vd.Unit,
			min:      vd.Min,
			max:      vd.Max,
			integer:  vd.Integer,
			required: vd.Required,
		}, nil
	case KindDate:
		if len(vd.Formats) == 0 {
			return nil, fmt.Errorf("date variable needs at least one format")
		}
		return &Date{name: name, formats: vd.Formats, required: vd.Required}, nil
	case KindComposition:
		return &Composition{name: name}, nil
	case KindText:
		return &FreeText{name: name, required: vd.Required}, nil
	default:
		return nil, fmt.Errorf("unknown kind %q", vd.Kind)
	}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &DefinitionError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}

// Header returns the header table description.
func (r *Registry) Header() HeaderTable { return r.header }

// Variables returns header variables in display order.
func (r *Registry) Variables() []Variable { return r.variables }

// Describe looks up a header variable by name.
func (r *Registry) Describe(name string) (Variable, bool) {
	v, ok := r.byName[name]
	return v, ok
}

// Groups returns the header variable groups in order.
func (r *Registry) Groups() []Group { return r.groups }

// Components returns the component categories in order.
func (r *Registry) Components() []ComponentCategory { return r.components }

// Component looks up a component category by name.
func (r *Registry) Component(category string) (ComponentCategory, bool) {
	for _, c := range r.components {
		if c.Category == category {
			return c, true
		}
	}
	return ComponentCategory{}, false
}

func (r *Registry) isGroup(name string) bool {
	for _, g := range r.groups {
		if g.Name == name {
			return true
		}
	}
	return false
}

// Locate reports whether a filter category is header- or component-resident.
func (r *Registry) Locate(category string) Location {
	if r.isGroup(category) {
		return LocationHeader
	}
	if _, ok := r.Component(category); ok {
		return LocationComponent
	}
	return LocationUnknown
}

// CompositionVariable returns the variable that decomposes into components,
// if the registry defines one.
func (r *Registry) CompositionVariable() (Variable, bool) {
	for _, v := range r.variables {
		if v.Kind() == KindComposition {
			return v, true
		}
	}
	return nil, false
}

// Build validates raw input for every header variable, decomposes the
// composition into component lists and derives the record identity.
// Validation runs in display order and the first failure is returned.
// Keys in raw that name no variable are ignored.
func (r *Registry) Build(raw map[string]string) (record.Experiment, error) {
	exp := record.Experiment{
		Fields:     make(record.Fields, len(r.variables)),
		Components: make(map[string][]record.Component, len(r.components)),
	}

	for _, v := range r.variables {
		parsed, err := v.Validate(raw[v.Name()])
		if err != nil {
			return record.Experiment{}, err
		}
		exp.Fields[v.Name()] = parsed.Value
		if parsed.Composition == nil {
			continue
		}
		for _, c := range r.components {
			switch c.Part {
			case PartSolvents:
				exp.Components[c.Category] = parsed.Composition.SolventComponents()
			case PartSalts:
				exp.Components[c.Category] = parsed.Composition.SaltComponents()
			}
		}
	}

	if _, err := exp.Identify(); err != nil {
		return record.Experiment{}, err
	}
	return exp, nil
}

// Choice is one selectable filter category and its options.
type Choice struct {
	Title   string
	Options []string
}

// HeaderChoices lists the header groups with their filterable variable names,
// sorted case-insensitively. Component options depend on stored data and are
// supplied by the store.
func (r *Registry) HeaderChoices() []Choice {
	out := make([]Choice, 0, len(r.groups))
	for _, g := range r.groups {
		opts := make([]string, 0, len(g.Variables))
		for _, name := range g.Variables {
			if v := r.byName[name]; v.FilterSpec().Filterable {
				opts = append(opts, name)
			}
		}
		SortOptions(opts)
		out = append(out, Choice{Title: g.Name, Options: opts})
	}
	return out
}

// SortOptions orders choice options case-insensitively, falling back to a
// byte comparison so the order is total.
func SortOptions(opts []string) {
	slices.SortFunc(opts, func(a, b string) int {
		if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
}
