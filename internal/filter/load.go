package filter

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a filter model from a YAML or JSON file.
func Load(path string) (Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read filter file: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a filter model. JSON documents are accepted as YAML.
//
// Document shape: every key of a category other than combinator (or its
// alias logic) names a selection.
//
//	Solvents:
//	  combinator: and        # or "logic"; defaults to or
//	  DMC: [10, null]        # [min, max]
//	  EMC: {min: 20}         # mapping form
//	Independent variables:
//	  Date: ["1/1/2024", "12/31/2024"]
//
// Selections may also be nested under a "selections" key.
func Parse(data []byte) (Model, error) {
	m := Model{}
	if len(bytes.TrimSpace(data)) == 0 {
		return m, nil
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}
	return m, nil
}

// UnmarshalYAML decodes a category mapping.
func (c *Category) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: category must be a mapping", node.Line)
	}

	var combinator, logic string
	selections := make(map[string]Range)
	add := func(name string, value *yaml.Node) error {
		if _, dup := selections[name]; dup {
			return fmt.Errorf("line %d: %q is selected more than once", value.Line, name)
		}
		var r Range
		if err := value.Decode(&r); err != nil {
			return err
		}
		selections[name] = r
		return nil
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "combinator":
			if err := value.Decode(&combinator); err != nil {
				return err
			}
		case "logic":
			if err := value.Decode(&logic); err != nil {
				return err
			}
		case "selections":
			if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
				continue
			}
			if value.Kind != yaml.MappingNode {
				return fmt.Errorf("line %d: selections must be a mapping", value.Line)
			}
			for j := 0; j+1 < len(value.Content); j += 2 {
				if err := add(value.Content[j].Value, value.Content[j+1]); err != nil {
					return err
				}
			}
		default:
			if err := add(key.Value, value); err != nil {
				return err
			}
		}
	}

	if combinator != "" && logic != "" && !strings.EqualFold(combinator, logic) {
		return fmt.Errorf("line %d: combinator %q conflicts with logic %q", node.Line, combinator, logic)
	}
	word := combinator
	if word == "" {
		word = logic
	}
	comb, err := ParseCombinator(word)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}

	c.Combinator = comb
	c.Selections = selections
	return nil
}

// UnmarshalYAML accepts [min, max] or {min: ..., max: ...}.
func (r *Range) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("line %d: range needs exactly two bounds, got %d", node.Line, len(node.Content))
		}
		if err := node.Content[0].Decode(&r.Min); err != nil {
			return err
		}
		return node.Content[1].Decode(&r.Max)
	case yaml.MappingNode:
		var raw struct {
			Min Bound `yaml:"min"`
			Max Bound `yaml:"max"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		r.Min, r.Max = raw.Min, raw.Max
		return nil
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*r = Any()
			return nil
		}
	}
	return fmt.Errorf("line %d: range must be [min, max] or {min, max}", node.Line)
}

// UnmarshalYAML accepts null, a number or a string. Numeric strings become
// numbers.
func (b *Bound) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: bound must be a scalar", node.Line)
	}
	switch node.Tag {
	case "!!null":
		*b = Unbounded()
		return nil
	case "!!int", "!!float":
		f, err := strconv.ParseFloat(node.Value, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("line %d: bound %q is not a finite number", node.Line, node.Value)
		}
		*b = Number(f)
		return nil
	default:
		if f, err := strconv.ParseFloat(node.Value, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			*b = Number(f)
			return nil
		}
		*b = Text(node.Value)
		return nil
	}
}

// MarshalYAML writes the sequence form.
func (r Range) MarshalYAML() (any, error) {
	return []any{r.Min.raw, r.Max.raw}, nil
}

// MarshalYAML writes the flat form: the combinator beside the selections.
func (c Category) MarshalYAML() (any, error) {
	comb := c.Combinator
	if comb == "" {
		comb = DefaultCombinator
	}
	out := make(map[string]any, len(c.Selections)+1)
	out["combinator"] = strings.ToLower(string(comb))
	for name, r := range c.Selections {
		out[name] = r
	}
	return out, nil
}
