package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/electrolyte/internal/filter"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Records are raw form submissions, stored in order.
	Records []map[string]string `yaml:"records"`

	// Rejects are submissions that must fail validation.
	Rejects []Rejection `yaml:"rejects,omitempty"`

	// Filter is the query under test. An empty filter selects everything.
	Filter filter.Model `yaml:"filter"`

	// AllColumns forces every header column into the output.
	AllColumns bool `yaml:"all_columns,omitempty"`

	// Expect checks the materialized result.
	Expect Expectation `yaml:"expect"`
}

// Rejection is a submission expected to fail validation.
type Rejection struct {
	Record map[string]string `yaml:"record"`

	// Error is the exact message the user would see.
	Error string `yaml:"error"`
}

// Expectation validates the query result. Row subsets compare cells by their
// formatted text, so 50 matches 50.0 and dates are written as displayed.
type Expectation struct {
	Count    *int             `yaml:"count,omitempty"`
	Contains []map[string]any `yaml:"contains,omitempty"`
	Excludes []map[string]any `yaml:"excludes,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if scenario.Filter == nil {
		scenario.Filter = filter.Model{}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Records) == 0 && len(s.Rejects) == 0 {
		return fmt.Errorf("records or rejects are required")
	}

	for i, rec := range s.Records {
		if len(rec) == 0 {
			return fmt.Errorf("records[%d]: record is empty", i)
		}
	}
	for i, rej := range s.Rejects {
		if len(rej.Record) == 0 {
			return fmt.Errorf("rejects[%d]: record is required", i)
		}
		if rej.Error == "" {
			return fmt.Errorf("rejects[%d]: error is required", i)
		}
	}

	e := s.Expect
	if e.Count == nil && len(e.Contains) == 0 && len(e.Excludes) == 0 {
		return fmt.Errorf("expect needs at least one of count, contains, excludes")
	}
	if e.Count != nil && *e.Count < 0 {
		return fmt.Errorf("expect.count must be non-negative")
	}
	for i, row := range e.Contains {
		if len(row) == 0 {
			return fmt.Errorf("expect.contains[%d]: row is empty", i)
		}
	}
	for i, row := range e.Excludes {
		if len(row) == 0 {
			return fmt.Errorf("expect.excludes[%d]: row is empty", i)
		}
	}
	return nil
}
