// Package ingest reads bulk experiment uploads.
//
// An upload is a CSV file whose header names every header variable of the
// schema registry (extra columns are ignored). Every row is validated before
// anything is returned: the first missing column or invalid row rejects the
// whole file, so a caller never stores half an upload.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/electrolyte/internal/record"
	"github.com/roach88/electrolyte/internal/schema"
)

// ErrNotCSV rejects uploads that are not CSV files.
var ErrNotCSV = errors.New("You must upload a CSV file")

// SchemaError reports a required column absent from the upload.
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("Your CSV file must have a %s column!", e.Column)
}

// RowError reports an invalid data row. Line counts the header as line 1,
// so the first data row is line 2.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("Error on line %d: %s", e.Line, e.Err.Error())
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// ReadFile reads a CSV upload from disk.
func ReadFile(path string, reg *schema.Registry) ([]record.Experiment, error) {
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return nil, ErrNotCSV
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()
	return Read(f, reg)
}

// Read validates every row of a CSV upload and returns the built
// experiments in file order.
func Read(r io.Reader, reg *schema.Registry) ([]record.Experiment, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &SchemaError{Column: firstColumn(reg)}
	}
	if err != nil {
		return nil, &RowError{Line: 1, Err: err}
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	for _, v := range reg.Variables() {
		if _, ok := index[v.Name()]; !ok {
			return nil, &SchemaError{Column: v.Name()}
		}
	}

	var out []record.Experiment
	for row := 0; ; row++ {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		line := row + 2
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				err = pe.Err
			}
			return nil, &RowError{Line: line, Err: err}
		}

		raw := make(map[string]string, len(index))
		for name, i := range index {
			raw[name] = fields[i]
		}
		exp, err := reg.Build(raw)
		if err != nil {
			return nil, &RowError{Line: line, Err: err}
		}
		out = append(out, exp)
	}
	return out, nil
}

func firstColumn(reg *schema.Registry) string {
	if vars := reg.Variables(); len(vars) > 0 {
		return vars[0].Name()
	}
	return reg.Header().ID
}
