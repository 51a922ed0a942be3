package materialize

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
)

// Format names an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or csv)", s)
	}
}

// Write encodes t in the given format.
func Write(w io.Writer, f Format, t Table) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, t)
	case FormatJSON:
		return WriteJSON(w, t)
	default:
		return WriteText(w, t)
	}
}

// WriteCSV writes a header line followed by one line per row.
func WriteCSV(w io.Writer, t Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns); err != nil {
		return err
	}
	for _, row := range t.Rows {
		rec := make([]string, len(row))
		for i, cell := range row {
			rec[i] = FormatCell(cell)
		}
		if err := writer.Write(rec); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteJSON writes an array of objects whose keys follow column order.
func WriteJSON(w io.Writer, t Table) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return err
	}
	for r, row := range t.Rows {
		if r > 0 {
			if _, err := io.WriteString(w, ","); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "\n  {"); err != nil {
			return err
		}
		for i, cell := range row {
			key, err := json.Marshal(t.Columns[i])
			if err != nil {
				return err
			}
			val, err := json.Marshal(cell)
			if err != nil {
				return fmt.Errorf("column %s: %w", t.Columns[i], err)
			}
			sep := ", "
			if i == 0 {
				sep = ""
			}
			if _, err := fmt.Fprintf(w, "%s%s: %s", sep, key, val); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "}"); err != nil {
			return err
		}
	}
	if len(t.Rows) > 0 {
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "]\n")
	return err
}

// WriteText renders t as a bordered text table.
func WriteText(w io.Writer, t Table) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)

	// Don't uppercase the header values.
	tw.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	tw.AppendHeader(header)
	for _, row := range t.Rows {
		cells := make(table.Row, len(row))
		for i, cell := range row {
			cells[i] = FormatCell(cell)
		}
		tw.AppendRow(cells)
	}
	tw.Render()
	return nil
}
