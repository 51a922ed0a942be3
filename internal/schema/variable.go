package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/electrolyte/internal/composition"
	"github.com/roach88/electrolyte/internal/record"
)

// Kind identifies a Variable variant.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindDate        Kind = "date"
	KindComposition Kind = "composition"
	KindText        Kind = "text"
)

// ColumnType is the storage type of a header column.
type ColumnType int

const (
	ColumnReal ColumnType = iota
	ColumnInteger
	ColumnText
)

// Widget names the input control a UI should render for a variable.
type Widget string

const (
	WidgetNumber Widget = "number"
	WidgetDate   Widget = "date"
	WidgetText   Widget = "text"
)

// FilterSpec describes how a variable can be filtered.
type FilterSpec struct {
	Widget     Widget
	Filterable bool // false for variables that only support display
}

// Parsed is the outcome of validating one raw input.
// Composition is set only for the composition variant.
type Parsed struct {
	Value       record.Value
	Composition *composition.Composition
}

// Variable is the capability interface shared by all header variable
// variants.
type Variable interface {
	Name() string
	Kind() Kind
	Unit() string
	Required() bool
	Column() ColumnType

	// Validate parses and canonicalizes raw input. Failures are returned as
	// *ValidationError carrying the user-facing message.
	Validate(raw string) (Parsed, error)

	// FilterSpec reports how the variable may be filtered.
	FilterSpec() FilterSpec

	// Bound converts a filter bound (number or string) into the stored
	// numeric domain.
	Bound(raw any) (float64, error)

	// Display converts a stored value into its rendered form.
	Display(v record.Value) any
}

// Numeric is a range-checked real or integer variable.
type Numeric struct {
	name     string
	unit     string
	min, max *float64
	integer  bool
	required bool
}

func (n *Numeric) Name() string   { return n.name }
func (n *Numeric) Kind() Kind     { return KindNumeric }
func (n *Numeric) Unit() string   { return n.unit }
func (n *Numeric) Required() bool { return n.required }

func (n *Numeric) Column() ColumnType {
	if n.integer {
		return ColumnInteger
	}
	return ColumnReal
}

func (n *Numeric) Validate(raw string) (Parsed, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if n.required {
			return Parsed{}, missing(n.name)
		}
		return Parsed{Value: record.Absent{}}, nil
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Parsed{}, invalid(n.name, "%s must be a number!", n.name)
	}
	if n.min != nil && f < *n.min {
		return Parsed{}, invalid(n.name, "%s must be greater than %s!", n.name, formatFloat(*n.min))
	}
	if n.max != nil && f > *n.max {
		return Parsed{}, invalid(n.name, "%s must be less than %s!", n.name, formatFloat(*n.max))
	}
	if n.integer {
		if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
			return Parsed{}, invalid(n.name, "%s must be integer!", n.name)
		}
		return Parsed{Value: record.Int(int64(f))}, nil
	}
	return Parsed{Value: record.Decimal(f)}, nil
}

func (n *Numeric) FilterSpec() FilterSpec {
	return FilterSpec{Widget: WidgetNumber, Filterable: true}
}

func (n *Numeric) Bound(raw any) (float64, error) {
	return numericBound(n.name, raw)
}

func (n *Numeric) Display(v record.Value) any {
	return record.Native(v)
}

// Date is a calendar date stored as whole days since 1970-01-01 (UTC), which
// keeps it sortable and hashable as an integer.
type Date struct {
	name     string
	formats  []string
	required bool
}

// DisplayLayout is the layout dates are rendered with.
const DisplayLayout = "01/02/2006"

var epoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

func (d *Date) Name() string       { return d.name }
func (d *Date) Kind() Kind         { return KindDate }
func (d *Date) Unit() string       { return "" }
func (d *Date) Required() bool     { return d.required }
func (d *Date) Column() ColumnType { return ColumnInteger }

func (d *Date) Validate(raw string) (Parsed, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if d.required {
			return Parsed{}, missing(d.name)
		}
		return Parsed{Value: record.Absent{}}, nil
	}
	days, ok := d.parse(raw)
	if !ok {
		return Parsed{}, invalid(d.name, "%s must be in MM/DD/YY format!", d.name)
	}
	return Parsed{Value: record.Int(days)}, nil
}

// parse tries each accepted layout in order.
func (d *Date) parse(raw string) (int64, bool) {
	for _, layout := range d.formats {
		t, err := time.ParseInLocation(layout, raw, time.UTC)
		if err == nil {
			return DaysSinceEpoch(t), true
		}
	}
	return 0, false
}

func (d *Date) FilterSpec() FilterSpec {
	return FilterSpec{Widget: WidgetDate, Filterable: true}
}

// Bound accepts either a day count or a date string in any accepted layout.
func (d *Date) Bound(raw any) (float64, error) {
	if s, ok := raw.(string); ok {
		days, ok := d.parse(strings.TrimSpace(s))
		if !ok {
			return 0, fmt.Errorf("%s bound %q is not a date", d.name, s)
		}
		return float64(days), nil
	}
	return numericBound(d.name, raw)
}

func (d *Date) Display(v record.Value) any {
	switch val := v.(type) {
	case record.Int:
		return FormatDays(int64(val))
	case record.Decimal:
		return FormatDays(int64(val))
	default:
		return record.Native(v)
	}
}

// DaysSinceEpoch returns the whole number of days between 1970-01-01 and the
// calendar date of t.
func DaysSinceEpoch(t time.Time) int64 {
	y, m, day := t.Date()
	midnight := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	return midnight.Unix() / 86400
}

// FormatDays renders a day offset as MM/DD/YYYY.
func FormatDays(days int64) string {
	return epoch.AddDate(0, 0, int(days)).Format(DisplayLayout)
}

// Composition is the CompositionID variable. It validates through the
// composition codec, stores the re-encoded string and decomposes into
// component lists.
type Composition struct {
	name string
}

func (c *Composition) Name() string       { return c.name }
func (c *Composition) Kind() Kind         { return KindComposition }
func (c *Composition) Unit() string       { return "" }
func (c *Composition) Required() bool     { return true }
func (c *Composition) Column() ColumnType { return ColumnText }

func (c *Composition) Validate(raw string) (Parsed, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Parsed{}, missing(c.name)
	}
	comp, err := composition.Decode(raw)
	if err != nil {
		return Parsed{}, &ValidationError{Variable: c.name, Message: err.Error(), Err: err}
	}
	return Parsed{Value: record.Text(comp.Encode()), Composition: &comp}, nil
}

func (c *Composition) FilterSpec() FilterSpec {
	return FilterSpec{Widget: WidgetText}
}

func (c *Composition) Bound(any) (float64, error) {
	return 0, fmt.Errorf("%s cannot be range-filtered; filter on its components instead", c.name)
}

func (c *Composition) Display(v record.Value) any {
	return record.Native(v)
}

// FreeText is an unvalidated string variable.
type FreeText struct {
	name     string
	required bool
}

func (f *FreeText) Name() string       { return f.name }
func (f *FreeText) Kind() Kind         { return KindText }
func (f *FreeText) Unit() string       { return "" }
func (f *FreeText) Required() bool     { return f.required }
func (f *FreeText) Column() ColumnType { return ColumnText }

func (f *FreeText) Validate(raw string) (Parsed, error) {
	if strings.TrimSpace(raw) == "" {
		if f.required {
			return Parsed{}, missing(f.name)
		}
		return Parsed{Value: record.Absent{}}, nil
	}
	return Parsed{Value: record.Text(raw)}, nil
}

func (f *FreeText) FilterSpec() FilterSpec {
	return FilterSpec{Widget: WidgetText}
}

func (f *FreeText) Bound(any) (float64, error) {
	return 0, fmt.Errorf("%s cannot be range-filtered", f.name)
}

func (f *FreeText) Display(v record.Value) any {
	return record.Native(v)
}

func numericBound(name string, raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%s bound %q is not a number", name, v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%s bound has unsupported type %T", name, raw)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
