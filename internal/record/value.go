package record

import (
	"fmt"
	"slices"
	"strconv"
	"unicode/utf16"
)

// Value is a sealed interface over the scalar types a header field can hold.
// Only Absent, Text, Int and Decimal implement it.
type Value interface {
	value()
}

// Absent marks a field with no recorded value. It is stored as NULL and
// hashed as the JSON literal null.
type Absent struct{}

func (Absent) value() {}

// Text is a free-form string field.
type Text string

func (Text) value() {}

// Int is an integer field (trial numbers, day offsets).
type Int int64

func (Int) value() {}

// Decimal is a real-valued measurement.
type Decimal float64

func (Decimal) value() {}

// Fields maps header variable names to their values.
// Use SortedKeys for deterministic iteration.
type Fields map[string]Value

// SortedKeys returns keys in canonical order (UTF-16 code units).
func (f Fields) SortedKeys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysUTF16)
	return keys
}

// compareKeysUTF16 orders strings by UTF-16 code units as RFC 8785 requires.
// Go's native string comparison works on UTF-8 bytes and disagrees for
// characters outside the BMP.
func compareKeysUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// Native converts a Value into the Go type handed to database/sql.
// Absent becomes nil so the column is written as NULL.
func Native(v Value) any {
	switch val := v.(type) {
	case Text:
		return string(val)
	case Int:
		return int64(val)
	case Decimal:
		return float64(val)
	default:
		return nil
	}
}

// FromNative converts a scanned database value back into a Value.
// SQLite hands back int64, float64, string or []byte; Postgres may also
// return int32 or float32 depending on the column type.
func FromNative(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Absent{}, nil
	case string:
		return Text(val), nil
	case []byte:
		return Text(string(val)), nil
	case int64:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int:
		return Int(val), nil
	case float64:
		return Decimal(val), nil
	case float32:
		return Decimal(val), nil
	default:
		return nil, fmt.Errorf("unsupported column value type %T", v)
	}
}

// Format renders a value for humans and delimited exports.
func Format(v Value) string {
	switch val := v.(type) {
	case Text:
		return string(val)
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Decimal:
		return strconv.FormatFloat(float64(val), 'f', -1, 64)
	default:
		return ""
	}
}
