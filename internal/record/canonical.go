package record

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// decimalDigits is the fixed number of fractional digits decimals are written
// with before hashing.
const decimalDigits = 10

// MarshalCanonical produces the canonical JSON form of fields for hashing.
// This is the only serialization that may be used for identity.
//
// Differences from encoding/json:
//  1. Object keys sorted by UTF-16 code units
//  2. No HTML escaping
//  3. Strings are NFC normalized
//  4. Decimals use exactly ten fractional digits; NaN and Inf are rejected
//  5. Absent values are written as null
func MarshalCanonical(fields Fields) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, k := range fields.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeCanonicalString(&buf, k)
		buf.WriteByte(':')

		if err := writeCanonicalValue(&buf, fields[k]); err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeCanonicalValue(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case nil, Absent:
		buf.WriteString("null")
	case Text:
		writeCanonicalString(buf, string(val))
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Decimal:
		s, err := canonicalDecimal(float64(val))
		if err != nil {
			return err
		}
		buf.WriteString(s)
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
	return nil
}

// canonicalDecimal formats f with a fixed fractional precision. Values that
// round to zero are written without a sign so -0 and 0 hash the same.
func canonicalDecimal(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("non-finite decimal %v", f)
	}
	s := strconv.FormatFloat(f, 'f', decimalDigits, 64)
	if s[0] == '-' && isZeroDecimal(s[1:]) {
		s = s[1:]
	}
	return s, nil
}

func isZeroDecimal(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '0' && s[i] != '.' {
			return false
		}
	}
	return true
}

// writeCanonicalString writes s as an RFC 8785 JSON string: NFC normalized,
// only quote, backslash and control characters escaped.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	s = norm.NFC.String(s)

	buf.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r < 0x20:
			fmt.Fprintf(buf, `\u%04x`, r)
		default:
			buf.WriteString(s[i : i+size])
		}
		i += size
	}
	buf.WriteByte('"')
}
