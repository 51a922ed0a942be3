// Package composition parses and formats CompositionID strings.
//
// Grammar:
//
//	S1_S2_.._Sn|P1_P2_.._Pn|T1_T2_.._Tm|M1_M2_.._Mm
//
// Si/Ti are solvent/salt names: non-empty, leading upper-case letter, letters
// and digits only. Pi are solvent percentages summing to 100 (within 1e-10),
// Mi are salt molalities. Every number must be finite and strictly positive.
//
// An empty segment pair decodes to an empty list, so a salt-free composition
// is written "DMC|100||". Strictly read, the grammar requires at least one
// token per segment; salt-free mixtures are accepted. Empty solvents still
// fail the percentage sum.
//
// Decode stops at the first violation and reports it as a *DecodeError.
package composition

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/roach88/electrolyte/internal/record"
)

const (
	segmentSep = "|"
	tokenSep   = "_"

	// SumTolerance is the absolute tolerance on the percentage sum.
	SumTolerance = 1e-10
)

// Composition is a decoded CompositionID. Solvents[i] pairs with
// Percentages[i]; Salts[i] pairs with Molalities[i]. Order is preserved.
type Composition struct {
	Solvents    []string
	Percentages []float64
	Salts       []string
	Molalities  []float64
}

// Decode parses raw into a Composition.
func Decode(raw string) (Composition, error) {
	segments := strings.Split(raw, segmentSep)
	if len(segments) != 4 {
		return Composition{}, newDecodeError(ReasonSegments,
			"expected 4 segments separated by %q, got %d", segmentSep, len(segments))
	}

	solvents := splitTokens(segments[0])
	percentages := splitTokens(segments[1])
	salts := splitTokens(segments[2])
	molalities := splitTokens(segments[3])

	if len(solvents) != len(percentages) {
		return Composition{}, newDecodeError(ReasonLength,
			"%d solvents but %d percentages", len(solvents), len(percentages))
	}
	if len(salts) != len(molalities) {
		return Composition{}, newDecodeError(ReasonLength,
			"%d salts but %d molalities", len(salts), len(molalities))
	}

	if err := checkNames("solvent", solvents); err != nil {
		return Composition{}, err
	}
	if err := checkNames("salt", salts); err != nil {
		return Composition{}, err
	}

	pcts, err := parseAmounts("percentage", percentages)
	if err != nil {
		return Composition{}, err
	}
	mols, err := parseAmounts("molality", molalities)
	if err != nil {
		return Composition{}, err
	}

	var sum float64
	for _, p := range pcts {
		sum += p
	}
	if math.Abs(sum-100) > SumTolerance {
		return Composition{}, &DecodeError{Reason: ReasonSum, Message: SumMessage}
	}

	return Composition{
		Solvents:    solvents,
		Percentages: pcts,
		Salts:       salts,
		Molalities:  mols,
	}, nil
}

// Encode joins the composition back into CompositionID form. Numbers use the
// shortest decimal that round-trips, so "50.0" comes back as "50".
func (c Composition) Encode() string {
	return strings.Join([]string{
		strings.Join(c.Solvents, tokenSep),
		joinAmounts(c.Percentages),
		strings.Join(c.Salts, tokenSep),
		joinAmounts(c.Molalities),
	}, segmentSep)
}

// SolventComponents pairs solvent names with their percentages.
func (c Composition) SolventComponents() []record.Component {
	return pair(c.Solvents, c.Percentages)
}

// SaltComponents pairs salt names with their molalities.
func (c Composition) SaltComponents() []record.Component {
	return pair(c.Salts, c.Molalities)
}

func pair(names []string, values []float64) []record.Component {
	out := make([]record.Component, len(names))
	for i := range names {
		out[i] = record.Component{Name: names[i], Value: values[i]}
	}
	return out
}

// splitTokens splits a segment on '_'. An empty segment is an empty list,
// which lets salt-free compositions be written as "DMC|100||".
func splitTokens(segment string) []string {
	if segment == "" {
		return []string{}
	}
	return strings.Split(segment, tokenSep)
}

func checkNames(kind string, names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if !ValidName(name) {
			return newDecodeError(ReasonName,
				"%s name %q must start with an upper-case letter and contain only letters and digits", kind, name)
		}
		if _, dup := seen[name]; dup {
			return newDecodeError(ReasonDuplicate, "%s %q is listed more than once", kind, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// ValidName reports whether name is a well-formed component name.
func ValidName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if i == 0 && !unicode.IsUpper(r) {
			return false
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func parseAmounts(kind string, tokens []string) ([]float64, error) {
	out := make([]float64, len(tokens))
	for i, tok := range tokens {
		f, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, newDecodeError(ReasonNumber, "%s %q is not a number", kind, tok)
		}
		if f <= 0 {
			return nil, newDecodeError(ReasonNonPositive, "%s %q must be greater than zero", kind, tok)
		}
		out[i] = f
	}
	return out, nil
}

func joinAmounts(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, tokenSep)
}

func newDecodeError(reason Reason, format string, args ...any) *DecodeError {
	return &DecodeError{
		Reason:  reason,
		Message: InvalidMessage + " " + capitalize(fmt.Sprintf(format, args...)) + ".",
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
