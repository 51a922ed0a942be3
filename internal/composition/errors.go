package composition

import "errors"

// Messages surfaced to users verbatim.
const (
	InvalidMessage = "Please enter a valid composition ID."
	SumMessage     = "Percentages of solvents must sum up to 100."
)

// Reason categorizes a decode failure.
type Reason string

const (
	ReasonSegments    Reason = "SEGMENTS"
	ReasonLength      Reason = "LENGTH_MISMATCH"
	ReasonName        Reason = "BAD_NAME"
	ReasonDuplicate   Reason = "DUPLICATE_NAME"
	ReasonNumber      Reason = "NOT_A_NUMBER"
	ReasonNonPositive Reason = "NON_POSITIVE"
	ReasonSum         Reason = "PERCENT_SUM"
)

// DecodeError is the first violation found while decoding a CompositionID.
type DecodeError struct {
	Reason  Reason
	Message string
}

func (e *DecodeError) Error() string {
	return e.Message
}

// IsReason reports whether err is a *DecodeError with the given reason.
func IsReason(err error, reason Reason) bool {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Reason == reason
	}
	return false
}
