package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/electrolyte/internal/compiler"
	"github.com/roach88/electrolyte/internal/ingest"
	"github.com/roach88/electrolyte/internal/schema"
	"github.com/roach88/electrolyte/internal/store"
)

// ErrInvalidID rejects record lookups by a malformed identifier.
var ErrInvalidID = errors.New("invalid experiment id")

// ErrorClass groups engine errors by who has to act on them.
type ErrorClass string

const (
	// ClassValidation is bad user input: a field, a CSV row, a missing column.
	ClassValidation ErrorClass = "VALIDATION"

	// ClassCompile is a filter the compiler refused. Filters are built from
	// registry choices, so this points at a defect upstream.
	ClassCompile ErrorClass = "COMPILE"

	// ClassStorage is a storage failure, possibly transient.
	ClassStorage ErrorClass = "STORAGE"

	// ClassUnknown is anything else.
	ClassUnknown ErrorClass = "UNKNOWN"
)

// Classify reports the class of err. Uses errors.As to see through wrapping.
func Classify(err error) ErrorClass {
	var (
		ve *schema.ValidationError
		re *ingest.RowError
		se *ingest.SchemaError
		ce *compiler.CompileError
		st *store.StorageError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve), errors.As(err, &re), errors.As(err, &se),
		errors.Is(err, ingest.ErrNotCSV), errors.Is(err, ErrInvalidID):
		return ClassValidation
	case errors.As(err, &ce):
		return ClassCompile
	case errors.As(err, &st), errors.Is(err, store.ErrNotFound):
		return ClassStorage
	default:
		return ClassUnknown
	}
}

// OperationError records which engine operation failed. The underlying error
// keeps its identity through Unwrap.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

func opErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{Op: op, Err: err}
}
