package compiler

import (
	"errors"
	"fmt"
)

// Compile error codes (E200-E299)
const (
	ErrUnknownCategory = "E201" // category is neither a header group nor a component category
	ErrUnknownVariable = "E202" // selection names a variable outside its group
	ErrNotFilterable   = "E203" // variable has no range semantics
	ErrBadBound        = "E204" // bound cannot be coerced to the variable's domain
	ErrBadCombinator   = "E205" // combinator other than AND/OR
	ErrInvalidPlan     = "E210" // produced plan failed structural validation
)

// CompileError is a filter the compiler could not translate. Reaching one
// after input validation indicates a defect, so callers should report it
// loudly rather than fall back to an empty result.
type CompileError struct {
	Code     string
	Category string
	Message  string
}

func (e *CompileError) Error() string {
	if e.Category != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Category, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// IsCompileError reports whether err is or wraps a *CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

func compileErr(code, category, format string, args ...any) *CompileError {
	return &CompileError{Code: code, Category: category, Message: fmt.Sprintf(format, args...)}
}
