// Package conmonerr defines the error taxonomy shared across the
// evaluation kernel: configuration errors, missing-field errors,
// comparison errors, sandbox execution failures, persistence errors,
// and generator errors.
package conmonerr

import (
	"errors"
	"fmt"
)

// Category classifies a kernel error for handling and reporting.
type Category int

const (
	// CategoryUnknown is the zero value for uncategorized errors.
	CategoryUnknown Category = iota
	// CategoryConfiguration marks malformed Check metadata, surfaced at
	// materialisation time and preventing evaluation entirely.
	CategoryConfiguration
	// CategoryMissingField marks a field-path evaluation failure for a
	// given resource; evaluation continues across remaining resources.
	CategoryMissingField
	// CategoryComparison marks an operator raising or incompatible types.
	CategoryComparison
	// CategorySandboxExecutionFailure marks a custom predicate that
	// raised, referenced a disallowed name, produced no result, or
	// exceeded its wall-clock ceiling.
	CategorySandboxExecutionFailure
	// CategoryPersistence marks a store rejecting a write.
	CategoryPersistence
	// CategoryGenerator marks a Check Generator failure: invalid LLM
	// response, exhausted self-improvement attempts, or validation
	// failure.
)

func (c Category) String() string {
	switch c {
	case CategoryConfiguration:
		return "Configuration"
	case CategoryMissingField:
		return "MissingField"
	case CategoryComparison:
		return "Comparison"
	case CategorySandboxExecutionFailure:
		return "SandboxExecutionFailure"
	case CategoryPersistence:
		return "Persistence"
	case CategoryGenerator:
		return "Generator"
	default:
		return "Unknown"
	}
}

// CategorizedError extends error with a Category for handling that
// depends on the kind of failure rather than its text.
type CategorizedError interface {
	error
	Category() Category
}

type categorizedError struct {
	category Category
	err      error
}

func (e *categorizedError) Error() string    { return e.err.Error() }
func (e *categorizedError) Category() Category { return e.category }
func (e *categorizedError) Unwrap() error    { return e.err }

// Wrap attaches a Category to an existing error. Wrapping nil returns nil.
func Wrap(category Category, err error) error {
	if err == nil {
		return nil
	}
	return &categorizedError{category: category, err: err}
}

// New builds a categorized error from a message.
func New(category Category, msg string) error {
	return Wrap(category, errors.New(msg))
}

// Newf builds a categorized error from a format string.
func Newf(category Category, format string, args ...interface{}) error {
	return Wrap(category, fmt.Errorf(format, args...))
}

// As extracts the CategorizedError view of err, if any wrapped error in
// its chain implements it.
func As(err error) (CategorizedError, bool) {
	if err == nil {
		return nil, false
	}
	var catErr CategorizedError
	if errors.As(err, &catErr) {
		return catErr, true
	}
	return nil, false
}

// Is reports whether err's category, if any, matches category.
func Is(err error, category Category) bool {
	ce, ok := As(err)
	return ok && ce.Category() == category
}
