package formatter

import (
	"errors"
	"fmt"
)

// Error records the failure of a single output's formatter run. It is
// collected by the builder rather than aborting sibling outputs.
type Error struct {
	Output    string
	Formatter string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("output %q (formatter %q): %v", e.Output, e.Formatter, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps a formatter failure with its output context.
func NewError(output, formatter string, err error) error {
	return &Error{Output: output, Formatter: formatter, Err: err}
}

// CapacityError reports a spatial unit whose summed coral cover exceeds its
// carrying capacity. It is a data-integrity fault: the formatter aborts
// instead of clamping.
type CapacityError struct {
	Unit     string
	Total    float64
	Capacity float64
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("unit %q: total cover %.6g exceeds capacity %.6g", e.Unit, e.Total, e.Capacity)
}

// InsufficientDataError reports a regression stratum with too few
// observations to fit.
type InsufficientDataError struct {
	Stratum string
	N       int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("stratum %q: %d observation(s), need at least 2 to fit", e.Stratum, e.N)
}

// UnknownCategoryError reports a cyclone category outside the known table.
type UnknownCategoryError struct {
	Value int
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown cyclone category %d (known categories are 0-5)", e.Value)
}

// IsDataIntegrity reports whether err is one of the data-integrity faults a
// formatter can raise.
func IsDataIntegrity(err error) bool {
	var capErr *CapacityError
	var insErr *InsufficientDataError
	var catErr *UnknownCategoryError
	return errors.As(err, &capErr) || errors.As(err, &insErr) || errors.As(err, &catErr)
}
