package domain

import "fmt"

// InvalidSeriesError reports a forecast series that cannot be scanned: empty,
// mismatched array lengths, or lead times that are not strictly increasing.
// It is fatal to the single query and never retried by the engine.
type InvalidSeriesError struct {
	Reason string
}

func (e *InvalidSeriesError) Error() string {
	return "invalid forecast series: " + e.Reason
}

// UnsupportedOperatorError reports a condition operator outside the recognized
// set. This is an input-validation bug in the caller, not a data problem.
type UnsupportedOperatorError struct {
	Operator Operator
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("unsupported threshold operator %q", e.Operator)
}

func invalidSeriesf(format string, args ...any) *InvalidSeriesError {
	return &InvalidSeriesError{Reason: fmt.Sprintf(format, args...)}
}
