package domain

import "math"

// Operator is a threshold comparison operator.
type Operator string

const (
	OpLessThan       Operator = "lt"
	OpGreaterThan    Operator = "gt"
	OpLessOrEqual    Operator = "lte"
	OpGreaterOrEqual Operator = "gte"
	OpEqual          Operator = "eq"
)

// eqTolerance is the comparison width for the eq operator. Exact float
// equality on forecast values essentially never matches, so eq is widened to
// a narrow band around the threshold.
const eqTolerance = 1e-6

// Valid reports whether o is in the recognized operator set.
func (o Operator) Valid() bool {
	switch o {
	case OpLessThan, OpGreaterThan, OpLessOrEqual, OpGreaterOrEqual, OpEqual:
		return true
	}
	return false
}

// ThresholdCondition is a per-query threshold rule. Value is in the same
// storage unit as the series it is evaluated against; display-unit conversion
// is the caller's job.
type ThresholdCondition struct {
	Variable string   `json:"variable"`
	Operator Operator `json:"operator"`
	Value    float64  `json:"value"`
}

// Validate returns an UnsupportedOperatorError for operators outside the
// recognized set.
func (c ThresholdCondition) Validate() error {
	if !c.Operator.Valid() {
		return &UnsupportedOperatorError{Operator: c.Operator}
	}
	return nil
}

// Satisfies evaluates the condition predicate for a single value. Unknown
// operators evaluate to false; callers are expected to Validate first.
func (c ThresholdCondition) Satisfies(value float64) bool {
	switch c.Operator {
	case OpLessThan:
		return value < c.Value
	case OpGreaterThan:
		return value > c.Value
	case OpLessOrEqual:
		return value <= c.Value
	case OpGreaterOrEqual:
		return value >= c.Value
	case OpEqual:
		return math.Abs(value-c.Value) < eqTolerance
	}
	return false
}
