package models

import (
	"github.com/pulsewatch/pulsewatch/pkg/utils"
)

// Operator defines the comparison operator of a threshold alert.
type Operator string

const (
	OpLessThan       Operator = "<"
	OpGreaterThan    Operator = ">"
	OpLessOrEqual    Operator = "<="
	OpGreaterOrEqual Operator = ">="
	OpEqual          Operator = "=="
	OpNotEqual       Operator = "!="
)

// Operators lists all valid comparison operators.
var Operators = []Operator{
	OpLessThan, OpGreaterThan, OpLessOrEqual, OpGreaterOrEqual, OpEqual, OpNotEqual,
}

// ParseOperator validates a raw operator token.
func ParseOperator(raw string) (Operator, error) {
	op := Operator(raw)
	if !op.Valid() {
		return "", utils.NewAppError(utils.ErrCodeValidation, "Unknown comparison operator", raw)
	}
	return op, nil
}

// Valid reports whether the operator is one of the six supported variants.
func (op Operator) Valid() bool {
	switch op {
	case OpLessThan, OpGreaterThan, OpLessOrEqual, OpGreaterOrEqual, OpEqual, OpNotEqual:
		return true
	}
	return false
}

// Evaluate applies the operator to (value, threshold) using standard numeric
// comparison semantics. An invalid operator never satisfies.
func (op Operator) Evaluate(value, threshold float64) bool {
	switch op {
	case OpLessThan:
		return value < threshold
	case OpGreaterThan:
		return value > threshold
	case OpLessOrEqual:
		return value <= threshold
	case OpGreaterOrEqual:
		return value >= threshold
	case OpEqual:
		return value == threshold
	case OpNotEqual:
		return value != threshold
	default:
		return false
	}
}

func (op Operator) String() string {
	return string(op)
}
