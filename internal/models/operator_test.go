package models

import "testing"

func TestOperatorEvaluate(t *testing.T) {
	tests := []struct {
		op        Operator
		value     float64
		threshold float64
		want      bool
	}{
		{OpLessThan, 5, 10, true},
		{OpLessThan, 10, 10, false},
		{OpGreaterThan, 12, 10, true},
		{OpGreaterThan, 10, 10, false},
		{OpLessOrEqual, 10, 10, true},
		{OpLessOrEqual, 11, 10, false},
		{OpGreaterOrEqual, 10, 10, true},
		{OpGreaterOrEqual, 9.999, 10, false},
		{OpEqual, 10, 10, true},
		{OpEqual, 10.001, 10, false},
		{OpNotEqual, 10.001, 10, true},
		{OpNotEqual, 10, 10, false},
	}

	for _, tt := range tests {
		got := tt.op.Evaluate(tt.value, tt.threshold)
		if got != tt.want {
			t.Errorf("%g %s %g = %v, want %v", tt.value, tt.op, tt.threshold, got, tt.want)
		}
	}
}

func TestOperatorEvaluateInvalid(t *testing.T) {
	if Operator("~").Evaluate(1, 1) {
		t.Error("invalid operator must never satisfy")
	}
}

func TestParseOperator(t *testing.T) {
	for _, op := range Operators {
		parsed, err := ParseOperator(string(op))
		if err != nil {
			t.Fatalf("ParseOperator(%q) failed: %v", op, err)
		}
		if parsed != op {
			t.Fatalf("ParseOperator(%q) = %q", op, parsed)
		}
	}

	if _, err := ParseOperator("=>"); err == nil {
		t.Error("expected error for unknown operator token")
	}
	if _, err := ParseOperator(""); err == nil {
		t.Error("expected error for empty operator token")
	}
}
