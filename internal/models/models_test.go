package models

import (
	"testing"

	"github.com/pulsewatch/pulsewatch/pkg/utils"
)

func validInput() NotificationInput {
	return NotificationInput{
		Name:       "cpu high",
		Operator:   ">",
		Threshold:  90,
		IntervalMs: 1000,
		Selector: SeriesSelector{
			Bucket:      "telemetry",
			Measurement: "system",
			Field:       "cpu",
			Filters:     []TagFilter{{Tag: "host", Value: "web-1"}},
		},
	}
}

func TestNotificationInputValidate(t *testing.T) {
	in := validInput()

	op, err := in.Validate()
	if err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}
	if op != OpGreaterThan {
		t.Fatalf("parsed operator = %q, want >", op)
	}
}

func TestNotificationInputIntervalBoundary(t *testing.T) {
	in := validInput()

	in.IntervalMs = 500
	if _, err := in.Validate(); !utils.IsValidation(err) {
		t.Errorf("intervalMs 500 must fail validation, got %v", err)
	}

	in.IntervalMs = 999
	if _, err := in.Validate(); !utils.IsValidation(err) {
		t.Errorf("intervalMs 999 must fail validation, got %v", err)
	}

	in.IntervalMs = 1000
	if _, err := in.Validate(); err != nil {
		t.Errorf("intervalMs 1000 must pass validation, got %v", err)
	}
}

func TestNotificationInputRejectsBadFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*NotificationInput)
	}{
		{"empty name", func(in *NotificationInput) { in.Name = "" }},
		{"unknown operator", func(in *NotificationInput) { in.Operator = "gt" }},
		{"empty bucket", func(in *NotificationInput) { in.Selector.Bucket = "" }},
		{"empty measurement", func(in *NotificationInput) { in.Selector.Measurement = "" }},
		{"empty field", func(in *NotificationInput) { in.Selector.Field = "" }},
		{"filter without tag", func(in *NotificationInput) { in.Selector.Filters = []TagFilter{{Value: "x"}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			if _, err := in.Validate(); !utils.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestUserValidate(t *testing.T) {
	u := User{ID: "u1", ChatAddress: "12345"}
	if err := u.Validate(); err != nil {
		t.Fatalf("valid user rejected: %v", err)
	}

	u.ChatAddress = ""
	if err := u.Validate(); !utils.IsValidation(err) {
		t.Errorf("user without chat address must fail validation, got %v", err)
	}
}
