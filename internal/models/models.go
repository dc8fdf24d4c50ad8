package models

import (
	"fmt"
	"time"

	"github.com/pulsewatch/pulsewatch/pkg/utils"
)

// MinIntervalMs is the minimum polling interval accepted for a notification.
const MinIntervalMs = 1000

// TagFilter narrows a series selector to rows carrying a tag value.
type TagFilter struct {
	Tag   string `json:"tag"`
	Value string `json:"value"`
}

// SeriesSelector identifies the time series a notification samples.
type SeriesSelector struct {
	Bucket      string      `json:"bucket"`
	Measurement string      `json:"measurement"`
	Field       string      `json:"field"`
	Filters     []TagFilter `json:"filters"`
}

// Validate checks that the selector addresses a concrete series.
func (s SeriesSelector) Validate() error {
	if s.Bucket == "" {
		return utils.NewAppError(utils.ErrCodeValidation, "Selector bucket is required")
	}
	if s.Measurement == "" {
		return utils.NewAppError(utils.ErrCodeValidation, "Selector measurement is required")
	}
	if s.Field == "" {
		return utils.NewAppError(utils.ErrCodeValidation, "Selector field is required")
	}
	for _, f := range s.Filters {
		if f.Tag == "" {
			return utils.NewAppError(utils.ErrCodeValidation, "Selector filter tag is required")
		}
	}
	return nil
}

// Action is a persisted command shortcut owned by a user. It is structurally
// parallel to a Notification but never scheduled.
type Action struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Command string `json:"command"`
}

// Notification is a persisted threshold alert definition. The selector fields
// are flattened into the notification record in the persisted document.
type Notification struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Operator   Operator `json:"operator"`
	Threshold  float64  `json:"threshold"`
	IntervalMs int64    `json:"intervalMs"`
	SeriesSelector
}

// Interval returns the polling interval as a duration.
func (n Notification) Interval() time.Duration {
	return time.Duration(n.IntervalMs) * time.Millisecond
}

// Validate checks a notification record against the document schema.
func (n Notification) Validate() error {
	if n.ID == "" {
		return utils.NewAppError(utils.ErrCodeValidation, "Notification id is required")
	}
	if n.Name == "" {
		return utils.NewAppError(utils.ErrCodeValidation, "Notification name is required")
	}
	if !n.Operator.Valid() {
		return utils.NewAppError(utils.ErrCodeValidation, "Unknown comparison operator", string(n.Operator))
	}
	if n.IntervalMs < MinIntervalMs {
		return utils.NewAppError(utils.ErrCodeValidation, "Interval below minimum",
			fmt.Sprintf("intervalMs %d < %d", n.IntervalMs, MinIntervalMs))
	}
	return n.SeriesSelector.Validate()
}

// User owns a chat address plus its actions and notifications.
type User struct {
	ID            string         `json:"id"`
	ChatAddress   string         `json:"chatAddress"`
	Actions       []Action       `json:"actions"`
	Notifications []Notification `json:"notifications"`
}

// Clone returns a deep copy of the user record.
func (u *User) Clone() *User {
	cp := *u
	cp.Actions = append([]Action(nil), u.Actions...)
	cp.Notifications = append([]Notification(nil), u.Notifications...)
	return &cp
}

// Validate checks a user record against the document schema.
func (u User) Validate() error {
	if u.ID == "" {
		return utils.NewAppError(utils.ErrCodeValidation, "User id is required")
	}
	if u.ChatAddress == "" {
		return utils.NewAppError(utils.ErrCodeValidation, "User chat address is required", u.ID)
	}
	for _, a := range u.Actions {
		if a.ID == "" || a.Name == "" {
			return utils.NewAppError(utils.ErrCodeValidation, "Malformed action record", u.ID)
		}
	}
	for _, n := range u.Notifications {
		if err := n.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ActionInput is user-supplied input for creating an action.
type ActionInput struct {
	Name    string `json:"name"`
	Command string `json:"command"`
}

// Validate checks action creation input.
func (in ActionInput) Validate() error {
	if in.Name == "" {
		return utils.NewAppError(utils.ErrCodeValidation, "Action name is required")
	}
	if in.Command == "" {
		return utils.NewAppError(utils.ErrCodeValidation, "Action command is required")
	}
	return nil
}

// NotificationInput is user-supplied input for creating a notification.
// The operator arrives as a raw token and is validated at the boundary.
type NotificationInput struct {
	Name       string         `json:"name"`
	Operator   string         `json:"operator"`
	Threshold  float64        `json:"threshold"`
	IntervalMs int64          `json:"intervalMs"`
	Selector   SeriesSelector `json:"selector"`
}

// Validate checks notification creation input and returns the parsed operator.
func (in NotificationInput) Validate() (Operator, error) {
	if in.Name == "" {
		return "", utils.NewAppError(utils.ErrCodeValidation, "Notification name is required")
	}
	op, err := ParseOperator(in.Operator)
	if err != nil {
		return "", err
	}
	if in.IntervalMs < MinIntervalMs {
		return "", utils.NewAppError(utils.ErrCodeValidation, "Interval below minimum",
			fmt.Sprintf("intervalMs %d < %d", in.IntervalMs, MinIntervalMs))
	}
	if err := in.Selector.Validate(); err != nil {
		return "", err
	}
	return op, nil
}

// Sample is a single time-stamped numeric observation from the series source.
type Sample struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}
