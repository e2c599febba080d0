package domain

import "time"

// RecurrenceType is the step between two rides of a series.
type RecurrenceType string

const (
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
)

// Valid reports whether t is a supported recurrence step.
func (t RecurrenceType) Valid() bool {
	return t == RecurrenceWeekly || t == RecurrenceMonthly
}

// RecurrenceRule describes how a template ride repeats.
//
// Day is a weekday (0=Sunday..6) for weekly rules and a day of month (1..31)
// for monthly rules. Day and Time are kept for display; instance times are
// always derived from the template's DateTime.
type RecurrenceRule struct {
	Type    RecurrenceType
	Day     int
	Time    string // HH:mm
	EndDate time.Time
}
