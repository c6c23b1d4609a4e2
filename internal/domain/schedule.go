package domain

import "time"

// IntervalUnit is the unit of a schedule's review interval.
type IntervalUnit string

// Interval units.
const (
	IntervalMinutes IntervalUnit = "minutes"
	IntervalHours   IntervalUnit = "hours"
	IntervalDays    IntervalUnit = "days"
	IntervalWeeks   IntervalUnit = "weeks"
	IntervalMonths  IntervalUnit = "months"
)

// Valid reports whether u is a known unit.
func (u IntervalUnit) Valid() bool {
	switch u {
	case IntervalMinutes, IntervalHours, IntervalDays, IntervalWeeks, IntervalMonths:
		return true
	default:
		return false
	}
}

// Schedule records when a question should next be shown to a user.
// A question accumulates schedules over time; only the most recently
// created one is authoritative.
type Schedule struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	QuestionID   string       `json:"question_id"`
	CreatedAt    time.Time    `json:"created_at"`
	NextShowAt   time.Time    `json:"next_show_at"`
	Interval     int          `json:"interval"`
	IntervalUnit IntervalUnit `json:"interval_unit"`
}

// DueAt reports whether the schedule is due at now (next show time at or
// before now).
func (s *Schedule) DueAt(now time.Time) bool {
	return !s.NextShowAt.After(now)
}
