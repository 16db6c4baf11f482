package domain

import (
	"fmt"
	"time"
)

const (
	// DefaultTaskDuration is applied when an occurrence carries no usable duration.
	DefaultTaskDuration = 1500 // Seconds

	// TemplateUnlinked is the sentinel template id for occurrences without one.
	TemplateUnlinked = "unlinked"

	// DayFormat is the canonical calendar-day string format.
	DayFormat = "2006-01-02"
)

// HabitOccurrence is the ephemeral payload describing "habit H should produce
// a task on date D". It is never persisted.
type HabitOccurrence struct {
	HabitID    string
	TemplateID string
	Name       string
	Date       string
	MetricType string
	Duration   int // Seconds
}

// ProcessingKey returns the per-occurrence serialization key.
func (o HabitOccurrence) ProcessingKey() string {
	return o.HabitID + "-" + o.Date
}

// Normalized returns a copy with the date canonicalized, the duration
// defaulted, and the template id defaulted to the sentinel.
// Returns an error wrapping ErrBadDate if the date cannot be parsed.
func (o HabitOccurrence) Normalized() (HabitOccurrence, error) {
	day, err := NormalizeDay(o.Date)
	if err != nil {
		return o, err
	}
	o.Date = day
	if o.Duration <= 0 {
		o.Duration = DefaultTaskDuration
	}
	if o.TemplateID == "" {
		o.TemplateID = TemplateUnlinked
	}
	return o, nil
}

// dayLayouts are the accepted input formats for occurrence dates.
var dayLayouts = []string{
	DayFormat,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02",
}

// NormalizeDay parses a date string and returns the canonical day string.
func NormalizeDay(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("%w: empty date", ErrBadDate)
	}
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DayFormat), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrBadDate, s)
}

// DayString formats a time as the canonical calendar-day string.
func DayString(t time.Time) string {
	return t.Format(DayFormat)
}
