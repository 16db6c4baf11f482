package domain

import (
	"strings"
	"time"
)

// Habit is a recurring definition loaded from the habit catalog.
// Fields are ordered to minimize memory padding.
type Habit struct {
	ID         string   `yaml:"id"`
	TemplateID string   `yaml:"template,omitempty"`
	Name       string   `yaml:"name"`
	MetricType string   `yaml:"metric,omitempty"`
	Days       []string `yaml:"days,omitempty"` // Weekday names; empty = every day
	Duration   int      `yaml:"duration,omitempty"`
}

// DueOn reports whether the habit should produce a task on the given day.
func (h Habit) DueOn(t time.Time) bool {
	if len(h.Days) == 0 {
		return true
	}
	weekday := strings.ToLower(t.Weekday().String())
	for _, d := range h.Days {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == weekday || (len(d) >= 3 && d == weekday[:3]) {
			return true
		}
	}
	return false
}

// OccurrenceFor builds the scheduling payload for the given day string.
func (h Habit) OccurrenceFor(day string) HabitOccurrence {
	return HabitOccurrence{
		HabitID:    h.ID,
		TemplateID: h.TemplateID,
		Name:       h.Name,
		Duration:   h.Duration,
		Date:       day,
		MetricType: h.MetricType,
	}
}
