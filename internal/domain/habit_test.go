package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHabit_DueOn(t *testing.T) {
	saturday := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	sunday := saturday.AddDate(0, 0, 1)

	daily := Habit{ID: "h1", Name: "Daily"}
	assert.True(t, daily.DueOn(saturday))
	assert.True(t, daily.DueOn(sunday))

	weekend := Habit{ID: "h2", Name: "Weekend", Days: []string{"Saturday", "Sunday"}}
	assert.True(t, weekend.DueOn(saturday))
	assert.False(t, weekend.DueOn(saturday.AddDate(0, 0, 2)))

	// Short names and mixed case match too.
	abbreviated := Habit{ID: "h3", Name: "Short", Days: []string{"sat", " SUN "}}
	assert.True(t, abbreviated.DueOn(saturday))
	assert.True(t, abbreviated.DueOn(sunday))
	assert.False(t, abbreviated.DueOn(saturday.AddDate(0, 0, 3)))
}

func TestHabit_OccurrenceFor(t *testing.T) {
	h := Habit{ID: "run", TemplateID: "morning", Name: "Morning run", MetricType: "duration", Duration: 1800}

	o := h.OccurrenceFor("2026-08-29")

	assert.Equal(t, "run", o.HabitID)
	assert.Equal(t, "morning", o.TemplateID)
	assert.Equal(t, "Morning run", o.Name)
	assert.Equal(t, "duration", o.MetricType)
	assert.Equal(t, 1800, o.Duration)
	assert.Equal(t, "2026-08-29", o.Date)
}
