// Package domain contains core business entities and interfaces.
package domain

// TaskType tags the provenance of a task.
type TaskType string

const (
	TaskTypeRegular    TaskType = "regular"    // Created directly by the user
	TaskTypeHabit      TaskType = "habit"      // Derived from a habit occurrence
	TaskTypeScreenshot TaskType = "screenshot" // Created from a captured screenshot
)

// DeleteReason tags why a task was removed.
type DeleteReason string

const (
	DeleteManual          DeleteReason = "manual"
	DeleteCompleted       DeleteReason = "completed"
	DeleteTemplateRemoved DeleteReason = "template-removed"
)

// Relationships is the optional back-reference from a task to its habit.
// HabitID + Date together form the natural key: at most one non-deleted
// task may exist for a given pair, regardless of ID.
type Relationships struct {
	HabitID    string `json:"habitId,omitempty"`
	TemplateID string `json:"templateId,omitempty"`
	Date       string `json:"date,omitempty"`
	MetricType string `json:"metricType,omitempty"`
}

// TaskMetrics holds completion metrics, attached only when a task completes.
type TaskMetrics struct {
	StartedAt   string  `json:"startedAt,omitempty"`
	CompletedAt string  `json:"completedAt,omitempty"`
	PauseCount  int     `json:"pauseCount,omitempty"`
	Efficiency  float64 `json:"efficiency,omitempty"`
}

// Task is the central entity of the reconciliation engine.
// Fields are ordered to minimize memory padding.
type Task struct {
	Relationships *Relationships `json:"relationships,omitempty"`
	Metrics       *TaskMetrics   `json:"metrics,omitempty"`
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	CreatedAt     string         `json:"createdAt"` // RFC3339
	TaskType      TaskType       `json:"taskType"`
	Duration      int            `json:"duration"` // Seconds, > 0
	Completed     bool           `json:"completed"`
}

// IsHabit returns true if the task was derived from a habit occurrence.
func (t *Task) IsHabit() bool {
	return t.TaskType == TaskTypeHabit
}

// NaturalKey returns the (habitID, date) pair and whether the task has one.
func (t *Task) NaturalKey() (habitID, date string, ok bool) {
	if t.Relationships == nil || t.Relationships.HabitID == "" || t.Relationships.Date == "" {
		return "", "", false
	}
	return t.Relationships.HabitID, t.Relationships.Date, true
}

// MatchesOccurrence reports whether the task belongs to the given natural key.
func (t *Task) MatchesOccurrence(habitID, date string) bool {
	h, d, ok := t.NaturalKey()
	return ok && h == habitID && d == date
}

// TemplateID returns the linked template id, or empty if none.
func (t *Task) TemplateID() string {
	if t.Relationships == nil {
		return ""
	}
	return t.Relationships.TemplateID
}

// TaskPatch describes a partial update to a task. Nil fields are left as-is.
type TaskPatch struct {
	Name          *string        `json:"name,omitempty"`
	Description   *string        `json:"description,omitempty"`
	Duration      *int           `json:"duration,omitempty"`
	Relationships *Relationships `json:"relationships,omitempty"`
	Metrics       *TaskMetrics   `json:"metrics,omitempty"`
}

// Apply merges the patch into the task.
func (t *Task) Apply(p TaskPatch) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Duration != nil && *p.Duration > 0 {
		t.Duration = *p.Duration
	}
	if p.Relationships != nil {
		rel := *p.Relationships
		t.Relationships = &rel
	}
	if p.Metrics != nil {
		m := *p.Metrics
		t.Metrics = &m
	}
}
