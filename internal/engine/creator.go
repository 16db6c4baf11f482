// Package engine implements the task/habit reconciliation loop: idempotent
// creation of habit tasks, debounced processing of scheduling triggers, and
// the consistency sweep between the durable store and the in-memory registry.
package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okatsu/habitask/internal/bus"
	"github.com/okatsu/habitask/internal/domain"
)

// Creator builds habit tasks with a deterministic identity check against the
// durable store so repeated scheduling of the same occurrence converges to
// the same task.
type Creator struct {
	store domain.TaskStore
	bus   *bus.Bus
	clock domain.Clock
	log   domain.Logger
}

// NewCreator creates a new Creator.
func NewCreator(store domain.TaskStore, b *bus.Bus, clock domain.Clock, log domain.Logger) *Creator {
	return &Creator{
		store: store,
		bus:   b,
		clock: clock,
		log:   log,
	}
}

// CreateHabitTask creates the task for one habit occurrence, or returns the
// id of the existing task for the same (habitID, date) natural key.
// The persistence write happens before any event emission, so subscribers
// reacting to the events can rely on the store already reflecting it.
func (c *Creator) CreateHabitTask(habitID, templateID, name string, duration int, date string) (string, error) {
	if habitID == "" {
		return "", domain.ErrEmptyHabitID
	}
	if name == "" {
		return "", domain.ErrEmptyName
	}

	existing, err := c.store.TaskExists(habitID, date)
	if err != nil {
		return "", fmt.Errorf("check existing task: %w", err)
	}
	if existing != nil {
		// Converge on the existing record: bring it into focus, create nothing.
		c.bus.Emit(domain.TaskSelected{ID: existing.ID})
		return existing.ID, nil
	}

	if duration <= 0 {
		duration = domain.DefaultTaskDuration
	}
	if templateID == "" {
		templateID = domain.TemplateUnlinked
	}
	task := domain.Task{
		ID:        uuid.NewString(),
		Name:      name,
		Duration:  duration,
		CreatedAt: c.clock.Now().Format(time.RFC3339),
		TaskType:  domain.TaskTypeHabit,
		Relationships: &domain.Relationships{
			HabitID:    habitID,
			TemplateID: templateID,
			Date:       date,
		},
	}

	added, err := c.store.AddTask(task)
	if err != nil {
		return "", fmt.Errorf("persist task: %w", err)
	}
	if !added {
		// The id collided, which means another write raced us. Re-check the
		// natural key and converge on whatever won.
		raced, err := c.store.TaskExists(habitID, date)
		if err != nil {
			return "", fmt.Errorf("re-check existing task: %w", err)
		}
		if raced != nil {
			c.bus.Emit(domain.TaskSelected{ID: raced.ID})
			return raced.ID, nil
		}
		return "", domain.ErrDuplicateTaskID
	}

	if c.log != nil {
		c.log.Info("creator", fmt.Sprintf("created habit task %s for %s on %s", task.ID, habitID, date))
	}
	c.bus.Emit(domain.TaskAdded{Task: task})
	c.bus.Emit(domain.TaskSelected{ID: task.ID})
	c.bus.Emit(domain.Refresh{})
	return task.ID, nil
}
