package domain

import "time"

// StoreInitializer initializes the data store.
type StoreInitializer interface {
	// Initialize creates the store if it doesn't exist.
	Initialize() error
}

// TaskStore manages task persistence across two logical collections:
// active tasks and completed tasks. Every operation is a read-modify-write
// of the full collections, so same-process double calls never lose updates.
type TaskStore interface {
	// LoadTasks returns all tasks, active and completed. Corrupt data loads
	// as an empty list rather than failing.
	LoadTasks() ([]Task, error)

	// AddTask persists a new task. Returns false without side effects if a
	// task with the same ID already exists.
	AddTask(task Task) (bool, error)

	// TaskExists looks up a task by natural key in either collection.
	// Returns nil if not found.
	TaskExists(habitID, date string) (*Task, error)

	// TaskExistsByID reports whether a task with the given ID exists.
	TaskExistsByID(id string) (bool, error)

	// UpdateTask merges the patch into an active task. Returns false if the
	// ID is not found.
	UpdateTask(id string, patch TaskPatch) (bool, error)

	// RemoveTask deletes a task from whichever collection holds it.
	RemoveTask(id string) (bool, error)

	// CompleteTask atomically removes a task from the active collection and
	// appends it to the completed collection with metrics attached.
	CompleteTask(id string, metrics TaskMetrics) (bool, error)

	// ReplaceAll overwrites both collections. Used by the registry to
	// resynchronize the store after a state transition.
	ReplaceAll(items, completed []Task) error
}

// RegistryView is the read surface the reconciliation loop needs from the
// in-memory registry.
type RegistryView interface {
	// HasTask reports whether an active task with the given ID is in memory.
	HasTask(id string) bool

	// HasNaturalKey reports whether an active task with the given natural
	// key is in memory.
	HasNaturalKey(habitID, date string) bool

	// Size returns the number of active tasks in memory.
	Size() int
}

// Notifier is the toast/snackbar surface of the UI layer. Messages are
// advisory, never blocking.
type Notifier interface {
	Success(msg string)
	Info(msg string)
	Error(msg string)
}

// Logger writes category-tagged log entries.
type Logger interface {
	Debug(category, msg string)
	Info(category, msg string)
	Warn(category, msg string)
	Error(category, msg string)
}

// Scheduler runs a function after a delay. The returned cancel function
// stops the pending run; calling it after the function ran is a no-op.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (cancel func())
}

// Clock provides time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Today returns the canonical day string for the current time.
	Today() string
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Today returns the canonical day string for the current time.
func (RealClock) Today() string {
	return DayString(time.Now())
}
