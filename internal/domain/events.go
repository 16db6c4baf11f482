package domain

// Topic names an event bus channel.
type Topic string

const (
	TopicTaskAdded      Topic = "task.added"
	TopicTaskUpdated    Topic = "task.updated"
	TopicTaskDeleted    Topic = "task.deleted"
	TopicTaskCompleted  Topic = "task.completed"
	TopicTaskSelected   Topic = "task.selected"
	TopicHabitScheduled Topic = "habit.scheduled"
	TopicRefresh        Topic = "refresh"
)

// Event is the closed set of bus payloads. Each topic has exactly one
// payload type so handlers can match exhaustively.
type Event interface {
	Topic() Topic
}

// TaskAdded announces a newly created task.
type TaskAdded struct {
	Task Task
}

// Topic implements Event.
func (TaskAdded) Topic() Topic { return TopicTaskAdded }

// TaskUpdated announces a partial update to a task.
type TaskUpdated struct {
	Patch TaskPatch
	ID    string
}

// Topic implements Event.
func (TaskUpdated) Topic() Topic { return TopicTaskUpdated }

// TaskDeleted announces a removal, tagged with the reason.
type TaskDeleted struct {
	ID     string
	Reason DeleteReason
}

// Topic implements Event.
func (TaskDeleted) Topic() Topic { return TopicTaskDeleted }

// TaskCompleted announces a completion with its metrics.
type TaskCompleted struct {
	Metrics TaskMetrics
	ID      string
}

// Topic implements Event.
func (TaskCompleted) Topic() Topic { return TopicTaskCompleted }

// TaskSelected brings a task into focus for any consumer.
type TaskSelected struct {
	ID string
}

// Topic implements Event.
func (TaskSelected) Topic() Topic { return TopicTaskSelected }

// HabitScheduled announces that a habit occurrence should produce a task.
type HabitScheduled struct {
	Occurrence HabitOccurrence
}

// Topic implements Event.
func (HabitScheduled) Topic() Topic { return TopicHabitScheduled }

// Refresh requests a full reload from the durable store. It carries no payload.
type Refresh struct{}

// Topic implements Event.
func (Refresh) Topic() Topic { return TopicRefresh }
