// Package registry holds the canonical in-process representation of active
// and completed tasks. State is mutated only through the closed action set,
// with invariants enforced at the transition boundary.
package registry

import "github.com/okatsu/habitask/internal/domain"

// State is the registry snapshot.
// Invariants:
//   - Items and Completed are disjoint by id.
//   - SelectedID, if set, references an id present in Items.
type State struct {
	SelectedID string
	Items      []domain.Task
	Completed  []domain.Task
	IsLoaded   bool
}

// Action is the closed set of registry transitions.
type Action interface {
	isAction()
}

// LoadTasks replaces the whole state from the durable store.
type LoadTasks struct {
	Items     []domain.Task
	Completed []domain.Task
}

// AddTask appends a task to the active list. It is a no-op when a task with
// the same id or the same (habitId, date) natural key already exists.
type AddTask struct {
	Task domain.Task
}

// UpdateTask merges a patch into an active task.
type UpdateTask struct {
	Patch domain.TaskPatch
	ID    string
}

// DeleteTask removes a task from whichever list holds it.
type DeleteTask struct {
	ID     string
	Reason domain.DeleteReason
}

// CompleteTask moves a task from Items to Completed with metrics attached.
type CompleteTask struct {
	Metrics domain.TaskMetrics
	ID      string
}

// DeleteTasksByTemplate removes every task linked to the template.
type DeleteTasksByTemplate struct {
	TemplateID string
}

// SelectTask sets the selection. Selecting an id absent from Items clears it.
type SelectTask struct {
	ID string
}

func (LoadTasks) isAction()             {}
func (AddTask) isAction()               {}
func (UpdateTask) isAction()            {}
func (DeleteTask) isAction()            {}
func (CompleteTask) isAction()          {}
func (DeleteTasksByTemplate) isAction() {}
func (SelectTask) isAction()            {}

// Reduce applies an action to the state and returns the next state along
// with whether the Items/Completed lists changed. Input slices are never
// mutated in place.
func Reduce(s State, a Action) (State, bool) {
	switch act := a.(type) {
	case LoadTasks:
		next := State{
			Items:     append([]domain.Task(nil), act.Items...),
			Completed: append([]domain.Task(nil), act.Completed...),
			IsLoaded:  true,
		}
		// Keep the selection only if the task survived the reload.
		if containsID(next.Items, s.SelectedID) {
			next.SelectedID = s.SelectedID
		}
		return next, true

	case AddTask:
		if containsID(s.Items, act.Task.ID) {
			return s, false
		}
		if h, d, ok := act.Task.NaturalKey(); ok && findByNaturalKey(s.Items, h, d) >= 0 {
			return s, false
		}
		s.Items = append(append([]domain.Task(nil), s.Items...), act.Task)
		return s, true

	case UpdateTask:
		idx := findByID(s.Items, act.ID)
		if idx < 0 {
			return s, false
		}
		items := append([]domain.Task(nil), s.Items...)
		items[idx].Apply(act.Patch)
		s.Items = items
		return s, true

	case DeleteTask:
		changed := false
		if idx := findByID(s.Items, act.ID); idx >= 0 {
			s.Items = removeAt(s.Items, idx)
			changed = true
		}
		if idx := findByID(s.Completed, act.ID); idx >= 0 {
			s.Completed = removeAt(s.Completed, idx)
			changed = true
		}
		if changed && s.SelectedID == act.ID {
			s.SelectedID = ""
		}
		return s, changed

	case CompleteTask:
		idx := findByID(s.Items, act.ID)
		if idx < 0 {
			return s, false
		}
		task := s.Items[idx]
		task.Completed = true
		m := act.Metrics
		task.Metrics = &m
		s.Items = removeAt(s.Items, idx)
		s.Completed = append(append([]domain.Task(nil), s.Completed...), task)
		if s.SelectedID == act.ID {
			s.SelectedID = ""
		}
		return s, true

	case DeleteTasksByTemplate:
		items, removedItems := withoutTemplate(s.Items, act.TemplateID)
		completed, removedCompleted := withoutTemplate(s.Completed, act.TemplateID)
		if !removedItems && !removedCompleted {
			return s, false
		}
		if s.SelectedID != "" && !containsID(items, s.SelectedID) {
			s.SelectedID = ""
		}
		s.Items = items
		s.Completed = completed
		return s, true

	case SelectTask:
		if act.ID != "" && !containsID(s.Items, act.ID) {
			s.SelectedID = ""
			return s, false
		}
		s.SelectedID = act.ID
		return s, false
	}
	return s, false
}

func findByID(tasks []domain.Task, id string) int {
	if id == "" {
		return -1
	}
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func containsID(tasks []domain.Task, id string) bool {
	return findByID(tasks, id) >= 0
}

func findByNaturalKey(tasks []domain.Task, habitID, date string) int {
	for i := range tasks {
		if tasks[i].MatchesOccurrence(habitID, date) {
			return i
		}
	}
	return -1
}

func removeAt(tasks []domain.Task, idx int) []domain.Task {
	out := make([]domain.Task, 0, len(tasks)-1)
	out = append(out, tasks[:idx]...)
	return append(out, tasks[idx+1:]...)
}

func withoutTemplate(tasks []domain.Task, templateID string) ([]domain.Task, bool) {
	out := make([]domain.Task, 0, len(tasks))
	removed := false
	for _, t := range tasks {
		if t.TemplateID() == templateID {
			removed = true
			continue
		}
		out = append(out, t)
	}
	if !removed {
		return tasks, false
	}
	return out, true
}
