package registry

import (
	"fmt"
	"sync"

	"github.com/okatsu/habitask/internal/bus"
	"github.com/okatsu/habitask/internal/domain"
)

// Registry owns the in-memory state, applies bus events through the reducer,
// and resynchronizes the durable store after every list transition so the
// store never lags the registry.
type Registry struct {
	store  domain.TaskStore
	bus    *bus.Bus
	log    domain.Logger
	unsubs []func()
	state  State
	mu     sync.Mutex
}

// New creates a Registry. Call Subscribe to wire it to the bus and Reload to
// populate it from the store.
func New(store domain.TaskStore, b *bus.Bus, log domain.Logger) *Registry {
	return &Registry{
		store: store,
		bus:   b,
		log:   log,
	}
}

// Subscribe wires the registry to the task lifecycle topics and the
// force-refresh signal.
func (r *Registry) Subscribe() {
	r.unsubs = append(r.unsubs,
		r.bus.On(domain.TopicTaskAdded, func(ev domain.Event) {
			r.Dispatch(AddTask{Task: ev.(domain.TaskAdded).Task})
		}),
		r.bus.On(domain.TopicTaskUpdated, func(ev domain.Event) {
			e := ev.(domain.TaskUpdated)
			r.Dispatch(UpdateTask{ID: e.ID, Patch: e.Patch})
		}),
		r.bus.On(domain.TopicTaskDeleted, func(ev domain.Event) {
			e := ev.(domain.TaskDeleted)
			r.Dispatch(DeleteTask{ID: e.ID, Reason: e.Reason})
		}),
		r.bus.On(domain.TopicTaskCompleted, func(ev domain.Event) {
			e := ev.(domain.TaskCompleted)
			r.Dispatch(CompleteTask{ID: e.ID, Metrics: e.Metrics})
		}),
		r.bus.On(domain.TopicTaskSelected, func(ev domain.Event) {
			r.Dispatch(SelectTask{ID: ev.(domain.TaskSelected).ID})
		}),
		r.bus.On(domain.TopicRefresh, func(domain.Event) {
			if err := r.Reload(); err != nil && r.log != nil {
				r.log.Error("registry", fmt.Sprintf("reload: %v", err))
			}
		}),
	)
}

// Close unsubscribes the registry from the bus.
func (r *Registry) Close() {
	for _, u := range r.unsubs {
		u()
	}
	r.unsubs = nil
}

// Dispatch applies an action. When the transition changed the active or
// completed list, the durable store is overwritten with the new lists.
func (r *Registry) Dispatch(a Action) {
	r.mu.Lock()
	next, changed := Reduce(r.state, a)
	r.state = next
	items := next.Items
	completed := next.Completed
	r.mu.Unlock()

	if !changed {
		return
	}
	if _, ok := a.(LoadTasks); ok {
		// A load came from the store; writing it back would be a no-op.
		return
	}
	if err := r.store.ReplaceAll(items, completed); err != nil && r.log != nil {
		r.log.Error("registry", fmt.Sprintf("store resync: %v", err))
	}
}

// Reload replaces the in-memory state from the durable store, absorbing
// writes made by other flows.
func (r *Registry) Reload() error {
	tasks, err := r.store.LoadTasks()
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	var items, completed []domain.Task
	for _, t := range tasks {
		if t.Completed {
			completed = append(completed, t)
		} else {
			items = append(items, t)
		}
	}
	r.Dispatch(LoadTasks{Items: items, Completed: completed})
	return nil
}

// Items returns a snapshot of the active list.
func (r *Registry) Items() []domain.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Task(nil), r.state.Items...)
}

// Completed returns a snapshot of the completed list.
func (r *Registry) Completed() []domain.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Task(nil), r.state.Completed...)
}

// SelectedID returns the selected task id, or empty.
func (r *Registry) SelectedID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.SelectedID
}

// IsLoaded reports whether the registry has loaded from the store.
func (r *Registry) IsLoaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.IsLoaded
}

// HasTask implements domain.RegistryView.
func (r *Registry) HasTask(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return containsID(r.state.Items, id)
}

// HasNaturalKey implements domain.RegistryView.
func (r *Registry) HasNaturalKey(habitID, date string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return findByNaturalKey(r.state.Items, habitID, date) >= 0
}

// Size implements domain.RegistryView.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.state.Items)
}

// Ensure Registry implements RegistryView.
var _ domain.RegistryView = (*Registry)(nil)
