// Package testutil provides shared test utilities and mock implementations.
package testutil

import (
	"sort"
	"sync"
	"time"

	"github.com/okatsu/habitask/internal/domain"
)

// MockClock is a test double for domain.Clock.
type MockClock struct {
	NowTime time.Time
}

// Now returns the configured time.
func (m *MockClock) Now() time.Time {
	return m.NowTime
}

// Today returns the day string for the configured time.
func (m *MockClock) Today() string {
	return domain.DayString(m.NowTime)
}

// Advance moves the clock forward.
func (m *MockClock) Advance(d time.Duration) {
	m.NowTime = m.NowTime.Add(d)
}

// scheduledCall is one pending MockScheduler callback.
type scheduledCall struct {
	fn       func()
	due      time.Duration
	seq      int
	canceled bool
}

// MockScheduler is a deterministic test double for domain.Scheduler. Calls
// are recorded with their due offset from a virtual zero; Advance runs every
// call that has come due, in due order.
type MockScheduler struct {
	calls []*scheduledCall
	now   time.Duration
	seq   int
	mu    sync.Mutex
}

// NewMockScheduler creates a MockScheduler.
func NewMockScheduler() *MockScheduler {
	return &MockScheduler{}
}

// AfterFunc records fn to run after d of virtual time.
func (m *MockScheduler) AfterFunc(d time.Duration, fn func()) (cancel func()) {
	m.mu.Lock()
	call := &scheduledCall{fn: fn, due: m.now + d, seq: m.seq}
	m.seq++
	m.calls = append(m.calls, call)
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		call.canceled = true
		m.mu.Unlock()
	}
}

// Advance moves virtual time forward and runs every due callback in due
// order. Callbacks scheduled while advancing run too if they come due
// within the window.
func (m *MockScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		call := m.nextDue(target)
		if call == nil {
			break
		}
		call.fn()
	}

	m.mu.Lock()
	m.now = target
	m.mu.Unlock()
}

// Pending returns the number of scheduled, not yet run, not canceled calls.
func (m *MockScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if !c.canceled {
			n++
		}
	}
	return n
}

func (m *MockScheduler) nextDue(target time.Duration) *scheduledCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	sort.SliceStable(m.calls, func(i, j int) bool {
		if m.calls[i].due != m.calls[j].due {
			return m.calls[i].due < m.calls[j].due
		}
		return m.calls[i].seq < m.calls[j].seq
	})

	for i, c := range m.calls {
		if c.canceled {
			continue
		}
		if c.due > target {
			break
		}
		m.now = c.due
		m.calls = append(m.calls[:i], m.calls[i+1:]...)
		return c
	}
	return nil
}

// MockNotifier records every message passed to the notification surface.
type MockNotifier struct {
	Successes []string
	Infos     []string
	Errors    []string
	mu        sync.Mutex
}

// Success records a success message.
func (m *MockNotifier) Success(msg string) {
	m.mu.Lock()
	m.Successes = append(m.Successes, msg)
	m.mu.Unlock()
}

// Info records an informational message.
func (m *MockNotifier) Info(msg string) {
	m.mu.Lock()
	m.Infos = append(m.Infos, msg)
	m.mu.Unlock()
}

// Error records an error message.
func (m *MockNotifier) Error(msg string) {
	m.mu.Lock()
	m.Errors = append(m.Errors, msg)
	m.mu.Unlock()
}

// MockStore is an in-memory test double for domain.TaskStore with error
// injection hooks.
type MockStore struct {
	Tasks      map[string]*domain.Task
	Order      []string
	ExistsErr  error
	AddErr     error
	LoadErr    error
	ReplaceErr error
	// HideFromExists makes TaskExists return nil even when the record is
	// present, simulating an existence check that missed a concurrent write.
	HideFromExists bool
	mu             sync.Mutex
}

// NewMockStore creates a MockStore.
func NewMockStore() *MockStore {
	return &MockStore{Tasks: make(map[string]*domain.Task)}
}

// LoadTasks returns all tasks in insertion order.
func (m *MockStore) LoadTasks() ([]domain.Task, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Task, 0, len(m.Order))
	for _, id := range m.Order {
		if t, ok := m.Tasks[id]; ok {
			out = append(out, *t)
		}
	}
	return out, nil
}

// AddTask stores a new task unless the id already exists.
func (m *MockStore) AddTask(task domain.Task) (bool, error) {
	if m.AddErr != nil {
		return false, m.AddErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Tasks[task.ID]; ok {
		return false, nil
	}
	t := task
	m.Tasks[task.ID] = &t
	m.Order = append(m.Order, task.ID)
	return true, nil
}

// TaskExists looks up a task by natural key.
func (m *MockStore) TaskExists(habitID, date string) (*domain.Task, error) {
	if m.ExistsErr != nil {
		return nil, m.ExistsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.HideFromExists {
		return nil, nil
	}
	for _, id := range m.Order {
		t := m.Tasks[id]
		if t != nil && t.MatchesOccurrence(habitID, date) {
			out := *t
			return &out, nil
		}
	}
	return nil, nil
}

// TaskExistsByID reports whether a task with the given id exists.
func (m *MockStore) TaskExistsByID(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Tasks[id]
	return ok, nil
}

// UpdateTask merges the patch into a stored task.
func (m *MockStore) UpdateTask(id string, patch domain.TaskPatch) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Tasks[id]
	if !ok {
		return false, nil
	}
	t.Apply(patch)
	return true, nil
}

// RemoveTask deletes a task by id.
func (m *MockStore) RemoveTask(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Tasks[id]; !ok {
		return false, nil
	}
	delete(m.Tasks, id)
	for i, oid := range m.Order {
		if oid == id {
			m.Order = append(m.Order[:i], m.Order[i+1:]...)
			break
		}
	}
	return true, nil
}

// CompleteTask marks a stored task completed with metrics.
func (m *MockStore) CompleteTask(id string, metrics domain.TaskMetrics) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Tasks[id]
	if !ok || t.Completed {
		return false, nil
	}
	t.Completed = true
	mm := metrics
	t.Metrics = &mm
	return true, nil
}

// ReplaceAll overwrites the stored collections.
func (m *MockStore) ReplaceAll(items, completed []domain.Task) error {
	if m.ReplaceErr != nil {
		return m.ReplaceErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tasks = make(map[string]*domain.Task)
	m.Order = nil
	for _, list := range [][]domain.Task{items, completed} {
		for _, t := range list {
			tt := t
			m.Tasks[t.ID] = &tt
			m.Order = append(m.Order, t.ID)
		}
	}
	return nil
}

// Put inserts a task directly, bypassing AddTask semantics.
func (m *MockStore) Put(task domain.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := task
	if _, ok := m.Tasks[task.ID]; !ok {
		m.Order = append(m.Order, task.ID)
	}
	m.Tasks[task.ID] = &t
}

// Len returns the number of stored tasks.
func (m *MockStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Tasks)
}

// NopLogger discards all log entries.
type NopLogger struct{}

// Debug implements domain.Logger.
func (NopLogger) Debug(string, string) {}

// Info implements domain.Logger.
func (NopLogger) Info(string, string) {}

// Warn implements domain.Logger.
func (NopLogger) Warn(string, string) {}

// Error implements domain.Logger.
func (NopLogger) Error(string, string) {}

// Ensure mocks implement their ports.
var (
	_ domain.Clock     = (*MockClock)(nil)
	_ domain.Scheduler = (*MockScheduler)(nil)
	_ domain.Notifier  = (*MockNotifier)(nil)
	_ domain.TaskStore = (*MockStore)(nil)
	_ domain.Logger    = NopLogger{}
)
