package jsonstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okatsu/habitask/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "tasks.json"))
}

func habitTask(id, habitID, date string) domain.Task {
	return domain.Task{
		ID:       id,
		Name:     "Habit " + habitID,
		Duration: domain.DefaultTaskDuration,
		TaskType: domain.TaskTypeHabit,
		Relationships: &domain.Relationships{
			HabitID:    habitID,
			TemplateID: "tpl1",
			Date:       date,
		},
	}
}

func TestStore_AddAndLoad(t *testing.T) {
	s := newTestStore(t)

	added, err := s.AddTask(habitTask("t1", "h1", "2026-08-29"))
	require.NoError(t, err)
	assert.True(t, added)

	tasks, err := s.LoadTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t1", tasks[0].ID)
	require.NotNil(t, tasks[0].Relationships)
	assert.Equal(t, "h1", tasks[0].Relationships.HabitID)
}

func TestStore_AddTask_DuplicateID(t *testing.T) {
	s := newTestStore(t)

	added, err := s.AddTask(habitTask("t1", "h1", "2026-08-29"))
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AddTask(habitTask("t1", "h2", "2026-08-30"))
	require.NoError(t, err)
	assert.False(t, added)

	tasks, err := s.LoadTasks()
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestStore_TaskExists(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddTask(habitTask("t1", "h1", "2026-08-29"))
	require.NoError(t, err)

	found, err := s.TaskExists("h1", "2026-08-29")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "t1", found.ID)

	missing, err := s.TaskExists("h1", "2026-08-30")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_TaskExists_FindsCompleted(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddTask(habitTask("t1", "h1", "2026-08-29"))
	require.NoError(t, err)
	_, err = s.CompleteTask("t1", domain.TaskMetrics{CompletedAt: "2026-08-29T10:00:00Z"})
	require.NoError(t, err)

	// A completed occurrence still owns its natural key for the day.
	found, err := s.TaskExists("h1", "2026-08-29")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, found.Completed)
}

func TestStore_TaskExistsByID(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddTask(habitTask("t1", "h1", "2026-08-29"))
	require.NoError(t, err)

	exists, err := s.TaskExistsByID("t1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.TaskExistsByID("ghost")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStore_UpdateTask(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddTask(habitTask("t1", "h1", "2026-08-29"))
	require.NoError(t, err)

	name := "Renamed"
	duration := 900
	updated, err := s.UpdateTask("t1", domain.TaskPatch{Name: &name, Duration: &duration})
	require.NoError(t, err)
	assert.True(t, updated)

	tasks, err := s.LoadTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Renamed", tasks[0].Name)
	assert.Equal(t, 900, tasks[0].Duration)

	updated, err = s.UpdateTask("ghost", domain.TaskPatch{Name: &name})
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestStore_RemoveTask(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddTask(habitTask("t1", "h1", "2026-08-29"))
	require.NoError(t, err)

	removed, err := s.RemoveTask("t1")
	require.NoError(t, err)
	assert.True(t, removed)

	tasks, err := s.LoadTasks()
	require.NoError(t, err)
	assert.Empty(t, tasks)

	removed, err = s.RemoveTask("t1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestStore_CompleteTask_MovesCollection(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddTask(habitTask("t1", "h1", "2026-08-29"))
	require.NoError(t, err)

	metrics := domain.TaskMetrics{CompletedAt: "2026-08-29T10:00:00Z", PauseCount: 1}
	completed, err := s.CompleteTask("t1", metrics)
	require.NoError(t, err)
	assert.True(t, completed)

	tasks, err := s.LoadTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.True(t, tasks[0].Completed)
	require.NotNil(t, tasks[0].Metrics)
	assert.Equal(t, 1, tasks[0].Metrics.PauseCount)

	// A completed task cannot be completed again.
	completed, err = s.CompleteTask("t1", metrics)
	require.NoError(t, err)
	assert.False(t, completed)
}

func TestStore_ReplaceAll(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddTask(habitTask("old", "h1", "2026-08-28"))
	require.NoError(t, err)

	done := habitTask("d1", "h2", "2026-08-28")
	done.Completed = true
	err = s.ReplaceAll([]domain.Task{habitTask("new", "h3", "2026-08-29")}, []domain.Task{done})
	require.NoError(t, err)

	tasks, err := s.LoadTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "new", tasks[0].ID)
	assert.Equal(t, "d1", tasks[1].ID)
}

func TestStore_CorruptFileLoadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	s := New(path)

	tasks, err := s.LoadTasks()
	require.NoError(t, err)
	assert.Empty(t, tasks)

	// The store recovers by rewriting from scratch.
	added, err := s.AddTask(habitTask("t1", "h1", "2026-08-29"))
	require.NoError(t, err)
	assert.True(t, added)
}

func TestStore_Initialize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tasks.json")
	s := New(path)

	assert.False(t, s.IsInitialized())
	require.NoError(t, s.Initialize())
	assert.True(t, s.IsInitialized())

	// Initializing twice keeps existing data.
	_, err := s.AddTask(habitTask("t1", "h1", "2026-08-29"))
	require.NoError(t, err)
	require.NoError(t, s.Initialize())

	tasks, err := s.LoadTasks()
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}
