package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okatsu/habitask/internal/bus"
	"github.com/okatsu/habitask/internal/domain"
	"github.com/okatsu/habitask/internal/testutil"
)

type processorFixture struct {
	processor *Processor
	store     *testutil.MockStore
	bus       *bus.Bus
	sched     *testutil.MockScheduler
	notify    *testutil.MockNotifier
	clock     *testutil.MockClock
}

func newProcessorFixture() *processorFixture {
	store := testutil.NewMockStore()
	b := bus.New()
	clock := &testutil.MockClock{NowTime: time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)}
	sched := testutil.NewMockScheduler()
	notify := &testutil.MockNotifier{}
	creator := NewCreator(store, b, clock, testutil.NopLogger{})
	p := NewProcessor(creator, store, b, clock, sched, notify, testutil.NopLogger{}, ProcessorOptions{})
	return &processorFixture{processor: p, store: store, bus: b, sched: sched, notify: notify, clock: clock}
}

func occurrence(habitID, date string) domain.HabitOccurrence {
	return domain.HabitOccurrence{
		HabitID:    habitID,
		TemplateID: "tpl1",
		Name:       "Habit " + habitID,
		Duration:   600,
		Date:       date,
	}
}

func TestProcessor_HandleHabitSchedule_CreatesTask(t *testing.T) {
	f := newProcessorFixture()

	f.processor.HandleHabitSchedule(occurrence("h1", "2026-08-29"))

	assert.Equal(t, 1, f.store.Len())
	existing, err := f.store.TaskExists("h1", "2026-08-29")
	require.NoError(t, err)
	require.NotNil(t, existing)

	// Retries settle without creating a second record.
	f.sched.Advance(5 * time.Second)
	assert.Equal(t, 1, f.store.Len())
}

func TestProcessor_MalformedDateRejected(t *testing.T) {
	f := newProcessorFixture()

	f.processor.HandleHabitSchedule(domain.HabitOccurrence{
		HabitID:  "h1",
		Name:     "X",
		Duration: 1500,
		Date:     "not-a-date",
	})

	assert.Equal(t, 0, f.store.Len())
	require.Len(t, f.notify.Errors, 1)
	assert.Contains(t, f.notify.Errors[0], "h1")
	// No retries are armed for rejected input.
	assert.Equal(t, 0, f.sched.Pending())
}

func TestProcessor_DefaultDurationApplied(t *testing.T) {
	f := newProcessorFixture()

	o := occurrence("h1", "2026-08-29")
	o.Duration = 0
	f.processor.HandleHabitSchedule(o)

	existing, err := f.store.TaskExists("h1", "2026-08-29")
	require.NoError(t, err)
	require.NotNil(t, existing)
	assert.Equal(t, domain.DefaultTaskDuration, existing.Duration)
}

func TestProcessor_TemplateDefaulted(t *testing.T) {
	f := newProcessorFixture()

	o := occurrence("h1", "2026-08-29")
	o.TemplateID = ""
	f.processor.HandleHabitSchedule(o)

	existing, err := f.store.TaskExists("h1", "2026-08-29")
	require.NoError(t, err)
	require.NotNil(t, existing)
	assert.Equal(t, domain.TemplateUnlinked, existing.Relationships.TemplateID)
}

func TestProcessor_DuplicateTriggersConverge(t *testing.T) {
	f := newProcessorFixture()

	f.processor.HandleHabitSchedule(occurrence("h1", "2026-08-29"))
	f.processor.HandleHabitSchedule(occurrence("h1", "2026-08-29"))
	f.sched.Advance(10 * time.Second)

	assert.Equal(t, 1, f.store.Len())
}

func TestProcessor_DebounceReschedulesWhileInFlight(t *testing.T) {
	f := newProcessorFixture()

	// First trigger marks the key in flight; the mark clears only after the
	// grace delay. A second trigger inside that window must be re-scheduled,
	// not dropped and not run concurrently.
	f.processor.HandleHabitSchedule(occurrence("h1", "2026-08-29"))
	o, err := occurrence("h1", "2026-08-29").Normalized()
	require.NoError(t, err)
	f.processor.process(o)

	before := f.store.Len()
	f.sched.Advance(10 * time.Second)

	assert.Equal(t, 1, f.store.Len())
	assert.Equal(t, 1, before)
}

func TestProcessor_DebounceExhaustionDropsOccurrence(t *testing.T) {
	f := newProcessorFixture()
	o, err := occurrence("h1", "2026-08-29").Normalized()
	require.NoError(t, err)

	// Pin the key in flight so every re-schedule finds it busy.
	f.processor.mu.Lock()
	f.processor.inFlight[o.ProcessingKey()] = true
	f.processor.mu.Unlock()

	f.processor.process(o)
	for i := 0; i < 10; i++ {
		f.sched.Advance(time.Second)
	}

	// The debounce chain terminated instead of re-scheduling forever, and
	// the drop was surfaced to the user.
	assert.Equal(t, 0, f.sched.Pending())
	assert.Equal(t, 0, f.store.Len())
	require.Len(t, f.notify.Errors, 1)
	assert.Contains(t, f.notify.Errors[0], o.ProcessingKey())
}

func TestProcessor_RetryHealsMiss(t *testing.T) {
	f := newProcessorFixture()

	// Simulate a race: the existence check misses and the write fails, as if
	// another flow owned the record.
	f.store.HideFromExists = true
	f.store.AddErr = assert.AnError
	f.processor.HandleHabitSchedule(occurrence("h1", "2026-08-29"))
	assert.Equal(t, 0, f.store.Len())
	require.NotEmpty(t, f.notify.Errors)

	// The racing write lands before the first retry tick.
	f.store.HideFromExists = false
	f.store.AddErr = nil
	f.store.Put(domain.Task{
		ID:       "winner",
		Name:     "Habit h1",
		Duration: 600,
		TaskType: domain.TaskTypeHabit,
		Relationships: &domain.Relationships{
			HabitID:    "h1",
			TemplateID: "tpl1",
			Date:       "2026-08-29",
		},
	})

	f.sched.Advance(10 * time.Second)

	// Retries saw the record and became no-ops: exactly one task remains.
	assert.Equal(t, 1, f.store.Len())
	_, ok := f.store.Tasks["winner"]
	assert.True(t, ok)
}

func TestProcessor_RetryCreatesWhenStillMissing(t *testing.T) {
	f := newProcessorFixture()

	// Every attempt inside the first tick fails; the store recovers before
	// the retry ladder runs.
	f.store.AddErr = assert.AnError
	f.processor.HandleHabitSchedule(occurrence("h1", "2026-08-29"))
	assert.Equal(t, 0, f.store.Len())

	f.store.AddErr = nil
	f.sched.Advance(10 * time.Second)

	assert.Equal(t, 1, f.store.Len())
}

func TestProcessor_ProcessPendingTasks(t *testing.T) {
	f := newProcessorFixture()

	f.store.Put(domain.Task{
		ID: "p1", Name: "Stored", Duration: 600, TaskType: domain.TaskTypeHabit,
		Relationships: &domain.Relationships{HabitID: "h1", Date: "2026-08-29"},
	})
	f.store.Put(domain.Task{
		ID: "p2", Name: "Done", Duration: 600, TaskType: domain.TaskTypeHabit, Completed: true,
		Relationships: &domain.Relationships{HabitID: "h2", Date: "2026-08-29"},
	})
	f.store.Put(domain.Task{ID: "p3", Name: "Regular", Duration: 600, TaskType: domain.TaskTypeRegular})

	var added []string
	refreshes := 0
	f.bus.On(domain.TopicTaskAdded, func(ev domain.Event) {
		added = append(added, ev.(domain.TaskAdded).Task.ID)
	})
	f.bus.On(domain.TopicRefresh, func(domain.Event) { refreshes++ })

	n, err := f.processor.ProcessPendingTasks()
	require.NoError(t, err)

	// Only the active habit task is surfaced.
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"p1"}, added)

	// Staggered refresh signals fire as virtual time advances.
	f.sched.Advance(time.Second)
	assert.Equal(t, 3, refreshes)

	// A second sweep finds nothing new.
	n, err = f.processor.ProcessPendingTasks()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestProcessor_SubscribeHandlesScheduledEvents(t *testing.T) {
	f := newProcessorFixture()
	f.processor.Subscribe()
	defer f.processor.Close()

	f.bus.Emit(domain.HabitScheduled{Occurrence: occurrence("h1", "2026-08-29")})

	assert.Equal(t, 1, f.store.Len())
}

func TestProcessor_ClearAllResetsTrackers(t *testing.T) {
	f := newProcessorFixture()

	f.processor.HandleHabitSchedule(occurrence("h1", "2026-08-29"))
	f.processor.ClearAll()

	f.processor.mu.Lock()
	defer f.processor.mu.Unlock()
	assert.Empty(t, f.processor.inFlight)
	assert.Empty(t, f.processor.debounced)
	assert.Empty(t, f.processor.known)
}

func TestProcessor_DailyResetRearms(t *testing.T) {
	f := newProcessorFixture()

	f.processor.HandleHabitSchedule(occurrence("h1", "2026-08-29"))
	f.processor.ArmDailyReset()
	f.sched.Advance(5 * time.Second) // Let retries settle first

	f.clock.Advance(16 * time.Hour)
	f.sched.Advance(16 * time.Hour) // Crosses midnight

	f.processor.mu.Lock()
	known := len(f.processor.known)
	f.processor.mu.Unlock()
	assert.Equal(t, 0, known)
	// The reset re-armed itself for the next midnight.
	assert.GreaterOrEqual(t, f.sched.Pending(), 1)
}
