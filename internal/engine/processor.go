package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/okatsu/habitask/internal/bus"
	"github.com/okatsu/habitask/internal/domain"
)

// ProcessorOptions tunes the reconciliation delays. Zero values fall back to
// the defaults from domain.NewDefaultConfig.
type ProcessorOptions struct {
	Debounce       time.Duration
	Grace          time.Duration
	Retries        []time.Duration
	RefreshStagger []time.Duration
	MaxDebounce    int
}

func (o ProcessorOptions) withDefaults() ProcessorOptions {
	if o.Debounce <= 0 {
		o.Debounce = 300 * time.Millisecond
	}
	if o.Grace <= 0 {
		o.Grace = time.Second
	}
	if o.MaxDebounce <= 0 {
		o.MaxDebounce = 5
	}
	if len(o.Retries) == 0 {
		o.Retries = []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second}
	}
	if len(o.RefreshStagger) == 0 {
		o.RefreshStagger = []time.Duration{100 * time.Millisecond, 300 * time.Millisecond, 600 * time.Millisecond}
	}
	return o
}

// Processor is the reconciliation loop. It receives habit-occurrence
// scheduling triggers, deduplicates them per (habitID, date) key, delegates
// creation to the Creator, and schedules bounded retries to cover transient
// races. All trackers are owned by the instance, created at startup and
// cleared on the daily reset or an explicit ClearAll.
type Processor struct {
	creator     *Creator
	store       domain.TaskStore
	bus         *bus.Bus
	clock       domain.Clock
	sched       domain.Scheduler
	notify      domain.Notifier
	log         domain.Logger
	inFlight    map[string]bool
	debounced   map[string]int
	known       map[string]bool
	unsubs      []func()
	cancelReset func()
	opts        ProcessorOptions
	mu          sync.Mutex
}

// NewProcessor creates a new Processor.
func NewProcessor(
	creator *Creator,
	store domain.TaskStore,
	b *bus.Bus,
	clock domain.Clock,
	sched domain.Scheduler,
	notify domain.Notifier,
	log domain.Logger,
	opts ProcessorOptions,
) *Processor {
	return &Processor{
		creator:   creator,
		store:     store,
		bus:       b,
		clock:     clock,
		sched:     sched,
		notify:    notify,
		log:       log,
		inFlight:  make(map[string]bool),
		debounced: make(map[string]int),
		known:     make(map[string]bool),
		opts:      opts.withDefaults(),
	}
}

// Subscribe wires the processor to the scheduling topic and keeps the
// known-task marker set in sync with the task lifecycle.
func (p *Processor) Subscribe() {
	p.unsubs = append(p.unsubs,
		p.bus.On(domain.TopicHabitScheduled, func(ev domain.Event) {
			p.HandleHabitSchedule(ev.(domain.HabitScheduled).Occurrence)
		}),
		p.bus.On(domain.TopicTaskAdded, func(ev domain.Event) {
			p.markKnown(ev.(domain.TaskAdded).Task.ID)
		}),
		p.bus.On(domain.TopicTaskDeleted, func(ev domain.Event) {
			p.forget(ev.(domain.TaskDeleted).ID)
		}),
	)
}

// Close unsubscribes from the bus and stops the daily reset.
func (p *Processor) Close() {
	for _, u := range p.unsubs {
		u()
	}
	p.unsubs = nil
	p.mu.Lock()
	cancel := p.cancelReset
	p.cancelReset = nil
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// HandleHabitSchedule is the public entry point of the event path. It
// normalizes the occurrence, processes it, and schedules the bounded retry
// sequence that heals transient races.
func (p *Processor) HandleHabitSchedule(o domain.HabitOccurrence) {
	normalized, err := o.Normalized()
	if err != nil {
		p.fail(fmt.Sprintf("habit %q: %v", o.HabitID, err))
		return
	}

	p.process(normalized)
	p.scheduleRetries(normalized)
}

// process runs one existence check + creation for the occurrence's key.
// A key already in flight is debounced: the call is re-scheduled after a
// fixed delay rather than dropped or run concurrently, bounding natural-key
// races to one in-flight operation per key.
func (p *Processor) process(o domain.HabitOccurrence) {
	key := o.ProcessingKey()

	p.mu.Lock()
	if p.inFlight[key] {
		n := p.debounced[key]
		if n >= p.opts.MaxDebounce {
			delete(p.debounced, key)
			p.mu.Unlock()
			msg := fmt.Sprintf("%s: %v", key, domain.ErrDebounceExhausted)
			if p.log != nil {
				p.log.Warn("processor", msg)
			}
			if p.notify != nil {
				p.notify.Error(msg)
			}
			return
		}
		p.debounced[key] = n + 1
		p.mu.Unlock()
		p.sched.AfterFunc(p.opts.Debounce, func() { p.process(o) })
		return
	}
	p.inFlight[key] = true
	delete(p.debounced, key)
	p.mu.Unlock()

	// Clear the in-flight mark on every exit path, after a short grace
	// delay, so a failed occurrence never blocks future ones.
	defer p.sched.AfterFunc(p.opts.Grace, func() {
		p.mu.Lock()
		delete(p.inFlight, key)
		p.mu.Unlock()
	})

	id, err := p.creator.CreateHabitTask(o.HabitID, o.TemplateID, o.Name, o.Duration, o.Date)
	if err != nil {
		p.fail(fmt.Sprintf("habit %q on %s: %v", o.HabitID, o.Date, err))
		return
	}
	p.markKnown(id)
}

// scheduleRetries arms the fixed-length retry ladder. Each tick re-checks
// existence first and becomes a no-op once the task is present, so the
// sequence stops without retry storms.
func (p *Processor) scheduleRetries(o domain.HabitOccurrence) {
	for _, delay := range p.opts.Retries {
		p.sched.AfterFunc(delay, func() {
			existing, err := p.store.TaskExists(o.HabitID, o.Date)
			if err != nil {
				if p.log != nil {
					p.log.Warn("processor", fmt.Sprintf("retry existence check: %v", err))
				}
				return
			}
			if existing != nil {
				return
			}
			p.process(o)
		})
	}
}

// ProcessPendingTasks surfaces habit tasks that exist in the durable store
// but were never announced to the registry, then issues a staggered sequence
// of refresh signals so the views settle despite unordered delivery.
func (p *Processor) ProcessPendingTasks() (int, error) {
	tasks, err := p.store.LoadTasks()
	if err != nil {
		return 0, fmt.Errorf("load tasks: %w", err)
	}

	surfaced := 0
	for _, t := range tasks {
		if !t.IsHabit() || t.Completed {
			continue
		}
		p.mu.Lock()
		seen := p.known[t.ID]
		if !seen {
			p.known[t.ID] = true
		}
		p.mu.Unlock()
		if seen {
			continue
		}
		p.bus.Emit(domain.TaskAdded{Task: t})
		surfaced++
	}

	for _, delay := range p.opts.RefreshStagger {
		p.sched.AfterFunc(delay, func() { p.bus.Emit(domain.Refresh{}) })
	}
	return surfaced, nil
}

// ClearAll resets every tracker: in-flight marks, debounce counters, and the
// known-task set.
func (p *Processor) ClearAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inFlight = make(map[string]bool)
	p.debounced = make(map[string]int)
	p.known = make(map[string]bool)
}

// ArmDailyReset schedules ClearAll for the next local midnight and re-arms
// itself after every fire.
func (p *Processor) ArmDailyReset() {
	now := p.clock.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)

	cancel := p.sched.AfterFunc(next.Sub(now), func() {
		p.ClearAll()
		if p.log != nil {
			p.log.Info("processor", "daily tracker reset")
		}
		p.ArmDailyReset()
	})

	p.mu.Lock()
	p.cancelReset = cancel
	p.mu.Unlock()
}

func (p *Processor) markKnown(id string) {
	if id == "" {
		return
	}
	p.mu.Lock()
	p.known[id] = true
	p.mu.Unlock()
}

func (p *Processor) forget(id string) {
	p.mu.Lock()
	delete(p.known, id)
	p.mu.Unlock()
}

// fail logs and surfaces a per-occurrence failure without letting it escape
// the reconciliation loop.
func (p *Processor) fail(msg string) {
	if p.log != nil {
		p.log.Error("processor", msg)
	}
	if p.notify != nil {
		p.notify.Error(msg)
	}
}
