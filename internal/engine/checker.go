package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/okatsu/habitask/internal/bus"
	"github.com/okatsu/habitask/internal/domain"
)

// CheckerOptions tunes the consistency sweep. Zero values fall back to the
// defaults from domain.NewDefaultConfig.
type CheckerOptions struct {
	MinInterval time.Duration
	Period      time.Duration
}

func (o CheckerOptions) withDefaults() CheckerOptions {
	if o.MinInterval <= 0 {
		o.MinInterval = 500 * time.Millisecond
	}
	if o.Period <= 0 {
		o.Period = 30 * time.Second
	}
	return o
}

// Checker compares the durable store against the in-memory registry and
// re-injects habit tasks the event path missed. Divergence is not an error:
// it is detected and healed, with an informational notice.
type Checker struct {
	store          domain.TaskStore
	registry       domain.RegistryView
	bus            *bus.Bus
	clock          domain.Clock
	sched          domain.Scheduler
	notify         domain.Notifier
	log            domain.Logger
	cancelPeriodic func()
	lastRun        time.Time
	opts           CheckerOptions
	running        bool
	mu             sync.Mutex
}

// NewChecker creates a new Checker.
func NewChecker(
	store domain.TaskStore,
	registry domain.RegistryView,
	b *bus.Bus,
	clock domain.Clock,
	sched domain.Scheduler,
	notify domain.Notifier,
	log domain.Logger,
	opts CheckerOptions,
) *Checker {
	return &Checker{
		store:    store,
		registry: registry,
		bus:      b,
		clock:    clock,
		sched:    sched,
		notify:   notify,
		log:      log,
		opts:     opts.withDefaults(),
	}
}

// Check runs one sweep. It skips silently when a sweep is already running or
// the last one finished less than the minimum interval ago, preventing check
// storms from triggers firing close together. Returns the number of tasks
// recovered into the registry.
func (c *Checker) Check() (int, error) {
	now := c.clock.Now()

	c.mu.Lock()
	if c.running || now.Sub(c.lastRun) < c.opts.MinInterval {
		c.mu.Unlock()
		return 0, nil
	}
	c.running = true
	c.lastRun = now
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	tasks, err := c.store.LoadTasks()
	if err != nil {
		return 0, fmt.Errorf("load tasks: %w", err)
	}

	recovered := 0
	for _, t := range tasks {
		if !t.IsHabit() || t.Completed {
			continue
		}
		if c.registry.HasTask(t.ID) {
			continue
		}
		if h, d, ok := t.NaturalKey(); ok && c.registry.HasNaturalKey(h, d) {
			continue
		}
		c.bus.Emit(domain.TaskAdded{Task: t})
		recovered++
	}

	if recovered > 0 {
		c.bus.Emit(domain.Refresh{})
		if c.log != nil {
			c.log.Info("checker", fmt.Sprintf("recovered %d habit task(s) from storage", recovered))
		}
		if c.notify != nil {
			c.notify.Info(fmt.Sprintf("Restored %d habit task(s)", recovered))
		}
	}
	return recovered, nil
}

// Start arms the periodic sweep. Each tick runs a check only while the
// registry is non-empty, then re-arms.
func (c *Checker) Start() {
	c.arm()
}

// Stop cancels the periodic sweep.
func (c *Checker) Stop() {
	c.mu.Lock()
	cancel := c.cancelPeriodic
	c.cancelPeriodic = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Checker) arm() {
	cancel := c.sched.AfterFunc(c.opts.Period, func() {
		if c.registry.Size() > 0 {
			if _, err := c.Check(); err != nil && c.log != nil {
				c.log.Error("checker", fmt.Sprintf("periodic check: %v", err))
			}
		}
		c.arm()
	})

	c.mu.Lock()
	c.cancelPeriodic = cancel
	c.mu.Unlock()
}
