// Package app provides the dependency injection container for the application.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okatsu/habitask/internal/bus"
	"github.com/okatsu/habitask/internal/domain"
	"github.com/okatsu/habitask/internal/engine"
	"github.com/okatsu/habitask/internal/infra/config"
	"github.com/okatsu/habitask/internal/infra/jsonstore"
	"github.com/okatsu/habitask/internal/infra/logging"
	"github.com/okatsu/habitask/internal/infra/notify"
	"github.com/okatsu/habitask/internal/infra/sched"
	"github.com/okatsu/habitask/internal/infra/sqlitestore"
	"github.com/okatsu/habitask/internal/registry"
)

// Paths holds the resolved application paths.
type Paths struct {
	DataDir   string // Root data directory
	StorePath string // Path to tasks.json or tasks.db
	Catalog   string // Path to the habit catalog
}

// DefaultDataDir resolves the data directory: $HABITASK_DIR, or
// $XDG_DATA_HOME/habitask, or ~/.local/share/habitask.
func DefaultDataDir() string {
	if dir := os.Getenv("HABITASK_DIR"); dir != "" {
		return dir
	}
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "."
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "habitask")
}

// Container provides dependency injection for the application.
// It holds all port implementations and the engine components.
type Container struct {
	Store     domain.TaskStore
	StoreInit domain.StoreInitializer
	Clock     domain.Clock
	Scheduler domain.Scheduler
	Notifier  domain.Notifier
	Logger    domain.Logger
	Bus       *bus.Bus
	Registry  *registry.Registry
	Creator   *engine.Creator
	Processor *engine.Processor
	Checker   *engine.Checker
	Config    *domain.Config
	Paths     Paths
}

// New creates a Container rooted at the given data directory. An empty
// dataDir resolves to the default location.
func New(dataDir string) (*Container, error) {
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}

	loader := config.NewLoader(dataDir)
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	paths := Paths{DataDir: dataDir}
	catalog := cfg.Habits.Catalog
	if !filepath.IsAbs(catalog) {
		catalog = filepath.Join(dataDir, catalog)
	}
	paths.Catalog = catalog

	// Create the task store based on config. Default is the JSON store; use
	// SQLite only if explicitly specified.
	var store domain.TaskStore
	var storeInit domain.StoreInitializer
	switch cfg.Store.Backend {
	case "", "json":
		paths.StorePath = filepath.Join(dataDir, "tasks.json")
		js := jsonstore.New(paths.StorePath)
		store = js
		storeInit = js
	case "sqlite":
		paths.StorePath = filepath.Join(dataDir, "tasks.db")
		ss, err := sqlitestore.Open(paths.StorePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		store = ss
		storeInit = ss
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownBackend, cfg.Store.Backend)
	}

	logger := logging.New(dataDir, logging.ParseLevel(cfg.Log.Level))
	notifier := notify.New(os.Stderr)
	clock := domain.RealClock{}
	scheduler := sched.Real{}
	b := bus.New()

	reg := registry.New(store, b, logger)
	creator := engine.NewCreator(store, b, clock, logger)
	processor := engine.NewProcessor(creator, store, b, clock, scheduler, notifier, logger, engine.ProcessorOptions{
		Debounce:       msDuration(cfg.Processor.DebounceMS),
		Grace:          msDuration(cfg.Processor.GraceMS),
		MaxDebounce:    cfg.Processor.MaxDebounce,
		Retries:        msDurations(cfg.Processor.RetryMS),
		RefreshStagger: msDurations(cfg.Processor.RefreshStaggerMS),
	})
	checker := engine.NewChecker(store, reg, b, clock, scheduler, notifier, logger, engine.CheckerOptions{
		MinInterval: msDuration(cfg.Checker.MinIntervalMS),
		Period:      time.Duration(cfg.Checker.PeriodSec) * time.Second,
	})

	return &Container{
		Store:     store,
		StoreInit: storeInit,
		Clock:     clock,
		Scheduler: scheduler,
		Notifier:  notifier,
		Logger:    logger,
		Bus:       b,
		Registry:  reg,
		Creator:   creator,
		Processor: processor,
		Checker:   checker,
		Config:    cfg,
		Paths:     paths,
	}, nil
}

// Wire subscribes the registry and processor to the bus and loads the
// registry from the store. Call once after New.
func (c *Container) Wire() error {
	c.Registry.Subscribe()
	c.Processor.Subscribe()
	return c.Registry.Reload()
}

func msDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func msDurations(ms []int) []time.Duration {
	out := make([]time.Duration, 0, len(ms))
	for _, m := range ms {
		out = append(out, msDuration(m))
	}
	return out
}
