package domain

// ConfigFileName is the configuration file name inside the data directory.
const ConfigFileName = "config.toml"

// Config represents the application configuration.
type Config struct {
	Store     StoreConfig     `toml:"store"`
	Processor ProcessorConfig `toml:"processor"`
	Checker   CheckerConfig   `toml:"checker"`
	Log       LogConfig       `toml:"log"`
	Habits    HabitsConfig    `toml:"habits"`
}

// StoreConfig holds persistence settings from the [store] section.
type StoreConfig struct {
	Backend string `toml:"backend"` // "json" or "sqlite"
}

// ProcessorConfig holds reconciliation settings from the [processor] section.
// All delays are in milliseconds.
type ProcessorConfig struct {
	DebounceMS       int   `toml:"debounce_ms"`
	MaxDebounce      int   `toml:"max_debounce"`
	GraceMS          int   `toml:"grace_ms"`
	RetryMS          []int `toml:"retry_ms"`
	RefreshStaggerMS []int `toml:"refresh_stagger_ms"`
}

// CheckerConfig holds consistency check settings from the [checker] section.
type CheckerConfig struct {
	MinIntervalMS int `toml:"min_interval_ms"`
	PeriodSec     int `toml:"period_sec"`
}

// LogConfig holds logging settings from the [log] section.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// HabitsConfig holds habit catalog settings from the [habits] section.
type HabitsConfig struct {
	Catalog string `toml:"catalog"` // Path to the YAML habit catalog
}

// NewDefaultConfig returns the configuration defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{Backend: "json"},
		Processor: ProcessorConfig{
			DebounceMS:       300,
			MaxDebounce:      5,
			GraceMS:          1000,
			RetryMS:          []int{500, 1000, 2000},
			RefreshStaggerMS: []int{100, 300, 600},
		},
		Checker: CheckerConfig{
			MinIntervalMS: 500,
			PeriodSec:     30,
		},
		Log:    LogConfig{Level: "info"},
		Habits: HabitsConfig{Catalog: "habits.yaml"},
	}
}
