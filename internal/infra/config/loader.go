// Package config provides configuration loading functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/okatsu/habitask/internal/domain"
)

// Loader loads configuration from the TOML file in the data directory.
type Loader struct {
	dataDir string
}

// NewLoader creates a new Loader.
func NewLoader(dataDir string) *Loader {
	return &Loader{dataDir: dataDir}
}

// Load returns the configuration merged over the defaults. A missing file
// yields the defaults.
func (l *Loader) Load() (*domain.Config, error) {
	cfg := domain.NewDefaultConfig()

	path := filepath.Join(l.dataDir, domain.ConfigFileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadOrCreate returns the configuration, writing the defaults to disk on
// first run so the file is there to edit.
func (l *Loader) LoadOrCreate() (*domain.Config, error) {
	path := filepath.Join(l.dataDir, domain.ConfigFileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := domain.NewDefaultConfig()
		if err := l.write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}
	return l.Load()
}

func (l *Loader) write(path string, cfg *domain.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
