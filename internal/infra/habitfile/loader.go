// Package habitfile loads the YAML habit catalog that drives scheduling.
package habitfile

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/okatsu/habitask/internal/domain"
)

// catalog is the YAML file structure.
type catalog struct {
	Habits []domain.Habit `yaml:"habits"`
}

// Load reads habit definitions from the given path. A missing file is not
// an error; it returns an empty catalog.
func Load(path string) ([]domain.Habit, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read habit catalog: %w", err)
	}

	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse habit catalog: %w", err)
	}

	for i := range c.Habits {
		if err := validate(&c.Habits[i]); err != nil {
			return nil, err
		}
	}
	return c.Habits, nil
}

func validate(h *domain.Habit) error {
	if h.ID == "" {
		return fmt.Errorf("%w: missing id", domain.ErrInvalidHabit)
	}
	if h.Name == "" {
		return fmt.Errorf("%w: habit %q has no name", domain.ErrInvalidHabit, h.ID)
	}
	if h.Duration <= 0 {
		h.Duration = domain.DefaultTaskDuration
	}
	return nil
}
