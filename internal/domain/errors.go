package domain

import "errors"

// Domain errors.
var (
	ErrEmptyHabitID      = errors.New("habit id cannot be empty")
	ErrEmptyName         = errors.New("task name cannot be empty")
	ErrBadDate           = errors.New("unparsable occurrence date")
	ErrTaskNotFound      = errors.New("task not found")
	ErrDuplicateTaskID   = errors.New("task id already exists")
	ErrUnknownBackend    = errors.New("unknown store backend")
	ErrInvalidHabit      = errors.New("invalid habit definition")
	ErrDebounceExhausted = errors.New("occurrence dropped after repeated triggers")
)
