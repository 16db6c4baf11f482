// Package cli provides the command-line interface for habitask.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/okatsu/habitask/internal/app"
)

// Command group IDs.
const (
	groupSetup = "setup"
	groupTask  = "task"
	groupHabit = "habit"
)

// NewRootCommand creates the root command for habitask.
// It receives the container for dependency injection and version for display.
func NewRootCommand(c *app.Container, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "habitask",
		Short: "Habit-driven task reconciliation",
		Long: `habitask derives daily tasks from recurring habit definitions and keeps
the task list, the on-disk store, and every running view in agreement,
even when the same habit is scheduled twice or views race each other.`,
		Version: version,
		// SilenceUsage prevents usage from being printed on errors
		SilenceUsage: true,
		// SilenceErrors prevents Cobra from printing errors (we handle it in main)
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// init creates the store; everything else loads state up front.
			if cmd.Name() == "init" {
				return nil
			}
			// Skip if container is nil (e.g. in tests)
			if c == nil {
				return nil
			}
			return c.Wire()
		},
	}

	root.AddGroup(
		&cobra.Group{ID: groupSetup, Title: "Setup:"},
		&cobra.Group{ID: groupTask, Title: "Tasks:"},
		&cobra.Group{ID: groupHabit, Title: "Habits:"},
	)

	root.AddCommand(
		newInitCommand(c),
		newTaskCommand(c),
		newScheduleCommand(c),
		newPendingCommand(c),
		newCheckCommand(c),
		newRunCommand(c),
	)

	return root
}
