package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okatsu/habitask/internal/app"
	"github.com/okatsu/habitask/internal/domain"
	"github.com/okatsu/habitask/internal/infra/habitfile"
)

// newScheduleCommand creates the schedule command: announce today's due
// habit occurrences on the bus.
func newScheduleCommand(c *app.Container) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:     "schedule",
		Short:   "Schedule tasks for habits due today",
		GroupID: groupHabit,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			habits, err := habitfile.Load(c.Paths.Catalog)
			if err != nil {
				return err
			}
			if len(habits) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No habits defined in %s\n", c.Paths.Catalog)
				return nil
			}

			day := c.Clock.Today()
			at := c.Clock.Now()
			if date != "" {
				day, err = domain.NormalizeDay(date)
				if err != nil {
					return err
				}
				at, _ = time.Parse(domain.DayFormat, day)
			}

			scheduled := 0
			for _, h := range habits {
				if !h.DueOn(at) {
					continue
				}
				c.Bus.Emit(domain.HabitScheduled{Occurrence: h.OccurrenceFor(day)})
				scheduled++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scheduled %d habit(s) for %s\n", scheduled, day)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Schedule for this date instead of today")
	return cmd
}

// newPendingCommand creates the pending command: surface habit tasks present
// in the store but unknown to the registry.
func newPendingCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:     "pending",
		Short:   "Surface stored habit tasks missing from the active view",
		GroupID: groupHabit,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := c.Processor.ProcessPendingTasks()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Surfaced %d pending habit task(s)\n", n)
			return nil
		},
	}
}

// newCheckCommand creates the check command: one consistency sweep.
func newCheckCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:     "check",
		Short:   "Reconcile the store against the in-memory view",
		GroupID: groupHabit,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := c.Checker.Check()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recovered %d task(s)\n", n)
			return nil
		},
	}
}
