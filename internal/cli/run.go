package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okatsu/habitask/internal/app"
	"github.com/okatsu/habitask/internal/domain"
	"github.com/okatsu/habitask/internal/infra/habitfile"
	"github.com/okatsu/habitask/internal/infra/watch"
)

// newRunCommand creates the run command: the long-lived reconciliation loop.
// It schedules today's habits, watches the store for external writes, runs
// the periodic consistency sweep, and resets the processor trackers daily.
func newRunCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:     "run",
		Short:   "Run the reconciliation loop until interrupted",
		GroupID: groupHabit,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if _, err := c.Processor.ProcessPendingTasks(); err != nil {
				return err
			}

			habits, err := habitfile.Load(c.Paths.Catalog)
			if err != nil {
				return err
			}
			day := c.Clock.Today()
			now := c.Clock.Now()
			for _, h := range habits {
				if h.DueOn(now) {
					c.Bus.Emit(domain.HabitScheduled{Occurrence: h.OccurrenceFor(day)})
				}
			}

			// The JSON store is rewritten by rename, so external writers show
			// up as directory events; SQLite writes in place and is skipped.
			if c.Config.Store.Backend != "sqlite" {
				w := watch.New(c.Paths.StorePath, c.Bus, c.Scheduler, c.Logger)
				if err := w.Start(); err != nil {
					return fmt.Errorf("start store watcher: %w", err)
				}
				defer func() { _ = w.Close() }()
			}

			c.Checker.Start()
			defer c.Checker.Stop()
			c.Processor.ArmDailyReset()
			defer c.Processor.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "habitask running; press Ctrl-C to stop")
			<-ctx.Done()
			return nil
		},
	}
}
