package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/okatsu/habitask/internal/app"
	"github.com/okatsu/habitask/internal/domain"
	"github.com/okatsu/habitask/internal/registry"
)

var (
	selectedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	completedStyle = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	habitTagStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	idStyle        = lipgloss.NewStyle().Faint(true)
)

// newTaskCommand creates the task command and its subcommands.
func newTaskCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "task",
		Short:   "Manage tasks",
		GroupID: groupTask,
	}
	cmd.AddCommand(
		newTaskAddCommand(c),
		newTaskListCommand(c),
		newTaskUpdateCommand(c),
		newTaskCompleteCommand(c),
		newTaskDeleteCommand(c),
		newTaskSelectCommand(c),
	)
	return cmd
}

func newTaskAddCommand(c *app.Container) *cobra.Command {
	var description string
	var duration int

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "" {
				return domain.ErrEmptyName
			}
			if duration <= 0 {
				duration = domain.DefaultTaskDuration
			}
			task := domain.Task{
				ID:          uuid.NewString(),
				Name:        args[0],
				Description: description,
				Duration:    duration,
				CreatedAt:   c.Clock.Now().Format(time.RFC3339),
				TaskType:    domain.TaskTypeRegular,
			}
			c.Bus.Emit(domain.TaskAdded{Task: task})
			fmt.Fprintln(cmd.OutOrStdout(), task.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Task description")
	cmd.Flags().IntVar(&duration, "duration", domain.DefaultTaskDuration, "Duration in seconds")
	return cmd
}

func newTaskListCommand(c *app.Container) *cobra.Command {
	var showCompleted bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			selected := c.Registry.SelectedID()

			for _, t := range c.Registry.Items() {
				line := t.Name
				if t.IsHabit() {
					line += " " + habitTagStyle.Render("[habit]")
				}
				if t.ID == selected {
					line = selectedStyle.Render("> " + line)
				} else {
					line = "  " + line
				}
				fmt.Fprintf(out, "%s  %s\n", line, idStyle.Render(t.ID))
			}

			if showCompleted {
				for _, t := range c.Registry.Completed() {
					fmt.Fprintf(out, "  %s  %s\n", completedStyle.Render(t.Name), idStyle.Render(t.ID))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&showCompleted, "all", "a", false, "Include completed tasks")
	return cmd
}

func newTaskUpdateCommand(c *app.Container) *cobra.Command {
	var name, description string
	var duration int

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a task's name, description, or duration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.Registry.HasTask(args[0]) {
				return fmt.Errorf("%w: %s", domain.ErrTaskNotFound, args[0])
			}

			var patch domain.TaskPatch
			if cmd.Flags().Changed("name") {
				if name == "" {
					return domain.ErrEmptyName
				}
				patch.Name = &name
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if cmd.Flags().Changed("duration") {
				patch.Duration = &duration
			}
			if patch == (domain.TaskPatch{}) {
				return fmt.Errorf("nothing to update; pass --name, --description, or --duration")
			}

			c.Bus.Emit(domain.TaskUpdated{ID: args[0], Patch: patch})
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New task name")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New task description")
	cmd.Flags().IntVar(&duration, "duration", 0, "New duration in seconds")
	return cmd
}

func newTaskCompleteCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <id>",
		Short: "Complete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if !c.Registry.HasTask(args[0]) {
				return fmt.Errorf("%w: %s", domain.ErrTaskNotFound, args[0])
			}
			c.Bus.Emit(domain.TaskCompleted{
				ID: args[0],
				Metrics: domain.TaskMetrics{
					CompletedAt: c.Clock.Now().Format(time.RFC3339),
				},
			})
			c.Notifier.Success("Task completed")
			return nil
		},
	}
}

func newTaskDeleteCommand(c *app.Container) *cobra.Command {
	var templateID string

	cmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a task, or every task of a template",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if templateID != "" {
				c.Registry.Dispatch(registry.DeleteTasksByTemplate{TemplateID: templateID})
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("task id or --template required")
			}
			c.Bus.Emit(domain.TaskDeleted{ID: args[0], Reason: domain.DeleteManual})
			return nil
		},
	}

	cmd.Flags().StringVar(&templateID, "template", "", "Delete all tasks linked to this template")
	return cmd
}

func newTaskSelectCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "select <id>",
		Short: "Select a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if !c.Registry.HasTask(args[0]) {
				return fmt.Errorf("%w: %s", domain.ErrTaskNotFound, args[0])
			}
			c.Bus.Emit(domain.TaskSelected{ID: args[0]})
			return nil
		},
	}
}
