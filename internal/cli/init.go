package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okatsu/habitask/internal/app"
	"github.com/okatsu/habitask/internal/infra/config"
)

// newInitCommand creates the init command.
func newInitCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:     "init",
		Short:   "Initialize the data directory, store, and default config",
		GroupID: groupSetup,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := config.NewLoader(c.Paths.DataDir).LoadOrCreate(); err != nil {
				return fmt.Errorf("write default config: %w", err)
			}
			if err := c.StoreInit.Initialize(); err != nil {
				return fmt.Errorf("initialize store: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized habitask in %s\n", c.Paths.DataDir)
			return nil
		},
	}
}
