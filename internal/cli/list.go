package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the chains defined in the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine(configFlag)
		if err != nil {
			return err
		}

		names := eng.registry.List()
		if len(names) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No chains defined.")
			return nil
		}
		for _, name := range names {
			c, err := eng.registry.Get(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d steps)\n", name, len(c.Steps))
		}
		return nil
	},
}
