package cli

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"reqchain/internal/util"
)

var showCmd = &cobra.Command{
	Use:   "show <chain>",
	Short: "Show the steps of a chain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine(configFlag)
		if err != nil {
			return err
		}

		c, err := eng.registry.Get(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		bold := color.New(color.Bold).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()

		fmt.Fprintf(out, "%s (%d steps)\n", bold(c.Name), len(c.Steps))
		for i, step := range c.Steps {
			label := step.Name
			if label == "" {
				label = fmt.Sprintf("step_%d", i+1)
			}
			fmt.Fprintf(out, "  %d. %s: %s %s\n", i+1, label, step.Method, step.URL)

			headerNames := make([]string, 0, len(step.Headers))
			for name := range step.Headers {
				headerNames = append(headerNames, name)
			}
			sort.Strings(headerNames)
			for _, name := range headerNames {
				fmt.Fprintf(out, "     %s: %s\n", name, step.Headers[name])
			}
			if step.Body != "" {
				fmt.Fprintf(out, "     body: %s\n", util.Snippet([]byte(step.Body)))
			}
			if step.Extract != nil {
				fmt.Fprintf(out, "     %s %s into {{%s}}\n", cyan("extract:"), step.Extract.Path, step.Extract.Variable)
			}
		}
		return nil
	},
}
