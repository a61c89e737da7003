// Package cli wires the engine packages into a cobra command tree. It is a
// presentation collaborator: it subscribes to runner events and renders
// them, but the engine never imports it.
package cli

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configFlag   string
	logLevelFlag string
	noColorFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "reqchain",
	Short: "Run chained HTTP requests with variable extraction",
	Long: `reqchain executes named chains of HTTP request templates. Each step may
extract a value from its JSON response and bind it to a variable; later
steps substitute {{variable}} placeholders in their URL, headers and body.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColorFlag {
			color.NoColor = true
		}
	},
}

// Execute runs the command tree. v is the build version stamped by the
// linker.
func Execute(v string) {
	version = v
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "reqchain.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Override the configured log level (none, error, warning, info, debug)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(versionCmd)
}
