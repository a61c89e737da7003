package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"reqchain/internal/bench"
)

var (
	iterationsFlag int
	rateFlag       float64
)

var benchCmd = &cobra.Command{
	Use:   "bench <chain>",
	Short: "Measure a chain's latency over repeated runs",
	Long: `Bench runs one chain repeatedly, resetting the variable environment to
its seed before every iteration, and reports latency percentiles over the
whole-chain wall times.

Examples:
  reqchain bench login-flow -n 100
  reqchain bench login-flow -n 100 --rate 5`,
	Args: cobra.ExactArgs(1),
	RunE: benchCommand,
}

func init() {
	benchCmd.Flags().IntVarP(&iterationsFlag, "iterations", "n", 10, "Number of runs")
	benchCmd.Flags().Float64Var(&rateFlag, "rate", 0, "Cap on started runs per second (0 = unpaced)")
}

func benchCommand(cmd *cobra.Command, args []string) error {
	eng, err := newEngine(configFlag)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	report, runErr := bench.Run(ctx, eng.runner, eng.env, bench.Options{
		Chain:      args[0],
		Iterations: iterationsFlag,
		Rate:       rateFlag,
	})
	if report != nil {
		printBenchReport(cmd, report)
	}
	return runErr
}

func printBenchReport(cmd *cobra.Command, report *bench.Report) {
	out := cmd.OutOrStdout()
	bold := color.New(color.Bold).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintf(out, "%s\n", bold("Bench: "+report.Chain))
	fmt.Fprintf(out, "  runs:     %d\n", report.Iterations)
	if report.Failures > 0 {
		fmt.Fprintf(out, "  failures: %s\n", red(fmt.Sprintf("%d", report.Failures)))
	} else {
		fmt.Fprintf(out, "  failures: 0\n")
	}
	fmt.Fprintf(out, "  min:      %s\n", report.Min)
	fmt.Fprintf(out, "  mean:     %s\n", report.Mean)
	fmt.Fprintf(out, "  p50:      %s\n", report.P50)
	fmt.Fprintf(out, "  p95:      %s\n", report.P95)
	fmt.Fprintf(out, "  p99:      %s\n", report.P99)
	fmt.Fprintf(out, "  max:      %s\n", report.Max)
}
