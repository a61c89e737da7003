package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"reqchain/internal/chain"
	"reqchain/internal/history"
	"reqchain/internal/vars"
)

// watchDebounce coalesces rapid write events on the config file.
const watchDebounce = 300 * time.Millisecond

var (
	envFileFlag string
	varFlags    []string
	watchFlag   bool
	historyFlag bool
)

var runCmd = &cobra.Command{
	Use:   "run <chain> [chain...]",
	Short: "Run one or more chains",
	Long: `Run chains by name, in the order given. Steps execute sequentially; a
transport failure or a failed extraction aborts the chain.

Examples:
  reqchain run login-flow
  reqchain run login-flow crud-flow --config api.yaml
  reqchain run login-flow --var base=https://staging.example.com
  reqchain run login-flow --env-file .env --history
  reqchain run login-flow --watch`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

func init() {
	runCmd.Flags().StringVar(&envFileFlag, "env-file", "", "Seed variables from a dotenv file before running")
	runCmd.Flags().StringArrayVar(&varFlags, "var", nil, "Seed a variable as name=value (repeatable)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Re-run the chains whenever the config file changes")
	runCmd.Flags().BoolVar(&historyFlag, "history", false, "Print the request history after the run")
}

func runCommand(cmd *cobra.Command, args []string) error {
	eng, err := newEngine(configFlag)
	if err != nil {
		return err
	}
	if err := seedFromFlags(eng.env); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	listener := newConsoleListener(out)
	eng.runner.Subscribe(listener)

	ctx, stop := signalContext()
	defer stop()

	runErr := runChains(ctx, out, eng, args)
	if historyFlag {
		printHistory(out, eng.history)
	}
	if !watchFlag {
		return runErr
	}
	return watchAndRerun(ctx, cmd, args, listener)
}

// runChains runs every named chain even when an earlier one aborts; each
// chain is independent. The first failure decides the exit code.
func runChains(ctx context.Context, out io.Writer, eng *engine, names []string) error {
	bold := color.New(color.Bold).SprintFunc()
	var firstErr error
	for _, name := range names {
		fmt.Fprintf(out, "%s\n", bold("Running chain: "+name))
		if _, err := eng.runner.Run(ctx, name); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("chain '%s': %w", name, err)
		}
	}
	return firstErr
}

// seedFromFlags applies --env-file and --var bindings on top of the
// config-file seed variables. --var wins over the dotenv file.
func seedFromFlags(env *vars.Environment) error {
	if envFileFlag != "" {
		values, err := godotenv.Read(envFileFlag)
		if err != nil {
			return fmt.Errorf("failed to read env file '%s': %w", envFileFlag, err)
		}
		env.MergeStrings(values)
	}
	for _, pair := range varFlags {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return fmt.Errorf("invalid --var '%s', expected name=value", pair)
		}
		env.SetString(name, value)
	}
	return nil
}

func printHistory(out io.Writer, log *history.Log) {
	bold := color.New(color.Bold).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	entries := log.Entries()
	fmt.Fprintf(out, "\n%s\n", bold("History:"))
	if len(entries) == 0 {
		fmt.Fprintln(out, "  no requests were sent")
		return
	}
	for i, e := range entries {
		fmt.Fprintf(out, "  %d. [%s #%d] %s %s", i+1, e.Chain, e.Step, e.Request.Method, e.Request.URL)
		if e.Response != nil {
			fmt.Fprintf(out, " -> %d (%dms)\n", e.Response.StatusCode, e.Response.Duration.Milliseconds())
		} else {
			fmt.Fprintf(out, " -> %s\n", red("failed: "+e.Err))
		}
	}
}

// watchAndRerun blocks watching the config file and re-runs the chains on
// every write, with a fresh engine so edited definitions take effect.
func watchAndRerun(ctx context.Context, cmd *cobra.Command, names []string, listener chain.Listener) error {
	out := cmd.OutOrStdout()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(configFlag)); err != nil {
		return fmt.Errorf("failed to watch '%s': %w", configFlag, err)
	}

	fmt.Fprintln(out, "\nWatching for changes... (press Ctrl+C to stop)")

	var debounce *time.Timer
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if filepath.Clean(event.Name) != filepath.Clean(configFlag) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				fmt.Fprintf(out, "\nConfig changed: %s\n", event.Name)
				fresh, err := newEngine(configFlag)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "reload failed: %v\n", err)
					return
				}
				if err := seedFromFlags(fresh.env); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "reload failed: %v\n", err)
					return
				}
				fresh.runner.Subscribe(listener)
				_ = runChains(ctx, out, fresh, names)
				if historyFlag {
					printHistory(out, fresh.history)
				}
				fmt.Fprintln(out, "\nWatching for changes... (press Ctrl+C to stop)")
			})
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "watch error: %v\n", werr)
		case <-ctx.Done():
			return nil
		}
	}
}
