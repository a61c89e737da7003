package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"reqchain/internal/chain"
	"reqchain/internal/history"
	"reqchain/internal/httpclient"
)

// consoleListener renders runner events as colored lines, one per event.
type consoleListener struct {
	out io.Writer
}

var _ chain.Listener = (*consoleListener)(nil)

func newConsoleListener(out io.Writer) *consoleListener {
	return &consoleListener{out: out}
}

func (l *consoleListener) RequestSent(chainName string, step int, req httpclient.Request) {
	cyan := color.New(color.FgCyan).SprintFunc()
	fmt.Fprintf(l.out, "  %s %s %s\n", cyan(fmt.Sprintf("[%d]", step)), req.Method, req.URL)
}

func (l *consoleListener) ResponseReceived(entry history.Entry) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	status := fmt.Sprintf("%d", entry.Response.StatusCode)
	if entry.Response.StatusCode >= 400 {
		status = red(status)
	} else {
		status = green(status)
	}
	fmt.Fprintf(l.out, "      %s %s\n", status, cyan(fmt.Sprintf("(%dms)", entry.Response.Duration.Milliseconds())))
}

func (l *consoleListener) ChainFinished(chainName string, outcome chain.Outcome) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	switch outcome.Phase {
	case chain.PhaseCompleted:
		fmt.Fprintf(l.out, "%s chain %s completed (%d steps)\n", green("✓"), chainName, outcome.Steps)
	case chain.PhaseAborted:
		fmt.Fprintf(l.out, "%s chain %s aborted: %v\n", red("✗"), chainName, outcome.Err)
	}
}
