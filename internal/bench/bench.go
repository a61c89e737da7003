// Package bench measures chain latency. It runs one chain a fixed number
// of times in sequence, pacing iterations with a rate limiter and feeding
// whole-chain wall times into an HDR histogram.
package bench

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"golang.org/x/time/rate"

	"reqchain/internal/chain"
	"reqchain/internal/logging"
	"reqchain/internal/registry"
	"reqchain/internal/vars"
)

// Runner executes a named chain once. *chain.Runner satisfies it.
type Runner interface {
	Run(ctx context.Context, name string) (chain.Outcome, error)
}

// Options configures a measurement run.
type Options struct {
	Chain      string
	Iterations int
	// Rate caps started iterations per second. Zero means unpaced.
	Rate float64
}

// Report aggregates the wall times of all iterations.
type Report struct {
	Chain      string
	Iterations int
	Failures   int
	Min        time.Duration
	Mean       time.Duration
	P50        time.Duration
	P95        time.Duration
	P99        time.Duration
	Max        time.Duration
}

// Run executes the chain opts.Iterations times, one at a time. The variable
// environment is reset to its starting snapshot before every iteration so
// each run resolves from the same seed. An aborted run counts as a failure
// and the measurement keeps going; only a missing chain or a cancelled
// context stops it early. On early stop the report covers the iterations
// that did run.
func Run(ctx context.Context, runner Runner, env *vars.Environment, opts Options) (*Report, error) {
	if opts.Chain == "" {
		return nil, fmt.Errorf("bench: chain name is required")
	}
	if opts.Iterations < 1 {
		return nil, fmt.Errorf("bench: iterations must be at least 1, got %d", opts.Iterations)
	}

	var limiter *rate.Limiter
	if opts.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), 1)
	}

	// 1us to 60s range, 3 significant digits.
	hist := hdrhistogram.New(1, 60_000_000, 3)
	seed := env.Snapshot()
	report := &Report{Chain: opts.Chain}

	for i := 0; i < opts.Iterations; i++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				summarize(hist, report)
				return report, fmt.Errorf("bench: pacing interrupted: %w", err)
			}
		} else if err := ctx.Err(); err != nil {
			summarize(hist, report)
			return report, fmt.Errorf("bench: interrupted: %w", err)
		}

		env.Reset(seed)
		start := time.Now()
		_, err := runner.Run(ctx, opts.Chain)
		elapsed := time.Since(start)

		if errors.Is(err, registry.ErrNotFound) {
			return nil, fmt.Errorf("bench: %w", err)
		}

		report.Iterations++
		if err != nil {
			report.Failures++
			logging.Logf(logging.Warning, "Bench iteration %d of chain '%s' failed: %v", i+1, opts.Chain, err)
		}

		latencyUs := elapsed.Microseconds()
		if latencyUs < 1 {
			latencyUs = 1
		}
		if latencyUs > 60_000_000 {
			latencyUs = 60_000_000
		}
		_ = hist.RecordValue(latencyUs)
	}

	summarize(hist, report)
	return report, nil
}

func summarize(hist *hdrhistogram.Histogram, report *Report) {
	report.Min = time.Duration(hist.Min()) * time.Microsecond
	report.Mean = time.Duration(hist.Mean()) * time.Microsecond
	report.P50 = time.Duration(hist.ValueAtQuantile(50)) * time.Microsecond
	report.P95 = time.Duration(hist.ValueAtQuantile(95)) * time.Microsecond
	report.P99 = time.Duration(hist.ValueAtQuantile(99)) * time.Microsecond
	report.Max = time.Duration(hist.Max()) * time.Microsecond
}
