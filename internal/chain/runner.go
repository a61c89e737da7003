// Package chain drives request-chain execution: read the step at the cursor,
// resolve its placeholders, record it, send it, extract into variables, and
// advance. One goroutine drives one chain from start to finish; executions
// are keyed by chain name, so distinct chains may run concurrently.
package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"reqchain/internal/history"
	"reqchain/internal/httpclient"
	"reqchain/internal/jsonpath"
	"reqchain/internal/logging"
	"reqchain/internal/registry"
	"reqchain/internal/template"
	"reqchain/internal/util"
	"reqchain/internal/vars"
)

var (
	// ErrTransport wraps a send failure, so callers can tell network faults
	// from extraction faults.
	ErrTransport = errors.New("transport failure")
	// ErrAlreadyRunning reports a Run for a chain with an active execution.
	ErrAlreadyRunning = errors.New("chain is already running")
	// ErrNotRunning reports an Abort for a chain with no active execution.
	ErrNotRunning = errors.New("chain is not running")
)

// Transport sends one resolved request: one call, one attempt, no retries.
type Transport interface {
	Send(ctx context.Context, req httpclient.Request) (*httpclient.Response, error)
}

// Runner executes chains from a registry. At most one execution is active
// per chain name at a time. Steps within a run are strictly sequential; a
// step's full pipeline finishes before the next step starts.
type Runner struct {
	registry  *registry.Registry
	env       *vars.Environment
	log       *history.Log
	transport Transport

	mu        sync.Mutex
	active    map[string]context.CancelFunc
	listeners []Listener
}

func NewRunner(reg *registry.Registry, env *vars.Environment, log *history.Log, transport Transport) *Runner {
	return &Runner{
		registry:  reg,
		env:       env,
		log:       log,
		transport: transport,
		active:    make(map[string]context.CancelFunc),
	}
}

// Subscribe registers a listener for all subsequent events.
func (r *Runner) Subscribe(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Status reports PhaseRunning while the named chain has an active execution
// and PhaseIdle otherwise. Terminal phases are carried by the run's Outcome.
func (r *Runner) Status(name string) Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[name]; ok {
		return PhaseRunning
	}
	return PhaseIdle
}

// Run executes the named chain from its first step and blocks until the run
// reaches a terminal phase. The chain definition is snapshotted at start;
// registry edits during the run do not affect it. A run that cannot start
// (unknown chain, execution already active) returns a PhaseIdle outcome and
// the reason. Variables extracted before an abort stay in the environment
// so partial progress can be inspected.
func (r *Runner) Run(ctx context.Context, name string) (Outcome, error) {
	chain, err := r.registry.Get(name)
	if err != nil {
		return Outcome{Phase: PhaseIdle}, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := r.register(name, cancel); err != nil {
		return Outcome{Phase: PhaseIdle}, err
	}
	defer r.unregister(name)

	logging.Logf(logging.Info, "Running chain '%s' (%d steps)", name, len(chain.Steps))

	for i, step := range chain.Steps {
		cursor := i + 1
		if ctxErr := runCtx.Err(); ctxErr != nil {
			return r.finish(name, Outcome{
				Phase: PhaseAborted,
				Steps: i,
				Err:   fmt.Errorf("cancelled before step %d: %w", cursor, ctxErr),
			})
		}
		if stepErr := r.executeStep(runCtx, name, cursor, step); stepErr != nil {
			return r.finish(name, Outcome{Phase: PhaseAborted, Steps: i, Err: stepErr})
		}
	}
	return r.finish(name, Outcome{Phase: PhaseCompleted, Steps: len(chain.Steps)})
}

// Abort cancels the named chain's execution context. The stop is guaranteed
// to take effect at the next step boundary; whether an in-flight send is cut
// short is up to the transport.
func (r *Runner) Abort(name string) error {
	r.mu.Lock()
	cancel, ok := r.active[name]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotRunning, name)
	}
	cancel()
	return nil
}

// executeStep runs one step's full pipeline: resolve, record, send, pair the
// response, extract. The history record opened before the send is finished
// by exactly one of Complete or Fail.
func (r *Runner) executeStep(ctx context.Context, name string, cursor int, step registry.Step) error {
	label := stepLabel(step, cursor)
	logging.Logf(logging.Info, "Chain '%s': executing %s", name, label)

	req := r.resolve(step)
	id := r.log.Append(name, cursor, req)
	r.emitRequestSent(name, cursor, req)

	resp, err := r.transport.Send(ctx, req)
	if err != nil {
		r.log.Fail(id, err)
		return fmt.Errorf("%s: %w: %w", label, ErrTransport, err)
	}

	entry := r.log.Complete(id, resp)
	if entry != nil {
		r.emitResponseReceived(*entry)
	}
	if resp.StatusCode >= 400 {
		logging.Logf(logging.Warning, "Chain '%s': %s returned %s", name, label, resp.Status)
	}

	if step.Extract != nil {
		val, extractErr := jsonpath.Extract(resp.Body, step.Extract.Path)
		if extractErr != nil {
			return fmt.Errorf("%s: extracting '%s' into '%s': %w", label, step.Extract.Path, step.Extract.Variable, extractErr)
		}
		r.env.Set(step.Extract.Variable, val)
		logging.Logf(logging.Info, "Chain '%s': %s extracted %s = %s", name, label, step.Extract.Variable, util.Snippet([]byte(val.String())))
	}
	return nil
}

// resolve substitutes placeholders in the step's URL, header values, and
// body, each independently, against the current environment. A JSON-looking
// body gets a Content-Type header unless the step set one itself.
func (r *Runner) resolve(step registry.Step) httpclient.Request {
	req := httpclient.Request{
		Method:  step.Method,
		URL:     template.Render(step.URL, r.env),
		Headers: make(map[string]string, len(step.Headers)+1),
		Body:    template.Render(step.Body, r.env),
	}
	for k, v := range step.Headers {
		req.Headers[k] = template.Render(v, r.env)
	}
	if req.Body != "" {
		if _, exists := req.Headers["Content-Type"]; !exists && util.LooksLikeJSON(req.Body) {
			req.Headers["Content-Type"] = "application/json"
		}
	}
	return req
}

func (r *Runner) finish(name string, outcome Outcome) (Outcome, error) {
	if outcome.Err != nil {
		logging.Logf(logging.Error, "Chain '%s' aborted after %d steps: %v", name, outcome.Steps, outcome.Err)
	} else {
		logging.Logf(logging.Info, "Chain '%s' completed (%d steps)", name, outcome.Steps)
	}
	r.emitChainFinished(name, outcome)
	return outcome, outcome.Err
}

func (r *Runner) register(name string, cancel context.CancelFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[name]; ok {
		return fmt.Errorf("%w: %q", ErrAlreadyRunning, name)
	}
	r.active[name] = cancel
	return nil
}

func (r *Runner) unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, name)
}

func stepLabel(step registry.Step, cursor int) string {
	if step.Name != "" {
		return fmt.Sprintf("step %d (%s)", cursor, step.Name)
	}
	return fmt.Sprintf("step %d", cursor)
}
