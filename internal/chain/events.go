package chain

import (
	"reqchain/internal/history"
	"reqchain/internal/httpclient"
)

// Outcome describes how a run ended.
type Outcome struct {
	Phase Phase // PhaseCompleted or PhaseAborted
	Steps int   // steps fully processed before the run ended
	Err   error // nil unless aborted
}

// Listener receives the engine's observable events. Events are delivered
// synchronously on the goroutine driving the chain, so implementations must
// return promptly.
type Listener interface {
	// RequestSent fires after a resolved request is recorded in history,
	// immediately before it is handed to the transport.
	RequestSent(chain string, step int, req httpclient.Request)
	// ResponseReceived fires once a response has been paired with its
	// history record.
	ResponseReceived(entry history.Entry)
	// ChainFinished fires exactly once per run.
	ChainFinished(chain string, outcome Outcome)
}

// NopListener implements Listener with no-ops. Embed it to pick only the
// events you care about.
type NopListener struct{}

func (NopListener) RequestSent(string, int, httpclient.Request) {}
func (NopListener) ResponseReceived(history.Entry)              {}
func (NopListener) ChainFinished(string, Outcome)               {}

func (r *Runner) snapshotListeners() []Listener {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Listener, len(r.listeners))
	copy(out, r.listeners)
	return out
}

func (r *Runner) emitRequestSent(chain string, step int, req httpclient.Request) {
	for _, l := range r.snapshotListeners() {
		l.RequestSent(chain, step, req)
	}
}

func (r *Runner) emitResponseReceived(entry history.Entry) {
	for _, l := range r.snapshotListeners() {
		l.ResponseReceived(entry)
	}
}

func (r *Runner) emitChainFinished(chain string, outcome Outcome) {
	for _, l := range r.snapshotListeners() {
		l.ChainFinished(chain, outcome)
	}
}
