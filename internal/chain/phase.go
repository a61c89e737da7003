package chain

// Phase is the lifecycle state of a chain execution.
type Phase string

const (
	// PhaseIdle means no execution is active for the chain. It is both the
	// initial phase and the phase re-entered after a run finishes.
	PhaseIdle Phase = "idle"
	// PhaseRunning means the cursor points at a step awaiting execution.
	PhaseRunning Phase = "running"
	// PhaseCompleted means the cursor advanced past the last step.
	PhaseCompleted Phase = "completed"
	// PhaseAborted means the run stopped early, either explicitly or on an
	// unrecoverable step failure.
	PhaseAborted Phase = "aborted"
)

// Terminal reports whether the phase ends a run.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseAborted
}
