package job

// State is a job's position in the pipeline. States only move forward;
// Done, Failed, and Cancelled are terminal.
type State string

const (
	StateQueued         State = "Queued"
	StatePreparing      State = "Preparing"
	StateTranscribing   State = "Transcribing"
	StatePostProcessing State = "PostProcessing"
	StateRendering      State = "Rendering"
	StateDone           State = "Done"
	StateFailed         State = "Failed"
	StateCancelled      State = "Cancelled"
)

// stateOrder positions the pipeline states for the forward-only check.
var stateOrder = map[State]int{
	StateQueued:         0,
	StatePreparing:      1,
	StateTranscribing:   2,
	StatePostProcessing: 3,
	StateRendering:      4,
	StateDone:           5,
	StateFailed:         5,
	StateCancelled:      5,
}

// Terminal reports whether s ends the job.
func (s State) Terminal() bool {
	switch s {
	case StateDone, StateFailed, StateCancelled:
		return true
	}
	return false
}

// canAdvance reports whether a transition from s to next is legal: strictly
// forward, and never out of a terminal state.
func (s State) canAdvance(next State) bool {
	if s.Terminal() {
		return false
	}
	if next.Terminal() {
		return true
	}
	return stateOrder[next] > stateOrder[s]
}
