package job

import (
	"context"
	"sync"

	"github.com/castscribe/castscribe/internal/render"
	"github.com/castscribe/castscribe/internal/transcript"
)

// Result is a finished job's output.
type Result struct {
	// Formats holds the rendered output per requested format. A format
	// whose renderer failed is absent.
	Formats map[render.Format]string

	// Language is the post-detection transcript language.
	Language string

	// DurationSec is the merged transcript duration.
	DurationSec float64

	// Segments is the final segment list after post-processing.
	Segments []transcript.Segment

	// TotalSegments is the planned slice count (including failed slices).
	TotalSegments int

	// Model is the speech-to-text model used.
	Model string

	// Processed reports whether the correction pass succeeded.
	Processed bool
}

// Handle addresses a submitted job: its state, result, and cancellation.
type Handle struct {
	// ID is the job identifier, unique while the job is addressable.
	ID string

	// Title is the caller-supplied display name.
	Title string

	mu     sync.Mutex
	state  State
	result *Result
	err    *UserError

	cancel context.CancelFunc
	done   chan struct{}
}

func newHandle(id, title string, cancel context.CancelFunc) *Handle {
	return &Handle{
		ID:     id,
		Title:  title,
		state:  StateQueued,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// State returns the job's current state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Cancel requests cancellation. In-flight operations observe it at their
// next suspension point; the job settles in the Cancelled state. Safe to
// call multiple times and after completion.
func (h *Handle) Cancel() {
	h.cancel()
}

// Await blocks until the job finishes or ctx expires. On completion it
// returns the result, or the job's UserError as the error value.
func (h *Handle) Await(ctx context.Context) (*Result, error) {
	select {
	case <-h.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return nil, h.err
	}
	return h.result, nil
}

// advance moves the job forward, ignoring illegal transitions. It returns
// the applied state so callers can tell whether the move took effect.
func (h *Handle) advance(next State) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.state.canAdvance(next) {
		return false
	}
	h.state = next
	return true
}

// settle records the terminal outcome and releases waiters.
func (h *Handle) settle(state State, result *Result, err *UserError) {
	h.mu.Lock()
	if h.state.canAdvance(state) {
		h.state = state
		h.result = result
		h.err = err
	}
	h.mu.Unlock()
	close(h.done)
}
