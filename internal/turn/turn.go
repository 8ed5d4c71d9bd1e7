package turn

import "sync"

// Turn is one user_text request and everything the orchestrator produces
// in response to it: the generated reply text, the audio derived from it,
// and the bookkeeping needed to supersede or cancel it cleanly.
//
// A Turn is created the instant a user_text message is accepted and lives
// until it reaches idle, cancelled, or error (spec.md §3).
type Turn struct {
	ID       uint32
	UserText string

	Metrics *TurnMetrics

	mu        sync.Mutex
	cancelled bool
	cancelCh  chan struct{}

	stoppedMu sync.Mutex
	stopped   bool
	stoppedCh chan struct{}
}

// NewTurn allocates a Turn with a fresh one-shot cancellation latch.
func NewTurn(id uint32, userText string, metrics *TurnMetrics) *Turn {
	return &Turn{
		ID:        id,
		UserText:  userText,
		Metrics:   metrics,
		cancelCh:  make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Cancel closes the turn's cancellation latch, idempotently. Safe to call
// from any goroutine, any number of times.
func (t *Turn) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return
	}
	t.cancelled = true
	close(t.cancelCh)
}

// Cancelled reports whether Cancel has been called.
func (t *Turn) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Done returns the one-shot channel workers poll at every suspension point
// (spec.md §4.3: cooperative cancellation, not OS-thread interrupts).
func (t *Turn) Done() <-chan struct{} {
	return t.cancelCh
}

// MarkStopped closes the turn's stopped latch, idempotently, once its
// Orchestrator.Run call has actually returned (as opposed to Cancel, which
// only signals intent). Session.waitGrace selects on Stopped() so a
// strong-cancel can return the instant the superseded turn's goroutine
// exits instead of always sleeping the full grace window.
func (t *Turn) MarkStopped() {
	t.stoppedMu.Lock()
	defer t.stoppedMu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	close(t.stoppedCh)
}

// Stopped returns the one-shot channel closed by MarkStopped.
func (t *Turn) Stopped() <-chan struct{} {
	return t.stoppedCh
}
