package turn

import (
	"context"
	"sync"
	"time"
)

// interruptGrace bounds how long StrongCancel waits for a superseded turn's
// workers to notice their cancellation latch and stop before it gives up and
// moves on anyway (spec.md §4.3).
const interruptGrace = 200 * time.Millisecond

// Session tracks one websocket connection's turn history: the
// monotonically increasing turn id counter, the single turn allowed to be
// active at a time, and the per-turn metrics accumulated over the
// connection's lifetime.
type Session struct {
	ID string

	mu         sync.Mutex
	nextTurnID uint32
	active     *Turn
	allMetrics map[uint32]*TurnMetrics

	recorder *MetricsRecorder
	logger   Logger
	writer   *FrameWriter
}

// NewSession allocates a Session. recorder, writer and logger may be nil
// (NoOpLogger is substituted, no metrics record is appended if recorder is
// nil, and no audio_cancel is sent if writer is nil).
func NewSession(id string, recorder *MetricsRecorder, writer *FrameWriter, logger Logger) *Session {
	if logger == nil {
		logger = NoOpLogger{}
	}
	return &Session{
		ID:         id,
		allMetrics: make(map[uint32]*TurnMetrics),
		recorder:   recorder,
		writer:     writer,
		logger:     logger,
	}
}

// StartTurn allocates the next turn id, strong-cancels whatever turn was
// previously active (spec.md §4.2: "a new user_text always supersedes"),
// and installs the new turn as active. Returns the new Turn; the caller is
// responsible for running it and eventually calling FinishTurn.
func (s *Session) StartTurn(userText string) *Turn {
	s.mu.Lock()
	s.nextTurnID++
	id := s.nextTurnID
	prev := s.active
	s.mu.Unlock()

	if prev != nil {
		s.StrongCancel(context.Background(), prev)
	}

	metrics := NewTurnMetrics(s.ID, id)
	t := NewTurn(id, userText, metrics)

	s.mu.Lock()
	s.active = t
	s.allMetrics[id] = metrics
	s.mu.Unlock()

	return t
}

// Interrupt handles an explicit client `interrupt` message (spec.md §4.1):
// it bumps the turn id counter unconditionally — even if no turn is
// active — and strong-cancels whatever turn was active, if any. The
// returned id is the new current turn id the client's follow-up
// state_update{state:"idle"} should carry, matching the Python ancestor's
// behavior of always advancing the turn counter on interrupt so a
// stray late frame from the old turn can never be mistaken for current.
func (s *Session) Interrupt(ctx context.Context) (newTurnID uint32, hadActive bool) {
	s.mu.Lock()
	s.nextTurnID++
	newID := s.nextTurnID
	prev := s.active
	s.active = nil
	s.mu.Unlock()

	if prev != nil {
		s.StrongCancel(ctx, prev)
	}

	return newID, prev != nil
}

// ActiveTurn returns the currently active turn, or nil if idle.
func (s *Session) ActiveTurn() *Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// FinishTurn clears the active turn if it is still t (a superseded turn
// that raced to finish after being replaced is a no-op here), stamps
// completion, and hands the metrics record off to the recorder.
func (s *Session) FinishTurn(t *Turn) {
	s.mu.Lock()
	if s.active == t {
		s.active = nil
	}
	s.mu.Unlock()

	t.Metrics.StampDone()
	if s.recorder != nil {
		s.recorder.Append(t.Metrics)
	}
}

// StrongCancel implements the cancel_workflow sequencing from the Python
// ancestor (original_source/apps/old/ws——piper-中文模型版本.py):
//
//  1. close the turn's cancellation latch and stamp interrupt_recv,
//  2. clear it from being the session's active turn so a fresh turn can
//     start immediately without waiting,
//  3. wait up to interruptGrace for the turn's workers to actually observe
//     the cancellation and stop, signaled by the turn's Stopped() channel
//     (closed via MarkStopped once Orchestrator.Run returns) or the grace
//     timeout, whichever comes first,
//  4. stamp interrupt_done, which also flips outcome to cancelled.
//
// The final metrics record is appended once by Session.FinishTurn, the
// same as an uncancelled turn — mirroring the Python ancestor, where
// cancel_workflow never appends a record itself and run_turn_workflow's
// finally block does it exactly once regardless of outcome.
//
// Matches cancel_workflow's send_audio_cancel=True default: both the
// superseded-by-new-turn path and the explicit interrupt path notify the
// client that the turn's audio was cut short.
func (s *Session) StrongCancel(ctx context.Context, t *Turn) {
	if t == nil {
		return
	}

	t.Cancel()
	t.Metrics.StampInterruptRecv()

	s.mu.Lock()
	if s.active == t {
		s.active = nil
	}
	s.mu.Unlock()

	s.waitGrace(t)

	t.Metrics.StampInterruptDone()

	if s.writer != nil {
		s.writer.SafeSendControl(ctx, audioCancelMessage(t.ID))
	}
}

// waitGrace returns as soon as t's workers actually stop (signaled by
// MarkStopped, called once Orchestrator.Run returns), or after
// interruptGrace if they haven't by then — mirroring the Python ancestor's
// `await asyncio.wait_for(task, timeout=0.2)`, which returns the moment
// the cancelled task finishes rather than always sleeping out the timeout.
func (s *Session) waitGrace(t *Turn) {
	select {
	case <-t.Stopped():
	case <-time.After(interruptGrace):
	}
}

// Metrics returns the metrics record for a given turn id, if known.
func (s *Session) Metrics(turnID uint32) (*TurnMetrics, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.allMetrics[turnID]
	return m, ok
}
