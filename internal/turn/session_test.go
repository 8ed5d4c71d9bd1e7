package turn

import (
	"context"
	"testing"
	"time"
)

func TestSessionStartTurnAssignsIncrementingIDs(t *testing.T) {
	s := NewSession("sess-1", nil, nil, nil)
	t1 := s.StartTurn("hi")
	if t1.ID != 1 {
		t.Fatalf("expected first turn id 1, got %d", t1.ID)
	}
	s.FinishTurn(t1)
	t2 := s.StartTurn("again")
	if t2.ID != 2 {
		t.Fatalf("expected second turn id 2, got %d", t2.ID)
	}
}

func TestSessionStartTurnSupersedesActive(t *testing.T) {
	s := NewSession("sess-1", nil, nil, nil)
	t1 := s.StartTurn("first")
	t2 := s.StartTurn("second")

	if !t1.Cancelled() {
		t.Fatalf("expected first turn to be cancelled when superseded")
	}
	if s.ActiveTurn() != t2 {
		t.Fatalf("expected second turn to be active")
	}
}

func TestSessionFinishTurnClearsActiveOnlyIfCurrent(t *testing.T) {
	s := NewSession("sess-1", nil, nil, nil)
	t1 := s.StartTurn("first")
	t2 := s.StartTurn("second")

	// t1 was already superseded; finishing it must not clear t2.
	s.FinishTurn(t1)
	if s.ActiveTurn() != t2 {
		t.Fatalf("finishing a superseded turn must not disturb the active turn")
	}

	s.FinishTurn(t2)
	if s.ActiveTurn() != nil {
		t.Fatalf("expected no active turn after finishing the current one")
	}
}

func TestSessionStrongCancelStampsInterruptTimestamps(t *testing.T) {
	s := NewSession("sess-1", nil, nil, nil)
	turn := s.StartTurn("first")

	s.StrongCancel(context.Background(), turn)

	if turn.Metrics.tInterruptRecv == nil || turn.Metrics.tInterruptDone == nil {
		t.Fatalf("expected both interrupt timestamps to be stamped")
	}
	if turn.Metrics.Outcome != OutcomeCancelled {
		t.Fatalf("expected outcome cancelled, got %s", turn.Metrics.Outcome)
	}
}

func TestSessionStrongCancelSendsAudioCancel(t *testing.T) {
	sock := &fakeSocket{}
	w := NewFrameWriter(sock)
	s := NewSession("sess-1", nil, w, nil)
	turn := s.StartTurn("first")

	s.StrongCancel(context.Background(), turn)

	if len(sock.texts) != 1 {
		t.Fatalf("expected one audio_cancel control frame, got %d", len(sock.texts))
	}
}

func TestSessionMetricsLookup(t *testing.T) {
	s := NewSession("sess-1", nil, nil, nil)
	turn := s.StartTurn("hi")
	m, ok := s.Metrics(turn.ID)
	if !ok || m != turn.Metrics {
		t.Fatalf("expected to find turn's metrics by id")
	}
	if _, ok := s.Metrics(999); ok {
		t.Fatalf("expected no metrics for unknown turn id")
	}
}

// TestSessionGracePeriodFallsBackWhenTurnNeverStops covers the case where
// nothing ever calls MarkStopped on the cancelled turn (e.g. a wedged
// worker): StrongCancel must not wait forever, only up to interruptGrace.
func TestSessionGracePeriodFallsBackWhenTurnNeverStops(t *testing.T) {
	s := NewSession("sess-1", nil, nil, nil)
	turn := s.StartTurn("first")

	start := time.Now()
	s.StrongCancel(context.Background(), turn)
	elapsed := time.Since(start)

	if elapsed < interruptGrace {
		t.Fatalf("expected StrongCancel to wait out the grace window, took %v", elapsed)
	}
	if elapsed > interruptGrace+100*time.Millisecond {
		t.Fatalf("StrongCancel took unexpectedly long: %v", elapsed)
	}
}

// TestSessionGracePeriodReturnsEarlyWhenTurnStops is the common case: the
// superseded turn's goroutine notices cancellation and calls MarkStopped
// well inside the grace window, and StrongCancel must return immediately
// rather than always sleeping out the full 200ms (spec.md Scenario 3:
// the superseding turn must proceed promptly).
func TestSessionGracePeriodReturnsEarlyWhenTurnStops(t *testing.T) {
	s := NewSession("sess-1", nil, nil, nil)
	turn := s.StartTurn("first")

	go func() {
		time.Sleep(10 * time.Millisecond)
		turn.MarkStopped()
	}()

	start := time.Now()
	s.StrongCancel(context.Background(), turn)
	elapsed := time.Since(start)

	if elapsed >= interruptGrace {
		t.Fatalf("expected StrongCancel to return early once the turn stopped, took %v", elapsed)
	}
}
