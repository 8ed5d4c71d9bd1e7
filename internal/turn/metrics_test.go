package turn

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTurnMetricsToRecordComputesDeltas(t *testing.T) {
	m := NewTurnMetrics("sess", 1)
	time.Sleep(5 * time.Millisecond)
	m.StampFirstDelta()
	time.Sleep(5 * time.Millisecond)
	m.StampFirstAudio()
	time.Sleep(5 * time.Millisecond)
	m.StampDone()

	rec := m.ToRecord()
	if rec.FirstDeltaMs == nil || *rec.FirstDeltaMs < 0 {
		t.Fatalf("expected non-negative first delta ms, got %v", rec.FirstDeltaMs)
	}
	if rec.TotalMs == nil || *rec.TotalMs < *rec.FirstAudioMs {
		t.Fatalf("expected total >= first audio, got total=%v audio=%v", rec.TotalMs, rec.FirstAudioMs)
	}
	if rec.Outcome != OutcomeOK {
		t.Errorf("expected default outcome ok, got %s", rec.Outcome)
	}
}

func TestTurnMetricsStampsAreIdempotent(t *testing.T) {
	m := NewTurnMetrics("sess", 1)
	m.StampFirstDelta()
	first := m.ToRecord().FirstDeltaMs
	time.Sleep(5 * time.Millisecond)
	m.StampFirstDelta()
	second := m.ToRecord().FirstDeltaMs
	if *first != *second {
		t.Errorf("expected second stamp to be a no-op, got %d -> %d", *first, *second)
	}
}

func TestTurnMetricsSetErrorOverridesOutcome(t *testing.T) {
	m := NewTurnMetrics("sess", 1)
	m.SetError("GeneratorError", "boom")
	rec := m.ToRecord()
	if rec.Outcome != OutcomeError || rec.ErrType != "GeneratorError" || rec.Err != "boom" {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestMetricsRecorderAppendsJSONLine(t *testing.T) {
	dir := t.TempDir()
	r := NewMetricsRecorder(dir, nil, nil)
	m := NewTurnMetrics("sess-1", 1)
	m.StampDone()
	r.Append(m)
	r.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("unexpected error reading dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one metrics file, got %d", len(entries))
	}

	f, err := os.Open(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("unexpected error opening metrics file: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lines := 0
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("unexpected error unmarshalling line: %v", err)
		}
		if rec.SessionID != "sess-1" {
			t.Errorf("expected session id sess-1, got %s", rec.SessionID)
		}
		lines++
	}
	if lines != 1 {
		t.Fatalf("expected 1 line, got %d", lines)
	}
}

type recordingObserver struct {
	seen []Record
}

func (o *recordingObserver) ObserveTurn(r Record) {
	o.seen = append(o.seen, r)
}

func TestMetricsRecorderNotifiesObserver(t *testing.T) {
	dir := t.TempDir()
	obs := &recordingObserver{}
	r := NewMetricsRecorder(dir, obs, nil)
	m := NewTurnMetrics("sess-1", 7)
	m.StampDone()
	r.Append(m)
	r.Close()

	if len(obs.seen) != 1 || obs.seen[0].TurnID != 7 {
		t.Fatalf("expected observer to see the appended record, got %+v", obs.seen)
	}
}
