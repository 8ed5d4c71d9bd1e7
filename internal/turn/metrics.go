package turn

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Outcome tags for a finished turn.
const (
	OutcomeOK        = "ok"
	OutcomeCancelled = "cancelled"
	OutcomeError     = "error"
)

// TurnMetrics holds a monotonic-clock origin and nullable monotonic
// timestamps for the phases of one turn, modeled directly on the Python
// ancestor's TurnMetrics dataclass (original_source/services/backend/core/session.py).
type TurnMetrics struct {
	mu sync.Mutex

	SessionID string
	TurnID    uint32

	t0             time.Time
	tFirstDelta    *time.Time
	tFirstAudio    *time.Time
	tDone          *time.Time
	tInterruptRecv *time.Time
	tInterruptDone *time.Time

	Outcome string
	ErrType string
	ErrMsg  string
}

// NewTurnMetrics starts a metrics record anchored at the receive time of
// the user_text message that created the turn.
func NewTurnMetrics(sessionID string, turnID uint32) *TurnMetrics {
	return &TurnMetrics{
		SessionID: sessionID,
		TurnID:    turnID,
		t0:        time.Now(),
		Outcome:   OutcomeOK,
	}
}

func (m *TurnMetrics) StampFirstDelta() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tFirstDelta == nil {
		t := time.Now()
		m.tFirstDelta = &t
	}
}

func (m *TurnMetrics) StampFirstAudio() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tFirstAudio == nil {
		t := time.Now()
		m.tFirstAudio = &t
	}
}

func (m *TurnMetrics) StampDone() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tDone == nil {
		t := time.Now()
		m.tDone = &t
	}
}

// StampInterruptRecv records the moment an interrupt was observed for this
// turn, if not already recorded.
func (m *TurnMetrics) StampInterruptRecv() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tInterruptRecv == nil {
		t := time.Now()
		m.tInterruptRecv = &t
	}
}

// StampInterruptDone records the moment the strong-cancel routine finished
// waiting on the turn, and flips outcome to cancelled unless it's already
// error.
func (m *TurnMetrics) StampInterruptDone() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tInterruptRecv != nil && m.tInterruptDone == nil {
		t := time.Now()
		m.tInterruptDone = &t
		if m.Outcome == OutcomeOK {
			m.Outcome = OutcomeCancelled
		}
	}
}

func (m *TurnMetrics) SetError(errType, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outcome = OutcomeError
	m.ErrType = errType
	m.ErrMsg = errMsg
}

func (m *TurnMetrics) SetCancelled() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Outcome == OutcomeOK {
		m.Outcome = OutcomeCancelled
	}
}

// Record is the JSON-serializable shape of one metrics line.
type Record struct {
	TS            string `json:"ts"`
	SessionID     string `json:"session_id"`
	TurnID        uint32 `json:"turn_id"`
	FirstDeltaMs  *int64 `json:"t_first_delta_ms"`
	FirstAudioMs  *int64 `json:"t_first_audio_ms"`
	TotalMs       *int64 `json:"t_total_ms"`
	InterruptMs   *int64 `json:"t_interrupt_ms"`
	Outcome       string `json:"outcome"`
	ErrType       string `json:"err_type,omitempty"`
	Err           string `json:"err,omitempty"`
}

func msDelta(a, b *time.Time) *int64 {
	if a == nil || b == nil {
		return nil
	}
	d := b.Sub(*a).Milliseconds()
	return &d
}

// ToRecord builds the persisted jsonl record for this turn.
func (m *TurnMetrics) ToRecord() Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	t0 := m.t0
	return Record{
		TS:           time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		SessionID:    m.SessionID,
		TurnID:       m.TurnID,
		FirstDeltaMs: msDelta(&t0, m.tFirstDelta),
		FirstAudioMs: msDelta(&t0, m.tFirstAudio),
		TotalMs:      msDelta(&t0, m.tDone),
		InterruptMs:  msDelta(m.tInterruptRecv, m.tInterruptDone),
		Outcome:      m.Outcome,
		ErrType:      m.ErrType,
		Err:          m.ErrMsg,
	}
}

// Observer receives every finished turn's Record alongside the jsonl
// append, off the hot path. internal/metrics implements this to feed
// Prometheus histograms without the orchestrator importing Prometheus
// directly.
type Observer interface {
	ObserveTurn(Record)
}

// MetricsRecorder appends one JSON line per turn to a daily
// metrics_<YYYY-MM-DD>.jsonl file under logDir. Appends happen on a
// dedicated goroutine so file I/O never blocks a turn's critical path.
type MetricsRecorder struct {
	logDir   string
	logger   Logger
	observer Observer

	queue chan Record
	wg    sync.WaitGroup
}

func NewMetricsRecorder(logDir string, observer Observer, logger Logger) *MetricsRecorder {
	if logger == nil {
		logger = NoOpLogger{}
	}
	r := &MetricsRecorder{
		logDir:   logDir,
		logger:   logger,
		observer: observer,
		queue:    make(chan Record, 256),
	}
	r.wg.Add(1)
	go r.loop()
	return r
}

// Append enqueues m's record for the background writer. Never blocks the
// caller on file I/O.
func (r *MetricsRecorder) Append(m *TurnMetrics) {
	select {
	case r.queue <- m.ToRecord():
	default:
		r.logger.Warn("metrics queue full, dropping record", "turn_id", m.TurnID)
	}
}

// Close stops accepting new records and waits for the writer to drain.
func (r *MetricsRecorder) Close() {
	close(r.queue)
	r.wg.Wait()
}

func (r *MetricsRecorder) loop() {
	defer r.wg.Done()
	for rec := range r.queue {
		if err := r.appendLine(rec); err != nil {
			r.logger.Error("failed to append metrics record", "error", err)
		}
		if r.observer != nil {
			r.observer.ObserveTurn(rec)
		}
	}
}

func (r *MetricsRecorder) appendLine(rec Record) error {
	if err := os.MkdirAll(r.logDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(r.logDir, fmt.Sprintf("metrics_%s.jsonl", time.Now().UTC().Format("2006-01-02")))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = f.Write(append(line, '\n'))
	return err
}
