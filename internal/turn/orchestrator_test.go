package turn

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeTextStream struct {
	deltas []string
	i      int
}

func (f *fakeTextStream) Next(ctx context.Context) (string, bool, error) {
	if f.i >= len(f.deltas) {
		return "", false, nil
	}
	d := f.deltas[f.i]
	f.i++
	return d, true, nil
}

type fakeGenerator struct {
	deltas []string
}

func (g *fakeGenerator) Generate(ctx context.Context, userText string) (TextStream, error) {
	return &fakeTextStream{deltas: g.deltas}, nil
}
func (g *fakeGenerator) Name() string { return "fake-llm" }

type fakeSpeechStream struct {
	chunks [][]byte
	i      int
}

func (f *fakeSpeechStream) Next(ctx context.Context) ([]byte, bool, error) {
	if f.i >= len(f.chunks) {
		return nil, false, nil
	}
	c := f.chunks[f.i]
	f.i++
	return c, true, nil
}

type fakeSynth struct {
	mu     sync.Mutex
	calls  []string
	chunks [][]byte // nil means "use the default two-chunk stream"
}

func (s *fakeSynth) Synthesize(ctx context.Context, text string) (SpeechStream, error) {
	s.mu.Lock()
	s.calls = append(s.calls, text)
	chunks := s.chunks
	s.mu.Unlock()
	if chunks == nil {
		chunks = [][]byte{[]byte("pcm1"), []byte("pcm2")}
	}
	return &fakeSpeechStream{chunks: chunks}, nil
}
func (s *fakeSynth) Mime() string       { return "audio/L16" }
func (s *fakeSynth) Format() string     { return "pcm_s16le" }
func (s *fakeSynth) SampleRate() int    { return 24000 }
func (s *fakeSynth) Channels() int      { return 1 }
func (s *fakeSynth) Name() string       { return "fake-tts" }

func newTestWriter() (*FrameWriter, *fakeSocket) {
	sock := &fakeSocket{}
	return NewFrameWriter(sock), sock
}

func TestOrchestratorRunHappyPath(t *testing.T) {
	gen := &fakeGenerator{deltas: []string{strRepeat("hello world ", 10), "."}}
	synth := &fakeSynth{}
	w, sock := newTestWriter()
	o := NewOrchestrator(gen, Voices{Chinese: synth}, w, nil, 120)

	turn := NewTurn(1, "hi", NewTurnMetrics("sess", 1))
	o.Run(context.Background(), turn)

	if len(sock.binarys) == 0 {
		t.Fatalf("expected at least one binary audio frame sent")
	}
	foundFinal := false
	for _, raw := range sock.texts {
		if containsAll(string(raw), "assistant_final") {
			foundFinal = true
		}
	}
	if !foundFinal {
		t.Errorf("expected an assistant_final control message")
	}
}

func TestOrchestratorRunCancelledBeforeStart(t *testing.T) {
	gen := &fakeGenerator{deltas: []string{"hello"}}
	synth := &fakeSynth{}
	w, sock := newTestWriter()
	o := NewOrchestrator(gen, Voices{Chinese: synth}, w, nil, 120)

	turn := NewTurn(1, "hi", NewTurnMetrics("sess", 1))
	turn.Cancel()
	o.Run(context.Background(), turn)

	for _, raw := range sock.texts {
		if containsAll(string(raw), "assistant_final") {
			t.Errorf("did not expect assistant_final on a pre-cancelled turn")
		}
	}
}

func TestOrchestratorFlushedTailSegmentStillProducesAudio(t *testing.T) {
	gen := &fakeGenerator{deltas: []string{"short"}}
	synth := &fakeSynth{}
	w, sock := newTestWriter()
	o := NewOrchestrator(gen, Voices{Chinese: synth}, w, nil, 120)

	turn := NewTurn(1, "hi", NewTurnMetrics("sess", 1))
	done := make(chan struct{})
	go func() {
		o.Run(context.Background(), turn)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("orchestrator did not finish in time")
	}

	if len(sock.binarys) == 0 {
		t.Fatalf("expected audio to be sent for the flushed tail segment")
	}
}

// TestOrchestratorSilentSynthesisSkipsAudioBeginEnd covers spec.md
// Scenario 5: probe-before-begin means a segment whose synthesizer yields
// zero chunks must never trigger audio_begin/speaking or audio_end — the
// turn should still complete normally via assistant_final.
func TestOrchestratorSilentSynthesisSkipsAudioBeginEnd(t *testing.T) {
	gen := &fakeGenerator{deltas: []string{"short"}}
	synth := &fakeSynth{chunks: [][]byte{}}
	w, sock := newTestWriter()
	o := NewOrchestrator(gen, Voices{Chinese: synth}, w, nil, 120)

	turn := NewTurn(1, "hi", NewTurnMetrics("sess", 1))
	done := make(chan struct{})
	go func() {
		o.Run(context.Background(), turn)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("orchestrator did not finish in time")
	}

	if len(sock.binarys) != 0 {
		t.Fatalf("expected no binary audio frames for silent synthesis, got %d", len(sock.binarys))
	}
	for _, raw := range sock.texts {
		if containsAll(string(raw), "audio_begin") {
			t.Errorf("did not expect audio_begin for silent synthesis")
		}
		if containsAll(string(raw), "audio_end") {
			t.Errorf("did not expect audio_end for silent synthesis")
		}
	}
	foundFinal := false
	for _, raw := range sock.texts {
		if containsAll(string(raw), "assistant_final") {
			foundFinal = true
		}
	}
	if !foundFinal {
		t.Errorf("expected the turn to still complete with assistant_final")
	}
}

func strRepeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}

func containsAll(haystack string, needle string) bool {
	return len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
