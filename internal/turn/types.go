// Package turn implements the per-connection turn orchestrator: the state
// machine and concurrency fabric that receives client text, runs a
// streaming text generator and a segmenting text-to-speech pipeline in
// parallel, enforces turn supersession/interruption, frames mixed
// JSON-control and binary-audio messages onto a single ordered channel, and
// records per-turn latency metrics.
package turn

import "context"

// Logger is the structured, leveled logging seam the orchestrator and
// connection handler log through. Concrete loggers (e.g. a zap-backed one)
// satisfy this directly.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// NoOpLogger discards everything. Used as the default when no logger is
// supplied.
type NoOpLogger struct{}

func (NoOpLogger) Debug(msg string, args ...interface{}) {}
func (NoOpLogger) Info(msg string, args ...interface{})  {}
func (NoOpLogger) Warn(msg string, args ...interface{})  {}
func (NoOpLogger) Error(msg string, args ...interface{}) {}

// Language selects a TTS voice. Only two are meaningful to the core: the
// Language Router picks between them based on sampled script content.
type Language string

const (
	LanguageZH Language = "zh"
	LanguageEN Language = "en"
)

// TextStream is the lazy, non-restartable sequence of string deltas a
// TextGenerator produces for one turn. Next blocks until a delta is ready,
// the stream ends (ok=false, err=nil), or ctx is cancelled.
type TextStream interface {
	Next(ctx context.Context) (delta string, ok bool, err error)
}

// TextGenerator produces a TextStream for a single user utterance. Callers
// own the returned stream exclusively; it must not be reused across turns.
type TextGenerator interface {
	Generate(ctx context.Context, userText string) (TextStream, error)
	Name() string
}

// SpeechStream is the lazy, non-restartable sequence of PCM byte chunks a
// SpeechSynthesizer produces for one synthesize(text) call. Next blocks
// until a chunk is ready, the stream ends (ok=false, err=nil), or ctx is
// cancelled.
type SpeechStream interface {
	Next(ctx context.Context) (chunk []byte, ok bool, err error)
}

// SpeechSynthesizer turns text into PCM audio. Format metadata is fixed per
// instance (one instance per language/voice).
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) (SpeechStream, error)
	Mime() string
	Format() string
	SampleRate() int
	Channels() int
	Name() string
}
