package turn

import (
	"context"
	"fmt"
)

// Voices pairs the Chinese and (optional) English synthesizer for a turn.
// English may be nil, in which case the LanguageRouter is constructed with
// hasEnglish=false and always resolves to Chinese (spec.md §4.3).
type Voices struct {
	Chinese SpeechSynthesizer
	English SpeechSynthesizer
}

func (v Voices) pick(lang Language) SpeechSynthesizer {
	if lang == LanguageEN && v.English != nil {
		return v.English
	}
	return v.Chinese
}

// Orchestrator runs one turn at a time: a Generator Worker draining the
// TextGenerator's delta stream into the Segmenter and the LanguageRouter,
// and a TTS Worker draining segments into PCM frames on the wire. Grounded
// on the Python ancestor's run_turn_workflow/tts_worker/llm_worker
// (original_source/apps/old/ws——piper-中文模型版本.py), restructured as two
// goroutines coordinated by channels instead of asyncio tasks.
type Orchestrator struct {
	Generator   TextGenerator
	Voices      Voices
	Writer      *FrameWriter
	Logger      Logger
	DecideChars int
}

func NewOrchestrator(gen TextGenerator, voices Voices, w *FrameWriter, logger Logger, decideChars int) *Orchestrator {
	if logger == nil {
		logger = NoOpLogger{}
	}
	return &Orchestrator{
		Generator:   gen,
		Voices:      voices,
		Writer:      w,
		Logger:      logger,
		DecideChars: decideChars,
	}
}

type segment struct {
	text string
}

// Run drives t to completion: thinking -> (speaking)* -> idle, or aborts
// early if t is cancelled. It never returns an error for a cancelled turn;
// cancellation is observed via t.Cancelled() by the caller/session.
func (o *Orchestrator) Run(ctx context.Context, t *Turn) {
	o.Writer.SafeSendControl(ctx, stateUpdateMessage(t.ID, StateThinking))

	if t.Cancelled() {
		return
	}

	if o.Generator == nil || o.Voices.Chinese == nil {
		o.fail(ctx, t, "ConfigError", ErrNilProvider)
		return
	}

	segCh := make(chan segment, 8)
	router := NewLanguageRouter(o.DecideChars, o.Voices.English != nil)

	genDone := make(chan struct{})
	var fullText string
	go func() {
		defer close(genDone)
		fullText = o.runGenerator(ctx, t, router, segCh)
	}()

	o.runTTS(ctx, t, router, segCh)
	<-genDone

	if t.Cancelled() {
		return
	}

	o.Writer.SafeSendControl(ctx, assistantFinalMessage(t.ID, fullText))
	o.Writer.SafeSendControl(ctx, stateUpdateMessage(t.ID, StateIdle))
}

// runGenerator consumes the TextGenerator's delta stream, forwards deltas
// to the client as assistant_delta, feeds the Segmenter and the
// LanguageRouter, and enqueues completed segments onto segCh. Closes segCh
// when the stream ends or the turn is cancelled.
func (o *Orchestrator) runGenerator(ctx context.Context, t *Turn, router *LanguageRouter, segCh chan<- segment) string {
	defer close(segCh)

	stream, err := o.Generator.Generate(ctx, t.UserText)
	if err != nil {
		o.fail(ctx, t, "GeneratorError", fmt.Errorf("%w: %s", ErrGeneratorFailed, err))
		return ""
	}

	seg := NewSegmenter()
	var full string

	for {
		select {
		case <-t.Done():
			return full
		default:
		}

		delta, ok, err := stream.Next(ctx)
		if err != nil {
			o.fail(ctx, t, "GeneratorError", fmt.Errorf("%w: %s", ErrGeneratorFailed, err))
			return full
		}
		if !ok {
			break
		}
		if delta == "" {
			continue
		}

		full += delta
		t.Metrics.StampFirstDelta()
		router.Feed(delta)

		o.Writer.SafeSendControl(ctx, assistantDeltaMessage(t.ID, delta))

		for _, s := range seg.Feed(delta) {
			select {
			case segCh <- segment{text: s}:
			case <-t.Done():
				return full
			}
		}
	}

	router.Finish()

	if tail, ok := seg.Flush(); ok {
		select {
		case segCh <- segment{text: tail}:
		case <-t.Done():
		}
	}

	return full
}

// runTTS waits for the language decision, then drains segCh, synthesizing
// each segment and streaming PCM chunks to the client. It implements the
// probe-before-begin rule: audio_begin (and the speaking state) is only
// announced once the first non-empty chunk of the turn's audio is in hand.
func (o *Orchestrator) runTTS(ctx context.Context, t *Turn, router *LanguageRouter, segCh <-chan segment) {
	var synth SpeechSynthesizer
	audioStarted := false
	var seq uint32

	for {
		select {
		case <-t.Done():
			o.finishAudio(ctx, t, audioStarted)
			return
		case seg, ok := <-segCh:
			if !ok {
				o.finishAudio(ctx, t, audioStarted)
				return
			}

			text := seg.text
			if text == "" {
				continue
			}

			if synth == nil {
				lang := router.Await(t.Done())
				if t.Cancelled() {
					o.finishAudio(ctx, t, audioStarted)
					return
				}
				synth = o.Voices.pick(lang)
			}

			if t.Cancelled() {
				o.finishAudio(ctx, t, audioStarted)
				return
			}

			speechStream, err := synth.Synthesize(ctx, text)
			if err != nil {
				o.fail(ctx, t, "SynthError", fmt.Errorf("%w: %s", ErrSynthFailed, err))
				o.finishAudio(ctx, t, audioStarted)
				return
			}

			chunk, hasChunk, err := speechStream.Next(ctx)
			if err != nil {
				o.fail(ctx, t, "SynthError", fmt.Errorf("%w: %s", ErrSynthFailed, err))
				o.finishAudio(ctx, t, audioStarted)
				return
			}
			if !hasChunk {
				// empty segment audio: skip silently, no begin/end for it
				continue
			}

			if t.Cancelled() {
				o.finishAudio(ctx, t, audioStarted)
				return
			}

			if !audioStarted {
				o.Writer.SafeSendControl(ctx, stateUpdateMessage(t.ID, StateSpeaking))
				o.Writer.SafeSendControl(ctx, audioBeginMessage(t.ID, synth))
				audioStarted = true
			}

			if !o.sendChunk(ctx, t, &seq, chunk) {
				return
			}

			for {
				chunk, hasChunk, err = speechStream.Next(ctx)
				if err != nil {
					o.fail(ctx, t, "SynthError", fmt.Errorf("%w: %s", ErrSynthFailed, err))
					o.finishAudio(ctx, t, audioStarted)
					return
				}
				if !hasChunk {
					break
				}
				if t.Cancelled() {
					o.finishAudio(ctx, t, audioStarted)
					return
				}
				if !o.sendChunk(ctx, t, &seq, chunk) {
					return
				}
			}
		}
	}
}

func (o *Orchestrator) sendChunk(ctx context.Context, t *Turn, seq *uint32, chunk []byte) bool {
	if !o.Writer.SendBinary(ctx, t.ID, *seq, chunk) {
		t.Cancel()
		return false
	}
	t.Metrics.StampFirstAudio()
	*seq++
	return true
}

func (o *Orchestrator) finishAudio(ctx context.Context, t *Turn, audioStarted bool) {
	if !t.Cancelled() && audioStarted {
		o.Writer.SafeSendControl(ctx, audioEndMessage(t.ID))
	}
}

func (o *Orchestrator) fail(ctx context.Context, t *Turn, errType string, err error) {
	t.Metrics.SetError(errType, err.Error())
	o.Writer.SafeSendControl(ctx, errorMessage(t.ID, fmt.Sprintf("%s: %v", errType, err)))
	t.Cancel()
}
