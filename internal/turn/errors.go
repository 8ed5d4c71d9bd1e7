package turn

import "errors"

var (
	// ErrEmptyUserText is returned when a user_text message carries no text.
	ErrEmptyUserText = errors.New("turn: empty user text")

	// ErrGeneratorFailed wraps a failure from the TextGenerator.
	ErrGeneratorFailed = errors.New("turn: text generation failed")

	// ErrSynthFailed wraps a failure from the SpeechSynthesizer.
	ErrSynthFailed = errors.New("turn: speech synthesis failed")

	// ErrNilProvider is returned when a turn starts with a required
	// Generator or Chinese Voices entry missing.
	ErrNilProvider = errors.New("turn: required provider is nil")

	// ErrNoActiveTurn marks an interrupt that arrived with no turn active.
	ErrNoActiveTurn = errors.New("turn: no active turn")
)
