package turn

// Default prefix length sampled before an auto language decision is forced,
// matching the original TTS_LANG_DECIDE_CHARS default (config.py).
const defaultDecideChars = 120

// cjkLow/cjkHigh bound the CJK Unified Ideographs block used to count
// Chinese-script characters (spec.md §4.3: U+4E00-U+9FFF).
const (
	cjkLow  = 0x4E00
	cjkHigh = 0x9FFF
)

// LanguageRouter decides, once per turn, whether the reply should be
// spoken in the Chinese or the English voice. It accumulates a prefix
// sample of the reply text and latches a decision the first time one of
// three conditions holds (spec.md §4.3):
//
//  1. the sample reaches decideChars runes,
//  2. an end-of-sentence punctuation mark appears at index >= SOFT_MIN-1
//     (early decision for short replies), or
//  3. the generator stream ends.
//
// Not safe for concurrent use from more than one feeder; the one-shot
// decision itself is published via Decided()/Await() for a second reader.
type LanguageRouter struct {
	decideChars int
	hasEnglish  bool

	sample []rune
	done   chan struct{}
	result Language
}

// NewLanguageRouter returns a router with the configured prefix length
// (defaultDecideChars if decideChars <= 0) and whether an English voice is
// configured at all (if not, English is never chosen — spec.md §4.3: "If
// no English voice is configured, reuse Chinese.").
func NewLanguageRouter(decideChars int, hasEnglish bool) *LanguageRouter {
	if decideChars <= 0 {
		decideChars = defaultDecideChars
	}
	return &LanguageRouter{
		decideChars: decideChars,
		hasEnglish:  hasEnglish,
		done:        make(chan struct{}),
		result:      LanguageZH,
	}
}

// Feed accumulates delta into the sample and, if still undecided, checks
// whether the sample or an early sentence boundary forces a decision now.
// Returns true if this call made the decision.
func (r *LanguageRouter) Feed(delta string) bool {
	select {
	case <-r.done:
		return false
	default:
	}

	r.sample = append(r.sample, []rune(delta)...)

	if len(r.sample) >= r.decideChars {
		r.decide(r.sample)
		return true
	}

	if idx, ok := earliestEnderFrom(r.sample, segSoftMin-1); ok {
		_ = idx
		r.decide(r.sample)
		return true
	}

	return false
}

// Finish forces a decision from whatever sample was accumulated so far, if
// one hasn't been made yet. Called when the generator stream ends.
func (r *LanguageRouter) Finish() {
	select {
	case <-r.done:
		return
	default:
	}
	r.decide(r.sample)
}

// decide latches the result and closes done. Must only be called when not
// already decided.
func (r *LanguageRouter) decide(sample []rune) {
	r.result = r.classify(sample)
	close(r.done)
}

func (r *LanguageRouter) classify(sample []rune) Language {
	var cjk, latin int
	for _, c := range sample {
		switch {
		case c >= cjkLow && c <= cjkHigh:
			cjk++
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
			latin++
		}
	}
	if cjk >= latin || !r.hasEnglish {
		return LanguageZH
	}
	return LanguageEN
}

// Await blocks until a decision is latched or done is closed.
func (r *LanguageRouter) Await(done <-chan struct{}) Language {
	select {
	case <-r.done:
	case <-done:
	}
	return r.result
}

// Decided reports whether a decision has been latched, and the decision if
// so.
func (r *LanguageRouter) Decided() (Language, bool) {
	select {
	case <-r.done:
		return r.result, true
	default:
		return "", false
	}
}

// DoneCh exposes the one-shot event channel for select-based waits.
func (r *LanguageRouter) DoneCh() <-chan struct{} {
	return r.done
}
