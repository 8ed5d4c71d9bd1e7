package turn

import "strings"

// Segmenter thresholds (spec.md §4.3), character counts.
const (
	segSoftMin = 30
	segMin     = 70
	segMax     = 260
)

// sentenceEnders is the end-of-sentence punctuation set, tried in this
// order — the earliest match among them in the buffer wins, not the
// order they're listed in. Mirrors the Python ancestor's SENTENCES list
// (original_source/apps/old/ws——piper-中文模型版本.py).
var sentenceEnders = []string{"。", ".", "!", "！", "?", "？", "\n"}

// Segmenter splits a streaming text buffer into natural speakable chunks
// sized between segSoftMin and segMax characters. It is not safe for
// concurrent use; one Segmenter belongs to exactly one turn's Generator
// Worker.
type Segmenter struct {
	buf []rune
}

// NewSegmenter returns an empty Segmenter.
func NewSegmenter() *Segmenter {
	return &Segmenter{}
}

// Feed appends delta to the buffer and returns every segment that can be
// popped immediately (may be zero, one, or more for a single large delta).
func (s *Segmenter) Feed(delta string) []string {
	if delta == "" {
		return nil
	}
	s.buf = append(s.buf, []rune(delta)...)

	var out []string
	for {
		seg, ok := s.pop()
		if !ok {
			break
		}
		out = append(out, seg)
	}
	return out
}

// Flush returns the remainder, trimmed of leading and trailing whitespace,
// as a final segment if it is non-empty after trimming, unconditionally
// (even if shorter than segSoftMin), and clears the buffer. A
// whitespace-only remainder yields no segment. Called once the generator
// stream ends.
func (s *Segmenter) Flush() (string, bool) {
	tail := strings.TrimSpace(string(s.buf))
	s.buf = nil
	if tail == "" {
		return "", false
	}
	return tail, true
}

// pop implements the cut-point search of spec.md §4.3:
//  1. len < SOFT_MIN: no segment.
//  2. len >= MIN and an end-punctuation exists at index >= MIN-1: cut there
//     (earliest such index across all punctuation marks wins).
//  3. else len >= SOFT_MIN and an end-punctuation exists at index in
//     [SOFT_MIN-1, MIN-1): cut there (short replies like "OK.").
//  4. else len >= MAX: hard-cut at MAX.
//  5. otherwise: no segment yet.
func (s *Segmenter) pop() (string, bool) {
	n := len(s.buf)
	if n < segSoftMin {
		return "", false
	}

	if n >= segMin {
		if idx, ok := earliestEnderFrom(s.buf, segMin-1); ok {
			return s.cut(idx + 1), true
		}
	}

	if idx, ok := earliestEnderInRange(s.buf, segSoftMin-1, segMin-1); ok {
		return s.cut(idx + 1), true
	}

	if n >= segMax {
		return s.cut(segMax), true
	}

	return "", false
}

func (s *Segmenter) cut(n int) string {
	seg := string(s.buf[:n])
	s.buf = s.buf[n:]
	return seg
}

// earliestEnderFrom returns the smallest index >= from of any sentence
// ender in buf.
func earliestEnderFrom(buf []rune, from int) (int, bool) {
	best := -1
	for _, ender := range sentenceEnders {
		idx := indexRunesFrom(buf, []rune(ender), from)
		if idx != -1 && (best == -1 || idx < best) {
			best = idx
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

// earliestEnderInRange returns the smallest index in [from, to) of any
// sentence ender in buf.
func earliestEnderInRange(buf []rune, from, to int) (int, bool) {
	if to <= from {
		return 0, false
	}
	best := -1
	for _, ender := range sentenceEnders {
		idx := indexRunesFrom(buf, []rune(ender), from)
		if idx != -1 && idx < to && (best == -1 || idx < best) {
			best = idx
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

// indexRunesFrom finds the first occurrence of needle in buf at or after
// position from, operating on runes (not bytes) so CJK punctuation indexes
// align with the character-count thresholds above.
func indexRunesFrom(buf, needle []rune, from int) int {
	if from < 0 {
		from = 0
	}
	if len(needle) == 0 || from > len(buf)-len(needle) {
		return -1
	}
	for i := from; i <= len(buf)-len(needle); i++ {
		match := true
		for j := range needle {
			if buf[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
