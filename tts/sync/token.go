// Package sync turns backend audio-position events into highlight spans
// over the source text and renders them.
package sync

import (
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/dgnsrekt/readalong/tts/sentence"
)

// Kind is the granularity of a highlight.
type Kind int

const (
	// KindWord is a single word.
	KindWord Kind = iota
	// KindSentence is a whole sentence.
	KindSentence
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	if k == KindSentence {
		return "sentence"
	}
	return "word"
}

// Span is a half-open byte range of the source text.
type Span struct {
	Start int
	End   int
	Kind  Kind
}

// Len returns the span length in bytes.
func (s Span) Len() int {
	return s.End - s.Start
}

// Contains reports whether o lies within s.
func (s Span) Contains(o Span) bool {
	return o.Start >= s.Start && o.End <= s.End
}

// TokenAt returns the token of the given granularity covering offset. It
// reports false when offset falls on a separator or outside the text.
func TokenAt(offset int, text string, kind Kind) (Span, bool) {
	if offset < 0 || offset >= len(text) {
		return Span{}, false
	}
	for offset > 0 && !utf8.RuneStart(text[offset]) {
		offset--
	}

	if kind == KindSentence {
		return sentenceAt(sentence.Sentences(text), offset)
	}
	return wordAt(text, offset)
}

func wordAt(text string, offset int) (Span, bool) {
	if !inWord(text, offset) {
		return Span{}, false
	}

	start := offset
	for start > 0 {
		_, n := utf8.DecodeLastRuneInString(text[:start])
		if !inWord(text, start-n) {
			break
		}
		start -= n
	}

	end := offset
	for end < len(text) {
		_, n := utf8.DecodeRuneInString(text[end:])
		if !inWord(text, end) {
			break
		}
		end += n
	}

	return Span{Start: start, End: end, Kind: KindWord}, true
}

// sentenceAt finds the span containing offset in sorted sentence spans.
func sentenceAt(spans []sentence.Span, offset int) (Span, bool) {
	i := sort.Search(len(spans), func(i int) bool { return spans[i].End > offset })
	if i == len(spans) || spans[i].Start > offset {
		return Span{}, false
	}
	return Span{Start: spans[i].Start, End: spans[i].End, Kind: KindSentence}, true
}

// inWord reports whether the rune at byte offset i belongs to a word.
func inWord(text string, i int) bool {
	r, n := utf8.DecodeRuneInString(text[i:])
	if isWordRune(r) {
		return true
	}
	if r != '\'' && r != '’' {
		return false
	}

	// An apostrophe only joins letters on both sides.
	if i == 0 || i+n >= len(text) {
		return false
	}
	before, _ := utf8.DecodeLastRuneInString(text[:i])
	after, _ := utf8.DecodeRuneInString(text[i+n:])
	return unicode.IsLetter(before) && unicode.IsLetter(after)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '_'
}
