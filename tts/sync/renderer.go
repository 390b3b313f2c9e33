package sync

import "strings"

// Marker decorates a slice of source text. Pieces are never nested: text
// inside the active word is passed with KindWord, the rest of the active
// sentence with KindSentence.
type Marker interface {
	Mark(kind Kind, text string) string
}

// MarkerFunc adapts a function to the Marker interface.
type MarkerFunc func(kind Kind, text string) string

// Mark calls f(kind, text).
func (f MarkerFunc) Mark(kind Kind, text string) string {
	return f(kind, text)
}

// BracketMarker marks words with «» and sentences with [] for terminals
// without color.
var BracketMarker = MarkerFunc(func(kind Kind, text string) string {
	if kind == KindWord {
		return "«" + text + "»"
	}
	return "[" + text + "]"
})

// Renderer holds at most one word span and one sentence span over an
// immutable source text. It is not safe for concurrent use.
type Renderer struct {
	source      string
	word        Span
	sentence    Span
	hasWord     bool
	hasSentence bool
}

// NewRenderer creates a renderer for source.
func NewRenderer(source string) *Renderer {
	return &Renderer{source: source}
}

// Source returns the unmarked text.
func (r *Renderer) Source() string {
	return r.source
}

// Apply replaces the active span of the same kind. It returns false when
// the span is out of range or already active.
func (r *Renderer) Apply(span Span) bool {
	if span.Start < 0 || span.End > len(r.source) || span.Start >= span.End {
		return false
	}

	switch span.Kind {
	case KindWord:
		if r.hasWord && r.word == span {
			return false
		}
		r.word, r.hasWord = span, true
	case KindSentence:
		if r.hasSentence && r.sentence == span {
			return false
		}
		r.sentence, r.hasSentence = span, true
	default:
		return false
	}

	return true
}

// Word returns the active word span.
func (r *Renderer) Word() (Span, bool) {
	return r.word, r.hasWord
}

// Sentence returns the active sentence span.
func (r *Renderer) Sentence() (Span, bool) {
	return r.sentence, r.hasSentence
}

// Render returns the source with the active spans marked by m.
func (r *Renderer) Render(m Marker) string {
	if !r.hasWord && !r.hasSentence {
		return r.source
	}

	var b strings.Builder
	b.Grow(len(r.source) + 32)

	switch {
	case r.hasSentence && r.hasWord && r.sentence.Contains(r.word):
		s, w := r.sentence, r.word
		b.WriteString(r.source[:s.Start])
		if s.Start < w.Start {
			b.WriteString(m.Mark(KindSentence, r.source[s.Start:w.Start]))
		}
		b.WriteString(m.Mark(KindWord, r.source[w.Start:w.End]))
		if w.End < s.End {
			b.WriteString(m.Mark(KindSentence, r.source[w.End:s.End]))
		}
		b.WriteString(r.source[s.End:])

	case r.hasSentence && r.hasWord && (r.word.End <= r.sentence.Start || r.word.Start >= r.sentence.End):
		first, second := r.word, r.sentence
		if second.Start < first.Start {
			first, second = second, first
		}
		b.WriteString(r.source[:first.Start])
		b.WriteString(m.Mark(first.Kind, r.source[first.Start:first.End]))
		b.WriteString(r.source[first.End:second.Start])
		b.WriteString(m.Mark(second.Kind, r.source[second.Start:second.End]))
		b.WriteString(r.source[second.End:])

	case r.hasSentence:
		s := r.sentence
		b.WriteString(r.source[:s.Start])
		b.WriteString(m.Mark(KindSentence, r.source[s.Start:s.End]))
		b.WriteString(r.source[s.End:])

	default:
		w := r.word
		b.WriteString(r.source[:w.Start])
		b.WriteString(m.Mark(KindWord, r.source[w.Start:w.End]))
		b.WriteString(r.source[w.End:])
	}

	return b.String()
}

// Cleanup drops both spans and returns the original text. It is safe to
// call any number of times.
func (r *Renderer) Cleanup() string {
	r.word, r.hasWord = Span{}, false
	r.sentence, r.hasSentence = Span{}, false
	return r.source
}
