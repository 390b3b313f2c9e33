// Package sentence splits source text into bounded, sentence-respecting
// segments while keeping exact byte offsets into the source.
package sentence

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxChunkChars is the segment limit used when none is configured.
const DefaultMaxChunkChars = 200

// Segment is one bounded slice of the source, spoken as one utterance.
type Segment struct {
	Index int    // Ordinal within the session
	Text  string // Always equal to source[Start:End]
	Start int    // Byte offset of the first byte in the source
	End   int    // Byte offset one past the last byte in the source
}

// Len returns the segment length in characters.
func (s Segment) Len() int {
	return utf8.RuneCountInString(s.Text)
}

// Span is a half-open byte range of the source.
type Span struct {
	Start int
	End   int
}

// Split splits text into ordered segments of at most maxChunkChars
// characters. Whole sentences are packed into a segment until the next one
// would not fit. A sentence longer than the limit is hard-split into chunks
// of exactly maxChunkChars characters. Only whitespace is left between
// segments, so Reconstruct always yields text back.
func Split(text string, maxChunkChars int) []Segment {
	if maxChunkChars < 1 {
		maxChunkChars = DefaultMaxChunkChars
	}

	var segments []Segment
	emit := func(start, end int) {
		if strings.TrimSpace(text[start:end]) == "" {
			return
		}
		segments = append(segments, Segment{
			Index: len(segments),
			Text:  text[start:end],
			Start: start,
			End:   end,
		})
	}

	open := false
	var segStart, segEnd int

	for _, s := range Sentences(text) {
		if open && utf8.RuneCountInString(text[segStart:s.End]) <= maxChunkChars {
			segEnd = s.End
			continue
		}

		if open {
			emit(segStart, segEnd)
			open = false
		}

		if utf8.RuneCountInString(text[s.Start:s.End]) <= maxChunkChars {
			segStart, segEnd, open = s.Start, s.End, true
			continue
		}

		for _, chunk := range hardSplit(text, s, maxChunkChars) {
			emit(chunk.Start, chunk.End)
		}
	}

	if open {
		emit(segStart, segEnd)
	}

	return segments
}

// Sentences returns the trimmed sentence spans of text in order. A sentence
// ends after a run of terminators, optionally followed by closing quotes or
// brackets, when whitespace or the end of text comes next. Trailing text
// without a terminator forms the last sentence.
func Sentences(text string) []Span {
	var spans []Span

	start := -1
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])

		if start < 0 {
			if !unicode.IsSpace(r) {
				start = i
			}
			i += size
			continue
		}

		if !isTerminator(r) {
			i += size
			continue
		}

		end := i + size
		for end < len(text) {
			next, n := utf8.DecodeRuneInString(text[end:])
			if !isTerminator(next) && !isCloser(next) {
				break
			}
			end += n
		}

		if end == len(text) || startsWithSpace(text[end:]) {
			spans = append(spans, Span{Start: start, End: end})
			start = -1
		}
		i = end
	}

	if start >= 0 {
		end := len(strings.TrimRightFunc(text, unicode.IsSpace))
		if end > start {
			spans = append(spans, Span{Start: start, End: end})
		}
	}

	return spans
}

// Reconstruct reinserts the whitespace between segments and returns the
// text they were cut from.
func Reconstruct(source string, segments []Segment) string {
	var b strings.Builder
	b.Grow(len(source))

	prev := 0
	for _, seg := range segments {
		b.WriteString(source[prev:seg.Start])
		b.WriteString(seg.Text)
		prev = seg.End
	}
	b.WriteString(source[prev:])

	return b.String()
}

// hardSplit cuts an oversized sentence into chunks of exactly limit
// characters; the last chunk may be shorter.
func hardSplit(text string, s Span, limit int) []Span {
	var chunks []Span

	start := s.Start
	count := 0
	for i := range text[s.Start:s.End] {
		if count == limit {
			chunks = append(chunks, Span{Start: start, End: s.Start + i})
			start = s.Start + i
			count = 0
		}
		count++
	}
	if start < s.End {
		chunks = append(chunks, Span{Start: start, End: s.End})
	}

	return chunks
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’', '»':
		return true
	}
	return false
}

func startsWithSpace(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsSpace(r)
}
