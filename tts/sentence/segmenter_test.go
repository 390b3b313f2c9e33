package sentence

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int
		expected []string
	}{
		{
			name:     "short text is one segment",
			input:    "Hello world. This is a test.",
			max:      100,
			expected: []string{"Hello world. This is a test."},
		},
		{
			name:     "oversized sentence is hard split",
			input:    "One two three four five.",
			max:      10,
			expected: []string{"One two th", "ree four f", "ive."},
		},
		{
			name:     "sentences packed until the limit",
			input:    "First. Second. Third.",
			max:      14,
			expected: []string{"First. Second.", "Third."},
		},
		{
			name:     "no terminators",
			input:    "just some words",
			max:      100,
			expected: []string{"just some words"},
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    "  Hi there.  ",
			max:      100,
			expected: []string{"Hi there."},
		},
		{
			name:     "decimal point does not end a sentence",
			input:    "Pi is 3.14 today. Yes.",
			max:      17,
			expected: []string{"Pi is 3.14 today.", "Yes."},
		},
		{
			name:     "closing quote stays with its sentence",
			input:    `He said "stop." Then left.`,
			max:      16,
			expected: []string{`He said "stop."`, "Then left."},
		},
		{
			name:     "terminator runs",
			input:    "Really?! Yes...",
			max:      8,
			expected: []string{"Really?!", "Yes..."},
		},
		{
			name:     "limit counts characters not bytes",
			input:    "Ünïcödé wörds.",
			max:      5,
			expected: []string{"Ünïcö", "dé wö", "rds."},
		},
		{
			name:     "empty",
			input:    "",
			max:      10,
			expected: nil,
		},
		{
			name:     "whitespace only",
			input:    " \n\t ",
			max:      10,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments := Split(tt.input, tt.max)

			if len(segments) != len(tt.expected) {
				t.Fatalf("Split() returned %d segments %q, want %d", len(segments), texts(segments), len(tt.expected))
			}

			for i, seg := range segments {
				if seg.Text != tt.expected[i] {
					t.Errorf("segment %d = %q, want %q", i, seg.Text, tt.expected[i])
				}
				if seg.Index != i {
					t.Errorf("segment %d has index %d", i, seg.Index)
				}
				if got := tt.input[seg.Start:seg.End]; got != seg.Text {
					t.Errorf("segment %d offsets select %q, text is %q", i, got, seg.Text)
				}
			}
		})
	}
}

func TestSplitDefaultLimit(t *testing.T) {
	text := strings.Repeat("a", DefaultMaxChunkChars+1)

	segments := Split(text, 0)
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[0].Len() != DefaultMaxChunkChars {
		t.Errorf("first segment has %d characters, want %d", segments[0].Len(), DefaultMaxChunkChars)
	}
}

func TestSplitReconstructs(t *testing.T) {
	inputs := []string{
		"",
		"word",
		"no terminators at all here",
		"Hello world. This is a test.",
		"  Leading and trailing.   ",
		"Line one.\nLine two!\n\nLine three?  Done",
		"Short. A considerably longer sentence follows the short one. End.",
		"Ünïcödé wörds. Ünd möre wörds hère!",
		"Wait... what?! \"Quoted.\" (Bracketed.) Tail",
		"tabs\tbetween.\tsentences.\t",
	}

	for _, input := range inputs {
		for limit := 1; limit <= 30; limit++ {
			segments := Split(input, limit)

			if got := Reconstruct(input, segments); got != input {
				t.Fatalf("Reconstruct(Split(%q, %d)) = %q", input, limit, got)
			}

			prev := 0
			for i, seg := range segments {
				if n := utf8.RuneCountInString(seg.Text); n > limit {
					t.Errorf("Split(%q, %d): segment %d has %d characters", input, limit, i, n)
				}
				if seg.Start < prev {
					t.Errorf("Split(%q, %d): segment %d overlaps the previous one", input, limit, i)
				}
				if gap := input[prev:seg.Start]; strings.TrimSpace(gap) != "" {
					t.Errorf("Split(%q, %d): dropped %q before segment %d", input, limit, gap, i)
				}
				prev = seg.End
			}
			if tail := input[prev:]; strings.TrimSpace(tail) != "" {
				t.Errorf("Split(%q, %d): dropped tail %q", input, limit, tail)
			}
		}
	}
}

func TestSentences(t *testing.T) {
	text := "  One. Two!  Three"
	spans := Sentences(text)

	want := []string{"One.", "Two!", "Three"}
	if len(spans) != len(want) {
		t.Fatalf("Sentences() returned %d spans, want %d", len(spans), len(want))
	}
	for i, span := range spans {
		if got := text[span.Start:span.End]; got != want[i] {
			t.Errorf("span %d = %q, want %q", i, got, want[i])
		}
	}
}

func texts(segments []Segment) []string {
	out := make([]string, len(segments))
	for i, seg := range segments {
		out[i] = seg.Text
	}
	return out
}
