package ui

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"

	"github.com/dgnsrekt/readalong/tts"
	ttssync "github.com/dgnsrekt/readalong/tts/sync"
)

// newMarker styles the spoken sentence and word. Terminals without color
// get bracket markers instead.
func newMarker(cfg tts.HighlightConfig, profile termenv.Profile) ttssync.Marker {
	if profile == termenv.Ascii {
		return ttssync.BracketMarker
	}

	word := lipgloss.NewStyle().
		Background(lipgloss.Color(cfg.WordColor)).
		Foreground(lipgloss.Color("0")).
		Bold(true)
	sentence := lipgloss.NewStyle().
		Background(lipgloss.Color(cfg.SentenceColor))

	return ttssync.MarkerFunc(func(kind ttssync.Kind, text string) string {
		style := sentence
		if kind == ttssync.KindWord {
			style = word
		}
		// Style line by line; lipgloss pads multi-line blocks.
		lines := strings.Split(text, "\n")
		for i, l := range lines {
			if l != "" {
				lines[i] = style.Render(l)
			}
		}
		return strings.Join(lines, "\n")
	})
}

// layout is the source word-wrapped to a width, together with the offset
// of every source byte in the wrapped text. Wrapping only drops or inserts
// whitespace, so all other bytes keep their order.
type layout struct {
	text string
	pos  []int
}

func newLayout(source string, width int) layout {
	text := source
	if width > 0 {
		text = wordwrap.String(source, width)
	}

	pos := make([]int, len(source)+1)
	j := 0
	for i := 0; i < len(source); i++ {
		c := source[i]
		if j < len(text) && text[j] == c {
			pos[i] = j
			j++
			continue
		}
		if isSpaceByte(c) {
			// Dropped at a line break.
			pos[i] = j
			continue
		}
		for j < len(text) && text[j] != c {
			j++
		}
		pos[i] = j
		if j < len(text) {
			j++
		}
	}
	pos[len(source)] = len(text)

	return layout{text: text, pos: pos}
}

// span maps a source span into the wrapped text.
func (l layout) span(s ttssync.Span) (ttssync.Span, bool) {
	if s.Start < 0 || s.End > len(l.pos)-1 || s.Start >= s.End {
		return ttssync.Span{}, false
	}
	return ttssync.Span{
		Start: l.pos[s.Start],
		End:   min(l.pos[s.End-1]+1, len(l.text)),
		Kind:  s.Kind,
	}, true
}

// line returns the wrapped line the source offset lands on.
func (l layout) line(offset int) int {
	offset = min(max(offset, 0), len(l.pos)-1)
	return strings.Count(l.text[:l.pos[offset]], "\n")
}

func isSpaceByte(c byte) bool {
	if c >= utf8.RuneSelf {
		return false
	}
	return unicode.IsSpace(rune(c))
}
