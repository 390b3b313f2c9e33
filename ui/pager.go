package ui

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	ttssync "github.com/dgnsrekt/readalong/tts/sync"
)

const statusBarHeight = 1

// pagerModel shows the text being read and keeps the spoken sentence in
// view.
type pagerModel struct {
	viewport viewport.Model
	source   string
	maxWidth int
	marker   ttssync.Marker

	layout   layout
	renderer *ttssync.Renderer

	// Highlights in source offsets, reapplied after a resize.
	word, sentence       ttssync.Span
	hasWord, hasSentence bool
}

func newPagerModel(source string, maxWidth int, marker ttssync.Marker) pagerModel {
	m := pagerModel{
		viewport: viewport.New(0, 0),
		source:   source,
		maxWidth: maxWidth,
		marker:   marker,
	}
	m.relayout()
	return m
}

func (m *pagerModel) setSize(w, h int) {
	m.viewport.Width = w
	m.viewport.Height = max(0, h)
	m.relayout()
}

// wrapWidth is the narrower of the window and the configured maximum.
func (m pagerModel) wrapWidth() int {
	w := m.viewport.Width
	if m.maxWidth > 0 && (w == 0 || m.maxWidth < w) {
		w = m.maxWidth
	}
	return w
}

func (m *pagerModel) relayout() {
	m.layout = newLayout(m.source, m.wrapWidth())
	m.renderer = ttssync.NewRenderer(m.layout.text)
	if m.hasSentence {
		m.apply(m.sentence)
	}
	if m.hasWord {
		m.apply(m.word)
	}
	m.refresh()
}

// highlight marks a source span. A new sentence scrolls into view.
func (m *pagerModel) highlight(span ttssync.Span) {
	switch span.Kind {
	case ttssync.KindWord:
		m.word, m.hasWord = span, true
	case ttssync.KindSentence:
		m.sentence, m.hasSentence = span, true
	}

	if !m.apply(span) {
		return
	}
	m.refresh()
	if span.Kind == ttssync.KindSentence {
		m.scrollTo(span.Start)
	}
}

// clear drops both highlights and shows the plain text.
func (m *pagerModel) clear() {
	m.hasWord, m.hasSentence = false, false
	m.renderer.Cleanup()
	m.refresh()
}

func (m *pagerModel) apply(span ttssync.Span) bool {
	mapped, ok := m.layout.span(span)
	if !ok {
		return false
	}
	return m.renderer.Apply(mapped)
}

func (m *pagerModel) refresh() {
	m.viewport.SetContent(m.renderer.Render(m.marker))
}

// scrollTo puts the line of offset a third of the way down when it is
// off screen.
func (m *pagerModel) scrollTo(offset int) {
	line := m.layout.line(offset)
	top := m.viewport.YOffset
	if line >= top && line < top+m.viewport.Height {
		return
	}
	m.viewport.SetYOffset(max(0, line-m.viewport.Height/3))
}

func (m pagerModel) update(msg tea.Msg) (pagerModel, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m pagerModel) View() string {
	return m.viewport.View()
}
