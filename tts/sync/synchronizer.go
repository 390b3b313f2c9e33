package sync

import (
	"sync"

	"github.com/dgnsrekt/readalong/tts/sentence"
)

// Synchronizer translates per-segment boundary offsets into source-global
// highlight spans. One Synchronizer follows one session at a time.
type Synchronizer struct {
	mu        sync.RWMutex
	source    string
	segments  []sentence.Segment
	sentences []sentence.Span
	renderer  *Renderer
}

// NewSynchronizer creates an idle synchronizer.
func NewSynchronizer() *Synchronizer {
	return &Synchronizer{renderer: NewRenderer("")}
}

// Begin starts following a session over source.
func (s *Synchronizer) Begin(source string, segments []sentence.Segment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.source = source
	s.segments = segments
	s.sentences = sentence.Sentences(source)
	s.renderer = NewRenderer(source)
}

// OnSegmentStart highlights the sentence the segment begins in. It returns
// the span when the highlight changed.
func (s *Synchronizer) OnSegmentStart(index int) (Span, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.segments) {
		return Span{}, false
	}

	span, ok := sentenceAt(s.sentences, s.segments[index].Start)
	if !ok || !s.renderer.Apply(span) {
		return Span{}, false
	}
	return span, true
}

// OnBoundary handles a boundary at charIndex within segment index and
// returns the spans whose highlight changed. Boundaries on separators leave
// the current highlights in place.
func (s *Synchronizer) OnBoundary(index int, kind Kind, charIndex int) []Span {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.segments) {
		return nil
	}
	seg := s.segments[index]
	offset := seg.Start + charIndex
	if charIndex < 0 || offset >= seg.End {
		return nil
	}

	var changed []Span

	if kind == KindSentence {
		if span, ok := sentenceAt(s.sentences, offset); ok && s.renderer.Apply(span) {
			changed = append(changed, span)
		}
		return changed
	}

	word, ok := wordAt(s.source, offset)
	if !ok {
		return nil
	}
	if s.renderer.Apply(word) {
		changed = append(changed, word)
	}

	if current, has := s.renderer.Sentence(); !has || !current.Contains(word) {
		if span, ok := sentenceAt(s.sentences, word.Start); ok && s.renderer.Apply(span) {
			changed = append(changed, span)
		}
	}

	return changed
}

// Highlights returns the active word and sentence spans.
func (s *Synchronizer) Highlights() (word Span, hasWord bool, sent Span, hasSentence bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	word, hasWord = s.renderer.Word()
	sent, hasSentence = s.renderer.Sentence()
	return word, hasWord, sent, hasSentence
}

// Render returns the source with the active highlights marked.
func (s *Synchronizer) Render(m Marker) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.renderer.Render(m)
}

// Reset clears the highlights and forgets the session.
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.renderer.Cleanup()
	s.source = ""
	s.segments = nil
	s.sentences = nil
	s.renderer = NewRenderer("")
}
