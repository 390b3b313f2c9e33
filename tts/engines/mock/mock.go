// Package mock provides a scriptable speech backend for tests and demos.
package mock

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dgnsrekt/readalong/tts"
)

// Config configures the automatic mode.
type Config struct {
	// Auto speaks every utterance on its own, paced at WordsPerMinute.
	// Without it, tests drive utterances by hand.
	Auto bool

	// WordsPerMinute at rate 1.0.
	WordsPerMinute float64

	// FailureRate is the probability that an utterance fails.
	FailureRate float64
}

// DefaultConfig returns a manual-mode configuration.
func DefaultConfig() Config {
	return Config{
		WordsPerMinute: tts.BaseWordsPerMinute,
	}
}

// DefaultVoices are the voices a new mock backend reports.
func DefaultVoices() []tts.Voice {
	return []tts.Voice{
		{ID: "mock-voice-1", Name: "Mock Voice 1", Language: "en-US", Local: true, Default: true},
		{ID: "mock-voice-2", Name: "Mock Voice 2", Language: "en-GB", Local: true},
		{ID: "mock-voice-3", Name: "Mock Voice 3", Language: "en-US"},
		{ID: "mock-voice-4", Name: "Mock Voice 4", Language: "fr-FR", Local: true},
	}
}

// Backend implements tts.Backend without producing audio.
type Backend struct {
	config Config

	mu            sync.Mutex
	available     bool
	voices        []tts.Voice
	voicesChanged chan struct{}
	utterances    []*Utterance
	current       *Utterance
	calls         []string
	speakErr      error
	failNext      int
	gate          chan struct{} // non-nil while paused
}

// New creates a manual-mode backend.
func New() *Backend {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a backend with the given configuration.
func NewWithConfig(config Config) *Backend {
	if config.WordsPerMinute <= 0 {
		config.WordsPerMinute = tts.BaseWordsPerMinute
	}

	return &Backend{
		config:        config,
		available:     true,
		voices:        DefaultVoices(),
		voicesChanged: make(chan struct{}, 1),
	}
}

// Supported reports the configured availability.
func (b *Backend) Supported() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.available
}

// Speak records the utterance. In auto mode it is spoken right away.
func (b *Backend) Speak(req tts.Request, handler func(tts.BackendEvent)) error {
	b.mu.Lock()
	b.calls = append(b.calls, "speak")
	if b.speakErr != nil {
		err := b.speakErr
		b.mu.Unlock()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	u := &Utterance{
		Request: req,
		backend: b,
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
	}
	b.utterances = append(b.utterances, u)
	b.current = u
	b.gate = nil

	fail := false
	if b.failNext > 0 {
		b.failNext--
		fail = true
	} else if b.config.FailureRate > 0 && rand.Float64() < b.config.FailureRate {
		fail = true
	}
	auto := b.config.Auto
	b.mu.Unlock()

	if auto {
		go b.run(u, fail)
	}
	return nil
}

// Voices returns the configured voices.
func (b *Backend) Voices() []tts.Voice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]tts.Voice(nil), b.voices...)
}

// Cancel drops the current utterance.
func (b *Backend) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, "cancel")
	if b.current != nil {
		b.current.cancel()
		b.current = nil
	}
	if b.gate != nil {
		close(b.gate)
		b.gate = nil
	}
}

// Pause suspends the auto-mode pacer.
func (b *Backend) Pause() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, "pause")
	if b.gate == nil {
		b.gate = make(chan struct{})
	}
}

// Resume continues the auto-mode pacer.
func (b *Backend) Resume() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, "resume")
	if b.gate != nil {
		close(b.gate)
		b.gate = nil
	}
}

// VoicesChanged fires after SetVoices.
func (b *Backend) VoicesChanged() <-chan struct{} {
	return b.voicesChanged
}

// Test control methods

// SetAvailable sets what Supported reports.
func (b *Backend) SetAvailable(available bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.available = available
}

// SetVoices replaces the voice list and signals VoicesChanged.
func (b *Backend) SetVoices(voices []tts.Voice) {
	b.mu.Lock()
	b.voices = append([]tts.Voice(nil), voices...)
	b.mu.Unlock()

	select {
	case b.voicesChanged <- struct{}{}:
	default:
	}
}

// SetSpeakError makes Speak fail synchronously with err until cleared with nil.
func (b *Backend) SetSpeakError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.speakErr = err
}

// FailNext makes the next n auto-mode utterances report synthesis-failed.
func (b *Backend) FailNext(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failNext = n
}

// Utterances returns every utterance handed to Speak, in order.
func (b *Backend) Utterances() []*Utterance {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Utterance(nil), b.utterances...)
}

// Last returns the most recent utterance, or nil.
func (b *Backend) Last() *Utterance {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.utterances) == 0 {
		return nil
	}
	return b.utterances[len(b.utterances)-1]
}

// Calls returns the backend methods called so far, in order.
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// CallCount returns how often the named method was called.
func (b *Backend) CallCount(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, c := range b.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (b *Backend) run(u *Utterance, fail bool) {
	if fail {
		u.Fail(tts.ReasonSynthesisFailed)
		return
	}

	u.Start()

	speed := u.Request.Rate
	if speed <= 0 {
		speed = 1
	}
	wordsPerSecond := b.config.WordsPerMinute * speed / 60
	limiter := rate.NewLimiter(rate.Limit(wordsPerSecond), 1)

	for _, w := range tts.EstimateWordTimings(u.Request.Text, 0) {
		if err := b.wait(u, limiter); err != nil {
			u.Fail(tts.ReasonCanceled)
			return
		}
		u.Word(w.CharIndex, w.Length)
	}

	if err := b.wait(u, limiter); err != nil {
		u.Fail(tts.ReasonCanceled)
		return
	}
	u.End()
}

// wait blocks while paused, then for the pacer.
func (b *Backend) wait(u *Utterance, limiter *rate.Limiter) error {
	for {
		b.mu.Lock()
		gate := b.gate
		b.mu.Unlock()

		if gate == nil {
			break
		}
		select {
		case <-gate:
		case <-u.ctx.Done():
			return u.ctx.Err()
		}
	}

	return limiter.Wait(u.ctx)
}

// Utterance is one Speak call. Its methods emit events to the handler the
// caller passed to Speak.
type Utterance struct {
	Request tts.Request

	backend *Backend
	handler func(tts.BackendEvent)
	ctx     context.Context
	cancel  context.CancelFunc
}

// Text returns the utterance text.
func (u *Utterance) Text() string {
	return u.Request.Text
}

// Cancelled reports whether Cancel was called while this utterance was current.
func (u *Utterance) Cancelled() bool {
	return u.ctx.Err() != nil
}

// Start emits a start event.
func (u *Utterance) Start() {
	u.handler(tts.BackendEvent{Type: tts.EventStart})
}

// Word emits a word boundary.
func (u *Utterance) Word(charIndex, length int) {
	u.handler(tts.BackendEvent{Type: tts.EventBoundary, Boundary: tts.BoundaryWord, CharIndex: charIndex, Length: length})
}

// Sentence emits a sentence boundary.
func (u *Utterance) Sentence(charIndex, length int) {
	u.handler(tts.BackendEvent{Type: tts.EventBoundary, Boundary: tts.BoundarySentence, CharIndex: charIndex, Length: length})
}

// End emits an end event.
func (u *Utterance) End() {
	u.handler(tts.BackendEvent{Type: tts.EventEnd})
}

// Fail emits an error event with the given platform reason.
func (u *Utterance) Fail(reason string) {
	u.handler(tts.BackendEvent{Type: tts.EventError, Reason: reason, Err: errors.New("mock: " + reason)})
}

// SpeakAll starts the utterance and emits a boundary for every word, then
// an end event.
func (u *Utterance) SpeakAll() {
	u.Start()
	for _, w := range tts.EstimateWordTimings(u.Request.Text, time.Second) {
		u.Word(w.CharIndex, w.Length)
	}
	u.End()
}
