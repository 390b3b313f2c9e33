package tts

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/rs/xid"

	"github.com/dgnsrekt/readalong/tts/sentence"
	ttssync "github.com/dgnsrekt/readalong/tts/sync"
)

// EndReason tells how a session ended.
type EndReason int

const (
	// EndCompleted means every segment was spoken.
	EndCompleted EndReason = iota
	// EndStopped means the session was stopped or pre-empted.
	EndStopped
	// EndError means the session halted on an unrecoverable failure.
	EndError
)

// String returns the string representation of the end reason.
func (r EndReason) String() string {
	switch r {
	case EndCompleted:
		return "completed"
	case EndStopped:
		return "stopped"
	case EndError:
		return "error"
	default:
		return "unknown"
	}
}

// Callbacks receive session progress. They run on a dedicated goroutine in
// the order the events happened and may call back into the controller.
// Any of them may be nil.
type Callbacks struct {
	OnSessionStart      func()
	OnSegmentAdvance    func(index, total int)
	OnWordHighlight     func(start, end int)
	OnSentenceHighlight func(start, end int)
	OnSessionEnd        func(reason EndReason)
	OnError             func(kind ErrorKind, message string)
}

// ControllerConfig holds configuration for the controller.
type ControllerConfig struct {
	MaxChunkChars int // Segment limit in characters
}

// DefaultControllerConfig returns a sensible default configuration.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		MaxChunkChars: sentence.DefaultMaxChunkChars,
	}
}

// SessionHandle identifies the session started by Play.
type SessionHandle struct {
	ID       string
	Segments []sentence.Segment
	Voice    *Voice
}

// session is the one live read-aloud request.
type session struct {
	id         string
	generation uint64
	source     string
	segments   []sentence.Segment
	current    int
	attempt    int
	retried    bool
	settings   Settings
	voice      *Voice

	// ended arrived while paused; Resume advances instead of resuming
	pendingAdvance bool
	// a failure arrived while paused; Resume speaks the retry
	pendingRetry bool
}

// Controller sequences the segments of a session through the backend and
// turns backend events into caller callbacks.
type Controller struct {
	adapter *Adapter
	voices  VoiceSelector
	syncer  *ttssync.Synchronizer

	mu         sync.Mutex
	machine    *StateMachine
	session    *session
	generation uint64
	lastError  error
	config     ControllerConfig
	callbacks  Callbacks
	closed     bool

	onStateChange func(StateType)

	notify *mailbox[func()]
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewController creates a controller for backend. voices may be nil, in
// which case the backend always picks the voice.
func NewController(backend Backend, voices VoiceSelector) *Controller {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Controller{
		adapter: NewAdapter(backend),
		voices:  voices,
		syncer:  ttssync.NewSynchronizer(),
		machine: NewStateMachine(),
		config:  DefaultControllerConfig(),
		notify:  newMailbox[func()](true),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	c.machine.OnTransition(c.handleTransition)

	go c.eventLoop()
	go c.dispatchLoop()

	return c
}

// SetConfiguration updates the controller configuration. It applies to the
// next session.
func (c *Controller) SetConfiguration(config ControllerConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config = config
}

// SetCallbacks replaces the session callbacks.
func (c *Controller) SetCallbacks(cb Callbacks) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = cb
}

// OnStateChange registers a callback for state changes.
func (c *Controller) OnStateChange(fn func(StateType)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStateChange = fn
}

// Supported reports whether the backend is present.
func (c *Controller) Supported() bool {
	return c.adapter.Supported()
}

// Play starts reading text aloud. An active session is stopped first.
// Empty text and a missing backend are rejected without a state change.
func (c *Controller) Play(text string, settings Settings) (SessionHandle, error) {
	if strings.TrimSpace(text) == "" {
		return SessionHandle{}, NewTTSError(KindConfiguration, ErrEmptyText, "controller", "play")
	}
	if !c.adapter.Supported() {
		return SessionHandle{}, NewTTSError(KindBackendUnavailable, ErrBackendUnavailable, "controller", "play")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return SessionHandle{}, ErrControllerClosed
	}

	if c.session != nil && c.machine.Current().IsActive() {
		c.stopLocked()
	}

	settings = settings.Clamped()
	c.generation++

	s := &session{
		id:         xid.New().String(),
		generation: c.generation,
		source:     text,
		segments:   sentence.Split(text, c.config.MaxChunkChars),
		settings:   settings,
		voice:      c.resolveVoice(settings),
	}
	c.session = s
	c.lastError = nil

	c.syncer.Begin(text, s.segments)

	log.Debug("Starting session", "id", s.id, "segments", len(s.segments), "voice", voiceID(s.voice))

	c.machine.Transition(StateSpeaking)

	cb := c.callbacks
	if cb.OnSessionStart != nil {
		c.emit(cb.OnSessionStart)
	}
	c.emitSegmentAdvance(s)
	c.enqueueCurrent(s)

	return SessionHandle{ID: s.id, Segments: s.segments, Voice: s.voice}, nil
}

// Pause pauses a speaking session. It is a no-op in any other state.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.machine.Current() != StateSpeaking {
		return
	}

	c.adapter.PauseCurrent()
	c.machine.Transition(StatePaused)
}

// Resume resumes a paused session. It is a no-op in any other state.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.machine.Current() != StatePaused {
		return
	}

	c.machine.Transition(StateSpeaking)

	s := c.session
	switch {
	case s != nil && s.pendingAdvance:
		s.pendingAdvance = false
		c.advance(s)
	case s != nil && s.pendingRetry:
		s.pendingRetry = false
		c.enqueueCurrent(s)
	default:
		c.adapter.ResumeCurrent()
	}
}

// TogglePause pauses a speaking session or resumes a paused one.
func (c *Controller) TogglePause() {
	if c.State().CurrentState == StatePaused {
		c.Resume()
		return
	}
	c.Pause()
}

// Stop ends an active session. It is a no-op when nothing is active.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.machine.Current().IsActive() {
		return
	}
	c.stopLocked()
}

// State returns a snapshot of the controller.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{
		CurrentState: c.machine.Current(),
		LastError:    c.lastError,
	}
	if s := c.session; s != nil {
		st.SessionID = s.id
		st.Segment = s.current
		st.TotalSegments = len(s.segments)
		st.Voice = s.voice
	}
	return st
}

// Highlights returns the active word and sentence spans.
func (c *Controller) Highlights() (word ttssync.Span, hasWord bool, sent ttssync.Span, hasSentence bool) {
	return c.syncer.Highlights()
}

// Close stops any session and releases the controller's goroutines.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	if c.machine.Current().IsActive() {
		c.stopLocked()
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.adapter.Close()
	<-c.done
	c.notify.close()

	return nil
}

func (c *Controller) resolveVoice(settings Settings) *Voice {
	if c.voices == nil {
		return nil
	}
	if settings.VoiceID != "" {
		if v := c.voices.ByID(settings.VoiceID); v != nil {
			return v
		}
		log.Warn("Voice not found, selecting by language", "voice", settings.VoiceID, "language", settings.LanguageTag)
	}
	return c.voices.SelectDefault(settings.LanguageTag)
}

// stopLocked cancels the live session and reports it stopped.
func (c *Controller) stopLocked() {
	c.generation++
	c.adapter.CancelAll()
	c.syncer.Reset()

	if s := c.session; s != nil {
		log.Debug("Stopping session", "id", s.id, "segment", s.current)
	}

	c.machine.Transition(StateIdle)
	c.emitEnd(EndStopped)
}

func (c *Controller) enqueueCurrent(s *session) {
	seg := s.segments[s.current]
	tag := Tag{Generation: s.generation, Segment: s.current, Attempt: s.attempt}

	if err := c.adapter.Enqueue(tag, seg.Text, s.voice, s.settings); err != nil {
		log.Error("Failed to enqueue segment", "segment", s.current, "err", err)
		c.handleSynthesisFailure(s, err)
	}
}

func (c *Controller) advance(s *session) {
	next := s.current + 1
	if next >= len(s.segments) {
		log.Debug("Session completed", "id", s.id)
		c.machine.Transition(StateCompleted)
		c.emitEnd(EndCompleted)
		return
	}

	s.current = next
	s.retried = false
	c.emitSegmentAdvance(s)
	c.enqueueCurrent(s)
}

// handleSynthesisFailure retries a failed segment once with the fallback
// voice, then halts the session. While paused the retry waits for Resume.
func (c *Controller) handleSynthesisFailure(s *session, err error) {
	if !s.retried {
		s.retried = true
		s.attempt++
		if c.voices != nil {
			s.voice = c.voices.Fallback(s.voice, s.settings.LanguageTag)
		}
		log.Warn("Segment failed, retrying with fallback voice", "segment", s.current, "voice", voiceID(s.voice), "err", err)
		if c.machine.Current() == StatePaused {
			s.pendingRetry = true
			return
		}
		c.enqueueCurrent(s)
		return
	}

	c.lastError = err
	c.machine.Transition(StateError)

	if fn := c.callbacks.OnError; fn != nil {
		msg := err.Error()
		c.emit(func() { fn(KindSynthesisFailure, msg) })
	}
	c.emitEnd(EndError)
}

func (c *Controller) eventLoop() {
	defer close(c.done)

	for {
		select {
		case <-c.ctx.Done():
			return
		case ev, ok := <-c.adapter.Events():
			if !ok {
				return
			}
			c.handleEvent(ev)
		}
	}
}

func (c *Controller) handleEvent(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil || ev.Generation != c.generation || ev.Segment != s.current || ev.Attempt != s.attempt || !c.machine.Current().IsActive() {
		log.Debug("Dropping stale event", "type", ev.Type, "generation", ev.Generation, "segment", ev.Segment)
		return
	}

	switch ev.Type {
	case EventStart:
		if span, ok := c.syncer.OnSegmentStart(s.current); ok {
			c.emitSpan(span)
		}

	case EventBoundary:
		kind := ttssync.KindWord
		if ev.Boundary == BoundarySentence {
			kind = ttssync.KindSentence
		}
		for _, span := range c.syncer.OnBoundary(s.current, kind, ev.CharIndex) {
			c.emitSpan(span)
		}

	case EventEnd:
		if c.machine.Current() == StatePaused {
			s.pendingAdvance = true
			return
		}
		c.advance(s)

	case EventError:
		switch ev.Failure {
		case FailureInterrupted, FailureCanceled:
			log.Debug("Session interrupted", "id", s.id, "failure", ev.Failure)
			c.generation++
			c.syncer.Reset()
			c.machine.Transition(StateStopped)
			c.emitEnd(EndStopped)
		default:
			c.handleSynthesisFailure(s, NewTTSError(KindSynthesisFailure, ev.Err, "backend", "speak").
				WithContext("segment", s.current))
		}
	}
}

func (c *Controller) handleTransition(from, to StateType) {
	log.Debug("State transition", "from", from, "to", to)
	if fn := c.onStateChange; fn != nil {
		c.emit(func() { fn(to) })
	}
}

// emit queues fn for the dispatcher. Callers hold c.mu.
func (c *Controller) emit(fn func()) {
	c.notify.push(fn)
}

func (c *Controller) emitSegmentAdvance(s *session) {
	if fn := c.callbacks.OnSegmentAdvance; fn != nil {
		index, total := s.current, len(s.segments)
		c.emit(func() { fn(index, total) })
	}
}

func (c *Controller) emitSpan(span ttssync.Span) {
	fn := c.callbacks.OnWordHighlight
	if span.Kind == ttssync.KindSentence {
		fn = c.callbacks.OnSentenceHighlight
	}
	if fn != nil {
		c.emit(func() { fn(span.Start, span.End) })
	}
}

func (c *Controller) emitEnd(reason EndReason) {
	if fn := c.callbacks.OnSessionEnd; fn != nil {
		c.emit(func() { fn(reason) })
	}
}

func (c *Controller) dispatchLoop() {
	for fn := range c.notify.receive() {
		fn()
	}
}

func voiceID(v *Voice) string {
	if v == nil {
		return "backend default"
	}
	return v.ID
}

// String implements fmt.Stringer for debugging.
func (h SessionHandle) String() string {
	return fmt.Sprintf("session %s (%d segments, voice %s)", h.ID, len(h.Segments), voiceID(h.Voice))
}
