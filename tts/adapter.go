package tts

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// FailureKind classifies an utterance failure.
type FailureKind int

const (
	// FailureNone is set on every event that is not a failure.
	FailureNone FailureKind = iota
	// FailureInterrupted means another speech request pre-empted ours.
	FailureInterrupted
	// FailureCanceled means we cancelled the utterance ourselves.
	FailureCanceled
	// FailureSynthesis is any other platform failure.
	FailureSynthesis
)

// String returns the string representation of the failure kind.
func (f FailureKind) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureInterrupted:
		return "interrupted"
	case FailureCanceled:
		return "canceled"
	case FailureSynthesis:
		return "synthesis-failed"
	default:
		return "unknown"
	}
}

// ClassifyFailure maps a platform error reason onto a FailureKind.
func ClassifyFailure(reason string) FailureKind {
	switch reason {
	case ReasonInterrupted:
		return FailureInterrupted
	case ReasonCanceled:
		return FailureCanceled
	default:
		return FailureSynthesis
	}
}

// Tag identifies the session, segment and attempt an utterance belongs to.
type Tag struct {
	Generation uint64
	Segment    int
	Attempt    int
}

// Event is a backend event translated for the controller.
type Event struct {
	Tag
	Type      EventType
	Boundary  BoundaryKind
	CharIndex int // Byte offset within the segment text
	Length    int
	Failure   FailureKind
	Err       error
}

type utterance struct {
	tag       Tag
	cancelled bool
	done      bool
}

// Adapter wraps a Backend. It tags every utterance, keeps shadow state for
// the current one and delivers the backend's events in order on a single
// channel.
type Adapter struct {
	backend Backend

	mu     sync.Mutex
	active *utterance
	paused bool

	events *mailbox[Event]
}

// NewAdapter creates an adapter around backend.
func NewAdapter(backend Backend) *Adapter {
	return &Adapter{
		backend: backend,
		events:  newMailbox[Event](false),
	}
}

// Supported reports whether the backend is present.
func (a *Adapter) Supported() bool {
	return a.backend != nil && a.backend.Supported()
}

// Events returns the channel of translated events. It is closed by Close.
func (a *Adapter) Events() <-chan Event {
	return a.events.receive()
}

// Enqueue hands one segment to the backend. The utterance becomes the
// current one; events for it carry tag.
func (a *Adapter) Enqueue(tag Tag, text string, voice *Voice, settings Settings) error {
	if !a.Supported() {
		return NewTTSError(KindBackendUnavailable, ErrBackendUnavailable, "adapter", "enqueue")
	}

	u := &utterance{tag: tag}

	a.mu.Lock()
	a.active = u
	a.paused = false
	a.mu.Unlock()

	req := Request{
		Text:   text,
		Voice:  voice,
		Rate:   settings.Rate,
		Pitch:  settings.Pitch,
		Volume: settings.Volume,
	}

	log.Debug("Enqueueing utterance", "generation", tag.Generation, "segment", tag.Segment, "attempt", tag.Attempt)

	if err := a.backend.Speak(req, func(ev BackendEvent) { a.dispatch(u, ev) }); err != nil {
		a.mu.Lock()
		u.done = true
		if a.active == u {
			a.active = nil
		}
		a.mu.Unlock()
		return NewTTSError(KindSynthesisFailure, fmt.Errorf("speak segment %d: %w", tag.Segment, err), "adapter", "enqueue")
	}

	return nil
}

// CancelAll cancels the current utterance. It is a no-op when nothing is
// being spoken.
func (a *Adapter) CancelAll() {
	a.mu.Lock()
	u := a.active
	if u == nil {
		a.mu.Unlock()
		return
	}
	u.cancelled = true
	a.active = nil
	a.paused = false
	a.mu.Unlock()

	a.backend.Cancel()
}

// PauseCurrent pauses the current utterance. It is a no-op when nothing is
// being spoken or it is already paused.
func (a *Adapter) PauseCurrent() {
	a.mu.Lock()
	if a.active == nil || a.paused {
		a.mu.Unlock()
		return
	}
	a.paused = true
	a.mu.Unlock()

	a.backend.Pause()
}

// ResumeCurrent resumes the current utterance. It is a no-op unless paused.
func (a *Adapter) ResumeCurrent() {
	a.mu.Lock()
	if a.active == nil || !a.paused {
		a.mu.Unlock()
		return
	}
	a.paused = false
	a.mu.Unlock()

	a.backend.Resume()
}

// Speaking reports whether an utterance is outstanding.
func (a *Adapter) Speaking() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active != nil
}

// Paused reports whether the current utterance is paused.
func (a *Adapter) Paused() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.paused
}

// Close stops event delivery.
func (a *Adapter) Close() {
	a.events.close()
}

func (a *Adapter) dispatch(u *utterance, ev BackendEvent) {
	a.mu.Lock()
	if u.done {
		a.mu.Unlock()
		return
	}

	out := Event{
		Tag:       u.tag,
		Type:      ev.Type,
		Boundary:  ev.Boundary,
		CharIndex: ev.CharIndex,
		Length:    ev.Length,
	}

	switch ev.Type {
	case EventEnd, EventError:
		u.done = true
		if a.active == u {
			a.active = nil
			a.paused = false
		}
	}

	if ev.Type == EventError {
		if u.cancelled {
			out.Failure = FailureCanceled
		} else {
			out.Failure = ClassifyFailure(ev.Reason)
		}
		out.Err = ev.Err
		if out.Err == nil {
			reason := ev.Reason
			if reason == "" {
				reason = ReasonSynthesisFailed
			}
			out.Err = errors.New(reason)
		}
	}
	a.mu.Unlock()

	a.events.push(out)
}
