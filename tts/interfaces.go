// Package tts provides the read-along playback engine: a speech backend
// adapter, a playback state machine and the glue that turns backend
// audio-position events into source-text highlights.
package tts

// Backend is the platform speech primitive the engine drives. Implementations
// live under tts/engines.
type Backend interface {
	// Supported reports whether the platform primitive is present at all.
	Supported() bool

	// Speak queues one utterance. The handler receives the utterance's
	// events from any goroutine and must not block.
	Speak(req Request, handler func(BackendEvent)) error

	// Voices returns the voices currently known to the platform. The list
	// may be empty until the platform signals VoicesChanged.
	Voices() []Voice

	// Cancel drops the current utterance and anything queued behind it.
	Cancel()

	// Pause suspends the current utterance.
	Pause()

	// Resume continues a paused utterance.
	Resume()

	// VoicesChanged fires whenever the voice list was (re)populated. A nil
	// channel means the list never changes.
	VoicesChanged() <-chan struct{}
}

// VoiceSelector resolves voices for a session. voices.Catalog implements it.
type VoiceSelector interface {
	// ByID returns the voice with the given identifier, or nil.
	ByID(id string) *Voice

	// SelectDefault returns the best voice for a language tag, or nil to
	// let the backend pick.
	SelectDefault(languageTag string) *Voice

	// Fallback returns the voice to retry with after current failed.
	Fallback(current *Voice, languageTag string) *Voice
}

// Request is a single utterance handed to a Backend.
type Request struct {
	Text   string
	Voice  *Voice // nil lets the backend pick
	Rate   float64
	Pitch  float64
	Volume float64
}

// Voice describes an installed speech voice.
type Voice struct {
	ID       string // Voice identifier
	Name     string // Human-readable name
	Language string // Language tag (e.g., "en-US")
	Local    bool   // Synthesized on this machine
	Default  bool   // The platform's own default voice
}

// EventType discriminates backend and adapter events.
type EventType int

const (
	// EventStart is reported when audio for an utterance begins.
	EventStart EventType = iota
	// EventBoundary is reported at word and sentence boundaries.
	EventBoundary
	// EventEnd is reported when an utterance finished playing.
	EventEnd
	// EventError is reported when an utterance failed.
	EventError
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventStart:
		return "start"
	case EventBoundary:
		return "boundary"
	case EventEnd:
		return "end"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// BoundaryKind tells word boundaries from sentence boundaries.
type BoundaryKind int

const (
	// BoundaryWord marks the start of a spoken word.
	BoundaryWord BoundaryKind = iota
	// BoundarySentence marks the start of a spoken sentence.
	BoundarySentence
)

// String returns the string representation of the boundary kind.
func (k BoundaryKind) String() string {
	if k == BoundarySentence {
		return "sentence"
	}
	return "word"
}

// Platform error reasons a Backend reports in BackendEvent.Reason.
const (
	ReasonInterrupted     = "interrupted"
	ReasonCanceled        = "canceled"
	ReasonSynthesisFailed = "synthesis-failed"
)

// BackendEvent is what a Backend reports for one utterance.
type BackendEvent struct {
	Type      EventType
	Boundary  BoundaryKind
	CharIndex int    // Byte offset within the utterance text
	Length    int    // Byte length of the token, 0 if unknown
	Reason    string // Platform error code for EventError
	Err       error  // Underlying error for EventError, if any
}
