package tts

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Messages for Bubble Tea communication between the controller and the UI.

// SessionStartedMsg indicates a session began speaking.
type SessionStartedMsg struct{}

// PlayStartedMsg is returned by PlayCmd once Play accepted the text.
type PlayStartedMsg struct {
	Handle SessionHandle
}

// SegmentAdvanceMsg indicates the controller moved to another segment.
type SegmentAdvanceMsg struct {
	Index int // Current segment index
	Total int // Total number of segments
}

// WordHighlightMsg carries the source span of the word being spoken.
type WordHighlightMsg struct {
	Start int
	End   int
}

// SentenceHighlightMsg carries the source span of the sentence being spoken.
type SentenceHighlightMsg struct {
	Start int
	End   int
}

// SessionEndedMsg indicates the session ended.
type SessionEndedMsg struct {
	Reason EndReason
}

// TTSStateChangedMsg indicates the controller state has changed.
type TTSStateChangedMsg struct {
	State     StateType
	Timestamp time.Time // When the state change occurred
}

// TTSErrorMsg indicates an error occurred in the read-along engine.
type TTSErrorMsg struct {
	Kind        ErrorKind
	Message     string
	Err         error
	Recoverable bool
}

// VoicesLoadedMsg is returned by LoadVoicesCmd.
type VoicesLoadedMsg struct {
	Voices []Voice
	Err    error
}

// ProgramCallbacks forwards controller callbacks to send, typically
// (*tea.Program).Send.
func ProgramCallbacks(send func(tea.Msg)) Callbacks {
	return Callbacks{
		OnSessionStart: func() {
			send(SessionStartedMsg{})
		},
		OnSegmentAdvance: func(index, total int) {
			send(SegmentAdvanceMsg{Index: index, Total: total})
		},
		OnWordHighlight: func(start, end int) {
			send(WordHighlightMsg{Start: start, End: end})
		},
		OnSentenceHighlight: func(start, end int) {
			send(SentenceHighlightMsg{Start: start, End: end})
		},
		OnSessionEnd: func(reason EndReason) {
			send(SessionEndedMsg{Reason: reason})
		},
		OnError: func(kind ErrorKind, message string) {
			send(TTSErrorMsg{
				Kind:        kind,
				Message:     message,
				Recoverable: kind != KindConfiguration && kind != KindBackendUnavailable,
			})
		},
	}
}

// StateChangeFunc returns an OnStateChange callback that forwards to send.
func StateChangeFunc(send func(tea.Msg)) func(StateType) {
	return func(s StateType) {
		send(TTSStateChangedMsg{State: s, Timestamp: time.Now()})
	}
}

// Commands for async controller operations.

// PlayCmd creates a command that starts reading text.
func PlayCmd(c *Controller, text string, settings Settings) tea.Cmd {
	return func() tea.Msg {
		handle, err := c.Play(text, settings)
		if err != nil {
			return errorMsg(err)
		}
		return PlayStartedMsg{Handle: handle}
	}
}

// TogglePauseCmd creates a command that pauses or resumes playback.
func TogglePauseCmd(c *Controller) tea.Cmd {
	return func() tea.Msg {
		c.TogglePause()
		return nil
	}
}

// StopCmd creates a command that stops playback.
func StopCmd(c *Controller) tea.Cmd {
	return func() tea.Msg {
		c.Stop()
		return nil
	}
}

// VoiceLoader loads a voice list; voices.Catalog implements it.
type VoiceLoader interface {
	Load(ctx context.Context) ([]Voice, error)
}

// LoadVoicesCmd creates a command that loads the voice list.
func LoadVoicesCmd(ctx context.Context, loader VoiceLoader) tea.Cmd {
	return func() tea.Msg {
		voices, err := loader.Load(ctx)
		return VoicesLoadedMsg{Voices: voices, Err: err}
	}
}

func errorMsg(err error) TTSErrorMsg {
	kind := KindOf(err)
	return TTSErrorMsg{
		Kind:        kind,
		Message:     err.Error(),
		Err:         err,
		Recoverable: IsRecoverableError(err),
	}
}
