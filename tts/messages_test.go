package tts_test

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dgnsrekt/readalong/tts"
	"github.com/dgnsrekt/readalong/tts/engines/mock"
	"github.com/dgnsrekt/readalong/tts/voices"
)

func TestProgramCallbacks(t *testing.T) {
	var got []tea.Msg
	cb := tts.ProgramCallbacks(func(msg tea.Msg) { got = append(got, msg) })

	cb.OnSessionStart()
	cb.OnSegmentAdvance(1, 3)
	cb.OnWordHighlight(4, 9)
	cb.OnSentenceHighlight(0, 12)
	cb.OnError(tts.KindSynthesisFailure, "boom")
	cb.OnSessionEnd(tts.EndError)

	want := []tea.Msg{
		tts.SessionStartedMsg{},
		tts.SegmentAdvanceMsg{Index: 1, Total: 3},
		tts.WordHighlightMsg{Start: 4, End: 9},
		tts.SentenceHighlightMsg{Start: 0, End: 12},
		tts.TTSErrorMsg{Kind: tts.KindSynthesisFailure, Message: "boom", Recoverable: true},
		tts.SessionEndedMsg{Reason: tts.EndError},
	}

	if len(got) != len(want) {
		t.Fatalf("got %d messages, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d = %#v, want %#v", i, got[i], want[i])
		}
	}
}

func TestProgramCallbacksUnrecoverable(t *testing.T) {
	var got tea.Msg
	cb := tts.ProgramCallbacks(func(msg tea.Msg) { got = msg })

	cb.OnError(tts.KindBackendUnavailable, "no speech")

	msg, ok := got.(tts.TTSErrorMsg)
	if !ok {
		t.Fatalf("got %T, want TTSErrorMsg", got)
	}
	if msg.Recoverable {
		t.Error("backend unavailable should not be recoverable")
	}
}

func TestStateChangeFunc(t *testing.T) {
	var got tea.Msg
	fn := tts.StateChangeFunc(func(msg tea.Msg) { got = msg })

	fn(tts.StatePaused)

	msg, ok := got.(tts.TTSStateChangedMsg)
	if !ok {
		t.Fatalf("got %T, want TTSStateChangedMsg", got)
	}
	if msg.State != tts.StatePaused {
		t.Errorf("state = %v, want paused", msg.State)
	}
	if msg.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestPlayCmd(t *testing.T) {
	backend := mock.New()
	catalog := voices.NewCatalog(backend, voices.DefaultConfig())
	controller := tts.NewController(backend, catalog)
	defer controller.Close()

	t.Run("empty text", func(t *testing.T) {
		msg := tts.PlayCmd(controller, "   ", tts.DefaultSettings())()
		errMsg, ok := msg.(tts.TTSErrorMsg)
		if !ok {
			t.Fatalf("got %T, want TTSErrorMsg", msg)
		}
		if errMsg.Kind != tts.KindConfiguration {
			t.Errorf("kind = %v, want %v", errMsg.Kind, tts.KindConfiguration)
		}
	})

	t.Run("started", func(t *testing.T) {
		msg := tts.PlayCmd(controller, "Hello there.", tts.DefaultSettings())()
		started, ok := msg.(tts.PlayStartedMsg)
		if !ok {
			t.Fatalf("got %T, want PlayStartedMsg", msg)
		}
		if len(started.Handle.Segments) != 1 {
			t.Errorf("segments = %d, want 1", len(started.Handle.Segments))
		}
		if msg := tts.StopCmd(controller)(); msg != nil {
			t.Errorf("StopCmd returned %#v", msg)
		}
		if s := controller.State().CurrentState; s != tts.StateIdle {
			t.Errorf("state after stop = %v, want idle", s)
		}
	})
}

type stubLoader struct {
	voices []tts.Voice
	err    error
}

func (s stubLoader) Load(context.Context) ([]tts.Voice, error) {
	return s.voices, s.err
}

func TestLoadVoicesCmd(t *testing.T) {
	loadErr := errors.New("timeout")
	tests := []struct {
		name   string
		loader stubLoader
		count  int
	}{
		{"ok", stubLoader{voices: mock.DefaultVoices()}, 4},
		{"error", stubLoader{err: loadErr}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tts.LoadVoicesCmd(context.Background(), tt.loader)()
			loaded, ok := msg.(tts.VoicesLoadedMsg)
			if !ok {
				t.Fatalf("got %T, want VoicesLoadedMsg", msg)
			}
			if len(loaded.Voices) != tt.count {
				t.Errorf("voices = %d, want %d", len(loaded.Voices), tt.count)
			}
			if !errors.Is(loaded.Err, tt.loader.err) {
				t.Errorf("err = %v, want %v", loaded.Err, tt.loader.err)
			}
		})
	}
}
