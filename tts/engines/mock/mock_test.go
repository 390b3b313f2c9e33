package mock

import (
	"errors"
	"testing"
	"time"

	"github.com/dgnsrekt/readalong/tts"
)

type recorder struct {
	events chan tts.BackendEvent
}

func newRecorder() *recorder {
	return &recorder{events: make(chan tts.BackendEvent, 256)}
}

func (r *recorder) handle(ev tts.BackendEvent) {
	r.events <- ev
}

func (r *recorder) next(t *testing.T) tts.BackendEvent {
	t.Helper()
	select {
	case ev := <-r.events:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return tts.BackendEvent{}
	}
}

// TestNew tests mock backend creation.
func TestNew(t *testing.T) {
	b := New()

	if !b.Supported() {
		t.Error("mock backend should be supported by default")
	}
	if got := len(b.Voices()); got != len(DefaultVoices()) {
		t.Errorf("expected %d voices, got %d", len(DefaultVoices()), got)
	}

	b.SetAvailable(false)
	if b.Supported() {
		t.Error("expected SetAvailable(false) to disable the backend")
	}
}

// TestManualUtterance tests driving an utterance by hand.
func TestManualUtterance(t *testing.T) {
	b := New()
	rec := newRecorder()

	if err := b.Speak(tts.Request{Text: "Hello world."}, rec.handle); err != nil {
		t.Fatalf("Speak failed: %v", err)
	}

	u := b.Last()
	if u == nil || u.Text() != "Hello world." {
		t.Fatalf("unexpected utterance %+v", u)
	}

	u.Start()
	u.Word(6, 5)
	u.End()

	if ev := rec.next(t); ev.Type != tts.EventStart {
		t.Errorf("expected start, got %v", ev.Type)
	}
	if ev := rec.next(t); ev.Type != tts.EventBoundary || ev.CharIndex != 6 || ev.Length != 5 {
		t.Errorf("unexpected boundary %+v", ev)
	}
	if ev := rec.next(t); ev.Type != tts.EventEnd {
		t.Errorf("expected end, got %v", ev.Type)
	}
}

// TestSpeakError tests synchronous failure injection.
func TestSpeakError(t *testing.T) {
	b := New()
	testError := errors.New("test error")
	b.SetSpeakError(testError)

	if err := b.Speak(tts.Request{Text: "x"}, func(tts.BackendEvent) {}); !errors.Is(err, testError) {
		t.Errorf("expected injected error, got %v", err)
	}

	b.SetSpeakError(nil)
	if err := b.Speak(tts.Request{Text: "x"}, func(tts.BackendEvent) {}); err != nil {
		t.Errorf("unexpected error after clearing failure: %v", err)
	}
}

// TestAutoMode tests the paced automatic mode.
func TestAutoMode(t *testing.T) {
	b := NewWithConfig(Config{Auto: true, WordsPerMinute: 6000})
	rec := newRecorder()

	if err := b.Speak(tts.Request{Text: "one two three", Rate: 1}, rec.handle); err != nil {
		t.Fatalf("Speak failed: %v", err)
	}

	want := []tts.EventType{tts.EventStart, tts.EventBoundary, tts.EventBoundary, tts.EventBoundary, tts.EventEnd}
	for i, typ := range want {
		if ev := rec.next(t); ev.Type != typ {
			t.Fatalf("event %d = %v, want %v", i, ev.Type, typ)
		}
	}
}

// TestAutoModeFailure tests FailNext.
func TestAutoModeFailure(t *testing.T) {
	b := NewWithConfig(Config{Auto: true, WordsPerMinute: 6000})
	b.FailNext(1)
	rec := newRecorder()

	b.Speak(tts.Request{Text: "fails"}, rec.handle)
	ev := rec.next(t)
	if ev.Type != tts.EventError || ev.Reason != tts.ReasonSynthesisFailed {
		t.Fatalf("expected synthesis failure, got %+v", ev)
	}

	b.Speak(tts.Request{Text: "works"}, rec.handle)
	if ev := rec.next(t); ev.Type != tts.EventStart {
		t.Fatalf("expected second utterance to start, got %+v", ev)
	}
}

// TestAutoModeCancel tests that cancelling reports a canceled error.
func TestAutoModeCancel(t *testing.T) {
	b := NewWithConfig(Config{Auto: true, WordsPerMinute: 1})
	rec := newRecorder()

	b.Speak(tts.Request{Text: "a long sentence that will not finish"}, rec.handle)
	if ev := rec.next(t); ev.Type != tts.EventStart {
		t.Fatalf("expected start, got %+v", ev)
	}

	b.Cancel()

	for {
		ev := rec.next(t)
		if ev.Type == tts.EventBoundary {
			continue
		}
		if ev.Type != tts.EventError || ev.Reason != tts.ReasonCanceled {
			t.Fatalf("expected canceled error, got %+v", ev)
		}
		break
	}

	if !b.Utterances()[0].Cancelled() {
		t.Error("expected utterance to be marked cancelled")
	}
}

// TestCalls tests call recording.
func TestCalls(t *testing.T) {
	b := New()
	b.Speak(tts.Request{Text: "x"}, func(tts.BackendEvent) {})
	b.Pause()
	b.Resume()
	b.Cancel()

	want := []string{"speak", "pause", "resume", "cancel"}
	got := b.Calls()
	if len(got) != len(want) {
		t.Fatalf("Calls() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, got[i], want[i])
		}
	}
	if b.CallCount("pause") != 1 {
		t.Errorf("CallCount(pause) = %d", b.CallCount("pause"))
	}
}

// TestSetVoicesSignals tests the voices-changed signal.
func TestSetVoicesSignals(t *testing.T) {
	b := New()
	b.SetVoices([]tts.Voice{{ID: "only", Language: "de-DE"}})

	select {
	case <-b.VoicesChanged():
	case <-time.After(time.Second):
		t.Fatal("expected voices-changed signal")
	}

	if v := b.Voices(); len(v) != 1 || v[0].ID != "only" {
		t.Errorf("Voices() = %+v", v)
	}
}
