package piper

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/readalong/internal/audio"
	"github.com/dgnsrekt/readalong/internal/cache"
	"github.com/dgnsrekt/readalong/tts"
)

const amyConfig = `{
  "audio": {"sample_rate": 16000, "quality": "medium"},
  "language": {"code": "en_US", "name_english": "English"},
  "dataset": "amy",
  "num_speakers": 1
}`

type fakeSynth struct {
	available bool
	pcm       []byte
	err       error
	gate      chan struct{} // when set, Synthesize waits for it

	mu    sync.Mutex
	calls int
}

func (f *fakeSynth) Available() bool { return f.available }

func (f *fakeSynth) Synthesize(ctx context.Context, model Model, text string, rate float64) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.pcm, f.err
}

func (f *fakeSynth) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recorder struct {
	events chan tts.BackendEvent
}

func newRecorder() *recorder {
	return &recorder{events: make(chan tts.BackendEvent, 64)}
}

func (r *recorder) handle(ev tts.BackendEvent) {
	r.events <- ev
}

func (r *recorder) next(t *testing.T) tts.BackendEvent {
	t.Helper()
	select {
	case ev := <-r.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for backend event")
		return tts.BackendEvent{}
	}
}

func writeModels(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		"en_US-amy-medium.onnx":      "model",
		"en_US-amy-medium.onnx.json": amyConfig,
		"de/de_DE-thorsten-low.onnx": "model",
		"README.md":                  "not a model",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newTestBackend(t *testing.T, synth *fakeSynth, opts ...Option) (*Backend, *audio.Fake) {
	t.Helper()

	config := tts.DefaultPiperConfig()
	config.ModelDir = writeModels(t)

	sink := audio.NewFake(audio.Format{SampleRate: 16000, Channels: 1})
	opts = append(opts, WithSynthesizer(synth))
	return New(config, sink, opts...), sink
}

// oneSecond is one second of silence at 16 kHz mono.
var oneSecond = make([]byte, 32000)

func TestScanModels(t *testing.T) {
	models, err := ScanModels(writeModels(t))
	if err != nil {
		t.Fatalf("ScanModels() error = %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("found %d models, want 2", len(models))
	}

	tests := []struct {
		id, name, language string
		sampleRate         int
		hasConfig          bool
	}{
		{"de_DE-thorsten-low", "thorsten (low)", "de-DE", 22050, false},
		{"en_US-amy-medium", "amy (medium)", "en-US", 16000, true},
	}
	for i, tt := range tests {
		m := models[i]
		if m.Voice.ID != tt.id || m.Voice.Name != tt.name || m.Voice.Language != tt.language {
			t.Errorf("model %d voice = %+v", i, m.Voice)
		}
		if m.SampleRate != tt.sampleRate {
			t.Errorf("%s sample rate = %d, want %d", tt.id, m.SampleRate, tt.sampleRate)
		}
		if (m.ConfigPath != "") != tt.hasConfig {
			t.Errorf("%s config path = %q", tt.id, m.ConfigPath)
		}
		if !m.Voice.Local {
			t.Errorf("%s should be local", tt.id)
		}
	}
}

func TestScanModelsMissingDir(t *testing.T) {
	if _, err := ScanModels(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("ScanModels() on a missing directory should fail")
	}
}

func TestParseModelName(t *testing.T) {
	tests := []struct {
		id, lang, name, quality string
	}{
		{"en_US-lessac-medium", "en_US", "lessac", "medium"},
		{"en_GB-southern_english_female-low", "en_GB", "southern_english_female", "low"},
		{"fr_FR-upmc-pierre-x_low", "fr_FR", "upmc-pierre", "x_low"},
		{"de_DE-karlsson", "de_DE", "karlsson", ""},
		{"custom", "", "custom", ""},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			lang, name, quality := parseModelName(tt.id)
			if lang != tt.lang || name != tt.name || quality != tt.quality {
				t.Errorf("parseModelName() = %q, %q, %q", lang, name, quality)
			}
		})
	}
}

func TestBackendVoices(t *testing.T) {
	b, _ := newTestBackend(t, &fakeSynth{available: true})

	voices := b.Voices()
	if len(voices) != 2 {
		t.Fatalf("got %d voices, want 2", len(voices))
	}
	if !voices[0].Default || voices[1].Default {
		t.Error("only the first model should be the default voice")
	}
	if !b.Supported() {
		t.Error("backend with synthesizer and sink should be supported")
	}

	unavailable, _ := newTestBackend(t, &fakeSynth{})
	if unavailable.Supported() {
		t.Error("backend without piper binary should not be supported")
	}
}

func TestSpeakPacesWords(t *testing.T) {
	b, sink := newTestBackend(t, &fakeSynth{available: true, pcm: oneSecond})
	rec := newRecorder()

	amy := &tts.Voice{ID: "en_US-amy-medium"}
	if err := b.Speak(tts.Request{Text: "one two three", Voice: amy, Rate: 1, Volume: 0.5}, rec.handle); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}

	if ev := rec.next(t); ev.Type != tts.EventStart {
		t.Fatalf("first event = %v, want start", ev.Type)
	}
	if ev := rec.next(t); ev.Type != tts.EventBoundary || ev.CharIndex != 0 || ev.Length != 3 {
		t.Fatalf("second event = %+v, want word at 0", ev)
	}

	sink.Advance(time.Second)

	for _, want := range []int{4, 8} {
		ev := rec.next(t)
		if ev.Type != tts.EventBoundary || ev.Boundary != tts.BoundaryWord || ev.CharIndex != want {
			t.Fatalf("event = %+v, want word at %d", ev, want)
		}
	}
	if ev := rec.next(t); ev.Type != tts.EventEnd {
		t.Fatalf("last event = %+v, want end", ev)
	}

	if v := sink.Volume(); v != 0.5 {
		t.Errorf("volume = %v, want 0.5", v)
	}
}

func TestSpeakCancel(t *testing.T) {
	b, _ := newTestBackend(t, &fakeSynth{available: true, pcm: oneSecond})
	rec := newRecorder()

	b.Speak(tts.Request{Text: "one two three", Rate: 1, Volume: 1}, rec.handle)
	rec.next(t) // start
	rec.next(t) // first word

	b.Cancel()

	ev := rec.next(t)
	if ev.Type != tts.EventError || ev.Reason != tts.ReasonCanceled {
		t.Fatalf("event = %+v, want canceled error", ev)
	}
}

func TestSpeakSynthesisFailure(t *testing.T) {
	boom := errors.New("onnx runtime error")
	b, _ := newTestBackend(t, &fakeSynth{available: true, err: boom})
	rec := newRecorder()

	b.Speak(tts.Request{Text: "hello", Rate: 1, Volume: 1}, rec.handle)

	ev := rec.next(t)
	if ev.Type != tts.EventError || ev.Reason != tts.ReasonSynthesisFailed || !errors.Is(ev.Err, boom) {
		t.Fatalf("event = %+v, want synthesis-failed", ev)
	}
}

func TestPauseDuringSynthesis(t *testing.T) {
	synth := &fakeSynth{available: true, pcm: oneSecond, gate: make(chan struct{})}
	b, sink := newTestBackend(t, synth)
	rec := newRecorder()

	b.Speak(tts.Request{Text: "hello there", Rate: 1, Volume: 1}, rec.handle)
	b.Pause()
	close(synth.gate)

	if ev := rec.next(t); ev.Type != tts.EventStart {
		t.Fatalf("event = %v, want start", ev.Type)
	}
	if s := sink.State(); s != audio.StatePaused {
		t.Errorf("sink state = %v, want paused", s)
	}

	b.Resume()
	if s := sink.State(); s != audio.StatePlaying {
		t.Errorf("sink state after resume = %v, want playing", s)
	}
	b.Cancel()
}

func TestSpeakWithoutModels(t *testing.T) {
	config := tts.DefaultPiperConfig()
	config.ModelDir = t.TempDir()
	b := New(config, audio.NewFake(audio.DefaultFormat()), WithSynthesizer(&fakeSynth{available: true}))

	if err := b.Speak(tts.Request{Text: "hi"}, func(tts.BackendEvent) {}); err == nil {
		t.Error("Speak() without models should fail")
	}
}

func TestSpeakUsesCache(t *testing.T) {
	store, err := cache.Open(cache.Config{
		MemoryCapacity: 1 << 20,
		DiskCapacity:   1 << 20,
		Dir:            t.TempDir(),
	})
	if err != nil {
		t.Fatalf("cache.Open() error = %v", err)
	}
	defer store.Close()

	synth := &fakeSynth{available: true, pcm: oneSecond}
	b, sink := newTestBackend(t, synth, WithCache(store))

	for i := 0; i < 2; i++ {
		rec := newRecorder()
		b.Speak(tts.Request{Text: "cached", Rate: 1, Volume: 1}, rec.handle)
		rec.next(t) // start
		sink.Advance(time.Second)
		for ev := rec.next(t); ev.Type != tts.EventEnd; ev = rec.next(t) {
		}
	}

	if n := synth.callCount(); n != 1 {
		t.Errorf("synthesizer called %d times, want 1", n)
	}
	if n := len(sink.Plays()); n != 2 {
		t.Errorf("played %d times, want 2", n)
	}
}

func TestWatchReloadsModels(t *testing.T) {
	b, _ := newTestBackend(t, &fakeSynth{available: true})
	<-b.VoicesChanged() // initial scan

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- b.Watch(ctx) }()

	// Give the watcher time to register before the write.
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(b.config.ModelDir, "en_GB-alan-low.onnx"), []byte("model"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-b.VoicesChanged():
	case <-time.After(3 * time.Second):
		t.Fatal("VoicesChanged did not fire after adding a model")
	}
	if n := len(b.Voices()); n != 3 {
		t.Errorf("got %d voices after reload, want 3", n)
	}

	cancel()
	if err := <-errc; err != nil {
		t.Errorf("Watch() error = %v", err)
	}
}

func TestResample(t *testing.T) {
	pcm := make([]byte, 4)
	binary.LittleEndian.PutUint16(pcm[0:], 0)
	binary.LittleEndian.PutUint16(pcm[2:], 100)

	out := resample(pcm, 8000, 16000)
	want := []int16{0, 50, 100, 100}
	if len(out) != len(want)*2 {
		t.Fatalf("resampled to %d bytes, want %d", len(out), len(want)*2)
	}
	for i, w := range want {
		if got := int16(binary.LittleEndian.Uint16(out[i*2:])); got != w {
			t.Errorf("sample %d = %d, want %d", i, got, w)
		}
	}

	if same := resample(pcm, 22050, 22050); !bytes.Equal(same, pcm) {
		t.Error("equal rates should return the input")
	}
}

func TestProcessArgs(t *testing.T) {
	config := tts.DefaultPiperConfig()
	config.SpeakerID = 3
	p := &Process{config: config}

	model := Model{Path: "/m/a.onnx", ConfigPath: "/m/a.onnx.json", Speakers: 4}
	args := p.args(model, 2)

	want := []string{
		"--model", "/m/a.onnx",
		"--output-raw",
		"--length_scale", "0.500",
		"--noise_scale", "0.667",
		"--noise_w", "0.800",
		"--sentence_silence", "0.200",
		"--config", "/m/a.onnx.json",
		"--speaker", "3",
	}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("arg %d = %q, want %q", i, args[i], want[i])
		}
	}
}
