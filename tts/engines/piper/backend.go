// Package piper speaks through the piper neural synthesizer. Each segment
// is synthesized to PCM, played through an audio sink and word boundaries
// are paced against the sink's playback position.
package piper

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/dgnsrekt/readalong/internal/audio"
	"github.com/dgnsrekt/readalong/internal/cache"
	"github.com/dgnsrekt/readalong/tts"
)

// reloadDelay collapses bursts of file events into one rescan.
const reloadDelay = 250 * time.Millisecond

// Sink plays PCM and reports how far playback has got.
type Sink interface {
	Format() audio.Format
	Play(pcm []byte) (<-chan struct{}, error)
	Pause() error
	Resume() error
	Stop() error
	Position() time.Duration
	SetVolume(volume float64) error
}

// Cache stores synthesized PCM. *cache.Store implements it.
type Cache interface {
	Get(key string) ([]byte, cache.Level)
	Put(key string, value []byte) error
}

// Option configures a Backend.
type Option func(*Backend)

// WithCache enables the synthesized-audio cache.
func WithCache(c Cache) Option {
	return func(b *Backend) { b.cache = c }
}

// WithSynthesizer replaces the piper subprocess.
func WithSynthesizer(s Synthesizer) Option {
	return func(b *Backend) { b.synth = s }
}

// Backend implements tts.Backend on top of piper.
type Backend struct {
	config tts.PiperConfig
	sink   Sink
	synth  Synthesizer
	cache  Cache

	mu            sync.Mutex
	models        []Model
	current       *utterance
	paused        bool
	voicesChanged chan struct{}
}

type utterance struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a backend and scans the model directory once.
func New(config tts.PiperConfig, sink Sink, opts ...Option) *Backend {
	b := &Backend{
		config:        config,
		sink:          sink,
		voicesChanged: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.synth == nil {
		b.synth = NewProcess(config)
	}

	b.Reload()
	return b
}

// Supported reports whether piper and an audio sink are present.
func (b *Backend) Supported() bool {
	return b.sink != nil && b.synth.Available()
}

// Voices returns one voice per installed model. The first model is the
// default.
func (b *Backend) Voices() []tts.Voice {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]tts.Voice, len(b.models))
	for i, m := range b.models {
		out[i] = m.Voice
		out[i].Default = i == 0
	}
	return out
}

// VoicesChanged fires after every rescan.
func (b *Backend) VoicesChanged() <-chan struct{} {
	return b.voicesChanged
}

// Speak synthesizes and plays req in the background.
func (b *Backend) Speak(req tts.Request, handler func(tts.BackendEvent)) error {
	b.mu.Lock()
	model, ok := b.modelFor(req.Voice)
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("no piper models found in %s", b.config.ModelDir)
	}

	if b.current != nil {
		b.current.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	u := &utterance{ctx: ctx, cancel: cancel}
	b.current = u
	b.paused = false
	b.mu.Unlock()

	go b.run(u, model, req, handler)
	return nil
}

// Cancel stops the current utterance.
func (b *Backend) Cancel() {
	b.mu.Lock()
	u := b.current
	b.current = nil
	b.paused = false
	b.mu.Unlock()

	if u != nil {
		u.cancel()
	}
	_ = b.sink.Stop()
}

// Pause pauses playback. A pause during synthesis takes effect once
// playback starts.
func (b *Backend) Pause() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.paused = true
	if err := b.sink.Pause(); err != nil {
		log.Debug("Deferring pause", "reason", err)
	}
}

// Resume continues playback.
func (b *Backend) Resume() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.paused = false
	if err := b.sink.Resume(); err != nil {
		log.Debug("Resume ignored", "reason", err)
	}
}

// Reload rescans the model directory and signals VoicesChanged.
func (b *Backend) Reload() []tts.Voice {
	models, err := ScanModels(b.config.ModelDir)
	if err != nil {
		log.Debug("No piper models", "dir", b.config.ModelDir, "error", err)
	}

	b.mu.Lock()
	b.models = models
	b.mu.Unlock()

	select {
	case b.voicesChanged <- struct{}{}:
	default:
	}

	return b.Voices()
}

// Watch rescans the model directory whenever a model is added or removed.
// It blocks until ctx is done.
func (b *Backend) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(b.config.ModelDir); err != nil {
		return fmt.Errorf("watch %s: %w", b.config.ModelDir, err)
	}

	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if isModelFile(ev.Name) && ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) != 0 {
				log.Debug("Model directory changed", "file", filepath.Base(ev.Name), "op", ev.Op)
				timer.Reset(reloadDelay)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("Model watcher error", "error", err)
		case <-timer.C:
			b.Reload()
		}
	}
}

// modelFor must be called with the lock held.
func (b *Backend) modelFor(voice *tts.Voice) (Model, bool) {
	if len(b.models) == 0 {
		return Model{}, false
	}
	if voice != nil {
		for _, m := range b.models {
			if m.Voice.ID == voice.ID {
				return m, true
			}
		}
	}
	return b.models[0], true
}

func (b *Backend) run(u *utterance, model Model, req tts.Request, handler func(tts.BackendEvent)) {
	defer b.finish(u)

	fail := func(err error) {
		if u.ctx.Err() != nil {
			handler(tts.BackendEvent{Type: tts.EventError, Reason: tts.ReasonCanceled, Err: u.ctx.Err()})
			return
		}
		handler(tts.BackendEvent{Type: tts.EventError, Reason: tts.ReasonSynthesisFailed, Err: err})
	}

	pcm, err := b.synthesize(u.ctx, model, req)
	if err != nil {
		fail(err)
		return
	}

	format := b.sink.Format()
	pcm = resample(pcm, model.SampleRate, format.SampleRate)

	done, err := b.play(u, pcm, req.Volume)
	if err != nil {
		fail(err)
		return
	}

	handler(tts.BackendEvent{Type: tts.EventStart})

	timings := tts.EstimateWordTimings(req.Text, format.Duration(len(pcm)))
	err = tts.PaceWords(u.ctx, timings, b.sink.Position, done, func(w tts.WordTiming) {
		handler(tts.BackendEvent{
			Type:      tts.EventBoundary,
			Boundary:  tts.BoundaryWord,
			CharIndex: w.CharIndex,
			Length:    w.Length,
		})
	})
	if err == nil {
		select {
		case <-done:
		case <-u.ctx.Done():
		}
	}

	if u.ctx.Err() != nil {
		fail(u.ctx.Err())
		return
	}
	handler(tts.BackendEvent{Type: tts.EventEnd})
}

// play starts pcm unless u was cancelled meanwhile, honoring a pause that
// arrived during synthesis.
func (b *Backend) play(u *utterance, pcm []byte, volume float64) (<-chan struct{}, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current != u || u.ctx.Err() != nil {
		return nil, context.Canceled
	}

	if err := b.sink.SetVolume(volume); err != nil {
		log.Debug("Volume not applied", "error", err)
	}
	done, err := b.sink.Play(pcm)
	if err != nil {
		return nil, fmt.Errorf("play: %w", err)
	}
	if b.paused {
		_ = b.sink.Pause()
	}
	return done, nil
}

func (b *Backend) synthesize(ctx context.Context, model Model, req tts.Request) ([]byte, error) {
	var key string
	if b.cache != nil {
		key = cache.Key(req.Text, model.Voice.ID, req.Rate, 0)
		if pcm, level := b.cache.Get(key); level != cache.LevelNone {
			log.Debug("Audio cache hit", "level", level, "bytes", len(pcm))
			return pcm, nil
		}
	}

	pcm, err := b.synth.Synthesize(ctx, model, req.Text, req.Rate)
	if err != nil {
		return nil, err
	}

	if b.cache != nil {
		if err := b.cache.Put(key, pcm); err != nil && !errors.Is(err, cache.ErrItemTooLarge) {
			log.Warn("Failed to cache audio", "error", err)
		}
	}
	return pcm, nil
}

func (b *Backend) finish(u *utterance) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == u {
		b.current = nil
		b.paused = false
	}
	u.cancel()
}

func isModelFile(name string) bool {
	return strings.HasSuffix(name, modelExt) || strings.HasSuffix(name, configExt)
}
