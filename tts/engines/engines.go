// Package engines opens the speech backend named by the configuration. The
// auto engine tries each backend in preference order and falls back to the
// next one when a backend is missing.
package engines

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/readalong/internal/audio"
	"github.com/dgnsrekt/readalong/internal/cache"
	"github.com/dgnsrekt/readalong/tts"
	"github.com/dgnsrekt/readalong/tts/engines/espeak"
	"github.com/dgnsrekt/readalong/tts/engines/mock"
	"github.com/dgnsrekt/readalong/tts/engines/piper"
)

// Engine is an opened backend plus the resources it owns.
type Engine struct {
	Name    string
	Backend tts.Backend

	// Cache is the synthesized-audio cache, if the backend uses one.
	Cache *cache.Store

	watch   func(context.Context) error
	closers []func() error
}

// Watch runs the backend's voice watcher until ctx is done. Backends
// without one return at once.
func (e *Engine) Watch(ctx context.Context) error {
	if e.watch == nil {
		return nil
	}
	return e.watch(ctx)
}

// Close releases the audio device and cache.
func (e *Engine) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Factory opens one kind of backend.
type Factory func(config tts.Config) (*Engine, error)

// Selector maps engine names to factories.
type Selector struct {
	Factories map[string]Factory

	// Auto lists the engines tried, in order, for tts.EngineAuto.
	Auto []string
}

// DefaultSelector knows every built-in backend and prefers piper over
// espeak. The mock backend is never picked automatically.
func DefaultSelector() Selector {
	return Selector{
		Factories: map[string]Factory{
			tts.EngineMock:   OpenMock,
			tts.EngineEspeak: OpenEspeak,
			tts.EnginePiper:  OpenPiper,
		},
		Auto: []string{tts.EnginePiper, tts.EngineEspeak},
	}
}

// Open opens the engine named in config with the default selector.
func Open(config tts.Config) (*Engine, error) {
	return DefaultSelector().Open(config)
}

// Open opens the configured engine. A named engine that is not supported
// fails with tts.ErrBackendUnavailable; auto moves on to the next one.
func (s Selector) Open(config tts.Config) (*Engine, error) {
	name := strings.ToLower(strings.TrimSpace(config.Engine))
	if name == "" {
		name = tts.EngineAuto
	}

	if name != tts.EngineAuto {
		return s.open(name, config)
	}

	var errs []error
	for _, candidate := range s.Auto {
		e, err := s.open(candidate, config)
		if err == nil {
			return e, nil
		}
		log.Debug("Speech engine skipped", "engine", candidate, "reason", err)
		errs = append(errs, err)
	}

	return nil, fmt.Errorf("%w: no speech engine found (tried %s): %w",
		tts.ErrBackendUnavailable, strings.Join(s.Auto, ", "), errors.Join(errs...))
}

func (s Selector) open(name string, config tts.Config) (*Engine, error) {
	factory, ok := s.Factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown engine %q", tts.ErrConfiguration, name)
	}

	e, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if !e.Backend.Supported() {
		if err := e.Close(); err != nil {
			log.Debug("Closing unsupported engine", "engine", name, "error", err)
		}
		return nil, fmt.Errorf("%w: %s", tts.ErrBackendUnavailable, name)
	}

	log.Info("Speech engine selected", "engine", name)
	return e, nil
}

// OpenMock opens the auto-pacing mock backend.
func OpenMock(config tts.Config) (*Engine, error) {
	b := mock.NewWithConfig(mock.Config{
		Auto:           true,
		WordsPerMinute: config.Mock.WordsPerMinute,
		FailureRate:    config.Mock.FailureRate,
	})
	return &Engine{Name: tts.EngineMock, Backend: b}, nil
}

// OpenEspeak opens the espeak-ng or say backend.
func OpenEspeak(config tts.Config) (*Engine, error) {
	b := espeak.New(config.Espeak)
	return &Engine{Name: tts.EngineEspeak, Backend: b}, nil
}

// OpenPiper opens the audio device, the cache if enabled and the piper
// backend.
func OpenPiper(config tts.Config) (*Engine, error) {
	e := &Engine{Name: tts.EnginePiper}

	player, err := audio.NewPlayer(audio.DefaultFormat())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tts.ErrBackendUnavailable, err)
	}
	e.closers = append(e.closers, player.Close)

	var opts []piper.Option
	if config.Cache.Enabled {
		cc, err := CacheConfig(config.Cache)
		if err != nil {
			log.Warn("Audio cache disabled", "error", err)
		} else if store, err := cache.Open(cc); err != nil {
			log.Warn("Audio cache disabled", "error", err)
		} else {
			e.Cache = store
			e.closers = append(e.closers, store.Close)
			opts = append(opts, piper.WithCache(store))
		}
	}

	b := piper.New(config.Piper, player, opts...)
	e.Backend = b
	e.watch = b.Watch
	return e, nil
}

// CacheConfig converts the user-facing cache settings. An empty directory
// resolves to readalong/audio under the user cache directory.
func CacheConfig(c tts.CacheConfig) (cache.Config, error) {
	dir := c.Dir
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return cache.Config{}, fmt.Errorf("locate cache directory: %w", err)
		}
		dir = filepath.Join(base, "readalong", "audio")
	}

	cc := cache.DefaultConfig(dir)
	cc.MemoryCapacity = int64(c.MemoryMB) << 20
	cc.DiskCapacity = int64(c.DiskMB) << 20
	cc.TTL = c.TTL
	cc.CompressionLevel = c.Compress
	return cc, nil
}
