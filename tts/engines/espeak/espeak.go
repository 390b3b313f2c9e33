// Package espeak speaks through the platform's command-line synthesizer:
// espeak-ng (or espeak) on Linux and say on macOS. Neither reports word
// positions, so boundaries are paced from an estimate against a stopwatch
// that stops while the process is suspended.
package espeak

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/readalong/tts"
)

// Program identifies the speech binary in use.
type Program int

const (
	ProgramNone Program = iota
	ProgramEspeak
	ProgramSay
)

// String returns the program name.
func (p Program) String() string {
	switch p {
	case ProgramEspeak:
		return "espeak-ng"
	case ProgramSay:
		return "say"
	default:
		return "none"
	}
}

// Option configures a Backend.
type Option func(*Backend)

// WithRunner replaces the subprocess runner.
func WithRunner(r Runner) Option {
	return func(b *Backend) { b.runner = r }
}

// Backend implements tts.Backend over espeak-ng or say.
type Backend struct {
	config  tts.EspeakConfig
	runner  Runner
	now     func() time.Time
	program Program
	binary  string

	mu            sync.Mutex
	voices        []tts.Voice
	current       *utterance
	voicesChanged chan struct{}
}

type utterance struct {
	ctx    context.Context
	cancel context.CancelFunc
	proc   Process
	clock  *stopwatch
}

// New detects the speech binary and lists its voices in the background.
func New(config tts.EspeakConfig, opts ...Option) *Backend {
	b := &Backend{
		config:        config,
		runner:        ExecRunner{},
		now:           time.Now,
		voicesChanged: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(b)
	}

	b.program, b.binary = b.detect()
	if b.program != ProgramNone {
		log.Debug("Speech binary found", "program", b.program, "path", b.binary)
		go b.loadVoices()
	}
	return b
}

// Program returns the detected speech binary.
func (b *Backend) Program() Program {
	return b.program
}

// Supported reports whether a speech binary was found.
func (b *Backend) Supported() bool {
	return b.program != ProgramNone
}

// Voices returns the voices listed so far.
func (b *Backend) Voices() []tts.Voice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]tts.Voice(nil), b.voices...)
}

// VoicesChanged fires once the voice list has been read.
func (b *Backend) VoicesChanged() <-chan struct{} {
	return b.voicesChanged
}

// Speak starts a process for req and paces word boundaries in the
// background.
func (b *Backend) Speak(req tts.Request, handler func(tts.BackendEvent)) error {
	if b.program == ProgramNone {
		return tts.ErrBackendUnavailable
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if prev := b.current; prev != nil {
		prev.cancel()
		_ = prev.proc.Kill()
		b.current = nil
	}

	proc, err := b.runner.Start(b.binary, b.args(req), req.Text+"\n")
	if err != nil {
		return fmt.Errorf("start %s: %w", b.program, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	u := &utterance{
		ctx:    ctx,
		cancel: cancel,
		proc:   proc,
		clock:  newStopwatch(b.now),
	}
	b.current = u

	go b.run(u, req, handler)
	return nil
}

// Cancel kills the current process.
func (b *Backend) Cancel() {
	b.mu.Lock()
	u := b.current
	b.current = nil
	b.mu.Unlock()

	if u == nil {
		return
	}
	u.cancel()
	if err := u.proc.Kill(); err != nil {
		log.Debug("Kill speech process", "error", err)
	}
}

// Pause suspends the current process.
func (b *Backend) Pause() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil {
		return
	}
	if err := b.current.proc.Pause(); err != nil {
		log.Warn("Could not pause speech", "program", b.program, "error", err)
		return
	}
	b.current.clock.Pause()
}

// Resume continues the current process.
func (b *Backend) Resume() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil {
		return
	}
	if err := b.current.proc.Resume(); err != nil {
		log.Warn("Could not resume speech", "program", b.program, "error", err)
		return
	}
	b.current.clock.Resume()
}

func (b *Backend) run(u *utterance, req tts.Request, handler func(tts.BackendEvent)) {
	defer b.finish(u)

	done := make(chan struct{})
	var waitErr error
	go func() {
		waitErr = u.proc.Wait()
		close(done)
	}()

	handler(tts.BackendEvent{Type: tts.EventStart})

	total := b.estimate(req.Text, req.Rate)
	timings := tts.EstimateWordTimings(req.Text, total)
	err := tts.PaceWords(u.ctx, timings, u.clock.Elapsed, done, func(w tts.WordTiming) {
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

	switch {
	case u.ctx.Err() != nil:
		handler(tts.BackendEvent{Type: tts.EventError, Reason: tts.ReasonCanceled, Err: u.ctx.Err()})
	case waitErr != nil:
		handler(tts.BackendEvent{
			Type:   tts.EventError,
			Reason: tts.ReasonSynthesisFailed,
			Err:    fmt.Errorf("%s exited: %w", b.program, waitErr),
		})
	default:
		handler(tts.BackendEvent{Type: tts.EventEnd})
	}
}

func (b *Backend) finish(u *utterance) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == u {
		b.current = nil
	}
	u.cancel()
}

// estimate returns how long the binary takes to speak text at rate.
func (b *Backend) estimate(text string, rate float64) time.Duration {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	wpm := b.wordsPerMinute(rate)
	return time.Duration(float64(words) / float64(wpm) * float64(time.Minute))
}

// wordsPerMinute scales the configured speed by rate within the range
// both binaries accept.
func (b *Backend) wordsPerMinute(rate float64) int {
	base := b.config.WordsPerMinute
	if base <= 0 {
		base = 175
	}
	if rate <= 0 {
		rate = 1
	}
	return min(max(int(float64(base)*rate), 80), 450)
}

func (b *Backend) args(req tts.Request) []string {
	wpm := strconv.Itoa(b.wordsPerMinute(req.Rate))

	if b.program == ProgramSay {
		// say has no pitch or volume flags.
		args := []string{"-r", wpm, "-f", "-"}
		if req.Voice != nil {
			args = append([]string{"-v", req.Voice.ID}, args...)
		}
		return args
	}

	pitch := min(max(int(req.Pitch*50), 0), 99)
	amplitude := min(max(int(req.Volume*100), 0), 200)

	args := []string{
		"-s", wpm,
		"-p", strconv.Itoa(pitch),
		"-a", strconv.Itoa(amplitude),
		"--stdin",
	}
	if req.Voice != nil {
		args = append([]string{"-v", req.Voice.ID}, args...)
	}
	return args
}

// detect resolves the configured binary, or the platform's usual one.
func (b *Backend) detect() (Program, string) {
	candidates := []string{"espeak-ng", "espeak"}
	if runtime.GOOS == "darwin" {
		candidates = []string{"say", "espeak-ng", "espeak"}
	}
	if b.config.Binary != "" {
		candidates = []string{b.config.Binary}
	}

	for _, name := range candidates {
		path, err := b.runner.LookPath(name)
		if err != nil {
			continue
		}
		if filepath.Base(name) == "say" {
			return ProgramSay, path
		}
		return ProgramEspeak, path
	}
	return ProgramNone, ""
}

func (b *Backend) loadVoices() {
	timeout := b.config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var list []tts.Voice
	switch b.program {
	case ProgramSay:
		out, err := b.runner.Output(ctx, b.binary, "-v", "?")
		if err != nil {
			log.Warn("Could not list voices", "program", b.program, "error", err)
		}
		list = parseSayVoices(string(out))
	default:
		out, err := b.runner.Output(ctx, b.binary, "--voices")
		if err != nil {
			log.Warn("Could not list voices", "program", b.program, "error", err)
		}
		list = parseEspeakVoices(string(out))
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		log.Warn("Listing voices timed out", "program", b.program, "timeout", timeout)
	}
	log.Debug("Voices loaded", "program", b.program, "count", len(list))

	b.mu.Lock()
	b.voices = list
	b.mu.Unlock()

	select {
	case b.voicesChanged <- struct{}{}:
	default:
	}
}
