package audio

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// ErrClosed is returned by a player after Close.
var ErrClosed = errors.New("player is closed")

// finishPoll is how often the player checks whether oto drained a stream.
const finishPoll = 10 * time.Millisecond

// Player plays PCM through an oto context. Only one stream plays at a time;
// Play replaces the current one.
//
// oto allows a single context per process, so create one Player and share it.
type Player struct {
	context *oto.Context
	format  Format

	mu     sync.Mutex
	state  State
	volume float64
	stream *stream
}

// stream keeps the PCM alive for as long as oto reads from it.
type stream struct {
	data     []byte
	player   *oto.Player
	duration time.Duration
	done     chan struct{}
	once     sync.Once

	started  time.Time
	pausedAt time.Duration
	paused   time.Duration // Total time spent paused
}

func (s *stream) finish() {
	s.once.Do(func() { close(s.done) })
}

// position must be called with the player lock held.
func (s *stream) position(state State) time.Duration {
	var pos time.Duration
	switch state {
	case StatePaused:
		pos = s.pausedAt
	case StatePlaying:
		pos = time.Since(s.started) - s.paused
	}
	return min(pos, s.duration)
}

// NewPlayer creates the oto context for format and waits until the device
// is ready.
func NewPlayer(format Format) (*Player, error) {
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("invalid format: %w", err)
	}

	op := &oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	return &Player{
		context: ctx,
		format:  format,
		volume:  1.0,
	}, nil
}

// Format returns the PCM format the player expects.
func (p *Player) Format() Format {
	return p.format
}

// Play starts pcm and returns a channel closed when it finishes or is
// stopped.
func (p *Player) Play(pcm []byte) (<-chan struct{}, error) {
	if len(pcm) == 0 {
		return nil, errors.New("audio data is empty")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateClosed {
		return nil, ErrClosed
	}
	p.stopLocked()

	data := make([]byte, len(pcm))
	copy(data, pcm)

	s := &stream{
		data:     data,
		duration: p.format.Duration(len(data)),
		done:     make(chan struct{}),
	}
	s.player = p.context.NewPlayer(bytes.NewReader(s.data))
	s.player.SetVolume(p.volume)
	s.started = time.Now()
	s.player.Play()

	p.stream = s
	p.state = StatePlaying

	go p.watch(s)

	log.Debug("Playing audio", "bytes", len(data), "duration", s.duration)
	return s.done, nil
}

// Pause pauses the current stream.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePlaying {
		return fmt.Errorf("cannot pause: player is %s", p.state)
	}

	p.stream.pausedAt = p.stream.position(StatePlaying)
	p.stream.player.Pause()
	p.state = StatePaused
	return nil
}

// Resume continues a paused stream.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePaused {
		return fmt.Errorf("cannot resume: player is %s", p.state)
	}

	s := p.stream
	s.paused = time.Since(s.started) - s.pausedAt
	s.player.Play()
	p.state = StatePlaying
	return nil
}

// Stop ends the current stream. Its done channel is closed.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	return nil
}

// Position returns how far into the current stream playback is.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return 0
	}
	return p.stream.position(p.state)
}

// State returns the player state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SetVolume sets the playback volume (0.0 to 1.0).
func (p *Player) SetVolume(volume float64) error {
	if volume < 0.0 || volume > 1.0 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %f", volume)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.volume = volume
	if p.stream != nil {
		p.stream.player.SetVolume(volume)
	}
	return nil
}

// Close stops playback. The oto context lives until the process exits.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	p.state = StateClosed
	return nil
}

// stopLocked must be called with the lock held.
func (p *Player) stopLocked() {
	s := p.stream
	if s == nil {
		return
	}

	s.player.Pause()
	if err := s.player.Close(); err != nil {
		log.Debug("Closing oto player", "error", err)
	}
	s.finish()

	p.stream = nil
	if p.state != StateClosed {
		p.state = StateStopped
	}
}

// watch marks s finished once oto has played all of it.
func (p *Player) watch(s *stream) {
	ticker := time.NewTicker(finishPoll)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}

		p.mu.Lock()
		if p.stream != s {
			p.mu.Unlock()
			return
		}
		drained := p.state == StatePlaying && !s.player.IsPlaying() && s.player.BufferedSize() == 0
		if drained {
			if err := s.player.Err(); err != nil {
				log.Warn("Audio playback failed", "error", err)
			}
			p.stopLocked()
		}
		p.mu.Unlock()
	}
}
