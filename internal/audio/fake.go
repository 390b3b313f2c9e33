package audio

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Fake is a silent player whose clock only moves when Advance is called.
type Fake struct {
	format Format

	mu       sync.Mutex
	state    State
	volume   float64
	position time.Duration
	duration time.Duration
	done     chan struct{}
	plays    [][]byte
	calls    []string
	playErr  error
}

// NewFake creates a fake player for format.
func NewFake(format Format) *Fake {
	return &Fake{format: format, volume: 1.0}
}

// Format returns the PCM format the player expects.
func (f *Fake) Format() Format {
	return f.format
}

// Play records pcm and starts the fake clock at zero.
func (f *Fake) Play(pcm []byte) (<-chan struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, "play")
	if f.state == StateClosed {
		return nil, ErrClosed
	}
	if f.playErr != nil {
		return nil, f.playErr
	}
	if len(pcm) == 0 {
		return nil, errors.New("audio data is empty")
	}

	f.finishLocked()
	f.plays = append(f.plays, append([]byte(nil), pcm...))
	f.position = 0
	f.duration = f.format.Duration(len(pcm))
	f.done = make(chan struct{})
	f.state = StatePlaying
	return f.done, nil
}

// Pause pauses the fake clock.
func (f *Fake) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, "pause")
	if f.state != StatePlaying {
		return fmt.Errorf("cannot pause: player is %s", f.state)
	}
	f.state = StatePaused
	return nil
}

// Resume restarts the fake clock.
func (f *Fake) Resume() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, "resume")
	if f.state != StatePaused {
		return fmt.Errorf("cannot resume: player is %s", f.state)
	}
	f.state = StatePlaying
	return nil
}

// Stop ends the current stream.
func (f *Fake) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, "stop")
	f.finishLocked()
	return nil
}

// Position returns the fake clock.
func (f *Fake) Position() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.position
}

// SetVolume records the volume.
func (f *Fake) SetVolume(volume float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = volume
	return nil
}

// Close stops playback for good.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.finishLocked()
	f.state = StateClosed
	return nil
}

// Test control methods

// Advance moves the clock forward while playing. Reaching the end of the
// stream finishes it.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StatePlaying {
		return
	}
	f.position = min(f.position+d, f.duration)
	if f.position >= f.duration {
		f.finishLocked()
	}
}

// SetPlayError makes Play fail with err until cleared with nil.
func (f *Fake) SetPlayError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playErr = err
}

// State returns the fake player state.
func (f *Fake) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Volume returns the last volume set.
func (f *Fake) Volume() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volume
}

// Plays returns a copy of every PCM buffer played, in order.
func (f *Fake) Plays() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.plays...)
}

// Calls returns the methods called so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// finishLocked must be called with the lock held.
func (f *Fake) finishLocked() {
	if f.done != nil {
		close(f.done)
		f.done = nil
	}
	if f.state != StateClosed {
		f.state = StateStopped
	}
}
