package audio

import (
	"fmt"
	"slices"
	"time"
)

// State represents the current state of a player.
type State int32

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// SampleRates lists the rates piper voices are trained at.
var SampleRates = []int{8000, 16000, 22050, 24000, 44100, 48000}

// Format describes signed 16-bit little-endian PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// DefaultFormat is the format of medium-quality piper voices.
func DefaultFormat() Format {
	return Format{SampleRate: 22050, Channels: 1}
}

// Validate checks the format can be played.
func (f Format) Validate() error {
	if !slices.Contains(SampleRates, f.SampleRate) {
		return fmt.Errorf("sample rate must be one of %v, got %d", SampleRates, f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", f.Channels)
	}
	return nil
}

// BytesPerSecond returns the data rate of the format.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * 2
}

// Duration returns how long n bytes of PCM play for.
func (f Format) Duration(n int) time.Duration {
	bps := f.BytesPerSecond()
	if bps <= 0 {
		return 0
	}
	frames := n / (f.Channels * 2)
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}
