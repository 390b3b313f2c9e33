package tts

import "math"

// Ranges accepted by Settings. Values outside are clamped.
const (
	MinRate   = 0.1
	MaxRate   = 10.0
	MinPitch  = 0.0
	MaxPitch  = 2.0
	MinVolume = 0.0
	MaxVolume = 1.0
)

// Settings configure one playback session. They are snapshotted at Play.
type Settings struct {
	VoiceID     string  // Explicit voice, empty to select by language
	LanguageTag string  // BCP 47 tag used for voice selection
	Rate        float64 // Speech rate multiplier, 1.0 is normal
	Pitch       float64 // Pitch, 1.0 is normal
	Volume      float64 // Volume, 0.0 to 1.0
}

// DefaultSettings returns settings for normal-speed speech in English.
func DefaultSettings() Settings {
	return Settings{
		LanguageTag: "en-US",
		Rate:        1.0,
		Pitch:       1.0,
		Volume:      1.0,
	}
}

// Clamped returns a copy with every numeric field forced into range. NaN
// takes the default value.
func (s Settings) Clamped() Settings {
	d := DefaultSettings()
	s.Rate = clamp(s.Rate, MinRate, MaxRate, d.Rate)
	s.Pitch = clamp(s.Pitch, MinPitch, MaxPitch, d.Pitch)
	s.Volume = clamp(s.Volume, MinVolume, MaxVolume, d.Volume)
	return s
}

func clamp(v, lo, hi, def float64) float64 {
	switch {
	case math.IsNaN(v):
		return def
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
