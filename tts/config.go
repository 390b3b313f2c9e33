package tts

import (
	"fmt"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/dgnsrekt/readalong/tts/sentence"
)

// Engine names accepted by Config.Engine.
const (
	EngineAuto   = "auto"
	EngineEspeak = "espeak"
	EnginePiper  = "piper"
	EngineMock   = "mock"
)

// Engines lists the valid engine names.
var Engines = []string{EngineAuto, EngineEspeak, EnginePiper, EngineMock}

var colorPattern = regexp.MustCompile(`^(#[0-9a-fA-F]{6}|#[0-9a-fA-F]{3}|[0-9]{1,3})$`)

// Config contains all read-along configuration options.
type Config struct {
	// Backend selection; auto prefers piper, then espeak.
	Engine string `yaml:"engine" env:"READALONG_ENGINE" envDefault:"auto"`

	// Speech settings applied to every session
	Voice    string  `yaml:"voice" env:"READALONG_VOICE"`
	Language string  `yaml:"language" env:"READALONG_LANGUAGE" envDefault:"en-US"`
	Rate     float64 `yaml:"rate" env:"READALONG_RATE" envDefault:"1.0"`
	Pitch    float64 `yaml:"pitch" env:"READALONG_PITCH" envDefault:"1.0"`
	Volume   float64 `yaml:"volume" env:"READALONG_VOLUME" envDefault:"1.0"`

	// Segmentation and voice loading
	MaxChunkChars    int           `yaml:"max_chunk_chars" env:"READALONG_MAX_CHUNK_CHARS" envDefault:"200"`
	VoiceLoadTimeout time.Duration `yaml:"voice_load_timeout" env:"READALONG_VOICE_LOAD_TIMEOUT" envDefault:"3s"`

	// Visual settings
	Highlight HighlightConfig `yaml:"highlight"`

	// Engine-specific configurations
	Espeak EspeakConfig `yaml:"espeak"`
	Piper  PiperConfig  `yaml:"piper"`
	Mock   MockConfig   `yaml:"mock"`
	Cache  CacheConfig  `yaml:"cache"`
}

// HighlightConfig holds the marker colors used by the viewer.
type HighlightConfig struct {
	WordColor     string `yaml:"word_color" env:"READALONG_WORD_COLOR" envDefault:"#FFD54F"`
	SentenceColor string `yaml:"sentence_color" env:"READALONG_SENTENCE_COLOR" envDefault:"#3E4451"`
}

// EspeakConfig contains settings for the espeak-ng / say backend.
type EspeakConfig struct {
	// Binary overrides the detected speech binary.
	Binary         string        `yaml:"binary" env:"READALONG_ESPEAK_BINARY"`
	WordsPerMinute int           `yaml:"words_per_minute" env:"READALONG_ESPEAK_WPM" envDefault:"175"`
	Timeout        time.Duration `yaml:"timeout" env:"READALONG_ESPEAK_TIMEOUT" envDefault:"5s"`
}

// PiperConfig contains Piper engine specific settings.
type PiperConfig struct {
	Binary          string        `yaml:"binary" env:"READALONG_PIPER_BINARY" envDefault:"piper"`
	ModelDir        string        `yaml:"model_dir" env:"READALONG_PIPER_MODEL_DIR"`
	SpeakerID       int           `yaml:"speaker_id" env:"READALONG_PIPER_SPEAKER_ID" envDefault:"0"`
	NoiseScale      float64       `yaml:"noise_scale" env:"READALONG_PIPER_NOISE_SCALE" envDefault:"0.667"`
	NoiseW          float64       `yaml:"noise_w" env:"READALONG_PIPER_NOISE_W" envDefault:"0.8"`
	SentenceSilence time.Duration `yaml:"sentence_silence" env:"READALONG_PIPER_SENTENCE_SILENCE" envDefault:"200ms"`
	Timeout         time.Duration `yaml:"timeout" env:"READALONG_PIPER_TIMEOUT" envDefault:"30s"`
}

// MockConfig contains settings for the demo backend.
type MockConfig struct {
	WordsPerMinute int     `yaml:"words_per_minute" env:"READALONG_MOCK_WPM" envDefault:"150"`
	FailureRate    float64 `yaml:"failure_rate" env:"READALONG_MOCK_FAILURE_RATE" envDefault:"0.0"`
}

// CacheConfig configures the synthesized-audio cache used by piper.
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled" env:"READALONG_CACHE_ENABLED" envDefault:"true"`
	Dir      string        `yaml:"dir" env:"READALONG_CACHE_DIR"`
	MemoryMB int           `yaml:"memory_mb" env:"READALONG_CACHE_MEMORY_MB" envDefault:"64"`
	DiskMB   int           `yaml:"disk_mb" env:"READALONG_CACHE_DISK_MB" envDefault:"512"`
	TTL      time.Duration `yaml:"ttl" env:"READALONG_CACHE_TTL" envDefault:"168h"`
	Compress int           `yaml:"compression_level" env:"READALONG_CACHE_COMPRESSION_LEVEL" envDefault:"3"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	s := DefaultSettings()
	return Config{
		Engine:   EngineAuto,
		Language: s.LanguageTag,
		Rate:     s.Rate,
		Pitch:    s.Pitch,
		Volume:   s.Volume,

		MaxChunkChars:    sentence.DefaultMaxChunkChars,
		VoiceLoadTimeout: 3 * time.Second,

		Highlight: HighlightConfig{
			WordColor:     "#FFD54F",
			SentenceColor: "#3E4451",
		},

		Espeak: DefaultEspeakConfig(),
		Piper:  DefaultPiperConfig(),
		Mock:   DefaultMockConfig(),
		Cache:  DefaultCacheConfig(),
	}
}

// DefaultEspeakConfig returns default espeak configuration.
func DefaultEspeakConfig() EspeakConfig {
	return EspeakConfig{
		WordsPerMinute: 175,
		Timeout:        5 * time.Second,
	}
}

// DefaultPiperConfig returns default Piper configuration.
func DefaultPiperConfig() PiperConfig {
	cfg := PiperConfig{
		Binary:          "piper",
		NoiseScale:      0.667,
		NoiseW:          0.8,
		SentenceSilence: 200 * time.Millisecond,
		Timeout:         30 * time.Second,
	}

	// Common model locations
	switch runtime.GOOS {
	case "linux":
		cfg.ModelDir = filepath.Join("/usr", "share", "piper-voices")
	case "darwin":
		cfg.ModelDir = filepath.Join("/usr", "local", "share", "piper-voices")
	}

	return cfg
}

// DefaultMockConfig returns default mock configuration.
func DefaultMockConfig() MockConfig {
	return MockConfig{
		WordsPerMinute: BaseWordsPerMinute,
	}
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:  true,
		MemoryMB: 64,
		DiskMB:   512,
		TTL:      7 * 24 * time.Hour,
		Compress: 3,
	}
}

// Validate checks if the configuration is valid. Engine and color names are
// normalized in place.
func (c *Config) Validate() error {
	c.Engine = strings.ToLower(strings.TrimSpace(c.Engine))
	if !slices.Contains(Engines, c.Engine) {
		return fmt.Errorf("%w: invalid engine %q: must be one of %v", ErrConfiguration, c.Engine, Engines)
	}

	if c.Rate < MinRate || c.Rate > MaxRate {
		return fmt.Errorf("%w: rate must be between %.1f and %.1f, got %g", ErrConfiguration, MinRate, MaxRate, c.Rate)
	}
	if c.Pitch < MinPitch || c.Pitch > MaxPitch {
		return fmt.Errorf("%w: pitch must be between %.1f and %.1f, got %g", ErrConfiguration, MinPitch, MaxPitch, c.Pitch)
	}
	if c.Volume < MinVolume || c.Volume > MaxVolume {
		return fmt.Errorf("%w: volume must be between %.1f and %.1f, got %g", ErrConfiguration, MinVolume, MaxVolume, c.Volume)
	}

	if c.MaxChunkChars < 1 {
		return fmt.Errorf("%w: max_chunk_chars must be positive, got %d", ErrConfiguration, c.MaxChunkChars)
	}
	if c.VoiceLoadTimeout < 0 {
		return fmt.Errorf("%w: voice_load_timeout cannot be negative", ErrConfiguration)
	}

	if err := c.Highlight.Validate(); err != nil {
		return fmt.Errorf("%w: highlight: %w", ErrConfiguration, err)
	}

	switch c.Engine {
	case EngineEspeak:
		if err := c.Espeak.Validate(); err != nil {
			return fmt.Errorf("%w: espeak: %w", ErrConfiguration, err)
		}
	case EnginePiper:
		if err := c.Piper.Validate(); err != nil {
			return fmt.Errorf("%w: piper: %w", ErrConfiguration, err)
		}
	case EngineMock:
		if err := c.Mock.Validate(); err != nil {
			return fmt.Errorf("%w: mock: %w", ErrConfiguration, err)
		}
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("%w: cache: %w", ErrConfiguration, err)
	}

	return nil
}

// Validate checks both colors are hex or ANSI codes.
func (c *HighlightConfig) Validate() error {
	for name, color := range map[string]string{"word_color": c.WordColor, "sentence_color": c.SentenceColor} {
		if !colorPattern.MatchString(color) {
			return fmt.Errorf("%s %q is not a hex or ANSI color", name, color)
		}
	}
	return nil
}

// Validate checks if the espeak configuration is valid.
func (c *EspeakConfig) Validate() error {
	if c.WordsPerMinute < 80 || c.WordsPerMinute > 450 {
		return fmt.Errorf("words_per_minute must be between 80 and 450, got %d", c.WordsPerMinute)
	}
	if c.Timeout < time.Second {
		return fmt.Errorf("timeout must be at least 1 second, got %v", c.Timeout)
	}
	return nil
}

// Validate checks if the Piper configuration is valid.
func (c *PiperConfig) Validate() error {
	if c.Binary == "" {
		return fmt.Errorf("piper binary path cannot be empty")
	}
	if c.ModelDir == "" {
		return fmt.Errorf("piper model_dir cannot be empty")
	}
	if c.NoiseScale < 0 || c.NoiseScale > 2.0 {
		return fmt.Errorf("noise_scale must be between 0.0 and 2.0, got %f", c.NoiseScale)
	}
	if c.NoiseW < 0 || c.NoiseW > 2.0 {
		return fmt.Errorf("noise_w must be between 0.0 and 2.0, got %f", c.NoiseW)
	}
	if c.Timeout < time.Second {
		return fmt.Errorf("timeout must be at least 1 second, got %v", c.Timeout)
	}
	return nil
}

// Validate checks if the mock configuration is valid.
func (c *MockConfig) Validate() error {
	if c.WordsPerMinute < 50 || c.WordsPerMinute > 500 {
		return fmt.Errorf("words_per_minute must be between 50 and 500, got %d", c.WordsPerMinute)
	}
	if c.FailureRate < 0.0 || c.FailureRate > 1.0 {
		return fmt.Errorf("failure_rate must be between 0.0 and 1.0, got %f", c.FailureRate)
	}
	return nil
}

// Validate checks the cache limits.
func (c *CacheConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.MemoryMB < 1 {
		return fmt.Errorf("memory_mb must be positive, got %d", c.MemoryMB)
	}
	if c.DiskMB < 1 {
		return fmt.Errorf("disk_mb must be positive, got %d", c.DiskMB)
	}
	if c.Compress < 1 || c.Compress > 22 {
		return fmt.Errorf("compression_level must be between 1 and 22, got %d", c.Compress)
	}
	return nil
}

// Settings returns the per-session settings this configuration describes.
func (c *Config) Settings() Settings {
	return Settings{
		VoiceID:     c.Voice,
		LanguageTag: c.Language,
		Rate:        c.Rate,
		Pitch:       c.Pitch,
		Volume:      c.Volume,
	}.Clamped()
}

// ToControllerConfig converts the configuration to controller config.
func (c *Config) ToControllerConfig() ControllerConfig {
	return ControllerConfig{
		MaxChunkChars: c.MaxChunkChars,
	}
}
