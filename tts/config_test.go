package tts

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// TestDefaultConfig tests that default configuration is valid.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
	if cfg.Engine != EngineAuto {
		t.Errorf("Default engine should be auto, got %s", cfg.Engine)
	}
	if cfg.MaxChunkChars != 200 {
		t.Errorf("MaxChunkChars = %d, want 200", cfg.MaxChunkChars)
	}
	if cfg.VoiceLoadTimeout != 3*time.Second {
		t.Errorf("VoiceLoadTimeout = %v, want 3s", cfg.VoiceLoadTimeout)
	}
}

// TestConfigValidation tests configuration validation.
func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"valid config", func(c *Config) {}, ""},
		{"engine is normalized", func(c *Config) { c.Engine = " MOCK " }, ""},
		{"invalid engine", func(c *Config) { c.Engine = "google" }, "invalid engine"},
		{"rate too low", func(c *Config) { c.Rate = 0.01 }, "rate must be between"},
		{"rate too high", func(c *Config) { c.Rate = 11 }, "rate must be between"},
		{"pitch too high", func(c *Config) { c.Pitch = 2.5 }, "pitch must be between"},
		{"volume too high", func(c *Config) { c.Volume = 1.5 }, "volume must be between"},
		{"volume too low", func(c *Config) { c.Volume = -0.1 }, "volume must be between"},
		{"zero chunk", func(c *Config) { c.MaxChunkChars = 0 }, "max_chunk_chars"},
		{"negative timeout", func(c *Config) { c.VoiceLoadTimeout = -time.Second }, "voice_load_timeout"},
		{"named color", func(c *Config) { c.Highlight.WordColor = "yellow" }, "word_color"},
		{"ansi color", func(c *Config) { c.Highlight.SentenceColor = "236" }, ""},
		{"short hex color", func(c *Config) { c.Highlight.WordColor = "#fc0" }, ""},
		{"espeak wpm", func(c *Config) { c.Engine = EngineEspeak; c.Espeak.WordsPerMinute = 10 }, "words_per_minute"},
		{"espeak ignored for mock", func(c *Config) { c.Engine = EngineMock; c.Espeak.WordsPerMinute = 10 }, ""},
		{"piper binary", func(c *Config) { c.Engine = EnginePiper; c.Piper.ModelDir = "/m"; c.Piper.Binary = "" }, "binary"},
		{"piper model dir", func(c *Config) { c.Engine = EnginePiper; c.Piper.ModelDir = "" }, "model_dir"},
		{"piper timeout", func(c *Config) { c.Engine = EnginePiper; c.Piper.ModelDir = "/m"; c.Piper.Timeout = time.Millisecond }, "timeout"},
		{"mock failure rate", func(c *Config) { c.Engine = EngineMock; c.Mock.FailureRate = 2 }, "failure_rate"},
		{"cache memory", func(c *Config) { c.Cache.MemoryMB = 0 }, "memory_mb"},
		{"cache disabled skips limits", func(c *Config) { c.Cache.Enabled = false; c.Cache.MemoryMB = 0 }, ""},
		{"cache compression", func(c *Config) { c.Cache.Compress = 30 }, "compression_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.errMsg == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.errMsg)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error %q does not contain %q", err, tt.errMsg)
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("error %v is not ErrConfiguration", err)
			}
		})
	}
}

func TestConfigSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Voice = "en_US-amy"
	cfg.Language = "en-GB"
	cfg.Rate = 1.5

	s := cfg.Settings()
	want := Settings{VoiceID: "en_US-amy", LanguageTag: "en-GB", Rate: 1.5, Pitch: 1, Volume: 1}
	if s != want {
		t.Errorf("Settings() = %+v, want %+v", s, want)
	}

	cc := cfg.ToControllerConfig()
	if cc.MaxChunkChars != cfg.MaxChunkChars {
		t.Errorf("MaxChunkChars = %d, want %d", cc.MaxChunkChars, cfg.MaxChunkChars)
	}
}

func TestLoadConfig(t *testing.T) {
	v := viper.New()
	v.Set("tts.engine", "piper")
	v.Set("tts.voice", "en_GB-alan-low")
	v.Set("tts.rate", 1.25)
	v.Set("tts.max_chunk_chars", 120)
	v.Set("tts.voice_load_timeout", "1500ms")
	v.Set("tts.highlight.word_color", "#ff0000")
	v.Set("tts.piper.model_dir", "/opt/voices")
	v.Set("tts.piper.sentence_silence", "500ms")
	v.Set("tts.piper.timeout", "1m")
	v.Set("tts.cache.enabled", false)
	v.Set("tts.cache.ttl", "24h")

	cfg, err := LoadConfig(v)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Engine != EnginePiper {
		t.Errorf("Engine = %v, want piper", cfg.Engine)
	}
	if cfg.Voice != "en_GB-alan-low" {
		t.Errorf("Voice = %v", cfg.Voice)
	}
	if cfg.Rate != 1.25 {
		t.Errorf("Rate = %v, want 1.25", cfg.Rate)
	}
	if cfg.MaxChunkChars != 120 {
		t.Errorf("MaxChunkChars = %v, want 120", cfg.MaxChunkChars)
	}
	if cfg.VoiceLoadTimeout != 1500*time.Millisecond {
		t.Errorf("VoiceLoadTimeout = %v, want 1.5s", cfg.VoiceLoadTimeout)
	}
	if cfg.Highlight.WordColor != "#ff0000" {
		t.Errorf("WordColor = %v", cfg.Highlight.WordColor)
	}
	if cfg.Highlight.SentenceColor != DefaultConfig().Highlight.SentenceColor {
		t.Errorf("SentenceColor = %v, want default", cfg.Highlight.SentenceColor)
	}
	if cfg.Piper.ModelDir != "/opt/voices" {
		t.Errorf("Piper.ModelDir = %v", cfg.Piper.ModelDir)
	}
	if cfg.Piper.SentenceSilence != 500*time.Millisecond {
		t.Errorf("Piper.SentenceSilence = %v, want 500ms", cfg.Piper.SentenceSilence)
	}
	if cfg.Piper.Timeout != time.Minute {
		t.Errorf("Piper.Timeout = %v, want 1m", cfg.Piper.Timeout)
	}
	if cfg.Cache.Enabled {
		t.Error("Cache should be disabled")
	}
	if cfg.Cache.TTL != 24*time.Hour {
		t.Errorf("Cache.TTL = %v, want 24h", cfg.Cache.TTL)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	v := viper.New()
	v.Set("tts.volume", 4)

	_, err := LoadConfig(v)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("LoadConfig() error = %v, want ErrConfiguration", err)
	}
}

// TestSetDefaults tests that defaults round-trip through viper.
func TestSetDefaults(t *testing.T) {
	v := viper.New()
	SetDefaultsOn(v)

	for _, key := range []string{"tts.engine", "tts.rate", "tts.piper.binary", "tts.cache.ttl", "tts.highlight.word_color"} {
		if !v.IsSet(key) {
			t.Errorf("%s default not set", key)
		}
	}

	cfg, err := LoadConfig(v)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	want := DefaultConfig()
	if cfg.Engine != want.Engine || cfg.MaxChunkChars != want.MaxChunkChars {
		t.Errorf("got engine %q chunk %d, want %q %d", cfg.Engine, cfg.MaxChunkChars, want.Engine, want.MaxChunkChars)
	}
	if cfg.Cache.TTL != want.Cache.TTL || cfg.Piper.Timeout != want.Piper.Timeout {
		t.Errorf("durations did not round-trip: ttl %v timeout %v", cfg.Cache.TTL, cfg.Piper.Timeout)
	}
}
