package tts

import (
	"fmt"

	"github.com/spf13/viper"
)

// LoadConfigFromViper loads configuration from the tts.* keys of the global
// viper instance on top of DefaultConfig and validates it.
func LoadConfigFromViper() (Config, error) {
	return LoadConfig(viper.GetViper())
}

// LoadConfig loads configuration from the tts.* keys of v.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()

	setString(v, "tts.engine", &cfg.Engine)
	setString(v, "tts.voice", &cfg.Voice)
	setString(v, "tts.language", &cfg.Language)
	setFloat(v, "tts.rate", &cfg.Rate)
	setFloat(v, "tts.pitch", &cfg.Pitch)
	setFloat(v, "tts.volume", &cfg.Volume)
	setInt(v, "tts.max_chunk_chars", &cfg.MaxChunkChars)
	if v.IsSet("tts.voice_load_timeout") {
		cfg.VoiceLoadTimeout = v.GetDuration("tts.voice_load_timeout")
	}

	setString(v, "tts.highlight.word_color", &cfg.Highlight.WordColor)
	setString(v, "tts.highlight.sentence_color", &cfg.Highlight.SentenceColor)

	cfg.Espeak = loadEspeakConfig(v)
	cfg.Piper = loadPiperConfig(v)
	cfg.Mock = loadMockConfig(v)
	cfg.Cache = loadCacheConfig(v)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadEspeakConfig loads espeak-specific configuration from Viper.
func loadEspeakConfig(v *viper.Viper) EspeakConfig {
	cfg := DefaultEspeakConfig()

	setString(v, "tts.espeak.binary", &cfg.Binary)
	setInt(v, "tts.espeak.words_per_minute", &cfg.WordsPerMinute)
	if v.IsSet("tts.espeak.timeout") {
		cfg.Timeout = v.GetDuration("tts.espeak.timeout")
	}

	return cfg
}

// loadPiperConfig loads Piper-specific configuration from Viper.
func loadPiperConfig(v *viper.Viper) PiperConfig {
	cfg := DefaultPiperConfig()

	setString(v, "tts.piper.binary", &cfg.Binary)
	setString(v, "tts.piper.model_dir", &cfg.ModelDir)
	setInt(v, "tts.piper.speaker_id", &cfg.SpeakerID)
	setFloat(v, "tts.piper.noise_scale", &cfg.NoiseScale)
	setFloat(v, "tts.piper.noise_w", &cfg.NoiseW)
	if v.IsSet("tts.piper.sentence_silence") {
		cfg.SentenceSilence = v.GetDuration("tts.piper.sentence_silence")
	}
	if v.IsSet("tts.piper.timeout") {
		cfg.Timeout = v.GetDuration("tts.piper.timeout")
	}

	return cfg
}

// loadMockConfig loads mock-specific configuration from Viper.
func loadMockConfig(v *viper.Viper) MockConfig {
	cfg := DefaultMockConfig()

	setInt(v, "tts.mock.words_per_minute", &cfg.WordsPerMinute)
	setFloat(v, "tts.mock.failure_rate", &cfg.FailureRate)

	return cfg
}

// loadCacheConfig loads cache configuration from Viper.
func loadCacheConfig(v *viper.Viper) CacheConfig {
	cfg := DefaultCacheConfig()

	if v.IsSet("tts.cache.enabled") {
		cfg.Enabled = v.GetBool("tts.cache.enabled")
	}
	setString(v, "tts.cache.dir", &cfg.Dir)
	setInt(v, "tts.cache.memory_mb", &cfg.MemoryMB)
	setInt(v, "tts.cache.disk_mb", &cfg.DiskMB)
	setInt(v, "tts.cache.compression_level", &cfg.Compress)
	if v.IsSet("tts.cache.ttl") {
		cfg.TTL = v.GetDuration("tts.cache.ttl")
	}

	return cfg
}

// SetDefaults sets default values in the global viper instance.
func SetDefaults() {
	SetDefaultsOn(viper.GetViper())
}

// SetDefaultsOn sets default values on v.
func SetDefaultsOn(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("tts.engine", d.Engine)
	v.SetDefault("tts.language", d.Language)
	v.SetDefault("tts.rate", d.Rate)
	v.SetDefault("tts.pitch", d.Pitch)
	v.SetDefault("tts.volume", d.Volume)
	v.SetDefault("tts.max_chunk_chars", d.MaxChunkChars)
	v.SetDefault("tts.voice_load_timeout", d.VoiceLoadTimeout.String())

	v.SetDefault("tts.highlight.word_color", d.Highlight.WordColor)
	v.SetDefault("tts.highlight.sentence_color", d.Highlight.SentenceColor)

	v.SetDefault("tts.espeak.words_per_minute", d.Espeak.WordsPerMinute)
	v.SetDefault("tts.espeak.timeout", d.Espeak.Timeout.String())

	v.SetDefault("tts.piper.binary", d.Piper.Binary)
	v.SetDefault("tts.piper.model_dir", d.Piper.ModelDir)
	v.SetDefault("tts.piper.speaker_id", d.Piper.SpeakerID)
	v.SetDefault("tts.piper.noise_scale", d.Piper.NoiseScale)
	v.SetDefault("tts.piper.noise_w", d.Piper.NoiseW)
	v.SetDefault("tts.piper.sentence_silence", d.Piper.SentenceSilence.String())
	v.SetDefault("tts.piper.timeout", d.Piper.Timeout.String())

	v.SetDefault("tts.mock.words_per_minute", d.Mock.WordsPerMinute)
	v.SetDefault("tts.mock.failure_rate", d.Mock.FailureRate)

	v.SetDefault("tts.cache.enabled", d.Cache.Enabled)
	v.SetDefault("tts.cache.memory_mb", d.Cache.MemoryMB)
	v.SetDefault("tts.cache.disk_mb", d.Cache.DiskMB)
	v.SetDefault("tts.cache.compression_level", d.Cache.Compress)
	v.SetDefault("tts.cache.ttl", d.Cache.TTL.String())
}

func setString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		*dst = v.GetString(key)
	}
}

func setInt(v *viper.Viper, key string, dst *int) {
	if v.IsSet(key) {
		*dst = v.GetInt(key)
	}
}

func setFloat(v *viper.Viper, key string, dst *float64) {
	if v.IsSet(key) {
		*dst = v.GetFloat64(key)
	}
}
