package piper

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/readalong/tts"
	"github.com/dgnsrekt/readalong/tts/voices"
)

const (
	modelExt  = ".onnx"
	configExt = ".onnx.json"
)

// Model is an installed piper voice model.
type Model struct {
	Voice      tts.Voice
	Path       string // .onnx file
	ConfigPath string // .onnx.json file, empty if missing
	SampleRate int
	Quality    string
	Speakers   int
}

// modelConfig is the subset of a piper .onnx.json file we read.
type modelConfig struct {
	Audio struct {
		SampleRate int    `json:"sample_rate"`
		Quality    string `json:"quality"`
	} `json:"audio"`
	Language struct {
		Code        string `json:"code"`
		NameEnglish string `json:"name_english"`
	} `json:"language"`
	Dataset     string `json:"dataset"`
	NumSpeakers int    `json:"num_speakers"`
}

// ScanModels finds every .onnx model below dir. Model metadata comes from
// the accompanying .onnx.json file, or from the conventional
// lang_REGION-name-quality file name when that is missing.
func ScanModels(dir string) ([]Model, error) {
	var models []Model

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(path, modelExt) {
			return nil
		}

		m, err := loadModel(path)
		if err != nil {
			log.Warn("Skipping piper model", "path", path, "error", err)
			return nil
		}
		models = append(models, m)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	sort.Slice(models, func(i, j int) bool { return models[i].Voice.ID < models[j].Voice.ID })
	return models, nil
}

func loadModel(path string) (Model, error) {
	id := strings.TrimSuffix(filepath.Base(path), modelExt)
	lang, name, quality := parseModelName(id)

	m := Model{
		Path:       path,
		SampleRate: 22050,
		Quality:    quality,
		Speakers:   1,
	}

	configPath := strings.TrimSuffix(path, modelExt) + configExt
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		var cfg modelConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Model{}, fmt.Errorf("parse %s: %w", filepath.Base(configPath), err)
		}
		m.ConfigPath = configPath
		if cfg.Audio.SampleRate > 0 {
			m.SampleRate = cfg.Audio.SampleRate
		}
		if cfg.Audio.Quality != "" {
			m.Quality = cfg.Audio.Quality
		}
		if cfg.Language.Code != "" {
			lang = cfg.Language.Code
		}
		if cfg.Dataset != "" {
			name = cfg.Dataset
		}
		if cfg.NumSpeakers > 0 {
			m.Speakers = cfg.NumSpeakers
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return Model{}, err
	}

	display := name
	if m.Quality != "" {
		display = fmt.Sprintf("%s (%s)", name, m.Quality)
	}

	m.Voice = tts.Voice{
		ID:       id,
		Name:     display,
		Language: voices.CanonicalTag(lang),
		Local:    true,
	}
	return m, nil
}

// parseModelName splits names like en_US-lessac-medium.
func parseModelName(id string) (lang, name, quality string) {
	parts := strings.Split(id, "-")
	switch len(parts) {
	case 1:
		return "", parts[0], ""
	case 2:
		return parts[0], parts[1], ""
	default:
		return parts[0], strings.Join(parts[1:len(parts)-1], "-"), parts[len(parts)-1]
	}
}
