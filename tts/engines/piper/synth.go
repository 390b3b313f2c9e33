package piper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/readalong/tts"
)

// Synthesizer turns text into 16-bit mono PCM at the model's sample rate.
type Synthesizer interface {
	Available() bool
	Synthesize(ctx context.Context, model Model, text string, rate float64) ([]byte, error)
}

// Process runs a fresh piper process per utterance.
type Process struct {
	config tts.PiperConfig
	binary string
}

// NewProcess creates a synthesizer for the configured piper binary.
func NewProcess(config tts.PiperConfig) *Process {
	return &Process{
		config: config,
		binary: findBinary(config.Binary),
	}
}

// Available reports whether the piper binary was found.
func (p *Process) Available() bool {
	return p.binary != ""
}

// Synthesize writes text to piper's stdin and collects raw PCM from stdout.
// Stdin is set before the process starts so piper always sees EOF.
func (p *Process) Synthesize(ctx context.Context, model Model, text string, rate float64) ([]byte, error) {
	if !p.Available() {
		return nil, fmt.Errorf("%w: piper binary %q not found", tts.ErrBackendUnavailable, p.config.Binary)
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.binary, p.args(model, rate)...)
	cmd.Stdin = strings.NewReader(text + "\n")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return nil, fmt.Errorf("piper timed out after %v", p.config.Timeout)
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case err != nil:
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("piper failed: %w: %s", err, lastLine(msg))
		}
		return nil, fmt.Errorf("piper failed: %w", err)
	case stdout.Len() == 0:
		return nil, errors.New("piper produced no audio")
	}

	log.Debug("Synthesized segment", "model", model.Voice.ID, "bytes", stdout.Len(), "took", time.Since(start))
	return stdout.Bytes(), nil
}

func (p *Process) args(model Model, rate float64) []string {
	if rate <= 0 {
		rate = 1
	}

	args := []string{
		"--model", model.Path,
		"--output-raw",
		"--length_scale", strconv.FormatFloat(1/rate, 'f', 3, 64),
		"--noise_scale", strconv.FormatFloat(p.config.NoiseScale, 'f', 3, 64),
		"--noise_w", strconv.FormatFloat(p.config.NoiseW, 'f', 3, 64),
		"--sentence_silence", strconv.FormatFloat(p.config.SentenceSilence.Seconds(), 'f', 3, 64),
	}
	if model.ConfigPath != "" {
		args = append(args, "--config", model.ConfigPath)
	}
	if model.Speakers > 1 {
		args = append(args, "--speaker", strconv.Itoa(p.config.SpeakerID))
	}
	return args
}

// findBinary resolves binary on PATH and in common install locations.
func findBinary(binary string) string {
	if binary == "" {
		binary = "piper"
	}

	locations := []string{binary}
	if !strings.ContainsRune(binary, os.PathSeparator) {
		if home, err := os.UserHomeDir(); err == nil {
			locations = append(locations,
				filepath.Join(home, ".local", "bin", binary),
				filepath.Join(home, "bin", binary),
			)
		}
		locations = append(locations, filepath.Join("/usr", "local", "bin", binary))
	}

	for _, loc := range locations {
		if path, err := exec.LookPath(loc); err == nil {
			return path
		}
	}
	return ""
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
