package engines

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/dgnsrekt/readalong/tts"
	"github.com/dgnsrekt/readalong/tts/engines/mock"
)

func mockFactory(name string, available bool, opened *[]string) Factory {
	return func(tts.Config) (*Engine, error) {
		*opened = append(*opened, name)
		b := mock.New()
		b.SetAvailable(available)
		return &Engine{Name: name, Backend: b}, nil
	}
}

func TestSelectorOpen(t *testing.T) {
	tests := []struct {
		name      string
		engine    string
		available map[string]bool
		want      string
		wantErr   error
		opened    []string
	}{
		{
			name:      "auto prefers first",
			engine:    tts.EngineAuto,
			available: map[string]bool{"piper": true, "espeak": true},
			want:      "piper",
			opened:    []string{"piper"},
		},
		{
			name:      "auto falls back",
			engine:    "",
			available: map[string]bool{"piper": false, "espeak": true},
			want:      "espeak",
			opened:    []string{"piper", "espeak"},
		},
		{
			name:      "auto finds nothing",
			engine:    tts.EngineAuto,
			available: map[string]bool{},
			wantErr:   tts.ErrBackendUnavailable,
			opened:    []string{"piper", "espeak"},
		},
		{
			name:      "named engine",
			engine:    "Espeak",
			available: map[string]bool{"piper": true, "espeak": true},
			want:      "espeak",
			opened:    []string{"espeak"},
		},
		{
			name:      "named engine missing",
			engine:    tts.EnginePiper,
			available: map[string]bool{"espeak": true},
			wantErr:   tts.ErrBackendUnavailable,
			opened:    []string{"piper"},
		},
		{
			name:    "unknown engine",
			engine:  "festival",
			wantErr: tts.ErrConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opened []string
			s := Selector{
				Factories: map[string]Factory{
					"piper":  mockFactory("piper", tt.available["piper"], &opened),
					"espeak": mockFactory("espeak", tt.available["espeak"], &opened),
				},
				Auto: []string{"piper", "espeak"},
			}

			config := tts.DefaultConfig()
			config.Engine = tt.engine
			e, err := s.Open(config)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Open() error = %v, want %v", err, tt.wantErr)
				}
			} else {
				if err != nil {
					t.Fatalf("Open() error = %v", err)
				}
				if e.Name != tt.want {
					t.Errorf("opened %q, want %q", e.Name, tt.want)
				}
			}

			if len(opened) != len(tt.opened) {
				t.Fatalf("factories called %v, want %v", opened, tt.opened)
			}
			for i := range opened {
				if opened[i] != tt.opened[i] {
					t.Errorf("factories called %v, want %v", opened, tt.opened)
				}
			}
		})
	}
}

func TestOpenMock(t *testing.T) {
	e, err := DefaultSelector().Open(tts.Config{Engine: tts.EngineMock, Mock: tts.DefaultMockConfig()})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer e.Close()

	if e.Name != tts.EngineMock || len(e.Backend.Voices()) == 0 {
		t.Errorf("mock engine = %+v", e)
	}
	if err := e.Watch(context.Background()); err != nil {
		t.Errorf("Watch() without watcher = %v", err)
	}
}

func TestCacheConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "audio")
	cc, err := CacheConfig(tts.CacheConfig{Dir: dir, MemoryMB: 2, DiskMB: 8, TTL: 3600e9, Compress: 5})
	if err != nil {
		t.Fatalf("CacheConfig() error = %v", err)
	}
	if cc.Dir != dir || cc.MemoryCapacity != 2<<20 || cc.DiskCapacity != 8<<20 || cc.CompressionLevel != 5 {
		t.Errorf("CacheConfig() = %+v", cc)
	}
	if cc.TTL.Hours() != 1 {
		t.Errorf("TTL = %v, want 1h", cc.TTL)
	}

	cc, err = CacheConfig(tts.CacheConfig{})
	if err == nil && filepath.Base(cc.Dir) != "audio" {
		t.Errorf("default dir = %q", cc.Dir)
	}
}
