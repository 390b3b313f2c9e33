package cache

import (
	"bytes"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	config := DefaultConfig(t.TempDir())
	config.MemoryCapacity = 1024
	config.DiskCapacity = 1 << 20
	config.PruneInterval = 0

	s, err := Open(config)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_Levels(t *testing.T) {
	s := newTestStore(t)

	if _, level := s.Get("missing"); level != LevelNone {
		t.Errorf("level = %v, want miss", level)
	}

	s.Put("k", []byte("pcm"))
	if data, level := s.Get("k"); level != LevelMemory || string(data) != "pcm" {
		t.Errorf("Get = %q from %v, want pcm from memory", data, level)
	}

	// Drop the memory copy; the next lookup hits disk and promotes.
	s.memory.Delete("k")
	if _, level := s.Get("k"); level != LevelDisk {
		t.Errorf("level = %v, want disk", level)
	}
	if _, level := s.Get("k"); level != LevelMemory {
		t.Errorf("level after promotion = %v, want memory", level)
	}
	if p := s.Stats().Promotions; p != 1 {
		t.Errorf("promotions = %d, want 1", p)
	}
}

func TestStore_LargeItemSkipsMemory(t *testing.T) {
	s := newTestStore(t)

	big := bytes.Repeat([]byte("x"), 4096)
	if err := s.Put("big", big); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if s.memory.Contains("big") {
		t.Error("item larger than memory capacity should not be in memory")
	}
	if data, level := s.Get("big"); level != LevelDisk || !bytes.Equal(data, big) {
		t.Errorf("Get from %v returned %d bytes", level, len(data))
	}
}

func TestStore_ClearAndPrune(t *testing.T) {
	s := newTestStore(t)
	s.config.TTL = time.Millisecond

	s.Put("a", []byte("1"))
	time.Sleep(5 * time.Millisecond)

	memory, disk := s.Prune()
	if memory != 1 || disk != 1 {
		t.Errorf("Prune = %d, %d; want 1, 1", memory, disk)
	}

	s.Put("b", []byte("2"))
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	sum := s.Stats()
	if sum.Memory.Items != 0 || sum.Disk.Items != 0 {
		t.Errorf("Stats after clear = %+v", sum)
	}
}

func TestKey(t *testing.T) {
	base := Key("hello", "en_US-amy", 1, 1)

	tests := []struct {
		name string
		key  string
		same bool
	}{
		{"identical", Key("hello", "en_US-amy", 1, 1), true},
		{"rounded rate", Key("hello", "en_US-amy", 1.001, 1), true},
		{"text", Key("hello!", "en_US-amy", 1, 1), false},
		{"voice", Key("hello", "en_GB-alan", 1, 1), false},
		{"rate", Key("hello", "en_US-amy", 1.5, 1), false},
		{"pitch", Key("hello", "en_US-amy", 1, 0.5), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if (tt.key == base) != tt.same {
				t.Errorf("Key equality = %v, want %v", tt.key == base, tt.same)
			}
		})
	}
	if len(base) != 32 {
		t.Errorf("key length = %d, want 32", len(base))
	}
}

func TestLevelString(t *testing.T) {
	for level, want := range map[Level]string{LevelNone: "miss", LevelMemory: "memory", LevelDisk: "disk", Level(9): "unknown"} {
		if got := level.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", level, got, want)
		}
	}
}
