package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Common errors for cache operations
var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCorrupted is returned when a stored item cannot be decoded
	ErrCorrupted = errors.New("cache data corrupted")
)

// Level identifies which tier served a lookup.
type Level int

const (
	// LevelNone means the lookup missed both tiers.
	LevelNone Level = iota
	// LevelMemory is the in-process LRU.
	LevelMemory
	// LevelDisk is the persistent store.
	LevelDisk
)

// String returns the string representation of the cache level
func (l Level) String() string {
	switch l {
	case LevelNone:
		return "miss"
	case LevelMemory:
		return "memory"
	case LevelDisk:
		return "disk"
	default:
		return "unknown"
	}
}

// Stats holds counters for one tier.
type Stats struct {
	Capacity  int64 // Maximum size in bytes
	Size      int64 // Current size in bytes
	Items     int
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Config holds configuration for a Store.
type Config struct {
	MemoryCapacity   int64         // Bytes
	DiskCapacity     int64         // Bytes
	Dir              string        // Directory for cache files
	CompressionLevel int           // Zstd level, 0 disables compression
	TTL              time.Duration // Age after which entries are pruned, 0 keeps forever
	PruneInterval    time.Duration // How often to prune, 0 disables the background pruner
}

// DefaultConfig returns the default configuration rooted at dir.
func DefaultConfig(dir string) Config {
	return Config{
		MemoryCapacity:   64 << 20,
		DiskCapacity:     512 << 20,
		Dir:              dir,
		CompressionLevel: 3,
		TTL:              7 * 24 * time.Hour,
		PruneInterval:    time.Hour,
	}
}

// Key derives the cache key for a synthesized utterance. Every parameter
// that changes the produced audio takes part.
func Key(text, voice string, rate, pitch float64) string {
	data := fmt.Sprintf("%s|%s|%.2f|%.2f", voice, text, rate, pitch)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16])
}
