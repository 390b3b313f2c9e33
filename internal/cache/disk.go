package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zstd"
)

const (
	rawExt        = ".pcm"
	compressedExt = ".pcm.zst"

	// Items at or below this size are stored uncompressed.
	compressThreshold = 1024
)

// Disk is a persistent cache with one file per entry. A file's modification
// time records when the entry was last used, so no separate index is kept.
type Disk struct {
	dir      string
	capacity int64

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	mu      sync.Mutex
	entries map[string]*diskEntry
	size    int64
	stats   Stats
}

type diskEntry struct {
	size       int64 // Bytes on disk
	lastUsed   time.Time
	compressed bool
}

// OpenDisk opens or creates a disk cache in dir. A compressionLevel of 0
// stores entries uncompressed.
func OpenDisk(dir string, capacity int64, compressionLevel int) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	d := &Disk{
		dir:      dir,
		capacity: capacity,
		entries:  make(map[string]*diskEntry),
	}

	var err error
	d.decoder, err = zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	if compressionLevel > 0 {
		d.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			d.decoder.Close()
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	}

	if err := d.scan(); err != nil {
		d.Close()
		return nil, err
	}

	return d, nil
}

// Get reads the entry for key.
func (d *Disk) Get(key string) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.entries[key]
	if !ok {
		d.stats.Misses++
		return nil, false
	}

	path := d.path(key, entry.compressed)
	data, err := os.ReadFile(path)
	if err == nil && entry.compressed {
		data, err = d.decoder.DecodeAll(data, nil)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrCorrupted, err)
		}
	}
	if err != nil {
		log.Debug("Dropping unreadable cache entry", "key", key, "error", err)
		d.drop(key, entry)
		d.stats.Misses++
		return nil, false
	}

	now := time.Now()
	entry.lastUsed = now
	_ = os.Chtimes(path, now, now)

	d.stats.Hits++
	return data, true
}

// Put writes value under key, evicting least recently used entries until it
// fits.
func (d *Disk) Put(key string, value []byte) error {
	data, compressed := value, false
	if d.encoder != nil && len(value) > compressThreshold {
		if packed := d.encoder.EncodeAll(value, nil); len(packed) < len(value) {
			data, compressed = packed, true
		}
	}

	n := int64(len(data))
	if n > d.capacity {
		return ErrItemTooLarge
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if old, ok := d.entries[key]; ok {
		d.drop(key, old)
	}
	d.evict(d.capacity - n)

	path := d.path(key, compressed)
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	d.entries[key] = &diskEntry{size: n, lastUsed: time.Now(), compressed: compressed}
	d.size += n
	return nil
}

// Contains reports whether key is stored.
func (d *Disk) Contains(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.entries[key]
	return ok
}

// Delete removes key. Missing keys are ignored.
func (d *Disk) Delete(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if entry, ok := d.entries[key]; ok {
		d.drop(key, entry)
	}
}

// Clear removes every entry.
func (d *Disk) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for key, entry := range d.entries {
		if err := os.Remove(d.path(key, entry.compressed)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	d.entries = make(map[string]*diskEntry)
	d.size = 0

	return errors.Join(errs...)
}

// Prune removes entries not used since cutoff and returns how many were
// removed.
func (d *Disk) Prune(cutoff time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for key, entry := range d.entries {
		if entry.lastUsed.Before(cutoff) {
			d.drop(key, entry)
			removed++
		}
	}
	return removed
}

// Stats returns a snapshot of the counters.
func (d *Disk) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.stats
	s.Capacity = d.capacity
	s.Size = d.size
	s.Items = len(d.entries)
	return s
}

// Dir returns the cache directory.
func (d *Disk) Dir() string {
	return d.dir
}

// Close releases the codec resources.
func (d *Disk) Close() error {
	if d.encoder != nil {
		if err := d.encoder.Close(); err != nil {
			return err
		}
	}
	d.decoder.Close()
	return nil
}

func (d *Disk) path(key string, compressed bool) string {
	if compressed {
		return filepath.Join(d.dir, key+compressedExt)
	}
	return filepath.Join(d.dir, key+rawExt)
}

// scan rebuilds the in-memory view from the directory contents.
func (d *Disk) scan() error {
	files, err := os.ReadDir(d.dir)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	for _, f := range files {
		name := f.Name()
		if f.IsDir() {
			continue
		}
		if strings.HasSuffix(name, ".tmp") {
			_ = os.Remove(filepath.Join(d.dir, name))
			continue
		}

		var key string
		var compressed bool
		switch {
		case strings.HasSuffix(name, compressedExt):
			key, compressed = strings.TrimSuffix(name, compressedExt), true
		case strings.HasSuffix(name, rawExt):
			key = strings.TrimSuffix(name, rawExt)
		default:
			continue
		}

		info, err := f.Info()
		if err != nil {
			continue
		}
		d.entries[key] = &diskEntry{size: info.Size(), lastUsed: info.ModTime(), compressed: compressed}
		d.size += info.Size()
	}

	log.Debug("Opened disk cache", "dir", d.dir, "items", len(d.entries), "bytes", d.size)
	return nil
}

// evict removes least recently used entries until size is at most target.
// Must be called with the lock held.
func (d *Disk) evict(target int64) {
	if d.size <= target {
		return
	}

	keys := make([]string, 0, len(d.entries))
	for key := range d.entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return d.entries[keys[i]].lastUsed.Before(d.entries[keys[j]].lastUsed)
	})

	for _, key := range keys {
		if d.size <= target {
			return
		}
		d.drop(key, d.entries[key])
		d.stats.Evictions++
	}
}

// drop must be called with the lock held.
func (d *Disk) drop(key string, entry *diskEntry) {
	_ = os.Remove(d.path(key, entry.compressed))
	delete(d.entries, key)
	d.size -= entry.size
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
