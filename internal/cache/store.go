package cache

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// Store coordinates the memory and disk tiers. Disk hits are promoted to
// memory; a background pruner drops entries older than the TTL.
type Store struct {
	memory *Memory
	disk   *Disk
	config Config

	promotions atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Summary aggregates both tiers.
type Summary struct {
	Memory     Stats
	Disk       Stats
	Promotions int64
	Dir        string
}

// Open creates a store with the given configuration.
func Open(config Config) (*Store, error) {
	if config.Dir == "" {
		return nil, errors.New("cache directory not set")
	}

	disk, err := OpenDisk(config.Dir, config.DiskCapacity, config.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create disk cache: %w", err)
	}

	s := &Store{
		memory: NewMemory(config.MemoryCapacity),
		disk:   disk,
		config: config,
		stop:   make(chan struct{}),
	}

	if config.TTL > 0 && config.PruneInterval > 0 {
		s.wg.Add(1)
		go s.pruneLoop()
	}

	return s, nil
}

// Get looks key up in memory, then on disk. It returns the tier that
// served the lookup, or LevelNone.
func (s *Store) Get(key string) ([]byte, Level) {
	if data, ok := s.memory.Get(key); ok {
		return data, LevelMemory
	}

	if data, ok := s.disk.Get(key); ok {
		if err := s.memory.Put(key, data); err == nil {
			s.promotions.Add(1)
		}
		return data, LevelDisk
	}

	return nil, LevelNone
}

// Put stores value in both tiers. An item too large for memory is still
// written to disk.
func (s *Store) Put(key string, value []byte) error {
	if err := s.memory.Put(key, value); err != nil && !errors.Is(err, ErrItemTooLarge) {
		return fmt.Errorf("memory cache: %w", err)
	}
	if err := s.disk.Put(key, value); err != nil {
		return fmt.Errorf("disk cache: %w", err)
	}
	return nil
}

// Delete removes key from both tiers.
func (s *Store) Delete(key string) {
	s.memory.Delete(key)
	s.disk.Delete(key)
}

// Clear empties both tiers.
func (s *Store) Clear() error {
	s.memory.Clear()
	if err := s.disk.Clear(); err != nil {
		return fmt.Errorf("disk cache: %w", err)
	}
	return nil
}

// Prune removes entries older than the TTL and returns how many were
// removed from each tier.
func (s *Store) Prune() (memory, disk int) {
	if s.config.TTL <= 0 {
		return 0, 0
	}
	memory = s.memory.Prune(s.config.TTL)
	disk = s.disk.Prune(time.Now().Add(-s.config.TTL))
	if memory+disk > 0 {
		log.Debug("Pruned audio cache", "memory", memory, "disk", disk)
	}
	return memory, disk
}

// Stats returns counters for both tiers.
func (s *Store) Stats() Summary {
	return Summary{
		Memory:     s.memory.Stats(),
		Disk:       s.disk.Stats(),
		Promotions: s.promotions.Load(),
		Dir:        s.disk.Dir(),
	}
}

// Close stops the pruner and releases the disk tier.
func (s *Store) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
	return s.disk.Close()
}

func (s *Store) pruneLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Prune()
		case <-s.stop:
			return
		}
	}
}
