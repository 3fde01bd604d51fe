package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/mitchellh/go-homedir"
)

// Manager coordinates the memory and disk tiers. Disk hits are promoted to
// memory; writes reach the disk tier in the background.
type Manager struct {
	memory *MemoryCache
	disk   *DiskCache // nil when DiskPath is unset

	cfg    Config
	logger *log.Logger

	writes sync.WaitGroup

	stop    chan struct{}
	sweeper sync.WaitGroup

	mu     sync.Mutex
	closed bool
	stats  ManagerStats
}

// ManagerStats aggregates both tiers.
type ManagerStats struct {
	Hits       int64
	Misses     int64
	MemoryHits int64
	DiskHits   int64
	Memory     Stats
	Disk       Stats
}

// NewManager creates a cache manager from cfg.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.MemoryCapacity <= 0 {
		cfg.MemoryCapacity = DefaultConfig().MemoryCapacity
	}

	m := &Manager{
		memory: NewMemoryCache(cfg.MemoryCapacity),
		cfg:    cfg,
		logger: log.WithPrefix("cache"),
		stop:   make(chan struct{}),
	}

	if cfg.DiskPath != "" {
		dir, err := homedir.Expand(cfg.DiskPath)
		if err != nil {
			return nil, fmt.Errorf("failed to expand cache path: %w", err)
		}
		if cfg.DiskCapacity <= 0 {
			cfg.DiskCapacity = DefaultConfig().DiskCapacity
		}
		m.disk, err = NewDiskCache(dir, cfg.DiskCapacity, cfg.CompressionLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create disk cache: %w", err)
		}
		m.logger.Debug("disk cache opened",
			"dir", dir,
			"used", humanize.Bytes(uint64(m.disk.Size())),
			"capacity", humanize.Bytes(uint64(cfg.DiskCapacity)))

		if cfg.CleanupInterval > 0 && cfg.TTL > 0 {
			m.startSweeper()
		}
	}

	return m, nil
}

// Get looks key up in memory, then on disk.
func (m *Manager) Get(key string) ([]byte, bool) {
	if data, ok := m.memory.Get(key); ok {
		m.count(func(s *ManagerStats) { s.Hits++; s.MemoryHits++ })
		return data, true
	}

	if m.disk != nil {
		if data, ok := m.disk.Get(key); ok {
			m.count(func(s *ManagerStats) { s.Hits++; s.DiskHits++ })
			_ = m.memory.Put(key, data)
			return data, true
		}
	}

	m.count(func(s *ManagerStats) { s.Misses++ })
	return nil, false
}

// Put stores value in memory and schedules the disk write.
func (m *Manager) Put(key string, value []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.disk != nil {
		m.writes.Add(1)
	}
	m.mu.Unlock()

	if err := m.memory.Put(key, value); err != nil && err != ErrItemTooLarge {
		return fmt.Errorf("memory cache: %w", err)
	}

	if m.disk != nil {
		go func() {
			defer m.writes.Done()
			if err := m.disk.Put(key, value); err != nil {
				m.logger.Warn("disk cache write failed", "err", err, "size", humanize.Bytes(uint64(len(value))))
			}
		}()
	}
	return nil
}

// Stats returns counters for both tiers.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	s := m.stats
	m.mu.Unlock()

	s.Memory = m.memory.Stats()
	if m.disk != nil {
		s.Disk = m.disk.Stats()
	}
	return s
}

// Close waits for pending disk writes, stops the sweeper and saves the
// disk index.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.stop)
	m.sweeper.Wait()
	m.writes.Wait()

	s := m.Stats()
	m.logger.Debug("cache closed",
		"hits", s.Hits,
		"misses", s.Misses,
		"memory", humanize.Bytes(uint64(s.Memory.Size)),
		"disk", humanize.Bytes(uint64(s.Disk.Size)))

	if m.disk != nil {
		if err := m.disk.Close(); err != nil {
			return fmt.Errorf("failed to close disk cache: %w", err)
		}
	}
	return nil
}

func (m *Manager) count(f func(*ManagerStats)) {
	m.mu.Lock()
	f(&m.stats)
	m.mu.Unlock()
}

func (m *Manager) startSweeper() {
	ticker := time.NewTicker(m.cfg.CleanupInterval)
	m.sweeper.Add(1)

	go func() {
		defer m.sweeper.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := m.disk.RemoveOlderThan(time.Now().Add(-m.cfg.TTL)); n > 0 {
					m.logger.Debug("expired disk cache entries", "count", n)
				}
			case <-m.stop:
				return
			}
		}
	}()
}
