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

	// ErrClosed is returned by Put after Close
	ErrClosed = errors.New("cache closed")
)

// Level represents the cache tier
type Level int

const (
	// LevelMemory is the in-memory LRU tier
	LevelMemory Level = iota

	// LevelDisk is the persistent disk tier
	LevelDisk
)

func (l Level) String() string {
	switch l {
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
	Capacity  int64 // Maximum capacity in bytes
	Size      int64 // Current size in bytes
	Items     int
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate returns hits / (hits + misses).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Config holds configuration for a Manager.
type Config struct {
	// MemoryCapacity bounds the L1 tier in bytes.
	MemoryCapacity int64

	// DiskPath enables the L2 tier when set.
	DiskPath     string
	DiskCapacity int64

	// CompressionLevel is the zstd level (1-22). Zero stores files raw.
	CompressionLevel int

	// TTL drops disk entries older than this during cleanup. Zero keeps them.
	TTL time.Duration

	// CleanupInterval is how often the TTL sweep runs. Zero disables it.
	CleanupInterval time.Duration
}

// DefaultConfig returns a memory-only configuration.
func DefaultConfig() Config {
	return Config{
		MemoryCapacity:   32 * 1024 * 1024,
		DiskCapacity:     512 * 1024 * 1024,
		CompressionLevel: 3,
		TTL:              7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// Key builds a cache key from the spoken text, the voice identity and the
// engine name.
func Key(text, voice, engine string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%s", engine, voice, text)))
	return hex.EncodeToString(sum[:16])
}
