// Package cache provides TTL-bounded stores for API read responses
package cache

import (
	"time"
)

// Store is a key/value cache with per-entry expiry. Values are the raw JSON payloads of
// API responses. None of the operations can fail.
//
// Expiry is lazy: an entry is never returned once its expiry has passed, but it is only
// physically removed when it is read again, overwritten or cleared.
type Store interface {
	// Get returns the value only if it has not expired yet
	Get(key string) ([]byte, bool)

	// Set stores value under key, replacing any previous entry. A ttl <= 0 stores an
	// entry that is already expired.
	Set(key string, value []byte, ttl time.Duration)

	// Clear removes one entry; it is a no-op if the key is absent
	Clear(key string)

	// ClearAll removes every entry. The store stays usable.
	ClearAll()
}

// PrefixClearer is implemented by stores that can drop every key sharing a prefix
type PrefixClearer interface {
	ClearPrefix(prefix string) int
}

// StatsReporter is implemented by stores that keep counters
type StatsReporter interface {
	Stats() Stats
}

// Stats holds cache statistics
type Stats struct {
	Hits      uint64  // Number of cache hits
	Misses    uint64  // Number of cache misses, expired entries included
	Sets      uint64  // Number of cache sets
	Deletes   uint64  // Number of explicit deletes
	Evictions uint64  // Number of entries dropped for expiry or size
	Size      int     // Current number of items, expired-but-unread ones included
	MaxSize   int     // Maximum cache size (0 = unlimited)
	HitRate   float64 // Cache hit rate (0.0 - 1.0)
}

// Entry represents a cached entry
type Entry struct {
	Value      []byte
	ExpiresAt  time.Time
	CreatedAt  time.Time
	AccessedAt time.Time
}

// ExpiredAt reports whether the entry is logically gone at now
func (e *Entry) ExpiredAt(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Clock returns the current time. Tests substitute a fake one.
type Clock func() time.Time
