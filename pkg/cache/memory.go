package cache

import (
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store
type MemoryStore struct {
	mu      sync.Mutex
	data    map[string]*Entry
	maxSize int
	now     Clock
	stats   Stats
}

// MemoryConfig holds configuration for the memory store
type MemoryConfig struct {
	MaxSize int   // Maximum number of entries (0 = unlimited)
	Clock   Clock // Time source, defaults to time.Now
}

// DefaultMemoryConfig returns default memory store configuration
func DefaultMemoryConfig() *MemoryConfig {
	return &MemoryConfig{
		MaxSize: 1000,
		Clock:   time.Now,
	}
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(config *MemoryConfig) *MemoryStore {
	if config == nil {
		config = DefaultMemoryConfig()
	}

	clock := config.Clock
	if clock == nil {
		clock = time.Now
	}

	m := &MemoryStore{
		data:    make(map[string]*Entry),
		maxSize: config.MaxSize,
		now:     clock,
	}
	m.stats.MaxSize = config.MaxSize

	return m
}

// Get retrieves a live value from the store. Expired entries are removed on the spot.
func (m *MemoryStore) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.data[key]
	if !exists {
		m.stats.Misses++
		m.updateHitRate()
		return nil, false
	}

	now := m.now()
	if entry.ExpiredAt(now) {
		delete(m.data, key)
		m.stats.Evictions++
		m.stats.Misses++
		m.updateHitRate()
		return nil, false
	}

	entry.AccessedAt = now
	m.stats.Hits++
	m.updateHitRate()

	return entry.Value, true
}

// Set stores a value with a TTL
func (m *MemoryStore) Set(key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data[key]; !exists && m.maxSize > 0 && len(m.data) >= m.maxSize {
		m.evict()
	}

	now := m.now()
	m.data[key] = &Entry{
		Value:      value,
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
		AccessedAt: now,
	}

	m.stats.Sets++
}

// Clear removes a value from the store
func (m *MemoryStore) Clear(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data[key]; exists {
		delete(m.data, key)
		m.stats.Deletes++
	}
}

// ClearAll removes all values from the store
func (m *MemoryStore) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.Deletes += uint64(len(m.data))
	m.data = make(map[string]*Entry)
}

// ClearPrefix removes every key starting with prefix and returns how many were removed
func (m *MemoryStore) ClearPrefix(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			delete(m.data, key)
			removed++
		}
	}
	m.stats.Deletes += uint64(removed)

	return removed
}

// Len returns the number of stored entries, including expired ones not read since expiry
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// Stats returns store statistics
func (m *MemoryStore) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	statsCopy := m.stats
	statsCopy.Size = len(m.data)
	return statsCopy
}

// evict makes room for one entry: an expired entry if there is one, otherwise the least
// recently accessed one.
func (m *MemoryStore) evict() {
	now := m.now()

	var oldestKey string
	var oldestTime time.Time

	for key, entry := range m.data {
		if entry.ExpiredAt(now) {
			oldestKey = key
			break
		}
		if oldestKey == "" || entry.AccessedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.AccessedAt
		}
	}

	if oldestKey != "" {
		delete(m.data, oldestKey)
		m.stats.Evictions++
	}
}

// updateHitRate calculates the cache hit rate
func (m *MemoryStore) updateHitRate() {
	total := m.stats.Hits + m.stats.Misses
	if total > 0 {
		m.stats.HitRate = float64(m.stats.Hits) / float64(total)
	}
}
