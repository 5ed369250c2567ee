package cache

import (
	"strings"
	"time"

	"github.com/viccon/sturdyc"
)

// SturdycConfig holds the configuration for the sturdyc backed store
type SturdycConfig struct {
	// Capacity defines the maximum number of entries. Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access. Must be greater than 0.
	NumShards int

	// MaxTTL is the lifetime sturdyc enforces on its own. Entries asking for a longer TTL are
	// dropped by sturdyc once MaxTTL has passed. Must be greater than 0.
	MaxTTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict when the cache is full.
	// Must be between 1-100.
	EvictionPercentage int

	// Clock is the time source for per-entry expiry, defaults to time.Now
	Clock Clock
}

// DefaultSturdycConfig returns a config sized for a single storefront session
func DefaultSturdycConfig() SturdycConfig {
	return SturdycConfig{
		Capacity:           10000,
		NumShards:          64,
		MaxTTL:             30 * time.Minute,
		EvictionPercentage: 10,
		Clock:              time.Now,
	}
}

// Validate checks if the configuration values are valid
func (c SturdycConfig) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}
	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}
	if c.MaxTTL <= 0 {
		return &ConfigError{Field: "MaxTTL", Message: "must be greater than 0"}
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}
	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

type sturdyEntry struct {
	value     []byte
	expiresAt time.Time
}

// SturdycStore implements Store on top of a sturdyc client. sturdyc only knows a cache-wide
// TTL, so the per-entry expiry is stored next to the value and checked on every read.
type SturdycStore struct {
	client *sturdyc.Client[sturdyEntry]
	now    Clock
}

// NewSturdycStore validates cfg and creates the store
func NewSturdycStore(cfg SturdycConfig) (*SturdycStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	client := sturdyc.New[sturdyEntry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.MaxTTL,
		cfg.EvictionPercentage,
	)

	return &SturdycStore{client: client, now: clock}, nil
}

// Get implements Store.Get
func (s *SturdycStore) Get(key string) ([]byte, bool) {
	entry, ok := s.client.Get(key)
	if !ok {
		return nil, false
	}
	if !s.now().Before(entry.expiresAt) {
		s.client.Delete(key)
		return nil, false
	}
	return entry.value, true
}

// Set implements Store.Set
func (s *SturdycStore) Set(key string, value []byte, ttl time.Duration) {
	s.client.Set(key, sturdyEntry{value: value, expiresAt: s.now().Add(ttl)})
}

// Clear implements Store.Clear
func (s *SturdycStore) Clear(key string) {
	s.client.Delete(key)
}

// ClearAll implements Store.ClearAll
func (s *SturdycStore) ClearAll() {
	for _, key := range s.client.ScanKeys() {
		s.client.Delete(key)
	}
}

// ClearPrefix removes all entries whose key starts with prefix
func (s *SturdycStore) ClearPrefix(prefix string) int {
	removed := 0
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries held by sturdyc
func (s *SturdycStore) Len() int {
	return s.client.Size()
}
