package cache

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// KeySeparator defines the delimiter used between cache key segments
const KeySeparator = ":"

// KeyGenerator builds cache keys from a resource family, an operation name and query parameters.
// Keys always start with "family:" so that a family can be invalidated by prefix.
type KeyGenerator interface {
	GenerateKey(family, operation string, params url.Values) string
}

// DefaultKeyGenerator appends a hash of the canonical parameter encoding
type DefaultKeyGenerator struct{}

// NewDefaultKeyGenerator creates a new default key generator
func NewDefaultKeyGenerator() *DefaultKeyGenerator {
	return &DefaultKeyGenerator{}
}

// GenerateKey generates a key based on family, operation and a hash of the params.
// Equivalent parameter sets (any key or value order, empty values) produce the same key.
func (g *DefaultKeyGenerator) GenerateKey(family, operation string, params url.Values) string {
	base := joinKey(family, operation)

	canonical := Canonical(params)
	if canonical == "" {
		return base
	}

	return base + KeySeparator + strconv.FormatUint(xxhash.Sum64String(canonical), 16)
}

// ReadableKeyGenerator appends the canonical parameter encoding itself. Keys get long but
// can be read in logs.
type ReadableKeyGenerator struct{}

// NewReadableKeyGenerator creates a new readable key generator
func NewReadableKeyGenerator() *ReadableKeyGenerator {
	return &ReadableKeyGenerator{}
}

// GenerateKey generates a key containing the canonical params
func (g *ReadableKeyGenerator) GenerateKey(family, operation string, params url.Values) string {
	base := joinKey(family, operation)

	canonical := Canonical(params)
	if canonical == "" {
		return base
	}

	return base + KeySeparator + canonical
}

// EntityKey returns the key of a single entity, e.g. EntityKey("product", "x") == "product:x"
func EntityKey(family, id string) string {
	return family + KeySeparator + id
}

// Canonical returns a stable encoding of params: empty values dropped, values sorted within a
// key, keys sorted.
func Canonical(params url.Values) string {
	if len(params) == 0 {
		return ""
	}

	clean := make(url.Values, len(params))
	for key, values := range params {
		kept := make([]string, 0, len(values))
		for _, v := range values {
			if v != "" {
				kept = append(kept, v)
			}
		}
		if len(kept) == 0 {
			continue
		}
		sort.Strings(kept)
		clean[key] = kept
	}

	// Encode sorts by key
	return clean.Encode()
}

func joinKey(family, operation string) string {
	if operation == "" {
		return family
	}
	return strings.Join([]string{family, operation}, KeySeparator)
}
