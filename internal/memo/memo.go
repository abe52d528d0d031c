// Package memo provides time-bounded memoization of expensive pipeline
// results over the cache port.
package memo

import (
	"context"
	"crypto/md5" //nolint:gosec // G401: cache key derivation, not security
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/annapurna-labs/annapurna/internal/port/cache"
)

// Kind namespaces cached entries so a local-match miss never shadows a
// web-search hit for the same query text.
type Kind string

const (
	KindResponse Kind = "response"
	KindMatch    Kind = "match"
	KindSearch   Kind = "search"
)

// Memoizer caches computed values per (kind, normalized key).
type Memoizer struct {
	cache cache.Cache
}

// New creates a Memoizer over the given cache backend.
func New(c cache.Cache) *Memoizer {
	return &Memoizer{cache: c}
}

// Key derives the cache key for a kind and free-text query.
func Key(kind Kind, query string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(query)))) //nolint:gosec
	return string(kind) + ":" + hex.EncodeToString(sum[:])
}

// GetOrCompute returns the cached value for (kind, query) when present
// and unexpired; otherwise it invokes compute synchronously, stores the
// result with the given TTL, and returns it. A compute error is returned
// as-is and nothing is cached.
func GetOrCompute[T any](ctx context.Context, m *Memoizer, kind Kind, query string, ttl time.Duration, compute func(context.Context) (T, error)) (T, bool, error) {
	var zero T
	key := Key(kind, query)

	if data, ok, err := m.cache.Get(ctx, key); err == nil && ok {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return v, true, nil
		}
		// Undecodable entry: drop it and recompute.
		_ = m.cache.Delete(ctx, key)
	}

	v, err := compute(ctx)
	if err != nil {
		return zero, false, err
	}

	if data, err := json.Marshal(v); err == nil {
		_ = m.cache.Set(ctx, key, data, ttl)
	}
	return v, false, nil
}
