// Package memory provides an in-process plaintext data-key cache for
// single-instance deployments and tests.
package memory

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/envseal/envseal/internal/domain/service"
)

// KeyCache stores plaintext data keys in process memory via go-cache.
// Expiry is absolute: each entry's TTL is computed from the token's exp at
// write time. Values are copied on both read and write so callers can wipe
// their buffers without corrupting the cache.
type KeyCache struct {
	store *gocache.Cache
	now   func() time.Time
}

var _ service.KeyCache = (*KeyCache)(nil)

// NewKeyCache creates a KeyCache. cleanupInterval controls how often expired
// entries are swept; the entries are already invisible to Get once expired.
func NewKeyCache(cleanupInterval time.Duration) *KeyCache {
	return &KeyCache{
		store: gocache.New(gocache.NoExpiration, cleanupInterval),
		now:   time.Now,
	}
}

// Get returns a copy of the cached plaintext key, if present.
func (c *KeyCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, found := c.store.Get(key)
	if !found {
		return nil, false, nil
	}
	cached, ok := v.([]byte)
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(cached))
	copy(out, cached)
	return out, true, nil
}

// Set stores a copy of value until the absolute time expiresAt.
func (c *KeyCache) Set(_ context.Context, key string, value []byte, expiresAt time.Time) error {
	ttl := expiresAt.Sub(c.now())
	if ttl <= 0 {
		return nil
	}
	buf := make([]byte, len(value))
	copy(buf, value)
	c.store.Set(key, buf, ttl)
	return nil
}
