package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/envseal/envseal/internal/domain/service"
	"github.com/envseal/envseal/pkg/errors"
	"github.com/envseal/envseal/pkg/logger"
)

// KeyCache stores plaintext data keys in Redis. Entries carry an absolute
// expiry (SET ... EXAT) equal to the owning token's exp claim, so a cached
// key is evicted the moment its token stops being valid.
type KeyCache struct {
	client *redis.Client
	log    logger.Logger
	now    func() time.Time
}

var _ service.KeyCache = (*KeyCache)(nil)

// NewKeyCache creates a KeyCache on an existing client.
func NewKeyCache(client *redis.Client, log logger.Logger) *KeyCache {
	return &KeyCache{
		client: client,
		log:    log.WithComponent("RedisKeyCache"),
		now:    time.Now,
	}
}

// Get returns the cached plaintext key, if present.
func (c *KeyCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, errors.CacheUnavailable("redis get failed").WithCause(err)
	}
	return val, true, nil
}

// Set stores the plaintext key until the absolute time expiresAt. Entries
// already past their expiry are not written.
func (c *KeyCache) Set(ctx context.Context, key string, value []byte, expiresAt time.Time) error {
	if !expiresAt.After(c.now()) {
		return nil
	}

	buf := make([]byte, len(value))
	copy(buf, value)

	err := c.client.SetArgs(ctx, key, buf, redis.SetArgs{ExpireAt: expiresAt}).Err()
	if err != nil {
		return errors.CacheUnavailable("redis set failed").WithCause(err)
	}
	return nil
}
