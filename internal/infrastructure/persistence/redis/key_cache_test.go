package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envseal/envseal/pkg/logger"
)

func cacheForTest(t *testing.T) (*KeyCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewKeyCache(client, logger.NewNop()), mr
}

func TestGetMiss(t *testing.T) {
	cache, _ := cacheForTest(t)

	val, hit, err := cache.Get(context.Background(), "Jwt-Kms-app-1-nope")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, val)
}

func TestSetThenGet(t *testing.T) {
	cache, _ := cacheForTest(t)
	ctx := context.Background()
	key := "Jwt-Kms-app-1-k1"
	plaintext := []byte{0x00, 0x01, 0x02, 0x03}

	require.NoError(t, cache.Set(ctx, key, plaintext, time.Now().Add(time.Hour)))

	val, hit, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, plaintext, val)
}

func TestEntryExpiresWithToken(t *testing.T) {
	cache, mr := cacheForTest(t)
	ctx := context.Background()
	key := "Jwt-Kms-app-1-k2"

	require.NoError(t, cache.Set(ctx, key, []byte("key-material"), time.Now().Add(10*time.Minute)))

	// The stored TTL matches the absolute expiry, within clock skew of the test itself.
	ttl := mr.TTL(key)
	assert.InDelta(t, (10 * time.Minute).Seconds(), ttl.Seconds(), 2)

	mr.FastForward(11 * time.Minute)

	_, hit, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, hit, "entry must not outlive the token exp")
}

func TestSetAlreadyExpiredIsNoop(t *testing.T) {
	cache, mr := cacheForTest(t)
	ctx := context.Background()
	key := "Jwt-Kms-app-1-k3"

	require.NoError(t, cache.Set(ctx, key, []byte("stale"), time.Now().Add(-time.Minute)))
	assert.False(t, mr.Exists(key))
}

func TestSetCopiesValue(t *testing.T) {
	cache, _ := cacheForTest(t)
	ctx := context.Background()
	key := "Jwt-Kms-app-1-k4"

	plaintext := []byte("sensitive")
	require.NoError(t, cache.Set(ctx, key, plaintext, time.Now().Add(time.Hour)))

	// Caller wipes its buffer after use; the cached copy must survive.
	for i := range plaintext {
		plaintext[i] = 0
	}

	val, hit, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, []byte("sensitive"), val)
}

func TestGetAfterBackendGone(t *testing.T) {
	cache, mr := cacheForTest(t)
	mr.Close()

	_, _, err := cache.Get(context.Background(), "any")
	assert.Error(t, err)
}
