// Package redis provides the Redis-backed plaintext data-key cache.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/envseal/envseal/internal/config"
	"github.com/envseal/envseal/pkg/logger"
)

// NewClient connects to Redis and verifies the connection with a ping.
func NewClient(cfg *config.RedisConfig, log logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr, err)
	}

	log.Info(ctx, "connected to redis", logger.String("addr", cfg.Addr))
	return client, nil
}
