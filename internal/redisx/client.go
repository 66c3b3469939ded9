package redisx

import (
	"context"

	"github.com/go-redis/redis/v8"

	"hopes-corner-sync/internal/config"
)

// NewClient creates a Redis client.
func NewClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping tests the connection.
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

// Close closes the connection.
func Close(client *redis.Client) error {
	return client.Close()
}
