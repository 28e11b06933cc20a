package cache

import (
	"context"
	"fmt"
	"time"

	"Phonolib/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the shared Redis connection. It stays nil when caching
// is disabled, and every cache helper degrades to a miss in that case.
var RedisClient *redis.Client

// Connect initializes the Redis connection if an address is configured.
// An empty address disables caching without error.
func Connect(cfg *config.Config) error {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	RedisClient = client
	return nil
}

// Enabled reports whether a Redis connection is available.
func Enabled() bool {
	return RedisClient != nil
}

// Close shuts down the Redis connection.
func Close() {
	if RedisClient != nil {
		RedisClient.Close()
		RedisClient = nil
	}
}
