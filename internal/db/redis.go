package db

import (
	"context"
	"log"
	"time"

	"backend-livetrack/internal/config"

	"github.com/redis/go-redis/v9"
)

var pingRedisFn = func(ctx context.Context, client *redis.Client) error { return client.Ping(ctx).Err() }

// ConnectRedis returns nil when no address is configured. An unreachable
// server is logged but the client is still returned so it can reconnect.
func ConnectRedis(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := pingRedisFn(ctx, client); err != nil {
		log.Printf("redis ping failed: %v", err)
	}
	return client
}
