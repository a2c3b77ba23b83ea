package routing

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"backend-livetrack/internal/shared/geo"
)

// Cache stores snapped geometries by request key.
type Cache interface {
	Get(ctx context.Context, key string) ([]geo.Point, bool, error)
	Set(ctx context.Context, key string, points []geo.Point) error
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Cache = (*RedisCache)(nil)

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func cacheKey(key string) string {
	return "route:snapped:" + key
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]geo.Point, bool, error) {
	raw, err := c.client.Get(ctx, cacheKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var points []geo.Point
	if err := json.Unmarshal(raw, &points); err != nil {
		return nil, false, err
	}
	return points, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, points []geo.Point) error {
	raw, err := json.Marshal(points)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(key), raw, c.ttl).Err()
}

// CachedSnapper consults the cache before the provider. Cache errors are
// logged and bypassed.
type CachedSnapper struct {
	Snapper Snapper
	Cache   Cache
}

var _ Snapper = CachedSnapper{}

func (s CachedSnapper) Snap(ctx context.Context, req Request) ([]geo.Point, error) {
	key := req.Key()
	points, ok, err := s.Cache.Get(ctx, key)
	if err != nil {
		log.Printf("route cache get: %v", err)
	}
	if ok {
		return points, nil
	}

	points, err = s.Snapper.Snap(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.Cache.Set(ctx, key, points); err != nil {
		log.Printf("route cache set: %v", err)
	}
	return points, nil
}
