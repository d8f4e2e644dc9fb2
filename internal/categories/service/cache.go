package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"sales_leads_backend/internal/categories/repository"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "options:"

// ErrCacheMiss is returned by Cache.Get when nothing is stored for the kind.
var ErrCacheMiss = errors.New("cache miss")

// Cache stores option lists by kind.
type Cache interface {
	Get(ctx context.Context, kind repository.Kind) ([]repository.Option, error)
	Set(ctx context.Context, kind repository.Kind, items []repository.Option) error
}

// RedisCache keeps option lists as JSON strings with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// NewRedisCacheFromURL dials redis from a redis:// or rediss:// URL.
func NewRedisCacheFromURL(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return NewRedisCache(redis.NewClient(opt), ttl), nil
}

var _ Cache = (*RedisCache)(nil)

func (c *RedisCache) Get(ctx context.Context, kind repository.Kind) ([]repository.Option, error) {
	raw, err := c.client.Get(ctx, cacheKeyPrefix+string(kind)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var items []repository.Option
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *RedisCache) Set(ctx context.Context, kind repository.Kind, items []repository.Option) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKeyPrefix+string(kind), raw, c.ttl).Err()
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
