package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the job-status caching interface used on the poll hot path.
// Implementations must be safe for concurrent use.
type Cache interface {
	SetStatus(ctx context.Context, token, status string, ttl time.Duration) error
	GetStatus(ctx context.Context, token string) (string, bool, error)
	DeleteStatus(ctx context.Context, token string) error
	Ping(ctx context.Context) error
}

// RedisCache implements the Cache interface using go-redis/v9.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new RedisCache from a Redis URL.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) SetStatus(ctx context.Context, token, status string, ttl time.Duration) error {
	return c.client.Set(ctx, statusKey(token), status, ttl).Err()
}

func (c *RedisCache) GetStatus(ctx context.Context, token string) (string, bool, error) {
	val, err := c.client.Get(ctx, statusKey(token)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisCache) DeleteStatus(ctx context.Context, token string) error {
	return c.client.Del(ctx, statusKey(token)).Err()
}

func statusKey(token string) string {
	return fmt.Sprintf("screening:status:%s", token)
}

var _ Cache = (*RedisCache)(nil)
