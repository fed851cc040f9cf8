// Package cache provides the injected TTL cache used for the push
// subsystem's OAuth access token. The cache is always passed in explicitly;
// the token must never live in a package-level variable.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenCache stores one short-lived access token with TTL invalidation.
type TokenCache interface {
	Get(ctx context.Context) (string, bool, error)
	Set(ctx context.Context, token string, ttl time.Duration) error
}

// MemoryTokenCache is a process-local TokenCache.
type MemoryTokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

// NewMemoryTokenCache builds an in-process cache.
func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{now: time.Now}
}

// Get returns the cached token if it has not expired.
func (c *MemoryTokenCache) Get(_ context.Context) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" || c.now().After(c.expiresAt) {
		return "", false, nil
	}
	return c.token, true, nil
}

// Set stores the token for the given lifetime.
func (c *MemoryTokenCache) Set(_ context.Context, token string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.expiresAt = c.now().Add(ttl)
	return nil
}

const redisTokenKey = "push:fcm_access_token"

// RedisTokenCache shares the token across instances through redis.
type RedisTokenCache struct {
	client *redis.Client
}

// NewRedisTokenCache builds a redis-backed cache.
func NewRedisTokenCache(client *redis.Client) *RedisTokenCache {
	return &RedisTokenCache{client: client}
}

// Get returns the cached token if present.
func (c *RedisTokenCache) Get(ctx context.Context) (string, bool, error) {
	token, err := c.client.Get(ctx, redisTokenKey).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return token, token != "", nil
}

// Set stores the token; redis expires it after ttl.
func (c *RedisTokenCache) Set(ctx context.Context, token string, ttl time.Duration) error {
	return c.client.Set(ctx, redisTokenKey, token, ttl).Err()
}
