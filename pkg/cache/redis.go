package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "mcmeta:cache:"
	clearBatchSize     = 500
)

// RedisCache stores entries in Redis so several server instances share one
// cache. Expiry is delegated to Redis key TTLs.
type RedisCache struct {
	Client redis.UniversalClient
	Prefix string
}

// NewRedisCache creates a Redis-backed cache.
//
// Prefix namespaces the keys, so several environments can share one Redis.
// If prefix is empty, a default namespace is used.
func NewRedisCache(client redis.UniversalClient, prefix string) (*RedisCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if strings.TrimSpace(prefix) == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisCache{Client: client, Prefix: prefix}, nil
}

// DialRedis connects to the Redis server at addr and verifies it answers.
func DialRedis(ctx context.Context, addr, prefix string) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return NewRedisCache(client, prefix)
}

// Get retrieves a value from the cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.Client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores a value; a zero ttl keeps the key until it is deleted.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return c.Client.Set(ctx, c.key(key), data, ttl).Err()
}

// Delete removes a value from the cache.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.Client.Del(ctx, c.key(key)).Err()
}

// Clear deletes every key under the prefix. Keys are found with SCAN so the
// server is never blocked by a KEYS call.
func (c *RedisCache) Clear(ctx context.Context) (int, error) {
	var (
		cursor uint64
		count  int
	)
	for {
		keys, next, err := c.Client.Scan(ctx, cursor, c.Prefix+"*", clearBatchSize).Result()
		if err != nil {
			return count, err
		}
		if len(keys) > 0 {
			n, err := c.Client.Del(ctx, keys...).Result()
			if err != nil {
				return count, err
			}
			count += int(n)
		}
		if next == 0 {
			return count, nil
		}
		cursor = next
	}
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.Client.Close()
}

func (c *RedisCache) key(k string) string {
	return c.Prefix + k
}

var (
	_ Cache   = (*RedisCache)(nil)
	_ Clearer = (*RedisCache)(nil)
)
