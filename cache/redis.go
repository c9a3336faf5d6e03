package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisPrefix = "gosfc:"

// RedisCache shares orderings between machines. Keys are stored as prefix+key, expiry is handled by redis.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to addr and checks the server answers
func NewRedisCache(ctx context.Context, addr, prefix string) (rc *RedisCache, err error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 2 * time.Second,
		MaxRetries:  -1,
	})
	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		err = fmt.Errorf("redis at %s: %w", addr, err)
		return
	}
	rc = NewRedisCacheFromClient(client, prefix)
	return
}

func NewRedisCacheFromClient(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	if data, err = c.client.Get(ctx, c.prefix+key).Bytes(); err != nil {
		data = nil
		if errors.Is(err, redis.Nil) {
			err = nil
		}
		return
	}
	ok = true
	return
}

func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return c.client.Set(ctx, c.prefix+key, data, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}

func (c *RedisCache) Close() error { return c.client.Close() }

var _ Cache = (*RedisCache)(nil)
