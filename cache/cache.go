/*
Package cache stores computed curve orderings keyed by mesh topology, so a topology seen before
(another snapshot series on the same mesh, a rerun) skips connectivity and curve generation.

	Backends: NullCache (disabled), MemoryCache (one process), FileCache (one machine) and RedisCache
	(shared between machines). Values are the encoded orderings of codec.go.
*/
package cache

import (
	"context"
	"errors"
	"time"
)

type Cache interface {
	// Get returns the stored bytes, ok is false on a miss or an expired entry
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	// Set stores data, ttl <= 0 never expires
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

var (
	// ErrCorrupt marks cached bytes that do not decode to valid orderings
	ErrCorrupt = errors.New("corrupt ordering cache entry")
)
