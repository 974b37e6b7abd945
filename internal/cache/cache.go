// Package cache provides the byte cache used to memoize generated text.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque values with a TTL. MemoryCache serves single-instance
// deployments; RedisCache is shared between instances.
type Cache interface {
	// Get retrieves a value by key. Returns ErrCacheMiss if not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value by key.
	Delete(ctx context.Context, key string) error

	Close() error
}

type CacheError string

func (e CacheError) Error() string { return string(e) }

// ErrCacheMiss indicates the key was not found in cache.
const ErrCacheMiss CacheError = "cache miss"
