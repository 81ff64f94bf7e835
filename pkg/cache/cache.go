package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Store is the key/value contract every backend satisfies. A zero expiration
// keeps the key until it is deleted.
type Store interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

var (
	_ Store = (*MemoryCache)(nil)
	_ Store = (*RedisCache)(nil)
	_ Store = (*FileCache)(nil)
)
