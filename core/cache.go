package core

import (
	"context"
	"time"
)

// Cache stores serialized values. It is an optimization only: a miss or an error
// must never change what a caller returns.
type Cache interface {
	// Get returns ErrCacheMiss when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value; a zero ttl means the implementation default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type CacheError string

func (e CacheError) Error() string { return string(e) }

const (
	ErrCacheMiss   CacheError = "cache miss"
	ErrCacheClosed CacheError = "cache closed"
)
