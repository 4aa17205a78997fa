// Package cachesvc implements core.Cache in memory and on Redis.
package cachesvc

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trezcool/campus/core"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is a process-local core.Cache. Expired entries are dropped on read and by a
// background sweep.
type MemoryCache struct {
	data       sync.Map
	defaultTTL time.Duration
	stopCh     chan struct{}
	closed     atomic.Bool
}

var _ core.Cache = (*MemoryCache)(nil)

func NewMemoryCache(defaultTTL, cleanupInterval time.Duration) *MemoryCache {
	c := &MemoryCache{defaultTTL: defaultTTL, stopCh: make(chan struct{})}
	if cleanupInterval > 0 {
		go c.cleanupLoop(cleanupInterval)
	}
	return c
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	if c.closed.Load() {
		return nil, core.ErrCacheClosed
	}
	val, ok := c.data.Load(key)
	if !ok {
		return nil, core.ErrCacheMiss
	}
	entry := val.(*memoryEntry)
	if time.Now().After(entry.expiresAt) {
		c.data.CompareAndDelete(key, entry)
		return nil, core.ErrCacheMiss
	}
	return append([]byte(nil), entry.value...), nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if c.closed.Load() {
		return core.ErrCacheClosed
	}
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	c.data.Store(key, &memoryEntry{
		value:     append([]byte(nil), value...),
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	if c.closed.Load() {
		return core.ErrCacheClosed
	}
	c.data.Delete(key)
	return nil
}

func (c *MemoryCache) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		close(c.stopCh)
	}
	return nil
}

func (c *MemoryCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case now := <-ticker.C:
			c.data.Range(func(key, val any) bool {
				if entry := val.(*memoryEntry); now.After(entry.expiresAt) {
					c.data.CompareAndDelete(key, entry)
				}
				return true
			})
		}
	}
}
