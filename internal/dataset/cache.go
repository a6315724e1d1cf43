package dataset

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// LoadFunc produces a fresh Dataset.
type LoadFunc func(ctx context.Context) (*Dataset, error)

// Cache keeps the last loaded Dataset for ttl. A ttl of zero never expires.
// Concurrent callers hitting a stale cache share one load.
type Cache struct {
	load LoadFunc
	ttl  time.Duration
	now  func() time.Time

	mu       sync.RWMutex
	current  *Dataset
	loadedAt time.Time

	group singleflight.Group
}

func NewCache(load LoadFunc, ttl time.Duration) *Cache {
	return &Cache{load: load, ttl: ttl, now: time.Now}
}

// Static returns a Cache that always serves ds.
func Static(ds *Dataset) *Cache {
	c := NewCache(func(context.Context) (*Dataset, error) { return ds, nil }, 0)
	c.current = ds
	c.loadedAt = c.now()
	return c
}

// Get returns the cached Dataset, reloading it when stale.
func (c *Cache) Get(ctx context.Context) (*Dataset, error) {
	c.mu.RLock()
	ds, fresh := c.current, c.fresh()
	c.mu.RUnlock()
	if ds != nil && fresh {
		return ds, nil
	}

	ch := c.group.DoChan("dataset", func() (any, error) {
		// Detached so one caller giving up does not fail the others.
		ds, err := c.load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.current = ds
		c.loadedAt = c.now()
		c.mu.Unlock()
		return ds, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Dataset), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) fresh() bool {
	if c.ttl <= 0 {
		return true
	}
	return c.now().Sub(c.loadedAt) < c.ttl
}
