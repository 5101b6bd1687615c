package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// in-memory keyed store whose entries expire after a fixed ttl
type TTL[K comparable, V any] struct {
	items map[K]entry[V]
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// returns a new cache; a positive sweepEvery starts the cleanup goroutine
func New[K comparable, V any](ttl, sweepEvery time.Duration) *TTL[K, V] {
	c := &TTL[K, V]{
		items: make(map[K]entry[V]),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}

	if sweepEvery > 0 {
		go c.sweepLoop(sweepEvery)
	}

	return c
}

func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	c.items[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// stores value only when key is absent or expired; reports whether it was stored
func (c *TTL[K, V]) SetNX(key K, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.items[key]; ok && !now.After(e.expiresAt) {
		return false
	}

	c.items[key] = entry[V]{value: value, expiresAt: now.Add(c.ttl)}
	return true
}

// returns the value for key; expired entries are removed and reported missing
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}

	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		// re-check, a concurrent Set may have refreshed it
		if cur, still := c.items[key]; still && c.now().After(cur.expiresAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return zero, false
	}

	return e.value, true
}

func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// returns the number of stored entries, expired ones included until swept
func (c *TTL[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// removes every expired entry and returns how many were dropped
func (c *TTL[K, V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0

	for k, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, k)
			removed++
		}
	}

	return removed
}

// stops the sweep goroutine
func (c *TTL[K, V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *TTL[K, V]) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.stop:
			return
		}
	}
}
