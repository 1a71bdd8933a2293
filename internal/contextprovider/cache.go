package contextprovider

import (
	"strings"
	"sync"
	"time"
)

type cacheEntry struct {
	values    [][]byte
	expiresAt time.Time
}

// prefixCache remembers etcd range reads for a short TTL. Values are the raw
// JSON documents under a key prefix.
type prefixCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
	stopCh  chan struct{}
	once    sync.Once
}

func newPrefixCache(ttl time.Duration) *prefixCache {
	c := &prefixCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	if ttl > 0 {
		go c.sweep()
	}
	return c
}

func (c *prefixCache) get(key string) ([][]byte, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		return nil, false
	}
	return e.values, true
}

func (c *prefixCache) set(key string, values [][]byte) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{values: values, expiresAt: c.now().Add(c.ttl)}
}

// invalidate drops every entry whose key shares prefix.
func (c *prefixCache) invalidate(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) || strings.HasPrefix(prefix, key) {
			delete(c.entries, key)
		}
	}
}

func (c *prefixCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *prefixCache) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			now := c.now()
			for key, e := range c.entries {
				if now.After(e.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		case <-c.stopCh:
			return
		}
	}
}

func (c *prefixCache) stop() {
	c.once.Do(func() { close(c.stopCh) })
}
