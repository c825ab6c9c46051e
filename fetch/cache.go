package fetch

import (
	"sync"
	"time"
)

// entry holds a cached document with its creation timestamp.
type entry struct {
	body      []byte
	createdAt time.Time
}

// docCache is a small in-memory cache of fetched documents, keyed by URL.
// Runs are short-lived so eviction is size-based: when full, the oldest
// entry goes. Safe for concurrent use.
type docCache struct {
	mu         sync.Mutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
}

func newDocCache(maxEntries int, ttl time.Duration) *docCache {
	return &docCache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

func (c *docCache) get(url string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.store[url]
	if !ok {
		return nil, false
	}
	if time.Since(e.createdAt) > c.ttl {
		delete(c.store, url)
		return nil, false
	}
	return e.body, true
}

func (c *docCache) put(url string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.store) >= c.maxEntries {
		var oldestKey string
		var oldest time.Time
		for k, e := range c.store {
			if oldestKey == "" || e.createdAt.Before(oldest) {
				oldestKey = k
				oldest = e.createdAt
			}
		}
		delete(c.store, oldestKey)
	}
	c.store[url] = &entry{body: body, createdAt: time.Now()}
}
