package client

import (
	"context"
	"sync"
	"time"

	"github.com/vango-dev/transit/pkg/deferred"
)

// PrefetchEntry is a transition started ahead of, or for, a navigation.
type PrefetchEntry struct {
	// URL is the same-origin target ("/path?query#hash").
	URL       string
	CreatedAt time.Time

	// Module settles with the *Module matched from the route snapshot, or
	// nil when nothing matched.
	Module *deferred.Promise

	// Initial settles with the lead protocol.Chunk.
	Initial *deferred.Promise

	// Done settles when the stream has been read to the end.
	Done *deferred.Promise

	Deferreds *Deferreds

	cancel context.CancelFunc
}

// Abort stops reading the transition stream.
func (e *PrefetchEntry) Abort() { e.cancel() }

// prefetchCache holds unclaimed entries by URL. Expired entries are pruned
// on every access.
type prefetchCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*PrefetchEntry
}

func newPrefetchCache(ttl time.Duration, now func() time.Time) *prefetchCache {
	return &prefetchCache{ttl: ttl, now: now, entries: make(map[string]*PrefetchEntry)}
}

// pruneLocked removes and aborts expired entries. Caller holds c.mu.
func (c *prefetchCache) pruneLocked() {
	now := c.now()
	for k, e := range c.entries {
		if now.Sub(e.CreatedAt) >= c.ttl {
			delete(c.entries, k)
			e.Abort()
		}
	}
}

func (c *prefetchCache) get(url string) (*PrefetchEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked()
	e, ok := c.entries[url]
	return e, ok
}

// take removes and returns the entry for url.
func (c *prefetchCache) take(url string) (*PrefetchEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked()
	e, ok := c.entries[url]
	if ok {
		delete(c.entries, url)
	}
	return e, ok
}

func (c *prefetchCache) put(e *PrefetchEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked()
	if old, ok := c.entries[e.URL]; ok && old != e {
		old.Abort()
	}
	c.entries[e.URL] = e
}

// evict removes e if it is still the cached entry for its URL.
func (c *prefetchCache) evict(e *PrefetchEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[e.URL] == e {
		delete(c.entries, e.URL)
	}
}

func (c *prefetchCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked()
	return len(c.entries)
}
