// Package cache holds the process-local caches of the creatives pipeline:
// resolved video sources and finished responses.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// VideoCache maps a Facebook video id to its resolved source URL. A nil URL
// is a cached failure.
type VideoCache interface {
	// Get returns the cached source and whether an unexpired entry exists.
	Get(videoID string) (source *string, ok bool)
	// Set stores the outcome of a lookup. Implementations may decline to
	// store nil outcomes.
	Set(videoID string, source *string)
}

// VideoCacheConfig bounds a MemoryVideoCache.
type VideoCacheConfig struct {
	// MaxEntries caps the number of ids kept; the oldest entry is evicted
	// first. Zero means unbounded.
	MaxEntries int
	// TTL applies to resolved URLs. Zero keeps them for the process lifetime.
	TTL time.Duration
	// NegativeTTL applies to failed lookups. Zero disables negative caching,
	// a negative value keeps failures for the process lifetime.
	NegativeTTL time.Duration
}

type videoEntry struct {
	id      string
	source  *string
	expires time.Time // zero means never
}

// MemoryVideoCache is a bounded, TTL-aware VideoCache safe for concurrent use.
type MemoryVideoCache struct {
	mu      sync.Mutex
	cfg     VideoCacheConfig
	entries map[string]*list.Element
	order   *list.List
	now     func() time.Time
}

var _ VideoCache = (*MemoryVideoCache)(nil)

// NewMemoryVideoCache creates an empty cache.
func NewMemoryVideoCache(cfg VideoCacheConfig) *MemoryVideoCache {
	return &MemoryVideoCache{
		cfg:     cfg,
		entries: make(map[string]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
}

// Get returns the cached outcome for videoID. Expired entries are removed.
func (c *MemoryVideoCache) Get(videoID string) (*string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[videoID]
	if !ok {
		return nil, false
	}
	e := el.Value.(*videoEntry)
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		c.order.Remove(el)
		delete(c.entries, videoID)
		return nil, false
	}
	return e.source, true
}

// Set stores the outcome of a lookup.
func (c *MemoryVideoCache) Set(videoID string, source *string) {
	ttl := c.cfg.TTL
	if source == nil {
		if c.cfg.NegativeTTL == 0 {
			return
		}
		ttl = c.cfg.NegativeTTL
	}
	var expires time.Time
	if ttl > 0 {
		expires = c.now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[videoID]; ok {
		e := el.Value.(*videoEntry)
		e.source = source
		e.expires = expires
		c.order.MoveToBack(el)
		return
	}
	c.entries[videoID] = c.order.PushBack(&videoEntry{id: videoID, source: source, expires: expires})
	for c.cfg.MaxEntries > 0 && c.order.Len() > c.cfg.MaxEntries {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*videoEntry).id)
	}
}

// Len returns the number of entries, expired ones included.
func (c *MemoryVideoCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// SetClock replaces the time source. Used by tests that exercise expiry.
func (c *MemoryVideoCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
