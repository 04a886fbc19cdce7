package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/patrickwarner/adcreatives/internal/models"
)

// Lookup is the result of a response cache read.
type Lookup int

const (
	Miss Lookup = iota
	Hit
	// Expired means an entry existed but was too old; it has been evicted.
	Expired
)

func (l Lookup) String() string {
	switch l {
	case Hit:
		return "hit"
	case Expired:
		return "expired"
	default:
		return "miss"
	}
}

// ResponseKey builds the cache key for an account and date range.
func ResponseKey(adAccountID, dateRange string) string {
	return adAccountID + ":" + dateRange
}

// ResponseEntry is a cached response and the time it was stored.
type ResponseEntry struct {
	Timestamp time.Time
	Payload   *models.CreativesResponse
}

type responseItem struct {
	key   string
	entry ResponseEntry
}

// MemoryResponseCache is the process-local response tier. The age check is
// done by the reader because the TTL is chosen per request.
type MemoryResponseCache struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string]*list.Element
	order      *list.List
	now        func() time.Time
}

// NewMemoryResponseCache creates a cache holding at most maxEntries
// responses (zero means unbounded).
func NewMemoryResponseCache(maxEntries int) *MemoryResponseCache {
	return &MemoryResponseCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		now:        time.Now,
	}
}

// Get returns the entry for key when it is younger than ttl. A stale entry is
// evicted and reported as Expired.
func (c *MemoryResponseCache) Get(key string, ttl time.Duration) (ResponseEntry, Lookup) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return ResponseEntry{}, Miss
	}
	item := el.Value.(*responseItem)
	if c.now().Sub(item.entry.Timestamp) >= ttl {
		c.order.Remove(el)
		delete(c.entries, key)
		return ResponseEntry{}, Expired
	}
	return item.entry, Hit
}

// Set stores payload under key, stamped with the current time.
func (c *MemoryResponseCache) Set(key string, payload *models.CreativesResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := ResponseEntry{Timestamp: c.now(), Payload: payload}
	if el, ok := c.entries[key]; ok {
		el.Value.(*responseItem).entry = entry
		c.order.MoveToBack(el)
		return
	}
	c.entries[key] = c.order.PushBack(&responseItem{key: key, entry: entry})
	for c.maxEntries > 0 && c.order.Len() > c.maxEntries {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*responseItem).key)
	}
}

// Delete removes key.
func (c *MemoryResponseCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.order.Remove(el)
		delete(c.entries, key)
	}
}

// Len returns the number of stored responses.
func (c *MemoryResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// SetClock replaces the time source. Used by tests that exercise TTL boundaries.
func (c *MemoryResponseCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
