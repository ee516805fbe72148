package retrieval

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"

	"github.com/hrygo/exemplar/event"
)

// resultCache is a bounded FIFO cache from normalized query keys to
// ranked result lists. Eviction is strictly oldest-inserted-first; a
// read never refreshes an entry's position.
type resultCache struct {
	mu       sync.RWMutex
	entries  map[string]*cacheEntry
	order    *list.List
	capacity int
	evicted  int64
}

type cacheEntry struct {
	element *list.Element
	key     string
	results []SimilarEvent
}

func newResultCache(capacity int) *resultCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &resultCache{
		entries:  make(map[string]*cacheEntry),
		order:    list.New(),
		capacity: capacity,
	}
}

func (c *resultCache) get(key string) ([]SimilarEvent, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.results, true
}

// set stores results under key. Overwriting an existing key keeps its
// original insertion position.
func (c *resultCache) set(key string, results []SimilarEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.results = results
		return
	}

	for len(c.entries) >= c.capacity {
		c.evictOldest()
	}

	e := &cacheEntry{key: key, results: results}
	e.element = c.order.PushBack(e)
	c.entries[key] = e
}

func (c *resultCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
	c.order.Init()
}

func (c *resultCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *resultCache) evictions() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.evicted
}

// evictOldest removes the front (oldest-inserted) entry.
// Must be called with lock held.
func (c *resultCache) evictOldest() {
	oldest := c.order.Front()
	if oldest == nil {
		return
	}
	e, ok := oldest.Value.(*cacheEntry)
	if !ok {
		return
	}
	c.order.Remove(e.element)
	delete(c.entries, e.key)
	c.evicted++
}

// cacheKey builds a stable key from the query's normalized identity:
// case-folded title, all-day flag, case-folded calendar name.
// SHA256 keeps the key compact regardless of title length.
func cacheKey(query event.Event) string {
	raw := query.NormalizedTitle() + "|" + strconv.FormatBool(query.IsAllDay) + "|" + query.NormalizedCalendar()
	hash := sha256.Sum256([]byte(raw))
	return "search:" + hex.EncodeToString(hash[:8])
}
