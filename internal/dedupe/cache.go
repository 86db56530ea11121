package dedupe

import (
	"sync"
	"time"
)

type entry struct {
	key string
	ts  time.Time
}

// Cache remembers which record versions the worker indexed recently, so a
// replayed publish event for an unchanged record is skipped.
type Cache struct {
	mu       sync.Mutex
	items    map[string]time.Time
	order    []entry
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

// NewCache creates a cache with the provided capacity and ttl.
func NewCache(capacity int, ttl time.Duration) *Cache {
	return newCache(capacity, ttl, time.Now)
}

// NewCacheWithClock is NewCache with a custom clock.
func NewCacheWithClock(capacity int, ttl time.Duration, now func() time.Time) *Cache {
	return newCache(capacity, ttl, now)
}

func newCache(capacity int, ttl time.Duration, now func() time.Time) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		items:    make(map[string]time.Time, capacity),
		order:    make([]entry, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
		now:      now,
	}
}

// Key identifies one version of a record: its document id plus the timestamp
// it resolved to. An edited record resolves to a new time and gets a new key.
func Key(docID string, resolved time.Time) string {
	return docID + "@" + resolved.UTC().Format(time.RFC3339Nano)
}

// IsSeen reports whether key was marked inside the ttl window. It does not mark it.
func (c *Cache) IsSeen(key string) bool {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if ts, ok := c.items[key]; ok {
		return now.Sub(ts) <= c.ttl
	}
	return false
}

// MarkSeen records that key has been processed.
func (c *Cache) MarkSeen(key string) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = now
	c.order = append(c.order, entry{key: key, ts: now})
	c.compact(now)
}

// Len is the number of live keys.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache) compact(now time.Time) {
	cutoff := now.Add(-c.ttl)

	for len(c.order) > 0 && (len(c.items) > c.capacity || c.order[0].ts.Before(cutoff)) {
		oldest := c.order[0]
		c.order = c.order[1:]

		if ts, ok := c.items[oldest.key]; ok && ts.Equal(oldest.ts) {
			delete(c.items, oldest.key)
		}
	}
}
