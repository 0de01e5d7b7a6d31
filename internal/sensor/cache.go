package sensor

import (
	"sync"
	"time"

	"controlling_irrigation/internal/models"
)

// Freshness of a cache slot.
const (
	FreshnessFresh  = "fresh"
	FreshnessStale  = "stale"
	FreshnessAbsent = "absent"
)

// CachedReading is the last known good value of a channel.
type CachedReading struct {
	Channel   models.Channel
	Value     float64
	Timestamp time.Time
	Freshness string
}

// Cache keeps one slot per channel.
type Cache struct {
	mu    sync.RWMutex
	slots map[models.Channel]CachedReading
}

func NewCache() *Cache {
	return &Cache{slots: make(map[models.Channel]CachedReading)}
}

// Observe records a successful read, replacing the previous slot.
func (c *Cache) Observe(ch models.Channel, value float64, ts time.Time) {
	c.mu.Lock()
	c.slots[ch] = CachedReading{Channel: ch, Value: value, Timestamp: ts, Freshness: FreshnessFresh}
	c.mu.Unlock()
}

// MarkStale re-tags an existing slot after a failed live read.
func (c *Cache) MarkStale(ch models.Channel) {
	c.mu.Lock()
	if s, ok := c.slots[ch]; ok {
		s.Freshness = FreshnessStale
		c.slots[ch] = s
	}
	c.mu.Unlock()
}

// Lookup returns the slot for ch. The bool is false, and Freshness is
// "absent", when ch was never observed.
func (c *Cache) Lookup(ch models.Channel) (CachedReading, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.slots[ch]
	if !ok {
		return CachedReading{Channel: ch, Freshness: FreshnessAbsent}, false
	}
	return s, true
}
