package data

import (
	"sync"
	"time"

	"github.com/MaStr/pv-bat-simulator/internal/model"
)

type cacheEntry struct {
	Prices    model.Series
	ExpiresAt time.Time
}

// PriceCache is a time-keyed, expiring store of day-ahead price series. It is
// owned by whoever creates it and handed to clients explicitly; there is no
// process-wide instance.
type PriceCache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	ttl   time.Duration
	now   func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

func NewPriceCache(ttl time.Duration) *PriceCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &PriceCache{
		store: make(map[string]cacheEntry),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}
}

// CacheKey identifies one market's prices for one calendar day.
func CacheKey(market string, day time.Time) string {
	return market + ":" + day.Format("2006-01-02")
}

// Get retrieves a cached series if available and not expired.
func (c *PriceCache) Get(key string) (model.Series, bool) {
	if c == nil {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.store[key]
	if !exists || c.now().After(entry.ExpiresAt) {
		return nil, false
	}
	return append(model.Series(nil), entry.Prices...), true
}

// Set stores a copy of prices under key.
func (c *PriceCache) Set(key string, prices model.Series) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[key] = cacheEntry{
		Prices:    append(model.Series(nil), prices...),
		ExpiresAt: c.now().Add(c.ttl),
	}
}

// Clear removes all entries from the cache.
func (c *PriceCache) Clear() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store = make(map[string]cacheEntry)
}

func (c *PriceCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// StartJanitor periodically removes expired entries until Close is called.
func (c *PriceCache) StartJanitor(interval time.Duration) {
	if c == nil {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.evictExpired()
			case <-c.stop:
				return
			}
		}
	}()
}

func (c *PriceCache) Close() {
	if c == nil {
		return
	}
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *PriceCache) evictExpired() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.store {
		if now.After(entry.ExpiresAt) {
			delete(c.store, key)
			removed++
		}
	}
	return removed
}
