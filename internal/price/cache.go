package price

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mtlprog/cardtrade/internal/domain"
)

// DefaultCacheTTL bounds how long a looked-up price is reused.
const DefaultCacheTTL = 4 * time.Hour

type cacheEntry struct {
	result    domain.PriceLookupResult
	expiresAt time.Time
}

type priceCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

func newPriceCache(ttl time.Duration, now func() time.Time) *priceCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	return &priceCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     now,
	}
}

func (c *priceCache) get(key string) (domain.PriceLookupResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || !c.now().Before(entry.expiresAt) {
		return domain.PriceLookupResult{}, false
	}
	return entry.result, true
}

func (c *priceCache) set(key string, result domain.PriceLookupResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		result:    result,
		expiresAt: c.now().Add(c.ttl),
	}
}

// sweep removes expired entries and returns how many were dropped.
func (c *priceCache) sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *priceCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// sharedLookupTimeout bounds a lookup shared by concurrent callers of the same key.
const sharedLookupTimeout = 30 * time.Second

// CachedLookup wraps a LookupService with a TTL cache keyed by the full request tuple.
// Failed and unavailable lookups are not cached. Concurrent requests for the same key share
// one call to the wrapped service.
type CachedLookup struct {
	next  LookupService
	cache *priceCache
	group singleflight.Group
}

// NewCachedLookup creates a CachedLookup. now may be nil to use the wall clock.
func NewCachedLookup(next LookupService, ttl time.Duration, now func() time.Time) *CachedLookup {
	return &CachedLookup{
		next:  next,
		cache: newPriceCache(ttl, now),
	}
}

// LookupPrice answers from the cache or joins the shared call for the key. The shared call
// runs detached from any one caller, so a caller that gives up only stops its own wait.
func (c *CachedLookup) LookupPrice(ctx context.Context, req LookupRequest) (domain.PriceLookupResult, error) {
	key := req.Key()
	if cached, ok := c.cache.get(key); ok {
		return cached, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLookupTimeout)
		defer cancel()

		result, err := c.next.LookupPrice(callCtx, req)
		if err != nil {
			return nil, err
		}
		if !result.Unavailable {
			c.cache.set(key, result)
		}
		return result, nil
	})

	select {
	case <-ctx.Done():
		return domain.PriceLookupResult{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.PriceLookupResult{}, res.Err
		}
		return res.Val.(domain.PriceLookupResult), nil
	}
}

// Sweep drops expired cache entries. It returns the number of entries removed.
func (c *CachedLookup) Sweep() int {
	return c.cache.sweep()
}

// Len returns the number of cached entries, expired or not.
func (c *CachedLookup) Len() int {
	return c.cache.len()
}
