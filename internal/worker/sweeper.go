package worker

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper evicts expired entries from a cache and reports how many were removed.
type Sweeper interface {
	Sweep() int
	Len() int
}

// CacheSweeper periodically evicts expired price cache entries.
// Expired entries are never served; sweeping only bounds memory.
type CacheSweeper struct {
	cache    Sweeper
	interval time.Duration
}

// NewCacheSweeper creates a new CacheSweeper.
func NewCacheSweeper(cache Sweeper, interval time.Duration) *CacheSweeper {
	return &CacheSweeper{
		cache:    cache,
		interval: interval,
	}
}

// Run starts the sweeper loop. It blocks until the context is cancelled.
func (w *CacheSweeper) Run(ctx context.Context) {
	slog.Info("CacheSweeper: starting", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("CacheSweeper: shutting down")
			return
		case <-ticker.C:
			if removed := w.cache.Sweep(); removed > 0 {
				slog.Debug("CacheSweeper: evicted expired entries", "removed", removed, "remaining", w.cache.Len())
			}
		}
	}
}
