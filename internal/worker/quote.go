package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/mtlprog/cardtrade/internal/external"
)

// QuoteSyncer mirrors external prices for a product catalog into the local market table.
type QuoteSyncer interface {
	SyncAll(ctx context.Context, products []external.Product) int
}

// QuoteWorker periodically refreshes market prices for a fixed product catalog.
type QuoteWorker struct {
	syncer   QuoteSyncer
	products []external.Product
	interval time.Duration
}

// NewQuoteWorker creates a new QuoteWorker.
func NewQuoteWorker(syncer QuoteSyncer, products []external.Product, interval time.Duration) *QuoteWorker {
	return &QuoteWorker{
		syncer:   syncer,
		products: products,
		interval: interval,
	}
}

func (w *QuoteWorker) sync(ctx context.Context) {
	stored := w.syncer.SyncAll(ctx, w.products)
	slog.Info("QuoteWorker: sync completed", "products", len(w.products), "stored", stored)
}

// Run starts the quote worker loop. It blocks until the context is cancelled.
func (w *QuoteWorker) Run(ctx context.Context) {
	slog.Info("QuoteWorker: starting", "products", len(w.products))

	// Sync immediately on startup
	w.sync(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("QuoteWorker: shutting down")
			return
		case <-ticker.C:
			w.sync(ctx)
		}
	}
}
