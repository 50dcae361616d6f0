package external

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mtlprog/cardtrade/internal/domain"
	"github.com/mtlprog/cardtrade/internal/price"
)

// PriceStore persists raw market prices.
type PriceStore interface {
	Upsert(ctx context.Context, mp price.MarketPrice) error
}

// Product identifies one card printing to mirror into the local market table.
type Product struct {
	Game      domain.Game   `json:"game" yaml:"game"`
	ProductID string        `json:"productId" yaml:"productId"`
	Finish    domain.Finish `json:"finish" yaml:"finish"`
}

// Service mirrors prices from the Price Lookup Service into the local market table.
type Service struct {
	client price.LookupService
	store  PriceStore
}

// NewService creates a new price sync service.
func NewService(client price.LookupService, store PriceStore) *Service {
	return &Service{
		client: client,
		store:  store,
	}
}

// SyncProduct fetches every condition for a product and stores the exact-condition answers.
// Substituted conditions are skipped so the local table only holds prices the service quoted
// for that grade. It returns the number of stored rows.
func (s *Service) SyncProduct(ctx context.Context, p Product) (int, error) {
	if err := p.Finish.Validate(); err != nil {
		return 0, fmt.Errorf("product %s: %w", p.ProductID, err)
	}

	stored := 0
	for _, cond := range domain.Conditions() {
		result, err := s.client.LookupPrice(ctx, price.LookupRequest{
			ProductID: p.ProductID,
			Game:      p.Game,
			Condition: cond,
			Finish:    p.Finish,
		})
		if err != nil {
			return stored, fmt.Errorf("fetching %s %s: %w", p.ProductID, cond, err)
		}
		if result.Unavailable || result.UsedFallback {
			continue
		}

		if err := s.store.Upsert(ctx, price.MarketPrice{
			Game:      p.Game,
			ProductID: p.ProductID,
			Finish:    p.Finish,
			Condition: cond,
			Price:     result.Price,
		}); err != nil {
			return stored, fmt.Errorf("storing %s %s: %w", p.ProductID, cond, err)
		}
		stored++
	}

	return stored, nil
}

// SyncAll syncs every product, logging and skipping failures. It returns the total rows stored.
func (s *Service) SyncAll(ctx context.Context, products []Product) int {
	total := 0
	for _, p := range products {
		n, err := s.SyncProduct(ctx, p)
		total += n
		if err != nil {
			slog.Warn("price sync failed", "product", p.ProductID, "game", p.Game, "error", err)
			continue
		}
		slog.Debug("price sync done", "product", p.ProductID, "stored", n)
	}
	return total
}
