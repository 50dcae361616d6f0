package price

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mtlprog/cardtrade/internal/domain"
)

// Pricer resolves a market price for a card at a given condition and finish.
type Pricer struct {
	lookup LookupService
}

// NewPricer creates a Pricer. lookup may be nil, in which case only embedded variants are used.
func NewPricer(lookup LookupService) *Pricer {
	return &Pricer{lookup: lookup}
}

// ResolvePrice prefers embedded variant prices and falls back to the external lookup.
// When no price exists anywhere it returns domain.Unpriced() and a nil error; an error is
// returned only for invalid input or when the lookup itself fails (wrapping ErrLookupFailed).
func (p *Pricer) ResolvePrice(ctx context.Context, card domain.CardRef, cond domain.Condition, finish domain.Finish) (domain.PriceLookupResult, error) {
	if !cond.Valid() {
		return domain.PriceLookupResult{}, fmt.Errorf("%w: unknown condition %q", ErrInvalidInput, cond)
	}
	if card.Game == "" {
		return domain.PriceLookupResult{}, fmt.Errorf("%w: card %q has no game", ErrInvalidInput, card.ProductID)
	}

	if len(card.Variants) > 0 {
		if v, found := selectVariant(card.Variants, cond, finish.Printing()); found {
			return domain.PriceLookupResult{
				Price:           v.Price,
				ActualCondition: v.Condition,
				UsedFallback:    v.Condition != cond,
			}, nil
		}
		slog.Debug("no embedded variant for printing, using price lookup",
			"product", card.ProductID, "printing", finish.Printing())
	}

	if p.lookup == nil || card.ProductID == "" {
		return domain.Unpriced(), nil
	}

	result, err := p.lookup.LookupPrice(ctx, LookupRequest{
		ProductID: card.ProductID,
		Game:      card.Game,
		Condition: cond,
		Finish:    finish,
	})
	if err != nil {
		return domain.PriceLookupResult{}, fmt.Errorf("%w: product %s: %v", ErrLookupFailed, card.ProductID, err)
	}

	if result.Unavailable || !result.Price.IsPositive() {
		return domain.Unpriced(), nil
	}
	if result.ActualCondition == "" {
		result.ActualCondition = cond
	}
	result.UsedFallback = result.UsedFallback || result.ActualCondition != cond

	for _, a := range result.Anomalies {
		slog.Warn("price monotonicity anomaly capped",
			"product", card.ProductID, "condition", a.Condition, "raw", a.Raw, "cappedTo", a.CappedTo)
	}

	return result, nil
}
