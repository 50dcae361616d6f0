package price

import (
	"context"
	"fmt"

	"github.com/mtlprog/cardtrade/internal/domain"
)

// TableSource provides the raw per-condition price table for a product and finish.
type TableSource interface {
	FetchConditionTable(ctx context.Context, game domain.Game, productID string, finish domain.Finish) (ConditionTable, error)
}

// MarketLookup implements LookupService on top of a raw price table. It caps the table to
// be monotonic before choosing a condition, so a fallback never returns an inflated price.
type MarketLookup struct {
	source TableSource
}

// NewMarketLookup creates a MarketLookup.
func NewMarketLookup(source TableSource) *MarketLookup {
	return &MarketLookup{source: source}
}

func (m *MarketLookup) LookupPrice(ctx context.Context, req LookupRequest) (domain.PriceLookupResult, error) {
	raw, err := m.source.FetchConditionTable(ctx, req.Game, req.ProductID, req.Finish)
	if err != nil {
		return domain.PriceLookupResult{}, fmt.Errorf("fetching price table for %s: %w", req.ProductID, err)
	}

	table, anomalies := EnforceMonotonic(raw)

	cond, p, ok := SelectCondition(req.Condition, table)
	if !ok {
		result := domain.Unpriced()
		result.Anomalies = anomalies
		return result, nil
	}

	return domain.PriceLookupResult{
		Price:           p,
		ActualCondition: cond,
		UsedFallback:    cond != req.Condition,
		Anomalies:       anomalies,
	}, nil
}
