package price

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/cardtrade/internal/domain"
)

// ErrLookupFailed indicates that the price lookup service could not be reached or answered with an error.
var ErrLookupFailed = errors.New("price lookup failed")

// ErrInvalidInput indicates a pricing request with an unknown condition or missing game.
var ErrInvalidInput = errors.New("invalid pricing input")

// LookupRequest identifies one external price lookup. Every field is part of the cache key.
type LookupRequest struct {
	ProductID string           `json:"productId"`
	Game      domain.Game      `json:"game"`
	Condition domain.Condition `json:"condition"`
	Finish    domain.Finish    `json:"finish"`
}

// Key returns the full-tuple cache key, e.g. "pokemon|sv1-25|near_mint|fe=false|h=true|rh=false".
func (r LookupRequest) Key() string {
	return fmt.Sprintf("%s|%s|%s|fe=%t|h=%t|rh=%t",
		r.Game, r.ProductID, r.Condition, r.Finish.FirstEdition, r.Finish.Holo, r.Finish.ReverseHolo)
}

// LookupService resolves a market price for a product at an explicit condition and finish.
type LookupService interface {
	LookupPrice(ctx context.Context, req LookupRequest) (domain.PriceLookupResult, error)
}

// ConditionTable holds the raw market price per condition for one product and finish.
type ConditionTable map[domain.Condition]decimal.Decimal

// has reports whether the table carries a usable (positive) price for c.
func (t ConditionTable) has(c domain.Condition) bool {
	p, ok := t[c]
	return ok && p.IsPositive()
}
