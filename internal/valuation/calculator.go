package valuation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/cardtrade/internal/domain"
)

var (
	fallbackCashPercentage  = decimal.NewFromInt(35)
	fallbackTradePercentage = decimal.NewFromInt(50)
)

// Calculator derives cash and trade values from a market price.
// It never returns an error: every failure yields the global 35%/50% fallback with a reason.
type Calculator struct {
	rules RulesStore
}

// NewCalculator creates a Calculator. A nil store behaves as if no rules were configured.
func NewCalculator(rules RulesStore) *Calculator {
	return &Calculator{rules: rules}
}

// Calculate returns the valuation for marketPrice under the game's rules.
func (c *Calculator) Calculate(ctx context.Context, game domain.Game, marketPrice decimal.Decimal) (result domain.ValuationResult) {
	if marketPrice.IsNegative() {
		slog.Warn("valuation rejected negative price", "game", game, "price", marketPrice)
		return domain.ValuationResult{
			CashValue:      decimal.Zero,
			TradeValue:     decimal.Zero,
			UsedFallback:   true,
			FallbackReason: domain.FallbackInvalidInput,
			Error:          "market price must not be negative",
		}
	}
	if marketPrice.IsZero() {
		return domain.ValuationResult{CashValue: decimal.Zero, TradeValue: decimal.Zero}
	}
	if game == "" {
		return fallback(game, marketPrice, domain.FallbackInvalidInput, "game is required")
	}

	defer func() {
		if r := recover(); r != nil {
			result = fallback(game, marketPrice, domain.FallbackCalculationError, fmt.Sprintf("panic: %v", r))
		}
	}()

	if c.rules == nil {
		return fallback(game, marketPrice, domain.FallbackNoSettings, ErrNoSettings.Error())
	}

	rule, err := c.rules.GetRule(ctx, game, marketPrice)
	if err != nil {
		return fallback(game, marketPrice, classify(err), err.Error())
	}
	if err := rule.Validate(); err != nil {
		return fallback(game, marketPrice, domain.FallbackCalculationError, err.Error())
	}

	cash, trade := rule.Apply(marketPrice)
	return domain.ValuationResult{CashValue: cash, TradeValue: trade}
}

// Fallback returns the global fallback valuation: cash 35%, trade 50% of price.
func Fallback(marketPrice decimal.Decimal, reason domain.FallbackReason, msg string) domain.ValuationResult {
	return domain.ValuationResult{
		CashValue:      domain.Percent(marketPrice, fallbackCashPercentage),
		TradeValue:     domain.Percent(marketPrice, fallbackTradePercentage),
		UsedFallback:   true,
		FallbackReason: reason,
		Error:          msg,
	}
}

func classify(err error) domain.FallbackReason {
	switch {
	case errors.Is(err, ErrNoSettings):
		return domain.FallbackNoSettings
	case errors.Is(err, ErrNoPriceRangeMatch):
		return domain.FallbackNoPriceRange
	case errors.Is(err, ErrInvalidRule):
		return domain.FallbackCalculationError
	case errors.Is(err, ErrRulesAPI), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domain.FallbackAPIError
	default:
		return domain.FallbackDatabaseError
	}
}

func fallback(game domain.Game, marketPrice decimal.Decimal, reason domain.FallbackReason, msg string) domain.ValuationResult {
	slog.Warn("valuation fallback applied", "game", game, "price", marketPrice, "reason", reason, "error", msg)
	return Fallback(marketPrice, reason, msg)
}
