package valuation

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/cardtrade/internal/domain"
)

var (
	// ErrNoSettings indicates that no rule is configured for the game at all.
	ErrNoSettings = errors.New("no valuation settings for game")
	// ErrNoPriceRangeMatch indicates rules exist for the game but no bracket covers the price.
	ErrNoPriceRangeMatch = errors.New("no valuation bracket covers price")
	// ErrRulesAPI indicates the remote rules source failed to answer.
	ErrRulesAPI = errors.New("valuation rules api error")
	// ErrInvalidRule indicates a stored rule that cannot be applied.
	ErrInvalidRule = errors.New("invalid valuation rule")
)

// Rule is one configured bracket for a game. Fixed values, when set, replace the percentage.
type Rule struct {
	ID              int64            `json:"id,omitempty"`
	Game            domain.Game      `json:"game"`
	MinValue        decimal.Decimal  `json:"minValue"`
	MaxValue        *decimal.Decimal `json:"maxValue,omitempty"`
	CashPercentage  decimal.Decimal  `json:"cashPercentage"`
	TradePercentage decimal.Decimal  `json:"tradePercentage"`
	FixedCashValue  *decimal.Decimal `json:"fixedCashValue,omitempty"`
	FixedTradeValue *decimal.Decimal `json:"fixedTradeValue,omitempty"`
}

// RulesStore answers which rule applies to a game and price.
// Implementations return ErrNoSettings or ErrNoPriceRangeMatch when nothing applies.
type RulesStore interface {
	GetRule(ctx context.Context, game domain.Game, marketPrice decimal.Decimal) (Rule, error)
}

// Covers reports whether the bracket includes price. Both bounds are inclusive.
func (r Rule) Covers(price decimal.Decimal) bool {
	if price.LessThan(r.MinValue) {
		return false
	}
	return r.MaxValue == nil || !price.GreaterThan(*r.MaxValue)
}

// Validate checks that the rule can produce a valuation.
func (r Rule) Validate() error {
	if r.Game == "" {
		return fmt.Errorf("%w: missing game", ErrInvalidRule)
	}
	if r.MinValue.IsNegative() {
		return fmt.Errorf("%w: negative min value %s", ErrInvalidRule, r.MinValue)
	}
	if r.MaxValue != nil && r.MaxValue.LessThan(r.MinValue) {
		return fmt.Errorf("%w: max value %s below min value %s", ErrInvalidRule, r.MaxValue, r.MinValue)
	}
	if r.CashPercentage.IsNegative() || r.TradePercentage.IsNegative() {
		return fmt.Errorf("%w: negative percentage", ErrInvalidRule)
	}
	if r.FixedCashValue != nil && r.FixedCashValue.IsNegative() {
		return fmt.Errorf("%w: negative fixed cash value", ErrInvalidRule)
	}
	if r.FixedTradeValue != nil && r.FixedTradeValue.IsNegative() {
		return fmt.Errorf("%w: negative fixed trade value", ErrInvalidRule)
	}
	if r.CashPercentage.IsZero() && r.TradePercentage.IsZero() && r.FixedCashValue == nil && r.FixedTradeValue == nil {
		return fmt.Errorf("%w: neither percentages nor fixed values set", ErrInvalidRule)
	}
	return nil
}

// Apply converts a market price into cash and trade values.
func (r Rule) Apply(price decimal.Decimal) (cash, trade decimal.Decimal) {
	cash = domain.Percent(price, r.CashPercentage)
	if r.FixedCashValue != nil {
		cash = *r.FixedCashValue
	}
	trade = domain.Percent(price, r.TradePercentage)
	if r.FixedTradeValue != nil {
		trade = *r.FixedTradeValue
	}
	return cash, trade
}

// selectRule picks the bracket covering price with the highest MinValue from a game's rules.
func selectRule(rules []Rule, game domain.Game, price decimal.Decimal) (Rule, error) {
	forGame := lo.Filter(rules, func(r Rule, _ int) bool {
		return r.Game == game
	})
	if len(forGame) == 0 {
		return Rule{}, fmt.Errorf("%w: %s", ErrNoSettings, game)
	}

	covering := lo.Filter(forGame, func(r Rule, _ int) bool {
		return r.Covers(price)
	})
	if len(covering) == 0 {
		return Rule{}, fmt.Errorf("%w: %s at %s", ErrNoPriceRangeMatch, game, price)
	}

	return lo.MaxBy(covering, func(a, b Rule) bool {
		return a.MinValue.GreaterThan(b.MinValue)
	}), nil
}
