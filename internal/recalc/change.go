package recalc

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/cardtrade/internal/domain"
	"github.com/mtlprog/cardtrade/internal/override"
)

// Kind identifies what a Change edits.
type Kind string

const (
	KindCondition    Kind = "condition"
	KindFinish       Kind = "finish"
	KindFirstEdition Kind = "isFirstEdition"
	KindHolo         Kind = "isHolo"
	KindReverseHolo  Kind = "isReverseHolo"
	KindMarketPrice  Kind = "marketPrice"
	KindPaymentType  Kind = "paymentType"
	KindQuantity     Kind = "quantity"
	KindCashValue    Kind = "cashValue"
	KindTradeValue   Kind = "tradeValue"
	KindRefresh      Kind = "refresh"
)

// Change is one field-change event on an item.
type Change struct {
	Kind        Kind               `json:"kind"`
	Condition   domain.Condition   `json:"condition,omitempty"`
	Finish      domain.Finish      `json:"finish"`
	Flag        bool               `json:"flag,omitempty"`
	Amount      decimal.Decimal    `json:"amount"`
	PaymentType domain.PaymentType `json:"paymentType"`
	Quantity    int                `json:"quantity,omitempty"`
}

// SetCondition changes the card condition. The price is refetched unless manually set.
func SetCondition(c domain.Condition) Change {
	return Change{Kind: KindCondition, Condition: c}
}

// SetFinish replaces all finish flags. Holo and reverse holo must not both be set.
func SetFinish(f domain.Finish) Change {
	return Change{Kind: KindFinish, Finish: f}
}

func SetFirstEdition(on bool) Change {
	return Change{Kind: KindFirstEdition, Flag: on}
}

// SetHolo toggles holo; turning it on turns reverse holo off.
func SetHolo(on bool) Change {
	return Change{Kind: KindHolo, Flag: on}
}

// SetReverseHolo toggles reverse holo; turning it on turns holo off.
func SetReverseHolo(on bool) Change {
	return Change{Kind: KindReverseHolo, Flag: on}
}

// SetMarketPrice records a manual market price. Later condition or finish edits keep it
// instead of refetching.
func SetMarketPrice(v decimal.Decimal) Change {
	return Change{Kind: KindMarketPrice, Amount: v}
}

func SetPaymentType(p domain.PaymentType) Change {
	return Change{Kind: KindPaymentType, PaymentType: p}
}

func SetQuantity(n int) Change {
	return Change{Kind: KindQuantity, Quantity: n}
}

// SetCashValue records a manual cash value. It bypasses pricing and valuation.
func SetCashValue(v decimal.Decimal) Change {
	return Change{Kind: KindCashValue, Amount: v}
}

// SetTradeValue records a manual trade value. It bypasses pricing and valuation.
func SetTradeValue(v decimal.Decimal) Change {
	return Change{Kind: KindTradeValue, Amount: v}
}

// Refresh drops a manual market price and refetches.
func Refresh() Change { return Change{Kind: KindRefresh} }

// plan is what the engine must do after a change has been applied to the item.
type plan int

const (
	// planPatchOnly: no valuation work and no state transition.
	planPatchOnly plan = iota
	// planManualValue: a manual cash or trade edit.
	planManualValue
	// planRecompute: revalue from the current market price.
	planRecompute
	// planFetch: fetch a new price, then revalue.
	planFetch
)

// apply returns the edited item and the work it requires.
func (c Change) apply(item domain.TradeItem) (domain.TradeItem, plan, error) {
	switch c.Kind {
	case KindCondition:
		if !c.Condition.Valid() {
			return item, 0, fmt.Errorf("%w: unknown condition %q", ErrInvalidChange, c.Condition)
		}
		out := override.ClearOverrides(item)
		out.Condition = c.Condition
		return out, fetchUnlessManual(out), nil

	case KindFinish:
		if err := c.Finish.Validate(); err != nil {
			return item, 0, fmt.Errorf("%w: %v", ErrInvalidChange, err)
		}
		out := override.ClearOverrides(item)
		out.Finish = c.Finish
		return out, fetchUnlessManual(out), nil

	case KindFirstEdition:
		out := override.ClearOverrides(item)
		out.FirstEdition = c.Flag
		return out, fetchUnlessManual(out), nil

	case KindHolo:
		out := override.ClearOverrides(item)
		out.Finish = out.Finish.WithHolo(c.Flag)
		return out, fetchUnlessManual(out), nil

	case KindReverseHolo:
		out := override.ClearOverrides(item)
		out.Finish = out.Finish.WithReverseHolo(c.Flag)
		return out, fetchUnlessManual(out), nil

	case KindMarketPrice:
		if c.Amount.IsNegative() {
			return item, 0, fmt.Errorf("%w: market price must not be negative", ErrInvalidChange)
		}
		return override.SetManualMarketPrice(item, c.Amount), planRecompute, nil

	case KindPaymentType:
		if !c.PaymentType.Valid() {
			return item, 0, fmt.Errorf("%w: unknown payment type %q", ErrInvalidChange, c.PaymentType)
		}
		out := override.ClearOverrides(item)
		out.PaymentType = c.PaymentType
		return out, planRecompute, nil

	case KindQuantity:
		out := item.Clone()
		out.Quantity = domain.ClampQuantityInt(c.Quantity)
		return out, planPatchOnly, nil

	case KindCashValue:
		if c.Amount.IsNegative() {
			return item, 0, fmt.Errorf("%w: cash value must not be negative", ErrInvalidChange)
		}
		return override.SetManualCash(item, c.Amount), planManualValue, nil

	case KindTradeValue:
		if c.Amount.IsNegative() {
			return item, 0, fmt.Errorf("%w: trade value must not be negative", ErrInvalidChange)
		}
		return override.SetManualTrade(item, c.Amount), planManualValue, nil

	case KindRefresh:
		out := override.ClearOverrides(item)
		out.MarketPriceManuallySet = false
		return out, planFetch, nil
	}

	return item, 0, fmt.Errorf("%w: unknown change kind %q", ErrInvalidChange, c.Kind)
}

func fetchUnlessManual(item domain.TradeItem) plan {
	if item.MarketPriceManuallySet {
		return planRecompute
	}
	return planFetch
}
