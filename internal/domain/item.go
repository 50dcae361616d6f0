package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// SchemaVersion is the current version of the TradeItem record.
const SchemaVersion = 1

// PaymentType is how the customer is paid for an item. The empty value means undecided and
// encodes as JSON null.
type PaymentType string

const (
	PaymentUndecided PaymentType = ""
	PaymentCash      PaymentType = "cash"
	PaymentTrade     PaymentType = "trade"
)

// Valid reports whether p is cash, trade or undecided.
func (p PaymentType) Valid() bool {
	return p == PaymentUndecided || p == PaymentCash || p == PaymentTrade
}

func (p PaymentType) MarshalJSON() ([]byte, error) {
	if p == PaymentUndecided {
		return []byte("null"), nil
	}
	return json.Marshal(string(p))
}

func (p *PaymentType) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = PaymentUndecided
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("parsing payment type: %w", err)
	}
	pt := PaymentType(s)
	if !pt.Valid() {
		return fmt.Errorf("unknown payment type %q", s)
	}
	*p = pt
	return nil
}

// TradeItem is one line item being evaluated for a trade-in.
//
// CashValue and TradeValue are derived unless their ManuallySet flag is true, in which case
// they hold a staff-entered override that survives recalculation.
type TradeItem struct {
	SchemaVersion int       `json:"schemaVersion"`
	ID            string    `json:"id"`
	Card          CardRef   `json:"card"`
	Condition     Condition `json:"condition"`
	Finish
	Quantity int `json:"quantity"`

	MarketPrice            decimal.Decimal `json:"marketPrice"`
	MarketPriceManuallySet bool            `json:"marketPriceManuallySet"`
	PaymentType            PaymentType     `json:"paymentType"`

	CashValue             *decimal.Decimal `json:"cashValue"`
	TradeValue            *decimal.Decimal `json:"tradeValue"`
	CashValueManuallySet  bool             `json:"cashValueManuallySet"`
	TradeValueManuallySet bool             `json:"tradeValueManuallySet"`

	UsedFallback   bool           `json:"usedFallback"`
	FallbackReason FallbackReason `json:"fallbackReason,omitempty"`

	ActualCondition    Condition `json:"actualCondition,omitempty"`
	PriceUsedFallback  bool      `json:"priceUsedFallback"`
	IsLoadingPrice     bool      `json:"isLoadingPrice"`
	IsPriceUnavailable bool      `json:"isPriceUnavailable"`
	Error              string    `json:"error,omitempty"`
	ErrorCode          ErrorCode `json:"errorCode,omitempty"`
	InitialCalculation bool      `json:"initialCalculation"`
}

// NewTradeItem creates an item with fresh defaults: quantity 1, undecided payment, no overrides.
func NewTradeItem(id string, card CardRef, condition Condition, finish Finish) TradeItem {
	return TradeItem{
		SchemaVersion: SchemaVersion,
		ID:            id,
		Card:          card,
		Condition:     condition,
		Finish:        finish,
		Quantity:      1,
		MarketPrice:   decimal.Zero,
	}
}

// Clone returns a copy that shares no mutable state with it.
func (t TradeItem) Clone() TradeItem {
	if t.Card.Variants != nil {
		variants := make([]Variant, len(t.Card.Variants))
		copy(variants, t.Card.Variants)
		t.Card.Variants = variants
	}
	if t.CashValue != nil {
		t.CashValue = Ptr(*t.CashValue)
	}
	if t.TradeValue != nil {
		t.TradeValue = Ptr(*t.TradeValue)
	}
	return t
}

// Normalize fills the schema version and clamps quantity. It is applied where items enter the system.
func (t TradeItem) Normalize() TradeItem {
	if t.SchemaVersion == 0 {
		t.SchemaVersion = SchemaVersion
	}
	t.Quantity = ClampQuantityInt(t.Quantity)
	return t
}

// Validate checks the record invariants.
func (t TradeItem) Validate() error {
	if t.SchemaVersion != SchemaVersion {
		return fmt.Errorf("item %s: unsupported schema version %d", t.ID, t.SchemaVersion)
	}
	if err := t.Card.Validate(); err != nil {
		return fmt.Errorf("item %s: %w", t.ID, err)
	}
	if !t.Condition.Valid() {
		return fmt.Errorf("item %s: unknown condition %q", t.ID, t.Condition)
	}
	if err := t.Finish.Validate(); err != nil {
		return fmt.Errorf("item %s: %w", t.ID, err)
	}
	if t.Quantity < 1 {
		return fmt.Errorf("item %s: quantity must be at least 1", t.ID)
	}
	if t.MarketPrice.IsNegative() {
		return fmt.Errorf("item %s: market price must not be negative", t.ID)
	}
	if !t.PaymentType.Valid() {
		return fmt.Errorf("item %s: unknown payment type %q", t.ID, t.PaymentType)
	}
	return nil
}

// Values returns the current cash/trade pair.
func (t TradeItem) Values() Values {
	return Values{CashValue: t.CashValue, TradeValue: t.TradeValue}
}

// PayoutValue returns the per-unit value for the chosen payment type, if any.
func (t TradeItem) PayoutValue() (decimal.Decimal, bool) {
	switch t.PaymentType {
	case PaymentCash:
		if t.CashValue != nil {
			return *t.CashValue, true
		}
	case PaymentTrade:
		if t.TradeValue != nil {
			return *t.TradeValue, true
		}
	}
	return decimal.Zero, false
}
