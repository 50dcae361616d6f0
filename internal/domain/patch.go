package domain

import "github.com/shopspring/decimal"

// ItemPatch is a partial update to a TradeItem. Nil fields are left unchanged.
// ClearCashValue / ClearTradeValue reset the value to "not set".
type ItemPatch struct {
	Condition              *Condition       `json:"condition,omitempty"`
	Finish                 *Finish          `json:"finish,omitempty"`
	Quantity               *int             `json:"quantity,omitempty"`
	MarketPrice            *decimal.Decimal `json:"marketPrice,omitempty"`
	MarketPriceManuallySet *bool            `json:"marketPriceManuallySet,omitempty"`
	PaymentType            *PaymentType     `json:"paymentType,omitempty"`
	CashValue              *decimal.Decimal `json:"cashValue,omitempty"`
	ClearCashValue         bool             `json:"clearCashValue,omitempty"`
	TradeValue             *decimal.Decimal `json:"tradeValue,omitempty"`
	ClearTradeValue        bool             `json:"clearTradeValue,omitempty"`
	CashValueManuallySet   *bool            `json:"cashValueManuallySet,omitempty"`
	TradeValueManuallySet  *bool            `json:"tradeValueManuallySet,omitempty"`
	UsedFallback           *bool            `json:"usedFallback,omitempty"`
	FallbackReason         *FallbackReason  `json:"fallbackReason,omitempty"`
	ActualCondition        *Condition       `json:"actualCondition,omitempty"`
	PriceUsedFallback      *bool            `json:"priceUsedFallback,omitempty"`
	IsLoadingPrice         *bool            `json:"isLoadingPrice,omitempty"`
	IsPriceUnavailable     *bool            `json:"isPriceUnavailable,omitempty"`
	Error                  *string          `json:"error,omitempty"`
	ErrorCode              *ErrorCode       `json:"errorCode,omitempty"`
	InitialCalculation     *bool            `json:"initialCalculation,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ItemPatch) IsEmpty() bool {
	return p == (ItemPatch{})
}

// Diff returns the patch that turns before into after.
func Diff(before, after TradeItem) ItemPatch {
	var p ItemPatch
	if before.Condition != after.Condition {
		p.Condition = &after.Condition
	}
	if before.Finish != after.Finish {
		f := after.Finish
		p.Finish = &f
	}
	if before.Quantity != after.Quantity {
		p.Quantity = &after.Quantity
	}
	if !before.MarketPrice.Equal(after.MarketPrice) {
		p.MarketPrice = Ptr(after.MarketPrice)
	}
	if before.MarketPriceManuallySet != after.MarketPriceManuallySet {
		p.MarketPriceManuallySet = &after.MarketPriceManuallySet
	}
	if before.PaymentType != after.PaymentType {
		p.PaymentType = &after.PaymentType
	}
	p.CashValue, p.ClearCashValue = diffAmount(before.CashValue, after.CashValue)
	p.TradeValue, p.ClearTradeValue = diffAmount(before.TradeValue, after.TradeValue)
	if before.CashValueManuallySet != after.CashValueManuallySet {
		p.CashValueManuallySet = &after.CashValueManuallySet
	}
	if before.TradeValueManuallySet != after.TradeValueManuallySet {
		p.TradeValueManuallySet = &after.TradeValueManuallySet
	}
	if before.UsedFallback != after.UsedFallback {
		p.UsedFallback = &after.UsedFallback
	}
	if before.FallbackReason != after.FallbackReason {
		p.FallbackReason = &after.FallbackReason
	}
	if before.ActualCondition != after.ActualCondition {
		p.ActualCondition = &after.ActualCondition
	}
	if before.PriceUsedFallback != after.PriceUsedFallback {
		p.PriceUsedFallback = &after.PriceUsedFallback
	}
	if before.IsLoadingPrice != after.IsLoadingPrice {
		p.IsLoadingPrice = &after.IsLoadingPrice
	}
	if before.IsPriceUnavailable != after.IsPriceUnavailable {
		p.IsPriceUnavailable = &after.IsPriceUnavailable
	}
	if before.Error != after.Error {
		p.Error = &after.Error
	}
	if before.ErrorCode != after.ErrorCode {
		p.ErrorCode = &after.ErrorCode
	}
	if before.InitialCalculation != after.InitialCalculation {
		p.InitialCalculation = &after.InitialCalculation
	}
	return p
}

func diffAmount(before, after *decimal.Decimal) (*decimal.Decimal, bool) {
	switch {
	case before == nil && after == nil:
		return nil, false
	case after == nil:
		return nil, true
	case before == nil || !before.Equal(*after):
		return Ptr(*after), false
	}
	return nil, false
}

// Apply returns a copy of item with the patch applied.
func (p ItemPatch) Apply(item TradeItem) TradeItem {
	out := item.Clone()
	if p.Condition != nil {
		out.Condition = *p.Condition
	}
	if p.Finish != nil {
		out.Finish = *p.Finish
	}
	if p.Quantity != nil {
		out.Quantity = ClampQuantityInt(*p.Quantity)
	}
	if p.MarketPrice != nil {
		out.MarketPrice = *p.MarketPrice
	}
	if p.MarketPriceManuallySet != nil {
		out.MarketPriceManuallySet = *p.MarketPriceManuallySet
	}
	if p.PaymentType != nil {
		out.PaymentType = *p.PaymentType
	}
	if p.ClearCashValue {
		out.CashValue = nil
	} else if p.CashValue != nil {
		out.CashValue = Ptr(*p.CashValue)
	}
	if p.ClearTradeValue {
		out.TradeValue = nil
	} else if p.TradeValue != nil {
		out.TradeValue = Ptr(*p.TradeValue)
	}
	if p.CashValueManuallySet != nil {
		out.CashValueManuallySet = *p.CashValueManuallySet
	}
	if p.TradeValueManuallySet != nil {
		out.TradeValueManuallySet = *p.TradeValueManuallySet
	}
	if p.UsedFallback != nil {
		out.UsedFallback = *p.UsedFallback
	}
	if p.FallbackReason != nil {
		out.FallbackReason = *p.FallbackReason
	}
	if p.ActualCondition != nil {
		out.ActualCondition = *p.ActualCondition
	}
	if p.PriceUsedFallback != nil {
		out.PriceUsedFallback = *p.PriceUsedFallback
	}
	if p.IsLoadingPrice != nil {
		out.IsLoadingPrice = *p.IsLoadingPrice
	}
	if p.IsPriceUnavailable != nil {
		out.IsPriceUnavailable = *p.IsPriceUnavailable
	}
	if p.Error != nil {
		out.Error = *p.Error
	}
	if p.ErrorCode != nil {
		out.ErrorCode = *p.ErrorCode
	}
	if p.InitialCalculation != nil {
		out.InitialCalculation = *p.InitialCalculation
	}
	return out
}
