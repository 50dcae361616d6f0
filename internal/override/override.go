// Package override merges calculated valuations with staff-entered manual values.
package override

import (
	"github.com/shopspring/decimal"

	"github.com/mtlprog/cardtrade/internal/domain"
)

// Field names an item input whose change may invalidate manual overrides.
type Field string

const (
	FieldCondition    Field = "condition"
	FieldFirstEdition Field = "isFirstEdition"
	FieldHolo         Field = "isHolo"
	FieldReverseHolo  Field = "isReverseHolo"
	FieldMarketPrice  Field = "marketPrice"
	FieldPaymentType  Field = "paymentType"
	FieldQuantity     Field = "quantity"
	FieldCashValue    Field = "cashValue"
	FieldTradeValue   Field = "tradeValue"
)

var invalidating = map[Field]bool{
	FieldCondition:    true,
	FieldFirstEdition: true,
	FieldHolo:         true,
	FieldReverseHolo:  true,
	FieldMarketPrice:  true,
	FieldPaymentType:  true,
}

// InvalidatesOverrides reports whether a change to f must clear the manual cash/trade flags
// before the next Merge.
func InvalidatesOverrides(f Field) bool {
	return invalidating[f]
}

// ClearOverrides returns a copy with the manual cash/trade flags cleared. The values stay in
// place but are now treated as derived and will be replaced by the next Merge.
func ClearOverrides(item domain.TradeItem) domain.TradeItem {
	out := item.Clone()
	out.CashValueManuallySet = false
	out.TradeValueManuallySet = false
	return out
}

// Merge applies a fresh valuation to item and returns the result. item is not modified.
//
// A manual value wins only while its flag is set and the value is present. MarketPrice is
// never changed here.
func Merge(item domain.TradeItem, calc domain.ValuationResult) domain.TradeItem {
	out := item.Clone()

	out.CashValue, out.CashValueManuallySet = pick(out.CashValue, out.CashValueManuallySet, calc.CashValue)
	out.TradeValue, out.TradeValueManuallySet = pick(out.TradeValue, out.TradeValueManuallySet, calc.TradeValue)

	out.UsedFallback = calc.UsedFallback
	out.FallbackReason = calc.FallbackReason

	if out.MarketPrice.IsPositive() && out.PaymentType == domain.PaymentUndecided && !out.MarketPriceManuallySet {
		out.PaymentType = domain.PaymentCash
	}

	return out
}

func pick(current *decimal.Decimal, manual bool, calculated decimal.Decimal) (*decimal.Decimal, bool) {
	if manual && current != nil {
		return current, true
	}
	return domain.Ptr(calculated), false
}

// SetManualCash records a staff-entered cash value. Negative amounts are clamped to zero.
func SetManualCash(item domain.TradeItem, v decimal.Decimal) domain.TradeItem {
	out := item.Clone()
	out.CashValue = domain.Ptr(nonNegative(v))
	out.CashValueManuallySet = true
	return out
}

// SetManualTrade records a staff-entered trade value. Negative amounts are clamped to zero.
func SetManualTrade(item domain.TradeItem, v decimal.Decimal) domain.TradeItem {
	out := item.Clone()
	out.TradeValue = domain.Ptr(nonNegative(v))
	out.TradeValueManuallySet = true
	return out
}

// SetManualMarketPrice records a staff-entered market price. Any lookup problem on the item is
// resolved by the manual entry, and the cash/trade overrides are cleared since the price they
// were entered against is gone.
func SetManualMarketPrice(item domain.TradeItem, v decimal.Decimal) domain.TradeItem {
	out := ClearOverrides(item)
	out.MarketPrice = nonNegative(v)
	out.MarketPriceManuallySet = true
	out.IsPriceUnavailable = false
	out.Error = ""
	out.ErrorCode = ""
	return out
}

func nonNegative(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}
