package domain

import (
	"github.com/shopspring/decimal"
)

const currencyPrecision = 2

var hundred = decimal.NewFromInt(100)

// Percent applies a 0–100 percentage: price * pct / 100. No rounding.
func Percent(price, pct decimal.Decimal) decimal.Decimal {
	return price.Mul(pct).Div(hundred)
}

// FormatMoney rounds to cents for presentation, e.g. "20.00".
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(currencyPrecision)
}

// FormatMoneyPtr formats an optional amount, returning "" when absent.
func FormatMoneyPtr(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return FormatMoney(*d)
}

// Ptr returns a pointer to a copy of d.
func Ptr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
