package domain

import "github.com/shopspring/decimal"

// FallbackReason explains why the global fallback valuation was applied.
type FallbackReason string

const (
	FallbackNoSettings       FallbackReason = "NO_SETTINGS_FOUND"
	FallbackNoPriceRange     FallbackReason = "NO_PRICE_RANGE_MATCH"
	FallbackDatabaseError    FallbackReason = "DATABASE_ERROR"
	FallbackCalculationError FallbackReason = "CALCULATION_ERROR"
	FallbackAPIError         FallbackReason = "API_ERROR"
	FallbackInvalidInput     FallbackReason = "INVALID_INPUT"
	FallbackMethodNotAllowed FallbackReason = "METHOD_NOT_ALLOWED"
)

// ErrorCode classifies item-level price lookup problems.
type ErrorCode string

const (
	ErrorPriceUnavailable ErrorCode = "PRICE_UNAVAILABLE"
	ErrorLookupFailed     ErrorCode = "LOOKUP_FAILED"
)

// ValuationResult is the {cash, trade} pair derived from a market price.
type ValuationResult struct {
	CashValue      decimal.Decimal `json:"cashValue"`
	TradeValue     decimal.Decimal `json:"tradeValue"`
	UsedFallback   bool            `json:"usedFallback"`
	FallbackReason FallbackReason  `json:"fallbackReason,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// Anomaly records a condition whose raw price exceeded the next-better condition and was capped.
type Anomaly struct {
	Condition Condition       `json:"condition"`
	Raw       decimal.Decimal `json:"raw"`
	CappedTo  decimal.Decimal `json:"cappedTo"`
}

// PriceLookupResult is the outcome of resolving a market price for a card.
// ActualCondition differs from the requested condition only when a fallback condition was used.
type PriceLookupResult struct {
	Price           decimal.Decimal `json:"price"`
	Unavailable     bool            `json:"unavailable"`
	ActualCondition Condition       `json:"actualCondition,omitempty"`
	UsedFallback    bool            `json:"usedFallback"`
	Anomalies       []Anomaly       `json:"anomalies,omitempty"`
}

// Unpriced is the result returned when no usable price exists for any condition.
func Unpriced() PriceLookupResult {
	return PriceLookupResult{Price: decimal.Zero, Unavailable: true}
}

// Values is the payload of a value-change notification.
type Values struct {
	CashValue  *decimal.Decimal `json:"cashValue"`
	TradeValue *decimal.Decimal `json:"tradeValue"`
}
