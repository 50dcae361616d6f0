package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/cardtrade/internal/domain"
	"github.com/mtlprog/cardtrade/internal/price"
	"github.com/mtlprog/cardtrade/internal/recalc"
	"github.com/mtlprog/cardtrade/internal/valuation"
)

// ValuationHandler exposes the pricer and the value calculator for one-off quotes.
type ValuationHandler struct {
	valuer recalc.Valuer
	pricer recalc.Pricer
}

// NewValuationHandler creates a new valuation handler.
func NewValuationHandler(valuer recalc.Valuer, pricer recalc.Pricer) *ValuationHandler {
	return &ValuationHandler{valuer: valuer, pricer: pricer}
}

type valuationResponse struct {
	domain.ValuationResult
	CashValueDisplay  string `json:"cashValueDisplay"`
	TradeValueDisplay string `json:"tradeValueDisplay"`
}

func newValuationResponse(v domain.ValuationResult) valuationResponse {
	return valuationResponse{
		ValuationResult:   v,
		CashValueDisplay:  domain.FormatMoney(v.CashValue),
		TradeValueDisplay: domain.FormatMoney(v.TradeValue),
	}
}

// Calculate handles POST /api/v1/valuations. A malformed request still gets a valuation body,
// the zero-price fallback flagged INVALID_INPUT.
func (h *ValuationHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req valuationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, newValuationResponse(
			valuation.Fallback(decimal.Zero, domain.FallbackInvalidInput, err.Error())))
		return
	}

	result := h.valuer.Calculate(r.Context(), domain.NormalizeGame(req.Game), req.MarketPrice)
	writeJSON(w, http.StatusOK, newValuationResponse(result))
}

// MethodNotAllowed answers any non-POST request to the valuations endpoint.
func (h *ValuationHandler) MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Allow", http.MethodPost)
	writeJSON(w, http.StatusMethodNotAllowed, newValuationResponse(
		valuation.Fallback(decimal.Zero, domain.FallbackMethodNotAllowed, "method not allowed")))
}

type resolveResponse struct {
	domain.PriceLookupResult
	PriceDisplay string `json:"priceDisplay"`
}

// Resolve handles POST /api/v1/prices/resolve.
func (h *ValuationHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cond, err := domain.ParseCondition(req.Condition)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Finish.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.pricer.ResolvePrice(r.Context(), normalizeCard(req.Card), cond, req.Finish)
	if err != nil {
		if errors.Is(err, price.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Warn("price resolve failed", "product", req.Card.ProductID, "error", err)
		writeError(w, http.StatusBadGateway, "price lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, resolveResponse{
		PriceLookupResult: result,
		PriceDisplay:      domain.FormatMoney(result.Price),
	})
}
