package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mtlprog/cardtrade/internal/domain"
	"github.com/mtlprog/cardtrade/internal/export"
	"github.com/mtlprog/cardtrade/internal/price"
	"github.com/mtlprog/cardtrade/internal/recalc"
	"github.com/mtlprog/cardtrade/internal/trade"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler provides HTTP endpoints for trade-in lists and their approval.
type Handler struct {
	trades *trade.Service
}

// NewHandler creates a new API handler.
func NewHandler(trades *trade.Service) *Handler {
	return &Handler{trades: trades}
}

// tradeView is a trade with its totals, rounded for display alongside the exact amounts.
type tradeView struct {
	trade.Trade
	Totals            trade.Totals `json:"totals"`
	CashTotalDisplay  string       `json:"cashTotalDisplay"`
	TradeTotalDisplay string       `json:"tradeTotalDisplay"`
}

func newTradeView(t trade.Trade) tradeView {
	totals := t.Totals()
	return tradeView{
		Trade:             t,
		Totals:            totals,
		CashTotalDisplay:  domain.FormatMoney(totals.CashTotal),
		TradeTotalDisplay: domain.FormatMoney(totals.TradeTotal),
	}
}

// CreateTrade handles POST /api/v1/trades.
func (h *Handler) CreateTrade(w http.ResponseWriter, r *http.Request) {
	var req createTradeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.trades.Create(r.Context(), req.CustomerName, req.Note)
	if err != nil {
		writeServiceError(w, "create trade", err)
		return
	}
	writeJSON(w, http.StatusCreated, newTradeView(t))
}

// GetTrade handles GET /api/v1/trades/{id}.
func (h *Handler) GetTrade(w http.ResponseWriter, r *http.Request) {
	t, err := h.trades.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "get trade", err)
		return
	}
	writeJSON(w, http.StatusOK, newTradeView(t))
}

// ListTrades handles GET /api/v1/trades.
func (h *Handler) ListTrades(w http.ResponseWriter, r *http.Request) {
	const maxLimit = 200
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = min(n, maxLimit)
		}
	}

	status := trade.Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", status))
		return
	}

	trades, err := h.trades.List(r.Context(), status, limit)
	if err != nil {
		writeServiceError(w, "list trades", err)
		return
	}

	views := make([]tradeView, 0, len(trades))
	for _, t := range trades {
		views = append(views, newTradeView(t))
	}
	writeJSON(w, http.StatusOK, views)
}

// AddItem handles POST /api/v1/trades/{id}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cond, err := domain.ParseCondition(req.Condition)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.trades.AddItem(r.Context(), r.PathValue("id"),
		normalizeCard(req.Card), cond, req.Finish, domain.ClampQuantity(rawText(req.Quantity)))
	if err != nil {
		writeServiceError(w, "add item", err)
		return
	}
	writeJSON(w, http.StatusCreated, newTradeView(t))
}

// UpdateItem handles PATCH /api/v1/trades/{id}/items/{itemID}.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req itemChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	change, err := req.toChange()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.trades.UpdateItem(r.Context(), r.PathValue("id"), r.PathValue("itemID"), change)
	if err != nil {
		writeServiceError(w, "update item", err)
		return
	}
	writeJSON(w, http.StatusOK, newTradeView(t))
}

// RemoveItem handles DELETE /api/v1/trades/{id}/items/{itemID}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	t, err := h.trades.RemoveItem(r.Context(), r.PathValue("id"), r.PathValue("itemID"))
	if err != nil {
		writeServiceError(w, "remove item", err)
		return
	}
	writeJSON(w, http.StatusOK, newTradeView(t))
}

// ClearItems handles DELETE /api/v1/trades/{id}/items.
func (h *Handler) ClearItems(w http.ResponseWriter, r *http.Request) {
	t, err := h.trades.Clear(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "clear items", err)
		return
	}
	writeJSON(w, http.StatusOK, newTradeView(t))
}

// SubmitTrade handles POST /api/v1/trades/{id}/submit.
func (h *Handler) SubmitTrade(w http.ResponseWriter, r *http.Request) {
	t, err := h.trades.Submit(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "submit trade", err)
		return
	}
	writeJSON(w, http.StatusOK, newTradeView(t))
}

// ApproveTrade handles POST /api/v1/trades/{id}/approve.
func (h *Handler) ApproveTrade(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.trades.Approve)
}

// RejectTrade handles POST /api/v1/trades/{id}/reject.
func (h *Handler) RejectTrade(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.trades.Reject)
}

type decideFunc func(ctx context.Context, tradeID, approver, note string) (trade.Trade, error)

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, fn decideFunc) {
	var req decisionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := fn(r.Context(), r.PathValue("id"), req.Approver, req.Note)
	if err != nil {
		writeServiceError(w, "decide trade", err)
		return
	}
	writeJSON(w, http.StatusOK, newTradeView(t))
}

// ExportTrade handles GET /api/v1/trades/{id}/export.xlsx.
func (h *Handler) ExportTrade(w http.ResponseWriter, r *http.Request) {
	t, err := h.trades.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "export trade", err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteTradeXLSX(&buf, t); err != nil {
		slog.Error("failed to render trade workbook", "trade", t.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="trade-%s.xlsx"`, t.ID))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("failed to write workbook", "trade", t.ID, "error", err)
	}
}

// writeServiceError maps service sentinels to HTTP statuses. Unknown errors are logged and hidden.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, trade.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, trade.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, trade.ErrIncomplete):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, recalc.ErrInvalidChange), errors.Is(err, price.ErrInvalidInput), errors.Is(err, errBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, price.ErrLookupFailed):
		slog.Warn("price lookup failed", "op", op, "error", err)
		writeError(w, http.StatusBadGateway, "price lookup failed")
	default:
		slog.Error("request failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
