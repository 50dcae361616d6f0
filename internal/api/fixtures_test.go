package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/cardtrade/internal/domain"
	"github.com/mtlprog/cardtrade/internal/price"
	"github.com/mtlprog/cardtrade/internal/recalc"
	"github.com/mtlprog/cardtrade/internal/trade"
	"github.com/mtlprog/cardtrade/internal/valuation"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type memRepo struct {
	mu     sync.Mutex
	trades map[string]trade.Trade
}

func newMemRepo() *memRepo {
	return &memRepo{trades: make(map[string]trade.Trade)}
}

func cloneTrade(t trade.Trade) trade.Trade {
	items := make([]domain.TradeItem, len(t.Items))
	for i, item := range t.Items {
		items[i] = item.Clone()
	}
	t.Items = items
	return t
}

func (m *memRepo) Save(_ context.Context, t trade.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades[t.ID] = cloneTrade(t)
	return nil
}

func (m *memRepo) Get(_ context.Context, id string) (trade.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trades[id]
	if !ok {
		return trade.Trade{}, fmt.Errorf("trade %s: %w", id, trade.ErrNotFound)
	}
	return cloneTrade(t), nil
}

func (m *memRepo) List(_ context.Context, status trade.Status, limit int) ([]trade.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []trade.Trade
	for _, t := range m.trades {
		if (status == "" || t.Status == status) && len(out) < limit {
			out = append(out, cloneTrade(t))
		}
	}
	return out, nil
}

func (m *memRepo) ListDecided(_ context.Context, _ trade.Status, _, _ time.Time) ([]trade.Trade, error) {
	return nil, nil
}

// memTables serves condition tables by product ID; "broken" fails like an unreachable database.
type memTables map[string]price.ConditionTable

func (m memTables) FetchConditionTable(_ context.Context, _ domain.Game, productID string, _ domain.Finish) (price.ConditionTable, error) {
	if productID == "broken" {
		return nil, errors.New("connection refused")
	}
	return m[productID], nil
}

type testEnv struct {
	router http.Handler
	repo   *memRepo
}

func newTestEnv(t *testing.T, adminKey string) testEnv {
	t.Helper()

	tables := memTables{
		"sv1-25": {
			domain.ConditionMint:          d("60"),
			domain.ConditionNearMint:      d("50"),
			domain.ConditionLightlyPlayed: d("40"),
		},
		"lea-232": {
			domain.ConditionNearMint: d("100"),
		},
	}
	pricer := price.NewPricer(price.NewMarketLookup(tables))
	calc := valuation.NewCalculator(valuation.NewStaticRules([]valuation.Rule{
		{Game: domain.GamePokemon, MinValue: decimal.Zero, CashPercentage: d("40"), TradePercentage: d("60")},
	}))

	repo := newMemRepo()
	trades := trade.NewService(repo, pricer, calc, recalc.WithDebounce(0))

	router := NewRouter(ServerConfig{
		Port:           "0",
		AdminAPIKey:    adminKey,
		AllowedOrigins: []string{"*"},
	}, trades, calc, pricer)

	return testEnv{router: router, repo: repo}
}

func (e testEnv) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type tradeResponse struct {
	ID                string             `json:"id"`
	CustomerName      string             `json:"customerName"`
	Status            trade.Status       `json:"status"`
	Items             []domain.TradeItem `json:"items"`
	Totals            trade.Totals       `json:"totals"`
	CashTotalDisplay  string             `json:"cashTotalDisplay"`
	TradeTotalDisplay string             `json:"tradeTotalDisplay"`
}

func decodeTrade(t *testing.T, w *httptest.ResponseRecorder) tradeResponse {
	t.Helper()
	var resp tradeResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding trade response: %v (body %q)", err, w.Body.String())
	}
	return resp
}

// createTradeWithItem creates a trade and adds two near-mint copies of sv1-25 to it.
func (e testEnv) createTradeWithItem(t *testing.T) tradeResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/trades", `{"customerName":"Misty"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	created := decodeTrade(t, w)

	w = e.do(t, http.MethodPost, "/api/v1/trades/"+created.ID+"/items",
		`{"card":{"productId":"sv1-25","name":"Pikachu","game":"Pokemon"},"condition":"NM","finish":{},"quantity":"2"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("add item status = %d, body %s", w.Code, w.Body.String())
	}
	return decodeTrade(t, w)
}
