package trade

import (
	"errors"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/cardtrade/internal/domain"
)

var (
	// ErrNotFound indicates that the requested trade or item does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition indicates an operation not allowed in the trade's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrIncomplete indicates a trade that cannot be submitted yet.
	ErrIncomplete = errors.New("trade incomplete")
)

// Status is the approval workflow state of a trade.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPendingApproval, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Trade is a customer's trade-in list and its approval state.
type Trade struct {
	ID           string             `json:"id"`
	CustomerName string             `json:"customerName"`
	Note         string             `json:"note,omitempty"`
	Status       Status             `json:"status"`
	Items        []domain.TradeItem `json:"items"`
	DecidedBy    string             `json:"decidedBy,omitempty"`
	DecisionNote string             `json:"decisionNote,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
	SubmittedAt  *time.Time         `json:"submittedAt,omitempty"`
	DecidedAt    *time.Time         `json:"decidedAt,omitempty"`
}

// Totals summarises a trade's payout.
type Totals struct {
	CashTotal      decimal.Decimal `json:"cashTotal"`
	TradeTotal     decimal.Decimal `json:"tradeTotal"`
	CardCount      int             `json:"cardCount"`
	UndecidedCount int             `json:"undecidedCount"`
	UnpricedCount  int             `json:"unpricedCount"`
	FallbackCount  int             `json:"fallbackCount"`
}

// Totals sums value × quantity per chosen payment type. Undecided items count toward neither total.
func (t Trade) Totals() Totals {
	totals := Totals{CashTotal: decimal.Zero, TradeTotal: decimal.Zero}

	for _, item := range t.Items {
		totals.CardCount += item.Quantity
		v, ok := item.PayoutValue()
		if !ok {
			continue
		}
		line := v.Mul(decimal.NewFromInt(int64(item.Quantity)))
		switch item.PaymentType {
		case domain.PaymentCash:
			totals.CashTotal = totals.CashTotal.Add(line)
		case domain.PaymentTrade:
			totals.TradeTotal = totals.TradeTotal.Add(line)
		}
	}

	totals.UndecidedCount = lo.CountBy(t.Items, func(item domain.TradeItem) bool {
		return item.PaymentType == domain.PaymentUndecided
	})
	totals.UnpricedCount = lo.CountBy(t.Items, func(item domain.TradeItem) bool {
		return item.IsPriceUnavailable || item.ErrorCode != ""
	})
	totals.FallbackCount = lo.CountBy(t.Items, func(item domain.TradeItem) bool {
		return item.UsedFallback
	})
	return totals
}

// itemIndex returns the position of the item with the given ID.
func (t Trade) itemIndex(itemID string) (int, bool) {
	_, idx, ok := lo.FindIndexOf(t.Items, func(item domain.TradeItem) bool {
		return item.ID == itemID
	})
	return idx, ok
}

// Item returns the item with the given ID.
func (t Trade) Item(itemID string) (domain.TradeItem, bool) {
	idx, ok := t.itemIndex(itemID)
	if !ok {
		return domain.TradeItem{}, false
	}
	return t.Items[idx], true
}

// incompleteItems lists IDs of items that block submission: still loading, without a value for
// the chosen payment type, or with no payment type.
func (t Trade) incompleteItems() []string {
	return lo.FilterMap(t.Items, func(item domain.TradeItem, _ int) (string, bool) {
		if item.IsLoadingPrice {
			return item.ID, true
		}
		_, ok := item.PayoutValue()
		return item.ID, !ok
	})
}

// Summary aggregates decided trades over a period.
type Summary struct {
	From       time.Time       `json:"from"`
	To         time.Time       `json:"to"`
	TradeCount int             `json:"tradeCount"`
	CardCount  int             `json:"cardCount"`
	CashTotal  decimal.Decimal `json:"cashTotal"`
	TradeTotal decimal.Decimal `json:"tradeTotal"`
	ByGame     []GameTotals    `json:"byGame"`
}

// GameTotals is one game's share of a Summary.
type GameTotals struct {
	Game       domain.Game     `json:"game"`
	CardCount  int             `json:"cardCount"`
	CashTotal  decimal.Decimal `json:"cashTotal"`
	TradeTotal decimal.Decimal `json:"tradeTotal"`
}

// Summarize aggregates trades into a Summary for [from, to).
func Summarize(trades []Trade, from, to time.Time) Summary {
	s := Summary{From: from, To: to, TradeCount: len(trades), CashTotal: decimal.Zero, TradeTotal: decimal.Zero}

	byGame := make(map[domain.Game]*GameTotals)
	for _, t := range trades {
		totals := t.Totals()
		s.CardCount += totals.CardCount
		s.CashTotal = s.CashTotal.Add(totals.CashTotal)
		s.TradeTotal = s.TradeTotal.Add(totals.TradeTotal)

		for _, item := range t.Items {
			g, ok := byGame[item.Card.Game]
			if !ok {
				g = &GameTotals{Game: item.Card.Game, CashTotal: decimal.Zero, TradeTotal: decimal.Zero}
				byGame[item.Card.Game] = g
			}
			g.CardCount += item.Quantity
			v, ok := item.PayoutValue()
			if !ok {
				continue
			}
			line := v.Mul(decimal.NewFromInt(int64(item.Quantity)))
			if item.PaymentType == domain.PaymentCash {
				g.CashTotal = g.CashTotal.Add(line)
			} else {
				g.TradeTotal = g.TradeTotal.Add(line)
			}
		}
	}

	s.ByGame = lo.Map(lo.Values(byGame), func(g *GameTotals, _ int) GameTotals {
		return *g
	})
	sort.Slice(s.ByGame, func(i, j int) bool {
		return s.ByGame[i].Game < s.ByGame[j].Game
	})
	return s
}
