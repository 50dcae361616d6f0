// Package recalc runs the per-item recalculation pipeline: price lookup, valuation and
// override merge, with last-request-wins ordering per item.
package recalc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/cardtrade/internal/domain"
	"github.com/mtlprog/cardtrade/internal/override"
)

// DefaultDebounce is the window for coalescing value-change notifications per item.
const DefaultDebounce = 100 * time.Millisecond

var (
	// ErrSuperseded is returned when a newer change for the same item started before this
	// one finished. Its result has been discarded.
	ErrSuperseded = errors.New("superseded by a newer change")
	// ErrInvalidChange indicates a change that cannot be applied to the item.
	ErrInvalidChange = errors.New("invalid change")
)

// State is the recalculation state of one item.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateSettled State = "settled"
	StateErrored State = "errored"
)

// Pricer resolves a market price for a card.
type Pricer interface {
	ResolvePrice(ctx context.Context, card domain.CardRef, cond domain.Condition, finish domain.Finish) (domain.PriceLookupResult, error)
}

// Valuer converts a market price into cash and trade values.
type Valuer interface {
	Calculate(ctx context.Context, game domain.Game, marketPrice decimal.Decimal) domain.ValuationResult
}

// Notifier receives item patches and debounced value changes. The engine never mutates
// caller-owned items; callers apply the patches to their own copy.
type Notifier interface {
	OnUpdate(itemID string, patch domain.ItemPatch)
	OnValueChange(itemID string, values domain.Values)
}

type nopNotifier struct{}

func (nopNotifier) OnUpdate(string, domain.ItemPatch) {}
func (nopNotifier) OnValueChange(string, domain.Values) {}

type itemState struct {
	token uint64
	state State
	held  heldEdits
}

// heldEdits are edits made while a fetch was loading. They are newer than the inputs the fetch
// priced, so they are reapplied to its result instead of superseding it.
type heldEdits struct {
	payment *domain.PaymentType
	cash    *decimal.Decimal
	trade   *decimal.Decimal
}

func (h *heldEdits) record(c Change) {
	switch c.Kind {
	case KindPaymentType:
		p := c.PaymentType
		h.payment = &p
		h.cash, h.trade = nil, nil
	case KindCashValue:
		v := c.Amount
		h.cash = &v
	case KindTradeValue:
		v := c.Amount
		h.trade = &v
	}
}

func (h heldEdits) apply(item domain.TradeItem) domain.TradeItem {
	if h.payment != nil {
		item.PaymentType = *h.payment
	}
	if h.cash != nil {
		item = override.SetManualCash(item, *h.cash)
	}
	if h.trade != nil {
		item = override.SetManualTrade(item, *h.trade)
	}
	return item
}

// Engine orchestrates recalculation for many items. Different items proceed concurrently;
// the mutex only guards request bookkeeping.
type Engine struct {
	pricer   Pricer
	valuer   Valuer
	notifier Notifier
	clock    Clock
	window   time.Duration
	debounce *debouncer

	mu    sync.Mutex
	seq   uint64
	items map[string]*itemState
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier sets the notifier. The default discards notifications.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithClock sets the clock used for debouncing.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithDebounce sets the value-change debounce window. Zero disables debouncing.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) { e.window = d }
}

// NewEngine creates an Engine.
func NewEngine(pricer Pricer, valuer Valuer, opts ...Option) *Engine {
	e := &Engine{
		pricer:   pricer,
		valuer:   valuer,
		notifier: nopNotifier{},
		clock:    systemClock{},
		window:   DefaultDebounce,
		items:    make(map[string]*itemState),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.debounce = newDebouncer(e.clock, e.window)
	return e
}

// Handle applies change to item and runs whatever recalculation it requires. It returns the
// resulting item; the input is not modified. A lookup failure or missing price is not an
// error: the item comes back Errored with its error fields set. ErrSuperseded means a newer
// change for the same item won and this result must be ignored.
func (e *Engine) Handle(ctx context.Context, item domain.TradeItem, change Change) (domain.TradeItem, error) {
	if item.ID == "" {
		return item, fmt.Errorf("%w: item has no id", ErrInvalidChange)
	}
	item = item.Normalize()

	next, p, err := change.apply(item)
	if err != nil {
		return item, err
	}

	switch p {
	case planPatchOnly:
		e.notifier.OnUpdate(item.ID, domain.Diff(item, next))
		return next, nil

	case planManualValue:
		e.hold(item.ID, change)
		e.notifier.OnUpdate(item.ID, valuePatch(item, next))
		e.valuesChanged(next)
		return next, nil

	case planRecompute:
		// A payment type choice does not change the price, so a loading fetch stays
		// authoritative and picks the choice up when it settles.
		if change.Kind == KindPaymentType {
			if e.holdOrBegin(item.ID, change) {
				e.notifier.OnUpdate(item.ID, domain.Diff(item, next))
				return next, nil
			}
		} else {
			e.begin(item.ID, StateSettled)
		}
		out := e.revalue(ctx, next)
		if change.Kind == KindPaymentType {
			out.PaymentType = next.PaymentType
		}
		e.notifier.OnUpdate(item.ID, valuePatch(item, out))
		e.valuesChanged(out)
		return out, nil
	}

	return e.fetch(ctx, item, next)
}

func (e *Engine) fetch(ctx context.Context, item, next domain.TradeItem) (domain.TradeItem, error) {
	token := e.begin(item.ID, StateLoading)

	loading := next.Clone()
	loading.IsLoadingPrice = true
	loading.IsPriceUnavailable = false
	loading.Error = ""
	loading.ErrorCode = ""
	e.notifier.OnUpdate(item.ID, domain.Diff(item, loading))

	result, err := e.pricer.ResolvePrice(ctx, loading.Card, loading.Condition, loading.Finish)

	out := loading.Clone()
	out.IsLoadingPrice = false
	state := StateSettled

	switch {
	case err != nil:
		state = StateErrored
		slog.Warn("price lookup failed", "item", item.ID, "product", item.Card.ProductID, "error", err)
		out.Error = err.Error()
		out.ErrorCode = domain.ErrorLookupFailed
		clearValues(&out)

	case result.Unavailable:
		state = StateErrored
		out.IsPriceUnavailable = true
		out.Error = "no price available for any condition"
		out.ErrorCode = domain.ErrorPriceUnavailable
		out.MarketPrice = decimal.Zero
		out.ActualCondition = ""
		out.PriceUsedFallback = false
		clearValues(&out)

	default:
		out = override.ClearOverrides(out)
		out.MarketPrice = result.Price
		out.ActualCondition = result.ActualCondition
		out.PriceUsedFallback = result.UsedFallback
		out.InitialCalculation = true
		out = override.Merge(out, e.valuer.Calculate(ctx, out.Card.Game, out.MarketPrice))
	}

	held, ok := e.settle(item.ID, token, state)
	if !ok {
		slog.Debug("discarding stale recalculation", "item", item.ID, "token", token)
		return item, ErrSuperseded
	}
	out = held.apply(out)

	e.notifier.OnUpdate(item.ID, valuePatch(loading, out))
	if state == StateSettled {
		e.valuesChanged(out)
	}
	return out, nil
}

// revalue recomputes cash and trade from the item's current market price. Items without a
// usable price keep their values until a price is fetched or entered.
func (e *Engine) revalue(ctx context.Context, item domain.TradeItem) domain.TradeItem {
	out := item.Clone()
	out.IsLoadingPrice = false
	out.InitialCalculation = false
	if !out.MarketPrice.IsPositive() && !out.MarketPriceManuallySet {
		return out
	}
	return override.Merge(out, e.valuer.Calculate(ctx, out.Card.Game, out.MarketPrice))
}

func clearValues(item *domain.TradeItem) {
	item.CashValue = nil
	item.TradeValue = nil
	item.CashValueManuallySet = false
	item.TradeValueManuallySet = false
	item.UsedFallback = false
	item.FallbackReason = ""
}

// valuePatch is Diff plus the value fields and override flags, always present so a caller
// that changed them meanwhile ends up consistent with this result.
func valuePatch(before, after domain.TradeItem) domain.ItemPatch {
	p := domain.Diff(before, after)

	p.CashValue, p.ClearCashValue = nil, after.CashValue == nil
	if after.CashValue != nil {
		p.CashValue = domain.Ptr(*after.CashValue)
	}
	p.TradeValue, p.ClearTradeValue = nil, after.TradeValue == nil
	if after.TradeValue != nil {
		p.TradeValue = domain.Ptr(*after.TradeValue)
	}

	cashManual, tradeManual := after.CashValueManuallySet, after.TradeValueManuallySet
	p.CashValueManuallySet = &cashManual
	p.TradeValueManuallySet = &tradeManual
	return p
}

func (e *Engine) valuesChanged(item domain.TradeItem) {
	id, values := item.ID, item.Clone().Values()
	e.debounce.trigger(id, func() {
		e.notifier.OnValueChange(id, values)
	})
}

// begin starts a new request for the item, superseding any in flight.
func (e *Engine) begin(itemID string, state State) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.beginLocked(itemID, state)
}

func (e *Engine) beginLocked(itemID string, state State) uint64 {
	e.seq++
	st, ok := e.items[itemID]
	if !ok {
		st = &itemState{}
		e.items[itemID] = st
	}
	st.token = e.seq
	st.state = state
	st.held = heldEdits{}
	return st.token
}

// hold records c against the item's loading fetch. It reports false when no fetch is loading.
func (e *Engine) hold(itemID string, c Change) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.holdLocked(itemID, c)
}

func (e *Engine) holdLocked(itemID string, c Change) bool {
	st, ok := e.items[itemID]
	if !ok || st.state != StateLoading {
		return false
	}
	st.held.record(c)
	return true
}

// holdOrBegin holds c for a loading fetch, or starts a settled request when none is loading.
// It reports whether c was held.
func (e *Engine) holdOrBegin(itemID string, c Change) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.holdLocked(itemID, c) {
		return true
	}
	e.beginLocked(itemID, StateSettled)
	return false
}

// settle records the outcome if token is still the item's latest request and returns the
// edits held while it was loading.
func (e *Engine) settle(itemID string, token uint64, state State) (heldEdits, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.items[itemID]
	if !ok || st.token != token {
		return heldEdits{}, false
	}
	st.state = state
	held := st.held
	st.held = heldEdits{}
	return held, true
}

// State returns the item's recalculation state. Unknown items are Idle.
func (e *Engine) State(itemID string) State {
	e.mu.Lock()
	defer e.mu.Unlock()

	if st, ok := e.items[itemID]; ok {
		return st.state
	}
	return StateIdle
}

// Forget drops all state for an item that was removed. In-flight results for it are discarded.
func (e *Engine) Forget(itemID string) {
	e.mu.Lock()
	delete(e.items, itemID)
	e.mu.Unlock()

	e.debounce.cancel(itemID)
}
