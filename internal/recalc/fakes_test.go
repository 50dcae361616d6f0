package recalc

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/cardtrade/internal/domain"
	"github.com/mtlprog/cardtrade/internal/valuation"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) AfterFunc(dur time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(dur), fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs every due timer synchronously.
func (c *fakeClock) Advance(dur time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(dur)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

type recordingNotifier struct {
	mu      sync.Mutex
	patches []domain.ItemPatch
	values  []domain.Values
}

func (n *recordingNotifier) OnUpdate(_ string, patch domain.ItemPatch) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.patches = append(n.patches, patch)
}

func (n *recordingNotifier) OnValueChange(_ string, v domain.Values) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.values = append(n.values, v)
}

// replay applies every recorded patch to item, in order.
func (n *recordingNotifier) replay(item domain.TradeItem) domain.TradeItem {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, p := range n.patches {
		item = p.Apply(item)
	}
	return item
}

func (n *recordingNotifier) valueCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.values)
}

// tablePricer answers from a fixed per-condition table. A condition with a gate blocks until
// the gate is closed; started receives each condition as its lookup begins.
type tablePricer struct {
	mu      sync.Mutex
	prices  map[domain.Condition]decimal.Decimal
	gates   map[domain.Condition]chan struct{}
	started chan domain.Condition
	err     error
	calls   int
}

func (p *tablePricer) ResolvePrice(_ context.Context, _ domain.CardRef, cond domain.Condition, _ domain.Finish) (domain.PriceLookupResult, error) {
	p.mu.Lock()
	p.calls++
	gate := p.gates[cond]
	price, ok := p.prices[cond]
	err := p.err
	started := p.started
	p.mu.Unlock()

	if started != nil {
		started <- cond
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return domain.PriceLookupResult{}, err
	}
	if !ok {
		return domain.Unpriced(), nil
	}
	return domain.PriceLookupResult{Price: price, ActualCondition: cond}, nil
}

func (p *tablePricer) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

var errLookupDown = errors.New("lookup service unreachable")

func pokemonCalculator() *valuation.Calculator {
	return valuation.NewCalculator(valuation.NewStaticRules([]valuation.Rule{
		{Game: domain.GamePokemon, MinValue: decimal.Zero, CashPercentage: d("40"), TradePercentage: d("60")},
	}))
}

func pokemonItem() domain.TradeItem {
	return domain.NewTradeItem("item-1", domain.CardRef{ProductID: "sv1-25", Name: "Pikachu", Game: domain.GamePokemon}, domain.ConditionMint, domain.Finish{})
}
