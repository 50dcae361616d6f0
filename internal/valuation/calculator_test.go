package valuation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/cardtrade/internal/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

type mockRules struct {
	rule  Rule
	err   error
	panic bool
	calls int
}

func (m *mockRules) GetRule(_ context.Context, _ domain.Game, _ decimal.Decimal) (Rule, error) {
	m.calls++
	if m.panic {
		panic("rule engine exploded")
	}
	return m.rule, m.err
}

func pokemonRules() *StaticRules {
	return NewStaticRules([]Rule{
		{Game: domain.GamePokemon, MinValue: d("0"), MaxValue: dp("99.99"), CashPercentage: d("40"), TradePercentage: d("60")},
		{Game: domain.GamePokemon, MinValue: d("100"), CashPercentage: d("50"), TradePercentage: d("70")},
		{Game: domain.GameMTG, MinValue: d("0"), MaxValue: dp("1"), FixedCashValue: dp("0.05"), FixedTradeValue: dp("0.10")},
	})
}

func TestCalculateScenarioPokemonBracket(t *testing.T) {
	c := NewCalculator(pokemonRules())

	got := c.Calculate(context.Background(), domain.GamePokemon, d("50"))

	if domain.FormatMoney(got.CashValue) != "20.00" {
		t.Errorf("cash = %s, want 20.00", domain.FormatMoney(got.CashValue))
	}
	if domain.FormatMoney(got.TradeValue) != "30.00" {
		t.Errorf("trade = %s, want 30.00", domain.FormatMoney(got.TradeValue))
	}
	if got.UsedFallback {
		t.Errorf("usedFallback = true, want false (reason %s)", got.FallbackReason)
	}
}

func TestCalculateFallbackFloor(t *testing.T) {
	c := NewCalculator(pokemonRules())

	got := c.Calculate(context.Background(), domain.GameYugioh, d("100"))

	if !got.CashValue.Equal(d("35")) || !got.TradeValue.Equal(d("50")) {
		t.Errorf("got cash %s trade %s, want 35/50", got.CashValue, got.TradeValue)
	}
	if !got.UsedFallback || got.FallbackReason != domain.FallbackNoSettings {
		t.Errorf("got usedFallback=%v reason=%s, want NO_SETTINGS_FOUND", got.UsedFallback, got.FallbackReason)
	}
}

func TestCalculateIdempotent(t *testing.T) {
	c := NewCalculator(pokemonRules())

	for _, p := range []string{"0", "0.01", "49.995", "100", "1234.5678"} {
		a := c.Calculate(context.Background(), domain.GamePokemon, d(p))
		b := c.Calculate(context.Background(), domain.GamePokemon, d(p))
		if !a.CashValue.Equal(b.CashValue) || !a.TradeValue.Equal(b.TradeValue) ||
			a.UsedFallback != b.UsedFallback || a.FallbackReason != b.FallbackReason || a.Error != b.Error {
			t.Errorf("price %s: results differ: %+v vs %+v", p, a, b)
		}
	}
}

func TestCalculateKeepsFullPrecision(t *testing.T) {
	c := NewCalculator(pokemonRules())

	got := c.Calculate(context.Background(), domain.GamePokemon, d("0.99"))
	if !got.CashValue.Equal(d("0.396")) {
		t.Errorf("cash = %s, want unrounded 0.396", got.CashValue)
	}
}

func TestCalculateCases(t *testing.T) {
	tests := []struct {
		name         string
		store        RulesStore
		game         domain.Game
		price        string
		wantCash     string
		wantTrade    string
		wantFallback bool
		wantReason   domain.FallbackReason
	}{
		{"upper bracket", pokemonRules(), domain.GamePokemon, "200", "100", "140", false, ""},
		{"bracket boundary uses higher min", pokemonRules(), domain.GamePokemon, "100", "50", "70", false, ""},
		{"fixed values", pokemonRules(), domain.GameMTG, "0.50", "0.05", "0.10", false, ""},
		{"no bracket covers price", pokemonRules(), domain.GameMTG, "10", "3.5", "5", true, domain.FallbackNoPriceRange},
		{"zero price", pokemonRules(), domain.GamePokemon, "0", "0", "0", false, ""},
		{"zero price without game", pokemonRules(), "", "0", "0", "0", false, ""},
		{"negative price", pokemonRules(), domain.GamePokemon, "-5", "0", "0", true, domain.FallbackInvalidInput},
		{"empty game", pokemonRules(), "", "10", "3.5", "5", true, domain.FallbackInvalidInput},
		{"nil store", nil, domain.GamePokemon, "10", "3.5", "5", true, domain.FallbackNoSettings},
		{"database error", &mockRules{err: errors.New("connection reset")}, domain.GamePokemon, "10", "3.5", "5", true, domain.FallbackDatabaseError},
		{"api error", &mockRules{err: fmt.Errorf("%w: 502", ErrRulesAPI)}, domain.GamePokemon, "10", "3.5", "5", true, domain.FallbackAPIError},
		{"deadline", &mockRules{err: context.DeadlineExceeded}, domain.GamePokemon, "10", "3.5", "5", true, domain.FallbackAPIError},
		{"invalid rule", &mockRules{rule: Rule{Game: domain.GamePokemon, CashPercentage: d("-1"), TradePercentage: d("50")}}, domain.GamePokemon, "10", "3.5", "5", true, domain.FallbackCalculationError},
		{"panic", &mockRules{panic: true}, domain.GamePokemon, "10", "3.5", "5", true, domain.FallbackCalculationError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCalculator(tt.store)
			got := c.Calculate(context.Background(), tt.game, d(tt.price))

			if !got.CashValue.Equal(d(tt.wantCash)) {
				t.Errorf("cash = %s, want %s", got.CashValue, tt.wantCash)
			}
			if !got.TradeValue.Equal(d(tt.wantTrade)) {
				t.Errorf("trade = %s, want %s", got.TradeValue, tt.wantTrade)
			}
			if got.UsedFallback != tt.wantFallback {
				t.Errorf("usedFallback = %v, want %v", got.UsedFallback, tt.wantFallback)
			}
			if got.FallbackReason != tt.wantReason {
				t.Errorf("reason = %q, want %q", got.FallbackReason, tt.wantReason)
			}
			if tt.wantFallback && got.Error == "" {
				t.Error("expected error message on fallback")
			}
		})
	}
}

func TestCalculateZeroPriceSkipsStore(t *testing.T) {
	store := &mockRules{err: errors.New("must not be called")}
	c := NewCalculator(store)

	c.Calculate(context.Background(), domain.GamePokemon, decimal.Zero)
	if store.calls != 0 {
		t.Errorf("store called %d times for zero price", store.calls)
	}
}
