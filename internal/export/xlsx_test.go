package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/mtlprog/cardtrade/internal/domain"
	"github.com/mtlprog/cardtrade/internal/trade"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleTrade() trade.Trade {
	charizard := domain.NewTradeItem("item-1",
		domain.CardRef{ProductID: "base1-4", Name: "Charizard", SetName: "Base Set", Game: domain.GamePokemon},
		domain.ConditionMint,
		domain.Finish{FirstEdition: true, Holo: true},
	)
	charizard.Quantity = 2
	charizard.MarketPrice = d("50")
	charizard.PaymentType = domain.PaymentCash
	charizard.CashValue = domain.Ptr(d("20"))
	charizard.TradeValue = domain.Ptr(d("30"))

	pikachu := domain.NewTradeItem("item-2",
		domain.CardRef{ProductID: "base1-58", Name: "Pikachu", Game: domain.GamePokemon},
		domain.ConditionLightlyPlayed,
		domain.Finish{},
	)
	pikachu.MarketPrice = d("10")
	pikachu.CashValue = domain.Ptr(d("3.5"))
	pikachu.TradeValue = domain.Ptr(d("5"))
	pikachu.ActualCondition = domain.ConditionNearMint
	pikachu.PriceUsedFallback = true
	pikachu.UsedFallback = true
	pikachu.FallbackReason = domain.FallbackNoSettings

	return trade.Trade{
		ID:           "trade-1",
		CustomerName: "Alex",
		Status:       trade.StatusDraft,
		Items:        []domain.TradeItem{charizard, pikachu},
		CreatedAt:    time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC),
	}
}

func TestWriteTradeXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTradeXLSX(&buf, sampleTrade()); err != nil {
		t.Fatalf("WriteTradeXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != tradeSheet {
		t.Fatalf("sheets = %v, want [%s]", sheets, tradeSheet)
	}

	raw := excelize.Options{RawCellValue: true}
	tests := []struct {
		cell string
		want string
	}{
		{"B1", "Alex"},
		{"B2", "draft"},
		{"B3", "2026-03-10 15:00"},
		{"A5", "Card"},
		{"N5", "Notes"},
		{"A6", "Charizard"},
		{"E6", "Mint"},
		{"F6", ""},
		{"G6", "1st Edition Holo"},
		{"H6", "2"},
		{"I6", "50"},
		{"J6", "cash"},
		{"K6", "20"},
		{"L6", "30"},
		{"M6", "40"},
		{"A7", "Pikachu"},
		{"F7", "Near Mint"},
		{"G7", "Normal"},
		{"J7", "undecided"},
		{"K7", "3.5"},
		{"M7", ""},
		{"N7", "fallback: NO_SETTINGS_FOUND"},
		{"L9", "Cash Total"},
		{"M9", "40"},
		{"L10", "Trade Total"},
		{"M10", "0"},
		{"M11", "3"},
		{"M12", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			got, err := f.GetCellValue(tradeSheet, tt.cell, raw)
			if err != nil {
				t.Fatalf("GetCellValue(%s) error = %v", tt.cell, err)
			}
			if got != tt.want {
				t.Errorf("%s = %q, want %q", tt.cell, got, tt.want)
			}
		})
	}
}

func TestWriteTradeXLSXEmptyTrade(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTradeXLSX(&buf, trade.Trade{ID: "t", CustomerName: "Sam", Status: trade.StatusDraft}); err != nil {
		t.Fatalf("WriteTradeXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	got, err := f.GetCellValue(tradeSheet, "L7")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Cash Total" {
		t.Errorf("L7 = %q, want %q", got, "Cash Total")
	}
}

func TestFinishLabel(t *testing.T) {
	tests := []struct {
		finish domain.Finish
		want   string
	}{
		{domain.Finish{}, "Normal"},
		{domain.Finish{Holo: true}, "Holo"},
		{domain.Finish{ReverseHolo: true}, "Reverse Holo"},
		{domain.Finish{FirstEdition: true}, "1st Edition"},
		{domain.Finish{FirstEdition: true, ReverseHolo: true}, "1st Edition Reverse Holo"},
	}

	for _, tt := range tests {
		if got := finishLabel(tt.finish); got != tt.want {
			t.Errorf("finishLabel(%+v) = %q, want %q", tt.finish, got, tt.want)
		}
	}
}

func TestItemNotes(t *testing.T) {
	item := domain.NewTradeItem("i", domain.CardRef{Game: domain.GameMTG}, domain.ConditionMint, domain.Finish{})
	if got := itemNotes(item); got != "" {
		t.Errorf("itemNotes(fresh) = %q, want empty", got)
	}

	item.ErrorCode = domain.ErrorPriceUnavailable
	item.MarketPriceManuallySet = true
	item.CashValueManuallySet = true
	want := "PRICE_UNAVAILABLE; manual price; manual value"
	if got := itemNotes(item); got != want {
		t.Errorf("itemNotes() = %q, want %q", got, want)
	}
}
