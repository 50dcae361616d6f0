package export

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/cardtrade/internal/domain"
	"github.com/mtlprog/cardtrade/internal/trade"
)

type mockSheetWriter struct {
	day  time.Time
	rows []SummaryRow
	err  error
}

func (m *mockSheetWriter) Write(_ context.Context, day time.Time, rows []SummaryRow) error {
	m.day = day
	m.rows = rows
	return m.err
}

func sampleSummary() trade.Summary {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	return trade.Summary{
		From:       day,
		To:         day.AddDate(0, 0, 1),
		TradeCount: 3,
		CardCount:  12,
		CashTotal:  d("30"),
		TradeTotal: d("10"),
		ByGame: []trade.GameTotals{
			{Game: domain.GameMTG, CardCount: 4, CashTotal: decimal.Zero, TradeTotal: decimal.Zero},
			{Game: domain.GamePokemon, CardCount: 8, CashTotal: d("30"), TradeTotal: d("10")},
		},
	}
}

func TestSummaryRows(t *testing.T) {
	rows := summaryRows(sampleSummary())

	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0].Game != "mtg" || rows[0].CashShare != nil {
		t.Errorf("mtg row = %+v, want no cash share", rows[0])
	}
	if rows[1].Game != "pokemon" || rows[1].CashShare == nil || !rows[1].CashShare.Equal(d("0.75")) {
		t.Errorf("pokemon row = %+v, want cash share 0.75", rows[1])
	}

	total := rows[2]
	if total.Game != totalLabel || total.CardCount != 12 {
		t.Errorf("total row = %+v", total)
	}
	if !total.CashTotal.Equal(d("30")) || !total.TradeTotal.Equal(d("10")) {
		t.Errorf("total cash/trade = %s/%s, want 30/10", total.CashTotal, total.TradeTotal)
	}
}

func TestServiceExport(t *testing.T) {
	writer := &mockSheetWriter{}
	svc := NewService(writer)
	summary := sampleSummary()

	if err := svc.Export(context.Background(), summary); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !writer.day.Equal(summary.From) {
		t.Errorf("day = %v, want %v", writer.day, summary.From)
	}
	if len(writer.rows) != 3 {
		t.Errorf("rows = %d, want 3", len(writer.rows))
	}
}

func TestServiceExportWrapsWriterError(t *testing.T) {
	errSheets := errors.New("quota exceeded")
	svc := NewService(&mockSheetWriter{err: errSheets})

	err := svc.Export(context.Background(), sampleSummary())
	if !errors.Is(err, errSheets) {
		t.Errorf("Export() error = %v, want wrapping %v", err, errSheets)
	}
}
