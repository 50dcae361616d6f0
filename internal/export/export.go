package export

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/cardtrade/internal/trade"
)

// totalLabel marks the all-games row of a summary.
const totalLabel = "TOTAL"

// SummaryRow is one game's share of the approved-trades summary.
type SummaryRow struct {
	Game       string
	CardCount  int
	CashTotal  decimal.Decimal
	TradeTotal decimal.Decimal
	// CashShare is cash / (cash + trade), nil when nothing was paid out.
	CashShare *decimal.Decimal
}

// SheetWriter writes a day's summary rows to a spreadsheet destination.
type SheetWriter interface {
	Write(ctx context.Context, day time.Time, rows []SummaryRow) error
}

// Service turns trade summaries into sheet rows and delegates writing to a SheetWriter.
type Service struct {
	writer SheetWriter
}

// NewService creates a new export Service.
func NewService(writer SheetWriter) *Service {
	return &Service{writer: writer}
}

// Export writes the summary for its reporting day.
// Implements worker.AfterReportHook.
func (s *Service) Export(ctx context.Context, summary trade.Summary) error {
	rows := summaryRows(summary)
	if err := s.writer.Write(ctx, summary.From, rows); err != nil {
		return fmt.Errorf("writing summary for %s: %w", summary.From.Format(time.DateOnly), err)
	}
	return nil
}

// summaryRows returns one row per game followed by the TOTAL row.
func summaryRows(summary trade.Summary) []SummaryRow {
	rows := lo.Map(summary.ByGame, func(g trade.GameTotals, _ int) SummaryRow {
		return newSummaryRow(string(g.Game), g.CardCount, g.CashTotal, g.TradeTotal)
	})
	return append(rows, newSummaryRow(totalLabel, summary.CardCount, summary.CashTotal, summary.TradeTotal))
}

func newSummaryRow(game string, cards int, cash, tradeTotal decimal.Decimal) SummaryRow {
	row := SummaryRow{Game: game, CardCount: cards, CashTotal: cash, TradeTotal: tradeTotal}
	if paid := cash.Add(tradeTotal); paid.IsPositive() {
		share := cash.Div(paid)
		row.CashShare = &share
	}
	return row
}
