package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/mtlprog/cardtrade/internal/domain"
	"github.com/mtlprog/cardtrade/internal/trade"
)

const (
	tradeSheet = "Trade"
	// itemHeaderRow is the 1-based row of the item table header; the trade header sits above it.
	itemHeaderRow = 5
	// moneyFormat is the built-in "0.00" number format.
	moneyFormat = 2
)

var itemHeaders = []any{
	"Card", "Set", "Game", "Product ID", "Condition", "Priced As", "Finish", "Qty",
	"Market Price", "Payment", "Cash Value", "Trade Value", "Line Total", "Notes",
}

// WriteTradeXLSX renders a trade-in list as a single-sheet workbook: trade header, one row per
// item, then totals.
func WriteTradeXLSX(w io.Writer, t trade.Trade) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", tradeSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := [][]any{
		{"Customer", t.CustomerName},
		{"Status", string(t.Status)},
		{"Created", t.CreatedAt.UTC().Format("2006-01-02 15:04")},
	}
	for i, row := range header {
		if err := setRow(f, 1, i+1, row); err != nil {
			return err
		}
	}

	if err := setRow(f, 1, itemHeaderRow, itemHeaders); err != nil {
		return err
	}

	row := itemHeaderRow + 1
	for _, item := range t.Items {
		if err := setRow(f, 1, row, itemRow(item)); err != nil {
			return err
		}
		row++
	}
	lastItemRow := row - 1

	totals := t.Totals()
	row++
	totalsStart := row
	for _, r := range [][]any{
		{"Cash Total", moneyCell(&totals.CashTotal)},
		{"Trade Total", moneyCell(&totals.TradeTotal)},
		{"Cards", totals.CardCount},
		{"Undecided", totals.UndecidedCount},
		{"Unpriced", totals.UnpricedCount},
	} {
		if err := setRow(f, 12, row, r); err != nil {
			return err
		}
		row++
	}

	if err := styleTradeSheet(f, lastItemRow, totalsStart); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// itemRow renders one item in itemHeaders order.
func itemRow(item domain.TradeItem) []any {
	pricedAs := ""
	if item.PriceUsedFallback && item.ActualCondition != "" {
		pricedAs = item.ActualCondition.Label()
	}

	var lineTotal any
	if v, ok := item.PayoutValue(); ok {
		lineTotal = toFloat(v.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	payment := string(item.PaymentType)
	if item.PaymentType == domain.PaymentUndecided {
		payment = "undecided"
	}

	return []any{
		item.Card.Name,
		item.Card.SetName,
		string(item.Card.Game),
		item.Card.ProductID,
		item.Condition.Label(),
		pricedAs,
		finishLabel(item.Finish),
		item.Quantity,
		toFloat(item.MarketPrice),
		payment,
		moneyCell(item.CashValue),
		moneyCell(item.TradeValue),
		lineTotal,
		itemNotes(item),
	}
}

// finishLabel renders finish flags, e.g. "1st Edition Holo". Plain cards render as "Normal".
func finishLabel(f domain.Finish) string {
	var parts []string
	if f.FirstEdition {
		parts = append(parts, "1st Edition")
	}
	switch {
	case f.Holo:
		parts = append(parts, "Holo")
	case f.ReverseHolo:
		parts = append(parts, "Reverse Holo")
	}
	if len(parts) == 0 {
		return "Normal"
	}
	return strings.Join(parts, " ")
}

func itemNotes(item domain.TradeItem) string {
	var notes []string
	if item.ErrorCode != "" {
		notes = append(notes, string(item.ErrorCode))
	}
	if item.UsedFallback {
		notes = append(notes, "fallback: "+string(item.FallbackReason))
	}
	if item.MarketPriceManuallySet {
		notes = append(notes, "manual price")
	}
	if item.CashValueManuallySet || item.TradeValueManuallySet {
		notes = append(notes, "manual value")
	}
	return strings.Join(notes, "; ")
}

func moneyCell(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return toFloat(*d)
}

func setRow(f *excelize.File, col, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("addressing row %d: %w", row, err)
	}
	if err := f.SetSheetRow(tradeSheet, cell, &values); err != nil {
		return fmt.Errorf("writing row %d: %w", row, err)
	}
	return nil
}

type rangeStyle struct {
	from, to string
	style    int
}

// styleTradeSheet bolds the labels and item header, and applies the money format to price columns.
func styleTradeSheet(f *excelize.File, lastItemRow, totalsStart int) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: moneyFormat})
	if err != nil {
		return fmt.Errorf("creating money style: %w", err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(itemHeaders))
	if err != nil {
		return fmt.Errorf("resolving last column: %w", err)
	}

	styles := []rangeStyle{
		{"A1", "A3", bold},
		{fmt.Sprintf("A%d", itemHeaderRow), fmt.Sprintf("%s%d", lastCol, itemHeaderRow), bold},
		{fmt.Sprintf("L%d", totalsStart), fmt.Sprintf("L%d", totalsStart+4), bold},
		{fmt.Sprintf("M%d", totalsStart), fmt.Sprintf("M%d", totalsStart+1), money},
	}
	if lastItemRow > itemHeaderRow {
		first := itemHeaderRow + 1
		styles = append(styles,
			rangeStyle{fmt.Sprintf("I%d", first), fmt.Sprintf("I%d", lastItemRow), money},
			rangeStyle{fmt.Sprintf("K%d", first), fmt.Sprintf("M%d", lastItemRow), money},
		)
	}

	for _, s := range styles {
		if err := f.SetCellStyle(tradeSheet, s.from, s.to, s.style); err != nil {
			return fmt.Errorf("styling %s:%s: %w", s.from, s.to, err)
		}
	}

	if err := f.SetColWidth(tradeSheet, "A", "A", 28); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}
	return f.SetColWidth(tradeSheet, "B", lastCol, 14)
}
