package export

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	sheets "google.golang.org/api/sheets/v4"

	"github.com/mtlprog/cardtrade/internal/domain"
)

// logGames are the games that get their own payout column in TRADES_LOG, in column order.
// Payouts for any other game are summed into the "Other" column.
var logGames = []domain.Game{
	domain.GamePokemon,
	domain.GameMTG,
	domain.GameYugioh,
	domain.GameLorcana,
	domain.GameOnePiece,
}

// logHeaders returns the TRADES_LOG header row.
func logHeaders() []any {
	headers := []any{"Date", "Cards", "Cash", "Trade", "Cash share"}
	for _, g := range logGames {
		headers = append(headers, string(g))
	}
	return append(headers, "Other")
}

// buildLogRow builds the single TRADES_LOG row for a day from its summary rows.
func buildLogRow(day time.Time, rows []SummaryRow) []any {
	total, ok := lo.Find(rows, func(r SummaryRow) bool { return r.Game == totalLabel })
	if !ok {
		total = newSummaryRow(totalLabel, 0, decimal.Zero, decimal.Zero)
	}

	row := []any{
		day.UTC().Format("02.01.2006"),
		total.CardCount,
		toFloat(total.CashTotal),
		toFloat(total.TradeTotal),
		ptrFloat(total.CashShare),
	}

	payout := make(map[string]decimal.Decimal, len(rows))
	other := decimal.Zero
	for _, r := range rows {
		if r.Game == totalLabel {
			continue
		}
		paid := r.CashTotal.Add(r.TradeTotal)
		if lo.Contains(logGames, domain.Game(r.Game)) {
			payout[r.Game] = paid
		} else {
			other = other.Add(paid)
		}
	}

	for _, g := range logGames {
		row = append(row, toFloat(payout[string(g)]))
	}
	return append(row, toFloat(other))
}

// appendLog writes the header row if the log sheet is empty, then appends one row for day.
func (w *SheetsWriter) appendLog(ctx context.Context, meta sheetMeta, day time.Time, rows []SummaryRow) error {
	existing, err := w.svc.Spreadsheets.Values.Get(
		w.spreadsheetID, logSheet+"!A1:A1",
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("reading %s headers: %w", logSheet, err)
	}

	if len(existing.Values) == 0 {
		_, err = w.svc.Spreadsheets.Values.Update(
			w.spreadsheetID,
			logSheet+"!A1",
			&sheets.ValueRange{Values: [][]any{logHeaders()}},
		).ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("writing %s headers: %w", logSheet, err)
		}
	}

	_, err = w.svc.Spreadsheets.Values.Append(
		w.spreadsheetID,
		logSheet+"!A:K",
		&sheets.ValueRange{Values: [][]any{buildLogRow(day, rows)}},
	).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("appending %s row: %w", logSheet, err)
	}

	if err := w.applyLogFormatting(ctx, meta); err != nil {
		return fmt.Errorf("formatting %s sheet: %w", logSheet, err)
	}

	return nil
}

// applyLogFormatting styles the header, freezes it together with the date column, and sets
// date, money and percent number formats.
func (w *SheetsWriter) applyLogFormatting(ctx context.Context, log sheetMeta) error {
	lightGreen := &sheets.Color{Red: 0.851, Green: 0.918, Blue: 0.827}
	totalCols := int64(len(logHeaders()))

	var reqs []*sheets.Request

	reqs = append(reqs, cellFormatReq(log.id, 0, 1, 0, totalCols,
		&sheets.CellFormat{
			BackgroundColor:     lightGreen,
			TextFormat:          &sheets.TextFormat{Bold: true, FontSize: 10},
			HorizontalAlignment: "CENTER",
		},
		"userEnteredFormat(backgroundColor,textFormat,horizontalAlignment)"))

	reqs = append(reqs, &sheets.Request{
		UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
			Properties: &sheets.SheetProperties{
				SheetId: log.id,
				GridProperties: &sheets.GridProperties{
					FrozenRowCount:    1,
					FrozenColumnCount: 1,
				},
				ForceSendFields: []string{"SheetId"},
			},
			Fields: "gridProperties.frozenRowCount,gridProperties.frozenColumnCount",
		},
	})

	reqs = append(reqs, cellFormatReq(log.id, 1, 10000, 0, 1,
		&sheets.CellFormat{NumberFormat: &sheets.NumberFormat{Type: "DATE", Pattern: "d.m.yyyy"}},
		"userEnteredFormat.numberFormat"))

	// Cash and Trade, then every per-game payout column.
	money := &sheets.CellFormat{NumberFormat: &sheets.NumberFormat{Type: "NUMBER", Pattern: "#,##0.00"}}
	reqs = append(reqs,
		cellFormatReq(log.id, 1, 10000, 2, 4, money, "userEnteredFormat.numberFormat"),
		cellFormatReq(log.id, 1, 10000, 5, totalCols, money, "userEnteredFormat.numberFormat"),
		cellFormatReq(log.id, 1, 10000, 4, 5,
			&sheets.CellFormat{NumberFormat: &sheets.NumberFormat{Type: "PERCENT", Pattern: "0.0%"}},
			"userEnteredFormat.numberFormat"),
	)

	for _, bid := range log.bandingIDs {
		reqs = append(reqs, &sheets.Request{
			DeleteBanding: &sheets.DeleteBandingRequest{BandedRangeId: bid},
		})
	}

	_, err := w.svc.Spreadsheets.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: reqs},
	).Context(ctx).Do()
	return err
}
