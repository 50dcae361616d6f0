package export

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

const (
	dailySheet = "TRADES_DAILY"
	logSheet   = "TRADES_LOG"
)

// sheetMeta is the part of a sheet's properties the writer needs for formatting.
type sheetMeta struct {
	id         int64
	bandingIDs []int64
}

// SheetsWriter implements SheetWriter using the Google Sheets API.
type SheetsWriter struct {
	spreadsheetID string
	svc           *sheets.Service
}

// NewSheetsWriter creates a SheetsWriter authenticated with a service account JSON.
func NewSheetsWriter(ctx context.Context, spreadsheetID, credentialsJSON string) (*SheetsWriter, error) {
	creds, err := google.CredentialsFromJSON(
		ctx,
		[]byte(credentialsJSON),
		sheets.SpreadsheetsScope,
	)
	if err != nil {
		return nil, fmt.Errorf("parsing google credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	return &SheetsWriter{spreadsheetID: spreadsheetID, svc: svc}, nil
}

// Write rewrites the per-game breakdown for day and appends the day's totals to the log sheet.
func (w *SheetsWriter) Write(ctx context.Context, day time.Time, rows []SummaryRow) error {
	meta, err := w.ensureSheets(ctx, dailySheet, logSheet)
	if err != nil {
		return err
	}

	_, err = w.svc.Spreadsheets.Values.Clear(
		w.spreadsheetID,
		dailySheet+"!A:E",
		&sheets.ClearValuesRequest{},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clearing %s: %w", dailySheet, err)
	}

	_, err = w.svc.Spreadsheets.Values.Update(
		w.spreadsheetID,
		dailySheet+"!A1",
		&sheets.ValueRange{Values: buildDaily(day, rows)},
	).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("writing %s: %w", dailySheet, err)
	}

	return w.appendLog(ctx, meta[logSheet], day, rows)
}

// buildDaily builds the TRADES_DAILY sheet data.
// Columns: Game | Cards | Cash | Trade | Cash share
func buildDaily(day time.Time, rows []SummaryRow) [][]any {
	data := make([][]any, 0, len(rows)+3)
	data = append(data,
		[]any{"Date", day.UTC().Format("02.01.2006")},
		[]any{"Game", "Cards", "Cash", "Trade", "Cash share"},
	)

	for _, row := range rows {
		data = append(data, []any{
			row.Game,
			row.CardCount,
			toFloat(row.CashTotal),
			toFloat(row.TradeTotal),
			ptrFloat(row.CashShare),
		})
	}

	return data
}

// ensureSheets creates any of the named sheets that do not already exist and returns the
// metadata of all named sheets.
func (w *SheetsWriter) ensureSheets(ctx context.Context, names ...string) (map[string]sheetMeta, error) {
	spreadsheet, err := w.svc.Spreadsheets.Get(w.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("getting spreadsheet metadata: %w", err)
	}

	meta := make(map[string]sheetMeta, len(spreadsheet.Sheets))
	for _, s := range spreadsheet.Sheets {
		m := sheetMeta{id: s.Properties.SheetId}
		for _, b := range s.BandedRanges {
			m.bandingIDs = append(m.bandingIDs, b.BandedRangeId)
		}
		meta[s.Properties.Title] = m
	}

	var requests []*sheets.Request
	for _, name := range names {
		if _, ok := meta[name]; !ok {
			requests = append(requests, &sheets.Request{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: name},
				},
			})
		}
	}

	if len(requests) == 0 {
		return meta, nil
	}

	resp, err := w.svc.Spreadsheets.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: requests},
	).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("creating sheets: %w", err)
	}

	for _, reply := range resp.Replies {
		if reply.AddSheet == nil || reply.AddSheet.Properties == nil {
			continue
		}
		props := reply.AddSheet.Properties
		meta[props.Title] = sheetMeta{id: props.SheetId}
	}

	return meta, nil
}

// cellFormatReq builds a RepeatCell request over the given zero-based, end-exclusive grid range.
func cellFormatReq(sheetID, startRow, endRow, startCol, endCol int64, format *sheets.CellFormat, fields string) *sheets.Request {
	return &sheets.Request{
		RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{
				SheetId:          sheetID,
				StartRowIndex:    startRow,
				EndRowIndex:      endRow,
				StartColumnIndex: startCol,
				EndColumnIndex:   endCol,
				ForceSendFields:  []string{"SheetId", "StartRowIndex", "StartColumnIndex"},
			},
			Cell:   &sheets.CellData{UserEnteredFormat: format},
			Fields: fields,
		},
	}
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

func ptrFloat(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	f, _ := d.Round(4).Float64()
	return f
}
