package sheets

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/dimasfr/gudangbot/internal/config"
	"github.com/dimasfr/gudangbot/internal/domain/models"
)

// GoogleSheetRepository exposes the spreadsheet as a tabular store using the
// official Google Sheets API. Rows and columns are 1-based to match the A1
// notation the API speaks; row 1 holds the headers.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger

	mu       sync.Mutex
	sheetIDs map[string]int64
}

// NewGoogleSheetRepository builds a Google Sheets backed repository instance.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetRepository{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
		sheetIDs:      make(map[string]int64),
	}, nil
}

// Headers returns the first row of the sheet.
func (r *GoogleSheetRepository) Headers(ctx context.Context, sheet string) ([]string, error) {
	resp, err := r.service.Spreadsheets.Values.Get(r.spreadsheetID, fmt.Sprintf("%s!1:1", sheet)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s headers: %w", sheet, err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}
	return toStrings(resp.Values[0]), nil
}

// ListRows reads the whole sheet and maps each data row onto its headers.
// Rows whose cells are all empty are skipped but keep their positions, so
// the returned Row numbers always address the live spreadsheet.
func (r *GoogleSheetRepository) ListRows(ctx context.Context, sheet string) ([]models.Record, error) {
	resp, err := r.service.Spreadsheets.Values.Get(r.spreadsheetID, sheet).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(resp.Values) < 2 {
		return nil, nil
	}

	headers := toStrings(resp.Values[0])
	records := make([]models.Record, 0, len(resp.Values)-1)
	for i, raw := range resp.Values[1:] {
		row := toStrings(raw)
		if isEmptyRow(row) {
			continue
		}
		fields := make(map[string]string, len(headers))
		for j, h := range headers {
			if j < len(row) {
				fields[h] = row[j]
			}
		}
		records = append(records, models.Record{Row: i + 2, Fields: fields})
	}
	return records, nil
}

// AppendRow appends the values after the sheet's last data row.
func (r *GoogleSheetRepository) AppendRow(ctx context.Context, sheet string, values []string) error {
	payload := &sheetsapi.ValueRange{Values: [][]interface{}{toInterfaces(values)}}

	call := r.service.Spreadsheets.Values.Append(r.spreadsheetID, sheet, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append row into sheet %s: %w", sheet, err)
	}

	r.logger.Debug("row appended to sheet", zap.String("sheet", sheet))
	return nil
}

// UpdateCell overwrites one cell.
func (r *GoogleSheetRepository) UpdateCell(ctx context.Context, sheet string, row, col int, value string) error {
	cell := fmt.Sprintf("%s!%s%d", sheet, columnLetter(col), row)
	payload := &sheetsapi.ValueRange{Values: [][]interface{}{{value}}}

	call := r.service.Spreadsheets.Values.Update(r.spreadsheetID, cell, payload).
		ValueInputOption("USER_ENTERED").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("update cell %s: %w", cell, err)
	}
	return nil
}

// DeleteRow removes the row entirely, shifting everything below it up.
func (r *GoogleSheetRepository) DeleteRow(ctx context.Context, sheet string, row int) error {
	sheetID, err := r.sheetID(ctx, sheet)
	if err != nil {
		return err
	}

	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			DeleteDimension: &sheetsapi.DeleteDimensionRequest{
				Range: &sheetsapi.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
				},
			},
		}},
	}
	if _, err := r.service.Spreadsheets.BatchUpdate(r.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d from sheet %s: %w", row, sheet, err)
	}

	r.logger.Debug("row deleted from sheet", zap.String("sheet", sheet), zap.Int("row", row))
	return nil
}

// FindCell scans one column for an exact value and returns its 1-based row,
// or 0 when the value does not appear.
func (r *GoogleSheetRepository) FindCell(ctx context.Context, sheet string, col int, value string) (int, error) {
	letter := columnLetter(col)
	rangeRef := fmt.Sprintf("%s!%s:%s", sheet, letter, letter)

	resp, err := r.service.Spreadsheets.Values.Get(r.spreadsheetID, rangeRef).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read column %s: %w", rangeRef, err)
	}

	want := strings.TrimSpace(value)
	for i, raw := range resp.Values {
		cells := toStrings(raw)
		if len(cells) > 0 && strings.TrimSpace(cells[0]) == want {
			return i + 1, nil
		}
	}
	return 0, nil
}

// SortRows sorts the data rows (header excluded) ascending by one column.
func (r *GoogleSheetRepository) SortRows(ctx context.Context, sheet string, col int) error {
	sheetID, err := r.sheetID(ctx, sheet)
	if err != nil {
		return err
	}

	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			SortRange: &sheetsapi.SortRangeRequest{
				Range: &sheetsapi.GridRange{
					SheetId:       sheetID,
					StartRowIndex: 1,
				},
				SortSpecs: []*sheetsapi.SortSpec{{
					DimensionIndex: int64(col - 1),
					SortOrder:      "ASCENDING",
				}},
			},
		}},
	}
	if _, err := r.service.Spreadsheets.BatchUpdate(r.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("sort sheet %s by column %d: %w", sheet, col, err)
	}
	return nil
}

// WriteColumn writes a contiguous vertical run of values in one request.
func (r *GoogleSheetRepository) WriteColumn(ctx context.Context, sheet string, col, startRow int, values []string) error {
	if len(values) == 0 {
		return nil
	}
	letter := columnLetter(col)
	rangeRef := fmt.Sprintf("%s!%s%d:%s%d", sheet, letter, startRow, letter, startRow+len(values)-1)

	rows := make([][]interface{}, len(values))
	for i, v := range values {
		rows[i] = []interface{}{v}
	}
	payload := &sheetsapi.ValueRange{Values: rows}

	call := r.service.Spreadsheets.Values.Update(r.spreadsheetID, rangeRef, payload).
		ValueInputOption("USER_ENTERED").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("write column range %s: %w", rangeRef, err)
	}
	return nil
}

// EnsureSheet creates the named sheet with a header row when it does not
// exist yet. Existing sheets are left untouched.
func (r *GoogleSheetRepository) EnsureSheet(ctx context.Context, sheet string, headers []string) error {
	if _, err := r.sheetID(ctx, sheet); err == nil {
		return nil
	}

	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{Title: sheet},
			},
		}},
	}
	resp, err := r.service.Spreadsheets.BatchUpdate(r.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}
	for _, reply := range resp.Replies {
		if reply.AddSheet != nil && reply.AddSheet.Properties != nil {
			r.mu.Lock()
			r.sheetIDs[sheet] = reply.AddSheet.Properties.SheetId
			r.mu.Unlock()
		}
	}

	payload := &sheetsapi.ValueRange{Values: [][]interface{}{toInterfaces(headers)}}
	call := r.service.Spreadsheets.Values.Update(r.spreadsheetID, fmt.Sprintf("%s!A1", sheet), payload).
		ValueInputOption("USER_ENTERED").
		Context(ctx)
	if _, err := call.Do(); err != nil {
		return fmt.Errorf("write headers for sheet %s: %w", sheet, err)
	}

	r.logger.Info("sheet created", zap.String("sheet", sheet))
	return nil
}

// sheetID resolves and caches the numeric sheet id behind a sheet title.
func (r *GoogleSheetRepository) sheetID(ctx context.Context, sheet string) (int64, error) {
	r.mu.Lock()
	if id, ok := r.sheetIDs[sheet]; ok {
		r.mu.Unlock()
		return id, nil
	}
	r.mu.Unlock()

	resp, err := r.service.Spreadsheets.Get(r.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet metadata: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range resp.Sheets {
		if s.Properties != nil {
			r.sheetIDs[s.Properties.Title] = s.Properties.SheetId
		}
	}
	if id, ok := r.sheetIDs[sheet]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("sheet %s not found in spreadsheet", sheet)
}

// columnLetter converts a 1-based column index to its A1 letter.
func columnLetter(col int) string {
	letters := ""
	for col > 0 {
		col--
		letters = string(rune('A'+col%26)) + letters
		col /= 26
	}
	return letters
}

func toStrings(raw []interface{}) []string {
	out := make([]string, len(raw))
	for i, v := range raw {
		out[i] = fmt.Sprintf("%v", v)
	}
	return out
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func isEmptyRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
