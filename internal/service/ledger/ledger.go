package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/dimasfr/gudangbot/internal/domain/models"
	"github.com/dimasfr/gudangbot/internal/domain/schema"
)

// ErrNotFound indicates no record carries the requested natural key.
var ErrNotFound = errors.New("record not found")

// ErrInsufficientStock indicates a quantity change would drive the stored
// value below zero. No write is performed.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrMissingColumns indicates the sheet lacks columns the schema requires.
// This is an operator problem, not a user one.
var ErrMissingColumns = errors.New("required columns missing from sheet")

// TabularStore is the external spreadsheet surface the ledger mutates. Every
// call is a separate network round trip; rows and columns are 1-based and
// row 1 holds the headers.
type TabularStore interface {
	Headers(ctx context.Context, sheet string) ([]string, error)
	ListRows(ctx context.Context, sheet string) ([]models.Record, error)
	AppendRow(ctx context.Context, sheet string, values []string) error
	UpdateCell(ctx context.Context, sheet string, row, col int, value string) error
	DeleteRow(ctx context.Context, sheet string, row int) error
	FindCell(ctx context.Context, sheet string, col int, value string) (int, error)
	SortRows(ctx context.Context, sheet string, col int) error
	WriteColumn(ctx context.Context, sheet string, col, startRow int, values []string) error
}

// Service implements the ledger mutations over a TabularStore. The store has
// no transactions and no locking, so quantity changes are read-verify-write:
// the current value is re-read in the same call that writes the new one.
// Every successful mutation must be paired by the caller with exactly one
// audit entry; the service does not enforce that pairing.
type Service struct {
	store  TabularStore
	logger *zap.Logger
}

// NewService constructs a ledger service.
func NewService(store TabularStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// List returns every record of the schema's sheet.
func (s *Service) List(ctx context.Context, sc schema.ItemTypeSchema) ([]models.Record, error) {
	rows, err := s.store.ListRows(ctx, sc.SheetName)
	if err != nil {
		return nil, fmt.Errorf("list %s rows: %w", sc.SheetName, err)
	}
	return rows, nil
}

// FindByKey scans the sheet for the record carrying the natural key. A
// schema with a symmetric field pair matches the pair in either order, so
// FindByKey(A,B) and FindByKey(B,A) return the same record.
func (s *Service) FindByKey(ctx context.Context, sc schema.ItemTypeSchema, key map[string]string) (models.Record, error) {
	rows, err := s.store.ListRows(ctx, sc.SheetName)
	if err != nil {
		return models.Record{}, fmt.Errorf("list %s rows: %w", sc.SheetName, err)
	}
	for _, rec := range rows {
		if sc.KeyMatches(rec.Fields, key) {
			return rec, nil
		}
	}
	return models.Record{}, ErrNotFound
}

// FindBySerial locates a record through the store's indexed cell lookup.
// Only valid for single-field natural keys (the SFP sheet's SN column).
func (s *Service) FindBySerial(ctx context.Context, sc schema.ItemTypeSchema, serial string) (models.Record, error) {
	if len(sc.NaturalKey) != 1 {
		return models.Record{}, fmt.Errorf("schema %s has a composite key, use FindByKey", sc.Name)
	}

	headers, err := s.store.Headers(ctx, sc.SheetName)
	if err != nil {
		return models.Record{}, fmt.Errorf("read %s headers: %w", sc.SheetName, err)
	}
	col, err := columnIndex(headers, sc.NaturalKey[0])
	if err != nil {
		return models.Record{}, err
	}

	row, err := s.store.FindCell(ctx, sc.SheetName, col, serial)
	if err != nil {
		return models.Record{}, fmt.Errorf("find %s in %s: %w", serial, sc.SheetName, err)
	}
	if row == 0 {
		return models.Record{}, ErrNotFound
	}

	rows, err := s.store.ListRows(ctx, sc.SheetName)
	if err != nil {
		return models.Record{}, fmt.Errorf("list %s rows: %w", sc.SheetName, err)
	}
	for _, rec := range rows {
		if rec.Row == row {
			return rec, nil
		}
	}
	return models.Record{}, ErrNotFound
}

// Insert appends a new record with the next dense sequence number, then runs
// the schema's post-insert normalization (stable sort by the configured
// column followed by a full renumber). Returns the assigned sequence number.
func (s *Service) Insert(ctx context.Context, sc schema.ItemTypeSchema, fields map[string]string) (int, error) {
	headers, err := s.ensureColumns(ctx, sc)
	if err != nil {
		return 0, err
	}

	rows, err := s.store.ListRows(ctx, sc.SheetName)
	if err != nil {
		return 0, fmt.Errorf("list %s rows: %w", sc.SheetName, err)
	}
	seq := len(rows) + 1

	values := make([]string, len(headers))
	for i, h := range headers {
		if h == schema.SequenceColumn {
			values[i] = strconv.Itoa(seq)
			continue
		}
		values[i] = fields[h]
	}
	if err := s.store.AppendRow(ctx, sc.SheetName, values); err != nil {
		return 0, fmt.Errorf("append row to %s: %w", sc.SheetName, err)
	}
	s.logger.Info("record inserted", zap.String("sheet", sc.SheetName), zap.Int("seq", seq))

	if sc.SortBy != "" {
		col, err := columnIndex(headers, sc.SortBy)
		if err != nil {
			return 0, err
		}
		if err := s.store.SortRows(ctx, sc.SheetName, col); err != nil {
			return 0, fmt.Errorf("sort %s by %s: %w", sc.SheetName, sc.SortBy, err)
		}
		if err := s.Renumber(ctx, sc.SheetName); err != nil {
			return 0, err
		}
	}
	return seq, nil
}

// UpdateField overwrites a single cell of an existing record.
func (s *Service) UpdateField(ctx context.Context, sc schema.ItemTypeSchema, row int, field, value string) error {
	headers, err := s.store.Headers(ctx, sc.SheetName)
	if err != nil {
		return fmt.Errorf("read %s headers: %w", sc.SheetName, err)
	}
	col, err := columnIndex(headers, field)
	if err != nil {
		return err
	}
	if err := s.store.UpdateCell(ctx, sc.SheetName, row, col, value); err != nil {
		return fmt.Errorf("update %s!%s row %d: %w", sc.SheetName, field, row, err)
	}
	s.logger.Info("field updated", zap.String("sheet", sc.SheetName), zap.Int("row", row), zap.String("field", field))
	return nil
}

// AdjustQuantity applies a delta to the record's quantity, re-reading the
// stored value immediately before computing the new one. This narrows, but
// does not close, the window against concurrent writers; the store exposes
// no compare-and-swap. Fails with ErrInsufficientStock and leaves the cell
// untouched when the result would be negative.
func (s *Service) AdjustQuantity(ctx context.Context, sc schema.ItemTypeSchema, key map[string]string, delta int) (int, error) {
	if !sc.HasQuantity() {
		return 0, fmt.Errorf("schema %s has no quantity field", sc.Name)
	}

	rec, err := s.FindByKey(ctx, sc, key)
	if err != nil {
		return 0, err
	}

	current := rec.Quantity(sc.QuantityField)
	next := current + delta
	if next < 0 {
		return 0, fmt.Errorf("%w: have %d, requested %d", ErrInsufficientStock, current, -delta)
	}

	headers, err := s.store.Headers(ctx, sc.SheetName)
	if err != nil {
		return 0, fmt.Errorf("read %s headers: %w", sc.SheetName, err)
	}
	col, err := columnIndex(headers, sc.QuantityField)
	if err != nil {
		return 0, err
	}
	if err := s.store.UpdateCell(ctx, sc.SheetName, rec.Row, col, strconv.Itoa(next)); err != nil {
		return 0, fmt.Errorf("update %s quantity row %d: %w", sc.SheetName, rec.Row, err)
	}
	s.logger.Info("quantity adjusted",
		zap.String("sheet", sc.SheetName),
		zap.Int("row", rec.Row),
		zap.Int("from", current),
		zap.Int("to", next))
	return next, nil
}

// Delete removes the row and renumbers the sheet so sequence numbers stay
// dense 1..N.
func (s *Service) Delete(ctx context.Context, sc schema.ItemTypeSchema, row int) error {
	if err := s.store.DeleteRow(ctx, sc.SheetName, row); err != nil {
		return fmt.Errorf("delete %s row %d: %w", sc.SheetName, row, err)
	}
	s.logger.Info("record deleted", zap.String("sheet", sc.SheetName), zap.Int("row", row))
	return s.Renumber(ctx, sc.SheetName)
}

// Renumber rewrites the sequence column to 1..N in the sheet's current row
// order.
func (s *Service) Renumber(ctx context.Context, sheet string) error {
	rows, err := s.store.ListRows(ctx, sheet)
	if err != nil {
		return fmt.Errorf("list %s rows: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil
	}
	headers, err := s.store.Headers(ctx, sheet)
	if err != nil {
		return fmt.Errorf("read %s headers: %w", sheet, err)
	}
	col, err := columnIndex(headers, schema.SequenceColumn)
	if err != nil {
		return err
	}

	// Size the block to the last physical row so sequence numbers land on
	// each record's own row even when blank rows sit between records.
	last := rows[len(rows)-1].Row
	values := make([]string, last-1)
	for i, rec := range rows {
		values[rec.Row-2] = strconv.Itoa(i + 1)
	}
	if err := s.store.WriteColumn(ctx, sheet, col, 2, values); err != nil {
		return fmt.Errorf("renumber %s: %w", sheet, err)
	}
	return nil
}

// ensureColumns verifies the sheet carries every column the schema needs and
// returns the header row.
func (s *Service) ensureColumns(ctx context.Context, sc schema.ItemTypeSchema) ([]string, error) {
	headers, err := s.store.Headers(ctx, sc.SheetName)
	if err != nil {
		return nil, fmt.Errorf("read %s headers: %w", sc.SheetName, err)
	}
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}
	var missing []string
	for _, col := range sc.Columns() {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: sheet %s lacks %v", ErrMissingColumns, sc.SheetName, missing)
	}
	return headers, nil
}

func columnIndex(headers []string, name string) (int, error) {
	for i, h := range headers {
		if h == name {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("%w: column %q", ErrMissingColumns, name)
}
