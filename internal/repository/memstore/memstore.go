// Package memstore provides an in-memory TabularStore used by tests in
// place of the Google Sheets adapter.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/dimasfr/gudangbot/internal/domain/models"
)

type sheetData struct {
	headers []string
	rows    [][]string
}

// Store keeps sheets as plain string matrices. Rows and columns are 1-based
// to mirror the spreadsheet API; row 1 is the header.
type Store struct {
	mu     sync.Mutex
	sheets map[string]*sheetData
}

// New creates an empty store.
func New() *Store {
	return &Store{sheets: make(map[string]*sheetData)}
}

// Seed installs a sheet with the given headers and data rows, replacing any
// previous content.
func (s *Store) Seed(sheet string, headers []string, rows ...[]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := &sheetData{headers: append([]string(nil), headers...)}
	for _, r := range rows {
		data.rows = append(data.rows, append([]string(nil), r...))
	}
	s.sheets[sheet] = data
}

// Rows returns a copy of the sheet's data rows for assertions.
func (s *Store) Rows(sheet string) [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := s.sheets[sheet]
	if data == nil {
		return nil
	}
	out := make([][]string, len(data.rows))
	for i, r := range data.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

func (s *Store) Headers(_ context.Context, sheet string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := s.sheets[sheet]
	if data == nil {
		return nil, nil
	}
	return append([]string(nil), data.headers...), nil
}

func (s *Store) ListRows(_ context.Context, sheet string) ([]models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := s.sheets[sheet]
	if data == nil {
		return nil, nil
	}
	records := make([]models.Record, 0, len(data.rows))
	for i, row := range data.rows {
		if isEmptyRow(row) {
			continue
		}
		fields := make(map[string]string, len(data.headers))
		for j, h := range data.headers {
			if j < len(row) {
				fields[h] = row[j]
			}
		}
		records = append(records, models.Record{Row: i + 2, Fields: fields})
	}
	return records, nil
}

func (s *Store) AppendRow(_ context.Context, sheet string, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := s.sheets[sheet]
	if data == nil {
		data = &sheetData{}
		s.sheets[sheet] = data
	}
	data.rows = append(data.rows, append([]string(nil), values...))
	return nil
}

func (s *Store) UpdateCell(_ context.Context, sheet string, row, col int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := s.sheets[sheet]
	idx := row - 2
	if data == nil || idx < 0 || idx >= len(data.rows) {
		return nil
	}
	for len(data.rows[idx]) < col {
		data.rows[idx] = append(data.rows[idx], "")
	}
	data.rows[idx][col-1] = value
	return nil
}

func (s *Store) DeleteRow(_ context.Context, sheet string, row int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := s.sheets[sheet]
	idx := row - 2
	if data == nil || idx < 0 || idx >= len(data.rows) {
		return nil
	}
	data.rows = append(data.rows[:idx], data.rows[idx+1:]...)
	return nil
}

func (s *Store) FindCell(_ context.Context, sheet string, col int, value string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := s.sheets[sheet]
	if data == nil {
		return 0, nil
	}
	for i, row := range data.rows {
		if col-1 < len(row) && row[col-1] == value {
			return i + 2, nil
		}
	}
	return 0, nil
}

func (s *Store) SortRows(_ context.Context, sheet string, col int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := s.sheets[sheet]
	if data == nil {
		return nil
	}
	sort.SliceStable(data.rows, func(i, j int) bool {
		return cell(data.rows[i], col) < cell(data.rows[j], col)
	})
	return nil
}

func (s *Store) WriteColumn(_ context.Context, sheet string, col, startRow int, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := s.sheets[sheet]
	if data == nil {
		return nil
	}
	for i, v := range values {
		idx := startRow - 2 + i
		if idx < 0 || idx >= len(data.rows) {
			continue
		}
		for len(data.rows[idx]) < col {
			data.rows[idx] = append(data.rows[idx], "")
		}
		data.rows[idx][col-1] = v
	}
	return nil
}

func (s *Store) EnsureSheet(_ context.Context, sheet string, headers []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sheets[sheet]; !ok {
		s.sheets[sheet] = &sheetData{headers: append([]string(nil), headers...)}
	}
	return nil
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

func cell(row []string, col int) string {
	if col-1 < len(row) {
		return row[col-1]
	}
	return ""
}
