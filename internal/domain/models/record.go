package models

import (
	"strconv"
	"strings"
)

// Record is one row of an item sheet. Row is the 1-based sheet row number
// (the header occupies row 1, so data rows start at 2); Fields maps column
// names to cell values. Identity for lookups is the natural key, never the
// display sequence number, which gets rewritten by renumbering.
type Record struct {
	Row    int
	Fields map[string]string
}

// Get returns a field value, trimmed.
func (r Record) Get(field string) string {
	return strings.TrimSpace(r.Fields[field])
}

// Quantity parses the given quantity column, treating blanks and garbage as
// zero the way the spreadsheet's human editors produce them.
func (r Record) Quantity(field string) int {
	raw := r.Get(field)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
