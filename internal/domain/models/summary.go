package models

import (
	"fmt"
	"strings"

	"github.com/dimasfr/gudangbot/internal/domain/schema"
)

// KeyLine renders the identifying fields of a record as a stable one-line
// summary, e.g. "Simplex | SC-UPC -> LC-APC | 10m" or
// "SFP+ | 10G | 40 km | SN FCLX1034". It is used verbatim in confirmation
// prompts, selection buttons, and the audit trail, so its shape must not
// depend on map iteration order.
func KeyLine(s schema.ItemTypeSchema, fields map[string]string) string {
	var parts []string

	appendPart := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			v = "-"
		}
		parts = append(parts, v)
	}

	seen := map[string]bool{}
	if _, ok := fields[schema.ColDetail]; ok {
		appendPart(fields[schema.ColDetail])
		seen[schema.ColDetail] = true
	}

	if s.HasSymmetricPair() {
		a := strings.TrimSpace(fields[s.SymmetricPair[0]])
		b := strings.TrimSpace(fields[s.SymmetricPair[1]])
		appendPart(fmt.Sprintf("%s -> %s", orDash(a), orDash(b)))
		seen[s.SymmetricPair[0]] = true
		seen[s.SymmetricPair[1]] = true
	}

	for _, field := range s.DisplayGroupBy {
		if seen[field] {
			continue
		}
		appendPart(fields[field])
		seen[field] = true
	}

	for _, field := range s.NaturalKey {
		if seen[field] {
			continue
		}
		appendPart(field + " " + orDash(strings.TrimSpace(fields[field])))
		seen[field] = true
	}

	return strings.Join(parts, " | ")
}

// Summary extends KeyLine with the quantity and note when present, for the
// full confirmation rendering.
func Summary(s schema.ItemTypeSchema, fields map[string]string) string {
	parts := []string{KeyLine(s, fields)}
	if s.HasQuantity() {
		if qty := strings.TrimSpace(fields[s.QuantityField]); qty != "" {
			parts = append(parts, "Qty: "+qty)
		}
	}
	if note := strings.TrimSpace(fields[schema.ColNote]); note != "" {
		parts = append(parts, "Note: "+note)
	}
	return strings.Join(parts, " | ")
}

// Bullets reformats a pipe-separated summary as one bullet per segment for
// multi-line chat messages.
func Bullets(detail string) string {
	var lines []string
	for _, tok := range strings.Split(detail, "|") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		lines = append(lines, "- "+tok)
	}
	return strings.Join(lines, "\n")
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
