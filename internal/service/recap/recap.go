package recap

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/dimasfr/gudangbot/internal/domain/models"
	"github.com/dimasfr/gudangbot/internal/domain/schema"
	"github.com/dimasfr/gudangbot/internal/service/ledger"
)

// maxSerialsPerGroup caps the serial listing per combination so the chat
// message stays readable.
const maxSerialsPerGroup = 20

// Service aggregates sheet contents into human-readable stock recaps and
// renders the audit trails for chat display.
type Service struct {
	ledger   *ledger.Service
	registry *schema.Registry
	logger   *zap.Logger
}

// NewService constructs the recap service.
func NewService(ledgerSvc *ledger.Service, registry *schema.Registry, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{ledger: ledgerSvc, registry: registry, logger: logger}
}

// StockRecap renders the stock overview for one item type. Quantity-tracked
// types show summed totals per combination; unit-tracked types list serial
// numbers per combination, capped.
func (s *Service) StockRecap(ctx context.Context, sc schema.ItemTypeSchema) (string, error) {
	records, err := s.ledger.List(ctx, sc)
	if err != nil {
		return "", err
	}
	if sc.HasQuantity() {
		return quantityRecap(sc, records), nil
	}
	return serialRecap(sc, records), nil
}

// AllStock renders the recap of every configured item type, used by the
// scheduled broadcast.
func (s *Service) AllStock(ctx context.Context) (string, error) {
	var sections []string
	for _, name := range s.registry.Types() {
		sc, err := s.registry.SchemaFor(name)
		if err != nil {
			return "", err
		}
		section, err := s.StockRecap(ctx, sc)
		if err != nil {
			return "", err
		}
		sections = append(sections, section)
	}
	return strings.Join(sections, "\n\n"), nil
}

func quantityRecap(sc schema.ItemTypeSchema, records []models.Record) string {
	totals := make(map[string]map[string]int)
	for _, rec := range records {
		detail := rec.Get(schema.ColDetail)
		if detail == "" {
			continue
		}
		key := groupKey(sc, rec)
		if totals[detail] == nil {
			totals[detail] = make(map[string]int)
		}
		totals[detail][key] += rec.Quantity(sc.QuantityField)
	}
	if len(totals) == 0 {
		return fmt.Sprintf("No stock recorded for %s.", sc.Name)
	}

	lines := []string{fmt.Sprintf("Stock recap for %s", sc.Name), ""}
	for _, detail := range sortedKeys(totals) {
		lines = append(lines, detail)
		combos := totals[detail]
		for _, combo := range sortedKeys(combos) {
			lines = append(lines, fmt.Sprintf("  - %s: %d units", combo, combos[combo]))
		}
		lines = append(lines, "")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

func serialRecap(sc schema.ItemTypeSchema, records []models.Record) string {
	grouped := make(map[string]map[string][]string)
	serialField := sc.NaturalKey[0]
	for _, rec := range records {
		detail := rec.Get(schema.ColDetail)
		serial := rec.Get(serialField)
		if detail == "" || serial == "" {
			continue
		}
		key := groupKey(sc, rec)
		if grouped[detail] == nil {
			grouped[detail] = make(map[string][]string)
		}
		grouped[detail][key] = append(grouped[detail][key], serial)
	}
	if len(grouped) == 0 {
		return fmt.Sprintf("No stock recorded for %s.", sc.Name)
	}

	lines := []string{fmt.Sprintf("Stock recap for %s", sc.Name), ""}
	for _, detail := range sortedKeys(grouped) {
		lines = append(lines, detail)
		combos := grouped[detail]
		for _, combo := range sortedKeys(combos) {
			serials := combos[combo]
			lines = append(lines, fmt.Sprintf("  - %s: %d units", combo, len(serials)))
			shown := serials
			if len(shown) > maxSerialsPerGroup {
				shown = shown[:maxSerialsPerGroup]
			}
			for _, sn := range shown {
				lines = append(lines, "    - "+sn)
			}
			if len(serials) > maxSerialsPerGroup {
				lines = append(lines, fmt.Sprintf("    (+%d more)", len(serials)-maxSerialsPerGroup))
			}
		}
		lines = append(lines, "")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// RenderChangeLog formats audit entries as timestamped bullet blocks, oldest
// first.
func RenderChangeLog(entries []models.AuditLogEntry) string {
	if len(entries) == 0 {
		return "No changes recorded yet."
	}
	blocks := []string{"Change history (newest last):", ""}
	for _, e := range entries {
		blocks = append(blocks, fmt.Sprintf("[%s] %s - %s", e.Timestamp.Format("2006-01-02 15:04:05"), e.Action, e.SheetName))
		blocks = append(blocks, models.Bullets(e.Detail))
		if e.Note != "" {
			blocks = append(blocks, "- Note: "+e.Note)
		}
		blocks = append(blocks, "")
	}
	return strings.TrimRight(strings.Join(blocks, "\n"), "\n")
}

// RenderConsumptionLog formats consumption entries as bullet blocks.
func RenderConsumptionLog(entries []models.ConsumptionLogEntry) string {
	if len(entries) == 0 {
		return "No consumption recorded yet."
	}
	blocks := []string{"Consumption log (newest last):", ""}
	for _, e := range entries {
		blocks = append(blocks, fmt.Sprintf("[%s] %s", e.Timestamp.Format("2006-01-02 15:04:05"), e.ItemType))
		blocks = append(blocks, models.Bullets(e.Detail))
		if e.Quantity > 0 {
			blocks = append(blocks, fmt.Sprintf("- Taken: %d", e.Quantity))
		}
		if e.ItemNote != "" {
			blocks = append(blocks, "- Item note: "+e.ItemNote)
		}
		if e.Reason != "" {
			blocks = append(blocks, "- Reason: "+e.Reason)
		}
		blocks = append(blocks, "")
	}
	return strings.TrimRight(strings.Join(blocks, "\n"), "\n")
}

func groupKey(sc schema.ItemTypeSchema, rec models.Record) string {
	parts := make([]string, 0, len(sc.DisplayGroupBy))
	for _, field := range sc.DisplayGroupBy {
		v := rec.Get(field)
		if v == "" {
			v = "N/A"
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, " / ")
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
