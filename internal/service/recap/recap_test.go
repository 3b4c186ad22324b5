package recap

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dimasfr/gudangbot/internal/domain/models"
	"github.com/dimasfr/gudangbot/internal/domain/schema"
	"github.com/dimasfr/gudangbot/internal/repository/memstore"
	"github.com/dimasfr/gudangbot/internal/service/ledger"
)

var (
	sfpHeaders = []string{"No", "Detail", "Bandwidth", "Distance", "SN", "Note", "Photo Link"}
	pcHeaders  = []string{"No", "Detail", "Connector 1", "Connector 2", "Length", "Quantity", "Note", "Photo Link"}
)

func newService(t *testing.T, store *memstore.Store) *Service {
	t.Helper()
	registry, err := schema.Builtin()
	require.NoError(t, err)
	return NewService(ledger.NewService(store, zap.NewNop()), registry, zap.NewNop())
}

func TestQuantityRecapSumsPerCombination(t *testing.T) {
	store := memstore.New()
	store.Seed("Patch Cord", pcHeaders,
		[]string{"1", "Duplex", "SC-UPC", "LC-APC", "10m", "5", "", ""},
		[]string{"2", "Duplex", "SC-UPC", "LC-APC", "3m", "2", "", ""},
		[]string{"3", "Simplex", "FC-UPC", "FC-UPC", "1m", "7", "", ""})
	svc := newService(t, store)

	out, err := svc.StockRecap(context.Background(), schema.PatchCord)
	require.NoError(t, err)

	assert.Contains(t, out, "Stock recap for Patch Cord")
	assert.Contains(t, out, "Duplex")
	assert.Contains(t, out, "SC-UPC / LC-APC / 10m: 5 units")
	assert.Contains(t, out, "SC-UPC / LC-APC / 3m: 2 units")
	assert.Contains(t, out, "FC-UPC / FC-UPC / 1m: 7 units")
}

func TestSerialRecapListsAndCapsSerials(t *testing.T) {
	store := memstore.New()
	rows := make([][]string, 0, maxSerialsPerGroup+3)
	for i := 0; i < maxSerialsPerGroup+3; i++ {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1), "SFP+", "10G", "40 km", fmt.Sprintf("SN-%02d", i), "", "",
		})
	}
	store.Seed("SFP", sfpHeaders, rows...)
	svc := newService(t, store)

	out, err := svc.StockRecap(context.Background(), schema.SFP)
	require.NoError(t, err)

	assert.Contains(t, out, fmt.Sprintf("10G / 40 km: %d units", maxSerialsPerGroup+3))
	assert.Contains(t, out, "SN-00")
	assert.Contains(t, out, fmt.Sprintf("SN-%02d", maxSerialsPerGroup-1))
	assert.NotContains(t, out, fmt.Sprintf("SN-%02d", maxSerialsPerGroup), "serials past the cap are elided")
	assert.Contains(t, out, "(+3 more)")
}

func TestRecapEmptySheet(t *testing.T) {
	store := memstore.New()
	store.Seed("SFP", sfpHeaders)
	svc := newService(t, store)

	out, err := svc.StockRecap(context.Background(), schema.SFP)
	require.NoError(t, err)
	assert.Equal(t, "No stock recorded for SFP.", out)
}

func TestAllStockJoinsEveryType(t *testing.T) {
	store := memstore.New()
	store.Seed("SFP", sfpHeaders,
		[]string{"1", "XFP", "100G", "80 km", "SN-A", "", ""})
	store.Seed("Patch Cord", pcHeaders,
		[]string{"1", "Simplex", "SC-UPC", "SC-UPC", "1m", "4", "", ""})
	svc := newService(t, store)

	out, err := svc.AllStock(context.Background())
	require.NoError(t, err)

	sfpIdx := strings.Index(out, "Stock recap for SFP")
	pcIdx := strings.Index(out, "Stock recap for Patch Cord")
	require.GreaterOrEqual(t, sfpIdx, 0)
	require.GreaterOrEqual(t, pcIdx, 0)
	assert.Less(t, sfpIdx, pcIdx, "sections follow registry declaration order")
}

func TestRenderChangeLog(t *testing.T) {
	assert.Equal(t, "No changes recorded yet.", RenderChangeLog(nil))

	out := RenderChangeLog([]models.AuditLogEntry{{
		Timestamp: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Action:    models.ActionInsert,
		SheetName: "SFP",
		Detail:    "SFP+ | 10G | 40 km | SN FCLX1034",
		Note:      "shelf A",
	}})
	assert.Contains(t, out, "[2026-03-14 09:30:00] INSERT - SFP")
	assert.Contains(t, out, "- SFP+")
	assert.Contains(t, out, "- SN FCLX1034")
	assert.Contains(t, out, "- Note: shelf A")
}

func TestRenderConsumptionLog(t *testing.T) {
	assert.Equal(t, "No consumption recorded yet.", RenderConsumptionLog(nil))

	out := RenderConsumptionLog([]models.ConsumptionLogEntry{{
		Timestamp: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
		ItemType:  "Patch Cord",
		Detail:    "Duplex | SC-UPC -> LC-APC | 10m",
		Quantity:  2,
		ItemNote:  "rack 3",
		Reason:    "ticket 42",
	}})
	assert.Contains(t, out, "[2026-06-01 12:00:00] Patch Cord")
	assert.Contains(t, out, "- Taken: 2")
	assert.Contains(t, out, "- Item note: rack 3")
	assert.Contains(t, out, "- Reason: ticket 42")
}
