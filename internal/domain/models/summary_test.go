package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dimasfr/gudangbot/internal/domain/schema"
)

func TestKeyLinePatchCord(t *testing.T) {
	fields := map[string]string{
		schema.ColDetail:     "Simplex",
		schema.ColConnector1: "SC-UPC",
		schema.ColConnector2: "LC-APC",
		schema.ColLength:     "10m",
	}
	assert.Equal(t, "Simplex | SC-UPC -> LC-APC | 10m", KeyLine(schema.PatchCord, fields))
}

func TestKeyLineSFP(t *testing.T) {
	fields := map[string]string{
		schema.ColDetail:    "SFP+",
		schema.ColBandwidth: "10G",
		schema.ColDistance:  "40 km",
		schema.ColSerial:    "FCLX1034",
	}
	assert.Equal(t, "SFP+ | 10G | 40 km | SN FCLX1034", KeyLine(schema.SFP, fields))
}

func TestKeyLineBlanksRenderAsDash(t *testing.T) {
	fields := map[string]string{
		schema.ColDetail:     "Duplex",
		schema.ColConnector1: "SC-UPC",
	}
	assert.Equal(t, "Duplex | SC-UPC -> - | -", KeyLine(schema.PatchCord, fields))
}

func TestSummaryAppendsQuantityAndNote(t *testing.T) {
	fields := map[string]string{
		schema.ColDetail:     "Duplex",
		schema.ColConnector1: "SC-UPC",
		schema.ColConnector2: "LC-APC",
		schema.ColLength:     "10m",
		schema.ColQuantity:   "5",
		schema.ColNote:       "rack 3",
	}
	assert.Equal(t, "Duplex | SC-UPC -> LC-APC | 10m | Qty: 5 | Note: rack 3", Summary(schema.PatchCord, fields))

	delete(fields, schema.ColNote)
	fields[schema.ColQuantity] = ""
	assert.Equal(t, "Duplex | SC-UPC -> LC-APC | 10m", Summary(schema.PatchCord, fields))
}

func TestBullets(t *testing.T) {
	assert.Equal(t, "- Duplex\n- SC-UPC -> LC-APC\n- 10m", Bullets("Duplex | SC-UPC -> LC-APC | 10m"))
	assert.Equal(t, "- one", Bullets("one"))
	assert.Equal(t, "", Bullets("  "))
}

func TestRecordQuantityParsing(t *testing.T) {
	rec := Record{Fields: map[string]string{"Quantity": " 5 "}}
	assert.Equal(t, 5, rec.Quantity("Quantity"))

	for _, raw := range []string{"", "abc", "-3", "2.5"} {
		rec.Fields["Quantity"] = raw
		assert.Equal(t, 0, rec.Quantity("Quantity"), "raw=%q", raw)
	}
}

func TestEventIsPhoto(t *testing.T) {
	assert.True(t, Event{PhotoFileID: "f1"}.IsPhoto())
	assert.False(t, Event{Text: "hello"}.IsPhoto())
}
