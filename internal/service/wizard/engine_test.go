package wizard

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dimasfr/gudangbot/internal/config"
	"github.com/dimasfr/gudangbot/internal/domain/models"
	"github.com/dimasfr/gudangbot/internal/domain/schema"
	"github.com/dimasfr/gudangbot/internal/repository/memstore"
	"github.com/dimasfr/gudangbot/internal/service/audit"
	"github.com/dimasfr/gudangbot/internal/service/ledger"
	"github.com/dimasfr/gudangbot/internal/service/recap"
	"github.com/dimasfr/gudangbot/pkg/clients/telegram"
)

const (
	testChatID int64 = 100
	testUserID int64 = 7
)

var (
	sfpHeaders = []string{"No", "Detail", "Bandwidth", "Distance", "SN", "Note", "Photo Link"}
	pcHeaders  = []string{"No", "Detail", "Connector 1", "Connector 2", "Length", "Quantity", "Note", "Photo Link"}
)

type fakeBot struct {
	texts   []string
	deleted []int64
}

func (b *fakeBot) SendText(_ context.Context, _ int64, text string, _ telegram.ReplyMarkup) error {
	b.texts = append(b.texts, text)
	return nil
}

func (b *fakeBot) EditText(_ context.Context, _, _ int64, text string, _ *telegram.InlineKeyboardMarkup) error {
	b.texts = append(b.texts, text)
	return nil
}

func (b *fakeBot) DeleteMessage(_ context.Context, _, messageID int64) error {
	b.deleted = append(b.deleted, messageID)
	return nil
}

func (b *fakeBot) DownloadPhoto(_ context.Context, fileID string) ([]byte, error) {
	return []byte("jpeg:" + fileID), nil
}

func (b *fakeBot) lastText() string {
	if len(b.texts) == 0 {
		return ""
	}
	return b.texts[len(b.texts)-1]
}

// allText joins every sent message, newest last, for containment checks
// that should not depend on exactly which prompt carried the text.
func (b *fakeBot) allText() string { return strings.Join(b.texts, "\n") }

type fakeBlobs struct {
	uploads int
	folders []string
	deleted []string
}

func (f *fakeBlobs) Upload(_ context.Context, _ []byte, name, folderID string) (string, error) {
	f.uploads++
	f.folders = append(f.folders, folderID)
	return "https://drive.google.com/file/d/blob-" + name + "/view", nil
}

func (f *fakeBlobs) Delete(_ context.Context, blobID string) error {
	f.deleted = append(f.deleted, blobID)
	return nil
}

func (f *fakeBlobs) ExtractID(url string) string {
	const prefix = "https://drive.google.com/file/d/"
	if !strings.HasPrefix(url, prefix) {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(url, prefix), "/view")
}

type harness struct {
	engine *Engine
	store  *memstore.Store
	bot    *fakeBot
	blobs  *fakeBlobs
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	registry, err := schema.Builtin()
	require.NoError(t, err)

	store := memstore.New()
	store.Seed("SFP", sfpHeaders)
	store.Seed("Patch Cord", pcHeaders)

	bot := &fakeBot{}
	blobs := &fakeBlobs{}
	ledgerSvc := ledger.NewService(store, zap.NewNop())
	recorder := audit.NewRecorder(store, nil, zap.NewNop())
	recapSvc := recap.NewService(ledgerSvc, registry, zap.NewNop())

	driveCfg := config.DriveConfig{
		ParentFolderID: "root-folder",
		Folders:        map[string]string{"SFP+": "sfp-plus-folder"},
	}

	return &harness{
		engine: NewEngine(registry, ledgerSvc, blobs, bot, recorder, recapSvc, driveCfg, zap.NewNop()),
		store:  store,
		bot:    bot,
		blobs:  blobs,
	}
}

func (h *harness) text(t *testing.T, msg string) {
	t.Helper()
	err := h.engine.HandleEvent(context.Background(), models.Event{
		ChatID: testChatID, UserID: testUserID, Username: "dimas", Text: msg,
	})
	require.NoError(t, err)
}

func (h *harness) photo(t *testing.T, fileID string) {
	t.Helper()
	err := h.engine.HandleEvent(context.Background(), models.Event{
		ChatID: testChatID, UserID: testUserID, Username: "dimas",
		PhotoFileID: fileID, HasMedia: true,
	})
	require.NoError(t, err)
}

func (h *harness) media(t *testing.T) {
	t.Helper()
	err := h.engine.HandleEvent(context.Background(), models.Event{
		ChatID: testChatID, UserID: testUserID, Username: "dimas",
		HasMedia: true,
	})
	require.NoError(t, err)
}

func (h *harness) button(t *testing.T, data string) {
	t.Helper()
	err := h.engine.HandleEvent(context.Background(), models.Event{
		ChatID: testChatID, UserID: testUserID, Username: "dimas",
		Button: data, MessageID: 555,
	})
	require.NoError(t, err)
}

func (h *harness) state() State {
	return h.engine.Sessions().CurrentState(testUserID)
}

func TestCreateSFPFullFlow(t *testing.T) {
	h := newHarness(t)

	h.text(t, BtnInput)
	h.text(t, "SFP")
	h.text(t, "SFP+")
	h.text(t, "10G")
	h.text(t, "40 km")
	h.text(t, "FCLX1034")
	h.text(t, "shelf A")
	h.photo(t, "photo-123")

	// Confirmation shows every collected value, in step order.
	summary := h.bot.lastText()
	last := -1
	for _, want := range []string{"SFP+", "10G", "40 km", "FCLX1034", "shelf A"} {
		idx := strings.Index(summary, want)
		require.GreaterOrEqual(t, idx, 0, "summary missing %q", want)
		assert.Greater(t, idx, last, "summary out of order at %q", want)
		last = idx
	}
	require.Equal(t, StateConfirmingCreate, h.state())

	h.text(t, ConfirmSave)

	rows := h.store.Rows("SFP")
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0][0])
	assert.Equal(t, []string{"SFP+", "10G", "40 km", "FCLX1034", "shelf A"}, rows[0][1:6])
	assert.Contains(t, rows[0][6], "https://drive.google.com/file/d/")

	// Photo landed in the detail's dedicated folder.
	require.Equal(t, 1, h.blobs.uploads)
	assert.Equal(t, []string{"sfp-plus-folder"}, h.blobs.folders)

	// Exactly one INSERT audit entry.
	logRows := h.store.Rows(audit.ChangeLogSheet)
	require.Len(t, logRows, 1)
	assert.Equal(t, "INSERT", logRows[0][3])
	assert.Equal(t, "SFP", logRows[0][4])

	assert.Equal(t, StateIdle, h.state())
}

func TestCreateDuplicateMergesReversedConnectors(t *testing.T) {
	h := newHarness(t)
	h.store.Seed("Patch Cord", pcHeaders,
		[]string{"1", "Duplex", "SC-UPC", "LC-APC", "10m", "5", "rack 3", ""})

	h.text(t, BtnInput)
	h.text(t, "Patch Cord")
	h.text(t, "Duplex")
	h.text(t, "LC-APC") // reversed order relative to the stored row
	h.text(t, "SC-UPC")
	h.text(t, "10m")

	// The symmetric pair matches either way round, so this is a duplicate.
	require.Equal(t, StateDuplicateDecision, h.state())
	assert.Contains(t, h.bot.lastText(), "already exists")

	h.text(t, BtnYesAddQuantity)
	h.text(t, "3")

	rows := h.store.Rows("Patch Cord")
	require.Len(t, rows, 1, "merge must not create a second row")
	assert.Equal(t, "8", rows[0][5])

	logRows := h.store.Rows(audit.ChangeLogSheet)
	require.Len(t, logRows, 1)
	assert.Equal(t, "UPDATE", logRows[0][3])
	assert.Contains(t, logRows[0][6], "Added 3 (from 5 to 8)")
	assert.Equal(t, StateIdle, h.state())
}

func TestCreateDuplicateDeclinedCancelsInput(t *testing.T) {
	h := newHarness(t)
	h.store.Seed("Patch Cord", pcHeaders,
		[]string{"1", "Simplex", "SC-UPC", "SC-UPC", "3m", "2", "", ""})

	h.text(t, BtnInput)
	h.text(t, "Patch Cord")
	h.text(t, "Simplex")
	h.text(t, "SC-UPC")
	h.text(t, "SC-UPC")
	h.text(t, "3m")
	require.Equal(t, StateDuplicateDecision, h.state())

	h.text(t, BtnNoCancelInput)

	rows := h.store.Rows("Patch Cord")
	require.Len(t, rows, 1)
	assert.Equal(t, "2", rows[0][5], "declining the merge must not touch stock")
	assert.Empty(t, h.store.Rows(audit.ChangeLogSheet))
	assert.Equal(t, StateIdle, h.state())
}

func TestCancelMidWizardLeavesStoreUntouched(t *testing.T) {
	h := newHarness(t)
	h.store.Seed("SFP", sfpHeaders,
		[]string{"1", "SFP", "1G", "10 km", "SN-A", "", ""})

	h.text(t, BtnInput)
	h.text(t, "SFP")
	h.text(t, "XFP")
	h.text(t, "100G")
	h.text(t, BtnCancel)

	rows := h.store.Rows("SFP")
	require.Len(t, rows, 1)
	assert.Equal(t, "SN-A", rows[0][4])
	assert.Empty(t, h.store.Rows(audit.ChangeLogSheet))
	assert.Equal(t, StateIdle, h.state())

	// The discarded answers must not leak into a fresh wizard.
	h.text(t, BtnInput)
	h.text(t, "SFP")
	assert.Contains(t, h.bot.lastText(), "transceiver type")
}

func TestStepValidationReprompts(t *testing.T) {
	h := newHarness(t)

	h.text(t, BtnInput)
	h.text(t, "Patch Cord")
	h.text(t, "Coaxial") // not an option
	assert.Equal(t, StateAskingStep, h.state())
	assert.Contains(t, h.bot.lastText(), "options")

	h.text(t, "Duplex")
	h.text(t, "SC-UPC")
	h.text(t, "LC-UPC")
	h.text(t, "5m")
	h.text(t, "many") // quantity must be digits
	assert.Contains(t, h.bot.lastText(), "digits")

	h.text(t, "4")
	h.text(t, "-")
	require.Equal(t, StateAskingStep, h.state())
}

func TestTextStepRejectsMediaPayloads(t *testing.T) {
	h := newHarness(t)

	h.text(t, BtnInput)
	h.text(t, "SFP")
	h.text(t, "SFP+")
	h.text(t, "10G")
	h.text(t, "40 km")
	h.text(t, "SN-900")

	// A sticker or document at the note step re-prompts; it must not pass
	// as an empty answer.
	h.media(t)
	assert.Equal(t, StateAskingStep, h.state())
	assert.Contains(t, h.bot.lastText(), "don't send media")
	assert.Empty(t, h.engine.Sessions().GetField(testUserID, schema.ColNote))

	h.text(t, "spare unit")
	assert.Contains(t, h.bot.lastText(), "Send a photo of the unit")
}

func TestBackRewindsOneStep(t *testing.T) {
	h := newHarness(t)

	h.text(t, BtnInput)
	h.text(t, "SFP")
	h.text(t, "SFP+")
	h.text(t, "10G")
	h.text(t, BtnBack)

	// Back re-asks the bandwidth question; answering again moves forward.
	assert.Contains(t, h.bot.lastText(), "bandwidth")
	h.text(t, "1G")
	assert.Contains(t, h.bot.lastText(), "reach")
}

func TestBackFromSubmenusLandsOnAnchors(t *testing.T) {
	h := newHarness(t)

	h.text(t, BtnConsumption)
	h.text(t, BtnTakeItem)
	require.Equal(t, StateSelectingConsumeType, h.state())

	h.text(t, BtnBack)
	assert.Equal(t, StateConsumeMenu, h.state())

	h.text(t, BtnBack)
	assert.Equal(t, StateIdle, h.state())
}

func TestConsumePatchCordQuantity(t *testing.T) {
	h := newHarness(t)
	h.store.Seed("Patch Cord", pcHeaders,
		[]string{"1", "Duplex", "SC-UPC", "LC-APC", "10m", "2", "rack 3", ""})

	h.text(t, BtnConsumption)
	h.text(t, BtnTakeItem)
	h.text(t, "Patch Cord")
	require.Equal(t, StateSelectingConsumeTarget, h.state())

	h.button(t, "ctake|Patch Cord|Duplex|SC-UPC|LC-APC|10m")
	require.Equal(t, StateAskingConsumeQuantity, h.state())
	assert.Contains(t, h.bot.lastText(), "available: 2")

	// Asking for more than the stock re-prompts without moving on.
	h.text(t, "5")
	assert.Contains(t, h.bot.lastText(), "Not enough stock")
	require.Equal(t, StateAskingConsumeQuantity, h.state())

	h.text(t, "2")
	h.text(t, "ticket 42")
	require.Equal(t, StateConfirmingConsume, h.state())
	h.text(t, ConfirmTake)

	rows := h.store.Rows("Patch Cord")
	require.Len(t, rows, 1)
	assert.Equal(t, "0", rows[0][5])

	logRows := h.store.Rows(audit.ChangeLogSheet)
	require.Len(t, logRows, 1)
	assert.Equal(t, "UPDATE", logRows[0][3])
	assert.Contains(t, logRows[0][6], "Took 2 (from 2 to 0)")

	consRows := h.store.Rows(audit.ConsumptionSheet)
	require.Len(t, consRows, 1)
	assert.Equal(t, "Patch Cord", consRows[0][3])
	assert.Equal(t, "2", consRows[0][5])
	assert.Equal(t, "rack 3", consRows[0][6])
	assert.Equal(t, "ticket 42", consRows[0][7])
}

func TestConsumeSFPDeletesRowAndRenumbers(t *testing.T) {
	h := newHarness(t)
	h.store.Seed("SFP", sfpHeaders,
		[]string{"1", "SFP+", "10G", "40 km", "SN-A", "", ""},
		[]string{"2", "SFP+", "10G", "40 km", "SN-B", "spare", ""},
		[]string{"3", "XFP", "100G", "80 km", "SN-C", "", ""})

	h.text(t, BtnConsumption)
	h.text(t, BtnTakeItem)
	h.text(t, "SFP")
	require.Equal(t, StateSelectingConsumeDetail, h.state())

	h.button(t, "cdet|SFP|SFP+")
	require.Equal(t, StateSelectingConsumeTarget, h.state())

	h.button(t, "csn|SFP|SN-B")
	h.text(t, "link upgrade")
	h.text(t, ConfirmTake)

	rows := h.store.Rows("SFP")
	require.Len(t, rows, 2)
	assert.Equal(t, "SN-A", rows[0][4])
	assert.Equal(t, "SN-C", rows[1][4])
	assert.Equal(t, []string{"1", "2"}, []string{rows[0][0], rows[1][0]}, "sequence must stay dense after the take")

	logRows := h.store.Rows(audit.ChangeLogSheet)
	require.Len(t, logRows, 1)
	assert.Equal(t, "DELETE", logRows[0][3])

	consRows := h.store.Rows(audit.ConsumptionSheet)
	require.Len(t, consRows, 1)
	assert.Equal(t, "1", consRows[0][5], "serialized takes are always one unit")
	assert.Equal(t, "spare", consRows[0][6])
}

func TestDeleteSFPRemovesPhoto(t *testing.T) {
	h := newHarness(t)
	h.store.Seed("SFP", sfpHeaders,
		[]string{"1", "SFP", "1G", "10 km", "SN-A", "old", "https://drive.google.com/file/d/blob-7/view"},
		[]string{"2", "XFP", "100G", "80 km", "SN-B", "", ""})

	h.text(t, BtnDelete)
	h.text(t, "SFP")
	h.text(t, "SN-A")
	require.Equal(t, StateConfirmingDelete, h.state())
	assert.Contains(t, h.bot.lastText(), "SN SN-A")

	h.text(t, ConfirmDelete)

	rows := h.store.Rows("SFP")
	require.Len(t, rows, 1)
	assert.Equal(t, "SN-B", rows[0][4])
	assert.Equal(t, "1", rows[0][0])

	assert.Equal(t, []string{"blob-7"}, h.blobs.deleted)

	logRows := h.store.Rows(audit.ChangeLogSheet)
	require.Len(t, logRows, 1)
	assert.Equal(t, "DELETE", logRows[0][3])
	assert.Equal(t, "old", logRows[0][6])
}

func TestDeleteUnknownSerialStaysInFlow(t *testing.T) {
	h := newHarness(t)
	h.store.Seed("SFP", sfpHeaders,
		[]string{"1", "SFP", "1G", "10 km", "SN-A", "", ""})

	h.text(t, BtnDelete)
	h.text(t, "SFP")
	h.text(t, "SN-MISSING")

	assert.Contains(t, h.bot.lastText(), "SN not found")
	assert.Equal(t, StateAskingDeleteSerial, h.state())
	require.Len(t, h.store.Rows("SFP"), 1)
}

func TestEditNoteFlow(t *testing.T) {
	h := newHarness(t)
	h.store.Seed("SFP", sfpHeaders,
		[]string{"1", "SFP", "1G", "10 km", "SN-A", "old note", ""})

	h.text(t, BtnEdit)
	h.text(t, OptEditNote)
	h.text(t, "SFP")
	require.Equal(t, StateSelectingNoteTarget, h.state())

	h.button(t, "enote|SFP|SN-A")
	require.Equal(t, StateAskingNewNote, h.state())
	assert.Contains(t, h.bot.lastText(), "old note")

	h.text(t, "moved to rack 5")
	require.Equal(t, StateConfirmingNote, h.state())
	h.text(t, ConfirmUpdate)

	rows := h.store.Rows("SFP")
	assert.Equal(t, "moved to rack 5", rows[0][5])

	logRows := h.store.Rows(audit.ChangeLogSheet)
	require.Len(t, logRows, 1)
	assert.Equal(t, "UPDATE", logRows[0][3])
	assert.Contains(t, logRows[0][6], `"old note"`)
	assert.Contains(t, logRows[0][6], `"moved to rack 5"`)
}

func TestEditQuantityFlow(t *testing.T) {
	h := newHarness(t)
	h.store.Seed("Patch Cord", pcHeaders,
		[]string{"1", "Duplex", "SC-UPC", "LC-APC", "10m", "5", "", ""})

	h.text(t, BtnEdit)
	h.text(t, OptEditQuantity)
	require.Equal(t, StateSelectingQuantityTarget, h.state())

	h.button(t, "eqty|Patch Cord|Duplex|SC-UPC|LC-APC|10m")
	assert.Contains(t, h.bot.lastText(), "Current quantity: 5")

	h.text(t, "12")
	h.text(t, ConfirmUpdate)

	rows := h.store.Rows("Patch Cord")
	assert.Equal(t, "12", rows[0][5])

	logRows := h.store.Rows(audit.ChangeLogSheet)
	require.Len(t, logRows, 1)
	assert.Contains(t, logRows[0][6], "from 5 to 12")
}

func TestRecapCallbackEditsInPlace(t *testing.T) {
	h := newHarness(t)
	h.store.Seed("Patch Cord", pcHeaders,
		[]string{"1", "Duplex", "SC-UPC", "LC-APC", "10m", "5", "", ""})

	h.text(t, BtnRecap)
	h.button(t, "recap|Patch Cord")

	assert.Contains(t, h.bot.lastText(), "Stock recap for Patch Cord")
	assert.Contains(t, h.bot.lastText(), "5 units")
	assert.Equal(t, StateIdle, h.state(), "recap browsing never enters a wizard")

	h.button(t, "recap|close")
	assert.Equal(t, []int64{555}, h.bot.deleted)
}

func TestStaleCallbackTargetIsRejected(t *testing.T) {
	h := newHarness(t)

	// The list the button came from referenced a record that is gone.
	h.button(t, "enote|SFP|SN-GONE")
	assert.Contains(t, h.bot.allText(), "no longer exists")
	assert.Equal(t, StateIdle, h.state())
}

func TestChangeHistoryFromMainMenu(t *testing.T) {
	h := newHarness(t)
	h.store.Seed("Patch Cord", pcHeaders,
		[]string{"1", "Duplex", "SC-UPC", "LC-APC", "10m", "5", "", ""})

	// No entries yet.
	h.text(t, BtnLog)
	assert.Contains(t, h.bot.lastText(), "No changes recorded yet")

	// Generate one entry through a quantity edit, then read it back.
	h.text(t, BtnEdit)
	h.text(t, OptEditQuantity)
	h.button(t, "eqty|Patch Cord|Duplex|SC-UPC|LC-APC|10m")
	h.text(t, "7")
	h.text(t, ConfirmUpdate)

	h.text(t, BtnLog)
	assert.Contains(t, h.bot.lastText(), "UPDATE")
	assert.Contains(t, h.bot.lastText(), "from 5 to 7")
}
