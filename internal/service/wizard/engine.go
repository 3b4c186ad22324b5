package wizard

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dimasfr/gudangbot/internal/config"
	"github.com/dimasfr/gudangbot/internal/domain/models"
	"github.com/dimasfr/gudangbot/internal/domain/schema"
	"github.com/dimasfr/gudangbot/internal/service/ledger"
	"github.com/dimasfr/gudangbot/internal/service/recap"
	"github.com/dimasfr/gudangbot/pkg/clients/telegram"
)

// Scratch keys for transient operation metadata. Collected wizard answers
// are stored under their schema step keys; internal bookkeeping uses an
// underscore prefix so the two can never collide with a sheet column.
const (
	scratchItemType    = "_item_type"
	scratchStepIndex   = "_step_index"
	scratchKeyStep     = "_key_step"
	scratchRow         = "_row"
	scratchDetail      = "_detail"
	scratchItemNote    = "_item_note"
	scratchPhotoURL    = "_photo_url"
	scratchOldNote     = "_old_note"
	scratchNewNote     = "_new_note"
	scratchOldQuantity = "_old_quantity"
	scratchNewQuantity = "_new_quantity"
	scratchSerial      = "_serial"
	scratchTakeAmount  = "_take_amount"
	scratchTakeReason  = "_take_reason"
	keyFieldPrefix     = "_key_"
)

// recentLogEntries caps how much history the log menus show.
const recentLogEntries = 10

// Messenger is the outbound chat surface the engine drives.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string, markup telegram.ReplyMarkup) error
	EditText(ctx context.Context, chatID, messageID int64, text string, markup *telegram.InlineKeyboardMarkup) error
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
	DownloadPhoto(ctx context.Context, fileID string) ([]byte, error)
}

// BlobStore stores record photos.
type BlobStore interface {
	Upload(ctx context.Context, data []byte, name, folderID string) (string, error)
	Delete(ctx context.Context, blobID string) error
	ExtractID(url string) string
}

// Recorder receives the audit and consumption trail.
type Recorder interface {
	RecordChange(ctx context.Context, entry models.AuditLogEntry) error
	RecordConsumption(ctx context.Context, entry models.ConsumptionLogEntry) error
	RecentChanges(ctx context.Context, n int) ([]models.AuditLogEntry, error)
	RecentConsumptions(ctx context.Context, n int) ([]models.ConsumptionLogEntry, error)
}

// Engine drives the conversational wizards: it maps each inbound event to
// the session's current state, validates the answer, advances or re-prompts,
// and invokes ledger operations on confirmation. Per-step input problems are
// absorbed here as re-prompts; only collaborator failures surface, and those
// abort the whole in-flight operation back to the main menu.
type Engine struct {
	registry *schema.Registry
	sessions *SessionStore
	ledger   *ledger.Service
	blobs    BlobStore
	bot      Messenger
	recorder Recorder
	recap    *recap.Service
	drive    config.DriveConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewEngine wires the wizard engine.
func NewEngine(
	registry *schema.Registry,
	ledgerSvc *ledger.Service,
	blobs BlobStore,
	bot Messenger,
	recorder Recorder,
	recapSvc *recap.Service,
	drive config.DriveConfig,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		registry: registry,
		sessions: NewSessionStore(),
		ledger:   ledgerSvc,
		blobs:    blobs,
		bot:      bot,
		recorder: recorder,
		recap:    recapSvc,
		drive:    drive,
		logger:   logger,
		now:      time.Now,
	}
}

// Sessions exposes the session store, mainly for tests.
func (e *Engine) Sessions() *SessionStore { return e.sessions }

// HandleEvent processes one inbound user interaction.
func (e *Engine) HandleEvent(ctx context.Context, ev models.Event) error {
	if ev.Button != "" {
		return e.handleCallback(ctx, ev)
	}

	text := strings.TrimSpace(ev.Text)
	switch text {
	case BtnCancel:
		e.sessions.Clear(ev.UserID)
		e.send(ctx, ev.ChatID, "Cancelled.", removeKeyboard())
		return e.showMainMenu(ctx, ev)
	case BtnBack:
		return e.handleBack(ctx, ev)
	}

	switch e.sessions.CurrentState(ev.UserID) {
	case StateIdle:
		return e.handleMainMenu(ctx, ev, text)

	case StateSelectingType:
		return e.handleTypeSelection(ctx, ev, text)
	case StateAskingStep:
		return e.handleStepAnswer(ctx, ev)
	case StateDuplicateDecision:
		return e.handleDuplicateDecision(ctx, ev, text)
	case StateDuplicateAddQuantity:
		return e.handleDuplicateAdd(ctx, ev, text)
	case StateConfirmingCreate:
		return e.handleCreateConfirmation(ctx, ev, text)

	case StateSelectingDeleteType:
		return e.handleDeleteTypeSelection(ctx, ev, text)
	case StateAskingDeleteSerial:
		return e.handleDeleteSerial(ctx, ev, text)
	case StateAskingDeleteKey:
		return e.handleDeleteKeyStep(ctx, ev, text)
	case StateConfirmingDelete:
		return e.handleDeleteConfirmation(ctx, ev, text)

	case StateEditMenu:
		return e.handleEditMenu(ctx, ev, text)
	case StateSelectingNoteType:
		return e.handleNoteTypeSelection(ctx, ev, text)
	case StateSelectingNoteTarget, StateSelectingQuantityTarget, StateSelectingConsumeDetail, StateSelectingConsumeTarget:
		// These states only accept inline button presses.
		e.send(ctx, ev.ChatID, "Please pick an entry from the list, or use Back.", navigationKeyboard())
		return nil
	case StateAskingNewNote:
		return e.handleNewNote(ctx, ev, text)
	case StateConfirmingNote:
		return e.handleNoteConfirmation(ctx, ev, text)
	case StateAskingNewQuantity:
		return e.handleNewQuantity(ctx, ev, text)
	case StateConfirmingQuantity:
		return e.handleQuantityConfirmation(ctx, ev, text)

	case StateConsumeMenu:
		return e.handleConsumeMenu(ctx, ev, text)
	case StateSelectingConsumeType:
		return e.handleConsumeTypeSelection(ctx, ev, text)
	case StateAskingConsumeQuantity:
		return e.handleConsumeQuantity(ctx, ev, text)
	case StateAskingConsumeReason:
		return e.handleConsumeReason(ctx, ev, text)
	case StateConfirmingConsume:
		return e.handleConsumeConfirmation(ctx, ev, text)
	}

	return e.showMainMenu(ctx, ev)
}

// handleMainMenu routes top-level menu choices.
func (e *Engine) handleMainMenu(ctx context.Context, ev models.Event, text string) error {
	switch text {
	case BtnInput:
		e.sessions.PushState(ev.UserID, StateSelectingType)
		e.send(ctx, ev.ChatID, "Step 1: pick the item type", optionsKeyboard(e.registry.Types()))
		return nil
	case BtnRecap:
		e.send(ctx, ev.ChatID, "Pick an item type for the recap:", e.recapTypeKeyboard())
		return nil
	case BtnDelete:
		e.sessions.PushState(ev.UserID, StateSelectingDeleteType)
		e.send(ctx, ev.ChatID, "Pick the item type of the record to delete:", optionsKeyboard(e.registry.Types()))
		return nil
	case BtnEdit:
		e.sessions.PushState(ev.UserID, StateEditMenu)
		e.send(ctx, ev.ChatID, "Pick the kind of change:", editMenuKeyboard())
		return nil
	case BtnConsumption:
		e.sessions.PushState(ev.UserID, StateConsumeMenu)
		e.send(ctx, ev.ChatID, "Pick a consumption action:", consumeMenuKeyboard())
		return nil
	case BtnLog:
		entries, err := e.recorder.RecentChanges(ctx, recentLogEntries)
		if err != nil {
			e.logger.Error("failed to load change history", zap.Error(err))
			e.send(ctx, ev.ChatID, "Failed to load the change history.", mainMenuKeyboard())
			return nil
		}
		e.send(ctx, ev.ChatID, recap.RenderChangeLog(entries), mainMenuKeyboard())
		return nil
	}
	return e.showMainMenu(ctx, ev)
}

// showMainMenu tears the session down and presents the idle menu.
func (e *Engine) showMainMenu(ctx context.Context, ev models.Event) error {
	e.sessions.Clear(ev.UserID)
	e.send(ctx, ev.ChatID, "Pick a menu option:", mainMenuKeyboard())
	return nil
}

// send delivers a message, logging but not propagating transport errors; a
// failed prompt is recoverable by the user re-sending their input.
func (e *Engine) send(ctx context.Context, chatID int64, text string, markup telegram.ReplyMarkup) {
	if err := e.bot.SendText(ctx, chatID, text, markup); err != nil {
		e.logger.Error("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (e *Engine) recapTypeKeyboard() *telegram.InlineKeyboardMarkup {
	var rows [][]telegram.InlineKeyboardButton
	var row []telegram.InlineKeyboardButton
	for _, t := range e.registry.Types() {
		row = append(row, telegram.InlineKeyboardButton{Text: t, CallbackData: "recap|" + t})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []telegram.InlineKeyboardButton{{Text: "Close", CallbackData: "recap|close"}})
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// schemaFromScratch resolves the schema the session is working on.
func (e *Engine) schemaFromScratch(userID int64) (schema.ItemTypeSchema, bool) {
	name := e.sessions.GetField(userID, scratchItemType)
	sc, err := e.registry.SchemaFor(name)
	if err != nil {
		return schema.ItemTypeSchema{}, false
	}
	return sc, true
}

// scratchKey rebuilds the natural key stored under keyFieldPrefix.
func (e *Engine) scratchKey(userID int64, sc schema.ItemTypeSchema) map[string]string {
	key := make(map[string]string, len(sc.NaturalKey))
	for _, field := range sc.NaturalKey {
		key[field] = e.sessions.GetField(userID, keyFieldPrefix+field)
	}
	return key
}

func (e *Engine) storeScratchKey(userID int64, sc schema.ItemTypeSchema, fields map[string]string) {
	for _, field := range sc.NaturalKey {
		e.sessions.SetField(userID, keyFieldPrefix+field, fields[field])
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
