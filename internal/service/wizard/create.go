package wizard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/dimasfr/gudangbot/internal/domain/models"
	"github.com/dimasfr/gudangbot/internal/domain/schema"
	"github.com/dimasfr/gudangbot/internal/service/ledger"
	"github.com/dimasfr/gudangbot/pkg/clients/telegram"
)

// handleTypeSelection starts a create wizard for the chosen item type.
func (e *Engine) handleTypeSelection(ctx context.Context, ev models.Event, text string) error {
	sc, err := e.registry.SchemaFor(text)
	if err != nil {
		e.send(ctx, ev.ChatID, "Unknown item type, pick one from the keyboard.", optionsKeyboard(e.registry.Types()))
		return nil
	}
	e.sessions.SetField(ev.UserID, scratchItemType, sc.Name)
	e.sessions.SetInt(ev.UserID, scratchStepIndex, 0)
	e.sessions.PushState(ev.UserID, StateAskingStep)
	return e.askNextStep(ctx, ev)
}

// askNextStep prompts the step at the current index, or moves to
// confirmation when every step has been answered.
func (e *Engine) askNextStep(ctx context.Context, ev models.Event) error {
	sc, ok := e.schemaFromScratch(ev.UserID)
	if !ok {
		return e.showMainMenu(ctx, ev)
	}
	i := e.sessions.GetInt(ev.UserID, scratchStepIndex)
	if i >= len(sc.Steps) {
		return e.showCreateConfirmation(ctx, ev, sc)
	}

	step := sc.Steps[i]
	var markup telegram.ReplyMarkup = navigationKeyboard()
	if step.Kind == schema.KindChoice {
		markup = optionsKeyboard(step.Options)
	}
	e.send(ctx, ev.ChatID, fmt.Sprintf("Step %d: %s", i+2, step.Prompt), markup)
	return nil
}

// handleStepAnswer validates and stores the answer for the current step.
// Invalid input re-prompts the same step without advancing.
func (e *Engine) handleStepAnswer(ctx context.Context, ev models.Event) error {
	sc, ok := e.schemaFromScratch(ev.UserID)
	if !ok {
		return e.showMainMenu(ctx, ev)
	}
	i := e.sessions.GetInt(ev.UserID, scratchStepIndex)
	if i >= len(sc.Steps) {
		return e.showCreateConfirmation(ctx, ev, sc)
	}
	step := sc.Steps[i]

	value, errMsg := validateStepAnswer(step, ev)
	if errMsg != "" {
		var markup telegram.ReplyMarkup = navigationKeyboard()
		if step.Kind == schema.KindChoice {
			markup = optionsKeyboard(step.Options)
		}
		e.send(ctx, ev.ChatID, errMsg, markup)
		return nil
	}

	e.sessions.SetField(ev.UserID, step.Key, value)
	e.sessions.SetInt(ev.UserID, scratchStepIndex, i+1)

	// Once the last natural-key field of a quantity-tracked type is in,
	// an existing row with the same key turns this into a stock merge.
	if sc.HasQuantity() && step.Key == lastKeyField(sc) {
		if done, err := e.checkDuplicate(ctx, ev, sc); done || err != nil {
			return err
		}
	}

	return e.askNextStep(ctx, ev)
}

// validateStepAnswer returns the value to store, or a re-prompt message.
func validateStepAnswer(step schema.Step, ev models.Event) (string, string) {
	switch step.Kind {
	case schema.KindPhoto:
		if ev.HasMedia && !ev.IsPhoto() {
			return "", "That file is not a photo. Please send a photo."
		}
		if !ev.IsPhoto() {
			if step.Required {
				return "", "A photo is required for this step. Please send one."
			}
			return "", "Please send a photo for this step."
		}
		return ev.PhotoFileID, ""
	case schema.KindChoice:
		text := strings.TrimSpace(ev.Text)
		for _, opt := range step.Options {
			if opt == text {
				return text, ""
			}
		}
		return "", "Pick one of the options on the keyboard."
	default:
		if ev.HasMedia {
			return "", "Please type text, don't send media."
		}
		text := strings.TrimSpace(ev.Text)
		if text == "" {
			if step.Required {
				return "", "This step cannot be empty, please type an answer."
			}
			return "-", ""
		}
		if step.Numeric && !isDigits(text) {
			return "", "Please send a number (digits only)."
		}
		return text, ""
	}
}

// lastKeyField returns the key of the step, in wizard order, that completes
// the schema's natural key.
func lastKeyField(sc schema.ItemTypeSchema) string {
	last := ""
	for _, step := range sc.Steps {
		for _, field := range sc.NaturalKey {
			if step.Key == field {
				last = step.Key
			}
		}
	}
	return last
}

// checkDuplicate looks the collected key up in the ledger. When a row with
// the same key already exists the create wizard is parked and the user is
// offered a stock merge instead. Returns done=true when the wizard should
// not advance to the next step.
func (e *Engine) checkDuplicate(ctx context.Context, ev models.Event, sc schema.ItemTypeSchema) (bool, error) {
	key := make(map[string]string, len(sc.NaturalKey))
	for _, field := range sc.NaturalKey {
		key[field] = e.sessions.GetField(ev.UserID, field)
	}

	rec, err := e.ledger.FindByKey(ctx, sc, key)
	if errors.Is(err, ledger.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		e.logger.Error("duplicate lookup failed", zap.String("sheet", sc.SheetName), zap.Error(err))
		e.send(ctx, ev.ChatID, "Failed to check existing stock. Nothing was saved.", removeKeyboard())
		return true, e.showMainMenu(ctx, ev)
	}

	e.sessions.SetField(ev.UserID, scratchRow, strconv.Itoa(rec.Row))
	e.storeScratchKey(ev.UserID, sc, rec.Fields)
	e.sessions.SetField(ev.UserID, scratchDetail, models.KeyLine(sc, rec.Fields))
	e.sessions.PushState(ev.UserID, StateDuplicateDecision)

	msg := fmt.Sprintf(
		"This item already exists:\n%s\nCurrent stock: %d\n\nAdd to its stock instead?",
		models.Bullets(models.KeyLine(sc, rec.Fields)),
		rec.Quantity(sc.QuantityField),
	)
	e.send(ctx, ev.ChatID, msg, duplicateKeyboard())
	return true, nil
}

// handleDuplicateDecision resolves the merge-or-cancel choice.
func (e *Engine) handleDuplicateDecision(ctx context.Context, ev models.Event, text string) error {
	switch text {
	case BtnYesAddQuantity:
		e.sessions.PushState(ev.UserID, StateDuplicateAddQuantity)
		e.send(ctx, ev.ChatID, "How many should be added? (digits only)", cancelOnlyKeyboard())
		return nil
	case BtnNoCancelInput:
		e.send(ctx, ev.ChatID, "Input cancelled, nothing was changed.", removeKeyboard())
		return e.showMainMenu(ctx, ev)
	}
	e.send(ctx, ev.ChatID, "Please answer with one of the buttons.", duplicateKeyboard())
	return nil
}

// handleDuplicateAdd applies the stock merge.
func (e *Engine) handleDuplicateAdd(ctx context.Context, ev models.Event, text string) error {
	if !isDigits(text) {
		e.send(ctx, ev.ChatID, "Please send a number (digits only).", cancelOnlyKeyboard())
		return nil
	}
	amount, _ := strconv.Atoi(text)
	if amount <= 0 {
		e.send(ctx, ev.ChatID, "The amount must be greater than zero.", cancelOnlyKeyboard())
		return nil
	}

	sc, ok := e.schemaFromScratch(ev.UserID)
	if !ok {
		return e.showMainMenu(ctx, ev)
	}
	detail := e.sessions.GetField(ev.UserID, scratchDetail)

	newQty, err := e.ledger.AdjustQuantity(ctx, sc, e.scratchKey(ev.UserID, sc), amount)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			e.send(ctx, ev.ChatID, "The item is gone, it may have been deleted by another user.", removeKeyboard())
		} else {
			e.logger.Error("stock merge failed", zap.String("sheet", sc.SheetName), zap.Error(err))
			e.send(ctx, ev.ChatID, "Failed to update the stock.", removeKeyboard())
		}
		return e.showMainMenu(ctx, ev)
	}

	e.recordChange(ctx, ev, models.ActionUpdate, sc.SheetName, detail,
		fmt.Sprintf("Added %d (from %d to %d)", amount, newQty-amount, newQty))

	e.send(ctx, ev.ChatID, fmt.Sprintf("Stock updated. New quantity: %d", newQty), removeKeyboard())
	return e.showMainMenu(ctx, ev)
}

// showCreateConfirmation renders the collected answers for a final check.
func (e *Engine) showCreateConfirmation(ctx context.Context, ev models.Event, sc schema.ItemTypeSchema) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Confirm new record - %s\n\n", sc.Name)
	for _, step := range sc.Steps {
		value := e.sessions.GetField(ev.UserID, step.Key)
		switch {
		case step.Kind == schema.KindPhoto && value != "":
			value = "(photo will be uploaded)"
		case value == "":
			value = "(empty)"
		}
		fmt.Fprintf(&b, "- %s: %s\n", step.Key, value)
	}
	b.WriteString("\nSave this record?")

	e.sessions.PushState(ev.UserID, StateConfirmingCreate)
	e.send(ctx, ev.ChatID, b.String(), confirmKeyboard(ConfirmSave))
	return nil
}

// handleCreateConfirmation commits or discards the collected record.
func (e *Engine) handleCreateConfirmation(ctx context.Context, ev models.Event, text string) error {
	if text != ConfirmSave {
		e.send(ctx, ev.ChatID, "Input cancelled, nothing was saved.", removeKeyboard())
		return e.showMainMenu(ctx, ev)
	}
	sc, ok := e.schemaFromScratch(ev.UserID)
	if !ok {
		return e.showMainMenu(ctx, ev)
	}
	e.send(ctx, ev.ChatID, "Saving record...", removeKeyboard())
	return e.commitCreate(ctx, ev, sc)
}

// commitCreate uploads the photo, inserts the row and records the change.
// The photo upload happens first so that a failed upload leaves the sheet
// untouched; a failed audit append after a successful insert is only logged,
// the inserted row stands.
func (e *Engine) commitCreate(ctx context.Context, ev models.Event, sc schema.ItemTypeSchema) error {
	fields := make(map[string]string, len(sc.Steps))
	for _, step := range sc.Steps {
		fields[step.Key] = e.sessions.GetField(ev.UserID, step.Key)
	}

	if photoKey := sc.PhotoStep(); photoKey != "" {
		fileID := fields[photoKey]
		if fileID == "" {
			e.send(ctx, ev.ChatID, "A photo is required but none was collected. Nothing was saved.", removeKeyboard())
			return e.showMainMenu(ctx, ev)
		}
		url, err := e.uploadPhoto(ctx, sc, fields, fileID)
		if err != nil {
			e.logger.Error("photo upload failed", zap.String("sheet", sc.SheetName), zap.Error(err))
			e.send(ctx, ev.ChatID, "Photo upload failed. Nothing was saved.", removeKeyboard())
			return e.showMainMenu(ctx, ev)
		}
		fields[photoKey] = url
	}

	if _, err := e.ledger.Insert(ctx, sc, fields); err != nil {
		e.logger.Error("record insert failed", zap.String("sheet", sc.SheetName), zap.Error(err))
		msg := "Failed to save the record."
		if errors.Is(err, ledger.ErrMissingColumns) {
			msg = "The sheet is missing required columns, please fix the sheet header first."
		}
		e.send(ctx, ev.ChatID, msg, removeKeyboard())
		return e.showMainMenu(ctx, ev)
	}

	e.recordChange(ctx, ev, models.ActionInsert, sc.SheetName,
		models.KeyLine(sc, fields), fields[schema.ColNote])

	e.send(ctx, ev.ChatID, "Record saved.", removeKeyboard())
	return e.showMainMenu(ctx, ev)
}

// uploadPhoto downloads the photo from chat and stores it, picking the
// folder configured for the record's detail value when one exists.
func (e *Engine) uploadPhoto(ctx context.Context, sc schema.ItemTypeSchema, fields map[string]string, fileID string) (string, error) {
	data, err := e.bot.DownloadPhoto(ctx, fileID)
	if err != nil {
		return "", fmt.Errorf("download photo: %w", err)
	}

	folderID := e.drive.ParentFolderID
	if sc.PhotoFolderField != "" {
		if id, ok := e.drive.Folders[fields[sc.PhotoFolderField]]; ok {
			folderID = id
		}
	}

	name := fmt.Sprintf("%s-%s-%s.jpg", sc.Name, fields[schema.ColDetail], e.now().Format("20060102150405"))
	return e.blobs.Upload(ctx, data, name, folderID)
}

// recordChange appends an audit entry, logging failures without failing the
// already-committed primary write.
func (e *Engine) recordChange(ctx context.Context, ev models.Event, action models.AuditAction, sheet, detail, note string) {
	entry := models.AuditLogEntry{
		UserID:    ev.UserID,
		Username:  ev.Username,
		Action:    action,
		SheetName: sheet,
		Detail:    detail,
		Note:      note,
	}
	if err := e.recorder.RecordChange(ctx, entry); err != nil {
		e.logger.Error("audit append failed", zap.String("sheet", sheet), zap.Error(err))
	}
}
