package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dimasfr/gudangbot/internal/domain/models"
	"github.com/dimasfr/gudangbot/internal/domain/schema"
	"github.com/dimasfr/gudangbot/internal/service/ledger"
)

// --- delete flow ---

func (e *Engine) handleDeleteTypeSelection(ctx context.Context, ev models.Event, text string) error {
	sc, err := e.registry.SchemaFor(text)
	if err != nil {
		e.send(ctx, ev.ChatID, "Unknown item type, pick one from the keyboard.", optionsKeyboard(e.registry.Types()))
		return nil
	}
	e.sessions.SetField(ev.UserID, scratchItemType, sc.Name)

	if len(sc.NaturalKey) == 1 {
		e.sessions.PushState(ev.UserID, StateAskingDeleteSerial)
		e.send(ctx, ev.ChatID, "Send the SN of the record to delete:", navigationKeyboard())
		return nil
	}

	e.sessions.SetInt(ev.UserID, scratchKeyStep, 0)
	e.sessions.PushState(ev.UserID, StateAskingDeleteKey)
	return e.askDeleteKeyStep(ctx, ev)
}

// keySteps returns the wizard steps that make up the natural key, in order.
func keySteps(sc schema.ItemTypeSchema) []schema.Step {
	var steps []schema.Step
	for _, step := range sc.Steps {
		for _, field := range sc.NaturalKey {
			if step.Key == field {
				steps = append(steps, step)
			}
		}
	}
	return steps
}

func (e *Engine) askDeleteKeyStep(ctx context.Context, ev models.Event) error {
	sc, ok := e.schemaFromScratch(ev.UserID)
	if !ok {
		return e.showMainMenu(ctx, ev)
	}
	steps := keySteps(sc)
	i := e.sessions.GetInt(ev.UserID, scratchKeyStep)
	if i >= len(steps) {
		return e.findDeleteTargetByKey(ctx, ev, sc)
	}
	e.send(ctx, ev.ChatID, steps[i].Prompt, optionsKeyboard(steps[i].Options))
	return nil
}

func (e *Engine) handleDeleteKeyStep(ctx context.Context, ev models.Event, text string) error {
	sc, ok := e.schemaFromScratch(ev.UserID)
	if !ok {
		return e.showMainMenu(ctx, ev)
	}
	steps := keySteps(sc)
	i := e.sessions.GetInt(ev.UserID, scratchKeyStep)
	if i >= len(steps) {
		return e.findDeleteTargetByKey(ctx, ev, sc)
	}
	step := steps[i]

	valid := false
	for _, opt := range step.Options {
		if opt == text {
			valid = true
			break
		}
	}
	if !valid && step.Kind == schema.KindChoice {
		e.send(ctx, ev.ChatID, "Pick one of the options on the keyboard.", optionsKeyboard(step.Options))
		return nil
	}
	if text == "" {
		e.send(ctx, ev.ChatID, "This cannot be empty, please type an answer.", navigationKeyboard())
		return nil
	}

	e.sessions.SetField(ev.UserID, keyFieldPrefix+step.Key, text)
	e.sessions.SetInt(ev.UserID, scratchKeyStep, i+1)
	if i+1 < len(steps) {
		return e.askDeleteKeyStep(ctx, ev)
	}
	return e.findDeleteTargetByKey(ctx, ev, sc)
}

func (e *Engine) findDeleteTargetByKey(ctx context.Context, ev models.Event, sc schema.ItemTypeSchema) error {
	e.send(ctx, ev.ChatID, "Searching for the record...", removeKeyboard())

	rec, err := e.ledger.FindByKey(ctx, sc, e.scratchKey(ev.UserID, sc))
	if errors.Is(err, ledger.ErrNotFound) {
		e.sessions.SetInt(ev.UserID, scratchKeyStep, 0)
		e.send(ctx, ev.ChatID, "No record matches that combination. Pick again or Cancel.", navigationKeyboard())
		return e.askDeleteKeyStep(ctx, ev)
	}
	if err != nil {
		e.logger.Error("delete lookup failed", zap.String("sheet", sc.SheetName), zap.Error(err))
		e.send(ctx, ev.ChatID, "Failed to look the record up.", removeKeyboard())
		return e.showMainMenu(ctx, ev)
	}
	return e.showDeleteConfirmation(ctx, ev, sc, rec)
}

func (e *Engine) handleDeleteSerial(ctx context.Context, ev models.Event, text string) error {
	if text == "" {
		e.send(ctx, ev.ChatID, "Please type the SN.", navigationKeyboard())
		return nil
	}
	sc, ok := e.schemaFromScratch(ev.UserID)
	if !ok {
		return e.showMainMenu(ctx, ev)
	}

	e.send(ctx, ev.ChatID, fmt.Sprintf("Searching for SN %s...", text), removeKeyboard())
	rec, err := e.ledger.FindBySerial(ctx, sc, text)
	if errors.Is(err, ledger.ErrNotFound) {
		e.send(ctx, ev.ChatID, "SN not found. Send another SN or Cancel.", navigationKeyboard())
		return nil
	}
	if err != nil {
		e.logger.Error("serial lookup failed", zap.String("sheet", sc.SheetName), zap.Error(err))
		e.send(ctx, ev.ChatID, "Failed to look the record up.", removeKeyboard())
		return e.showMainMenu(ctx, ev)
	}
	return e.showDeleteConfirmation(ctx, ev, sc, rec)
}

func (e *Engine) showDeleteConfirmation(ctx context.Context, ev models.Event, sc schema.ItemTypeSchema, rec models.Record) error {
	e.sessions.SetInt(ev.UserID, scratchRow, rec.Row)
	e.sessions.SetField(ev.UserID, scratchDetail, models.KeyLine(sc, rec.Fields))
	e.sessions.SetField(ev.UserID, scratchItemNote, rec.Get(schema.ColNote))
	e.sessions.SetField(ev.UserID, scratchPhotoURL, rec.Get(schema.ColPhotoLink))
	e.sessions.PushState(ev.UserID, StateConfirmingDelete)

	msg := fmt.Sprintf("Confirm delete - %s\n\n%s\n\nDelete this record?",
		sc.SheetName, models.Bullets(models.Summary(sc, rec.Fields)))
	e.send(ctx, ev.ChatID, msg, confirmKeyboard(ConfirmDelete))
	return nil
}

func (e *Engine) handleDeleteConfirmation(ctx context.Context, ev models.Event, text string) error {
	if text != ConfirmDelete {
		e.send(ctx, ev.ChatID, "Delete cancelled, nothing was changed.", removeKeyboard())
		return e.showMainMenu(ctx, ev)
	}
	sc, ok := e.schemaFromScratch(ev.UserID)
	if !ok {
		return e.showMainMenu(ctx, ev)
	}
	e.send(ctx, ev.ChatID, "Deleting the record and its photo...", removeKeyboard())
	return e.commitDelete(ctx, ev, sc)
}

// commitDelete removes the row and its stored photo. A failed photo delete
// is logged and the row delete proceeds; the sheet stays authoritative.
func (e *Engine) commitDelete(ctx context.Context, ev models.Event, sc schema.ItemTypeSchema) error {
	row := e.sessions.GetInt(ev.UserID, scratchRow)
	detail := e.sessions.GetField(ev.UserID, scratchDetail)
	note := e.sessions.GetField(ev.UserID, scratchItemNote)

	if url := e.sessions.GetField(ev.UserID, scratchPhotoURL); url != "" {
		if id := e.blobs.ExtractID(url); id != "" {
			if err := e.blobs.Delete(ctx, id); err != nil {
				e.logger.Warn("photo delete failed", zap.String("blob_id", id), zap.Error(err))
			}
		}
	}

	if err := e.ledger.Delete(ctx, sc, row); err != nil {
		e.logger.Error("row delete failed", zap.String("sheet", sc.SheetName), zap.Int("row", row), zap.Error(err))
		e.send(ctx, ev.ChatID, "Failed to delete the record.", removeKeyboard())
		return e.showMainMenu(ctx, ev)
	}

	e.recordChange(ctx, ev, models.ActionDelete, sc.SheetName, detail, note)
	e.send(ctx, ev.ChatID, "Record and photo deleted.", removeKeyboard())
	return e.showMainMenu(ctx, ev)
}

// --- edit flow ---

func (e *Engine) handleEditMenu(ctx context.Context, ev models.Event, text string) error {
	switch text {
	case OptEditNote:
		e.sessions.PushState(ev.UserID, StateSelectingNoteType)
		e.send(ctx, ev.ChatID, "Pick the item type to edit:", optionsKeyboard(e.registry.Types()))
		return nil
	case OptEditQuantity:
		return e.startQuantityEdit(ctx, ev)
	}
	e.send(ctx, ev.ChatID, "Pick the kind of change:", editMenuKeyboard())
	return nil
}

func (e *Engine) handleNoteTypeSelection(ctx context.Context, ev models.Event, text string) error {
	sc, err := e.registry.SchemaFor(text)
	if err != nil {
		e.send(ctx, ev.ChatID, "Unknown item type, pick one from the keyboard.", optionsKeyboard(e.registry.Types()))
		return nil
	}
	e.sessions.SetField(ev.UserID, scratchItemType, sc.Name)

	records, err := e.ledger.List(ctx, sc)
	if err != nil {
		e.logger.Error("record list failed", zap.String("sheet", sc.SheetName), zap.Error(err))
		e.send(ctx, ev.ChatID, "Failed to load the records.", removeKeyboard())
		return e.showMainMenu(ctx, ev)
	}
	if len(records) == 0 {
		e.send(ctx, ev.ChatID, fmt.Sprintf("No %s records to edit.", sc.Name), removeKeyboard())
		return e.showMainMenu(ctx, ev)
	}

	var labels, callbacks []string
	for _, rec := range records {
		labels = append(labels, models.KeyLine(sc, rec.Fields))
		callbacks = append(callbacks, encodeKey("enote", sc, rec.Fields))
	}

	e.sessions.PushState(ev.UserID, StateSelectingNoteTarget)
	e.send(ctx, ev.ChatID, "Pick the record whose note to change:", navigationKeyboard())
	e.send(ctx, ev.ChatID, "Records:", inlineList(labels, callbacks))
	return nil
}

// startQuantityEdit lists the quantity-tracked records for selection.
func (e *Engine) startQuantityEdit(ctx context.Context, ev models.Event) error {
	sc, ok := e.quantitySchema()
	if !ok {
		e.send(ctx, ev.ChatID, "No item type tracks a quantity.", removeKeyboard())
		return e.showMainMenu(ctx, ev)
	}
	e.sessions.SetField(ev.UserID, scratchItemType, sc.Name)

	records, err := e.ledger.List(ctx, sc)
	if err != nil {
		e.logger.Error("record list failed", zap.String("sheet", sc.SheetName), zap.Error(err))
		e.send(ctx, ev.ChatID, "Failed to load the records.", removeKeyboard())
		return e.showMainMenu(ctx, ev)
	}
	if len(records) == 0 {
		e.send(ctx, ev.ChatID, fmt.Sprintf("No %s records to edit.", sc.Name), removeKeyboard())
		return e.showMainMenu(ctx, ev)
	}

	var labels, callbacks []string
	for _, rec := range records {
		labels = append(labels, fmt.Sprintf("%s (Stock: %d)", models.KeyLine(sc, rec.Fields), rec.Quantity(sc.QuantityField)))
		callbacks = append(callbacks, encodeKey("eqty", sc, rec.Fields))
	}

	e.sessions.PushState(ev.UserID, StateSelectingQuantityTarget)
	e.send(ctx, ev.ChatID, "Pick the record whose quantity to change:", navigationKeyboard())
	e.send(ctx, ev.ChatID, "Records:", inlineList(labels, callbacks))
	return nil
}

// quantitySchema returns the registered type that tracks stock counts.
func (e *Engine) quantitySchema() (schema.ItemTypeSchema, bool) {
	for _, name := range e.registry.Types() {
		sc, err := e.registry.SchemaFor(name)
		if err == nil && sc.HasQuantity() {
			return sc, true
		}
	}
	return schema.ItemTypeSchema{}, false
}

func (e *Engine) handleNewNote(ctx context.Context, ev models.Event, text string) error {
	if text == "" {
		e.send(ctx, ev.ChatID, "The note cannot be empty, please type one (or \"-\" to clear it).", navigationKeyboard())
		return nil
	}
	e.sessions.SetField(ev.UserID, scratchNewNote, text)
	e.sessions.PushState(ev.UserID, StateConfirmingNote)

	oldNote := e.sessions.GetField(ev.UserID, scratchOldNote)
	detail := e.sessions.GetField(ev.UserID, scratchDetail)
	msg := fmt.Sprintf("Confirm note change\n\n%s\n- Old note: %s\n- New note: %s\n\nApply the change?",
		models.Bullets(detail), orPlaceholder(oldNote), text)
	e.send(ctx, ev.ChatID, msg, confirmKeyboard(ConfirmUpdate))
	return nil
}

func (e *Engine) handleNoteConfirmation(ctx context.Context, ev models.Event, text string) error {
	if text != ConfirmUpdate {
		e.send(ctx, ev.ChatID, "Edit cancelled, nothing was changed.", removeKeyboard())
		return e.showMainMenu(ctx, ev)
	}
	sc, ok := e.schemaFromScratch(ev.UserID)
	if !ok {
		return e.showMainMenu(ctx, ev)
	}

	row := e.sessions.GetInt(ev.UserID, scratchRow)
	detail := e.sessions.GetField(ev.UserID, scratchDetail)
	oldNote := e.sessions.GetField(ev.UserID, scratchOldNote)
	newNote := e.sessions.GetField(ev.UserID, scratchNewNote)

	if err := e.ledger.UpdateField(ctx, sc, row, schema.ColNote, newNote); err != nil {
		e.logger.Error("note update failed", zap.String("sheet", sc.SheetName), zap.Int("row", row), zap.Error(err))
		e.send(ctx, ev.ChatID, "Failed to update the note.", removeKeyboard())
		return e.showMainMenu(ctx, ev)
	}

	e.recordChange(ctx, ev, models.ActionUpdate, sc.SheetName, detail,
		fmt.Sprintf("Note changed from %q to %q", orPlaceholder(oldNote), newNote))
	e.send(ctx, ev.ChatID, "Note updated.", removeKeyboard())
	return e.showMainMenu(ctx, ev)
}

func (e *Engine) handleNewQuantity(ctx context.Context, ev models.Event, text string) error {
	if !isDigits(text) {
		e.send(ctx, ev.ChatID, "Please send a number (digits only).", cancelOnlyKeyboard())
		return nil
	}
	e.sessions.SetField(ev.UserID, scratchNewQuantity, text)
	e.sessions.PushState(ev.UserID, StateConfirmingQuantity)

	detail := e.sessions.GetField(ev.UserID, scratchDetail)
	oldQty := e.sessions.GetField(ev.UserID, scratchOldQuantity)
	msg := fmt.Sprintf("Confirm quantity change\n\n%s\n- Old quantity: %s\n- New quantity: %s\n\nApply the change?",
		models.Bullets(detail), oldQty, text)
	e.send(ctx, ev.ChatID, msg, confirmKeyboard(ConfirmUpdate))
	return nil
}

func (e *Engine) handleQuantityConfirmation(ctx context.Context, ev models.Event, text string) error {
	if text != ConfirmUpdate {
		e.send(ctx, ev.ChatID, "Edit cancelled, nothing was changed.", removeKeyboard())
		return e.showMainMenu(ctx, ev)
	}
	sc, ok := e.schemaFromScratch(ev.UserID)
	if !ok {
		return e.showMainMenu(ctx, ev)
	}

	row := e.sessions.GetInt(ev.UserID, scratchRow)
	detail := e.sessions.GetField(ev.UserID, scratchDetail)
	oldQty := e.sessions.GetField(ev.UserID, scratchOldQuantity)
	newQty := e.sessions.GetField(ev.UserID, scratchNewQuantity)

	if err := e.ledger.UpdateField(ctx, sc, row, sc.QuantityField, newQty); err != nil {
		e.logger.Error("quantity update failed", zap.String("sheet", sc.SheetName), zap.Int("row", row), zap.Error(err))
		e.send(ctx, ev.ChatID, "Failed to update the quantity.", removeKeyboard())
		return e.showMainMenu(ctx, ev)
	}

	e.recordChange(ctx, ev, models.ActionUpdate, sc.SheetName, detail,
		fmt.Sprintf("Quantity changed from %s to %s", oldQty, newQty))
	e.send(ctx, ev.ChatID, "Quantity updated.", removeKeyboard())
	return e.showMainMenu(ctx, ev)
}

func orPlaceholder(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

// encodeKey packs an inline-button callback: action, type name, then the
// natural key fields in schema order, pipe-separated.
func encodeKey(action string, sc schema.ItemTypeSchema, fields map[string]string) string {
	parts := []string{action, sc.Name}
	for _, field := range sc.NaturalKey {
		parts = append(parts, fields[field])
	}
	return strings.Join(parts, "|")
}

// decodeKey is the inverse of encodeKey for the key fields.
func decodeKey(sc schema.ItemTypeSchema, parts []string) (map[string]string, bool) {
	if len(parts) != len(sc.NaturalKey) {
		return nil, false
	}
	key := make(map[string]string, len(parts))
	for i, field := range sc.NaturalKey {
		key[field] = parts[i]
	}
	return key, true
}
