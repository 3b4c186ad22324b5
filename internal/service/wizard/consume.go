package wizard

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/dimasfr/gudangbot/internal/domain/models"
	"github.com/dimasfr/gudangbot/internal/domain/schema"
	"github.com/dimasfr/gudangbot/internal/service/ledger"
	"github.com/dimasfr/gudangbot/internal/service/recap"
)

func (e *Engine) handleConsumeMenu(ctx context.Context, ev models.Event, text string) error {
	switch text {
	case BtnTakeItem:
		e.sessions.PushState(ev.UserID, StateSelectingConsumeType)
		e.send(ctx, ev.ChatID, "Pick the item type to take:", optionsKeyboard(e.registry.Types()))
		return nil
	case BtnConsumptionLog:
		entries, err := e.recorder.RecentConsumptions(ctx, recentLogEntries)
		if err != nil {
			e.logger.Error("failed to load consumption log", zap.Error(err))
			e.send(ctx, ev.ChatID, "Failed to load the consumption log.", mainMenuKeyboard())
			return nil
		}
		e.sessions.Clear(ev.UserID)
		e.send(ctx, ev.ChatID, recap.RenderConsumptionLog(entries), mainMenuKeyboard())
		return nil
	}
	e.send(ctx, ev.ChatID, "Pick a consumption action:", consumeMenuKeyboard())
	return nil
}

// handleConsumeTypeSelection branches by accounting model: quantity-tracked
// types get a stocked-record list, serialized types get a detail filter
// first so the SN list stays short.
func (e *Engine) handleConsumeTypeSelection(ctx context.Context, ev models.Event, text string) error {
	sc, err := e.registry.SchemaFor(text)
	if err != nil {
		e.send(ctx, ev.ChatID, "Unknown item type, pick one from the keyboard.", optionsKeyboard(e.registry.Types()))
		return nil
	}
	e.sessions.SetField(ev.UserID, scratchItemType, sc.Name)

	if sc.HasQuantity() {
		return e.listConsumeTargets(ctx, ev, sc)
	}

	details := sc.Steps[0].Options
	var callbacks []string
	for _, d := range details {
		callbacks = append(callbacks, "cdet|"+sc.Name+"|"+d)
	}
	e.sessions.PushState(ev.UserID, StateSelectingConsumeDetail)
	e.send(ctx, ev.ChatID, "Pick the detail type:", navigationKeyboard())
	e.send(ctx, ev.ChatID, "Details:", inlineList(details, callbacks))
	return nil
}

// listConsumeTargets shows quantity-tracked records that still have stock.
func (e *Engine) listConsumeTargets(ctx context.Context, ev models.Event, sc schema.ItemTypeSchema) error {
	records, err := e.ledger.List(ctx, sc)
	if err != nil {
		e.logger.Error("record list failed", zap.String("sheet", sc.SheetName), zap.Error(err))
		e.send(ctx, ev.ChatID, "Failed to load the records.", removeKeyboard())
		return e.showMainMenu(ctx, ev)
	}

	var labels, callbacks []string
	for _, rec := range records {
		qty := rec.Quantity(sc.QuantityField)
		if qty <= 0 {
			continue
		}
		labels = append(labels, fmt.Sprintf("%s (Stock: %d)", models.KeyLine(sc, rec.Fields), qty))
		callbacks = append(callbacks, encodeKey("ctake", sc, rec.Fields))
	}
	if len(labels) == 0 {
		e.send(ctx, ev.ChatID, fmt.Sprintf("No %s stock available.", sc.Name), removeKeyboard())
		return e.showMainMenu(ctx, ev)
	}

	e.sessions.PushState(ev.UserID, StateSelectingConsumeTarget)
	e.send(ctx, ev.ChatID, "Pick the item to take:", navigationKeyboard())
	e.send(ctx, ev.ChatID, "Items:", inlineList(labels, callbacks))
	return nil
}

func (e *Engine) handleConsumeQuantity(ctx context.Context, ev models.Event, text string) error {
	if !isDigits(text) {
		e.send(ctx, ev.ChatID, "Please send a number (digits only).", navigationKeyboard())
		return nil
	}
	amount, _ := strconv.Atoi(text)
	if amount <= 0 {
		e.send(ctx, ev.ChatID, "The amount must be greater than zero.", navigationKeyboard())
		return nil
	}

	sc, ok := e.schemaFromScratch(ev.UserID)
	if !ok {
		return e.showMainMenu(ctx, ev)
	}

	rec, err := e.ledger.FindByKey(ctx, sc, e.scratchKey(ev.UserID, sc))
	if errors.Is(err, ledger.ErrNotFound) {
		e.send(ctx, ev.ChatID, "The item is gone, it may have been taken by another user.", removeKeyboard())
		return e.showMainMenu(ctx, ev)
	}
	if err != nil {
		e.logger.Error("consume lookup failed", zap.String("sheet", sc.SheetName), zap.Error(err))
		e.send(ctx, ev.ChatID, "Failed to look the item up.", removeKeyboard())
		return e.showMainMenu(ctx, ev)
	}
	if avail := rec.Quantity(sc.QuantityField); amount > avail {
		e.send(ctx, ev.ChatID, fmt.Sprintf("Not enough stock. Available: %d", avail), navigationKeyboard())
		return nil
	}

	e.sessions.SetInt(ev.UserID, scratchTakeAmount, amount)
	e.sessions.PushState(ev.UserID, StateAskingConsumeReason)
	e.send(ctx, ev.ChatID, "Enter the consumption reason (project, ticket, location...):", navigationKeyboard())
	return nil
}

func (e *Engine) handleConsumeReason(ctx context.Context, ev models.Event, text string) error {
	if text == "" {
		e.send(ctx, ev.ChatID, "The reason cannot be empty, please type one.", navigationKeyboard())
		return nil
	}
	sc, ok := e.schemaFromScratch(ev.UserID)
	if !ok {
		return e.showMainMenu(ctx, ev)
	}
	e.sessions.SetField(ev.UserID, scratchTakeReason, text)
	e.sessions.PushState(ev.UserID, StateConfirmingConsume)

	detail := e.sessions.GetField(ev.UserID, scratchDetail)
	summary := detail
	if sc.HasQuantity() {
		summary += fmt.Sprintf(" | Taken: %d", e.sessions.GetInt(ev.UserID, scratchTakeAmount))
	}
	summary += " | Reason: " + text

	msg := fmt.Sprintf("Confirm take - %s\n\n%s\n\nProceed?", sc.Name, models.Bullets(summary))
	e.send(ctx, ev.ChatID, msg, confirmKeyboard(ConfirmTake))
	return nil
}

func (e *Engine) handleConsumeConfirmation(ctx context.Context, ev models.Event, text string) error {
	if text != ConfirmTake {
		e.send(ctx, ev.ChatID, "Take cancelled, nothing was changed.", removeKeyboard())
		return e.showMainMenu(ctx, ev)
	}
	sc, ok := e.schemaFromScratch(ev.UserID)
	if !ok {
		return e.showMainMenu(ctx, ev)
	}
	e.send(ctx, ev.ChatID, "Processing the take...", removeKeyboard())
	if sc.HasQuantity() {
		return e.commitQuantityConsume(ctx, ev, sc)
	}
	return e.commitSerialConsume(ctx, ev, sc)
}

// commitQuantityConsume decrements stock through the read-verify-write path
// so a concurrent take cannot push the count below zero.
func (e *Engine) commitQuantityConsume(ctx context.Context, ev models.Event, sc schema.ItemTypeSchema) error {
	amount := e.sessions.GetInt(ev.UserID, scratchTakeAmount)
	detail := e.sessions.GetField(ev.UserID, scratchDetail)
	itemNote := e.sessions.GetField(ev.UserID, scratchItemNote)
	reason := e.sessions.GetField(ev.UserID, scratchTakeReason)

	newQty, err := e.ledger.AdjustQuantity(ctx, sc, e.scratchKey(ev.UserID, sc), -amount)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			e.send(ctx, ev.ChatID, "The item is gone, it may have been taken by another user.", removeKeyboard())
		case errors.Is(err, ledger.ErrInsufficientStock):
			e.send(ctx, ev.ChatID, "The stock is no longer sufficient, nothing was taken.", removeKeyboard())
		default:
			e.logger.Error("stock take failed", zap.String("sheet", sc.SheetName), zap.Error(err))
			e.send(ctx, ev.ChatID, "Failed to process the take.", removeKeyboard())
		}
		return e.showMainMenu(ctx, ev)
	}

	e.recordChange(ctx, ev, models.ActionUpdate, sc.SheetName, detail,
		fmt.Sprintf("Took %d (from %d to %d)", amount, newQty+amount, newQty))
	e.recordConsumption(ctx, ev, sc.Name, detail, amount, itemNote, reason)

	e.send(ctx, ev.ChatID, fmt.Sprintf("Item taken and logged. Remaining stock: %d", newQty), removeKeyboard())
	return e.showMainMenu(ctx, ev)
}

// commitSerialConsume removes a serialized unit outright: taking it is the
// same as deleting its row, so the row position is re-read at commit time.
func (e *Engine) commitSerialConsume(ctx context.Context, ev models.Event, sc schema.ItemTypeSchema) error {
	serial := e.sessions.GetField(ev.UserID, scratchSerial)
	detail := e.sessions.GetField(ev.UserID, scratchDetail)
	itemNote := e.sessions.GetField(ev.UserID, scratchItemNote)
	reason := e.sessions.GetField(ev.UserID, scratchTakeReason)

	rec, err := e.ledger.FindBySerial(ctx, sc, serial)
	if errors.Is(err, ledger.ErrNotFound) {
		e.send(ctx, ev.ChatID, "SN not found, it may have been taken by another user.", removeKeyboard())
		return e.showMainMenu(ctx, ev)
	}
	if err != nil {
		e.logger.Error("serial lookup failed", zap.String("sheet", sc.SheetName), zap.Error(err))
		e.send(ctx, ev.ChatID, "Failed to look the item up.", removeKeyboard())
		return e.showMainMenu(ctx, ev)
	}

	if err := e.ledger.Delete(ctx, sc, rec.Row); err != nil {
		e.logger.Error("row delete failed", zap.String("sheet", sc.SheetName), zap.Int("row", rec.Row), zap.Error(err))
		e.send(ctx, ev.ChatID, "Failed to process the take.", removeKeyboard())
		return e.showMainMenu(ctx, ev)
	}

	e.recordChange(ctx, ev, models.ActionDelete, sc.SheetName, detail, "Taken: "+reason)
	e.recordConsumption(ctx, ev, sc.Name, detail, 1, itemNote, reason)

	e.send(ctx, ev.ChatID, "Item taken and logged.", removeKeyboard())
	return e.showMainMenu(ctx, ev)
}

func (e *Engine) recordConsumption(ctx context.Context, ev models.Event, itemType, detail string, qty int, itemNote, reason string) {
	entry := models.ConsumptionLogEntry{
		UserID:   ev.UserID,
		Username: ev.Username,
		ItemType: itemType,
		Detail:   detail,
		Quantity: qty,
		ItemNote: itemNote,
		Reason:   reason,
	}
	if err := e.recorder.RecordConsumption(ctx, entry); err != nil {
		e.logger.Error("consumption append failed", zap.String("item_type", itemType), zap.Error(err))
	}
}
