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

// handleCallback routes inline-button presses. Callback data is
// pipe-separated: the action, the item type, then action-specific parts.
func (e *Engine) handleCallback(ctx context.Context, ev models.Event) error {
	parts := strings.Split(ev.Button, "|")
	switch parts[0] {
	case "recap":
		return e.handleRecapCallback(ctx, ev, parts[1:])
	case "enote":
		return e.handleNoteTargetCallback(ctx, ev, parts[1:])
	case "eqty":
		return e.handleQuantityTargetCallback(ctx, ev, parts[1:])
	case "cdet":
		return e.handleConsumeDetailCallback(ctx, ev, parts[1:])
	case "csn":
		return e.handleConsumeSerialCallback(ctx, ev, parts[1:])
	case "ctake":
		return e.handleConsumeTakeCallback(ctx, ev, parts[1:])
	}
	e.logger.Warn("unknown callback", zap.String("data", ev.Button))
	return nil
}

// handleRecapCallback swaps the recap message in place per selected type.
func (e *Engine) handleRecapCallback(ctx context.Context, ev models.Event, parts []string) error {
	if len(parts) != 1 {
		return nil
	}
	if parts[0] == "close" {
		if err := e.bot.DeleteMessage(ctx, ev.ChatID, ev.MessageID); err != nil {
			e.logger.Warn("failed to close recap", zap.Error(err))
		}
		return nil
	}

	sc, err := e.registry.SchemaFor(parts[0])
	if err != nil {
		return nil
	}
	text, err := e.recap.StockRecap(ctx, sc)
	if err != nil {
		e.logger.Error("stock recap failed", zap.String("sheet", sc.SheetName), zap.Error(err))
		text = "Failed to build the recap."
	}
	if err := e.bot.EditText(ctx, ev.ChatID, ev.MessageID, text, e.recapTypeKeyboard()); err != nil {
		e.logger.Warn("failed to update recap message", zap.Error(err))
	}
	return nil
}

// targetFromCallback resolves the record an edit/consume button points at.
// The lookup re-reads the sheet so a stale list cannot select a moved row.
func (e *Engine) targetFromCallback(ctx context.Context, ev models.Event, parts []string) (schema.ItemTypeSchema, models.Record, bool) {
	if len(parts) < 2 {
		return schema.ItemTypeSchema{}, models.Record{}, false
	}
	sc, err := e.registry.SchemaFor(parts[0])
	if err != nil {
		return schema.ItemTypeSchema{}, models.Record{}, false
	}
	key, ok := decodeKey(sc, parts[1:])
	if !ok {
		return schema.ItemTypeSchema{}, models.Record{}, false
	}

	rec, err := e.ledger.FindByKey(ctx, sc, key)
	if errors.Is(err, ledger.ErrNotFound) {
		e.send(ctx, ev.ChatID, "That record no longer exists.", removeKeyboard())
		_ = e.showMainMenu(ctx, ev)
		return schema.ItemTypeSchema{}, models.Record{}, false
	}
	if err != nil {
		e.logger.Error("target lookup failed", zap.String("sheet", sc.SheetName), zap.Error(err))
		e.send(ctx, ev.ChatID, "Failed to look the record up.", removeKeyboard())
		_ = e.showMainMenu(ctx, ev)
		return schema.ItemTypeSchema{}, models.Record{}, false
	}
	return sc, rec, true
}

// stashTarget records the selected row in the session and removes the now
// stale selection list from the chat.
func (e *Engine) stashTarget(ctx context.Context, ev models.Event, sc schema.ItemTypeSchema, rec models.Record) {
	e.sessions.SetField(ev.UserID, scratchItemType, sc.Name)
	e.sessions.SetInt(ev.UserID, scratchRow, rec.Row)
	e.sessions.SetField(ev.UserID, scratchDetail, models.KeyLine(sc, rec.Fields))
	e.sessions.SetField(ev.UserID, scratchItemNote, rec.Get(schema.ColNote))
	e.storeScratchKey(ev.UserID, sc, rec.Fields)

	if err := e.bot.DeleteMessage(ctx, ev.ChatID, ev.MessageID); err != nil {
		e.logger.Warn("failed to remove selection list", zap.Error(err))
	}
}

func (e *Engine) handleNoteTargetCallback(ctx context.Context, ev models.Event, parts []string) error {
	sc, rec, ok := e.targetFromCallback(ctx, ev, parts)
	if !ok {
		return nil
	}
	e.stashTarget(ctx, ev, sc, rec)
	e.sessions.SetField(ev.UserID, scratchOldNote, rec.Get(schema.ColNote))
	e.sessions.PushState(ev.UserID, StateAskingNewNote)

	msg := fmt.Sprintf("%s\nCurrent note: %s\n\nSend the new note:",
		models.Bullets(models.KeyLine(sc, rec.Fields)), orPlaceholder(rec.Get(schema.ColNote)))
	e.send(ctx, ev.ChatID, msg, navigationKeyboard())
	return nil
}

func (e *Engine) handleQuantityTargetCallback(ctx context.Context, ev models.Event, parts []string) error {
	sc, rec, ok := e.targetFromCallback(ctx, ev, parts)
	if !ok {
		return nil
	}
	e.stashTarget(ctx, ev, sc, rec)
	qty := rec.Quantity(sc.QuantityField)
	e.sessions.SetInt(ev.UserID, scratchOldQuantity, qty)
	e.sessions.PushState(ev.UserID, StateAskingNewQuantity)

	msg := fmt.Sprintf("%s\nCurrent quantity: %d\n\nSend the new quantity (digits only):",
		models.Bullets(models.KeyLine(sc, rec.Fields)), qty)
	e.send(ctx, ev.ChatID, msg, cancelOnlyKeyboard())
	return nil
}

// handleConsumeDetailCallback lists the serialized units of one detail value.
func (e *Engine) handleConsumeDetailCallback(ctx context.Context, ev models.Event, parts []string) error {
	if len(parts) != 2 {
		return nil
	}
	sc, err := e.registry.SchemaFor(parts[0])
	if err != nil {
		return nil
	}
	detail := parts[1]

	records, err := e.ledger.List(ctx, sc)
	if err != nil {
		e.logger.Error("record list failed", zap.String("sheet", sc.SheetName), zap.Error(err))
		e.send(ctx, ev.ChatID, "Failed to load the records.", removeKeyboard())
		return e.showMainMenu(ctx, ev)
	}

	var labels, callbacks []string
	for _, rec := range records {
		if rec.Get(schema.ColDetail) != detail {
			continue
		}
		sn := rec.Get(schema.ColSerial)
		labels = append(labels, "SN: "+sn)
		callbacks = append(callbacks, "csn|"+sc.Name+"|"+sn)
	}
	if len(labels) == 0 {
		e.send(ctx, ev.ChatID, fmt.Sprintf("No %s units of %s in stock.", sc.Name, detail), removeKeyboard())
		return e.showMainMenu(ctx, ev)
	}

	if err := e.bot.DeleteMessage(ctx, ev.ChatID, ev.MessageID); err != nil {
		e.logger.Warn("failed to remove selection list", zap.Error(err))
	}
	e.sessions.SetField(ev.UserID, scratchItemType, sc.Name)
	e.sessions.PushState(ev.UserID, StateSelectingConsumeTarget)
	e.send(ctx, ev.ChatID, "Pick the unit to take:", navigationKeyboard())
	e.send(ctx, ev.ChatID, "Units:", inlineList(labels, callbacks))
	return nil
}

// handleConsumeSerialCallback selects a serialized unit and asks the reason;
// serialized takes are always a single unit, so no amount question.
func (e *Engine) handleConsumeSerialCallback(ctx context.Context, ev models.Event, parts []string) error {
	sc, rec, ok := e.targetFromCallback(ctx, ev, parts)
	if !ok {
		return nil
	}
	e.stashTarget(ctx, ev, sc, rec)
	e.sessions.SetField(ev.UserID, scratchSerial, rec.Get(schema.ColSerial))
	e.sessions.PushState(ev.UserID, StateAskingConsumeReason)
	e.send(ctx, ev.ChatID, "Enter the consumption reason (project, ticket, location...):", navigationKeyboard())
	return nil
}

func (e *Engine) handleConsumeTakeCallback(ctx context.Context, ev models.Event, parts []string) error {
	sc, rec, ok := e.targetFromCallback(ctx, ev, parts)
	if !ok {
		return nil
	}
	e.stashTarget(ctx, ev, sc, rec)
	e.sessions.PushState(ev.UserID, StateAskingConsumeQuantity)
	e.send(ctx, ev.ChatID,
		fmt.Sprintf("Enter the amount to take (available: %d):", rec.Quantity(sc.QuantityField)),
		navigationKeyboard())
	return nil
}
