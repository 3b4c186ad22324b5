package wizard

import (
	"context"

	"github.com/dimasfr/gudangbot/internal/domain/models"
)

// handleBack steps the session backwards. Anchor states in backTargets jump
// straight to their menu; mid-question states rewind one question; everything
// else pops the stack and re-prompts whatever state is now on top.
func (e *Engine) handleBack(ctx context.Context, ev models.Event) error {
	state := e.sessions.CurrentState(ev.UserID)

	if target, ok := backTargets[state]; ok {
		if target == StateIdle {
			return e.showMainMenu(ctx, ev)
		}
		e.sessions.Reset(ev.UserID, target)
		return e.promptFor(ctx, ev, target)
	}

	switch state {
	case StateAskingStep:
		if i := e.sessions.GetInt(ev.UserID, scratchStepIndex); i > 0 {
			e.sessions.SetInt(ev.UserID, scratchStepIndex, i-1)
			return e.askNextStep(ctx, ev)
		}
		return e.showMainMenu(ctx, ev)
	case StateAskingDeleteKey:
		if i := e.sessions.GetInt(ev.UserID, scratchKeyStep); i > 0 {
			e.sessions.SetInt(ev.UserID, scratchKeyStep, i-1)
			return e.askDeleteKeyStep(ctx, ev)
		}
	}

	if _, ok := e.sessions.PopState(ev.UserID); !ok {
		return e.showMainMenu(ctx, ev)
	}
	return e.promptFor(ctx, ev, e.sessions.CurrentState(ev.UserID))
}

// promptFor re-renders the prompt for a state reached by going back. States
// whose prompts depend on discarded context fall through to the main menu.
func (e *Engine) promptFor(ctx context.Context, ev models.Event, state State) error {
	switch state {
	case StateSelectingType:
		e.send(ctx, ev.ChatID, "Step 1: pick the item type", optionsKeyboard(e.registry.Types()))
	case StateSelectingDeleteType:
		e.send(ctx, ev.ChatID, "Pick the item type of the record to delete:", optionsKeyboard(e.registry.Types()))
	case StateEditMenu:
		e.send(ctx, ev.ChatID, "Pick the kind of change:", editMenuKeyboard())
	case StateConsumeMenu:
		e.send(ctx, ev.ChatID, "Pick a consumption action:", consumeMenuKeyboard())
	case StateSelectingNoteType:
		e.send(ctx, ev.ChatID, "Pick the item type to edit:", optionsKeyboard(e.registry.Types()))
	case StateSelectingConsumeType:
		e.send(ctx, ev.ChatID, "Pick the item type to take:", optionsKeyboard(e.registry.Types()))
	default:
		return e.showMainMenu(ctx, ev)
	}
	return nil
}
