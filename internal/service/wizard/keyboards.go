package wizard

import (
	"github.com/dimasfr/gudangbot/pkg/clients/telegram"
)

// Main menu and sub-menu button labels. Choice validation compares inbound
// text against these verbatim.
const (
	BtnInput       = "Add Stock"
	BtnRecap       = "Stock Recap"
	BtnDelete      = "Delete Record"
	BtnEdit        = "Edit Record"
	BtnLog         = "Change History"
	BtnConsumption = "Consumption"
	BtnBack        = "Back"
	BtnCancel      = "Cancel"

	BtnTakeItem       = "Take Item"
	BtnConsumptionLog = "Consumption Log"

	OptEditNote     = "Edit Note"
	OptEditQuantity = "Edit Quantity"

	ConfirmSave   = "Save"
	ConfirmDelete = "Delete"
	ConfirmUpdate = "Update"
	ConfirmTake   = "Take"

	BtnYesAddQuantity = "Yes, add to stock"
	BtnNoCancelInput  = "No, cancel input"
)

func mainMenuKeyboard() telegram.ReplyKeyboardMarkup {
	return telegram.ReplyKeyboardMarkup{
		Keyboard: [][]telegram.KeyboardButton{
			{{Text: BtnInput}},
			{{Text: BtnRecap}},
			{{Text: BtnDelete}, {Text: BtnEdit}},
			{{Text: BtnConsumption}},
			{{Text: BtnLog}},
		},
		ResizeKeyboard: true,
	}
}

func consumeMenuKeyboard() telegram.ReplyKeyboardMarkup {
	return telegram.ReplyKeyboardMarkup{
		Keyboard: [][]telegram.KeyboardButton{
			{{Text: BtnTakeItem}},
			{{Text: BtnConsumptionLog}},
			{{Text: BtnBack}},
		},
		ResizeKeyboard: true,
	}
}

func editMenuKeyboard() telegram.ReplyKeyboardMarkup {
	return telegram.ReplyKeyboardMarkup{
		Keyboard: [][]telegram.KeyboardButton{
			{{Text: OptEditNote}},
			{{Text: OptEditQuantity}},
			{{Text: BtnBack}},
		},
		ResizeKeyboard: true,
	}
}

func navigationKeyboard() telegram.ReplyKeyboardMarkup {
	return telegram.ReplyKeyboardMarkup{
		Keyboard:       [][]telegram.KeyboardButton{{{Text: BtnBack}, {Text: BtnCancel}}},
		ResizeKeyboard: true,
	}
}

func cancelOnlyKeyboard() telegram.ReplyKeyboardMarkup {
	return telegram.ReplyKeyboardMarkup{
		Keyboard:       [][]telegram.KeyboardButton{{{Text: BtnCancel}}},
		ResizeKeyboard: true,
	}
}

// confirmKeyboard pairs the single affirmative token for the pending
// operation with Cancel.
func confirmKeyboard(label string) telegram.ReplyKeyboardMarkup {
	return telegram.ReplyKeyboardMarkup{
		Keyboard:       [][]telegram.KeyboardButton{{{Text: label}, {Text: BtnCancel}}},
		ResizeKeyboard: true,
	}
}

func duplicateKeyboard() telegram.ReplyKeyboardMarkup {
	return telegram.ReplyKeyboardMarkup{
		Keyboard: [][]telegram.KeyboardButton{
			{{Text: BtnYesAddQuantity}},
			{{Text: BtnNoCancelInput}},
		},
		ResizeKeyboard: true,
	}
}

// optionsKeyboard lays out choice options two per row, with a navigation
// row underneath.
func optionsKeyboard(options []string) telegram.ReplyKeyboardMarkup {
	var rows [][]telegram.KeyboardButton
	for i := 0; i < len(options); i += 2 {
		row := []telegram.KeyboardButton{{Text: options[i]}}
		if i+1 < len(options) {
			row = append(row, telegram.KeyboardButton{Text: options[i+1]})
		}
		rows = append(rows, row)
	}
	rows = append(rows, []telegram.KeyboardButton{{Text: BtnBack}, {Text: BtnCancel}})
	return telegram.ReplyKeyboardMarkup{Keyboard: rows, ResizeKeyboard: true}
}

// inlineList builds a one-button-per-row inline keyboard from parallel
// label/callback slices.
func inlineList(labels, callbacks []string) *telegram.InlineKeyboardMarkup {
	rows := make([][]telegram.InlineKeyboardButton, 0, len(labels))
	for i := range labels {
		rows = append(rows, []telegram.InlineKeyboardButton{{Text: labels[i], CallbackData: callbacks[i]}})
	}
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func removeKeyboard() telegram.ReplyKeyboardRemove {
	return telegram.ReplyKeyboardRemove{RemoveKeyboard: true}
}
