package wizard

// State is the closed set of conversation positions. The current state is
// the top of the session's stack; all transitions and back/cancel rules are
// expressed against this enumeration, never against free-form tags.
type State int

const (
	// StateIdle is the main menu; the session carries no in-flight work.
	StateIdle State = iota

	// Create flow.
	StateSelectingType
	StateAskingStep
	StateDuplicateDecision
	StateDuplicateAddQuantity
	StateConfirmingCreate

	// Delete flow.
	StateSelectingDeleteType
	StateAskingDeleteSerial
	StateAskingDeleteKey
	StateConfirmingDelete

	// Edit flows.
	StateEditMenu
	StateSelectingNoteType
	StateSelectingNoteTarget
	StateAskingNewNote
	StateConfirmingNote
	StateSelectingQuantityTarget
	StateAskingNewQuantity
	StateConfirmingQuantity

	// Consume flows.
	StateConsumeMenu
	StateSelectingConsumeType
	StateSelectingConsumeDetail
	StateSelectingConsumeTarget
	StateAskingConsumeQuantity
	StateAskingConsumeReason
	StateConfirmingConsume
)

var stateNames = map[State]string{
	StateIdle:                    "idle",
	StateSelectingType:           "selecting_type",
	StateAskingStep:              "asking_step",
	StateDuplicateDecision:       "duplicate_decision",
	StateDuplicateAddQuantity:    "duplicate_add_quantity",
	StateConfirmingCreate:        "confirming_create",
	StateSelectingDeleteType:     "selecting_delete_type",
	StateAskingDeleteSerial:      "asking_delete_serial",
	StateAskingDeleteKey:         "asking_delete_key",
	StateConfirmingDelete:        "confirming_delete",
	StateEditMenu:                "edit_menu",
	StateSelectingNoteType:       "selecting_note_type",
	StateSelectingNoteTarget:     "selecting_note_target",
	StateAskingNewNote:           "asking_new_note",
	StateConfirmingNote:          "confirming_note",
	StateSelectingQuantityTarget: "selecting_quantity_target",
	StateAskingNewQuantity:       "asking_new_quantity",
	StateConfirmingQuantity:      "confirming_quantity",
	StateConsumeMenu:             "consume_menu",
	StateSelectingConsumeType:    "selecting_consume_type",
	StateSelectingConsumeDetail:  "selecting_consume_detail",
	StateSelectingConsumeTarget:  "selecting_consume_target",
	StateAskingConsumeQuantity:   "asking_consume_quantity",
	StateAskingConsumeReason:     "asking_consume_reason",
	StateConfirmingConsume:       "confirming_consume",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// backTargets is the explicit lookup table for "back" destinations that are
// not a plain stack pop. Target-selection micro-states are not meant to be
// re-entered individually, so popping out of them jumps to the owning
// submenu instead of the literal predecessor.
var backTargets = map[State]State{
	StateSelectingNoteType:       StateEditMenu,
	StateSelectingNoteTarget:     StateEditMenu,
	StateSelectingQuantityTarget: StateEditMenu,

	StateSelectingConsumeType:   StateConsumeMenu,
	StateSelectingConsumeDetail: StateConsumeMenu,
	StateSelectingConsumeTarget: StateConsumeMenu,

	StateEditMenu:    StateIdle,
	StateConsumeMenu: StateIdle,
}
