package sequencer

import "time"

// Event is an input to Transition: a visitor action or a timer expiry.
type Event interface{ isEvent() }

// Start leaves the gate. Sound records the visitor's volume choice.
type Start struct{ Sound bool }

// Key types one character into the focused slot.
type Key struct{ Char rune }

// Backspace erases per Buffer.Erase.
type Backspace struct{}

// Paste distributes text from the focused slot onward.
type Paste struct{ Text string }

// Focus moves the cursor to a slot.
type Focus struct{ Slot int }

// Respond is the single action offered in the done phase.
type Respond struct{}

// Tick is a timer expiry for a step scheduled in Epoch.
type Tick struct {
	Epoch uint64
	Step  Step
}

// NotifyResult reports the outcome of the notification started by Respond.
type NotifyResult struct{ Err error }

func (Start) isEvent()        {}
func (Key) isEvent()          {}
func (Backspace) isEvent()    {}
func (Paste) isEvent()        {}
func (Focus) isEvent()        {}
func (Respond) isEvent()      {}
func (Tick) isEvent()         {}
func (NotifyResult) isEvent() {}

// Action names what a scheduled step does when it fires.
type Action int

const (
	ActionUnbounce Action = iota
	ActionHideShake
	ActionEnterSuccess
	ActionFlashOn
	ActionFlashOff
	ActionFadeBorders
	ActionCollapse
	ActionTypeChar
	ActionEnterWipe
	ActionWipeDone
	ActionHighlight
	ActionShowcaseDone
	ActionShowWord
	ActionFinish
)

var actionNames = [...]string{
	ActionUnbounce:     "unbounce",
	ActionHideShake:    "hide-shake",
	ActionEnterSuccess: "enter-success",
	ActionFlashOn:      "flash-on",
	ActionFlashOff:     "flash-off",
	ActionFadeBorders:  "fade-borders",
	ActionCollapse:     "collapse",
	ActionTypeChar:     "type-char",
	ActionEnterWipe:    "enter-wipe",
	ActionWipeDone:     "wipe-done",
	ActionHighlight:    "highlight",
	ActionShowcaseDone: "showcase-done",
	ActionShowWord:     "show-word",
	ActionFinish:       "finish",
}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return "unknown"
	}
	return actionNames[a]
}

// Step is one declarative {delay, action} entry. At is measured from when the step is scheduled.
// Arg carries the slot, character or word index the action applies to, or the attempt a
// hide-shake belongs to.
type Step struct {
	At     time.Duration
	Action Action
	Arg    int
}

// Effect is a side effect requested by Transition and carried out by the Controller.
type Effect interface{ isEffect() }

// Schedule asks for a Tick carrying Step after Step.At.
type Schedule struct {
	Epoch uint64
	Step  Step
}

// CancelEpoch drops every timer scheduled in Epoch.
type CancelEpoch struct{ Epoch uint64 }

// Notify starts the external notification call.
type Notify struct{}

// Persist writes the acknowledgement flag.
type Persist struct{}

// CueKind is a short audible or visual cue a renderer may play.
type CueKind int

const (
	CueKeypress CueKind = iota
	CueError
	CueSuccess
	CueWord
)

func (k CueKind) String() string {
	switch k {
	case CueKeypress:
		return "keypress"
	case CueError:
		return "error"
	case CueSuccess:
		return "success"
	case CueWord:
		return "word"
	default:
		return "unknown"
	}
}

// Cue asks the renderer to play a cue.
type Cue struct{ Kind CueKind }

func (Schedule) isEffect()    {}
func (CancelEpoch) isEffect() {}
func (Notify) isEffect()      {}
func (Persist) isEffect()     {}
func (Cue) isEffect()         {}
