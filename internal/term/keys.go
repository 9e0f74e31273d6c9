package term

import (
	"github.com/gdamore/tcell/v2"

	"github.com/harrylevesque/forgaile/internal/models"
	"github.com/harrylevesque/forgaile/internal/sequencer"
)

// Action is what the app does with a key besides dispatching an event.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
)

// MapKey translates a key press in the current view. A nil event means the key does nothing.
func MapKey(ev *tcell.EventKey, snap models.Snapshot) (sequencer.Event, Action) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return nil, ActionQuit
	}

	switch snap.Phase {
	case sequencer.PhaseGate.String():
		switch {
		case ev.Key() == tcell.KeyEnter:
			return sequencer.Start{Sound: true}, ActionNone
		case ev.Key() != tcell.KeyRune:
			return nil, ActionNone
		}
		switch ev.Rune() {
		case 'y', 'Y':
			return sequencer.Start{Sound: true}, ActionNone
		case 'n', 'N':
			return sequencer.Start{Sound: false}, ActionNone
		}
		return nil, ActionNone

	case sequencer.PhaseDone.String():
		if ev.Key() == tcell.KeyEnter && snap.CanRespond {
			return sequencer.Respond{}, ActionNone
		}
		if ev.Key() == tcell.KeyRune && ev.Rune() == 'q' {
			return nil, ActionQuit
		}
		return nil, ActionNone
	}

	switch ev.Key() {
	case tcell.KeyRune:
		return sequencer.Key{Char: ev.Rune()}, ActionNone
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return sequencer.Backspace{}, ActionNone
	case tcell.KeyLeft:
		if snap.Focus > 0 {
			return sequencer.Focus{Slot: snap.Focus - 1}, ActionNone
		}
	case tcell.KeyRight:
		if snap.Focus < sequencer.BufferSize-1 {
			return sequencer.Focus{Slot: snap.Focus + 1}, ActionNone
		}
	}
	return nil, ActionNone
}
