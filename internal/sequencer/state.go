package sequencer

import (
	"strings"
	"unicode"
)

// Buffer is the fixed row of character slots plus the focused slot.
// A zero rune marks an empty slot.
type Buffer struct {
	Slots [BufferSize]rune
	Focus int
}

// Full reports whether every slot holds a character.
func (b Buffer) Full() bool {
	for _, r := range b.Slots {
		if r == 0 {
			return false
		}
	}
	return true
}

// String joins the filled slots.
func (b Buffer) String() string {
	var sb strings.Builder
	for _, r := range b.Slots {
		if r != 0 {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Clear empties every slot and refocuses the first one.
func (b *Buffer) Clear() {
	b.Slots = [BufferSize]rune{}
	b.Focus = 0
}

// Put writes r into the focused slot and advances focus, never past the last slot.
func (b *Buffer) Put(r rune) int {
	slot := b.Focus
	b.Slots[slot] = r
	if b.Focus < BufferSize-1 {
		b.Focus++
	}
	return slot
}

// Erase implements backspace: clear the focused slot when filled, otherwise move left and clear
// that one. It returns the cleared slot, or -1 when nothing changed.
func (b *Buffer) Erase() int {
	if b.Slots[b.Focus] != 0 {
		b.Slots[b.Focus] = 0
		return b.Focus
	}
	if b.Focus == 0 {
		return -1
	}
	b.Focus--
	b.Slots[b.Focus] = 0
	return b.Focus
}

// Paste spreads text over the slots from the focused one onward and returns the slots written.
// Whitespace and control characters are dropped; overflow is discarded.
func (b *Buffer) Paste(text string) []int {
	var written []int
	pos := b.Focus
	for _, r := range text {
		if pos >= BufferSize {
			break
		}
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			continue
		}
		b.Slots[pos] = r
		written = append(written, pos)
		pos++
	}
	if len(written) > 0 {
		b.Focus = min(pos, BufferSize-1)
	}
	return written
}

// NotifyStatus tracks the outcome of the respond action.
type NotifyStatus int

const (
	NotifyIdle NotifyStatus = iota
	NotifyPending
	NotifySent
	NotifyFailed
)

func (s NotifyStatus) String() string {
	switch s {
	case NotifyPending:
		return "pending"
	case NotifySent:
		return "sent"
	case NotifyFailed:
		return "failed"
	default:
		return "idle"
	}
}

func (s NotifyStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// State is everything the sequencer owns. It is a value: Transition returns a modified copy.
type State struct {
	Phase Phase
	// Epoch increases on every phase entry. Timers carry the epoch they were scheduled in.
	Epoch uint64

	Sound  bool
	Buffer Buffer
	// Bouncing marks slots inside their short edit cue.
	Bouncing [BufferSize]bool
	Shaking  bool
	Attempts int
	// Submitted locks the buffer once a correct entry is waiting for the success delay.
	Submitted bool

	Flash        bool
	BordersFaded bool
	Collapsed    bool
	Typed        int

	Wiping       bool
	InputMounted bool

	// Highlight is the showcase slot, -1 when none.
	Highlight int
	// WordIndex is the current word cue, -1 before the first word.
	WordIndex int

	Acknowledged bool
	Notify       NotifyStatus
}

// NewState returns the page-load state. acknowledged comes from persistent storage.
func NewState(acknowledged bool) State {
	return State{
		Phase:        PhaseGate,
		Highlight:    -1,
		WordIndex:    -1,
		Acknowledged: acknowledged,
	}
}

// CanRespond reports whether the respond control should be offered.
func (s State) CanRespond() bool {
	return s.Phase == PhaseDone && !s.Acknowledged
}
