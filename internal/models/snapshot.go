package models

import (
	"github.com/harrylevesque/forgaile/internal/sequencer"
)

// Slot is one character box of the gate.
type Slot struct {
	Char        string `json:"char"`
	Bouncing    bool   `json:"bouncing"`
	Highlighted bool   `json:"highlighted"`
}

// Snapshot is the view of a session sent to browsers and the terminal client.
type Snapshot struct {
	SessionID string `json:"session_id,omitempty"`
	Phase     string `json:"phase"`
	Epoch     uint64 `json:"epoch"`

	Sound        bool   `json:"sound"`
	Slots        []Slot `json:"slots"`
	Focus        int    `json:"focus"`
	Shaking      bool   `json:"shaking"`
	Attempts     int    `json:"attempts"`
	Submitted    bool   `json:"submitted"`
	InputMounted bool   `json:"input_mounted"`

	Flash        bool   `json:"flash"`
	BordersFaded bool   `json:"borders_faded"`
	Collapsed    bool   `json:"collapsed"`
	Typed        string `json:"typed"`
	Wiping       bool   `json:"wiping"`

	Word      string `json:"word,omitempty"`
	WordIndex int    `json:"word_index"`
	LastWord  bool   `json:"last_word"`

	CanRespond   bool   `json:"can_respond"`
	Acknowledged bool   `json:"acknowledged"`
	Notify       string `json:"notify"`

	BackgroundActive bool `json:"background_active"`
}

// NewSnapshot renders s against the script it is playing.
func NewSnapshot(id string, s sequencer.State, sc *sequencer.Script, backgroundActive bool) Snapshot {
	slots := make([]Slot, sequencer.BufferSize)
	for i, r := range s.Buffer.Slots {
		if r != 0 {
			slots[i].Char = string(r)
		}
		slots[i].Bouncing = s.Bouncing[i]
		slots[i].Highlighted = s.Highlight == i
	}

	msg := []rune(sc.Message)
	typed := string(msg[:min(max(s.Typed, 0), len(msg))])

	snap := Snapshot{
		SessionID:        id,
		Phase:            s.Phase.String(),
		Epoch:            s.Epoch,
		Sound:            s.Sound,
		Slots:            slots,
		Focus:            s.Buffer.Focus,
		Shaking:          s.Shaking,
		Attempts:         s.Attempts,
		Submitted:        s.Submitted,
		InputMounted:     s.InputMounted,
		Flash:            s.Flash,
		BordersFaded:     s.BordersFaded,
		Collapsed:        s.Collapsed,
		Typed:            typed,
		Wiping:           s.Wiping,
		WordIndex:        s.WordIndex,
		CanRespond:       s.CanRespond(),
		Acknowledged:     s.Acknowledged,
		Notify:           s.Notify.String(),
		BackgroundActive: backgroundActive,
	}
	if s.WordIndex >= 0 && s.WordIndex < len(sc.Words) {
		snap.Word = sc.Words[s.WordIndex]
		snap.LastWord = s.WordIndex == len(sc.Words)-1
	}
	return snap
}
