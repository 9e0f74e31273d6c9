package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrylevesque/forgaile/internal/sequencer"
)

func TestNewSnapshot(t *testing.T) {
	sc := sequencer.DefaultScript()
	s := sequencer.NewState(false)
	s.Phase = sequencer.PhaseWordCycle
	s.Buffer.Slots = [sequencer.BufferSize]rune{'g', 'a', 0, 0, 0}
	s.Highlight = 1
	s.Typed = 2
	s.WordIndex = len(sc.Words) - 1

	snap := NewSnapshot("abc", s, sc, true)
	assert.Equal(t, "word-cycle", snap.Phase)
	assert.Equal(t, "hi", snap.Typed)
	assert.Equal(t, "you", snap.Word)
	assert.True(t, snap.LastWord)
	require.Len(t, snap.Slots, sequencer.BufferSize)
	assert.Equal(t, Slot{Char: "a", Highlighted: true}, snap.Slots[1])
	assert.Equal(t, Slot{}, snap.Slots[4])
	assert.False(t, snap.CanRespond)

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"notify":"idle"`)
}

func TestNewSnapshotClampsTyped(t *testing.T) {
	sc := sequencer.DefaultScript()
	s := sequencer.NewState(false)
	s.Typed = 10_000
	assert.Equal(t, sc.Message, NewSnapshot("", s, sc, false).Typed)
	s.Phase = sequencer.PhaseDone
	assert.True(t, NewSnapshot("", s, sc, false).CanRespond)
	assert.Empty(t, NewSnapshot("", s, sc, false).Word)
}
