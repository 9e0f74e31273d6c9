package term

import (
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/harrylevesque/forgaile/internal/models"
	"github.com/harrylevesque/forgaile/internal/sequencer"
)

var (
	colorInk    = tcell.NewRGBColor(0x5a, 0x3d, 0x5c)
	colorAccent = tcell.NewRGBColor(0xd9, 0x6c, 0x9a)
	colorFaint  = tcell.NewRGBColor(0xa0, 0xa0, 0xbf)
	colorFlash  = tcell.NewRGBColor(0xff, 0xff, 0xff)
	colorWipe   = tcell.NewRGBColor(0xf0, 0xec, 0xf0)
)

const (
	slotWidth = 5
	slotGap   = 1
	shakeStep = 2
)

var notifyStatus = map[string]string{
	sequencer.NotifyPending.String(): "sending…",
	sequencer.NotifySent.String():    "💌 sent",
	sequencer.NotifyFailed.String():  "couldn't send, but it counts",
}

// Draw renders snap on s. sky may be nil.
func Draw(s tcell.Screen, snap models.Snapshot, sky *Clouds) {
	w, h := s.Size()
	switch {
	case snap.Flash:
		fill(s, colorFlash)
	case snap.Wiping:
		fill(s, colorWipe)
	case sky != nil && sky.Active():
		sky.Draw(s)
	default:
		s.Clear()
	}
	if snap.Flash || snap.Wiping {
		s.Show()
		return
	}

	cx, cy := w/2, h/2
	switch snap.Phase {
	case sequencer.PhaseGate.String():
		center(s, cx, cy-1, "sound on?", colorInk, true)
		center(s, cx, cy+1, "[y] yes    [n] no", colorAccent, false)

	case sequencer.PhaseWordCycle.String():
		center(s, cx, cy, snap.Word, colorInk, true)

	case sequencer.PhaseDone.String():
		center(s, cx, cy-1, "you", colorInk, true)
		if snap.CanRespond {
			center(s, cx, cy+1, "[enter] press me 💌", colorAccent, true)
		}
		if msg, ok := notifyStatus[snap.Notify]; ok {
			center(s, cx, cy+3, msg, colorFaint, false)
		}

	default:
		if snap.InputMounted {
			drawSlots(s, snap, cx, cy)
			center(s, cx, cy+3, snap.Typed, colorInk, false)
		} else {
			center(s, cx, cy, snap.Word, colorInk, true)
		}
	}

	text(s, 1, h-1, "esc to leave", colorFaint, false)
	s.Show()
}

func drawSlots(s tcell.Screen, snap models.Snapshot, cx, cy int) {
	total := len(snap.Slots)*slotWidth + (len(snap.Slots)-1)*slotGap
	x0 := cx - total/2
	if snap.Shaking {
		x0 += shakeStep
	}
	input := snap.Phase == sequencer.PhaseInput.String()
	for i, slot := range snap.Slots {
		if snap.Collapsed && !slot.Highlighted && !input {
			continue
		}
		x := x0 + i*(slotWidth+slotGap)
		y := cy - 1
		if slot.Bouncing {
			y--
		}
		border := colorInk
		switch {
		case slot.Highlighted:
			border = colorAccent
		case input && !snap.Submitted && snap.Focus == i:
			border = colorAccent
		}
		char := slot.Char
		if char == "" {
			char = " "
		}
		if snap.BordersFaded {
			text(s, x+2, y+1, char, border, true)
			continue
		}
		text(s, x, y, "┌───┐", border, false)
		text(s, x, y+1, "│ "+char+" │", border, false)
		text(s, x, y+2, "└───┘", border, false)
	}
}

func fill(s tcell.Screen, c tcell.Color) {
	w, h := s.Size()
	st := tcell.StyleDefault.Background(c)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			s.SetContent(x, y, ' ', nil, st)
		}
	}
}

func center(s tcell.Screen, cx, y int, str string, fg tcell.Color, bold bool) {
	text(s, cx-runewidth.StringWidth(str)/2, y, str, fg, bold)
}

// text writes str at (x, y) in fg, keeping each cell's background.
func text(s tcell.Screen, x, y int, str string, fg tcell.Color, bold bool) {
	for _, r := range str {
		_, _, under, _ := s.GetContent(x, y)
		_, bg, _ := under.Decompose()
		s.SetContent(x, y, r, nil, tcell.StyleDefault.Foreground(fg).Background(bg).Bold(bold))
		x += runewidth.RuneWidth(r)
	}
}
