// Package sound synthesises the short cues played while the sequence runs.
package sound

import (
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"

	"github.com/harrylevesque/forgaile/internal/sequencer"
)

// SampleRate is used for every generated cue.
const SampleRate = beep.SampleRate(44100)

// Wave is an oscillator shape.
type Wave int

const (
	WaveSine Wave = iota
	WaveSquare
	WaveSaw
)

type oscillator struct {
	freq     float64
	phase    float64
	position int
	length   int
	wave     Wave
	rate     beep.SampleRate
}

// Tone streams a wave at freq for d, in both channels.
func Tone(freq float64, d time.Duration, wave Wave, rate beep.SampleRate) beep.Streamer {
	return &oscillator{freq: freq, length: rate.N(d), wave: wave, rate: rate}
}

func (o *oscillator) Stream(samples [][2]float64) (int, bool) {
	if o.position >= o.length {
		return 0, false
	}
	for i := range samples {
		if o.position >= o.length {
			return i, true
		}
		var v float64
		switch o.wave {
		case WaveSine:
			v = math.Sin(2 * math.Pi * o.phase)
		case WaveSquare:
			v = 1
			if o.phase >= 0.5 {
				v = -1
			}
		case WaveSaw:
			v = 2 * (o.phase - 0.5)
		}
		samples[i][0], samples[i][1] = v, v
		o.phase += o.freq / float64(o.rate)
		o.phase -= math.Floor(o.phase)
		o.position++
	}
	return len(samples), true
}

func (o *oscillator) Err() error { return nil }

// envelope ramps a stream in over attack and out over release.
type envelope struct {
	beep.Streamer
	position int
	attack   int
	release  int
	total    int
}

// Shape applies a linear attack/release envelope to a stream lasting d.
func Shape(s beep.Streamer, d, attack, release time.Duration, rate beep.SampleRate) beep.Streamer {
	return &envelope{Streamer: s, attack: rate.N(attack), release: rate.N(release), total: rate.N(d)}
}

func (e *envelope) Stream(samples [][2]float64) (int, bool) {
	n, ok := e.Streamer.Stream(samples)
	for i := 0; i < n; i++ {
		vol := 1.0
		if e.position < e.attack {
			vol = float64(e.position) / float64(e.attack)
		}
		if left := e.total - e.position; e.release > 0 && left < e.release {
			vol = math.Max(float64(left)/float64(e.release), 0)
		}
		samples[i][0] *= vol
		samples[i][1] *= vol
		e.position++
	}
	return n, ok
}

func volume(s beep.Streamer, v float64) beep.Streamer {
	if v <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(v)}
}

func note(freq float64, d time.Duration, wave Wave, gain float64) beep.Streamer {
	return volume(Shape(Tone(freq, d, wave, SampleRate), d, 3*time.Millisecond, d/2, SampleRate), gain)
}

// Cue durations.
const (
	KeypressDuration = 35 * time.Millisecond
	ErrorDuration    = 220 * time.Millisecond
	ChimeNote        = 110 * time.Millisecond
	WordDuration     = 90 * time.Millisecond
)

// Keypress is a soft tick.
func Keypress() beep.Streamer { return note(1320, KeypressDuration, WaveSquare, 0.15) }

// Error is a low buzz for a wrong entry.
func Error() beep.Streamer { return note(110, ErrorDuration, WaveSaw, 0.35) }

// Success is a rising C-E-G chime.
func Success() beep.Streamer {
	return beep.Seq(
		note(1046.5, ChimeNote, WaveSine, 0.5),
		note(1318.5, ChimeNote, WaveSine, 0.5),
		note(1568.0, 2*ChimeNote, WaveSine, 0.5),
	)
}

// Word is a short bell under each revealed word.
func Word() beep.Streamer { return note(660, WordDuration, WaveSine, 0.25) }

// For returns the streamer of a cue kind, or nil when the kind has no sound.
func For(kind sequencer.CueKind) beep.Streamer {
	switch kind {
	case sequencer.CueKeypress:
		return Keypress()
	case sequencer.CueError:
		return Error()
	case sequencer.CueSuccess:
		return Success()
	case sequencer.CueWord:
		return Word()
	default:
		return nil
	}
}
