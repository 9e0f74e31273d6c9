package sequencer

import (
	"sort"
	"time"
	"unicode/utf8"
)

// Interval is the delay after word i of n: max − range·(i/(n−1))².
// It never increases with i; a single word waits max.
func Interval(i, n int, longest, rng time.Duration) time.Duration {
	if n <= 1 {
		return longest
	}
	i = min(max(i, 0), n-1)
	f := float64(i) / float64(n-1)
	return longest - time.Duration(float64(rng)*f*f)
}

// WordOffsets returns when each word appears, relative to entering the word cycle.
func (s *Script) WordOffsets() []time.Duration {
	n := len(s.Words)
	offsets := make([]time.Duration, n)
	for i := 1; i < n; i++ {
		offsets[i] = offsets[i-1] + Interval(i-1, n, s.Timing.WordMax.D(), s.Timing.WordRange.D())
	}
	return offsets
}

// Plan returns the steps scheduled when phase p is entered, ordered by time.
// Phases driven only by visitor input return nil.
func (s *Script) Plan(p Phase) []Step {
	t := s.Timing
	var steps []Step
	switch p {
	case PhaseSuccess:
		steps = append(steps,
			Step{At: 0, Action: ActionFlashOn},
			Step{At: t.Flash.D(), Action: ActionFlashOff},
			Step{At: t.FadeBorders.D(), Action: ActionFadeBorders},
			Step{At: t.Collapse.D(), Action: ActionCollapse},
		)
		n := utf8.RuneCountInString(s.Message)
		for i := 0; i < n; i++ {
			steps = append(steps, Step{
				At:     t.TypeStart.D() + time.Duration(i)*t.TypeInterval.D(),
				Action: ActionTypeChar,
				Arg:    i,
			})
		}
		last := t.TypeStart.D() + time.Duration(max(n-1, 0))*t.TypeInterval.D()
		steps = append(steps, Step{At: last + t.TypeHold.D(), Action: ActionEnterWipe})
	case PhaseWipe:
		steps = append(steps, Step{At: t.Wipe.D(), Action: ActionWipeDone})
	case PhaseShowcase:
		sc := s.Showcase
		total := sc.Positions * sc.Cycles
		for i := 0; i < total; i++ {
			steps = append(steps, Step{
				At:     time.Duration(i) * sc.Interval.D(),
				Action: ActionHighlight,
				Arg:    i % sc.Positions,
			})
		}
		steps = append(steps, Step{At: time.Duration(total) * sc.Interval.D(), Action: ActionShowcaseDone})
	case PhaseWordCycle:
		offsets := s.WordOffsets()
		for i, at := range offsets {
			steps = append(steps, Step{At: at, Action: ActionShowWord, Arg: i})
		}
		var end time.Duration
		if len(offsets) > 0 {
			end = offsets[len(offsets)-1]
		}
		steps = append(steps, Step{At: end + t.Final.D(), Action: ActionFinish})
	}
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].At < steps[j].At })
	return steps
}
