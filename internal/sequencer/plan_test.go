package sequencer

import (
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalNeverIncreases(t *testing.T) {
	const longest, rng = 1400 * time.Millisecond, 900 * time.Millisecond
	for n := 1; n <= 12; n++ {
		assert.Equal(t, longest, Interval(0, n, longest, rng), "n=%d", n)
		for i := 0; i+1 < n; i++ {
			assert.GreaterOrEqual(t, Interval(i, n, longest, rng), Interval(i+1, n, longest, rng), "n=%d i=%d", n, i)
		}
		if n > 1 {
			assert.Equal(t, longest-rng, Interval(n-1, n, longest, rng), "n=%d", n)
		}
	}
}

func TestIntervalQuadraticEase(t *testing.T) {
	// Halfway through five words the delay drops by a quarter of the range.
	got := Interval(2, 5, time.Second, 400*time.Millisecond)
	assert.Equal(t, 900*time.Millisecond, got)
}

func TestIntervalClampsIndex(t *testing.T) {
	assert.Equal(t, Interval(0, 4, time.Second, time.Second/2), Interval(-3, 4, time.Second, time.Second/2))
	assert.Equal(t, Interval(3, 4, time.Second, time.Second/2), Interval(9, 4, time.Second, time.Second/2))
}

func TestWordOffsets(t *testing.T) {
	sc := DefaultScript()
	offsets := sc.WordOffsets()
	require.Len(t, offsets, len(sc.Words))
	assert.Zero(t, offsets[0])
	for i := 1; i < len(offsets); i++ {
		gap := offsets[i] - offsets[i-1]
		assert.Equal(t, Interval(i-1, len(offsets), sc.Timing.WordMax.D(), sc.Timing.WordRange.D()), gap)
	}
}

func assertSorted(t *testing.T, steps []Step) {
	t.Helper()
	for i := 1; i < len(steps); i++ {
		assert.LessOrEqual(t, steps[i-1].At, steps[i].At, "step %d out of order", i)
	}
}

func TestPlanSuccess(t *testing.T) {
	sc := DefaultScript()
	steps := sc.Plan(PhaseSuccess)
	assertSorted(t, steps)

	var typed []int
	for _, st := range steps {
		if st.Action == ActionTypeChar {
			typed = append(typed, st.Arg)
		}
	}
	require.Len(t, typed, utf8.RuneCountInString(sc.Message))
	for i, arg := range typed {
		assert.Equal(t, i, arg)
	}

	last := steps[len(steps)-1]
	assert.Equal(t, ActionEnterWipe, last.Action)
	n := time.Duration(len(typed) - 1)
	assert.Equal(t, sc.Timing.TypeStart.D()+n*sc.Timing.TypeInterval.D()+sc.Timing.TypeHold.D(), last.At)
	assert.Equal(t, Step{At: 0, Action: ActionFlashOn}, steps[0])
}

func TestPlanShowcase(t *testing.T) {
	sc := DefaultScript()
	sc.Showcase = Showcase{Positions: 3, Cycles: 2, Interval: Duration(100 * time.Millisecond)}
	steps := sc.Plan(PhaseShowcase)
	want := []Step{
		{At: 0, Action: ActionHighlight, Arg: 0},
		{At: 100 * time.Millisecond, Action: ActionHighlight, Arg: 1},
		{At: 200 * time.Millisecond, Action: ActionHighlight, Arg: 2},
		{At: 300 * time.Millisecond, Action: ActionHighlight, Arg: 0},
		{At: 400 * time.Millisecond, Action: ActionHighlight, Arg: 1},
		{At: 500 * time.Millisecond, Action: ActionHighlight, Arg: 2},
		{At: 600 * time.Millisecond, Action: ActionShowcaseDone},
	}
	assert.Equal(t, want, steps)
}

func TestPlanWordCycle(t *testing.T) {
	sc := DefaultScript()
	steps := sc.Plan(PhaseWordCycle)
	assertSorted(t, steps)
	require.Len(t, steps, len(sc.Words)+1)
	offsets := sc.WordOffsets()
	last := steps[len(steps)-1]
	assert.Equal(t, ActionFinish, last.Action)
	assert.Equal(t, offsets[len(offsets)-1]+sc.Timing.Final.D(), last.At)
}

func TestPlanWordCycleWithoutWords(t *testing.T) {
	sc := DefaultScript()
	sc.Words = nil
	assert.Equal(t, []Step{{At: sc.Timing.Final.D(), Action: ActionFinish}}, sc.Plan(PhaseWordCycle))
}

func TestPlanInputIsEmpty(t *testing.T) {
	assert.Empty(t, DefaultScript().Plan(PhaseInput))
	assert.Empty(t, DefaultScript().Plan(PhaseDone))
}
