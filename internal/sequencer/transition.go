package sequencer

import (
	"unicode"

	"golang.org/x/text/cases"
)

// stepPhase is the phase each action belongs to. A tick whose action does not match the
// current phase is stale even when its epoch matches.
var stepPhase = map[Action]Phase{
	ActionUnbounce:     PhaseInput,
	ActionHideShake:    PhaseInput,
	ActionEnterSuccess: PhaseInput,
	ActionFlashOn:      PhaseSuccess,
	ActionFlashOff:     PhaseSuccess,
	ActionFadeBorders:  PhaseSuccess,
	ActionCollapse:     PhaseSuccess,
	ActionTypeChar:     PhaseSuccess,
	ActionEnterWipe:    PhaseSuccess,
	ActionWipeDone:     PhaseWipe,
	ActionHighlight:    PhaseShowcase,
	ActionShowcaseDone: PhaseShowcase,
	ActionShowWord:     PhaseWordCycle,
	ActionFinish:       PhaseWordCycle,
}

// Transition applies one event to s and returns the next state with the effects to run.
// It has no side effects; events that do not apply to the current phase return s unchanged.
func Transition(s State, sc *Script, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case Start:
		if s.Phase != PhaseGate {
			return s, nil
		}
		s.Sound = e.Sound
		s.InputMounted = true
		s.Buffer.Clear()
		return enter(s, sc, PhaseInput)

	case Key:
		if !accepting(s) || e.Char == 0 || unicode.IsSpace(e.Char) || unicode.IsControl(e.Char) {
			return s, nil
		}
		slot := s.Buffer.Put(e.Char)
		effects := bounce(&s, sc, slot)
		effects = append(effects, Cue{Kind: CueKeypress})
		return complete(s, sc, effects)

	case Backspace:
		if !accepting(s) {
			return s, nil
		}
		slot := s.Buffer.Erase()
		if slot < 0 {
			return s, nil
		}
		return s, bounce(&s, sc, slot)

	case Paste:
		if !accepting(s) {
			return s, nil
		}
		slots := s.Buffer.Paste(e.Text)
		if len(slots) == 0 {
			return s, nil
		}
		var effects []Effect
		for _, slot := range slots {
			effects = append(effects, bounce(&s, sc, slot)...)
		}
		effects = append(effects, Cue{Kind: CueKeypress})
		return complete(s, sc, effects)

	case Focus:
		if !accepting(s) || e.Slot < 0 || e.Slot >= BufferSize {
			return s, nil
		}
		s.Buffer.Focus = e.Slot
		return s, nil

	case Respond:
		if !s.CanRespond() {
			return s, nil
		}
		s.Acknowledged = true
		s.Notify = NotifyPending
		return s, []Effect{Persist{}, Notify{}}

	case NotifyResult:
		if s.Notify != NotifyPending {
			return s, nil
		}
		if e.Err != nil {
			s.Notify = NotifyFailed
		} else {
			s.Notify = NotifySent
		}
		return s, nil

	case Tick:
		if e.Epoch != s.Epoch {
			return s, nil
		}
		if want, ok := stepPhase[e.Step.Action]; !ok || want != s.Phase {
			return s, nil
		}
		return step(s, sc, e.Step)
	}
	return s, nil
}

func accepting(s State) bool {
	return s.Phase == PhaseInput && !s.Submitted
}

func bounce(s *State, sc *Script, slot int) []Effect {
	if sc.Timing.Bounce <= 0 {
		return nil
	}
	s.Bouncing[slot] = true
	return []Effect{Schedule{Epoch: s.Epoch, Step: Step{At: sc.Timing.Bounce.D(), Action: ActionUnbounce, Arg: slot}}}
}

// complete checks a full buffer against the secret.
func complete(s State, sc *Script, effects []Effect) (State, []Effect) {
	if !s.Buffer.Full() {
		return s, effects
	}
	if sc.Secret != "" && !secretMatches(s.Buffer.String(), sc.Secret) {
		s.Attempts++
		s.Shaking = true
		s.Buffer.Clear()
		effects = append(effects,
			Schedule{Epoch: s.Epoch, Step: Step{At: sc.Timing.Shake.D(), Action: ActionHideShake, Arg: s.Attempts}},
			Cue{Kind: CueError},
		)
		return s, effects
	}
	s.Submitted = true
	s.Shaking = false
	effects = append(effects,
		Schedule{Epoch: s.Epoch, Step: Step{At: sc.Timing.Submit.D(), Action: ActionEnterSuccess}},
		Cue{Kind: CueSuccess},
	)
	return s, effects
}

func secretMatches(entry, secret string) bool {
	return cases.Fold().String(entry) == cases.Fold().String(secret)
}

// enter moves to phase p, retiring every timer of the outgoing epoch and scheduling p's plan.
func enter(s State, sc *Script, p Phase) (State, []Effect) {
	if !s.Phase.CanTransitionTo(p) {
		return s, nil
	}
	effects := []Effect{CancelEpoch{Epoch: s.Epoch}}
	s.Phase = p
	s.Epoch++
	switch p {
	case PhaseSuccess:
		s.Shaking = false
		s.Bouncing = [BufferSize]bool{}
	case PhaseWipe:
		s.Flash = false
		s.Wiping = true
	case PhaseShowcase:
		s.Highlight = -1
	case PhaseWordCycle:
		s.Highlight = -1
		s.WordIndex = -1
	}
	for _, st := range sc.Plan(p) {
		effects = append(effects, Schedule{Epoch: s.Epoch, Step: st})
	}
	return s, effects
}

func step(s State, sc *Script, st Step) (State, []Effect) {
	switch st.Action {
	case ActionUnbounce:
		if st.Arg >= 0 && st.Arg < BufferSize {
			s.Bouncing[st.Arg] = false
		}
	case ActionHideShake:
		// Only the timer of the latest mismatch hides the cue.
		if st.Arg == s.Attempts {
			s.Shaking = false
		}
	case ActionEnterSuccess:
		if s.Submitted {
			return enter(s, sc, PhaseSuccess)
		}
	case ActionFlashOn:
		s.Flash = true
	case ActionFlashOff:
		s.Flash = false
	case ActionFadeBorders:
		s.BordersFaded = true
	case ActionCollapse:
		s.Collapsed = true
	case ActionTypeChar:
		s.Typed = max(s.Typed, st.Arg+1)
	case ActionEnterWipe:
		return enter(s, sc, PhaseWipe)
	case ActionWipeDone:
		s.Wiping = false
		s.InputMounted = false
		if sc.ShowcaseEnabled() {
			return enter(s, sc, PhaseShowcase)
		}
		return enter(s, sc, PhaseWordCycle)
	case ActionHighlight:
		s.Highlight = st.Arg
	case ActionShowcaseDone:
		s.Highlight = -1
		return enter(s, sc, PhaseWordCycle)
	case ActionShowWord:
		s.WordIndex = st.Arg
		return s, []Effect{Cue{Kind: CueWord}}
	case ActionFinish:
		return enter(s, sc, PhaseDone)
	}
	return s, nil
}
