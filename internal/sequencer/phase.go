package sequencer

// Phase is the single discrete step of the narrative a visitor is in.
type Phase int

const (
	PhaseGate Phase = iota
	PhaseInput
	PhaseSuccess
	PhaseWipe
	PhaseShowcase
	PhaseWordCycle
	PhaseDone
)

var phaseNames = [...]string{
	PhaseGate:      "gate",
	PhaseInput:     "input",
	PhaseSuccess:   "success",
	PhaseWipe:      "wipe",
	PhaseShowcase:  "showcase",
	PhaseWordCycle: "word-cycle",
	PhaseDone:      "done",
}

// String returns the string representation of the phase
func (p Phase) String() string {
	if p < PhaseGate || p > PhaseDone {
		return "unknown"
	}
	return phaseNames[p]
}

// MarshalText renders the phase name in JSON snapshots.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// CanTransitionTo checks if moving from p to target keeps the sequence forward-only.
// Showcase is optional, so wipe may jump to word-cycle.
func (p Phase) CanTransitionTo(target Phase) bool {
	switch p {
	case PhaseGate:
		return target == PhaseInput
	case PhaseInput:
		return target == PhaseSuccess
	case PhaseSuccess:
		return target == PhaseWipe
	case PhaseWipe:
		return target == PhaseShowcase || target == PhaseWordCycle
	case PhaseShowcase:
		return target == PhaseWordCycle
	case PhaseWordCycle:
		return target == PhaseDone
	default:
		return false
	}
}
