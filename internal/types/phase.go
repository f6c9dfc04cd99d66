package types

// Phase is the lifecycle state of a compute node on a given tick.
type Phase int

const (
	// PhaseWarmup: fewer committed bars than the node's minimum period.
	PhaseWarmup Phase = iota
	// PhaseTransition: the single tick where the node first becomes defined.
	PhaseTransition
	// PhaseSteady: every tick after the transition.
	PhaseSteady
)

func (p Phase) String() string {
	switch p {
	case PhaseWarmup:
		return "warmup"
	case PhaseTransition:
		return "transition"
	case PhaseSteady:
		return "steady"
	default:
		return "unknown"
	}
}

// Advancing reports whether a call in this phase counts as an engine advance.
func (p Phase) Advancing() bool {
	return p == PhaseTransition || p == PhaseSteady
}
