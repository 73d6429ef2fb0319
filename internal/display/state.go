// Package display controls the power state of one physical output through a
// chain of backends. No single power primitive is reliable across the
// hardware and graphics-stack matrix this runs on, so every set is verified
// and falls back before any state is finally reported.
package display

// State is the result of a power probe. Unknown is transient: every public
// result resolves to a bool with a caller-supplied default.
type State int

const (
	StateUnknown State = iota
	StateOff
	StateOn
)

// String returns a human-readable state name
func (s State) String() string {
	switch s {
	case StateOn:
		return "on"
	case StateOff:
		return "off"
	default:
		return "unknown"
	}
}

func stateFor(on bool) State {
	if on {
		return StateOn
	}
	return StateOff
}
