package network

// Scope tags how a binding signal relates an activation to its origin.
type Scope int

const (
	// ScopeSame marks the origin activation itself and activations that
	// represent the same thing.
	ScopeSame Scope = iota
	// ScopeInput marks activations that take the origin as input.
	ScopeInput
	// ScopeRelated marks activations related to the origin by position.
	ScopeRelated
)

func (s Scope) String() string {
	switch s {
	case ScopeSame:
		return "SAME"
	case ScopeInput:
		return "INPUT"
	case ScopeRelated:
		return "RELATED"
	default:
		return "UNKNOWN"
	}
}

// Mode selects what a transition may be used for.
type Mode int

const (
	// ModeMatch transitions are consulted when searching for activations to
	// link.
	ModeMatch Mode = 1 << iota
	// ModePropagate transitions are applied to binding signals crossing a
	// created link.
	ModePropagate

	ModeMatchAndPropagate = ModeMatch | ModePropagate
)

// Has reports whether m includes all bits of o.
func (m Mode) Has(o Mode) bool { return m&o == o }

func (m Mode) String() string {
	switch m {
	case ModeMatch:
		return "match"
	case ModePropagate:
		return "propagate"
	case ModeMatchAndPropagate:
		return "match+propagate"
	default:
		return "none"
	}
}

// Transition maps a binding signal scope on the input side of a synapse to
// the scope on the output side.
type Transition struct {
	From Scope
	To   Scope
	Mode Mode
}

// Direction is the side of an activation a link is searched on.
type Direction int

const (
	// Input searches links that end at the activation.
	Input Direction = iota
	// Output searches links that start at the activation.
	Output
)

// Invert returns the opposite direction.
func (d Direction) Invert() Direction {
	if d == Input {
		return Output
	}
	return Input
}

func (d Direction) String() string {
	if d == Input {
		return "input"
	}
	return "output"
}

// Range bounds the position offset (output position minus input position)
// of activations joined by a relation synapse.
type Range struct {
	Begin int `json:"begin"`
	End   int `json:"end"`
}

// Contains reports whether offset lies in [Begin, End].
func (r Range) Contains(offset int) bool {
	return offset >= r.Begin && offset <= r.End
}
