package network

import (
	"fmt"
	"math"
)

// NeuronKind is the structural role of a neuron.
type NeuronKind int

const (
	KindToken NeuronKind = iota
	KindBinding
	KindPattern
	KindInhibitory
	KindCategory
)

// ActivationFunction maps net input to activation value.
type ActivationFunction func(float64) float64

// LimitedRectifiedLinear clips the rectified input at 1.
func LimitedRectifiedLinear(x float64) float64 {
	return math.Min(1, math.Max(0, x))
}

// RectifiedTanh is tanh for positive input and 0 otherwise.
func RectifiedTanh(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return math.Tanh(x)
}

type neuronTraits struct {
	name       string
	actFn      ActivationFunction
	originates bool
	terminates bool
}

var neuronKinds = map[NeuronKind]neuronTraits{
	KindToken:      {name: "token", actFn: LimitedRectifiedLinear, originates: true},
	KindBinding:    {name: "binding", actFn: RectifiedTanh},
	KindPattern:    {name: "pattern", actFn: RectifiedTanh},
	KindInhibitory: {name: "inhibitory", actFn: LimitedRectifiedLinear},
	KindCategory:   {name: "category", actFn: LimitedRectifiedLinear, terminates: true},
}

func (k NeuronKind) traits() neuronTraits {
	t, ok := neuronKinds[k]
	if !ok {
		panic(fmt.Sprintf("network: unknown neuron kind %d", int(k)))
	}
	return t
}

// ActivationFunction returns the kind's activation function.
func (k NeuronKind) ActivationFunction() ActivationFunction { return k.traits().actFn }

// OriginatesBindingSignals reports whether a firing activation of this kind
// starts a new binding signal with itself as origin.
func (k NeuronKind) OriginatesBindingSignals() bool { return k.traits().originates }

// TerminatesBindingSignals reports whether binding signals stop at
// activations of this kind.
func (k NeuronKind) TerminatesBindingSignals() bool { return k.traits().terminates }

func (k NeuronKind) String() string { return k.traits().name }

// ParseNeuronKind is the inverse of String.
func ParseNeuronKind(s string) (NeuronKind, error) {
	for k, t := range neuronKinds {
		if t.name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("network: unknown neuron kind %q", s)
}

// SynapseKind is the structural role of a synapse.
type SynapseKind int

const (
	KindPrimaryInput SynapseKind = iota
	KindRelation
	KindPatternInput
	KindPositiveFeedback
	KindInhibitoryInput
	KindNegativeFeedback
	KindCategoryInput
)

type synapseTraits struct {
	name        string
	input       NeuronKind
	output      NeuronKind
	transitions []Transition
	propagates  bool
	recurrent   bool
	positional  bool
	negative    bool
}

var synapseKinds = map[SynapseKind]synapseTraits{
	KindPrimaryInput: {
		name: "primary-input", input: KindToken, output: KindBinding, propagates: true,
		transitions: []Transition{
			{ScopeSame, ScopeInput, ModeMatchAndPropagate},
			{ScopeRelated, ScopeRelated, ModeMatchAndPropagate},
		},
	},
	KindRelation: {
		name: "relation", input: KindToken, output: KindToken, positional: true,
		transitions: []Transition{
			{ScopeSame, ScopeSame, ModeMatch},
			{ScopeSame, ScopeRelated, ModePropagate},
		},
	},
	KindPatternInput: {
		name: "pattern-input", input: KindBinding, output: KindPattern, propagates: true,
		// A binding reached through a relation joins the pattern activation
		// of the related origin instead of opening a second one.
		transitions: []Transition{
			{ScopeInput, ScopeSame, ModeMatchAndPropagate},
			{ScopeRelated, ScopeSame, ModeMatchAndPropagate},
		},
	},
	KindPositiveFeedback: {
		name: "positive-feedback", input: KindPattern, output: KindBinding, recurrent: true,
		transitions: []Transition{{ScopeSame, ScopeInput, ModeMatchAndPropagate}},
	},
	KindInhibitoryInput: {
		name: "inhibitory-input", input: KindBinding, output: KindInhibitory, propagates: true,
		transitions: []Transition{{ScopeInput, ScopeInput, ModeMatchAndPropagate}},
	},
	KindNegativeFeedback: {
		name: "negative-feedback", input: KindInhibitory, output: KindBinding, recurrent: true, negative: true,
		transitions: []Transition{{ScopeInput, ScopeInput, ModeMatchAndPropagate}},
	},
	KindCategoryInput: {
		name: "category-input", input: KindPattern, output: KindCategory, propagates: true,
		transitions: []Transition{{ScopeSame, ScopeSame, ModeMatchAndPropagate}},
	},
}

func (k SynapseKind) traits() synapseTraits {
	t, ok := synapseKinds[k]
	if !ok {
		panic(fmt.Sprintf("network: unknown synapse kind %d", int(k)))
	}
	return t
}

func (k SynapseKind) String() string { return k.traits().name }

// InputKind is the neuron kind expected on the input side.
func (k SynapseKind) InputKind() NeuronKind { return k.traits().input }

// OutputKind is the neuron kind expected on the output side.
func (k SynapseKind) OutputKind() NeuronKind { return k.traits().output }

// Transitions returns the declared scope transitions.
func (k SynapseKind) Transitions() []Transition { return k.traits().transitions }

// Propagates reports whether a firing input activation creates a new output
// activation across this kind. Other kinds only link existing activations.
func (k SynapseKind) Propagates() bool { return k.traits().propagates }

// Recurrent synapses close loops and are linked through visitor traversal.
func (k SynapseKind) Recurrent() bool { return k.traits().recurrent }

// Positional synapses restrict linking to a position Range.
func (k SynapseKind) Positional() bool { return k.traits().positional }

// Negative synapses always carry a non-positive weight.
func (k SynapseKind) Negative() bool { return k.traits().negative }

// ParseSynapseKind is the inverse of String.
func ParseSynapseKind(s string) (SynapseKind, error) {
	for k, t := range synapseKinds {
		if t.name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("network: unknown synapse kind %q", s)
}

// MatchTransition returns the match transition of kind from the input-side
// scope from to the output-side scope to.
func (k SynapseKind) MatchTransition(from, to Scope) (Transition, bool) {
	for _, t := range k.Transitions() {
		if t.Mode.Has(ModeMatch) && t.From == from && t.To == to {
			return t, true
		}
	}
	return Transition{}, false
}

// PropagateTransition returns the scope a signal of scope from takes on the
// output side, if any propagate transition accepts it. Each kind declares
// at most one propagate transition per input scope.
func (k SynapseKind) PropagateTransition(from Scope) (Scope, bool) {
	for _, t := range k.Transitions() {
		if t.Mode.Has(ModePropagate) && t.From == from {
			return t.To, true
		}
	}
	return 0, false
}
