package thought

import (
	"fmt"

	"spreadnet/internal/network"
)

// BindingSignal ties an activation to the origin activation it descends
// from. Signals are immutable; crossing a link creates a new signal.
type BindingSignal struct {
	origin *Activation
	holder *Activation
	scope  network.Scope
	depth  int
	parent *BindingSignal
}

func (bs *BindingSignal) Origin() *Activation  { return bs.origin }
func (bs *BindingSignal) Holder() *Activation  { return bs.holder }
func (bs *BindingSignal) Scope() network.Scope { return bs.scope }

// Depth is the number of links crossed since the origin.
func (bs *BindingSignal) Depth() int { return bs.depth }

// Parent is the signal this one was transitioned from, nil at the origin.
func (bs *BindingSignal) Parent() *BindingSignal { return bs.parent }

// CheckPropagate reports whether the signal may cross further links. It
// fails at activations that terminate signals and once maxDepth is reached.
func (bs *BindingSignal) CheckPropagate(maxDepth int) bool {
	if bs.holder.neuron.Kind().TerminatesBindingSignals() {
		return false
	}
	return bs.depth < maxDepth
}

func (bs *BindingSignal) next(holder *Activation, scope network.Scope) *BindingSignal {
	return &BindingSignal{
		origin: bs.origin,
		holder: holder,
		scope:  scope,
		depth:  bs.depth + 1,
		parent: bs,
	}
}

func (bs *BindingSignal) String() string {
	return fmt.Sprintf("bs(%s %s d=%d)", bs.origin.ElementID(), bs.scope, bs.depth)
}
