package thought

import (
	"fmt"

	"spreadnet/internal/fields"
	"spreadnet/internal/network"
	"spreadnet/internal/queue"
)

// Link realizes a synapse between two activations of one thought. Its
// endpoints never change.
type Link struct {
	queue.ElementBase

	synapse *network.Synapse
	in      *Activation
	output  *Activation
	weight  float64
	input   *fields.Field
}

func newLink(t *Thought, in, out *Activation, syn *network.Synapse) *Link {
	l := &Link{
		ElementBase: queue.NewElementBase(t.queue),
		synapse:     syn,
		in:          in,
		output:      out,
		weight:      syn.Weight(),
	}
	l.input = fields.New(l, "input", t.cfg.Epsilon)
	return l
}

// ElementID identifies the link by its endpoints and synapse.
func (l *Link) ElementID() string {
	return fmt.Sprintf("link:%d-%d:%d", l.in.id, l.output.id, l.synapse.ID())
}

// Fired is the fired timestamp of the input activation.
func (l *Link) Fired() queue.Timestamp { return l.in.Fired() }

func (l *Link) Synapse() *network.Synapse { return l.synapse }
func (l *Link) Input() *Activation        { return l.in }
func (l *Link) Output() *Activation       { return l.output }

// Weight returns the synapse weight captured when the link was created.
func (l *Link) Weight() float64 { return l.weight }

// InputField carries input value times weight into the output's net.
func (l *Link) InputField() *fields.Field { return l.input }

// IsNegative reports whether the link inhibits its output.
func (l *Link) IsNegative() bool { return l.weight < 0 }

// TransitionBindingSignals maps input-side signals to the signals the output
// activation receives across this link. Signals that may not propagate or
// have no propagate transition for their scope are dropped.
func (l *Link) TransitionBindingSignals(in []*BindingSignal) []*BindingSignal {
	kind := l.synapse.Kind()
	maxDepth := l.in.thought.cfg.MaxBindingSignalDepth
	var out []*BindingSignal
	for _, bs := range in {
		if !bs.CheckPropagate(maxDepth) {
			continue
		}
		scope, ok := kind.PropagateTransition(bs.scope)
		if !ok {
			continue
		}
		out = append(out, bs.next(l.output, scope))
	}
	return out
}

func (l *Link) String() string {
	return fmt.Sprintf("%s -%s-> %s", l.in, l.synapse.Kind(), l.output)
}
