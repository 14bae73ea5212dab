package thought

import (
	"fmt"

	"spreadnet/internal/fields"
	"spreadnet/internal/logging"
	"spreadnet/internal/network"
	"spreadnet/internal/queue"
)

// Activation is the instance of a neuron within one thought.
type Activation struct {
	queue.ElementBase

	id       int
	thought  *Thought
	neuron   *network.Neuron
	position int
	begin    int
	end      int

	bias  *fields.Field
	net   *fields.Field
	value *fields.Field

	inputs  []*Link
	outputs []*Link

	signals     []*BindingSignal
	signalIndex map[int]*BindingSignal

	// identities of steps ever scheduled for this activation
	scheduled map[string]bool
}

func newActivation(t *Thought, id int, n *network.Neuron) *Activation {
	act := &Activation{
		ElementBase: queue.NewElementBase(t.queue),
		id:          id,
		thought:     t,
		neuron:      n,
		position:    -1,
		begin:       -1,
		end:         -1,
		signalIndex: make(map[int]*BindingSignal),
		scheduled:   make(map[string]bool),
	}

	eps := t.cfg.Epsilon
	act.bias = fields.New(act, "bias", eps)
	act.net = fields.New(act, "net", eps)
	act.value = fields.New(act, "value", eps, fields.WithTransform(fields.Transform(n.Kind().ActivationFunction())))
	act.bias.Connect(act.net, 1)
	act.net.Connect(act.value, 1)
	act.value.OnChange(act.onValueChange)

	if b := n.Bias(); b != 0 {
		act.bias.ReceiveUpdate(b)
	}
	return act
}

// ElementID identifies the activation within its thought.
func (a *Activation) ElementID() string { return fmt.Sprintf("act:%d", a.id) }

func (a *Activation) ID() int                 { return a.id }
func (a *Activation) Thought() *Thought       { return a.thought }
func (a *Activation) Neuron() *network.Neuron { return a.neuron }

// Position returns the token position, or -1.
func (a *Activation) Position() int { return a.position }

// CharRange returns the covered character range, or (-1, -1).
func (a *Activation) CharRange() (begin, end int) { return a.begin, a.end }

func (a *Activation) BiasField() *fields.Field  { return a.bias }
func (a *Activation) NetField() *fields.Field   { return a.net }
func (a *Activation) ValueField() *fields.Field { return a.value }

// Net returns the processed net input.
func (a *Activation) Net() float64 { return a.net.Value() }

// Value returns the processed activation value.
func (a *Activation) Value() float64 { return a.value.Value() }

// IsFired reports whether the activation has fired.
func (a *Activation) IsFired() bool { return a.Fired().IsSet() }

func (a *Activation) Inputs() []*Link  { return append([]*Link(nil), a.inputs...) }
func (a *Activation) Outputs() []*Link { return append([]*Link(nil), a.outputs...) }

// Links returns the links on side dir.
func (a *Activation) Links(dir network.Direction) []*Link {
	if dir == network.Input {
		return a.inputs
	}
	return a.outputs
}

// Signals returns the carried binding signals in attachment order.
func (a *Activation) Signals() []*BindingSignal {
	return append([]*BindingSignal(nil), a.signals...)
}

// Signal returns the signal carried for origin.
func (a *Activation) Signal(origin *Activation) (*BindingSignal, bool) {
	bs, ok := a.signalIndex[origin.id]
	return bs, ok
}

func (a *Activation) String() string {
	return fmt.Sprintf("%s(%s v=%.3f)", a.ElementID(), a.neuron.Label(), a.value.Value())
}

func (a *Activation) onValueChange(_ *fields.Field, _, v float64) {
	if !a.IsFired() && v > a.thought.cfg.FiringThreshold {
		a.fire()
	}
}

func (a *Activation) fire() {
	t := a.thought
	if !a.SetFired(t.queue.NextTimestamp()) {
		return
	}
	t.queue.EmitElementEvent(queue.EventElementFired, a)
	logging.LinkingDebug("[%s] fired %s at %s", t.id, a, a.Fired())

	if a.neuron.Kind().OriginatesBindingSignals() {
		a.addBindingSignal(&BindingSignal{origin: a, holder: a, scope: network.ScopeSame})
	}
	for _, bs := range a.signals {
		a.schedule(newLinkingStep(a, bs, network.Output))
	}
	a.schedule(newPropagateStep(a))
	if t.cfg.TemplatesEnabled && a.neuron.TemplateID() != 0 {
		a.schedule(newTemplateStep(a))
	}
}

// addBindingSignal attaches bs unless a signal of the same origin is already
// carried. It schedules linking for the new signal and forwards it along
// existing output links.
func (a *Activation) addBindingSignal(bs *BindingSignal) bool {
	if _, ok := a.signalIndex[bs.origin.id]; ok {
		return false
	}
	t := a.thought
	a.signals = append(a.signals, bs)
	a.signalIndex[bs.origin.id] = bs
	t.signals[bs.origin.id] = append(t.signals[bs.origin.id], bs)
	logging.LinkingDebug("[%s] %s carries %s", t.id, a, bs)

	a.schedule(newLinkingStep(a, bs, network.Input))
	if a.IsFired() {
		a.schedule(newLinkingStep(a, bs, network.Output))
	}
	for _, l := range a.outputs {
		for _, next := range l.TransitionBindingSignals([]*BindingSignal{bs}) {
			l.output.addBindingSignal(next)
		}
	}
	return true
}

// schedule adds s unless a step with the same identity was ever scheduled
// for this activation.
func (a *Activation) schedule(s queue.Step) bool {
	id := s.ID()
	if a.scheduled[id] {
		return false
	}
	if !a.thought.queue.Add(s) {
		return false
	}
	a.scheduled[id] = true
	return true
}
