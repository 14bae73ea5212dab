package thought

import (
	"fmt"

	"spreadnet/internal/logging"
	"spreadnet/internal/network"
)

// Linker decides which links an activation takes part in.
type Linker interface {
	// CheckPropagate reports whether act may originate new output links.
	CheckPropagate(act *Activation) bool
	// TargetSynapses returns the candidate synapses on side dir of act.
	TargetSynapses(act *Activation, dir network.Direction) ([]*network.Synapse, error)
	// Exists reports whether act already has a link over syn on side dir.
	Exists(act *Activation, dir network.Direction, syn *network.Synapse) bool
	// Propagate creates output activations and links for every propagating
	// target synapse not linked yet.
	Propagate(act *Activation) error
	// Link connects act, in each direction, to the activations whose binding
	// signals relate to bs.
	Link(act *Activation, dirs []network.Direction, bs *BindingSignal) error
}

var (
	_ Linker = (*LinkingTask)(nil)
	_ Linker = (*TemplateTask)(nil)
)

// LinkingTask links activations over the live synapses of the model.
type LinkingTask struct {
	t *Thought
}

func (lt *LinkingTask) CheckPropagate(act *Activation) bool {
	return act.IsFired()
}

func (lt *LinkingTask) TargetSynapses(act *Activation, dir network.Direction) ([]*network.Synapse, error) {
	return lt.t.model.Synapses(act.neuron.ID(), dir), nil
}

func (lt *LinkingTask) Exists(act *Activation, dir network.Direction, syn *network.Synapse) bool {
	for _, l := range act.Links(dir) {
		if l.synapse.ID() == syn.ID() {
			return true
		}
	}
	return false
}

func (lt *LinkingTask) Propagate(act *Activation) error {
	if !lt.CheckPropagate(act) {
		return nil
	}
	syns, err := lt.TargetSynapses(act, network.Output)
	if err != nil {
		return err
	}
	for _, syn := range syns {
		if !syn.Kind().Propagates() || lt.Exists(act, network.Output, syn) {
			continue
		}
		if err := lt.propagateAlong(act, syn); err != nil {
			return err
		}
	}
	return nil
}

// propagateAlong links act to an activation of syn's output neuron. An
// existing activation that already carries one of the propagated signals is
// reused; otherwise a new one is created.
func (lt *LinkingTask) propagateAlong(act *Activation, syn *network.Synapse) error {
	t := lt.t
	var signals []*BindingSignal
	maxDepth := t.cfg.MaxBindingSignalDepth
	for _, bs := range act.signals {
		if !bs.CheckPropagate(maxDepth) {
			continue
		}
		if scope, ok := syn.Kind().PropagateTransition(bs.scope); ok {
			signals = append(signals, &BindingSignal{origin: bs.origin, scope: scope})
		}
	}
	if len(signals) == 0 {
		logging.LinkingDebug("[%s] %s: nothing to propagate over %s", t.id, act, syn)
		return nil
	}

	target, err := t.model.Neuron(syn.OutputID())
	if err != nil {
		return fmt.Errorf("propagate %s over synapse %d: %w", act.ElementID(), syn.ID(), err)
	}
	out, ok := t.latentActivationExists(target, signals)
	if !ok {
		out = t.newActivation(target)
	}
	t.tryLink(act, out, syn)
	return nil
}

func (lt *LinkingTask) Link(act *Activation, dirs []network.Direction, bs *BindingSignal) error {
	for _, dir := range dirs {
		syns, err := lt.TargetSynapses(act, dir)
		if err != nil {
			return err
		}
		for _, syn := range syns {
			side := syn.InputID()
			if dir == network.Output {
				side = syn.OutputID()
			}
			match := func(c *Activation) bool { return c.neuron.ID() == side }
			for _, cand := range lt.t.candidates(act, dir, bs, syn, match) {
				in, out := orient(act, cand, dir)
				lt.t.tryLink(in, out, syn)
			}
		}
	}
	return nil
}

// candidates returns the activations act may link to over syn on side dir.
// Recurrent synapses are searched by loop closure; all others through the
// binding signals related to bs.
func (t *Thought) candidates(act *Activation, dir network.Direction, bs *BindingSignal, syn *network.Synapse, match func(*Activation) bool) []*Activation {
	kind := syn.Kind()
	if kind.Recurrent() {
		var out []*Activation
		for _, c := range closingCandidates(act, t.cfg.MaxVisitorDepth, match) {
			in, o := orient(act, c, dir)
			if matchesScopes(kind, in, o) {
				out = append(out, c)
			}
		}
		return out
	}

	var out []*Activation
	seen := make(map[int]bool)
	for _, rs := range t.relatedSignals(bs, syn) {
		c := rs.holder
		if c == act || seen[c.id] || !match(c) {
			continue
		}
		from, to := rs.scope, bs.scope
		if dir == network.Output {
			from, to = bs.scope, rs.scope
		}
		if _, ok := kind.MatchTransition(from, to); !ok {
			continue
		}
		seen[c.id] = true
		out = append(out, c)
	}
	return out
}
