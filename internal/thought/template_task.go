package thought

import (
	"fmt"

	"spreadnet/internal/logging"
	"spreadnet/internal/network"
)

// TemplateTask links activations over the template synapses of their
// neurons' templates. Matches are turned into concrete synapses by the
// thought's Instantiator; propagation across a template synapse with no
// concrete counterpart induces a new neuron.
type TemplateTask struct {
	t *Thought
}

func (tt *TemplateTask) CheckPropagate(act *Activation) bool {
	return act.IsFired()
}

// TargetSynapses returns the template synapses of act's template neuron.
func (tt *TemplateTask) TargetSynapses(act *Activation, dir network.Direction) ([]*network.Synapse, error) {
	tid := act.neuron.TemplateID()
	if tid == 0 {
		return nil, nil
	}
	return tt.t.model.Synapses(tid, dir), nil
}

// Exists reports whether act has a link over an instance of template.
func (tt *TemplateTask) Exists(act *Activation, dir network.Direction, template *network.Synapse) bool {
	for _, l := range act.Links(dir) {
		if l.synapse.TemplateID() == template.ID() {
			return true
		}
	}
	return false
}

func (tt *TemplateTask) Propagate(act *Activation) error {
	if !tt.CheckPropagate(act) {
		return nil
	}
	templates, err := tt.TargetSynapses(act, network.Output)
	if err != nil {
		return err
	}
	t := tt.t
	for _, ts := range templates {
		if !ts.Kind().Propagates() || tt.Exists(act, network.Output, ts) || tt.instanceExists(act.neuron, ts) {
			continue
		}
		tmplOut, err := t.model.Neuron(ts.OutputID())
		if err != nil {
			return fmt.Errorf("template propagate %s: %w", act.ElementID(), err)
		}
		induced, err := t.inducer.InduceNeuron(tmplOut, InducedLabel(tmplOut, act.neuron))
		if err != nil {
			return fmt.Errorf("template propagate %s: %w", act.ElementID(), err)
		}
		syn, err := t.instantiator.InstantiateTemplate(ts, act.neuron, induced)
		if err != nil {
			return fmt.Errorf("template propagate %s: %w", act.ElementID(), err)
		}
		logging.Linking("[%s] induced %s for %s", t.id, induced, act)
		if err := t.linking.propagateAlong(act, syn); err != nil {
			return err
		}
	}
	return nil
}

func (tt *TemplateTask) Link(act *Activation, dirs []network.Direction, bs *BindingSignal) error {
	t := tt.t
	for _, dir := range dirs {
		templates, err := tt.TargetSynapses(act, dir)
		if err != nil {
			return err
		}
		for _, ts := range templates {
			side := ts.InputID()
			if dir == network.Output {
				side = ts.OutputID()
			}
			match := func(c *Activation) bool {
				return c.neuron.TemplateID() == side
			}
			for _, cand := range t.candidates(act, dir, bs, ts, match) {
				in, out := orient(act, cand, dir)
				if in == out || !in.IsFired() {
					continue
				}
				syn, err := t.instantiator.InstantiateTemplate(ts, in.neuron, out.neuron)
				if err != nil {
					return fmt.Errorf("template link %s -> %s: %w", in.ElementID(), out.ElementID(), err)
				}
				t.tryLink(in, out, syn)
			}
		}
	}
	return nil
}

// instanceExists reports whether n already has a concrete output synapse
// instantiated from template.
func (tt *TemplateTask) instanceExists(n *network.Neuron, template *network.Synapse) bool {
	for _, s := range tt.t.model.OutputSynapses(n.ID()) {
		if s.TemplateID() == template.ID() {
			return true
		}
	}
	return false
}

// InducedLabel names the neuron induced from template for source.
func InducedLabel(template, source *network.Neuron) string {
	return template.Label() + "/" + source.Label()
}
