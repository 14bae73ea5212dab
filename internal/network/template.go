package network

import (
	"fmt"

	"spreadnet/internal/logging"
)

// Instantiator turns a template synapse into a concrete synapse between two
// concrete neurons.
type Instantiator interface {
	InstantiateTemplate(template *Synapse, in, out *Neuron) (*Synapse, error)
}

// Inducer creates a concrete neuron from a template neuron.
type Inducer interface {
	InduceNeuron(template *Neuron, label string) (*Neuron, error)
}

var (
	_ Instantiator = (*Model)(nil)
	_ Inducer      = (*Model)(nil)
)

// InstantiateTemplate returns the concrete synapse of template between in
// and out, creating it on first use. Each endpoint must be the template's
// own endpoint or an instance of it.
func (m *Model) InstantiateTemplate(template *Synapse, in, out *Neuron) (*Synapse, error) {
	if !instantiates(in, template.input) || !instantiates(out, template.output) {
		return nil, fmt.Errorf("%w: %s between %s and %s", ErrNotInstance, template, in, out)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := instanceKey{template.id, in.ID(), out.ID()}
	if s, ok := m.instances[key]; ok {
		return s, nil
	}
	s, err := m.newSynapseLocked(template.kind, in, out, template.Weight(),
		WithRange(template.rng), withTemplate(template.id))
	if err != nil {
		return nil, err
	}
	logging.Network("instantiated %s from template %d", s, template.id)
	return s, nil
}

// InduceNeuron returns the instance of template labelled label, creating it
// with the template's kind and bias if the label is unknown.
func (m *Model) InduceNeuron(template *Neuron, label string) (*Neuron, error) {
	if !template.IsTemplate() {
		return nil, fmt.Errorf("%w: %s is not a template", ErrNotInstance, template)
	}
	n, created, err := m.GetOrCreateNeuron(label, template.Kind(), template.Bias(), WithTemplate(template))
	if err != nil {
		return nil, err
	}
	if !created && n.TemplateID() != template.ID() {
		return nil, fmt.Errorf("%w: %q belongs to template %d", ErrDuplicateLabel, label, n.TemplateID())
	}
	if created {
		logging.Network("induced neuron %s from template %s", n, template)
	}
	return n, nil
}

func instantiates(n *Neuron, templateID int64) bool {
	return n.ID() == templateID || n.TemplateID() == templateID
}
