// Package network holds the persistent side of the graph: neurons, synapses
// and the model that owns them. Neurons can be suspended to a store and are
// retrieved lazily through their Provider.
package network

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrMissingNeuron is returned when a neuron id or label is unknown to
	// the model or its record is gone from the store.
	ErrMissingNeuron = errors.New("network: missing neuron")
	// ErrDuplicateLabel is returned when a label is already taken.
	ErrDuplicateLabel = errors.New("network: duplicate label")
	// ErrKindMismatch is returned when a synapse kind does not fit the kinds
	// of its endpoints.
	ErrKindMismatch = errors.New("network: synapse kind does not match neuron kinds")
	// ErrNotInstance is returned when a neuron does not instantiate the
	// template a synapse or induction expects.
	ErrNotInstance = errors.New("network: neuron is not an instance of the template")
)

// Neuron is a node of the model. Its mutable state is shared by every
// thought that activates it and is guarded by its own lock.
type Neuron struct {
	id         int64
	label      string
	kind       NeuronKind
	template   int64
	isTemplate bool

	mu        sync.Mutex
	bias      float64
	frequency int64
}

// NeuronOption configures a neuron at creation.
type NeuronOption func(*Neuron)

// WithTemplate marks the neuron as an instance of template.
func WithTemplate(template *Neuron) NeuronOption {
	return func(n *Neuron) { n.template = template.id }
}

// AsTemplate marks the neuron as a template. Template neurons are activated
// like any other neuron but only serve to induce concrete neurons and
// synapses.
func AsTemplate() NeuronOption {
	return func(n *Neuron) { n.isTemplate = true }
}

func (n *Neuron) ID() int64        { return n.id }
func (n *Neuron) Label() string    { return n.label }
func (n *Neuron) Kind() NeuronKind { return n.kind }

// TemplateID returns the id of the template this neuron instantiates, or 0.
func (n *Neuron) TemplateID() int64 { return n.template }

// IsTemplate reports whether the neuron is a template.
func (n *Neuron) IsTemplate() bool { return n.isTemplate }

// Bias returns the neuron's bias.
func (n *Neuron) Bias() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.bias
}

// SetBias replaces the bias.
func (n *Neuron) SetBias(b float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bias = b
}

// Frequency returns how many activations of this neuron were created.
func (n *Neuron) Frequency() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.frequency
}

// CountActivation increments the activation frequency.
func (n *Neuron) CountActivation() {
	n.mu.Lock()
	n.frequency++
	n.mu.Unlock()
}

func (n *Neuron) String() string {
	return fmt.Sprintf("%s:%d(%s)", n.kind, n.id, n.label)
}
