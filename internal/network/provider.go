package network

import (
	"errors"
	"fmt"

	"spreadnet/internal/store"
)

// Provider is the directory entry of a neuron. The neuron itself may be
// suspended; Neuron retrieves it on demand.
type Provider struct {
	model *Model
	id    int64
	label string
	kind  NeuronKind

	// guarded by model.retrieval
	neuron *Neuron
}

func (p *Provider) ID() int64        { return p.id }
func (p *Provider) Label() string    { return p.label }
func (p *Provider) Kind() NeuronKind { return p.kind }

// IsSuspended reports whether the neuron is currently out of memory.
func (p *Provider) IsSuspended() bool {
	p.model.retrieval.Lock()
	defer p.model.retrieval.Unlock()
	return p.neuron == nil
}

// Neuron returns the neuron, retrieving and decoding it if suspended.
func (p *Provider) Neuron() (*Neuron, error) {
	p.model.retrieval.Lock()
	defer p.model.retrieval.Unlock()
	if p.neuron != nil {
		return p.neuron, nil
	}

	data, err := p.model.store.Retrieve(p.id)
	if errors.Is(err, store.ErrMissingEntity) {
		return nil, fmt.Errorf("%w: %d (%s): %w", ErrMissingNeuron, p.id, p.label, err)
	}
	if err != nil {
		return nil, fmt.Errorf("network: retrieve neuron %d: %w", p.id, err)
	}
	n, err := decodeNeuron(data)
	if err != nil {
		return nil, fmt.Errorf("network: decode neuron %d: %w", p.id, err)
	}
	p.neuron = n
	p.model.log.Debug("retrieved neuron %s", n)
	return n, nil
}

func (p *Provider) loaded() *Neuron {
	p.model.retrieval.Lock()
	defer p.model.retrieval.Unlock()
	return p.neuron
}
