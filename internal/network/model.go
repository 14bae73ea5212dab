package network

import (
	"fmt"
	"sort"
	"sync"

	"spreadnet/internal/logging"
	"spreadnet/internal/store"
)

type instanceKey struct {
	template int64
	input    int64
	output   int64
}

// Model owns the neuron directory and all synapses. It is shared by every
// thought processed against it and is safe for concurrent use. Neuron
// retrieval from the store is serialized by a dedicated lock.
type Model struct {
	mu        sync.RWMutex
	retrieval sync.Mutex

	store     store.SuspensionCallback
	providers map[int64]*Provider
	labels    map[string]int64
	synapses  map[int64]*Synapse
	outputs   map[int64][]*Synapse
	inputs    map[int64][]*Synapse
	instances map[instanceKey]*Synapse

	log *logging.Logger
}

// NewModel creates an empty model backed by s. A nil store keeps suspended
// neurons in memory.
func NewModel(s store.SuspensionCallback) *Model {
	if s == nil {
		s = store.NewMemoryStore()
	}
	return &Model{
		store:     s,
		providers: make(map[int64]*Provider),
		labels:    make(map[string]int64),
		synapses:  make(map[int64]*Synapse),
		outputs:   make(map[int64][]*Synapse),
		inputs:    make(map[int64][]*Synapse),
		instances: make(map[instanceKey]*Synapse),
		log:       logging.Get(logging.CategoryNetwork),
	}
}

// Store returns the suspension callback.
func (m *Model) Store() store.SuspensionCallback { return m.store }

// NewNeuron creates a neuron with a unique label.
func (m *Model) NewNeuron(label string, kind NeuronKind, bias float64, opts ...NeuronOption) (*Neuron, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.newNeuronLocked(label, kind, bias, opts...)
}

// GetOrCreateNeuron returns the neuron labelled label, creating it if the
// label is unknown. created reports which happened.
func (m *Model) GetOrCreateNeuron(label string, kind NeuronKind, bias float64, opts ...NeuronOption) (n *Neuron, created bool, err error) {
	m.mu.Lock()
	if id, ok := m.labels[label]; ok {
		p := m.providers[id]
		m.mu.Unlock()
		n, err = p.Neuron()
		return n, false, err
	}
	defer m.mu.Unlock()
	n, err = m.newNeuronLocked(label, kind, bias, opts...)
	return n, err == nil, err
}

func (m *Model) newNeuronLocked(label string, kind NeuronKind, bias float64, opts ...NeuronOption) (*Neuron, error) {
	if label == "" {
		return nil, fmt.Errorf("network: neuron label required")
	}
	if _, ok := m.labels[label]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateLabel, label)
	}
	id, err := m.store.CreateID()
	if err != nil {
		return nil, fmt.Errorf("network: create neuron id: %w", err)
	}

	n := &Neuron{id: id, label: label, kind: kind, bias: bias}
	for _, opt := range opts {
		opt(n)
	}
	m.providers[id] = &Provider{model: m, id: id, label: label, kind: kind, neuron: n}
	m.labels[label] = id
	m.log.Debug("created neuron %s", n)
	return n, nil
}

// NewSynapse creates a synapse of kind from in to out.
func (m *Model) NewSynapse(kind SynapseKind, in, out *Neuron, weight float64, opts ...SynapseOption) (*Synapse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.newSynapseLocked(kind, in, out, weight, opts...)
}

func (m *Model) newSynapseLocked(kind SynapseKind, in, out *Neuron, weight float64, opts ...SynapseOption) (*Synapse, error) {
	if in.Kind() != kind.InputKind() || out.Kind() != kind.OutputKind() {
		return nil, fmt.Errorf("%w: %s from %s to %s", ErrKindMismatch, kind, in.Kind(), out.Kind())
	}
	id, err := m.store.CreateID()
	if err != nil {
		return nil, fmt.Errorf("network: create synapse id: %w", err)
	}

	s := &Synapse{id: id, kind: kind, input: in.ID(), output: out.ID()}
	for _, opt := range opts {
		opt(s)
	}
	s.SetWeight(weight)
	m.addSynapseLocked(s)
	m.log.Debug("created synapse %s", s)
	return s, nil
}

func (m *Model) addSynapseLocked(s *Synapse) {
	m.synapses[s.id] = s
	m.outputs[s.input] = append(m.outputs[s.input], s)
	m.inputs[s.output] = append(m.inputs[s.output], s)
	if s.template != 0 {
		m.instances[instanceKey{s.template, s.input, s.output}] = s
	}
}

// Neuron returns the neuron with the given id, retrieving it from the store
// if it is suspended.
func (m *Model) Neuron(id int64) (*Neuron, error) {
	p, ok := m.Provider(id)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrMissingNeuron, id)
	}
	return p.Neuron()
}

// NeuronByLabel resolves a label to its neuron.
func (m *Model) NeuronByLabel(label string) (*Neuron, error) {
	m.mu.RLock()
	id, ok := m.labels[label]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: label %q", ErrMissingNeuron, label)
	}
	return m.Neuron(id)
}

// Provider returns the directory entry for id.
func (m *Model) Provider(id int64) (*Provider, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.providers[id]
	return p, ok
}

// Providers returns every directory entry ordered by id.
func (m *Model) Providers() []*Provider {
	m.mu.RLock()
	out := make([]*Provider, 0, len(m.providers))
	for _, p := range m.providers {
		out = append(out, p)
	}
	m.mu.RUnlock()
	sortProviders(out)
	return out
}

func sortProviders(ps []*Provider) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].id < ps[j].id })
}

// Synapse returns the synapse with the given id.
func (m *Model) Synapse(id int64) (*Synapse, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.synapses[id]
	return s, ok
}

// OutputSynapses returns the synapses leaving neuron id, ordered by id.
func (m *Model) OutputSynapses(id int64) []*Synapse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedSynapses(m.outputs[id])
}

// InputSynapses returns the synapses entering neuron id, ordered by id.
func (m *Model) InputSynapses(id int64) []*Synapse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedSynapses(m.inputs[id])
}

// Synapses returns the synapses of neuron id in direction dir.
func (m *Model) Synapses(id int64, dir Direction) []*Synapse {
	if dir == Input {
		return m.InputSynapses(id)
	}
	return m.OutputSynapses(id)
}

// NeuronCount returns the number of neurons in the directory.
func (m *Model) NeuronCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.providers)
}

// SynapseCount returns the number of synapses.
func (m *Model) SynapseCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.synapses)
}

func sortedSynapses(in []*Synapse) []*Synapse {
	out := make([]*Synapse, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}
