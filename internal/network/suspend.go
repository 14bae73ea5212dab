package network

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"spreadnet/internal/logging"
	"spreadnet/internal/store"
)

// ModelLabel is the store label of the model record.
const ModelLabel = "__model__"

// Suspend writes neuron id to the store and drops it from memory. Suspending
// an already suspended neuron is a no-op.
func (m *Model) Suspend(id int64) error {
	p, ok := m.Provider(id)
	if !ok {
		return fmt.Errorf("%w: id %d", ErrMissingNeuron, id)
	}

	m.retrieval.Lock()
	defer m.retrieval.Unlock()
	if p.neuron == nil {
		return nil
	}
	if err := m.storeNeuron(p.neuron); err != nil {
		return err
	}
	p.neuron = nil
	logging.NetworkDebug("suspended neuron %d (%s)", id, p.label)
	return nil
}

// SuspendAll suspends every loaded neuron.
func (m *Model) SuspendAll() error {
	var errs error
	for _, p := range m.Providers() {
		errs = multierr.Append(errs, m.Suspend(p.id))
	}
	return errs
}

func (m *Model) storeNeuron(n *Neuron) error {
	data, err := encodeNeuron(n)
	if err != nil {
		return fmt.Errorf("network: encode neuron %d: %w", n.id, err)
	}
	if err := m.store.Store(n.id, n.label, []byte(n.kind.String()), data); err != nil {
		return fmt.Errorf("network: store neuron %d: %w", n.id, err)
	}
	return nil
}

// Save persists every loaded neuron, the model record and the label table,
// then stores the index.
func (m *Model) Save() error {
	timer := logging.StartTimer(logging.CategoryNetwork, "Model.Save")
	defer timer.Stop()

	m.mu.RLock()
	defer m.mu.RUnlock()

	rec := modelRecord{}
	for _, p := range m.sortedProvidersLocked() {
		rec.Neurons = append(rec.Neurons, directoryEntry{ID: p.id, Label: p.label, Kind: p.kind.String()})
		if n := p.loaded(); n != nil {
			if err := m.storeNeuron(n); err != nil {
				return err
			}
		}
		if err := m.store.PutLabel(p.label, p.id); err != nil {
			return fmt.Errorf("network: put label %q: %w", p.label, err)
		}
	}
	for _, s := range m.sortedSynapsesLocked() {
		rec.Synapses = append(rec.Synapses, encodeSynapse(s))
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("network: encode model: %w", err)
	}
	id, ok := m.store.IDByLabel(ModelLabel)
	if !ok {
		if id, err = m.store.CreateID(); err != nil {
			return fmt.Errorf("network: create model id: %w", err)
		}
		if err := m.store.PutLabel(ModelLabel, id); err != nil {
			return fmt.Errorf("network: put model label: %w", err)
		}
	}
	if err := m.store.Store(id, ModelLabel, nil, data); err != nil {
		return fmt.Errorf("network: store model: %w", err)
	}
	if err := m.store.StoreIndex(); err != nil {
		return fmt.Errorf("network: store index: %w", err)
	}
	logging.Network("saved model: %d neurons, %d synapses", len(rec.Neurons), len(rec.Synapses))
	return nil
}

// Open loads a model from s. Every neuron starts suspended and is retrieved
// on first use. A store without a model record yields an empty model.
func Open(s store.SuspensionCallback) (*Model, error) {
	if err := s.LoadIndex(); err != nil {
		return nil, fmt.Errorf("network: load index: %w", err)
	}
	m := NewModel(s)

	id, ok := s.IDByLabel(ModelLabel)
	if !ok {
		logging.Network("no model record in store, starting empty")
		return m, nil
	}
	data, err := s.Retrieve(id)
	if errors.Is(err, store.ErrMissingEntity) {
		return nil, fmt.Errorf("%w: model record: %w", ErrMissingNeuron, err)
	}
	if err != nil {
		return nil, fmt.Errorf("network: retrieve model: %w", err)
	}
	var rec modelRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("network: decode model: %w", err)
	}

	for _, e := range rec.Neurons {
		kind, err := ParseNeuronKind(e.Kind)
		if err != nil {
			return nil, err
		}
		m.providers[e.ID] = &Provider{model: m, id: e.ID, label: e.Label, kind: kind}
		m.labels[e.Label] = e.ID
	}
	for _, sr := range rec.Synapses {
		syn, err := decodeSynapse(sr)
		if err != nil {
			return nil, err
		}
		m.addSynapseLocked(syn)
	}
	logging.Network("opened model: %d neurons, %d synapses", len(rec.Neurons), len(rec.Synapses))
	return m, nil
}

func (m *Model) sortedProvidersLocked() []*Provider {
	out := make([]*Provider, 0, len(m.providers))
	for _, p := range m.providers {
		out = append(out, p)
	}
	sortProviders(out)
	return out
}

func (m *Model) sortedSynapsesLocked() []*Synapse {
	out := make([]*Synapse, 0, len(m.synapses))
	for _, s := range m.synapses {
		out = append(out, s)
	}
	return sortedSynapses(out)
}
