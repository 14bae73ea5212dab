package network

import "encoding/json"

type neuronRecord struct {
	ID         int64   `json:"id"`
	Label      string  `json:"label"`
	Kind       string  `json:"kind"`
	Template   int64   `json:"template,omitempty"`
	IsTemplate bool    `json:"is_template,omitempty"`
	Bias       float64 `json:"bias"`
	Frequency  int64   `json:"frequency"`
}

type directoryEntry struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
	Kind  string `json:"kind"`
}

type synapseRecord struct {
	ID       int64   `json:"id"`
	Kind     string  `json:"kind"`
	Input    int64   `json:"input"`
	Output   int64   `json:"output"`
	Template int64   `json:"template,omitempty"`
	Range    *Range  `json:"range,omitempty"`
	Weight   float64 `json:"weight"`
}

// modelRecord is stored under the reserved model label. It carries the
// neuron directory and every synapse; neuron state is stored per neuron.
type modelRecord struct {
	Neurons  []directoryEntry `json:"neurons"`
	Synapses []synapseRecord  `json:"synapses"`
}

func encodeNeuron(n *Neuron) ([]byte, error) {
	n.mu.Lock()
	rec := neuronRecord{
		ID:         n.id,
		Label:      n.label,
		Kind:       n.kind.String(),
		Template:   n.template,
		IsTemplate: n.isTemplate,
		Bias:       n.bias,
		Frequency:  n.frequency,
	}
	n.mu.Unlock()
	return json.Marshal(rec)
}

func decodeNeuron(data []byte) (*Neuron, error) {
	var rec neuronRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	kind, err := ParseNeuronKind(rec.Kind)
	if err != nil {
		return nil, err
	}
	return &Neuron{
		id:         rec.ID,
		label:      rec.Label,
		kind:       kind,
		template:   rec.Template,
		isTemplate: rec.IsTemplate,
		bias:       rec.Bias,
		frequency:  rec.Frequency,
	}, nil
}

func encodeSynapse(s *Synapse) synapseRecord {
	rec := synapseRecord{
		ID:       s.id,
		Kind:     s.kind.String(),
		Input:    s.input,
		Output:   s.output,
		Template: s.template,
		Weight:   s.Weight(),
	}
	if s.kind.Positional() {
		r := s.rng
		rec.Range = &r
	}
	return rec
}

func decodeSynapse(rec synapseRecord) (*Synapse, error) {
	kind, err := ParseSynapseKind(rec.Kind)
	if err != nil {
		return nil, err
	}
	s := &Synapse{
		id:       rec.ID,
		kind:     kind,
		input:    rec.Input,
		output:   rec.Output,
		template: rec.Template,
		weight:   rec.Weight,
	}
	if rec.Range != nil {
		s.rng = *rec.Range
	}
	return s, nil
}
