package network

import (
	"fmt"
	"math"
	"sync"
)

// Synapse is a typed, weighted edge between two neurons.
type Synapse struct {
	id       int64
	kind     SynapseKind
	input    int64
	output   int64
	template int64
	rng      Range

	mu     sync.RWMutex
	weight float64
}

// SynapseOption configures a synapse at creation.
type SynapseOption func(*Synapse)

// WithRange sets the position range of a relation synapse.
func WithRange(r Range) SynapseOption {
	return func(s *Synapse) { s.rng = r }
}

func withTemplate(id int64) SynapseOption {
	return func(s *Synapse) { s.template = id }
}

func (s *Synapse) ID() int64         { return s.id }
func (s *Synapse) Kind() SynapseKind { return s.kind }
func (s *Synapse) InputID() int64    { return s.input }
func (s *Synapse) OutputID() int64   { return s.output }

// TemplateID returns the template synapse this one was instantiated from, or 0.
func (s *Synapse) TemplateID() int64 { return s.template }

// Range returns the position range. Only positional kinds consult it.
func (s *Synapse) Range() Range { return s.rng }

// Weight returns the current weight.
func (s *Synapse) Weight() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.weight
}

// SetWeight replaces the weight. Negative kinds store the negated magnitude.
func (s *Synapse) SetWeight(w float64) {
	if s.kind.Negative() {
		w = -math.Abs(w)
	}
	s.mu.Lock()
	s.weight = w
	s.mu.Unlock()
}

// AllowsOffset reports whether a link may join activations whose positions
// differ by offset. Non-positional synapses allow any offset.
func (s *Synapse) AllowsOffset(offset int) bool {
	if !s.kind.Positional() {
		return true
	}
	return s.rng.Contains(offset)
}

func (s *Synapse) String() string {
	return fmt.Sprintf("%s:%d(%d->%d w=%.3f)", s.kind, s.id, s.input, s.output, s.Weight())
}
