package config

import "fmt"

// EngineConfig tunes the queued inference engine.
type EngineConfig struct {
	// Field updates whose magnitude is below Epsilon are not propagated.
	// This is the termination mechanism for cyclic field graphs.
	Epsilon float64 `yaml:"epsilon" json:"epsilon"`

	// An activation fires the first time its value exceeds this threshold.
	FiringThreshold float64 `yaml:"firing_threshold" json:"firing_threshold"`

	// Binding signals stop propagating after this many hops.
	MaxBindingSignalDepth int `yaml:"max_binding_signal_depth" json:"max_binding_signal_depth"`

	// Upper bound on down+up steps of a loop-closure traversal.
	MaxVisitorDepth int `yaml:"max_visitor_depth" json:"max_visitor_depth"`

	// Enables the template linking phase (and induction).
	TemplatesEnabled bool `yaml:"templates_enabled" json:"templates_enabled"`

	// Extra positions searched on each side when collecting loosely related
	// binding signals for relation synapses.
	LooselyRelatedRange int `yaml:"loosely_related_range" json:"loosely_related_range"`
}

// DefaultEngineConfig returns the engine defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Epsilon:               0.0001,
		FiringThreshold:       0.0,
		MaxBindingSignalDepth: 8,
		MaxVisitorDepth:       6,
		TemplatesEnabled:      false,
		LooselyRelatedRange:   1,
	}
}

// Validate checks that engine parameters are within acceptable ranges.
func (e EngineConfig) Validate() error {
	if e.Epsilon <= 0 {
		return fmt.Errorf("engine.epsilon must be > 0, got %v", e.Epsilon)
	}
	if e.MaxBindingSignalDepth < 1 {
		return fmt.Errorf("engine.max_binding_signal_depth must be >= 1")
	}
	if e.MaxVisitorDepth < 2 {
		return fmt.Errorf("engine.max_visitor_depth must be >= 2")
	}
	if e.LooselyRelatedRange < 1 {
		return fmt.Errorf("engine.loosely_related_range must be >= 1")
	}
	return nil
}
