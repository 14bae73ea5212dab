package thought

import (
	"fmt"

	"spreadnet/internal/network"
	"spreadnet/internal/queue"
)

// LinkingStep links an activation for one of its binding signals. Input
// linking runs before output linking.
type LinkingStep struct {
	queue.StepBase
	act *Activation
	bs  *BindingSignal
	dir network.Direction
}

func newLinkingStep(act *Activation, bs *BindingSignal, dir network.Direction) *LinkingStep {
	phase := queue.PhaseInputLinking
	if dir == network.Output {
		phase = queue.PhaseOutputLinking
	}
	return &LinkingStep{
		StepBase: queue.NewStepBase(act, phase),
		act:      act,
		bs:       bs,
		dir:      dir,
	}
}

func (s *LinkingStep) ID() string {
	return fmt.Sprintf("link:%s:%d:%s", s.dir, s.bs.origin.id, s.bs.scope)
}

func (s *LinkingStep) Process() error {
	return s.act.thought.linking.Link(s.act, []network.Direction{s.dir}, s.bs)
}

// PropagateStep creates the output activations of a fired activation.
type PropagateStep struct {
	queue.StepBase
	act *Activation
}

func newPropagateStep(act *Activation) *PropagateStep {
	return &PropagateStep{StepBase: queue.NewStepBase(act, queue.PhaseOutputLinking), act: act}
}

func (s *PropagateStep) ID() string { return "propagate" }

func (s *PropagateStep) Process() error {
	return s.act.thought.linking.Propagate(s.act)
}

// TemplateStep runs template propagation and linking for a fired activation
// whose neuron instantiates a template.
type TemplateStep struct {
	queue.StepBase
	act *Activation
}

func newTemplateStep(act *Activation) *TemplateStep {
	return &TemplateStep{StepBase: queue.NewStepBase(act, queue.PhaseTemplate), act: act}
}

func (s *TemplateStep) ID() string { return "template" }

func (s *TemplateStep) Process() error {
	tt := s.act.thought.templates
	if err := tt.Propagate(s.act); err != nil {
		return err
	}
	dirs := []network.Direction{network.Input, network.Output}
	for _, bs := range s.act.Signals() {
		if err := tt.Link(s.act, dirs, bs); err != nil {
			return err
		}
	}
	return nil
}
