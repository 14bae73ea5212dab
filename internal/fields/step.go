package fields

import "spreadnet/internal/queue"

// Step applies the pending update of one field.
type Step struct {
	queue.StepBase
	field *Field
}

func newStep(f *Field) *Step {
	return &Step{
		StepBase: queue.NewStepBase(f, f.phase),
		field:    f,
	}
}

// ID is constant: a field has at most one queued update.
func (s *Step) ID() string { return "update" }

// Field returns the field the step updates.
func (s *Step) Field() *Field { return s.field }

// Process applies the update.
func (s *Step) Process() error {
	s.field.process()
	return nil
}
