package queue

import "fmt"

// Phase is the primary sort key of a scheduled step.
type Phase int

const (
	// PhaseInputLinking links freshly created activations to existing inputs.
	PhaseInputLinking Phase = iota

	// PhaseOutputLinking links and propagates from fired activations.
	PhaseOutputLinking

	// PhaseInference applies pending field updates.
	PhaseInference

	// PhaseTemplate runs template linking and induction.
	PhaseTemplate

	// PhaseTraining is reserved for the external trainer.
	PhaseTraining
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseInputLinking:
		return "INPUT_LINKING"
	case PhaseOutputLinking:
		return "OUTPUT_LINKING"
	case PhaseInference:
		return "INFERENCE"
	case PhaseTemplate:
		return "TEMPLATE"
	case PhaseTraining:
		return "TRAINING"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}
