package queue

// Step is a deferred unit of work bound to exactly one element.
type Step interface {
	Element() Element
	Phase() Phase

	// ID is the step's identity within its element. While a step with a
	// given ID is queued, adding another one with the same ID is a no-op.
	ID() string

	Process() error

	base() *StepBase
}

// StepBase holds the scheduling state of a step. Embed it in concrete steps.
type StepBase struct {
	element   Element
	phase     Phase
	fired     Timestamp
	created   Timestamp
	sortValue int64

	key       Key
	queued    bool
	processed bool
	index     int
	round     int
}

// NewStepBase snapshots the element's fired and created timestamps.
func NewStepBase(e Element, p Phase) StepBase {
	return StepBase{
		element: e,
		phase:   p,
		fired:   e.Fired(),
		created: e.Created(),
		index:   -1,
	}
}

func (s *StepBase) base() *StepBase { return s }

// Element returns the element the step is bound to.
func (s *StepBase) Element() Element { return s.element }

// Phase returns the processing phase.
func (s *StepBase) Phase() Phase { return s.phase }

// Fired returns the fired snapshot taken at construction.
func (s *StepBase) Fired() Timestamp { return s.fired }

// Created returns the element creation snapshot taken at construction.
func (s *StepBase) Created() Timestamp { return s.created }

// SortValue returns the tie-break priority (higher first).
func (s *StepBase) SortValue() int64 { return s.sortValue }

// SetInitialSortValue sets the sort value of a step that is not queued yet.
// Use Queue.UpdateSortValue once the step is queued.
func (s *StepBase) SetInitialSortValue(v int64) bool {
	if s.queued {
		return false
	}
	s.sortValue = v
	return true
}

// Key returns the current key and whether the step is queued.
func (s *StepBase) Key() (Key, bool) { return s.key, s.queued }

// IsQueued reports whether the step currently sits in its queue.
func (s *StepBase) IsQueued() bool { return s.queued }

// IsProcessed reports whether the step has run.
func (s *StepBase) IsProcessed() bool { return s.processed }

// Round returns the queue round the step was added in.
func (s *StepBase) Round() int { return s.round }
