// Package fields implements the lazily updated numeric cells that carry the
// state of activations and links. A field never recomputes its dependents
// synchronously: updates accumulate as pending deltas and are applied by a
// queued Step, which in turn forwards weighted deltas to downstream fields.
package fields

import (
	"fmt"
	"math"

	"spreadnet/internal/logging"
	"spreadnet/internal/queue"
)

// Transform maps a field's accumulated input to its visible value.
type Transform func(float64) float64

// Edge is a weighted dependency between two fields.
type Edge struct {
	From   *Field
	To     *Field
	Weight float64
}

// Field is a numeric cell owned by an activation or a link.
type Field struct {
	queue.ElementBase

	owner     queue.Element
	label     string
	phase     queue.Phase
	tolerance float64
	transform Transform

	input   float64
	value   float64
	pending float64
	step    *Step

	outputs  []*Edge
	inputs   []*Edge
	onChange []func(f *Field, old, new float64)
}

// Option configures a field.
type Option func(*Field)

// WithTransform makes the visible value a function of the summed input.
func WithTransform(fn Transform) Option {
	return func(f *Field) { f.transform = fn }
}

// WithPhase schedules the field's updates in phase p instead of inference.
func WithPhase(p queue.Phase) Option {
	return func(f *Field) { f.phase = p }
}

// New creates a field owned by owner. Updates smaller than tolerance are not
// propagated.
func New(owner queue.Element, label string, tolerance float64, opts ...Option) *Field {
	f := &Field{
		ElementBase: queue.NewElementBase(owner.Queue()),
		owner:       owner,
		label:       label,
		phase:       queue.PhaseInference,
		tolerance:   tolerance,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ElementID identifies the field by its owner and label.
func (f *Field) ElementID() string {
	return f.owner.ElementID() + "." + f.label
}

// Fired is the owner's fired timestamp.
func (f *Field) Fired() queue.Timestamp {
	return f.owner.Fired()
}

// Owner returns the element the field belongs to.
func (f *Field) Owner() queue.Element { return f.owner }

// Label returns the field name (bias, net, value, ...).
func (f *Field) Label() string { return f.label }

// Value returns the last processed value. Pending updates are not visible.
func (f *Field) Value() float64 { return f.value }

// Input returns the summed input the value was computed from.
func (f *Field) Input() float64 { return f.input }

// Pending returns the accumulated, not yet applied update.
func (f *Field) Pending() float64 { return f.pending }

// UpdatedValue returns the value the field will have once pending updates
// are applied.
func (f *Field) UpdatedValue() float64 {
	return f.apply(f.input + f.pending)
}

// IsQueued reports whether an update step is waiting in the queue.
func (f *Field) IsQueued() bool { return f.step != nil }

// Outputs returns the downstream edges.
func (f *Field) Outputs() []*Edge { return f.outputs }

// Inputs returns the upstream edges.
func (f *Field) Inputs() []*Edge { return f.inputs }

// OnChange registers a callback invoked after each processed update.
func (f *Field) OnChange(fn func(f *Field, old, new float64)) {
	f.onChange = append(f.onChange, fn)
}

// Connect adds a weighted edge to to. A value already settled on f is
// forwarded immediately as a pending update, so edges created late still
// deliver the full contribution.
func (f *Field) Connect(to *Field, weight float64) *Edge {
	e := &Edge{From: f, To: to, Weight: weight}
	f.outputs = append(f.outputs, e)
	to.inputs = append(to.inputs, e)
	if f.value != 0 {
		to.ReceiveUpdate(f.value * weight)
	}
	return e
}

// SetValue schedules whatever update brings the summed input to v.
func (f *Field) SetValue(v float64) {
	f.ReceiveUpdate(v - (f.input + f.pending))
}

// ReceiveUpdate accumulates delta. If no update step is queued one is
// created; otherwise the queued step is re-sorted to reflect the merged
// delta. Deltas whose accumulated magnitude stays below the tolerance are
// kept pending but not scheduled.
func (f *Field) ReceiveUpdate(delta float64) {
	if delta == 0 {
		return
	}
	f.pending += delta

	if f.step != nil {
		f.Queue().UpdateSortValue(f.step, sortValue(f.pending))
		return
	}
	if math.Abs(f.pending) < f.tolerance {
		logging.FieldDebug("%s: update %.6f below tolerance, not scheduled", f.ElementID(), f.pending)
		return
	}

	s := newStep(f)
	s.SetInitialSortValue(sortValue(f.pending))
	if f.Queue().Add(s) {
		f.step = s
	}
}

// process applies the pending update and forwards the weighted change of the
// visible value to every downstream field.
func (f *Field) process() {
	f.step = nil
	if f.pending == 0 {
		return
	}

	old := f.value
	f.input += f.pending
	f.pending = 0
	f.value = f.apply(f.input)

	delta := f.value - old
	logging.FieldDebug("%s: %.6f -> %.6f", f.ElementID(), old, f.value)
	if delta == 0 {
		return
	}

	for _, fn := range f.onChange {
		fn(f, old, f.value)
	}
	for _, e := range f.outputs {
		e.To.ReceiveUpdate(delta * e.Weight)
	}
}

func (f *Field) apply(in float64) float64 {
	if f.transform == nil {
		return in
	}
	return f.transform(in)
}

func (f *Field) String() string {
	return fmt.Sprintf("%s=%.4f", f.ElementID(), f.value)
}

// sortValue gives larger pending updates precedence within a phase.
// Magnitudes beyond the int64 range, and NaN, saturate at math.MaxInt64.
func sortValue(pending float64) int64 {
	v := math.Round(math.Abs(pending) * 1e6)
	if !(v < float64(math.MaxInt64)) {
		return math.MaxInt64
	}
	return int64(v)
}
