package queue

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type testElement struct {
	ElementBase
	name string
}

func newTestElement(q *Queue, name string) *testElement {
	return &testElement{ElementBase: NewElementBase(q), name: name}
}

func (e *testElement) ElementID() string { return e.name }

type testStep struct {
	StepBase
	id   string
	log  *[]string
	runs int
	fn   func() error
}

func newTestStep(e Element, p Phase, id string, log *[]string) *testStep {
	return &testStep{StepBase: NewStepBase(e, p), id: id, log: log}
}

func (s *testStep) ID() string { return s.id }

func (s *testStep) Process() error {
	s.runs++
	if s.log != nil {
		*s.log = append(*s.log, s.id)
	}
	if s.fn != nil {
		return s.fn()
	}
	return nil
}

type recordingListener struct {
	queue    []string
	elements []string
}

func (r *recordingListener) OnQueueEvent(t EventType, s Step) {
	r.queue = append(r.queue, fmt.Sprintf("%s:%s", t, s.ID()))
}

func (r *recordingListener) OnElementEvent(t EventType, e Element) {
	r.elements = append(r.elements, fmt.Sprintf("%s:%s", t, e.ElementID()))
}

func TestCompareFired_NotSetSortsLast(t *testing.T) {
	assert.Equal(t, -1, CompareFired(3, NotSet))
	assert.Equal(t, 1, CompareFired(NotSet, 3))
	assert.Equal(t, 0, CompareFired(NotSet, NotSet))
	assert.Equal(t, -1, CompareFired(1, 2))
	assert.Equal(t, 1, CompareFired(5, 2))
}

func TestKey_Order(t *testing.T) {
	tests := []struct {
		name string
		a, b Key
		want int
	}{
		{"phase first", Key{Phase: PhaseInputLinking, Fired: NotSet, Timestamp: 9}, Key{Phase: PhaseInference, Fired: 1, Timestamp: 1}, -1},
		{"fired before not set", Key{Phase: PhaseInference, Fired: 4, Timestamp: 9}, Key{Phase: PhaseInference, Fired: NotSet, Timestamp: 1}, -1},
		{"earlier fired first", Key{Phase: PhaseInference, Fired: 2, Timestamp: 9}, Key{Phase: PhaseInference, Fired: 4, Timestamp: 1}, -1},
		{"higher sort value first", Key{Phase: PhaseInference, Fired: 2, SortValue: 10, Timestamp: 9}, Key{Phase: PhaseInference, Fired: 2, SortValue: 5, Timestamp: 1}, -1},
		{"timestamp tie-break", Key{Phase: PhaseInference, Fired: 2, SortValue: 5, Timestamp: 3}, Key{Phase: PhaseInference, Fired: 2, SortValue: 5, Timestamp: 7}, -1},
		{"identical", Key{Phase: PhaseInference, Fired: 2, SortValue: 5, Timestamp: 3}, Key{Phase: PhaseInference, Fired: 2, SortValue: 5, Timestamp: 3}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Compare(tt.b))
			assert.Equal(t, -tt.want, tt.b.Compare(tt.a))
		})
	}
}

func TestKey_TotalOrder(t *testing.T) {
	var keys []Key
	ts := Timestamp(0)
	for _, p := range []Phase{PhaseInputLinking, PhaseInference} {
		for _, f := range []Timestamp{NotSet, 1, 2} {
			for _, sv := range []int64{0, 5} {
				for i := 0; i < 2; i++ {
					ts++
					keys = append(keys, Key{Phase: p, Fired: f, SortValue: sv, Timestamp: ts})
				}
			}
		}
	}

	for _, a := range keys {
		for _, b := range keys {
			ab, ba := a.Compare(b), b.Compare(a)
			require.Equal(t, ab, -ba, "antisymmetry %v %v", a, b)
			if a != b {
				require.NotZero(t, ab, "distinct keys must not compare equal: %v %v", a, b)
			}
			for _, c := range keys {
				if ab < 0 && b.Compare(c) < 0 {
					require.Negative(t, a.Compare(c), "transitivity %v < %v < %v", a, b, c)
				}
			}
		}
	}
}

func TestQueue_DrainOrder(t *testing.T) {
	q := New("t")
	fired := newTestElement(q, "fired")
	fired.SetFired(q.NextTimestamp())
	pending := newTestElement(q, "pending")

	var log []string
	steps := []*testStep{
		newTestStep(pending, PhaseInference, "pending-inference", &log),
		newTestStep(fired, PhaseInference, "fired-inference", &log),
		newTestStep(pending, PhaseInputLinking, "pending-linking", &log),
		newTestStep(fired, PhaseTemplate, "fired-template", &log),
	}
	high := newTestStep(pending, PhaseInference, "pending-inference-high", &log)
	high.SetInitialSortValue(100)
	steps = append(steps, high)

	for _, s := range steps {
		require.True(t, q.Add(s))
	}
	require.NoError(t, q.Process())

	want := []string{
		"pending-linking",
		"fired-inference",
		"pending-inference-high",
		"pending-inference",
		"fired-template",
	}
	if diff := cmp.Diff(want, log); diff != "" {
		t.Errorf("drain order mismatch (-want +got):\n%s", diff)
	}
}

func TestQueue_EqualKeysOrderByTimestamp(t *testing.T) {
	q := New("t")
	e := newTestElement(q, "e")
	var log []string
	for i := 0; i < 5; i++ {
		require.True(t, q.Add(newTestStep(e, PhaseInference, fmt.Sprintf("s%d", i), &log)))
	}
	require.NoError(t, q.Process())
	assert.Equal(t, []string{"s0", "s1", "s2", "s3", "s4"}, log)
}

func TestQueue_NoDoubleProcessing(t *testing.T) {
	q := New("t")
	e := newTestElement(q, "e")

	const n = 25
	steps := make([]*testStep, n)
	for i := range steps {
		steps[i] = newTestStep(e, Phase(i%3), fmt.Sprintf("s%d", i), nil)
		require.True(t, q.Add(steps[i]))
	}
	require.NoError(t, q.Process())

	assert.Equal(t, n, q.ProcessedCount())
	for _, s := range steps {
		assert.Equal(t, 1, s.runs, "step %s", s.id)
		assert.True(t, s.IsProcessed())
		assert.False(t, q.Add(s), "processed step must not be re-added")
	}
	require.NoError(t, q.Process())
	assert.Equal(t, n, q.ProcessedCount())
}

func TestQueue_DuplicateIdentityIsNoop(t *testing.T) {
	q := New("t")
	e := newTestElement(q, "e")

	first := newTestStep(e, PhaseInference, "same", nil)
	second := newTestStep(e, PhaseInference, "same", nil)
	assert.True(t, q.Add(first))
	assert.False(t, q.Add(first), "already queued")
	assert.False(t, q.Add(second), "same identity on same element")
	assert.Equal(t, 1, q.Len())

	queued, ok := e.QueuedStep("same")
	require.True(t, ok)
	assert.Same(t, first, queued)

	require.NoError(t, q.Process())
	assert.Equal(t, 0, e.QueuedCount())
	assert.True(t, q.Add(second), "identity is free again after processing")
}

func TestQueue_UpdateSortValue(t *testing.T) {
	q := New("t")
	e := newTestElement(q, "e")

	var log []string
	mid := newTestStep(e, PhaseInference, "mid", &log)
	mid.SetInitialSortValue(7)
	moved := newTestStep(e, PhaseInference, "moved", &log)
	moved.SetInitialSortValue(5)
	require.True(t, q.Add(mid))
	require.True(t, q.Add(moved))

	oldKey, queued := moved.Key()
	require.True(t, queued)
	assert.False(t, moved.SetInitialSortValue(99), "queued steps must go through the queue")

	q.UpdateSortValue(moved, 10)

	steps := q.Steps()
	require.Len(t, steps, 2)
	count := 0
	for _, s := range steps {
		if s == Step(moved) {
			count++
		}
		k, _ := s.base().Key()
		assert.NotEqual(t, oldKey, k, "old key must be gone")
	}
	assert.Equal(t, 1, count)

	newKey, queued := moved.Key()
	require.True(t, queued)
	assert.Equal(t, int64(10), newKey.SortValue)
	assert.Equal(t, oldKey.Timestamp, newKey.Timestamp)

	require.NoError(t, q.Process())
	assert.Equal(t, []string{"moved", "mid"}, log)
}

func TestQueue_UpdateSortValueOfUnqueuedStep(t *testing.T) {
	q := New("t")
	e := newTestElement(q, "e")
	s := newTestStep(e, PhaseInference, "s", nil)

	q.UpdateSortValue(s, 3)
	assert.Equal(t, int64(3), s.SortValue())
	assert.Equal(t, 0, q.Len())
}

func TestQueue_ReentrantScheduling(t *testing.T) {
	q := New("t")
	e := newTestElement(q, "e")

	var log []string
	depth := 0
	var spawn func() error
	spawn = func() error {
		depth++
		if depth < 4 {
			next := newTestStep(e, PhaseInference, fmt.Sprintf("child%d", depth), &log)
			next.fn = spawn
			q.Add(next)
		}
		return nil
	}
	root := newTestStep(e, PhaseInference, "root", &log)
	root.fn = spawn
	q.Add(root)

	require.NoError(t, q.Process())
	assert.Equal(t, []string{"root", "child1", "child2", "child3"}, log)
	assert.Equal(t, 1, q.Round())
	assert.Equal(t, 0, q.Len())
}

func TestQueue_CloseMakesAddNoop(t *testing.T) {
	q := New("t")
	e := newTestElement(q, "e")

	var log []string
	first := newTestStep(e, PhaseInference, "first", &log)
	first.fn = func() error {
		q.Close()
		assert.False(t, q.Add(newTestStep(e, PhaseInference, "late", &log)))
		return nil
	}
	q.Add(first)
	q.Add(newTestStep(e, PhaseInference, "second", &log))

	require.NoError(t, q.Process())
	assert.Equal(t, []string{"first"}, log)
	assert.True(t, q.IsClosed())
	assert.Equal(t, 1, q.Len())
}

func TestQueue_StepErrorsAreAggregated(t *testing.T) {
	q := New("t")
	e := newTestElement(q, "e")
	boom := errors.New("boom")

	var log []string
	for i := 0; i < 3; i++ {
		s := newTestStep(e, PhaseInference, fmt.Sprintf("s%d", i), &log)
		if i != 1 {
			s.fn = func() error { return boom }
		}
		q.Add(s)
	}

	err := q.Process()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, log, 3, "drain continues past failures")
}

func TestQueue_Remove(t *testing.T) {
	q := New("t")
	e := newTestElement(q, "e")
	s := newTestStep(e, PhaseInference, "s", nil)

	assert.False(t, q.Remove(s))
	q.Add(s)
	assert.True(t, q.Remove(s))
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 0, e.QueuedCount())
	assert.False(t, s.IsProcessed())
}

func TestQueue_Listener(t *testing.T) {
	q := New("t")
	l := &recordingListener{}
	q.AddListener(l)

	e := newTestElement(q, "e")
	q.EmitElementEvent(EventElementCreated, e)
	q.Add(newTestStep(e, PhaseInference, "s", nil))
	require.NoError(t, q.Process())

	assert.Equal(t, []string{"created:e"}, l.elements)
	assert.Equal(t, []string{"added:s", "processed:s"}, l.queue)
}

func TestElementBase_SetFiredOnce(t *testing.T) {
	q := New("t")
	e := newTestElement(q, "e")
	assert.Equal(t, NotSet, e.Fired())
	assert.False(t, e.SetFired(NotSet))

	ts := q.NextTimestamp()
	assert.True(t, e.SetFired(ts))
	assert.False(t, e.SetFired(q.NextTimestamp()))
	assert.Equal(t, ts, e.Fired())
}

func TestStep_SnapshotsFired(t *testing.T) {
	q := New("t")
	e := newTestElement(q, "e")
	s := newTestStep(e, PhaseInference, "s", nil)
	q.Add(s)

	e.SetFired(q.NextTimestamp())

	k, _ := s.Key()
	assert.Equal(t, NotSet, k.Fired, "key keeps the snapshot taken at construction")
	assert.Equal(t, NotSet, s.Fired())
}
