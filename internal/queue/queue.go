package queue

import (
	"container/heap"
	"fmt"
	"sort"

	"spreadnet/internal/logging"

	"go.uber.org/multierr"
)

// Queue is the priority scheduler owned by one thought. It is not safe for
// concurrent use: all steps of a thought are drained by a single goroutine.
type Queue struct {
	name      string
	clock     Timestamp
	round     int
	items     stepHeap
	closed    bool
	processed int
	listeners []Listener
	log       *logging.Logger
}

// New creates an empty queue. name identifies the owning thought in logs.
func New(name string) *Queue {
	q := &Queue{
		name: name,
		log:  logging.Get(logging.CategoryQueue).With("thought", name),
	}
	heap.Init(&q.items)
	return q
}

// Name returns the owner name passed to New.
func (q *Queue) Name() string { return q.name }

// NextTimestamp advances the logical clock and returns the new instant.
func (q *Queue) NextTimestamp() Timestamp {
	q.clock++
	return q.clock
}

// CurrentTimestamp returns the last issued instant without advancing.
func (q *Queue) CurrentTimestamp() Timestamp { return q.clock }

// Round returns the number of drains started so far.
func (q *Queue) Round() int { return q.round }

// Len returns the number of queued steps.
func (q *Queue) Len() int { return len(q.items) }

// ProcessedCount returns how many steps have been processed.
func (q *Queue) ProcessedCount() int { return q.processed }

// AddListener registers an event listener.
func (q *Queue) AddListener(l Listener) {
	q.listeners = append(q.listeners, l)
}

// Close tears the queue down. The step currently running finishes normally,
// every later Add is a silent no-op and the drain loop stops.
func (q *Queue) Close() {
	if q.closed {
		return
	}
	q.closed = true
	q.log.Debug("queue closed with %d pending steps", len(q.items))
}

// IsClosed reports whether Close was called.
func (q *Queue) IsClosed() bool { return q.closed }

// Add schedules s. It returns false without scheduling when the queue is
// closed, when s was already processed or is already queued, or when the
// element already has a queued step with the same identity.
func (q *Queue) Add(s Step) bool {
	b := s.base()
	switch {
	case q.closed:
		return false
	case b.processed:
		q.log.Warn("refusing to re-add processed step %s", describe(s))
		return false
	case b.queued:
		return false
	}

	eb := s.Element().base()
	if _, dup := eb.queued[s.ID()]; dup {
		return false
	}

	b.key = Key{
		Phase:     b.phase,
		Fired:     b.fired,
		SortValue: b.sortValue,
		Timestamp: q.NextTimestamp(),
	}
	b.round = q.round
	q.insert(s)
	eb.register(s)

	q.log.Debug("added %s key=%s", describe(s), b.key)
	q.emitQueue(EventStepAdded, s)
	return true
}

// Remove takes a queued step out of the queue without processing it.
func (q *Queue) Remove(s Step) bool {
	if !q.remove(s) {
		return false
	}
	s.Element().base().unregister(s)
	q.emitQueue(EventStepRemoved, s)
	return true
}

// UpdateSortValue changes the tie-break value of s. A queued step is
// physically removed under its old key, mutated, and reinserted under the new
// key; the heap is never left holding a key that changed in place.
func (q *Queue) UpdateSortValue(s Step, v int64) {
	b := s.base()
	if b.sortValue == v {
		return
	}
	if !b.queued {
		b.sortValue = v
		return
	}

	q.remove(s)
	b.sortValue = v
	b.key.SortValue = v
	q.insert(s)
}

// Process starts a new round and drains the queue until it is empty. Steps
// scheduled while draining are processed in the same round. A failing step
// does not stop the drain; all failures are returned together.
func (q *Queue) Process() error {
	q.round++
	timer := logging.StartTimer(logging.CategoryQueue, fmt.Sprintf("%s round %d", q.name, q.round))
	defer timer.Stop()

	var errs error
	for {
		ok, err := q.ProcessNext()
		if err != nil {
			errs = multierr.Append(errs, err)
		}
		if !ok {
			return errs
		}
	}
}

// ProcessNext processes the minimum-key step. It returns false when the
// queue was empty or closed.
func (q *Queue) ProcessNext() (bool, error) {
	if q.closed || len(q.items) == 0 {
		return false, nil
	}
	s := heap.Pop(&q.items).(Step)
	b := s.base()
	b.queued = false
	b.processed = true
	s.Element().base().unregister(s)
	q.NextTimestamp()

	err := s.Process()
	q.processed++
	if err != nil {
		q.log.Error("step %s failed: %v", describe(s), err)
		err = fmt.Errorf("step %s: %w", describe(s), err)
	}
	q.emitQueue(EventStepProcessed, s)
	return true, err
}

// Steps returns the queued steps in drain order. The queue is not modified.
func (q *Queue) Steps() []Step {
	out := make([]Step, len(q.items))
	copy(out, q.items)
	sort.Slice(out, func(i, j int) bool {
		return out[i].base().key.Less(out[j].base().key)
	})
	return out
}

// EmitElementEvent notifies listeners about an element lifecycle event.
func (q *Queue) EmitElementEvent(t EventType, e Element) {
	for _, l := range q.listeners {
		l.OnElementEvent(t, e)
	}
}

func (q *Queue) emitQueue(t EventType, s Step) {
	for _, l := range q.listeners {
		l.OnQueueEvent(t, s)
	}
}

func (q *Queue) insert(s Step) {
	b := s.base()
	b.queued = true
	heap.Push(&q.items, s)
}

func (q *Queue) remove(s Step) bool {
	b := s.base()
	if !b.queued || b.index < 0 || b.index >= len(q.items) || q.items[b.index] != s {
		return false
	}
	heap.Remove(&q.items, b.index)
	b.queued = false
	return true
}

func describe(s Step) string {
	return fmt.Sprintf("%s/%s@%s", s.Element().ElementID(), s.ID(), s.Phase())
}

// stepHeap is a min-heap of steps by Key.
type stepHeap []Step

func (h stepHeap) Len() int { return len(h) }

func (h stepHeap) Less(i, j int) bool {
	return h[i].base().key.Less(h[j].base().key)
}

func (h stepHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].base().index = i
	h[j].base().index = j
}

func (h *stepHeap) Push(x interface{}) {
	s := x.(Step)
	s.base().index = len(*h)
	*h = append(*h, s)
}

func (h *stepHeap) Pop() interface{} {
	old := *h
	n := len(old)
	s := old[n-1]
	old[n-1] = nil
	s.base().index = -1
	*h = old[:n-1]
	return s
}
