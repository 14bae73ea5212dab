package queue

// Element is anything that owns queued steps: activations, links and fields.
type Element interface {
	// ElementID identifies the element within its thought (for events and logs).
	ElementID() string
	Created() Timestamp
	Fired() Timestamp
	Queue() *Queue
	base() *ElementBase
}

// ElementBase carries the state every element shares. Embed it.
type ElementBase struct {
	queue   *Queue
	created Timestamp
	fired   Timestamp
	queued  map[string]Step
}

// NewElementBase stamps the creation time from q's clock.
func NewElementBase(q *Queue) ElementBase {
	return ElementBase{
		queue:   q,
		created: q.NextTimestamp(),
		fired:   NotSet,
	}
}

func (e *ElementBase) base() *ElementBase { return e }

// Queue returns the owning queue.
func (e *ElementBase) Queue() *Queue { return e.queue }

// Created returns the creation timestamp.
func (e *ElementBase) Created() Timestamp { return e.created }

// Fired returns the fired timestamp, NotSet until the element fires.
func (e *ElementBase) Fired() Timestamp { return e.fired }

// SetFired stamps the fired timestamp. It can only be set once; later calls
// return false and leave the original stamp.
func (e *ElementBase) SetFired(t Timestamp) bool {
	if e.fired.IsSet() || !t.IsSet() {
		return false
	}
	e.fired = t
	return true
}

// QueuedStep returns the step with the given identity if one is queued.
func (e *ElementBase) QueuedStep(id string) (Step, bool) {
	s, ok := e.queued[id]
	return s, ok
}

// QueuedCount returns how many steps of this element are queued.
func (e *ElementBase) QueuedCount() int {
	return len(e.queued)
}

func (e *ElementBase) register(s Step) {
	if e.queued == nil {
		e.queued = make(map[string]Step)
	}
	e.queued[s.ID()] = s
}

func (e *ElementBase) unregister(s Step) {
	if cur, ok := e.queued[s.ID()]; ok && cur == s {
		delete(e.queued, s.ID())
	}
}
