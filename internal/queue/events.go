package queue

// EventType identifies a queue or element notification.
type EventType int

const (
	EventStepAdded EventType = iota
	EventStepProcessed
	EventStepRemoved
	EventElementCreated
	EventElementFired
)

func (e EventType) String() string {
	switch e {
	case EventStepAdded:
		return "added"
	case EventStepProcessed:
		return "processed"
	case EventStepRemoved:
		return "removed"
	case EventElementCreated:
		return "created"
	case EventElementFired:
		return "fired"
	default:
		return "unknown"
	}
}

// Listener observes scheduling and element lifecycle. Debuggers and tracers
// implement it; the engine never depends on one being registered.
type Listener interface {
	OnQueueEvent(t EventType, s Step)
	OnElementEvent(t EventType, e Element)
}
