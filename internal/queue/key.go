package queue

import "fmt"

// Key is the immutable ordering key of a queued step. It is a snapshot: the
// fired value is captured when the step is built and the timestamp when it is
// enqueued, so the order never changes while the step sits in the queue.
type Key struct {
	Phase     Phase
	Fired     Timestamp
	SortValue int64
	Timestamp Timestamp
}

// Compare orders keys by phase ascending, fired ascending (NotSet last),
// sort value descending and timestamp ascending. Two keys only compare equal
// when they carry the same timestamp, i.e. denote the same enqueue.
func (k Key) Compare(o Key) int {
	if k.Phase != o.Phase {
		if k.Phase < o.Phase {
			return -1
		}
		return 1
	}
	if c := CompareFired(k.Fired, o.Fired); c != 0 {
		return c
	}
	if k.SortValue != o.SortValue {
		if k.SortValue > o.SortValue {
			return -1
		}
		return 1
	}
	switch {
	case k.Timestamp < o.Timestamp:
		return -1
	case k.Timestamp > o.Timestamp:
		return 1
	}
	return 0
}

// Less reports whether k sorts before o.
func (k Key) Less(o Key) bool {
	return k.Compare(o) < 0
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%d:%d", k.Phase, k.Fired, k.SortValue, int64(k.Timestamp))
}
