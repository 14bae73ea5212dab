// Package queue implements the per-thought step scheduler.
//
// Every unit of deferred work is a Step bound to one Element. Steps are kept
// in a priority structure ordered by an immutable Key and drained one at a
// time; processing a step may schedule further steps which are picked up by
// the same drain loop, so a drain runs until the network reaches a fixed
// point.
package queue

import "fmt"

// Timestamp is a logical instant issued by a Queue's clock.
type Timestamp int64

// NotSet marks an element that has not fired yet.
const NotSet Timestamp = -1

// IsSet reports whether t is a real instant.
func (t Timestamp) IsSet() bool {
	return t != NotSet
}

func (t Timestamp) String() string {
	if t == NotSet {
		return "NOT_SET"
	}
	return fmt.Sprintf("%d", int64(t))
}

// CompareFired orders fired timestamps ascending. NotSet means "not yet" and
// sorts after every real timestamp.
func CompareFired(a, b Timestamp) int {
	switch {
	case a == b:
		return 0
	case a == NotSet:
		return 1
	case b == NotSet:
		return -1
	case a < b:
		return -1
	default:
		return 1
	}
}
