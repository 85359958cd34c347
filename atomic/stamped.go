package atomic

import "sync/atomic"

// StampedReference atomically pairs a value with an integer stamp so that a
// single CompareAndSwap updates both together, enabling ABA-safe lock-free
// protocols (spec §4.2, §8 testable property 9 "every observed (pointer,
// tag) pair was set by a single atomic write; no torn read is possible").
//
// A value of arbitrary type T cannot be packed into a machine word without
// unsafe pointer tricks that defeat Go's garbage collector, so this gets the
// same "one CAS updates the whole logical state" invariant by CASing a
// pointer to an immutable (value, stamp) pair instead of a packed scalar —
// the pair, once installed, is never mutated in place, only replaced, which
// is what lets a single atomic.Pointer swap stand in for a packed-word swap.
type StampedReference[T any] struct {
	p atomic.Pointer[stampedPair[T]]
}

type stampedPair[T any] struct {
	value  T
	stamp  int
}

// NewStampedReference returns a StampedReference initialized to (value, stamp).
func NewStampedReference[T any](value T, stamp int) *StampedReference[T] {
	r := &StampedReference[T]{}
	r.p.Store(&stampedPair[T]{value: value, stamp: stamp})
	return r
}

// Get returns the current value and stamp.
func (r *StampedReference[T]) Get() (value T, stamp int) {
	pair := r.p.Load()
	return pair.value, pair.stamp
}

// CompareAndSet atomically sets the reference to (newValue, newStamp) if the
// current value equals expValue (by the caller's definition of equality —
// checked via a predicate, since T may not be comparable) and the current
// stamp equals expStamp.
func (r *StampedReference[T]) CompareAndSet(expValue T, newValue T, expStamp, newStamp int, equal func(a, b T) bool) bool {
	for {
		old := r.p.Load()
		if old.stamp != expStamp || !equal(old.value, expValue) {
			return false
		}
		if old.stamp == newStamp && equal(old.value, newValue) {
			// Already in the desired state: succeeds without a CAS, per
			// spec §4.2 "If current state already equals (newPtr,
			// newStamp), succeeds without CAS."
			return true
		}
		next := &stampedPair[T]{value: newValue, stamp: newStamp}
		if r.p.CompareAndSwap(old, next) {
			return true
		}
	}
}

// AttemptStamp atomically sets the stamp to newStamp, leaving the value
// unchanged, if the current stamp equals expStamp. This is the spec's
// "attemptUpdate"-style spelling kept as a single-purpose helper; the
// conventional CompareAndSet spelling above is the primary API (see
// DESIGN.md Open Question #2).
func (r *StampedReference[T]) AttemptStamp(expStamp, newStamp int) bool {
	for {
		old := r.p.Load()
		if old.stamp != expStamp {
			return false
		}
		if old.stamp == newStamp {
			return true
		}
		next := &stampedPair[T]{value: old.value, stamp: newStamp}
		if r.p.CompareAndSwap(old, next) {
			return true
		}
	}
}
