package atomic

import "sync/atomic"

// MarkedReference is StampedReference's single-bit sibling: it pairs a
// value with a boolean mark instead of an integer stamp (spec §4.2
// "Marked reference: same with a single boolean tag"). It is the usual
// building block for lock-free list deletion, where the mark bit flags a
// node as logically removed ahead of its physical unlink.
type MarkedReference[T any] struct {
	p atomic.Pointer[markedPair[T]]
}

type markedPair[T any] struct {
	value T
	mark  bool
}

// NewMarkedReference returns a MarkedReference initialized to (value, mark).
func NewMarkedReference[T any](value T, mark bool) *MarkedReference[T] {
	r := &MarkedReference[T]{}
	r.p.Store(&markedPair[T]{value: value, mark: mark})
	return r
}

// Get returns the current value and mark.
func (r *MarkedReference[T]) Get() (value T, mark bool) {
	pair := r.p.Load()
	return pair.value, pair.mark
}

// IsMarked reports the current mark bit.
func (r *MarkedReference[T]) IsMarked() bool {
	return r.p.Load().mark
}

// CompareAndSet atomically sets the reference to (newValue, newMark) if the
// current value equals expValue (per the caller-supplied equality) and the
// current mark equals expMark.
func (r *MarkedReference[T]) CompareAndSet(expValue, newValue T, expMark, newMark bool, equal func(a, b T) bool) bool {
	for {
		old := r.p.Load()
		if old.mark != expMark || !equal(old.value, expValue) {
			return false
		}
		if old.mark == newMark && equal(old.value, newValue) {
			return true
		}
		next := &markedPair[T]{value: newValue, mark: newMark}
		if r.p.CompareAndSwap(old, next) {
			return true
		}
	}
}

// AttemptMark atomically sets the mark to newMark, leaving the value
// unchanged, if the current value equals expValue and the current mark
// equals the mark recorded at load time (standard "attempt to mark a
// still-current node" pattern for lock-free deletion).
func (r *MarkedReference[T]) AttemptMark(expValue T, newMark bool, equal func(a, b T) bool) bool {
	for {
		old := r.p.Load()
		if !equal(old.value, expValue) {
			return false
		}
		if old.mark == newMark {
			return true
		}
		next := &markedPair[T]{value: old.value, mark: newMark}
		if r.p.CompareAndSwap(old, next) {
			return true
		}
	}
}
