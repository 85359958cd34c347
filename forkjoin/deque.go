package forkjoin

import (
	"sync"

	"github.com/dmlloyd/jsr166-sub001/atomic"
)

// runnable is the minimal capability set the scheduler needs from a task:
// the polymorphism spec.md §9 asks for ("a task is polymorphic over
// {compute, is-done, set-failure}; subclassing is not required") rather
// than a class hierarchy.
type runnable interface {
	run(w *Worker)
	cancelPending()
}

// defaultDequeCapacity bounds each worker's own deque. spec.md §4.7 gives
// no numeric bound; a fixed ring buffer (rather than a growable one) keeps
// the owner/stealer protocol lock-free on the owner side instead of
// introducing a resize path that would need its own synchronization story.
// Fork() falls back to running a task inline on the rare occasion a
// worker's own deque is this deep (documented on Task.Fork).
const defaultDequeCapacity = 4096

// deque is a fixed-capacity work-stealing ring buffer: the owner
// pushes/pops its own end ("bottom", LIFO) without taking mu, using plain
// atomic loads/stores on the two indices; a thief takes the opposite end
// ("top", FIFO) under mu, CAS-ing the top index to resolve a race against
// the owner for the last remaining element (spec.md §4.7 "Deque
// protocol").
type deque struct {
	tasks  []runnable
	bottom atomic.Int64
	top    atomic.Int64
	mu     sync.Mutex // only steal() and tryUnfork() take this; push/pop are owner-only and lock-free
}

func newDeque(capacity int) *deque {
	return &deque{tasks: make([]runnable, capacity)}
}

// push appends t at the owner's end. Returns false if the deque is full.
func (d *deque) push(t runnable) bool {
	b := d.bottom.Load()
	top := d.top.Load()
	if b-top >= int64(len(d.tasks)) {
		return false
	}
	d.tasks[b%int64(len(d.tasks))] = t
	d.bottom.Store(b + 1)
	return true
}

// pop removes and returns the task at the owner's end, or nil if empty.
// Owner-only.
func (d *deque) pop() runnable {
	b := d.bottom.Load() - 1
	d.bottom.Store(b)
	top := d.top.Load()
	if top > b {
		// Already empty; restore bottom to the canonical empty position.
		d.bottom.Store(top)
		return nil
	}
	t := d.tasks[b%int64(len(d.tasks))]
	if top == b {
		// Exactly one element left: race against a concurrent steal for it.
		if !d.top.CompareAndSwap(top, top+1) {
			d.bottom.Store(b + 1)
			return nil // lost the race; a thief took it instead
		}
		d.bottom.Store(b + 1)
	}
	return t
}

// steal removes and returns the task at the opposite end, or nil if empty
// or if it lost a race against the owner's pop. Called by any worker other
// than the owner.
func (d *deque) steal() runnable {
	d.mu.Lock()
	defer d.mu.Unlock()
	top := d.top.Load()
	b := d.bottom.Load()
	if top >= b {
		return nil
	}
	t := d.tasks[top%int64(len(d.tasks))]
	if !d.top.CompareAndSwap(top, top+1) {
		return nil
	}
	return t
}

// len returns the deque's approximate current depth (spec.md §4.7
// "Surplus task count heuristic").
func (d *deque) len() int {
	size := d.bottom.Load() - d.top.Load()
	if size < 0 {
		return 0
	}
	return int(size)
}

// drain removes and returns every remaining task, owner-only, for use
// during a forced shutdown.
func (d *deque) drain() []runnable {
	var out []runnable
	for {
		t := d.pop()
		if t == nil {
			return out
		}
		out = append(out, t)
	}
}
