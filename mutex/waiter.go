package mutex

import (
	"sync/atomic"

	"github.com/dmlloyd/jsr166-sub001/internal/backoff"
	"github.com/dmlloyd/jsr166-sub001/park"
)

// dll is an intrusive doubly-linked list node: a sentinel makeEmpty()'d
// head whose next/prev point to itself when empty, and waiter nodes
// threaded in between.
type dll struct {
	next *dll
	prev *dll
	elem *waiter
}

func (l *dll) makeEmpty() {
	l.next = l
	l.prev = l
}

func (l *dll) isEmpty() bool {
	return l.next == l
}

// insertAfter inserts e into the list immediately after p.
func (e *dll) insertAfter(p *dll) {
	e.next = p.next
	e.prev = p
	e.next.prev = e
	e.prev.next = e
}

// remove unlinks e from whatever list it is currently part of.
func (e *dll) remove() {
	e.next.prev = e.prev
	e.prev.next = e.next
	e.next = nil
	e.prev = nil
}

// waiter represents one goroutine parked on a mutex's acquisition queue or a
// condition's wait list. It carries its own park.Gate, exactly the role
// nsync's waiter.sem (a binarySemaphore) plays.
type waiter struct {
	q         dll
	gate      *park.Gate
	signalled atomic.Bool // set by Condition.Signal/SignalAll before waking
	owner     Owner
}

func newWaiter(owner Owner) *waiter {
	w := &waiter{gate: park.NewGate(), owner: owner}
	w.q.elem = w
	return w
}

// spinlock is a CAS-guarded critical section protecting a dll, the same
// technique as nsync's spinTestAndSet guarding mu.waiters / cv.waiters.
type spinlock struct {
	held atomic.Bool
}

func (s *spinlock) lock() {
	var attempts uint
	for !s.held.CompareAndSwap(false, true) {
		attempts = backoff.Delay(attempts)
	}
}

func (s *spinlock) unlock() {
	s.held.Store(false)
}
