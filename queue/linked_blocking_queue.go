// Package queue implements the bounded linked blocking queue (two-lock
// algorithm, spec §4.5) and the synchronous rendezvous queue (spec §4.6),
// both built on package mutex's ReentrantMutex and Condition.
//
// Both are built directly from spec §4.5/§4.6's own textual algorithm
// using this module's own mutex/Condition rather than sync.Mutex/sync.Cond,
// the same way rwmutex and timer are built on package mutex.
package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/dmlloyd/jsr166-sub001/mutex"
)

// ErrInterrupted mirrors mutex.ErrInterrupted for callers that only import
// package queue.
var ErrInterrupted = mutex.ErrInterrupted

// ErrIllegalArgument is returned for a non-positive capacity (spec §6).
var ErrIllegalArgument = errors.New("jsr166: illegal argument")

type node[T any] struct {
	item T
	next *node[T]
}

// LinkedBlockingQueue is a bounded FIFO queue using the "two-lock"
// algorithm: an independent put-mutex/notFull condition pair guards the
// tail, and an independent take-mutex/notEmpty condition pair guards the
// head, so a single producer and a single consumer may each make progress
// without contending on the other's lock (spec §4.5).
type LinkedBlockingQueue[T any] struct {
	capacity int64
	count    atomic.Int64

	putMu   *mutex.ReentrantMutex
	notFull *mutex.Condition

	takeMu   *mutex.ReentrantMutex
	notEmpty *mutex.Condition

	// head is a sentinel: head.next is the first real element, or nil if
	// empty. Only the take-mutex holder mutates head (spec §4.5 invariant).
	head *node[T]
	// tail is the last node in the list (head itself if empty). Only the
	// put-mutex holder mutates tail.
	tail *node[T]
}

// NewLinkedBlockingQueue returns an empty queue bounded at capacity, which
// must be positive (spec §6 *IllegalArgument*).
func NewLinkedBlockingQueue[T any](capacity int64) (*LinkedBlockingQueue[T], error) {
	if capacity <= 0 {
		return nil, ErrIllegalArgument
	}
	sentinel := &node[T]{}
	q := &LinkedBlockingQueue[T]{
		capacity: capacity,
		putMu:    mutex.New(),
		takeMu:   mutex.New(),
		head:     sentinel,
		tail:     sentinel,
	}
	q.notFull = q.putMu.NewCondition()
	q.notEmpty = q.takeMu.NewCondition()
	return q, nil
}

// Len returns the current element count.
func (q *LinkedBlockingQueue[T]) Len() int64 { return q.count.Load() }

// Cap returns the queue's fixed capacity.
func (q *LinkedBlockingQueue[T]) Cap() int64 { return q.capacity }

func (q *LinkedBlockingQueue[T]) enqueue(item T) {
	n := &node[T]{item: item}
	q.tail.next = n
	q.tail = n
}

func (q *LinkedBlockingQueue[T]) dequeue() T {
	first := q.head.next
	q.head = first
	var zero T
	item := first.item
	first.item = zero // drop the reference so it can be collected
	return item
}

// Put blocks until there is room, then appends item (spec §4.5 "put(x)").
func (q *LinkedBlockingQueue[T]) Put(ctx context.Context, item T) error {
	owner := mutex.NewOwner()
	if err := q.putMu.LockContext(ctx, owner); err != nil {
		return err
	}
	for q.count.Load() == q.capacity {
		if err := q.notFull.Await(ctx, owner); err != nil {
			// Propagate the wakeup we consumed to another waiter before
			// failing, to avoid a lost wakeup (spec §4.5 "Cancellation /
			// interruption").
			q.notFull.Signal()
			_ = q.putMu.Unlock(owner)
			return err
		}
	}
	q.enqueue(item)
	c := q.count.Add(1)
	if c < q.capacity {
		q.notFull.Signal() // cascading signal: more room, wake another producer
	}
	_ = q.putMu.Unlock(owner)
	if c == 1 {
		q.signalNotEmpty()
	}
	return nil
}

// Offer is the timed variant of Put: it blocks up to timeout for room, then
// returns whether the item was appended (spec §4.5 "offer(x, timeout)"). A
// zero or negative timeout tries once without parking (spec §8).
func (q *LinkedBlockingQueue[T]) Offer(ctx context.Context, item T, timeout time.Duration) (bool, error) {
	owner := mutex.NewOwner()
	if timeout <= 0 {
		if !q.putMu.TryLock(owner) {
			return false, nil
		}
	} else {
		ok, err := q.putMu.TryLockTimeout(ctx, owner, timeout)
		if err != nil || !ok {
			return false, err
		}
	}
	deadline := time.Now().Add(timeout)
	for q.count.Load() == q.capacity {
		remaining := time.Until(deadline)
		if timeout <= 0 || remaining <= 0 {
			_ = q.putMu.Unlock(owner)
			return false, nil
		}
		if _, err := q.notFull.AwaitNanos(ctx, owner, remaining); err != nil {
			q.notFull.Signal()
			_ = q.putMu.Unlock(owner)
			return false, err
		}
	}
	q.enqueue(item)
	c := q.count.Add(1)
	if c < q.capacity {
		q.notFull.Signal()
	}
	_ = q.putMu.Unlock(owner)
	if c == 1 {
		q.signalNotEmpty()
	}
	return true, nil
}

// OfferNonBlocking is the immediate, non-blocking variant of Put (spec §4.5
// "offer(x)").
func (q *LinkedBlockingQueue[T]) OfferNonBlocking(item T) bool {
	if q.count.Load() == q.capacity {
		return false
	}
	owner := mutex.NewOwner()
	if !q.putMu.TryLock(owner) {
		return false
	}
	defer func() { _ = q.putMu.Unlock(owner) }()
	if q.count.Load() == q.capacity {
		return false
	}
	q.enqueue(item)
	c := q.count.Add(1)
	if c < q.capacity {
		q.notFull.Signal()
	}
	if c == 1 {
		q.signalNotEmpty()
	}
	return true
}

// Take blocks until an element is available, then removes and returns the
// head of the queue (spec §4.5 "take()").
func (q *LinkedBlockingQueue[T]) Take(ctx context.Context) (T, error) {
	var zero T
	owner := mutex.NewOwner()
	if err := q.takeMu.LockContext(ctx, owner); err != nil {
		return zero, err
	}
	for q.count.Load() == 0 {
		if err := q.notEmpty.Await(ctx, owner); err != nil {
			q.notEmpty.Signal()
			_ = q.takeMu.Unlock(owner)
			return zero, err
		}
	}
	item := q.dequeue()
	c := q.count.Add(-1)
	if c > 0 {
		q.notEmpty.Signal()
	}
	_ = q.takeMu.Unlock(owner)
	if c == q.capacity-1 {
		q.signalNotFull()
	}
	return item, nil
}

// Poll is the timed variant of Take (spec §4.5 "poll(timeout)").
func (q *LinkedBlockingQueue[T]) Poll(ctx context.Context, timeout time.Duration) (T, bool, error) {
	var zero T
	owner := mutex.NewOwner()
	if timeout <= 0 {
		if !q.takeMu.TryLock(owner) {
			return zero, false, nil
		}
	} else {
		ok, err := q.takeMu.TryLockTimeout(ctx, owner, timeout)
		if err != nil || !ok {
			return zero, false, err
		}
	}
	deadline := time.Now().Add(timeout)
	for q.count.Load() == 0 {
		remaining := time.Until(deadline)
		if timeout <= 0 || remaining <= 0 {
			_ = q.takeMu.Unlock(owner)
			return zero, false, nil
		}
		if _, err := q.notEmpty.AwaitNanos(ctx, owner, remaining); err != nil {
			q.notEmpty.Signal()
			_ = q.takeMu.Unlock(owner)
			return zero, false, err
		}
	}
	item := q.dequeue()
	c := q.count.Add(-1)
	if c > 0 {
		q.notEmpty.Signal()
	}
	_ = q.takeMu.Unlock(owner)
	if c == q.capacity-1 {
		q.signalNotFull()
	}
	return item, true, nil
}

// PollNonBlocking is the immediate, non-blocking variant of Take (spec
// §4.5 "poll()").
func (q *LinkedBlockingQueue[T]) PollNonBlocking() (T, bool) {
	var zero T
	if q.count.Load() == 0 {
		return zero, false
	}
	owner := mutex.NewOwner()
	if !q.takeMu.TryLock(owner) {
		return zero, false
	}
	if q.count.Load() == 0 {
		_ = q.takeMu.Unlock(owner)
		return zero, false
	}
	item := q.dequeue()
	c := q.count.Add(-1)
	if c > 0 {
		q.notEmpty.Signal()
	}
	_ = q.takeMu.Unlock(owner)
	if c == q.capacity-1 {
		q.signalNotFull()
	}
	return item, true
}

func (q *LinkedBlockingQueue[T]) signalNotEmpty() {
	owner := mutex.NewOwner()
	q.takeMu.Lock(owner)
	q.notEmpty.Signal()
	_ = q.takeMu.Unlock(owner)
}

func (q *LinkedBlockingQueue[T]) signalNotFull() {
	owner := mutex.NewOwner()
	q.putMu.Lock(owner)
	q.notFull.Signal()
	_ = q.putMu.Unlock(owner)
}

// Remove deletes the first element equal to target (per the supplied
// predicate), if present. Requires both mutexes, acquired put-mutex before
// take-mutex, the documented acquisition order (spec §5 "Iterator
// snapshots require holding all relevant mutexes simultaneously, in the
// documented acquisition order").
func (q *LinkedBlockingQueue[T]) Remove(target T, equal func(a, b T) bool) bool {
	putOwner, takeOwner := mutex.NewOwner(), mutex.NewOwner()
	q.putMu.Lock(putOwner)
	defer func() { _ = q.putMu.Unlock(putOwner) }()
	q.takeMu.Lock(takeOwner)
	defer func() { _ = q.takeMu.Unlock(takeOwner) }()

	trail := q.head
	for p := q.head.next; p != nil; p = p.next {
		if equal(p.item, target) {
			trail.next = p.next
			if q.tail == p {
				q.tail = trail
			}
			q.count.Add(-1)
			return true
		}
		trail = p
	}
	return false
}

// ToArray returns a weakly-consistent snapshot of the queue's current
// contents, in head-to-tail order (spec §4.5 "toArray").
func (q *LinkedBlockingQueue[T]) ToArray() []T {
	putOwner, takeOwner := mutex.NewOwner(), mutex.NewOwner()
	q.putMu.Lock(putOwner)
	defer func() { _ = q.putMu.Unlock(putOwner) }()
	q.takeMu.Lock(takeOwner)
	defer func() { _ = q.takeMu.Unlock(takeOwner) }()

	result := make([]T, 0, q.count.Load())
	for p := q.head.next; p != nil; p = p.next {
		result = append(result, p.item)
	}
	return result
}
