package queue

import (
	"context"
	"time"

	"github.com/dmlloyd/jsr166-sub001/mutex"
)

// synNode is a single rendezvous slot: a producer or consumer parks on its
// own mutex+condition until the counterpart fills (or cancels) it (spec §4.6
// "Synchronous queue node"). The spec's "lazily created condition" is a
// memory-optimization detail from the source's object-per-thread-park model
// that Go's allocator makes unnecessary here; this always constructs the
// condition up front, a documented simplification with no observable effect
// on the spec's invariants.
type synNode[T any] struct {
	mu   *mutex.ReentrantMutex
	cond *mutex.Condition

	item      T
	filled    bool
	cancelled bool
}

func newSynNode[T any]() *synNode[T] {
	n := &synNode[T]{mu: mutex.New()}
	n.cond = n.mu.NewCondition()
	return n
}

// SynchronousQueue hands a single element directly from one Put call to one
// Take call, with no intermediate buffering (spec §4.6). Peek/size/
// iteration are meaningless for a queue that never holds an element; the
// spec directs those to return empty/zero.
type SynchronousQueue[T any] struct {
	fair bool

	queueMu *mutex.ReentrantMutex // protects the two waiter lists only
	waitingProducers []*synNode[T]
	waitingConsumers []*synNode[T]
}

// NewSynchronousQueue returns a fair (strict FIFO) synchronous queue.
func NewSynchronousQueue[T any]() *SynchronousQueue[T] {
	return &SynchronousQueue[T]{fair: true, queueMu: mutex.New()}
}

// NewUnfairSynchronousQueue returns a synchronous queue whose waiter lists
// are LIFO, trading strict fairness for better cache locality under high
// contention (spec §4.6 "Optional fair variant... the unfair variant may
// use LIFO for better cache locality").
func NewUnfairSynchronousQueue[T any]() *SynchronousQueue[T] {
	return &SynchronousQueue[T]{fair: false, queueMu: mutex.New()}
}

func popNode[T any](list []*synNode[T], fair bool) ([]*synNode[T], *synNode[T]) {
	if len(list) == 0 {
		return list, nil
	}
	if fair {
		return list[1:], list[0]
	}
	last := len(list) - 1
	return list[:last], list[last]
}

// Put hands item to a waiting consumer, or waits for one to arrive (spec
// §4.6 "put(x)").
func (q *SynchronousQueue[T]) Put(ctx context.Context, item T) error {
	for {
		consumer := q.dequeueWaiting(&q.waitingConsumers)
		if consumer != nil {
			if q.handOff(consumer, item) {
				return nil
			}
			continue // counterpart cancelled; retry from the top (spec §4.6)
		}

		self := newSynNode[T]()
		self.item = item
		q.enqueueWaiting(&q.waitingProducers, self)

		if err := q.waitForCounterpart(ctx, self, &q.waitingProducers); err != nil {
			return err
		}
		return nil
	}
}

// Take receives from a waiting producer, or waits for one to arrive (spec
// §4.6 "take()").
func (q *SynchronousQueue[T]) Take(ctx context.Context) (T, error) {
	var zero T
	for {
		producer := q.dequeueWaiting(&q.waitingProducers)
		if producer != nil {
			item, ok := q.receiveFrom(producer)
			if ok {
				return item, nil
			}
			continue // counterpart cancelled; retry
		}

		self := newSynNode[T]()
		q.enqueueWaiting(&q.waitingConsumers, self)

		if err := q.waitForCounterpart(ctx, self, &q.waitingConsumers); err != nil {
			return zero, err
		}
		return self.item, nil
	}
}

func (q *SynchronousQueue[T]) dequeueWaiting(list *[]*synNode[T]) *synNode[T] {
	owner := mutex.NewOwner()
	q.queueMu.Lock(owner)
	var n *synNode[T]
	*list, n = popNode(*list, q.fair)
	_ = q.queueMu.Unlock(owner)
	return n
}

func (q *SynchronousQueue[T]) enqueueWaiting(list *[]*synNode[T], n *synNode[T]) {
	owner := mutex.NewOwner()
	q.queueMu.Lock(owner)
	*list = append(*list, n)
	_ = q.queueMu.Unlock(owner)
}

// handOff delivers item to a waiting consumer node. Returns false if the
// node had already been cancelled (timeout/interrupt raced ahead of us).
func (q *SynchronousQueue[T]) handOff(consumer *synNode[T], item T) bool {
	owner := mutex.NewOwner()
	consumer.mu.Lock(owner)
	defer func() { _ = consumer.mu.Unlock(owner) }()
	if consumer.cancelled {
		return false
	}
	consumer.item = item
	consumer.filled = true
	consumer.cond.SignalAll()
	return true
}

// receiveFrom takes the item out of a waiting producer node. Returns
// ok=false if the node had already been cancelled.
func (q *SynchronousQueue[T]) receiveFrom(producer *synNode[T]) (T, bool) {
	owner := mutex.NewOwner()
	producer.mu.Lock(owner)
	defer func() { _ = producer.mu.Unlock(owner) }()
	if producer.cancelled {
		var zero T
		return zero, false
	}
	producer.filled = true
	producer.cond.SignalAll()
	return producer.item, true
}

// waitForCounterpart parks self until a counterpart performs the handoff,
// or ctx is cancelled. On cancellation, marks self as the "cancelled"
// sentinel so a racing counterpart observes it and retries (spec §4.6).
func (q *SynchronousQueue[T]) waitForCounterpart(ctx context.Context, self *synNode[T], ownList *[]*synNode[T]) error {
	owner := mutex.NewOwner()
	self.mu.Lock(owner)
	for !self.filled && !self.cancelled {
		if err := self.cond.Await(ctx, owner); err != nil {
			self.cancelled = true
			_ = self.mu.Unlock(owner)
			q.removeIfPresent(ownList, self)
			return err
		}
	}
	_ = self.mu.Unlock(owner)
	return nil
}

// waitForCounterpartTimeout is the timed variant of waitForCounterpart,
// shared by PutTimeout/TakeTimeout below.
func (q *SynchronousQueue[T]) waitForCounterpartTimeout(ctx context.Context, self *synNode[T], ownList *[]*synNode[T], timeout time.Duration) (bool, error) {
	owner := mutex.NewOwner()
	self.mu.Lock(owner)
	deadline := time.Now().Add(timeout)
	for !self.filled && !self.cancelled {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			self.cancelled = true
			_ = self.mu.Unlock(owner)
			q.removeIfPresent(ownList, self)
			return false, nil
		}
		if _, err := self.cond.AwaitNanos(ctx, owner, remaining); err != nil {
			self.cancelled = true
			_ = self.mu.Unlock(owner)
			q.removeIfPresent(ownList, self)
			return false, err
		}
	}
	filled := self.filled
	_ = self.mu.Unlock(owner)
	return filled, nil
}

func (q *SynchronousQueue[T]) removeIfPresent(list *[]*synNode[T], target *synNode[T]) {
	owner := mutex.NewOwner()
	q.queueMu.Lock(owner)
	defer func() { _ = q.queueMu.Unlock(owner) }()
	for i, n := range *list {
		if n == target {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

// PutTimeout is the timed variant of Put.
func (q *SynchronousQueue[T]) PutTimeout(ctx context.Context, item T, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		consumer := q.dequeueWaiting(&q.waitingConsumers)
		if consumer != nil && q.handOff(consumer, item) {
			return true, nil
		}
		return false, nil
	}
	consumer := q.dequeueWaiting(&q.waitingConsumers)
	if consumer != nil {
		if q.handOff(consumer, item) {
			return true, nil
		}
	}
	self := newSynNode[T]()
	self.item = item
	q.enqueueWaiting(&q.waitingProducers, self)
	return q.waitForCounterpartTimeout(ctx, self, &q.waitingProducers, timeout)
}

// TakeTimeout is the timed variant of Take.
func (q *SynchronousQueue[T]) TakeTimeout(ctx context.Context, timeout time.Duration) (T, bool, error) {
	var zero T
	if timeout <= 0 {
		producer := q.dequeueWaiting(&q.waitingProducers)
		if producer != nil {
			if item, ok := q.receiveFrom(producer); ok {
				return item, true, nil
			}
		}
		return zero, false, nil
	}
	producer := q.dequeueWaiting(&q.waitingProducers)
	if producer != nil {
		if item, ok := q.receiveFrom(producer); ok {
			return item, true, nil
		}
	}
	self := newSynNode[T]()
	q.enqueueWaiting(&q.waitingConsumers, self)
	ok, err := q.waitForCounterpartTimeout(ctx, self, &q.waitingConsumers, timeout)
	if !ok || err != nil {
		return zero, false, err
	}
	return self.item, true, nil
}

// Len always returns 0: a synchronous queue holds no elements (spec §4.6
// "Peek/size/iteration return empty/zero/empty-iterator").
func (q *SynchronousQueue[T]) Len() int { return 0 }

// ToArray always returns an empty slice, for the same reason as Len.
func (q *SynchronousQueue[T]) ToArray() []T { return nil }
