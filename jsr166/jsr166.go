// Package jsr166 is the composition root: one constructor per concrete
// primitive this module implements (spec.md's top-level module list),
// re-exporting each subsystem package's own entry point under one import.
//
// One constructor per concrete primitive: mutex, reader/writer lock, two
// blocking queues, a fork/join pool, a scheduled timer, and the
// tagged-atomic types.
package jsr166

import (
	"github.com/dmlloyd/jsr166-sub001/atomic"
	"github.com/dmlloyd/jsr166-sub001/forkjoin"
	"github.com/dmlloyd/jsr166-sub001/mutex"
	"github.com/dmlloyd/jsr166-sub001/queue"
	"github.com/dmlloyd/jsr166-sub001/rwmutex"
	"github.com/dmlloyd/jsr166-sub001/timer"
)

// NewMutex returns a ReentrantMutex that permits barging (spec §4.3).
func NewMutex() *mutex.ReentrantMutex { return mutex.New() }

// NewFairMutex returns a ReentrantMutex whose acquisitions are granted in
// arrival order (spec §4.3 "Fairness").
func NewFairMutex() *mutex.ReentrantMutex { return mutex.NewFair() }

// NewOwner allocates a fresh lock-holder token (spec §9's explicit
// replacement for an implicit current-thread identity).
func NewOwner() mutex.Owner { return mutex.NewOwner() }

// NewReentrantReadWriteMutex returns an unlocked reader/writer lock (spec
// §4.4).
func NewReentrantReadWriteMutex() *rwmutex.ReadWriteMutex { return rwmutex.New() }

// NewLinkedBlockingQueue returns a bounded FIFO queue of the given capacity
// (spec §4.5).
func NewLinkedBlockingQueue[T any](capacity int64) (*queue.LinkedBlockingQueue[T], error) {
	return queue.NewLinkedBlockingQueue[T](capacity)
}

// NewSynchronousQueue returns a zero-capacity rendezvous queue with FIFO
// waiter fairness (spec §4.6).
func NewSynchronousQueue[T any]() *queue.SynchronousQueue[T] {
	return queue.NewSynchronousQueue[T]()
}

// NewUnfairSynchronousQueue returns a zero-capacity rendezvous queue with
// LIFO (stack-ordered) waiter handoff (spec §4.6).
func NewUnfairSynchronousQueue[T any]() *queue.SynchronousQueue[T] {
	return queue.NewUnfairSynchronousQueue[T]()
}

// NewForkJoinPool starts a fork/join executor with the given parallelism
// (<= 0 means "detect from the runtime/cgroup quota", spec §4.7).
func NewForkJoinPool(parallelism int, opts ...forkjoin.PoolOption) *forkjoin.Pool {
	return forkjoin.NewPool(parallelism, opts...)
}

// NewScheduledTimer starts a scheduled timer's worker goroutine (spec
// §4.8).
func NewScheduledTimer(opts ...timer.Option) *timer.ScheduledTimer {
	return timer.New(opts...)
}

// NewStampedReference returns a tagged atomic reference carrying an
// integer stamp, for ABA-safe compare-and-swap protocols (spec §4.2).
func NewStampedReference[T any](value T, stamp int) *atomic.StampedReference[T] {
	return atomic.NewStampedReference(value, stamp)
}

// NewMarkedReference returns a tagged atomic reference carrying a boolean
// mark, for ABA-safe compare-and-swap protocols (spec §4.2).
func NewMarkedReference[T any](value T, mark bool) *atomic.MarkedReference[T] {
	return atomic.NewMarkedReference(value, mark)
}
