// Package timer implements the scheduled timer (spec §4.8): a worker
// goroutine draining a binary min-heap of pending Tasks, guarded by a
// mutex.ReentrantMutex + mutex.Condition pair — the "object-style monitor"
// spec.md calls for, realized with this module's own primitives rather than
// sync.Mutex/sync.Cond, the same way rwmutex and queue are built on mutex.
package timer

import (
	"container/heap"
	"context"
	"errors"
	"log"
	"time"

	"github.com/dmlloyd/jsr166-sub001/atomic"
	"github.com/dmlloyd/jsr166-sub001/clock"
	"github.com/dmlloyd/jsr166-sub001/mutex"
)

// ErrIllegalState is returned by Schedule/ScheduleFixedRate/ScheduleFixedDelay
// once the timer has been shut down (spec §6 *IllegalState*).
var ErrIllegalState = errors.New("jsr166: illegal state")

// ErrIllegalArgument is returned for a non-positive period (spec §6
// *IllegalArgument*).
var ErrIllegalArgument = errors.New("jsr166: illegal argument")

// ErrInterrupted is returned by Shutdown if ctx is done before the worker
// goroutine exits.
var ErrInterrupted = clock.ErrInterrupted

type timerConfig struct {
	logger *log.Logger
}

// Option configures a ScheduledTimer at construction.
type Option func(*timerConfig)

// WithLogger attaches a diagnostic logger for firing/error tracing (same
// discard-by-default shape as forkjoin.WithLogger).
func WithLogger(l *log.Logger) Option {
	return func(c *timerConfig) { c.logger = l }
}

// ScheduledTimer runs pending Tasks in trigger order on a single worker
// goroutine (spec §4.8). The zero value is not usable; construct with New.
type ScheduledTimer struct {
	mu    *mutex.ReentrantMutex
	owner mutex.Owner
	cond  *mutex.Condition

	heap taskHeap
	live atomic.Bool

	logger *log.Logger
	done   chan struct{}
}

// New starts a ScheduledTimer's worker goroutine and returns immediately.
func New(opts ...Option) *ScheduledTimer {
	var cfg timerConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &ScheduledTimer{
		mu:     mutex.New(),
		owner:  mutex.NewOwner(),
		logger: cfg.logger,
		done:   make(chan struct{}),
	}
	s.cond = s.mu.NewCondition()
	s.live.Store(true)
	go s.loop()
	return s
}

// Schedule runs action once, after delay.
func (s *ScheduledTimer) Schedule(action Action, delay time.Duration) (*Task, error) {
	return s.schedule(action, clock.Now().Add(delay), 0)
}

// ScheduleFixedRate runs action repeatedly every period, starting after
// initialDelay; successive trigger instants are period apart from the
// *original* schedule, not from the previous execution (spec §4.8
// "fixed-rate (period > 0): next trigger = originalTrigger + period").
func (s *ScheduledTimer) ScheduleFixedRate(action Action, initialDelay, period time.Duration) (*Task, error) {
	if period <= 0 {
		return nil, ErrIllegalArgument
	}
	return s.schedule(action, clock.Now().Add(initialDelay), period)
}

// ScheduleFixedDelay runs action repeatedly, each firing delay after the
// previous one is examined by the worker loop (spec §4.8 "fixed-delay
// (period < 0): next trigger = now + |period|").
func (s *ScheduledTimer) ScheduleFixedDelay(action Action, initialDelay, delay time.Duration) (*Task, error) {
	if delay <= 0 {
		return nil, ErrIllegalArgument
	}
	return s.schedule(action, clock.Now().Add(initialDelay), -delay)
}

func (s *ScheduledTimer) schedule(action Action, trigger clock.Instant, period time.Duration) (*Task, error) {
	if !s.live.Load() {
		return nil, ErrIllegalState
	}
	task := newTask(action, trigger, period)
	s.mu.Lock(s.owner)
	heap.Push(&s.heap, task)
	s.cond.SignalAll()
	_ = s.mu.Unlock(s.owner)
	return task, nil
}

// Purge scans the heap, removing every cancelled task, then restores the
// heap invariant (spec §4.8 "A purge operation scans and removes all
// cancelled tasks, then heapifies"). Returns the number of tasks removed.
func (s *ScheduledTimer) Purge() int {
	s.mu.Lock(s.owner)
	defer func() { _ = s.mu.Unlock(s.owner) }()
	before := s.heap.Len()
	s.heap.quickRemoveCancelled()
	heap.Init(&s.heap)
	return before - s.heap.Len()
}

// Shutdown stops accepting new schedules, discards every task still
// sitting in the heap, and waits for the worker goroutine to exit, or for
// ctx to be done first (spec §9 "Finalizer-driven timer shutdown -> require
// an explicit shutdown API; never rely on GC ordering" — generalized from
// the reaper hook's "no more tasks may be scheduled" flag to also discard
// the backlog immediately, rather than let a periodic task keep the worker
// alive forever). A task already popped off the heap and mid-execution when
// Shutdown is called completes normally.
func (s *ScheduledTimer) Shutdown(ctx context.Context) error {
	s.mu.Lock(s.owner)
	s.live.Store(false)
	s.heap = nil
	s.cond.SignalAll()
	_ = s.mu.Unlock(s.owner)

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ErrInterrupted
	}
}

// loop implements spec §4.8's 4-step worker loop.
func (s *ScheduledTimer) loop() {
	defer close(s.done)
	for {
		s.mu.Lock(s.owner)

		for s.heap.Len() == 0 && s.live.Load() {
			_ = s.cond.Await(context.Background(), s.owner)
		}
		if s.heap.Len() == 0 {
			_ = s.mu.Unlock(s.owner)
			return
		}

		min := s.heap[0]
		now := clock.Now()
		if min.trigger.After(now) {
			// Not yet due: bounded monitor wait for the remaining time
			// (step 3), then re-examine from the top.
			remaining := min.trigger.Sub(now)
			_, _ = s.cond.AwaitNanos(context.Background(), s.owner, remaining)
			_ = s.mu.Unlock(s.owner)
			continue
		}

		// Due: pop it, then reschedule (periodic) or finalize (one-shot)
		// under the task's own lock (step 2), all still under the monitor.
		heap.Pop(&s.heap)
		min.mu.Lock(min.owner)
		cancelled := min.State() == Cancelled
		period := min.period
		originalTrigger := min.trigger
		switch {
		case cancelled:
			// Already marked cancelled; leave the state as-is.
		case period < 0:
			min.trigger = now.Add(-period)
			min.state.Store(int32(Scheduled))
			heap.Push(&s.heap, min)
		case period > 0:
			min.trigger = originalTrigger.Add(period)
			min.state.Store(int32(Scheduled))
			heap.Push(&s.heap, min)
		default:
			min.state.Store(int32(Executed))
		}
		_ = min.mu.Unlock(min.owner)
		if period != 0 && !cancelled {
			s.cond.SignalAll()
		}

		// Step 4: release the monitor, execute outside all locks.
		_ = s.mu.Unlock(s.owner)

		if cancelled {
			continue
		}
		if err := min.action(); err != nil {
			if s.logger != nil {
				s.logger.Printf("timer: task failed, stopping worker: %v\n", err)
			}
			// Spec §7: "Timer tasks that raise an error terminate the
			// timer worker."
			s.live.Store(false)
			return
		}
	}
}
