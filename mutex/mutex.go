// Package mutex implements the reentrant mutex and its associated
// multi-wait-set condition facility (spec §4.3), and is the foundation
// every other blocking primitive in this module (rwmutex, queue, forkjoin,
// timer) is built on.
//
// This is grounded directly on vanadium-go.lib/nsync's Mu/CV: a spinlock
// (itself a CAS loop, see waiter.go's spinlock) guards an intrusive
// doubly-linked waiter queue, each waiter parks on its own binary
// semaphore (package park), and release wakes at most one waiter. nsync's
// Mu is not reentrant; this generalizes it to spec §4.3's reentrant
// contract by tracking an explicit Owner (see owner.go) and a recursion
// count alongside the held bit.
package mutex

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/dmlloyd/jsr166-sub001/park"
)

// ErrIllegalMonitorState is returned by Unlock (and the condition wait
// family) when the caller is not the current holder (spec §6).
var ErrIllegalMonitorState = errors.New("jsr166: illegal monitor state: caller does not hold the mutex")

// ErrInterrupted is returned by LockContext/TryLockTimeout/Condition.Await
// family when the calling goroutine's context is cancelled before or
// during the wait (spec §6).
var ErrInterrupted = errors.New("jsr166: interrupted")

// ReentrantMutex is an exclusive lock that the same Owner may reacquire
// without deadlocking itself (spec §4.3). The zero value is not usable;
// construct with New or NewFair.
type ReentrantMutex struct {
	fair      bool
	held      atomic.Bool
	owner     atomic.Uint64 // Owner currently holding the lock, or noOwner
	recursion atomic.Int64

	spin    spinlock
	waiters dll // acquisition queue; protected by spin
}

// New returns a default ReentrantMutex. The default variant permits
// barging: a newly arriving acquirer may take the lock the instant it
// reads free, even if other goroutines are already queued (spec §4.3
// "Fairness", DESIGN.md Open Question #1).
func New() *ReentrantMutex {
	m := &ReentrantMutex{}
	m.waiters.makeEmpty()
	return m
}

// NewFair returns a ReentrantMutex whose acquisitions are granted strictly
// in arrival order: a goroutine may only barge ahead of the queue when the
// queue is empty ("canBarge iff wait queue empty", spec §4.3/§9).
func NewFair() *ReentrantMutex {
	m := New()
	m.fair = true
	return m
}

// canBarge reports whether a goroutine may attempt the fast-path CAS
// acquire despite the current queue state.
func (m *ReentrantMutex) canBarge() bool {
	if !m.fair {
		return true
	}
	m.spin.lock()
	empty := m.waiters.isEmpty()
	m.spin.unlock()
	return empty
}

// tryAcquireFast attempts the uncontended CAS fast path for owner.
// Returns true if acquired (either freshly, or reentrantly).
func (m *ReentrantMutex) tryAcquireFast(owner Owner) bool {
	if Owner(m.owner.Load()) == owner && m.held.Load() {
		// Reentrant: only the current holder can observe itself as owner,
		// so no other goroutine can be concurrently unlocking.
		m.recursion.Add(1)
		return true
	}
	if !m.canBarge() {
		return false
	}
	if m.held.CompareAndSwap(false, true) {
		m.owner.Store(uint64(owner))
		m.recursion.Store(1)
		return true
	}
	return false
}

// Lock acquires the mutex for owner, blocking uninterruptibly until it
// succeeds. A thread that already holds the mutex as owner simply
// increments its recursion count (spec §4.3 "lock()").
func (m *ReentrantMutex) Lock(owner Owner) {
	if m.tryAcquireFast(owner) {
		return
	}
	m.lockSlow(context.Background(), owner, noDeadline)
}

// LockContext is the interruptible variant: it fails with ErrInterrupted if
// ctx is done before the mutex is acquired (spec §4.3 "lockInterruptibly()").
func (m *ReentrantMutex) LockContext(ctx context.Context, owner Owner) error {
	if m.tryAcquireFast(owner) {
		return nil
	}
	select {
	case <-ctx.Done():
		return ErrInterrupted
	default:
	}
	return m.lockSlow(ctx, owner, noDeadline)
}

// TryLock attempts to acquire the mutex without blocking (spec §4.3
// "tryLock()").
func (m *ReentrantMutex) TryLock(owner Owner) bool {
	return m.tryAcquireFast(owner)
}

// TryLockTimeout attempts to acquire the mutex, waiting up to timeout.
// Returns true on success, false on timeout; returns ErrInterrupted if ctx
// is cancelled first (spec §4.3 "tryLock(duration)"). A zero or negative
// timeout tries exactly once and never parks (spec §8 boundary behavior).
func (m *ReentrantMutex) TryLockTimeout(ctx context.Context, owner Owner, timeout time.Duration) (bool, error) {
	if m.tryAcquireFast(owner) {
		return true, nil
	}
	if timeout <= 0 {
		return false, nil
	}
	deadline := time.Now().Add(timeout)
	err := m.lockSlow(ctx, owner, deadline)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, errTimedOut) {
		return false, nil
	}
	return false, err
}

var errTimedOut = errors.New("jsr166: lock wait timed out")
var noDeadline time.Time

// lockSlow queues owner onto the acquisition wait queue and parks until it
// can acquire the mutex, is interrupted, or times out. Grounded on nsync's
// Mu.lockSlow: register into the spinlock-protected waiter dll, release the
// spinlock, then park on the waiter's own gate.
func (m *ReentrantMutex) lockSlow(ctx context.Context, owner Owner, deadline time.Time) error {
	w := newWaiter(owner)
	for {
		m.spin.lock()
		if !m.held.Load() && m.canBargeLocked() {
			// Lock became free while we were about to queue; take it
			// directly rather than parking at all.
			m.held.Store(true)
			m.owner.Store(uint64(owner))
			m.recursion.Store(1)
			m.spin.unlock()
			return nil
		}
		w.q = dll{elem: w}
		w.q.insertAfter(m.waiters.prev) // append at the tail: FIFO
		m.spin.unlock()

		outcome := parkWaiter(ctx, w, deadline)
		switch outcome {
		case outcomeWoken:
			// wakeOne already unlinked us from the head of the queue, so the
			// fair-mode barging check does not apply to this attempt.
			if m.held.CompareAndSwap(false, true) {
				m.owner.Store(uint64(owner))
				m.recursion.Store(1)
				return nil
			}
			// Spurious wake (e.g. raced with another acquirer who beat us
			// to the CAS): loop and re-queue.
			continue
		case outcomeExpired:
			m.removeWaiterIfPresent(w)
			return errTimedOut
		case outcomeCancelled:
			m.removeWaiterIfPresent(w)
			return ErrInterrupted
		}
	}
}

func (m *ReentrantMutex) canBargeLocked() bool {
	if !m.fair {
		return true
	}
	return m.waiters.isEmpty()
}

func (m *ReentrantMutex) removeWaiterIfPresent(w *waiter) {
	m.spin.lock()
	if w.q.next != nil { // still linked into some list
		w.q.remove()
	}
	m.spin.unlock()
}

// Unlock decrements the recursion count; when it reaches zero, releases the
// mutex and wakes the longest-waiting queued goroutine, if any (spec §4.3
// "unlock()"). Fails with ErrIllegalMonitorState if owner is not the
// current holder.
func (m *ReentrantMutex) Unlock(owner Owner) error {
	if !m.held.Load() || Owner(m.owner.Load()) != owner {
		return ErrIllegalMonitorState
	}
	remaining := m.recursion.Add(-1)
	if remaining > 0 {
		return nil
	}
	m.owner.Store(uint64(noOwner))
	m.held.Store(false)
	m.wakeOne()
	return nil
}

// wakeOne wakes the head of the acquisition wait queue, if any. Unlike a
// holder-count release that only wakes waiters once the count reaches zero,
// this mutex is strictly exclusive, so any release wakes at most one
// waiter.
func (m *ReentrantMutex) wakeOne() {
	m.spin.lock()
	var wake *waiter
	if !m.waiters.isEmpty() {
		wake = m.waiters.next.elem
		wake.q.remove()
	}
	m.spin.unlock()
	if wake != nil {
		wake.gate.Unpark()
	}
}

// IsHeld reports whether the mutex is currently held by owner.
func (m *ReentrantMutex) IsHeld(owner Owner) bool {
	return m.held.Load() && Owner(m.owner.Load()) == owner
}

// RecursionCount returns the current recursion depth (0 if unheld).
func (m *ReentrantMutex) RecursionCount() int64 {
	if !m.held.Load() {
		return 0
	}
	return m.recursion.Load()
}

// NewCondition returns a fresh Condition bound to this mutex (spec §4.3
// "newCondition()").
func (m *ReentrantMutex) NewCondition() *Condition {
	c := &Condition{mu: m}
	c.waiters.makeEmpty()
	return c
}

type parkOutcome int

const (
	outcomeWoken parkOutcome = iota
	outcomeExpired
	outcomeCancelled
)

// parkWaiter parks w until unparked, cancelled, or (if deadline is
// non-zero) the deadline passes. It delegates directly to
// park.Gate.ParkDeadline, whose own select already covers the
// no-deadline case, so no extra goroutine is needed here (and none can
// leak if ctx is cancelled while the waiter remains queued).
func parkWaiter(ctx context.Context, w *waiter, deadline time.Time) parkOutcome {
	switch w.gate.ParkDeadline(ctx, deadline) {
	case park.Unparked:
		return outcomeWoken
	case park.Expired:
		return outcomeExpired
	default:
		return outcomeCancelled
	}
}
