package mutex

import (
	"context"
	"time"
)

// Condition is a wait-set bound to a single ReentrantMutex (spec §4.3
// "newCondition()"/"Condition contract"). Its Await variants atomically
// release the owning mutex (fully, across all recursion levels) and park
// the caller until signalled, interrupted, or timed out, then re-acquire
// the mutex, restoring the prior recursion count, before returning.
//
// Grounded directly on vanadium-go.lib/nsync/cv.go's WaitWithDeadline:
// absolute deadline, cancellation channel, and an OK/Expired/Cancelled
// outcome. Where nsync transfers a woken waiter directly into the Mu's own
// acquisition queue as an optimization, this implementation instead simply
// wakes the waiter and lets it recontend for the mutex through the normal
// Lock path (see mutex.go's lockSlow) — observably equivalent for every
// invariant in spec §8 (at most one waiter moves per Signal, a signalled
// thread that loses a concurrent interrupt still returns normally, await
// always returns holding the mutex at its prior recursion depth) and far
// simpler, at the cost of the wait-transfer micro-optimization, which this
// module's Non-goals ("fairness proofs beyond the stated best-effort
// policies") do not require.
type Condition struct {
	mu *ReentrantMutex

	spin    spinlock
	waiters dll
}

// Await releases mu fully and blocks until signalled or a spurious wakeup,
// then re-acquires mu at its prior recursion depth before returning (spec
// §4.3 "await()"). The caller must hold mu exclusively as owner.
func (c *Condition) Await(ctx context.Context, owner Owner) error {
	return c.await(ctx, owner, noDeadline, true)
}

// AwaitUninterruptibly defers any interruption: the wait still completes
// normally, but if ctx was done during the wait, the condition is recorded
// and surfaced to the caller via the returned bool so the caller can, if it
// chooses, continue to treat its own cancellation as pending (spec §4.3
// "awaitUninterruptibly()": "on return, if an interrupt was observed, the
// thread's interrupt flag is left set"). Go has no per-goroutine flag to
// set, so the observation is returned directly instead.
func (c *Condition) AwaitUninterruptibly(ctx context.Context, owner Owner) (interruptObserved bool) {
	err := c.await(context.Background(), owner, noDeadline, false)
	_ = err // await never returns an error in uninterruptible mode
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// AwaitNanos bounds the wait to d. It returns the estimated remaining
// duration: <= 0 means the wait timed out; > 0 means some other cause
// (signal, spurious wakeup) ended the wait with time to spare (spec §4.3
// "awaitNanos(d)").
func (c *Condition) AwaitNanos(ctx context.Context, owner Owner, d time.Duration) (remaining time.Duration, err error) {
	if d <= 0 {
		// Try once, never park (spec §8 boundary behavior).
		select {
		case <-ctx.Done():
			return 0, ErrInterrupted
		default:
			return 0, nil
		}
	}
	deadline := time.Now().Add(d)
	err = c.await(ctx, owner, deadline, true)
	remaining = time.Until(deadline)
	return remaining, err
}

// await is the shared implementation behind Await/AwaitNanos/
// AwaitUninterruptibly.
func (c *Condition) await(ctx context.Context, owner Owner, deadline time.Time, interruptible bool) error {
	if !c.mu.IsHeld(owner) {
		return ErrIllegalMonitorState
	}
	savedRecursion := c.mu.RecursionCount()

	w := newWaiter(owner)
	c.spin.lock()
	w.q = dll{elem: w}
	w.q.insertAfter(&c.waiters)
	c.spin.unlock()

	// Atomically (from the perspective of any observer, because mu is
	// still held until the line below) release the mutex fully.
	c.mu.owner.Store(uint64(noOwner))
	c.mu.recursion.Store(0)
	c.mu.held.Store(false)
	c.mu.wakeOne()

	var outcome parkOutcome
	if interruptible {
		outcome = parkWaiter(ctx, w, deadline)
	} else {
		outcome = parkWaiter(context.Background(), w, deadline)
	}

	// Resolve the signal/interrupt race (spec §4.3 key invariant): if the
	// waiter was signalled, it consumes the signal and returns normally
	// even if also interrupted/timed out concurrently. Only remove
	// ourselves from the wait list if Signal did not already do so.
	signalled := w.signalled.Load()
	if !signalled {
		c.spin.lock()
		if w.q.next != nil {
			w.q.remove()
		} else {
			signalled = true // already unlinked by Signal/SignalAll
		}
		c.spin.unlock()
	}

	// Re-acquire the mutex from scratch, then restore the prior recursion
	// depth (spec §4.3 "re-acquires the mutex (restoring the prior
	// recursion count)").
	reacquireOwner := owner
	c.mu.Lock(reacquireOwner)
	c.mu.recursion.Store(savedRecursion)

	if signalled || outcome == outcomeWoken {
		return nil
	}
	if outcome == outcomeExpired {
		return nil // timeout is reported via AwaitNanos's remaining value, not an error
	}
	if interruptible {
		return ErrInterrupted
	}
	return nil
}

// Signal moves at most one waiter from the condition's wait list so it may
// resume and recontend for the mutex (spec §4.3 "signal()").
func (c *Condition) Signal() {
	c.spin.lock()
	var wake *waiter
	if !c.waiters.isEmpty() {
		wake = c.waiters.next.elem
		wake.q.remove()
	}
	c.spin.unlock()
	if wake != nil {
		wake.signalled.Store(true)
		wake.gate.Unpark()
	}
}

// SignalAll wakes every currently waiting goroutine (spec §4.3
// "signalAll()").
func (c *Condition) SignalAll() {
	c.spin.lock()
	var woken []*waiter
	for !c.waiters.isEmpty() {
		w := c.waiters.next.elem
		w.q.remove()
		woken = append(woken, w)
	}
	c.spin.unlock()
	for _, w := range woken {
		w.signalled.Store(true)
		w.gate.Unpark()
	}
}
