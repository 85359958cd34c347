// Package park implements the thread-parking primitive every higher-level
// blocking operation in this module is built from (spec §2 "Thread parking
// primitive", §4.3 "Threads park using the low-level park/unpark
// capability; they are unparked on release, signal, interruption, or
// timeout").
//
// A goroutine has no OS-level park/unpark call of its own; blocking on a
// channel receive is the Go-idiomatic equivalent, and that is exactly what
// Gate wraps. This is grounded directly on vanadium-go.lib/nsync's
// binarySemaphore (binary_semaphore.go): a channel of capacity 1, P/V
// renamed Park/Unpark, and a PWithDeadline renamed ParkDeadline that adds a
// deadline timer and a cancellation channel to the select.
package park

import (
	"context"
	"time"
)

// Outcome is the reason a timed/cancellable park returned.
type Outcome int

const (
	// Unparked means another goroutine called Unpark.
	Unparked Outcome = iota
	// Expired means the deadline passed before Unpark was called.
	Expired
	// Cancelled means ctx was done before Unpark was called.
	Cancelled
)

// Gate is a binary semaphore: it is either "set" (one pending Unpark) or
// "clear". It is the parking primitive that ReentrantMutex and Condition
// (package mutex) block on.
type Gate struct {
	ch chan struct{}
}

// NewGate returns a Gate in the clear state.
func NewGate() *Gate {
	return &Gate{ch: make(chan struct{}, 1)}
}

// Park blocks until the gate is set, then clears it.
func (g *Gate) Park() {
	<-g.ch
}

// ParkDeadline blocks until the gate is set (returning Unparked), deadline
// passes (returning Expired), or ctx is done (returning Cancelled).
// A zero deadline means no deadline.
func (g *Gate) ParkDeadline(ctx context.Context, deadline time.Time) Outcome {
	if deadline.IsZero() {
		select {
		case <-g.ch:
			return Unparked
		case <-ctx.Done():
			return Cancelled
		}
	}
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()
	select {
	case <-g.ch:
		return Unparked
	case <-timer.C:
		return Expired
	case <-ctx.Done():
		return Cancelled
	}
}

// Unpark sets the gate. It never blocks: if the gate is already set, Unpark
// is a no-op (the semaphore count saturates at 1).
func (g *Gate) Unpark() {
	select {
	case g.ch <- struct{}{}:
	default:
	}
}
