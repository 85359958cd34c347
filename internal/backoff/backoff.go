// Package backoff implements the spin-then-yield delay loop used by package
// mutex's spinlock, the way vanadium-go.lib/nsync's spinDelay backs its Mu
// and CV retry loops.
package backoff

import "runtime"

// spinLimit is the number of busy-spin rounds attempted before the caller
// falls back to runtime.Gosched. Kept small: short critical sections (a
// handful of CAS attempts) resolve within a handful of spins; longer
// contention is better served by yielding to the scheduler.
const spinLimit = 7

// Delay performs one round of a spin-then-yield backoff and returns the
// attempt count to pass on the next round.
//
//	var attempts uint
//	for !tryOnce() {
//		attempts = backoff.Delay(attempts)
//	}
func Delay(attempts uint) uint {
	if attempts < spinLimit {
		for i := 0; i != 1<<attempts; i++ {
		}
		return attempts + 1
	}
	runtime.Gosched()
	return attempts
}
