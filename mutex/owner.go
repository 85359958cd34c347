package mutex

import "sync/atomic"

// Owner identifies a logical lock holder. Go gives goroutines no public
// identity the way Java exposes Thread.currentThread(), so callers that
// want reentrancy obtain one Owner (typically once per goroutine, or once
// per logical "thread" of control such as a fork/join worker) and pass it
// to every Lock/Unlock/Await call they make — the explicit-token
// replacement for an implicit thread identity (spec §9 design note on
// thread-local state: "make explicit").
type Owner uint64

// noOwner is the sentinel for "unheld", matching the spec's "0 = unheld"
// holder-identity convention (spec §3 "Mutex state").
const noOwner Owner = 0

var ownerSeq atomic.Uint64

// NewOwner allocates a fresh, never-repeating Owner token.
func NewOwner() Owner {
	return Owner(ownerSeq.Add(1))
}
