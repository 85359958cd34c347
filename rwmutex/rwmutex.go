// Package rwmutex implements the reader/writer lock (spec §4.4), composed
// from package mutex's ReentrantMutex and Condition exactly as spec §4.4
// prescribes ("Composed from §4.3").
//
// Readers and writers are mutually exclusive, tracked without a holder
// count: a monotonically increasing entered-readers counter and a
// monotonically increasing exited-readers counter, with "reading" defined
// as entered > exited and "writing" defined as (entry mutex held) &&
// entered == exited. A writer registers intent, then waits for the reader
// counters to drain to equality before proceeding; readers register and
// deregister against the counter pair without ever blocking each other.
package rwmutex

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/dmlloyd/jsr166-sub001/mutex"
)

// ErrUnsupported is returned by the reader lock's NewCondition, since a
// shared lock cannot host an exclusive wait set (spec §4.4, §6).
var ErrUnsupported = errors.New("jsr166: unsupported: read lock does not support a condition")

// maxReaderRetry bounds TryReadLock's yield-and-retry loop so a reader
// under pathological scheduling eventually gives up rather than starving
// indefinitely (spec §9 Open Question, resolved in DESIGN.md: "a bounded
// retry budget before returning false").
const maxReaderRetry = 32

// ReadWriteMutex is a reader/writer lock: any number of readers may hold it
// concurrently, exclusive of any writer (spec §4.4).
type ReadWriteMutex struct {
	entry        *mutex.ReentrantMutex // exclusive mutex writers hold while writing
	writerCond   *mutex.Condition      // signalled when entered==exited
	writerOwner  mutex.Owner           // owner token the entry mutex is currently held under (writer side)

	entered atomic.Uint64 // readers-entered, monotonically increasing
	exited  atomic.Uint64 // readers-exited, monotonically increasing

	writerWaiting atomic.Bool
}

// New returns a ReadWriteMutex in the unlocked state.
func New() *ReadWriteMutex {
	rw := &ReadWriteMutex{entry: mutex.New()}
	rw.writerCond = rw.entry.NewCondition()
	return rw
}

// ReadLock acquires the lock for shared read access (spec §4.4 "Readers
// acquire the entry mutex briefly, increment entered-readers, then release
// it").
func (rw *ReadWriteMutex) ReadLock() {
	owner := mutex.NewOwner()
	rw.entry.Lock(owner)
	rw.entered.Add(1)
	_ = rw.entry.Unlock(owner)
}

// TryReadLock attempts to acquire the read lock without blocking
// indefinitely. It fails fast if a writer is already waiting, to avoid
// writer starvation (spec §4.4 "tryLock for reader"), retrying through
// mere entry-mutex contention up to maxReaderRetry times before giving up.
func (rw *ReadWriteMutex) TryReadLock() bool {
	owner := mutex.NewOwner()
	for attempt := 0; attempt < maxReaderRetry; attempt++ {
		if rw.writerWaiting.Load() {
			return false
		}
		if rw.entry.TryLock(owner) {
			rw.entered.Add(1)
			_ = rw.entry.Unlock(owner)
			return true
		}
		runtime.Gosched()
	}
	return false
}

// ReadUnlock releases a previously acquired read lock. Incrementing
// exited-readers under the entry mutex and, if it equalizes with
// entered-readers, signalling the writer condition (spec §4.4 "Release
// decrements exited-readers under a separate write-check mutex").
//
// This implementation uses the same entry mutex for that accounting
// rather than a wholly separate "write-check mutex", since the entry
// mutex is already reentrant and uncontended on the common read-release
// path; this is a deliberate simplification of spec's two-mutex recipe
// that preserves the exact observable invariant spec states: "writing"
// iff entry mutex held && entered==exited.
func (rw *ReadWriteMutex) ReadUnlock() {
	owner := mutex.NewOwner()
	rw.entry.Lock(owner)
	newExited := rw.exited.Add(1)
	if newExited == rw.entered.Load() {
		rw.writerCond.Signal()
	}
	_ = rw.entry.Unlock(owner)
}

// WriteLock acquires the lock for exclusive write access, blocking until
// all readers that entered before this call have exited (spec §4.4
// "Writers acquire the entry mutex, then wait on an internal condition
// until exited-readers equals entered-readers"). Nested WriteLock calls by
// the same owner are reentrant, via the entry mutex's own recursion
// counter.
func (rw *ReadWriteMutex) WriteLock(owner mutex.Owner) {
	rw.entry.Lock(owner)
	rw.writerOwner = owner
	rw.writerWaiting.Store(true)
	for rw.entered.Load() != rw.exited.Load() {
		_ = rw.writerCond.Await(context.Background(), owner)
	}
	rw.writerWaiting.Store(false)
}

// TryWriteLock attempts to acquire the write lock without blocking.
func (rw *ReadWriteMutex) TryWriteLock(owner mutex.Owner) bool {
	if !rw.entry.TryLock(owner) {
		return false
	}
	if rw.entered.Load() != rw.exited.Load() {
		_ = rw.entry.Unlock(owner)
		return false
	}
	rw.writerOwner = owner
	return true
}

// WriteLockTimeout attempts to acquire the write lock, waiting up to
// timeout.
func (rw *ReadWriteMutex) WriteLockTimeout(ctx context.Context, owner mutex.Owner, timeout time.Duration) (bool, error) {
	ok, err := rw.entry.TryLockTimeout(ctx, owner, timeout)
	if err != nil || !ok {
		return false, err
	}
	rw.writerOwner = owner
	rw.writerWaiting.Store(true)
	defer func() { rw.writerWaiting.Store(false) }()
	deadline := time.Now().Add(timeout)
	for rw.entered.Load() != rw.exited.Load() {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			_ = rw.entry.Unlock(owner)
			return false, nil
		}
		if _, err := rw.writerCond.AwaitNanos(ctx, owner, remaining); err != nil {
			_ = rw.entry.Unlock(owner)
			return false, err
		}
	}
	return true, nil
}

// WriteUnlock releases the write lock (spec §4.4).
func (rw *ReadWriteMutex) WriteUnlock(owner mutex.Owner) error {
	return rw.entry.Unlock(owner)
}

// Downgrade acquires the read lock while still holding the write lock, then
// releases the write lock — the supported downgrade path (spec §4.4
// "Downgrade is supported... Upgrade is NOT supported").
func (rw *ReadWriteMutex) Downgrade(owner mutex.Owner) error {
	if !rw.entry.IsHeld(owner) {
		return mutex.ErrIllegalMonitorState
	}
	rw.entered.Add(1)
	return rw.entry.Unlock(owner)
}

// WriterCondition returns a Condition forwarded to the entry mutex, for use
// while holding the write lock (spec §4.4 "Writer lock forwards
// newCondition to the entry mutex").
func (rw *ReadWriteMutex) WriterCondition() *mutex.Condition {
	return rw.entry.NewCondition()
}

// ReaderNewCondition always fails: a reader lock cannot host a condition,
// because a condition's wait must atomically release full ownership, and
// the reader side never holds the entry mutex across a blocking wait
// (spec §4.4 "Reader lock does not support newCondition").
func (rw *ReadWriteMutex) ReaderNewCondition() (*mutex.Condition, error) {
	return nil, ErrUnsupported
}
