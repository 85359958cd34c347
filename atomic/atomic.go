// Package atomic provides the atomic word primitives (spec §4.2): plain
// CAS/load/store/add wrappers, and the tagged-reference variants
// (StampedReference, MarkedReference) that enable ABA-safe lock-free
// protocols by updating a pointer and an auxiliary tag in one CAS.
//
// StampedReference and MarkedReference hold a pointer to an immutable
// (value, stamp) or (value, mark) pair and drive every update through a
// load/modify/CompareAndSwap retry loop on that pointer, so a reference and
// its tag always change together in one atomic step.
package atomic

import "sync/atomic"

// Int32 is an atomic 32-bit signed integer.
type Int32 struct{ v atomic.Int32 }

func (a *Int32) Load() int32                         { return a.v.Load() }
func (a *Int32) Store(val int32)                     { a.v.Store(val) }
func (a *Int32) CompareAndSwap(old, new int32) bool  { return a.v.CompareAndSwap(old, new) }
func (a *Int32) GetAndSet(val int32) int32           { return a.v.Swap(val) }
func (a *Int32) GetAndAdd(delta int32) (old int32)   { return a.v.Add(delta) - delta }
func (a *Int32) AddAndGet(delta int32) int32         { return a.v.Add(delta) }

// WeakCompareAndSwap is permitted to fail spuriously and to provide no
// ordering guarantee beyond the underlying atomic operation (spec §4.2).
// This implementation aliases the strong form, as the spec explicitly
// permits.
func (a *Int32) WeakCompareAndSwap(old, new int32) bool { return a.v.CompareAndSwap(old, new) }

// Int64 is an atomic 64-bit signed integer.
type Int64 struct{ v atomic.Int64 }

func (a *Int64) Load() int64                        { return a.v.Load() }
func (a *Int64) Store(val int64)                    { a.v.Store(val) }
func (a *Int64) CompareAndSwap(old, new int64) bool { return a.v.CompareAndSwap(old, new) }
func (a *Int64) GetAndSet(val int64) int64          { return a.v.Swap(val) }
func (a *Int64) GetAndAdd(delta int64) (old int64)  { return a.v.Add(delta) - delta }
func (a *Int64) AddAndGet(delta int64) int64        { return a.v.Add(delta) }

func (a *Int64) WeakCompareAndSwap(old, new int64) bool { return a.v.CompareAndSwap(old, new) }

// Uint32 is an atomic 32-bit unsigned integer.
type Uint32 struct{ v atomic.Uint32 }

func (a *Uint32) Load() uint32                         { return a.v.Load() }
func (a *Uint32) Store(val uint32)                     { a.v.Store(val) }
func (a *Uint32) CompareAndSwap(old, new uint32) bool  { return a.v.CompareAndSwap(old, new) }
func (a *Uint32) GetAndSet(val uint32) uint32          { return a.v.Swap(val) }
func (a *Uint32) GetAndAdd(delta uint32) (old uint32)  { return a.v.Add(delta) - delta }
func (a *Uint32) AddAndGet(delta uint32) uint32        { return a.v.Add(delta) }

func (a *Uint32) WeakCompareAndSwap(old, new uint32) bool { return a.v.CompareAndSwap(old, new) }

// Uint64 is an atomic 64-bit unsigned integer.
type Uint64 struct{ v atomic.Uint64 }

func (a *Uint64) Load() uint64                        { return a.v.Load() }
func (a *Uint64) Store(val uint64)                    { a.v.Store(val) }
func (a *Uint64) CompareAndSwap(old, new uint64) bool { return a.v.CompareAndSwap(old, new) }
func (a *Uint64) GetAndSet(val uint64) uint64         { return a.v.Swap(val) }
func (a *Uint64) GetAndAdd(delta uint64) (old uint64) { return a.v.Add(delta) - delta }
func (a *Uint64) AddAndGet(delta uint64) uint64       { return a.v.Add(delta) }

func (a *Uint64) WeakCompareAndSwap(old, new uint64) bool { return a.v.CompareAndSwap(old, new) }

// Bool is an atomic boolean.
type Bool struct{ v atomic.Bool }

func (a *Bool) Load() bool                        { return a.v.Load() }
func (a *Bool) Store(val bool)                    { a.v.Store(val) }
func (a *Bool) CompareAndSwap(old, new bool) bool { return a.v.CompareAndSwap(old, new) }

// GetAndSet atomically sets the value to val and returns the previous value.
func (a *Bool) GetAndSet(val bool) bool {
	for {
		old := a.v.Load()
		if a.v.CompareAndSwap(old, val) {
			return old
		}
	}
}
