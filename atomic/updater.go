package atomic

import "sync/atomic"

// FieldUpdater provides CAS/getAndSet/getAndAdd over a *int64 field that
// lives inside a larger struct, without per-cell allocation (spec §4.2
// "Field-updater variant: given a mutable cell located at a stable field
// offset in some larger object, provides the same operations without
// per-cell allocation"). The source project needed reflection to recover a
// field's offset at runtime because Java has no first-class pointer-to-field
// type; Go does, so the updater here is simply a function of a *int64 taken
// directly from the enclosing struct (spec §9 "in a systems language,
// replace with direct atomic fields... the updater abstraction exists only
// to paper over missing field-level atomics; it is not part of the public
// design"). FieldUpdater is kept as a thin convenience, not a requirement:
// callers are free to use atomic.Int64 fields directly instead.
type FieldUpdater struct {
	cell *int64
}

// NewFieldUpdater returns an updater bound to the field at cell.
func NewFieldUpdater(cell *int64) FieldUpdater {
	return FieldUpdater{cell: cell}
}

func (u FieldUpdater) Load() int64                        { return atomic.LoadInt64(u.cell) }
func (u FieldUpdater) Store(val int64)                    { atomic.StoreInt64(u.cell, val) }
func (u FieldUpdater) CompareAndSwap(old, new int64) bool { return atomic.CompareAndSwapInt64(u.cell, old, new) }
func (u FieldUpdater) GetAndSet(val int64) int64          { return atomic.SwapInt64(u.cell, val) }
func (u FieldUpdater) GetAndAdd(delta int64) int64        { return atomic.AddInt64(u.cell, delta) - delta }
func (u FieldUpdater) AddAndGet(delta int64) int64        { return atomic.AddInt64(u.cell, delta) }
