// Package atomicfloat provides a lock-free float64 cell for publishing
// per-worker progress figures (current best cost, utilization) that the
// live-status view reads without contending with the coarse search mutex.
//
// WARNING: relies on unsafe reinterpretation of a float64's bit pattern
// for CompareAndSwap. Keep critical sections around the unsafe pointer
// short: the gc may relocate val between taking its address and the CAS
// if other code intervenes.
package atomicfloat

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// Float64 encapsulates a float64 for non-locking atomic reads and writes.
type Float64 struct {
	val float64
}

// New returns a Float64 initialized to val.
func New(val float64) *Float64 {
	return &Float64{val: val}
}

// Load atomically reads the current value.
func (f *Float64) Load() float64 {
	bits := atomic.LoadUint64((*uint64)(unsafe.Pointer(&f.val)))
	return math.Float64frombits(bits)
}

// Store atomically overwrites the value. Unlike a CAS-retry loop, a failed
// attempt is not retried: if val changed concurrently, the caller simply
// lost a race with a fresher write and its own write is dropped.
func (f *Float64) Store(newVal float64) (stored bool) {
	old := f.Load()
	return atomic.CompareAndSwapUint64(
		(*uint64)(unsafe.Pointer(&f.val)),
		math.Float64bits(old),
		math.Float64bits(newVal))
}
