package core

import (
	"fmt"
	"sync/atomic"
)

// poisoned marks a counter whose object has already been destroyed
const poisoned = -1 << 40

// RefCount is an atomic reference counter for objects shared between
// scenes and render workers. The zero value holds one reference. The
// destroy hook runs exactly once when the last reference is released;
// retaining or releasing a destroyed object panics.
type RefCount struct {
	extra   atomic.Int64 // references beyond the first
	destroy func()
}

// OnDestroy records the hook run on final release
func (r *RefCount) OnDestroy(destroy func()) {
	r.destroy = destroy
}

// Retain adds a reference. Nil counters are ignored.
func (r *RefCount) Retain() {
	if r == nil {
		return
	}
	if n := r.extra.Add(1); n <= 0 {
		panic("core: retain after release")
	}
}

// Release drops a reference and reports whether the object was destroyed.
// Nil counters are ignored.
func (r *RefCount) Release() bool {
	if r == nil {
		return false
	}
	n := r.extra.Add(-1)
	switch {
	case n >= 0:
		return false
	case n == -1:
		// Poison before running the hook so a re-entrant release is caught
		r.extra.Store(poisoned)
		if r.destroy != nil {
			r.destroy()
		}
		return true
	default:
		panic("core: release of destroyed object")
	}
}

// Count returns the current number of references, or zero once destroyed
func (r *RefCount) Count() int64 {
	if r == nil {
		return 0
	}
	return max(0, r.extra.Load()+1)
}

// Alive reports whether the object still has references
func (r *RefCount) Alive() bool {
	return r != nil && r.extra.Load() >= 0
}

// MustBeAlive panics when the object has been destroyed, so that use
// after release is loud instead of silent.
func (r *RefCount) MustBeAlive(what string) {
	if r != nil && r.extra.Load() < 0 {
		panic(fmt.Sprintf("core: use of released %s", what))
	}
}

// Retainer is implemented by reference-counted objects
type Retainer interface {
	Retain()
	Release() bool
}

// Retain retains obj if it is reference-counted. Nil is a no-op.
func Retain(obj any) {
	if r, ok := obj.(Retainer); ok && r != nil {
		r.Retain()
	}
}

// Release releases obj if it is reference-counted. Nil is a no-op.
func Release(obj any) bool {
	if r, ok := obj.(Retainer); ok && r != nil {
		return r.Release()
	}
	return false
}
