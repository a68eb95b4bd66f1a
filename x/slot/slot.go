// Package slot implements a single-slot exclusive ownership cell used to hand
// a driver from the main context to the interrupt handler exactly once.
package slot

import "sync/atomic"

// Cell holds at most one value. Install moves ownership in, Take moves it
// out; each happens once for the lifetime of the cell.
type Cell[T any] struct {
	p         atomic.Pointer[T]
	installed atomic.Bool
}

// Install stores v. A second Install, or a nil v, is a programming error.
func (c *Cell[T]) Install(v *T) {
	if v == nil {
		panic("slot: install nil")
	}
	if !c.installed.CompareAndSwap(false, true) {
		panic("slot: already installed")
	}
	c.p.Store(v)
}

// Take removes and returns the value. ok is false if nothing was installed or
// the value was already taken.
func (c *Cell[T]) Take() (v *T, ok bool) {
	v = c.p.Swap(nil)
	return v, v != nil
}
