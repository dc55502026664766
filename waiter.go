package corovisor

import "sync/atomic"

// waiterSlot is a single-cell holder for at most one pending [Blocker],
// the cross-thread publish point every EventSource in this package uses
// (grounded on spsc.rs's AtomicOption<Blocker>). All three operations are
// lock-free; unsyncStore is a plain atomic store rather than a true
// non-atomic write, since Go has no safe unsynchronized alternative to
// offer a Pointer store (accepted deviation, spec.md §9 Design Notes: "a
// release-store, accepting one extra fence").
type waiterSlot struct {
	v atomic.Pointer[Blocker]
}

// unsyncStore publishes b, unconditionally overwriting whatever was
// present. Used by subscribe protocols that have already established,
// by construction, that the slot is empty (spec.md §4.2).
func (w *waiterSlot) unsyncStore(b *Blocker) {
	w.v.Store(b)
}

// swap publishes b and returns whatever was previously present.
func (w *waiterSlot) swap(b *Blocker) *Blocker {
	return w.v.Swap(b)
}

// take clears the slot and returns what was present, or nil if empty.
func (w *waiterSlot) take() *Blocker {
	return w.v.Swap(nil)
}
