package corovisor

import (
	"container/heap"
	"sync"
	"time"
)

// timerEntry is one pending (deadline, callback) pair in the wheel,
// grounded on gaio's timedHeap: a container/heap ordered by deadline, with
// each entry tracking its own heap index so it can be canceled in O(log n)
// via heap.Remove.
type timerEntry struct {
	deadline time.Time
	fire     func()
	idx      int
	canceled bool
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].idx = i; h[j].idx = j }
func (h *timerHeap) Push(x interface{}) {
	e := x.(*timerEntry)
	e.idx = len(*h)
	*h = append(*h, e)
}
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.idx = -1
	*h = old[:n-1]
	return e
}

// timerWheel holds every pending I/O deadline for one Selector. Entries
// submitted from worker goroutines queue into a pending slice behind a
// mutex and are merged into the heap at the start of each poll cycle
// (spec.md §4.4), rather than touching the heap directly from arbitrary
// goroutines.
type timerWheel struct {
	resolution time.Duration

	mu      sync.Mutex
	pending []*timerEntry

	heap timerHeap // owned by the selector's poll goroutine only
}

func newTimerWheel(resolution time.Duration) *timerWheel {
	return &timerWheel{resolution: resolution}
}

// schedule queues fire to run after d elapses. Safe to call from any
// goroutine.
func (t *timerWheel) schedule(d time.Duration, fire func()) *timerEntry {
	e := &timerEntry{deadline: time.Now().Add(d), fire: fire, idx: -1}
	t.mu.Lock()
	t.pending = append(t.pending, e)
	t.mu.Unlock()
	return e
}

// cancel prevents e from firing, if it has not fired already. Safe to call
// from any goroutine; the actual heap.Remove happens on the next merge if
// e has not yet been merged in, or immediately if it has. The heap itself
// is otherwise only ever touched by the poll goroutine, so cancel takes
// t.mu for every access to stay race-free against merge/fireExpired.
func (t *timerWheel) cancel(e *timerEntry) {
	if e == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	e.canceled = true
	if e.idx >= 0 && e.idx < len(t.heap) && t.heap[e.idx] == e {
		heap.Remove(&t.heap, e.idx)
	}
}

// merge drains pending into the heap. Must be called only from the
// selector's poll goroutine, at the start of each poll cycle.
func (t *timerWheel) merge() {
	t.mu.Lock()
	defer t.mu.Unlock()
	pending := t.pending
	t.pending = nil

	for _, e := range pending {
		if e.canceled {
			continue
		}
		heap.Push(&t.heap, e)
	}
}

// nextDeadline returns the duration until the soonest pending timer, and
// whether one exists. Used to bound the selector's poll timeout.
func (t *timerWheel) nextDeadline(now time.Time) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.heap) == 0 {
		return 0, false
	}
	d := t.heap[0].deadline.Sub(now)
	if d < 0 {
		d = 0
	}
	if d < t.resolution {
		return t.resolution, true
	}
	return d, true
}

// fireExpired pops and fires every timer whose deadline has passed. Must
// be called only from the selector's poll goroutine.
func (t *timerWheel) fireExpired(now time.Time) {
	t.mu.Lock()
	var fired []*timerEntry
	for len(t.heap) > 0 && !t.heap[0].deadline.After(now) {
		e := heap.Pop(&t.heap).(*timerEntry)
		if !e.canceled {
			fired = append(fired, e)
		}
	}
	t.mu.Unlock()

	for _, e := range fired {
		e.fire()
	}
}
