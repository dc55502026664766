package corovisor

import "sync"

// chunkSize is the number of coroutines per node in the readyQueue's
// chunked linked list: 128 pointers, i.e. 1 KiB of task slots per chunk on
// a 64-bit platform.
const chunkSize = 128

// readyQueue is a chunked linked-list FIFO holding runnable coroutines, one
// per [Worker]. The owning worker pushes newly-ready coroutines at the tail
// and pops from the head to run them; other workers take the external lock
// to steal a batch from the head when they run dry (spec.md §4.1
// "work-stealing... local FIFO ready queues").
//
// Thread safety: callers must hold mu for every method below; the methods
// do not take it themselves. Worker locks q.mu around each call, so
// owner-local push/pop and a thief's StealHalf share one critical section.
type readyQueue struct {
	mu     sync.Mutex
	head   *coroChunk
	tail   *coroChunk
	length int
}

var coroChunkPool = sync.Pool{
	New: func() any { return &coroChunk{} },
}

type coroChunk struct {
	tasks   [chunkSize]*Coroutine
	next    *coroChunk
	readPos int
	pos     int
}

func newCoroChunk() *coroChunk {
	c := coroChunkPool.Get().(*coroChunk)
	c.pos = 0
	c.readPos = 0
	c.next = nil
	return c
}

func returnCoroChunk(c *coroChunk) {
	for i := 0; i < c.pos; i++ {
		c.tasks[i] = nil
	}
	c.pos = 0
	c.readPos = 0
	c.next = nil
	coroChunkPool.Put(c)
}

func newReadyQueue() *readyQueue {
	return &readyQueue{}
}

// Push enqueues co at the tail. Caller must hold q.mu.
func (q *readyQueue) Push(co *Coroutine) {
	if q.tail == nil {
		q.tail = newCoroChunk()
		q.head = q.tail
	}
	if q.tail.pos == len(q.tail.tasks) {
		newTail := newCoroChunk()
		q.tail.next = newTail
		q.tail = newTail
	}
	q.tail.tasks[q.tail.pos] = co
	q.tail.pos++
	q.length++
}

// Pop dequeues from the head. Caller must hold q.mu.
func (q *readyQueue) Pop() (*Coroutine, bool) {
	if q.head == nil {
		return nil, false
	}
	if q.head.readPos >= q.head.pos {
		if q.head == q.tail {
			q.head.pos = 0
			q.head.readPos = 0
			return nil, false
		}
		old := q.head
		q.head = q.head.next
		returnCoroChunk(old)
	}
	if q.head.readPos >= q.head.pos {
		return nil, false
	}

	co := q.head.tasks[q.head.readPos]
	q.head.tasks[q.head.readPos] = nil
	q.head.readPos++
	q.length--

	if q.head.readPos >= q.head.pos {
		if q.head == q.tail {
			q.head.pos = 0
			q.head.readPos = 0
			return co, true
		}
		old := q.head
		q.head = q.head.next
		returnCoroChunk(old)
	}
	return co, true
}

// StealHalf removes up to half (rounded up, at least 1) of q's coroutines
// from the head and returns them in FIFO order. Caller must hold q.mu.
func (q *readyQueue) StealHalf() []*Coroutine {
	n := (q.length + 1) / 2
	if n == 0 {
		return nil
	}
	stolen := make([]*Coroutine, 0, n)
	for i := 0; i < n; i++ {
		co, ok := q.Pop()
		if !ok {
			break
		}
		stolen = append(stolen, co)
	}
	return stolen
}

// Length returns the queue length. Caller must hold q.mu.
func (q *readyQueue) Length() int {
	return q.length
}
