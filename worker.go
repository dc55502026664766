package corovisor

import "math/rand/v2"

// Worker is one slot of logical concurrency in a Runtime's pool: a
// goroutine running a tight loop that pulls a ready Coroutine, resumes it,
// and reacts to whatever signal comes back (spec.md §4.1). It owns one
// local FIFO readyQueue and steals from peers when its own queue runs dry.
type Worker struct {
	rt     *Runtime
	id     int
	queue  *readyQueue
	wakeCh chan struct{}
}

func newWorker(rt *Runtime, id int) *Worker {
	return &Worker{
		rt:     rt,
		id:     id,
		queue:  newReadyQueue(),
		wakeCh: make(chan struct{}, 1),
	}
}

// push marks co Ready, enqueues it onto this worker's ready queue and wakes
// the worker if parked.
func (w *Worker) push(co *Coroutine) {
	co.state.Store(StateReady)
	w.queue.mu.Lock()
	w.queue.Push(co)
	depth := w.queue.Length()
	w.queue.mu.Unlock()
	if w.rt.metrics != nil {
		w.rt.metrics.Queue.UpdateDepth(depth)
	}
	w.wake()
}

func (w *Worker) wake() {
	select {
	case w.wakeCh <- struct{}{}:
	default:
	}
}

// run is the Worker's main loop. It exits when the Runtime closes.
func (w *Worker) run() {
	for {
		co := w.nextRunnable()
		if co == nil {
			if w.rt.metrics != nil {
				w.rt.metrics.RecordPark()
			}
			select {
			case <-w.wakeCh:
			case <-w.rt.closeCh:
				return
			}
			continue
		}

		sig := co.resume(w)
		switch sig.kind {
		case signalYield:
			w.push(co)
		case signalSuspend:
			sig.subscribe(co)
		case signalDone:
			// JoinHandle.Join observes completionCh directly; the
			// Worker has no further bookkeeping to do.
		}

		select {
		case <-w.rt.closeCh:
			return
		default:
		}
	}
}

// nextRunnable returns the next coroutine to run, trying the local queue
// first and falling back to stealing from a random peer.
func (w *Worker) nextRunnable() *Coroutine {
	w.queue.mu.Lock()
	co, ok := w.queue.Pop()
	depth := w.queue.Length()
	w.queue.mu.Unlock()
	if ok {
		if w.rt.metrics != nil {
			w.rt.metrics.Queue.UpdateDepth(depth)
		}
		return co
	}
	return w.steal()
}

// steal takes half the ready queue of a random peer worker, keeps the
// first for itself and redistributes the rest onto its own queue.
func (w *Worker) steal() *Coroutine {
	peers := w.rt.workers
	if len(peers) < 2 {
		return nil
	}
	start := rand.IntN(len(peers))
	for i := 0; i < len(peers); i++ {
		peer := peers[(start+i)%len(peers)]
		if peer == w {
			continue
		}
		peer.queue.mu.Lock()
		stolen := peer.queue.StealHalf()
		peer.queue.mu.Unlock()
		if len(stolen) == 0 {
			continue
		}
		if w.rt.metrics != nil {
			w.rt.metrics.RecordSteal()
		}
		co := stolen[0]
		if len(stolen) > 1 {
			w.queue.mu.Lock()
			for _, extra := range stolen[1:] {
				w.queue.Push(extra)
			}
			w.queue.mu.Unlock()
		}
		return co
	}
	return nil
}
