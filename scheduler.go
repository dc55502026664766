package corovisor

import (
	"sync"
	"sync/atomic"
	"time"
)

// Runtime is a pool of Workers sharing one I/O selector and timer wheel
// (spec.md §4.1). It is the entry point for spawning coroutines and
// performing async I/O against them.
type Runtime struct {
	cfg        *config
	workers    []*Worker
	selector   *selector
	timerWheel *timerWheel
	metrics    *Metrics
	logger     Logger

	next      atomic.Uint64
	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	wg        sync.WaitGroup
}

// New starts a Runtime with the given Options, launching one goroutine per
// worker plus the selector's poll loop. Call Close to stop them.
func New(opts ...Option) (*Runtime, error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, err
	}

	sel, err := newSelector()
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		cfg:        cfg,
		selector:   sel,
		timerWheel: newTimerWheel(cfg.ioTimeoutResolution),
		logger:     cfg.logger,
		closeCh:    make(chan struct{}),
	}
	if cfg.metricsEnabled {
		rt.metrics = NewMetrics()
	}

	rt.workers = make([]*Worker, cfg.workerCount)
	for i := range rt.workers {
		rt.workers[i] = newWorker(rt, i)
	}

	rt.wg.Add(len(rt.workers) + 1)
	for _, w := range rt.workers {
		w := w
		go func() {
			defer rt.wg.Done()
			w.run()
		}()
	}
	go func() {
		defer rt.wg.Done()
		rt.selectorLoop()
	}()

	if ev := rt.logger.Event(LevelInfo, "runtime"); ev != nil {
		ev.Int("workers", len(rt.workers)).Msg("started")
	}

	return rt, nil
}

// schedule places co on a worker's ready queue (spec.md §4.1). If
// preferred is non-nil, co is pushed directly onto that worker's queue
// instead of round-robining, keeping it local to whichever worker the
// caller is already running on. Workers steal from each other once their
// own queue runs dry, so round-robin's exact choice only matters for the
// initial distribution.
func (rt *Runtime) schedule(co *Coroutine, preferred *Worker) {
	if preferred != nil {
		preferred.push(co)
		return
	}
	idx := rt.next.Add(1) % uint64(len(rt.workers))
	rt.workers[idx].push(co)
}

// scheduleIO has identical semantics to schedule but is the entry point
// reserved for wakes originating from the selector — readiness callbacks
// and timer-driven I/O timeouts (spec.md §4.1: "identical semantics...
// enabling an optional separate I/O ready queue for batch fairness"). A
// selector callback never runs "inside" a worker's own coroutine, so there
// is no current-worker preference to apply here; it always round-robins.
// Kept as its own entry point, rather than folded into schedule, so a
// future batch-fair I/O queue has a single call site to retarget.
func (rt *Runtime) scheduleIO(co *Coroutine) {
	rt.schedule(co, nil)
}

// currentWorker returns the Worker currently resuming co, or nil if co is
// nil or not presently being run by any Worker — e.g. called from a plain
// goroutine outside the scheduler, or from a coroutine between resumptions
// (spec.md §4.1: "current_worker() ... when called from within a
// worker; undefined otherwise"). Callers that know their own Coroutine
// handle (such as SpawnFrom) use this to keep related work on the same
// worker instead of round-robining.
func currentWorker(co *Coroutine) *Worker {
	if co == nil {
		return nil
	}
	return co.runningOn.Load()
}

// selectorLoop merges pending timer registrations, polls the selector for
// readiness, and fires expired timers, bounding each poll's timeout by the
// soonest pending deadline (spec.md §4.4).
func (rt *Runtime) selectorLoop() {
	for {
		select {
		case <-rt.closeCh:
			return
		default:
		}

		rt.timerWheel.merge()

		timeout := rt.cfg.ioTimeoutResolution
		if d, ok := rt.timerWheel.nextDeadline(time.Now()); ok && d < timeout {
			timeout = d
		}
		if timeout <= 0 {
			timeout = rt.cfg.ioTimeoutResolution
		}

		if err := rt.selector.poll(timeout); err != nil {
			if err == ErrSelectorClosed {
				return
			}
			if ev := rt.logger.Event(LevelError, "selector"); ev != nil {
				ev.Err(err).Msg("poll failed")
			}
		}

		rt.timerWheel.fireExpired(time.Now())
	}
}

// Close stops every worker and the selector loop, waiting for both to
// exit. Safe to call more than once; concurrent calls block until the
// first completes.
func (rt *Runtime) Close() error {
	rt.closeOnce.Do(func() {
		rt.closed.Store(true)
		close(rt.closeCh)
		for _, w := range rt.workers {
			w.wake()
		}
		rt.selector.wakeUp()
		rt.wg.Wait()
		rt.selector.close()
	})
	return nil
}

// Metrics returns the Runtime's metrics collector, or nil if metrics were
// not enabled via WithMetrics.
func (rt *Runtime) Metrics() *Metrics {
	return rt.metrics
}

// JoinHandle observes the outcome of a coroutine spawned with Spawn. Go has
// no generic methods, so Spawn is a package-level function returning a
// generic JoinHandle rather than a method on Runtime.
type JoinHandle[T any] struct {
	co     *Coroutine
	result T
}

// spawn is the shared implementation behind Spawn and SpawnFrom: it
// differs only in which Worker, if any, newly-created coroutines prefer.
func spawn[T any](rt *Runtime, preferred *Worker, fn func(co *Coroutine) T) (*JoinHandle[T], error) {
	if rt.closed.Load() {
		return nil, ErrRuntimeClosed
	}
	jh := &JoinHandle[T]{}
	co := newCoroutine(rt, func(co *Coroutine) {
		jh.result = fn(co)
	})
	jh.co = co
	rt.schedule(co, preferred)
	if rt.metrics != nil {
		rt.metrics.SpawnRate.Increment()
	}
	return jh, nil
}

// Spawn schedules fn to run as a new coroutine and returns a handle to
// observe its result (spec.md §4.1). fn receives the Coroutine so it can
// call YieldNow, suspend on a channel, or perform async I/O. Spawn is for
// callers outside the scheduler (a plain goroutine, not itself a running
// Coroutine): the new coroutine is round-robined across workers. Use
// SpawnFrom to spawn from inside a coroutine's own body and keep the new
// coroutine local to the same worker.
func Spawn[T any](rt *Runtime, fn func(co *Coroutine) T) (*JoinHandle[T], error) {
	return spawn(rt, nil, fn)
}

// SpawnFrom schedules fn exactly like Spawn, but prefers enqueuing the new
// coroutine onto from's current worker instead of round-robining
// (spec.md §4.1: "enqueues it on the current worker's local queue if
// called from a coroutine"). Pass the enclosing body's own *Coroutine as
// from; passing nil behaves exactly like Spawn.
func SpawnFrom[T any](rt *Runtime, from *Coroutine, fn func(co *Coroutine) T) (*JoinHandle[T], error) {
	return spawn(rt, currentWorker(from), fn)
}

// Join blocks the calling goroutine until the coroutine finishes, returning
// its result or the PanicError it failed with (spec.md §4.1 "Failure
// semantics"). jh.result is written by the coroutine's own goroutine before
// completionCh closes, so this read never races it.
func (jh *JoinHandle[T]) Join() (T, error) {
	<-jh.co.completionCh
	if jh.co.panicErr != nil {
		var zero T
		return zero, jh.co.panicErr
	}
	return jh.result, nil
}
