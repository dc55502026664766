// Package corovisor provides a stackful-coroutine runtime with an
// integrated I/O reactor and coroutine-aware synchronization.
//
// # Architecture
//
// The runtime multiplexes many lightweight, cooperatively-scheduled
// coroutines onto a small pool of [Worker] threads ([Runtime]). Coroutines
// that would otherwise block hand themselves to an [EventSource] (I/O,
// timers, channels) under a race-free subscribe protocol, and are woken
// exactly once when the wait condition is satisfied.
//
// Three tightly-coupled subsystems make up the runtime:
//
//   - The scheduler ([Runtime], [Worker]): a fixed-size pool of goroutines,
//     each owning a local FIFO ready queue, stealing work from peers, and
//     parking when idle.
//   - The I/O selector (one per [Runtime]): a reactor wrapping epoll (Linux),
//     kqueue (Darwin/BSD) or IOCP (Windows) behind one contract — register
//     an I/O attempt, optionally with a timeout, and deliver a wake exactly
//     once.
//   - The coroutine-aware SPSC channel ([NewChannel]): the reference
//     blocking primitive, built on the same [Blocker]/waiter-slot protocol
//     every other blocking primitive in the runtime uses.
//
// # Context switch
//
// corovisor treats the stackful context switch itself as a collaborator
// with a declared contract ("save caller, restore callee, parameter slot
// survives the round trip") rather than something it implements from
// scratch: each [Coroutine] is backed by one goroutine, and Go's own
// runtime performs the save/restore whenever that goroutine blocks on a
// channel receive. Everything above that — run queues, stealing,
// park/unpark, the selector, the EventSource protocol and the timer wheel —
// is this package's own code.
//
// # Platform support
//
// I/O polling uses platform-native mechanisms:
//   - Linux: epoll
//   - Darwin/BSD: kqueue
//   - Windows: IOCP (I/O Completion Ports)
//
// # Usage
//
//	rt, err := corovisor.New(corovisor.WithWorkerCount(4))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close()
//
//	jh, err := corovisor.Spawn(rt, func(co *corovisor.Coroutine) int {
//	    return 42
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	v, err := jh.Join()
//
// Spawning from inside a running coroutine's own body can use SpawnFrom
// with that coroutine's handle to keep the new coroutine on the same
// worker instead of round-robining across the pool.
//
// # Non-goals
//
// No preemptive scheduling, no multi-producer channels, no durable queues,
// and no fairness guarantees stronger than FIFO per worker queue.
package corovisor
