//go:build linux

package corovisor

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// fdInfo stores per-fd registration state: direct array indexing avoids a
// map lookup on the poll hot path (grounded on the teacher's FastPoller).
type fdInfo struct {
	ed     *eventData
	events IOEvents
	active bool
}

// selector is the Linux epoll backend. One selector per Runtime.
type selector struct {
	epfd     int
	wake     *wakeHandle
	eventBuf [256]unix.EpollEvent

	fdMu sync.RWMutex
	fds  [maxFDs]fdInfo

	version atomic.Uint64
	closed  atomic.Bool
}

func newSelector() (*selector, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	wh, err := newWakeHandle()
	if err != nil {
		unix.Close(epfd)
		return nil, err
	}
	s := &selector{epfd: epfd, wake: wh}
	if err := s.registerRaw(wh.fd, EventRead, nil); err != nil {
		unix.Close(epfd)
		wh.close()
		return nil, err
	}
	return s, nil
}

func (s *selector) registerRaw(fd int, events IOEvents, ed *eventData) error {
	if fd < 0 || fd >= maxFDs {
		return ErrFDOutOfRange
	}
	s.fdMu.Lock()
	if s.fds[fd].active {
		s.fdMu.Unlock()
		return ErrFDAlreadyRegistered
	}
	s.fds[fd] = fdInfo{ed: ed, events: events, active: true}
	s.version.Add(1)
	s.fdMu.Unlock()

	ev := &unix.EpollEvent{Events: eventsToEpoll(events), Fd: int32(fd)}
	if err := unix.EpollCtl(s.epfd, unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		s.fdMu.Lock()
		s.fds[fd] = fdInfo{}
		s.fdMu.Unlock()
		return err
	}
	return nil
}

// register associates an eventData with fd for the given interest set.
func (s *selector) register(fd int, events IOEvents, ed *eventData) error {
	return s.registerRaw(fd, events, ed)
}

// unregister removes fd from monitoring.
func (s *selector) unregister(fd int) error {
	if fd < 0 || fd >= maxFDs {
		return ErrFDOutOfRange
	}
	s.fdMu.Lock()
	if !s.fds[fd].active {
		s.fdMu.Unlock()
		return ErrFDNotRegistered
	}
	s.fds[fd] = fdInfo{}
	s.version.Add(1)
	s.fdMu.Unlock()
	return unix.EpollCtl(s.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// poll blocks for up to timeout, dispatching any ready fd's eventData
// callback inline.
func (s *selector) poll(timeout time.Duration) error {
	if s.closed.Load() {
		return ErrSelectorClosed
	}

	timeoutMs := -1
	if timeout >= 0 {
		timeoutMs = int(timeout.Milliseconds())
	}

	v := s.version.Load()
	n, err := unix.EpollWait(s.epfd, s.eventBuf[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return err
	}
	if s.version.Load() != v {
		return nil
	}

	for i := 0; i < n; i++ {
		fd := int(s.eventBuf[i].Fd)
		if fd == s.wake.fd {
			s.wake.drain()
			continue
		}
		if fd < 0 || fd >= maxFDs {
			continue
		}
		s.fdMu.RLock()
		info := s.fds[fd]
		s.fdMu.RUnlock()
		if info.active && info.ed != nil {
			info.ed.onReady(epollToEvents(s.eventBuf[i].Events))
		}
	}
	return nil
}

func (s *selector) wakeUp() error {
	return s.wake.notify()
}

func (s *selector) close() error {
	s.closed.Store(true)
	s.wake.close()
	return unix.Close(s.epfd)
}

func eventsToEpoll(events IOEvents) uint32 {
	var e uint32
	if events&EventRead != 0 {
		e |= unix.EPOLLIN
	}
	if events&EventWrite != 0 {
		e |= unix.EPOLLOUT
	}
	return e
}

func epollToEvents(e uint32) IOEvents {
	var events IOEvents
	if e&unix.EPOLLIN != 0 {
		events |= EventRead
	}
	if e&unix.EPOLLOUT != 0 {
		events |= EventWrite
	}
	if e&unix.EPOLLERR != 0 {
		events |= EventError
	}
	if e&unix.EPOLLHUP != 0 {
		events |= EventHangup
	}
	return events
}
