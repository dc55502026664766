//go:build darwin

package corovisor

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// fdInfo stores per-fd registration state, adapted from the teacher's
// kqueue FastPoller.
type fdInfo struct {
	ed     *eventData
	events IOEvents
	active bool
}

// selector is the Darwin/BSD kqueue backend. One selector per Runtime.
type selector struct {
	kq       int
	wake     *wakeHandle
	eventBuf [256]unix.Kevent_t

	fdMu sync.RWMutex
	fds  [maxFDs]fdInfo

	closed atomic.Bool
}

func newSelector() (*selector, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(kq)

	wh, err := newWakeHandle()
	if err != nil {
		unix.Close(kq)
		return nil, err
	}
	s := &selector{kq: kq, wake: wh}
	if err := s.register(wh.readFD, EventRead, nil); err != nil {
		unix.Close(kq)
		wh.close()
		return nil, err
	}
	return s, nil
}

func (s *selector) register(fd int, events IOEvents, ed *eventData) error {
	if fd < 0 || fd >= maxFDs {
		return ErrFDOutOfRange
	}
	s.fdMu.Lock()
	if s.fds[fd].active {
		s.fdMu.Unlock()
		return ErrFDAlreadyRegistered
	}
	s.fds[fd] = fdInfo{ed: ed, events: events, active: true}
	s.fdMu.Unlock()

	kevents := eventsToKevents(fd, events, unix.EV_ADD|unix.EV_ENABLE)
	if len(kevents) > 0 {
		if _, err := unix.Kevent(s.kq, kevents, nil, nil); err != nil {
			s.fdMu.Lock()
			s.fds[fd] = fdInfo{}
			s.fdMu.Unlock()
			return err
		}
	}
	return nil
}

func (s *selector) unregister(fd int) error {
	if fd < 0 || fd >= maxFDs {
		return ErrFDOutOfRange
	}
	s.fdMu.Lock()
	if !s.fds[fd].active {
		s.fdMu.Unlock()
		return ErrFDNotRegistered
	}
	events := s.fds[fd].events
	s.fds[fd] = fdInfo{}
	s.fdMu.Unlock()

	kevents := eventsToKevents(fd, events, unix.EV_DELETE)
	if len(kevents) > 0 {
		unix.Kevent(s.kq, kevents, nil, nil)
	}
	return nil
}

// poll blocks for up to timeout, dispatching any ready fd's eventData
// callback inline.
func (s *selector) poll(timeout time.Duration) error {
	if s.closed.Load() {
		return ErrSelectorClosed
	}

	var ts *unix.Timespec
	if timeout >= 0 {
		ts = &unix.Timespec{
			Sec:  int64(timeout / time.Second),
			Nsec: int64(timeout % time.Second),
		}
	}

	n, err := unix.Kevent(s.kq, nil, s.eventBuf[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return err
	}

	for i := 0; i < n; i++ {
		fd := int(s.eventBuf[i].Ident)
		if fd == s.wake.readFD {
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
			info.ed.onReady(keventToEvents(&s.eventBuf[i]))
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
	return unix.Close(s.kq)
}

func eventsToKevents(fd int, events IOEvents, flags uint16) []unix.Kevent_t {
	var kevents []unix.Kevent_t
	if events&EventRead != 0 {
		kevents = append(kevents, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags})
	}
	if events&EventWrite != 0 {
		kevents = append(kevents, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags})
	}
	return kevents
}

func keventToEvents(kev *unix.Kevent_t) IOEvents {
	var events IOEvents
	switch kev.Filter {
	case unix.EVFILT_READ:
		events |= EventRead
	case unix.EVFILT_WRITE:
		events |= EventWrite
	}
	if kev.Flags&unix.EV_ERROR != 0 {
		events |= EventError
	}
	if kev.Flags&unix.EV_EOF != 0 {
		events |= EventHangup
	}
	return events
}
