//go:build linux
// +build linux

package poll

import (
	"os"
	"unsafe"

	"github.com/fzft/go-mock-httpd/log"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

const (
	// ReadEvents is level-triggered read interest.
	ReadEvents uint32 = unix.EPOLLIN | unix.EPOLLPRI
	// EdgeReadEvents reports a transition to readable once.
	EdgeReadEvents uint32 = ReadEvents | unix.EPOLLET
	WriteEvents    uint32 = unix.EPOLLOUT
)

// Readable reports read readiness.
func (e Event) Readable() bool {
	return e.Events&(unix.EPOLLIN|unix.EPOLLPRI) != 0
}

// Failed reports an error or hangup on the fd.
func (e Event) Failed() bool {
	return e.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0
}

// Poll owns an epoll instance and an eventfd used to interrupt Wait.
// Wait must only be called from one goroutine; the Registry methods and Wake
// are safe from any goroutine.
type Poll struct {
	*Registry
	epollFd int
	efd     int

	events []unix.EpollEvent
	ready  []Event
}

// New creates the epoll instance. maxEvents <= 0 means MaxEvents.
func New(maxEvents int) (*Poll, error) {
	if maxEvents <= 0 {
		maxEvents = MaxEvents
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		log.Logger.Error("Failed to create epoll", zap.Error(err))
		return nil, os.NewSyscallError("epoll_create1", err)
	}

	efd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		log.Logger.Error("Failed to create eventfd", zap.Error(err))
		_ = unix.Close(epfd)
		return nil, os.NewSyscallError("eventfd", err)
	}

	// the eventfd bypasses the registry so it is never handed out as a ready fd
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, efd, &unix.EpollEvent{Fd: int32(efd), Events: ReadEvents}); err != nil {
		log.Logger.Error("Failed to add eventfd to epoll", zap.Error(err))
		_ = unix.Close(efd)
		_ = unix.Close(epfd)
		return nil, os.NewSyscallError("epoll_ctl add", err)
	}

	log.Logger.Info("epoll instance created", zap.Int("epfd", epfd), zap.Int("maxEvents", maxEvents))

	return &Poll{
		Registry: NewRegistry(epfd),
		epollFd:  epfd,
		efd:      efd,
		events:   make([]unix.EpollEvent, maxEvents),
		ready:    make([]Event, 0, maxEvents),
	}, nil
}

// Wait blocks until at least one registered fd is ready or msec elapses
// (msec < 0 waits forever). The returned slice is reused by the next call.
// A wait interrupted by a signal returns an empty set. If Wake was called the
// error is ErrSignalStopped, alongside whatever else became ready.
func (p *Poll) Wait(msec int) ([]Event, error) {
	n, err := unix.EpollWait(p.epollFd, p.events, msec)
	if err != nil {
		if err == unix.EINTR {
			return p.ready[:0], nil
		}
		log.Logger.Error("epoll wait error", zap.Error(err))
		return nil, os.NewSyscallError("epoll_wait", err)
	}

	ready := p.ready[:0]
	var stopped error
	for i := 0; i < n; i++ {
		ev := &p.events[i]
		if int(ev.Fd) == p.efd {
			if p.drainWake() {
				stopped = ErrSignalStopped
			}
			continue
		}
		ready = append(ready, Event{Fd: int(ev.Fd), Events: ev.Events})
	}

	if len(ready) > 0 {
		log.Logger.Debug("epoll wait returned", zap.Int("events", len(ready)))
	}
	return ready, stopped
}

// Wake makes the current or next Wait return ErrSignalStopped.
func (p *Poll) Wake() error {
	var one uint64 = 1
	_, err := unix.Write(p.efd, (*(*[8]byte)(unsafe.Pointer(&one)))[:])
	if err != nil && err != unix.EAGAIN {
		log.Logger.Error("Failed to write to event fd", zap.Error(err))
		return os.NewSyscallError("write eventfd", err)
	}
	return nil
}

func (p *Poll) drainWake() bool {
	var buf uint64
	_, err := unix.Read(p.efd, (*(*[8]byte)(unsafe.Pointer(&buf)))[:])
	if err != nil {
		if err != unix.EAGAIN {
			log.Logger.Error("Failed to read from event fd", zap.Error(err))
		}
		return false
	}
	return buf > 0
}

// Close order: registered fds, eventfd, epoll.
func (p *Poll) Close() error {
	errs := p.closeAndClearAll()

	if err := unix.EpollCtl(p.epollFd, unix.EPOLL_CTL_DEL, p.efd, nil); err != nil {
		errs = multierr.Append(errs, os.NewSyscallError("epoll_ctl del", err))
	}
	if err := unix.Close(p.efd); err != nil {
		errs = multierr.Append(errs, os.NewSyscallError("close eventfd", err))
	}
	if err := unix.Close(p.epollFd); err != nil {
		errs = multierr.Append(errs, os.NewSyscallError("close epoll", err))
	}

	log.Logger.Debug("epoll instance destroyed", zap.Int("epfd", p.epollFd))
	return errs
}
