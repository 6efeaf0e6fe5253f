//go:build linux
// +build linux

package poll

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// Registry is a wrapper around epoll_ctl. It keeps track of the fds that are
// registered to epoll and their interest masks.
type Registry struct {
	epollFd int

	mu       sync.Mutex
	epollSet map[int]uint32
}

func NewRegistry(epollFd int) *Registry {
	return &Registry{
		epollFd:  epollFd,
		epollSet: make(map[int]uint32),
	}
}

// Register adds fd with the given interest mask. Registering an fd twice fails with EEXIST.
func (r *Registry) Register(fd int, events uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.epollSet[fd]; ok {
		return os.NewSyscallError("epoll_ctl add", unix.EEXIST)
	}
	if err := r.ctl(unix.EPOLL_CTL_ADD, fd, events); err != nil {
		return os.NewSyscallError("epoll_ctl add", err)
	}

	r.epollSet[fd] = events
	return nil
}

// Modify replaces the interest mask of a registered fd.
func (r *Registry) Modify(fd int, events uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.epollSet[fd]; !ok {
		return os.NewSyscallError("epoll_ctl mod", unix.ENOENT)
	}
	if err := r.ctl(unix.EPOLL_CTL_MOD, fd, events); err != nil {
		return os.NewSyscallError("epoll_ctl mod", err)
	}

	r.epollSet[fd] = events
	return nil
}

// Deregister removes fd from epoll. The fd itself stays open.
func (r *Registry) Deregister(fd int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.epollSet[fd]; !ok {
		return os.NewSyscallError("epoll_ctl del", unix.ENOENT)
	}
	// the registry entry goes even if the kernel already dropped the fd
	delete(r.epollSet, fd)

	if err := unix.EpollCtl(r.epollFd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return os.NewSyscallError("epoll_ctl del", err)
	}
	return nil
}

// Registered reports whether fd is currently registered.
func (r *Registry) Registered(fd int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.epollSet[fd]
	return ok
}

// Interest returns the mask fd was registered with.
func (r *Registry) Interest(fd int) (uint32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	events, ok := r.epollSet[fd]
	return events, ok
}

// Len is the number of registered fds.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.epollSet)
}

// closeAndClearAll deletes and closes every registered fd.
func (r *Registry) closeAndClearAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs error
	for fd := range r.epollSet {
		if err := unix.EpollCtl(r.epollFd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete fd: %d error: %w", fd, err))
		}
		if err := unix.Close(fd); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close fd: %d error: %w", fd, err))
		}
		delete(r.epollSet, fd)
	}
	return errs
}

func (r *Registry) ctl(op int, fd int, events uint32) error {
	return unix.EpollCtl(r.epollFd, op, fd, &unix.EpollEvent{Fd: int32(fd), Events: events})
}
