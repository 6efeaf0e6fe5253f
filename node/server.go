//go:build linux
// +build linux

package node

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fzft/go-mock-httpd/log"
	"github.com/fzft/go-mock-httpd/poll"
	"github.com/fzft/go-mock-httpd/pool"
	bufpool "github.com/wuyongjia/pool"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// State is the lifecycle position of a Server.
type State uint32

const (
	StateInit State = iota
	StateListening
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateListening:
		return "LISTENING"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

var ErrNotListening = errors.New("server is not listening")

// Stats is a snapshot of the server counters.
type Stats struct {
	Accepted int64
	Requests int64
	Failed   int64
	Closed   int64
	Open     int
}

// Server is the dispatcher: one reactor goroutine accepting and classifying
// events, and a worker pool answering requests.
type Server struct {
	cfg      Config
	state    atomic.Uint32
	listenFD int
	port     int
	poll     *poll.Poll
	pool     *pool.Pool
	handler  Handler
	buffers  *bufpool.Pool

	// fds currently owned by a queued or running task
	mu    sync.Mutex
	owned map[int]struct{}

	accepted atomic.Int64
	requests atomic.Int64
	failed   atomic.Int64
	closed   atomic.Int64
}

// NewServer starts the worker pool right away; the socket is created by Listen.
func NewServer(cfg Config) *Server {
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = ReadBufferSize
	}
	size := cfg.ReadBufferSize

	return &Server{
		cfg:      cfg,
		listenFD: -1,
		pool:     pool.New(cfg.Threads),
		handler:  DefaultHandler{},
		owned:    make(map[int]struct{}),
		buffers: bufpool.New(4*(cfg.Threads+1), func() interface{} {
			buf := make([]byte, size)
			return &buf
		}),
	}
}

// SetHandler replaces DefaultHandler. Call it before Serve.
func (s *Server) SetHandler(handler Handler) {
	s.handler = handler
}

func (s *Server) State() State {
	return State(s.state.Load())
}

// Listen creates the reactor and the listening socket and registers it with
// level-triggered read interest. Any error here is fatal for the caller.
func (s *Server) Listen() (err error) {
	if s.State() != StateInit {
		return fmt.Errorf("listen in state %s", s.State())
	}

	s.poll, err = poll.New(s.cfg.MaxEvents)
	if err != nil {
		return fmt.Errorf("create reactor: %w", err)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		_ = s.poll.Close()
		return os.NewSyscallError("socket", err)
	}

	fail := func(op string, err error) error {
		_ = unix.Close(fd)
		_ = s.poll.Close()
		return os.NewSyscallError(op, err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		log.Logger.Error("Set SO_REUSEADDR failed", zap.Error(err))
	}
	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: s.cfg.Port}); err != nil {
		return fail("bind", err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		return fail("listen", err)
	}
	if err := s.poll.Register(fd, poll.ReadEvents); err != nil {
		_ = unix.Close(fd)
		_ = s.poll.Close()
		return fmt.Errorf("register listener: %w", err)
	}

	s.listenFD = fd
	if sa, err := unix.Getsockname(fd); err == nil {
		if in4, ok := sa.(*unix.SockaddrInet4); ok {
			s.port = in4.Port
		}
	}
	s.state.Store(uint32(StateListening))
	log.Logger.Info("server initialized", zap.Int("port", s.Port()), zap.Int("workers", s.cfg.Threads))
	return nil
}

// Port is the bound port, useful when the configured port was 0.
func (s *Server) Port() int {
	return s.port
}

// Serve runs the event loop until Shutdown is called or the reactor fails.
func (s *Server) Serve() error {
	if s.State() != StateListening {
		return ErrNotListening
	}
	s.state.Store(uint32(StateRunning))
	log.Logger.Info("server started, entering event loop")

	for {
		events, err := s.poll.Wait(-1)
		for _, ev := range events {
			s.dispatch(ev)
		}

		switch {
		case err == nil:
		case errors.Is(err, poll.ErrSignalStopped):
			s.close()
			return nil
		default:
			s.close()
			return fmt.Errorf("event loop: %w", err)
		}
	}
}

// Run listens, serves and stops on SIGINT, SIGTERM or SIGQUIT.
func (s *Server) Run() error {
	if err := s.Listen(); err != nil {
		log.Logger.Error("listen error", zap.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigCh)

	go func() {
		if sig, ok := <-sigCh; ok {
			log.Logger.Info("signal received", zap.String("signal", sig.String()))
			_ = s.Shutdown()
		}
	}()

	return s.Serve()
}

// Shutdown wakes the event loop; Serve then drains the pool and returns.
func (s *Server) Shutdown() error {
	if s.poll == nil {
		return ErrNotListening
	}
	if s.State() == StateStopped {
		return nil
	}
	return s.poll.Wake()
}

func (s *Server) Stats() Stats {
	var open int
	if st := s.State(); st == StateListening || st == StateRunning {
		// minus the listener
		open = s.poll.Len() - 1
	}
	return Stats{
		Accepted: s.accepted.Load(),
		Requests: s.requests.Load(),
		Failed:   s.failed.Load(),
		Closed:   s.closed.Load(),
		Open:     open,
	}
}

// dispatch classifies one ready event. Runs on the reactor goroutine only.
func (s *Server) dispatch(ev poll.Event) {
	fd := ev.Fd

	if fd == s.listenFD {
		s.accept()
		return
	}

	if ev.Failed() {
		if s.isOwned(fd) {
			// the task that owns fd closes it
			return
		}
		log.Logger.Warn("error event on fd", zap.Int("fd", fd), zap.Uint32("events", ev.Events))
		s.closeConnection(fd)
		return
	}

	if ev.Readable() {
		if !s.own(fd) {
			log.Logger.Debug("fd already owned by a task", zap.Int("fd", fd))
			return
		}
		if err := s.pool.Enqueue(connTask{s: s, fd: fd}); err != nil {
			log.Logger.Error("submit connection task", zap.Int("fd", fd), zap.Error(err))
			s.closeConnection(fd)
		}
	}
}

// accept drains the listen backlog. Each connection is registered edge-triggered.
func (s *Server) accept() {
	for {
		connFd, sa, err := unix.Accept4(s.listenFD, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			switch err {
			case unix.EAGAIN:
				return
			case unix.EINTR, unix.ECONNABORTED:
				continue
			}
			log.Logger.Error("accept error", zap.Error(err))
			return
		}

		if err := s.poll.Register(connFd, poll.EdgeReadEvents); err != nil {
			log.Logger.Error("register connection", zap.Int("fd", connFd), zap.Error(err))
			_ = unix.Close(connFd)
			continue
		}

		s.accepted.Inc()
		log.Logger.Debug("new connection", zap.Int("fd", connFd), zap.String("ip", sockaddrIP(sa)))
	}
}

// closeConnection deregisters and closes fd. Ownership is released between the
// two so the fd number cannot be reused while still marked.
func (s *Server) closeConnection(fd int) {
	if err := s.poll.Deregister(fd); err != nil {
		log.Logger.Error("deregister connection", zap.Int("fd", fd), zap.Error(err))
	}
	s.release(fd)
	if err := unix.Close(fd); err != nil {
		log.Logger.Error("close connection", zap.Int("fd", fd), zap.Error(err))
	}
	s.closed.Inc()
	log.Logger.Debug("connection closed", zap.Int("fd", fd))
}

// close drains the pool, then releases the listener, leftover connections and epoll.
func (s *Server) close() {
	s.state.Store(uint32(StateStopped))
	log.Logger.Info("shutting down server")

	s.pool.Shutdown()
	if err := s.poll.Close(); err != nil {
		log.Logger.Warn("close reactor", zap.Error(err))
	}
}

func (s *Server) own(fd int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.owned[fd]; ok {
		return false
	}
	s.owned[fd] = struct{}{}
	return true
}

func (s *Server) isOwned(fd int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.owned[fd]
	return ok
}

func (s *Server) release(fd int) {
	s.mu.Lock()
	delete(s.owned, fd)
	s.mu.Unlock()
}
