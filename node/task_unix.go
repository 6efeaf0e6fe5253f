//go:build linux
// +build linux

package node

import (
	"fmt"

	"github.com/fzft/go-mock-httpd/log"
	"github.com/fzft/go-mock-httpd/parser"
	"github.com/indigo-web/utils/uf"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// connTask is the unit of work queued for a readable connection. The worker
// running it owns fd until the task closes it.
type connTask struct {
	s  *Server
	fd int
}

func (t connTask) Run() error {
	return t.s.handleConn(t.fd)
}

// handleConn does exactly one read, parse and respond cycle, then always
// deregisters and closes fd.
func (s *Server) handleConn(fd int) error {
	defer s.closeConnection(fd)

	buf := s.getBuffer()
	defer s.buffers.Put(buf)

	n, err := unix.Read(fd, *buf)
	if n <= 0 {
		if err != nil && !IsTemporaryError(err) {
			log.Logger.Warn("read error", zap.Int("fd", fd), zap.Error(err))
		}
		return nil
	}
	data := (*buf)[:n]

	p := parser.New()
	p.Parse(data)
	s.requests.Inc()

	if ce := log.Logger.Check(zap.DebugLevel, "parsed request"); ce != nil {
		ce.Write(
			zap.Int("fd", fd),
			zap.String("method", p.Method()),
			zap.String("path", p.Path()),
			zap.String("version", p.Version()),
			zap.Bool("complete", p.Complete()),
			zap.String("raw", uf.B2S(data)),
		)
	}

	if err := s.handler.Handle(&fdConn{fd: fd}, p); err != nil {
		s.failed.Inc()
		return fmt.Errorf("handle fd %d: %w", fd, err)
	}
	return nil
}

func (s *Server) getBuffer() *[]byte {
	if item, err := s.buffers.Get(); err == nil {
		if buf, ok := item.(*[]byte); ok && len(*buf) == s.cfg.ReadBufferSize {
			return buf
		}
	}
	buf := make([]byte, s.cfg.ReadBufferSize)
	return &buf
}

// SendResponse writes the canned 200 response to fd.
func (s *Server) SendResponse(fd int) error {
	return SendResponse(&fdConn{fd: fd})
}

// SendErrorResponse writes an HTML error page to fd. The default request path
// never uses it.
func (s *Server) SendErrorResponse(fd int, code int, message string) error {
	return SendErrorResponse(&fdConn{fd: fd}, code, message)
}
