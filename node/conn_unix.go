//go:build linux
// +build linux

package node

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// fdConn writes straight to a non-blocking socket.
type fdConn struct {
	fd int
}

func (c *fdConn) Write(data []byte) error {
	if err := writeAll(c.fd, data); err != nil {
		return fmt.Errorf("send to fd %d: %w", c.fd, err)
	}
	return nil
}

// Fd returns the file descriptor of the connection.
func (c *fdConn) Fd() int {
	return c.fd
}

// Ip returns the peer address, or "" if it is unknown.
func (c *fdConn) Ip() string {
	sa, err := unix.Getpeername(c.fd)
	if err != nil {
		return ""
	}
	return sockaddrIP(sa)
}

// writeAll keeps writing until data is gone. EAGAIN is retried immediately,
// with no backoff, so a peer that stops reading keeps this goroutine spinning.
func writeAll(fd int, data []byte) error {
	for len(data) > 0 {
		n, err := unix.Write(fd, data)
		if err != nil {
			if IsTemporaryError(err) {
				continue
			}
			return err
		}
		data = data[n:]
	}
	return nil
}
