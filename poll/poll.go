// Package poll is the readiness reactor of the server, a thin layer over epoll.
//
// https://copyconstruct.medium.com/the-method-to-epolls-madness-d9d2d6378642
package poll

import "errors"

// MaxEvents caps the ready set returned by a single Wait.
const MaxEvents = 1024

// ErrSignalStopped is returned by Wait after Wake has been called.
var ErrSignalStopped = errors.New("signal stopped")

// Event is one entry of a ready set.
type Event struct {
	Fd     int
	Events uint32
}
