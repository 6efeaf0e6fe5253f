package node

// Conn is an accepted connection as seen by a Handler.
type Conn interface {
	// Write sends all of data or fails.
	Write(data []byte) error

	Fd() int
	Ip() string
}
