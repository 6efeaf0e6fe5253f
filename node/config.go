package node

import (
	"github.com/fzft/go-mock-httpd/log"
	"github.com/fzft/go-mock-httpd/poll"
)

const (
	DefaultPort    = 8080
	DefaultThreads = 4
	// ReadBufferSize is the size of the single read done per connection.
	ReadBufferSize = 4096
)

// Config is everything the server needs at startup.
type Config struct {
	Port    int
	Threads int

	MaxEvents      int
	ReadBufferSize int

	LogLevel log.Level
	LogFile  string
}

func DefaultConfig() Config {
	return Config{
		Port:           DefaultPort,
		Threads:        DefaultThreads,
		MaxEvents:      poll.MaxEvents,
		ReadBufferSize: ReadBufferSize,
		LogLevel:       log.DEBUG,
	}
}
