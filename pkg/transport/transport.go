package transport

import (
	"errors"
	"time"
)

const (
	// DefaultBaudRate matches the UART configuration of the controller sketch.
	DefaultBaudRate = 115200
	// DefaultTimeout is how long Receive waits for a reply terminator.
	DefaultTimeout = 500 * time.Millisecond

	// SimulationPort is the reserved endpoint name that forces a session
	// into simulation regardless of transport availability.
	SimulationPort = "Simulation"
)

// Framing: commands go out as '>' + command + '\n', replies come back
// terminated by "\r\n". Framing only delimits messages; integrity is
// assumed guaranteed by the physical link.
const (
	startMarker = '>'
	endMarker   = '\n'
)

var replyTerminator = []byte("\r\n")

var (
	// ErrTimeout indicates that no reply terminator arrived within the
	// receive deadline. Partial bytes read before the deadline are discarded.
	ErrTimeout = errors.New("receive timeout")

	// ErrClosed indicates an operation on a closed transport.
	ErrClosed = errors.New("transport closed")
)

// Endpoint identifies a connection target. It is immutable once a session
// has been opened on it; one endpoint maps to at most one open session.
type Endpoint struct {
	Port     string
	BaudRate int
	Timeout  time.Duration
}

// Transport turns a byte-oriented duplex channel into a request/response
// primitive: send one command, block until one framed reply arrives or a
// timeout elapses. The protocol is half duplex; the controller processes
// one command before producing one reply, so only a single request/reply
// pair may ever be in flight.
type Transport interface {
	Send(cmd string) error
	Receive(timeout time.Duration) (string, error)
	Close() error
}
