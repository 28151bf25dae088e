package transport

import (
	"bytes"
	"fmt"
	"time"

	"go.bug.st/serial"
)

// port is the subset of the serial port surface the transport uses.
// Tests substitute an in-memory implementation.
type port interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	SetReadTimeout(t time.Duration) error
	Close() error
}

// Serial is a Transport over a real serial port.
type Serial struct {
	endpoint Endpoint
	port     port
}

var _ Transport = (*Serial)(nil)

// Open acquires the serial port described by the endpoint. A failure here
// means the channel could not be acquired (device missing, permission
// denied, already in use); whether to fall back to simulation is the
// caller's decision, not this layer's.
func Open(ep Endpoint) (*Serial, error) {
	if ep.BaudRate == 0 {
		ep.BaudRate = DefaultBaudRate
	}
	if ep.Timeout == 0 {
		ep.Timeout = DefaultTimeout
	}

	mode := &serial.Mode{
		BaudRate: ep.BaudRate,
	}

	p, err := serial.Open(ep.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", ep.Port, err)
	}

	return &Serial{endpoint: ep, port: p}, nil
}

// Endpoint returns the descriptor this transport was opened with.
func (s *Serial) Endpoint() Endpoint {
	return s.endpoint
}

// Send frames the command with the start marker and terminator and writes
// the whole frame. No partial-write recovery is attempted beyond what the
// port itself guarantees.
func (s *Serial) Send(cmd string) error {
	if s.port == nil {
		return ErrClosed
	}

	frame := make([]byte, 0, len(cmd)+2)
	frame = append(frame, startMarker)
	frame = append(frame, cmd...)
	frame = append(frame, endMarker)

	if _, err := s.port.Write(frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	return nil
}

// Receive reads bytes until the reply terminator is observed or the
// timeout elapses. A timeout of zero uses the endpoint's configured
// timeout. On expiry whatever partial bytes were read are discarded;
// nothing is buffered across calls.
func (s *Serial) Receive(timeout time.Duration) (string, error) {
	if s.port == nil {
		return "", ErrClosed
	}
	if timeout == 0 {
		timeout = s.endpoint.Timeout
	}

	deadline := time.Now().Add(timeout)
	var line []byte
	buf := make([]byte, 64)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", ErrTimeout
		}
		if err := s.port.SetReadTimeout(remaining); err != nil {
			return "", fmt.Errorf("failed to set read timeout: %w", err)
		}

		n, err := s.port.Read(buf)
		if err != nil {
			return "", fmt.Errorf("failed to read from port: %w", err)
		}
		if n == 0 {
			// The serial library reports an expired read timeout as a
			// zero-byte read.
			return "", ErrTimeout
		}

		line = append(line, buf[:n]...)
		if idx := bytes.Index(line, replyTerminator); idx >= 0 {
			return string(line[:idx]), nil
		}
	}
}

// Close releases the port. It is safe to call more than once.
func (s *Serial) Close() error {
	if s.port == nil {
		return nil
	}

	err := s.port.Close()
	s.port = nil
	if err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}

	return nil
}
