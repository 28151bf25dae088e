// Package controller is the client side of the PID temperature-controller
// protocol: a session that issues the fixed command vocabulary over a
// serial transport, validates every set command against hardware-meaningful
// bounds before it reaches the wire, and degrades to a simulated controller
// when no device can be opened.
package controller

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/itohio/gopid/pkg/engine"
	"github.com/itohio/gopid/pkg/transport"
)

// DefaultTemperatureLimit is the setpoint safety bound in Celsius.
const DefaultTemperatureLimit = 80.0

var (
	// ErrProtocol indicates a reply arrived but could not be parsed into
	// the declared type (wrong field count, non-numeric token, unknown
	// enum value).
	ErrProtocol = errors.New("protocol error")

	// ErrPolicy is the structured rejection status for set commands that
	// fail client-side validation. A rejected command never reaches the
	// wire; this is a safety policy, not a transport failure.
	ErrPolicy = errors.New("policy violation")

	// ErrDisconnected indicates an operation on a session that was never
	// connected or has been torn down.
	ErrDisconnected = errors.New("session disconnected")
)

// link is the command/reply seam shared by live and simulated sessions.
// A live link performs one serial round trip; a simulated link dispatches
// into an in-process engine and never touches a transport.
type link interface {
	// exec sends one command and blocks for its reply.
	exec(cmd string) (string, error)
	// send sends one command with no reply expected (set commands).
	send(cmd string) error
	close() error
}

// wireLink drives a real transport, one round trip at a time.
type wireLink struct {
	t transport.Transport
}

func (l *wireLink) exec(cmd string) (string, error) {
	if err := l.t.Send(cmd); err != nil {
		return "", err
	}
	return l.t.Receive(0)
}

func (l *wireLink) send(cmd string) error {
	return l.t.Send(cmd)
}

func (l *wireLink) close() error {
	return l.t.Close()
}

// Session owns exactly one transport, or none in simulation mode. It is
// designed for a single logical thread of control: operations block for
// the full round trip and callers must not overlap them.
type Session struct {
	endpoint transport.Endpoint
	limit    float64
	logger   *slog.Logger
	simCfg   *engine.SimPlantConfig

	state State
	link  link

	known     Snapshot
	knownMode bool
}

// Option configures a Session at construction.
type Option func(*Session)

// WithTemperatureLimit overrides the setpoint upper bound (C).
func WithTemperatureLimit(limit float64) Option {
	return func(s *Session) { s.limit = limit }
}

// WithLogger sets the logger used for connect events and policy warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithSimPlant sets the thermal model used when the session falls back to
// simulation.
func WithSimPlant(cfg engine.SimPlantConfig) Option {
	return func(s *Session) { s.simCfg = &cfg }
}

// New creates a session for the endpoint. Connect must be called before
// any controller operation.
func New(ep transport.Endpoint, opts ...Option) *Session {
	s := &Session{
		endpoint: ep,
		limit:    DefaultTemperatureLimit,
		logger:   slog.Default(),
		state:    Disconnected,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect attaches the session to its endpoint. The sentinel port name
// "Simulation" always yields a simulated session; so does any open
// failure — an interactive lab tool degrades to simulation rather than
// refusing to start. Connect only fails when called twice.
func (s *Session) Connect() error {
	if s.link != nil {
		return fmt.Errorf("already connected")
	}

	if s.endpoint.Port == transport.SimulationPort {
		s.logger.Info("simulation mode enabled")
		s.simulate()
		return nil
	}

	t, err := transport.Open(s.endpoint)
	if err != nil {
		s.logger.Warn("could not open port, entering simulation mode",
			"port", s.endpoint.Port, "baud", s.endpoint.BaudRate, "err", err)
		s.simulate()
		return nil
	}

	s.link = &wireLink{t: t}
	s.state = Connected
	s.logger.Info("connected", "port", s.endpoint.Port, "baud", t.Endpoint().BaudRate)

	return nil
}

func (s *Session) simulate() {
	s.link = newSimLink(s.simCfg)
	s.state = Simulated
}

// Disconnect releases the transport. The session is terminal afterwards;
// construct a new one to reconnect.
func (s *Session) Disconnect() error {
	if s.link == nil {
		s.state = Disconnected
		return nil
	}

	err := s.link.close()
	s.link = nil
	s.state = Disconnected
	s.knownMode = false

	return err
}

// State returns the session connection state.
func (s *Session) State() State {
	return s.state
}

// IsSimulated reports whether the session talks to an in-process engine
// instead of real hardware.
func (s *Session) IsSimulated() bool {
	return s.state == Simulated
}

// LastKnown returns the cached value of every polled quantity.
func (s *Session) LastKnown() Snapshot {
	return s.known
}

func (s *Session) exec(cmd string) (string, error) {
	if s.link == nil {
		return "", ErrDisconnected
	}
	return s.link.exec(cmd)
}

func (s *Session) send(cmd string) error {
	if s.link == nil {
		return ErrDisconnected
	}
	return s.link.send(cmd)
}

// reject logs and returns the structured policy status for a set command
// that failed validation. Nothing is sent.
func (s *Session) reject(op, reason string) error {
	s.logger.Warn("command rejected", "op", op, "reason", reason)
	return fmt.Errorf("%w: %s: %s", ErrPolicy, op, reason)
}
