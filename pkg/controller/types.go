package controller

import "fmt"

// Mode is the controller operating mode.
type Mode string

const (
	// ModeOpenLoop allows the DAC output to be set directly.
	ModeOpenLoop Mode = "OPEN_LOOP"
	// ModeClosedLoop hands the DAC to the firmware PID loop; direct DAC
	// commands are rejected while it is active.
	ModeClosedLoop Mode = "CLOSED_LOOP"
)

// Valid reports whether m is one of the two controller modes.
func (m Mode) Valid() bool {
	return m == ModeOpenLoop || m == ModeClosedLoop
}

// ParseMode converts a wire token into a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: unrecognized mode %q", ErrProtocol, s)
	}
	return m, nil
}

// Parameters is a PID parameter set. All three values are non-negative;
// no upper bound is enforced client-side (the firmware may clamp).
type Parameters struct {
	Band float64 // proportional band (C)
	Ti   float64 // integral time (s)
	Td   float64 // derivative time (s)
}

// Telemetry is one get_all polling result. U1..U3 are firmware-internal
// diagnostic channels (the P, I and D terms of the control law).
type Telemetry struct {
	TimeMS      float64
	Temperature float64
	Setpoint    float64
	DAC         float64
	Period      float64
	U1          float64
	U2          float64
	U3          float64
}

// Snapshot holds the last-known value of every polled quantity, so a
// display can show state between polls. It is not authoritative; the
// controller firmware is the source of truth.
type Snapshot struct {
	Temperature float64
	Setpoint    float64
	DAC         int
	Period      int
	Parameters  Parameters
	Mode        Mode
	RTDConfig   string
}

// State is the session connection state.
type State int

const (
	// Disconnected is the initial state, and the terminal state after
	// Disconnect.
	Disconnected State = iota
	// Connected means a live transport is attached.
	Connected
	// Simulated means no transport exists; replies come from an
	// in-process engine.
	Simulated
)

func (s State) String() string {
	switch s {
	case Connected:
		return "Connected"
	case Simulated:
		return "Simulated"
	default:
		return "Disconnected"
	}
}
