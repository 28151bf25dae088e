package controller

import (
	"fmt"
	"strconv"
	"strings"
)

// Temperature reads the measured temperature in Celsius.
func (s *Session) Temperature() (float64, error) {
	reply, err := s.exec("get_temp")
	if err != nil {
		return 0, err
	}
	v, err := parseFloat("get_temp", reply)
	if err != nil {
		return 0, err
	}

	s.known.Temperature = v
	return v, nil
}

// Setpoint reads the active temperature setpoint in Celsius.
func (s *Session) Setpoint() (float64, error) {
	reply, err := s.exec("get_setpoint")
	if err != nil {
		return 0, err
	}
	v, err := parseFloat("get_setpoint", reply)
	if err != nil {
		return 0, err
	}

	s.known.Setpoint = v
	return v, nil
}

// DAC reads the current DAC output level.
func (s *Session) DAC() (int, error) {
	reply, err := s.exec("get_dac")
	if err != nil {
		return 0, err
	}
	v, err := parseInt("get_dac", reply)
	if err != nil {
		return 0, err
	}

	s.known.DAC = v
	return v, nil
}

// Parameters reads the PID parameter set.
func (s *Session) Parameters() (Parameters, error) {
	reply, err := s.exec("get_pid")
	if err != nil {
		return Parameters{}, err
	}

	fields := strings.Split(reply, ",")
	if len(fields) != 3 {
		return Parameters{}, fmt.Errorf("%w: get_pid: expected 3 fields, got %d in %q",
			ErrProtocol, len(fields), reply)
	}

	var vals [3]float64
	for n, f := range fields {
		vals[n], err = parseFloat("get_pid", f)
		if err != nil {
			return Parameters{}, err
		}
	}

	p := Parameters{Band: vals[0], Ti: vals[1], Td: vals[2]}
	s.known.Parameters = p
	return p, nil
}

// Mode reads the operating mode.
func (s *Session) Mode() (Mode, error) {
	reply, err := s.exec("get_mode")
	if err != nil {
		return "", err
	}

	m, err := ParseMode(strings.TrimSpace(reply))
	if err != nil {
		return "", err
	}

	s.known.Mode = m
	s.knownMode = true
	return m, nil
}

// Period reads the sample-and-control period in milliseconds.
func (s *Session) Period() (int, error) {
	reply, err := s.exec("get_period")
	if err != nil {
		return 0, err
	}
	v, err := parseInt("get_period", reply)
	if err != nil {
		return 0, err
	}

	s.known.Period = v
	return v, nil
}

// RTDConfig reads the RTD converter configuration register as an 8-bit
// binary string, zero-padded on the left.
func (s *Session) RTDConfig() (string, error) {
	reply, err := s.exec("get_MAX31865_config")
	if err != nil {
		return "", err
	}

	bits := strings.TrimSpace(reply)
	if len(bits) == 0 || len(bits) > 8 {
		return "", fmt.Errorf("%w: get_MAX31865_config: expected up to 8 binary digits, got %q",
			ErrProtocol, reply)
	}
	for _, c := range bits {
		if c != '0' && c != '1' {
			return "", fmt.Errorf("%w: get_MAX31865_config: non-binary digit in %q",
				ErrProtocol, reply)
		}
	}

	padded := strings.Repeat("0", 8-len(bits)) + bits
	s.known.RTDConfig = padded
	return padded, nil
}

// Version reads the firmware version/build string.
func (s *Session) Version() (string, error) {
	reply, err := s.exec("get_version")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

// AllVariables polls every controller quantity in one round trip.
func (s *Session) AllVariables() (Telemetry, error) {
	reply, err := s.exec("get_all")
	if err != nil {
		return Telemetry{}, err
	}

	fields := strings.Split(reply, ",")
	if len(fields) != 8 {
		return Telemetry{}, fmt.Errorf("%w: get_all: expected 8 fields, got %d in %q",
			ErrProtocol, len(fields), reply)
	}

	var vals [8]float64
	for n, f := range fields {
		vals[n], err = parseFloat("get_all", f)
		if err != nil {
			return Telemetry{}, err
		}
	}

	t := Telemetry{
		TimeMS:      vals[0],
		Temperature: vals[1],
		Setpoint:    vals[2],
		DAC:         vals[3],
		Period:      vals[4],
		U1:          vals[5],
		U2:          vals[6],
		U3:          vals[7],
	}

	s.known.Temperature = t.Temperature
	s.known.Setpoint = t.Setpoint
	s.known.DAC = int(t.DAC)
	s.known.Period = int(t.Period)

	return t, nil
}

// SetDAC commands the DAC output level directly. Direct actuation is only
// permitted in OPEN_LOOP; in CLOSED_LOOP the request is rejected before it
// reaches the wire. The mode check uses the cached mode when one has been
// observed and queries the controller otherwise.
func (s *Session) SetDAC(level int) error {
	if s.link == nil {
		return ErrDisconnected
	}
	if level < -4095 || level > 4095 {
		return s.reject("set_dac", fmt.Sprintf("level %d outside [-4095, 4095]", level))
	}

	mode := s.known.Mode
	if !s.knownMode {
		m, err := s.Mode()
		if err != nil {
			return err
		}
		mode = m
	}
	if mode != ModeOpenLoop {
		return s.reject("set_dac", "DAC can only be set directly in OPEN_LOOP mode")
	}

	return s.send("set_dac," + strconv.Itoa(level))
}

// SetSetpoint commands the temperature setpoint, bounded by the session's
// temperature limit. An out-of-bounds request is rejected rather than
// clamped, so an unsafe temperature is never commanded by accident.
func (s *Session) SetSetpoint(t float64) error {
	return s.setSetpoint(t, s.limit)
}

// SetSetpointLimited is SetSetpoint with a per-call limit override.
func (s *Session) SetSetpointLimited(t, limit float64) error {
	return s.setSetpoint(t, limit)
}

func (s *Session) setSetpoint(t, limit float64) error {
	if s.link == nil {
		return ErrDisconnected
	}
	if t > limit {
		return s.reject("set_setpoint",
			fmt.Sprintf("setpoint %s C above limit %s C", formatTemp(t), formatTemp(limit)))
	}

	return s.send("set_setpoint," + strconv.FormatFloat(t, 'f', -1, 64))
}

// SetParameters commands a new PID parameter set. All three values must be
// non-negative. No confirmation is parsed.
func (s *Session) SetParameters(band, ti, td float64) error {
	if s.link == nil {
		return ErrDisconnected
	}
	if band < 0 || ti < 0 || td < 0 {
		return s.reject("set_pid", "PID parameters must be non-negative")
	}

	return s.send(fmt.Sprintf("set_pid,%.4f,%.4f,%.4f", band, ti, td))
}

// SetMode commands the operating mode. Invalid tokens are rejected before
// any transport use.
func (s *Session) SetMode(mode Mode) error {
	if s.link == nil {
		return ErrDisconnected
	}
	if !mode.Valid() {
		return s.reject("set_mode", fmt.Sprintf("%q is not a valid mode", string(mode)))
	}

	if err := s.send("set_mode," + string(mode)); err != nil {
		return err
	}

	s.known.Mode = mode
	s.knownMode = true
	return nil
}

// SetPeriod commands the sample-and-control period in milliseconds. The
// period must be positive; range clamping is left to the firmware.
func (s *Session) SetPeriod(periodMS int) error {
	if s.link == nil {
		return ErrDisconnected
	}
	if periodMS <= 0 {
		return s.reject("set_period", fmt.Sprintf("period %d ms is not positive", periodMS))
	}

	return s.send("set_period," + strconv.Itoa(periodMS))
}

func parseFloat(op, reply string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: expected numeric reply, got %q", ErrProtocol, op, reply)
	}
	return v, nil
}

func parseInt(op, reply string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(reply))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: expected integer reply, got %q", ErrProtocol, op, reply)
	}
	return v, nil
}

func formatTemp(t float64) string {
	return strconv.FormatFloat(t, 'f', 2, 64)
}
