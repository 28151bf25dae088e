// Package engine implements the controller-side protocol engine: the
// command dispatcher and PID control loop the client library speaks to.
// The same engine runs on the microcontroller (firmware directory) and
// in-process behind a simulated session, so replies stay format-exact
// between the two.
package engine

import (
	"strconv"
	"strings"
	"time"
)

// Version is the build string reported by get_version.
const Version = "gopid PID controller v1.0"

const (
	// DACMax bounds the signed 12-bit actuator command.
	DACMax = 4095

	// MinPeriodMS and MaxPeriodMS bound the sample-and-control period.
	MinPeriodMS = 20
	MaxPeriodMS = 10000
	// DefaultPeriodMS is the period until set_period changes it.
	DefaultPeriodMS = 1000

	// DefaultSetpointLimit is the firmware-side setpoint clamp (C).
	DefaultSetpointLimit = 80.0
	// DefaultSetpoint is the setpoint at power-up (C).
	DefaultSetpoint = 25.0
)

// Default PID parameter set: proportional band (C), integral time (s),
// derivative time (s).
const (
	DefaultBand = 10.0
	DefaultTi   = 60.0
	DefaultTd   = 0.0
)

// Operating mode tokens, exactly as they appear on the wire.
const (
	OpenLoop   = "OPEN_LOOP"
	ClosedLoop = "CLOSED_LOOP"
)

// Plant is the physical side of the control loop: a temperature source and
// an actuator. The firmware implements it over the RTD converter and DAC;
// the simulation over a thermal model.
type Plant interface {
	// Temperature returns the current measured temperature (C).
	Temperature() float32
	// SetOutput drives the actuator with a signed DAC level in [-DACMax, DACMax].
	SetOutput(level int16)
	// RTDConfig returns the RTD converter configuration register.
	RTDConfig() uint8
}

// Engine dispatches the controller command vocabulary and recomputes the
// control output on every tick. It is not safe for concurrent use; the
// firmware runs it from a single loop and the simulation serializes access.
type Engine struct {
	plant Plant
	pid   PID

	mode      string
	setpoint  float32
	limit     float32
	dac       int16
	periodMS  int
	elapsedMS int64
}

// New creates an engine in OPEN_LOOP with the default parameter set.
func New(plant Plant) *Engine {
	return &Engine{
		plant:    plant,
		pid:      NewPID(DefaultBand, DefaultTi, DefaultTd),
		mode:     OpenLoop,
		setpoint: DefaultSetpoint,
		limit:    DefaultSetpointLimit,
		periodMS: DefaultPeriodMS,
	}
}

// PeriodMS returns the active sample-and-control period in milliseconds.
func (e *Engine) PeriodMS() int {
	return e.periodMS
}

// Mode returns the active operating mode token.
func (e *Engine) Mode() string {
	return e.mode
}

// Handle dispatches one unframed command line. Get commands return a reply
// and true; set commands produce no reply. Malformed or unknown input is
// ignored, matching a firmware that never answers what it cannot parse.
func (e *Engine) Handle(cmd string) (string, bool) {
	name, args, _ := strings.Cut(strings.TrimSpace(cmd), ",")

	switch name {
	case "get_temp":
		return formatFloat(e.plant.Temperature(), 2), true
	case "get_setpoint":
		return formatFloat(e.setpoint, 2), true
	case "get_dac":
		return strconv.Itoa(int(e.dac)), true
	case "get_pid":
		band, ti, td := e.pid.Parameters()
		return formatFloat(band, 4) + "," + formatFloat(ti, 4) + "," + formatFloat(td, 4), true
	case "get_mode":
		return e.mode, true
	case "get_period":
		return strconv.Itoa(e.periodMS), true
	case "get_MAX31865_config":
		return strconv.FormatUint(uint64(e.plant.RTDConfig()), 2), true
	case "get_version":
		return Version, true
	case "get_all":
		return e.allReply(), true
	case "set_dac":
		e.setDAC(args)
	case "set_setpoint":
		e.setSetpoint(args)
	case "set_pid":
		e.setPID(args)
	case "set_mode":
		e.setMode(args)
	case "set_period":
		e.setPeriod(args)
	}

	return "", false
}

// Tick advances the control loop by dt: in CLOSED_LOOP the PID loop
// recomputes the DAC output from the current temperature sample; in
// OPEN_LOOP the DAC stays at its commanded level. The output is applied
// to the plant either way.
func (e *Engine) Tick(dt time.Duration) {
	e.elapsedMS += dt.Milliseconds()

	temp := e.plant.Temperature()
	if e.mode == ClosedLoop {
		e.dac = e.pid.Update(e.setpoint, temp, float32(dt.Seconds()))
	}
	e.plant.SetOutput(e.dac)
}

// allReply builds the get_all telemetry line:
// time_ms,temp,setpoint,dac,period,u1,u2,u3 where u1..u3 are the P, I and
// D terms of the last control computation.
func (e *Engine) allReply() string {
	p, i, d := e.pid.Terms()
	fields := []string{
		strconv.FormatInt(e.elapsedMS, 10),
		formatFloat(e.plant.Temperature(), 2),
		formatFloat(e.setpoint, 2),
		strconv.Itoa(int(e.dac)),
		strconv.Itoa(e.periodMS),
		formatFloat(p, 4),
		formatFloat(i, 4),
		formatFloat(d, 4),
	}
	return strings.Join(fields, ",")
}

// setDAC applies a direct DAC command. Direct actuation is only honored in
// OPEN_LOOP; the client guards this too, but the firmware must hold the
// contract even against a non-validating client.
func (e *Engine) setDAC(args string) {
	if e.mode != OpenLoop {
		return
	}
	level, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || level < -DACMax || level > DACMax {
		return
	}
	e.dac = int16(level)
	e.plant.SetOutput(e.dac)
}

func (e *Engine) setSetpoint(args string) {
	t, err := strconv.ParseFloat(strings.TrimSpace(args), 32)
	if err != nil {
		return
	}
	setpoint := float32(t)
	if setpoint > e.limit {
		setpoint = e.limit
	}
	e.setpoint = setpoint
}

func (e *Engine) setPID(args string) {
	fields := strings.Split(args, ",")
	if len(fields) != 3 {
		return
	}

	var vals [3]float32
	for n, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		if err != nil || v < 0 {
			return
		}
		vals[n] = float32(v)
	}

	e.pid.SetParameters(vals[0], vals[1], vals[2])
}

func (e *Engine) setMode(args string) {
	mode := strings.TrimSpace(args)
	if mode != OpenLoop && mode != ClosedLoop {
		return
	}
	if mode == ClosedLoop && e.mode != ClosedLoop {
		// Entering closed loop starts the loop from a clean integrator.
		e.pid.Reset()
	}
	e.mode = mode
}

func (e *Engine) setPeriod(args string) {
	period, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil {
		return
	}
	if period < MinPeriodMS {
		period = MinPeriodMS
	}
	if period > MaxPeriodMS {
		period = MaxPeriodMS
	}
	e.periodMS = period
}

func formatFloat(v float32, prec int) string {
	return strconv.FormatFloat(float64(v), 'f', prec, 32)
}
