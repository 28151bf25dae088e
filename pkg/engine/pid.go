package engine

// PID implements the proportional-band form of the control law:
//
//	u = (e + integral(e)/ti + td*de) / band
//
// scaled to DAC units. Band is in degrees C, ti and td in seconds. A wider
// band means a gentler response; ti <= 0 disables the integral term.
// All math is float32 so the identical code runs on the MCU build.
type PID struct {
	band float32
	ti   float32
	td   float32

	integral float32
	lastTemp float32
	primed   bool

	// Last computed terms, exposed as the u1/u2/u3 debug channels.
	p, i, d float32
}

// NewPID creates a controller with the given parameter set.
func NewPID(band, ti, td float32) PID {
	return PID{band: band, ti: ti, td: td}
}

// Parameters returns the active (band, ti, td) set.
func (c *PID) Parameters() (band, ti, td float32) {
	return c.band, c.ti, c.td
}

// SetParameters replaces the parameter set. The loop state is kept so a
// tuning change does not bump the output.
func (c *PID) SetParameters(band, ti, td float32) {
	c.band = band
	c.ti = ti
	c.td = td
}

// Terms returns the P, I and D contributions of the last Update, in
// degrees C before band scaling.
func (c *PID) Terms() (p, i, d float32) {
	return c.p, c.i, c.d
}

// Reset clears the integrator and derivative history.
func (c *PID) Reset() {
	c.integral = 0
	c.lastTemp = 0
	c.primed = false
	c.p, c.i, c.d = 0, 0, 0
}

// Update advances the loop by dt seconds and returns the new output in DAC
// units, clamped to [-DACMax, DACMax].
func (c *PID) Update(setpoint, measured, dt float32) int16 {
	e := setpoint - measured

	c.p = e

	if c.ti > 0 {
		c.integral += e * dt
		c.i = c.integral / c.ti
	} else {
		c.i = 0
	}

	// Derivative on measurement avoids an output kick on setpoint changes.
	if c.primed && dt > 0 {
		c.d = -c.td * (measured - c.lastTemp) / dt
	} else {
		c.d = 0
	}
	c.lastTemp = measured
	c.primed = true

	if c.band <= 0 {
		return 0
	}

	u := (c.p + c.i + c.d) / c.band * DACMax

	// Anti-windup: back the integrator out while the output saturates.
	switch {
	case u > DACMax:
		if c.ti > 0 {
			c.integral -= e * dt
			c.i = c.integral / c.ti
		}
		u = DACMax
	case u < -DACMax:
		if c.ti > 0 {
			c.integral -= e * dt
			c.i = c.integral / c.ti
		}
		u = -DACMax
	}

	return int16(u)
}
