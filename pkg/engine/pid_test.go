package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPID_ProportionalOnly(t *testing.T) {
	pid := NewPID(10, 0, 0)

	// e = 5 C with a 10 C band drives half scale.
	u := pid.Update(30, 25, 0.1)
	assert.Equal(t, int16(2047), u)

	p, i, d := pid.Terms()
	assert.Equal(t, float32(5), p)
	assert.Equal(t, float32(0), i)
	assert.Equal(t, float32(0), d)
}

func TestPID_IntegralAccumulation(t *testing.T) {
	pid := NewPID(100, 10, 0)

	u := pid.Update(26, 25, 1)
	assert.Equal(t, int16(45), u) // (1 + 1/10) / 100 * 4095

	u = pid.Update(26, 25, 1)
	assert.Equal(t, int16(49), u) // (1 + 2/10) / 100 * 4095

	_, i, _ := pid.Terms()
	assert.InDelta(t, 0.2, float64(i), 1e-6)
}

func TestPID_DerivativeOnMeasurement(t *testing.T) {
	pid := NewPID(10, 0, 2)

	// First update primes the derivative history.
	u := pid.Update(30, 25, 1)
	assert.Equal(t, int16(2047), u)
	_, _, d := pid.Terms()
	assert.Equal(t, float32(0), d)

	// Temperature rising 1 C/s opposes the output.
	u = pid.Update(30, 26, 1)
	assert.Equal(t, int16(819), u) // (4 - 2) / 10 * 4095
	_, _, d = pid.Terms()
	assert.Equal(t, float32(-2), d)
}

func TestPID_OutputClamping(t *testing.T) {
	pid := NewPID(1, 0, 0)

	assert.Equal(t, int16(DACMax), pid.Update(100, 0, 1))
	assert.Equal(t, int16(-DACMax), pid.Update(-100, 0, 1))
}

func TestPID_AntiWindup(t *testing.T) {
	pid := NewPID(1, 1, 0)

	// Saturated updates must not grow the integrator.
	for i := 0; i < 100; i++ {
		pid.Update(100, 0, 1)
	}
	_, iSaturated, _ := pid.Terms()

	pid.Update(100, 0, 1)
	_, iNext, _ := pid.Terms()
	assert.InDelta(t, float64(iSaturated), float64(iNext), 1e-3)
}

func TestPID_ZeroBandIsInert(t *testing.T) {
	pid := NewPID(0, 10, 1)
	assert.Equal(t, int16(0), pid.Update(30, 25, 1))
}

func TestPID_Reset(t *testing.T) {
	pid := NewPID(10, 10, 1)
	pid.Update(30, 25, 1)
	pid.Update(30, 26, 1)

	pid.Reset()

	p, i, d := pid.Terms()
	assert.Equal(t, float32(0), p)
	assert.Equal(t, float32(0), i)
	assert.Equal(t, float32(0), d)

	// After a reset the derivative is unprimed again.
	pid.Update(30, 28, 1)
	_, _, d = pid.Terms()
	assert.Equal(t, float32(0), d)
}

func TestPID_SetParametersKeepsState(t *testing.T) {
	pid := NewPID(100, 10, 0)
	pid.Update(26, 25, 1)

	pid.SetParameters(50, 10, 0)
	band, ti, td := pid.Parameters()
	assert.Equal(t, float32(50), band)
	assert.Equal(t, float32(10), ti)
	assert.Equal(t, float32(0), td)

	// Integrator survives the tuning change.
	pid.Update(26, 25, 1)
	_, i, _ := pid.Terms()
	assert.InDelta(t, 0.2, float64(i), 1e-6)
}
