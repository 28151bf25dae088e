package engine

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietPlant() *SimPlant {
	cfg := DefaultSimPlantConfig()
	cfg.NoiseLevel = 0
	return NewSimPlant(&cfg)
}

func TestHandle_GetCommands(t *testing.T) {
	eng := New(quietPlant())

	tests := []struct {
		cmd  string
		want string
	}{
		{"get_temp", "24.50"},
		{"get_setpoint", "25.00"},
		{"get_dac", "0"},
		{"get_pid", "10.0000,60.0000,0.0000"},
		{"get_mode", "OPEN_LOOP"},
		{"get_period", "1000"},
		{"get_MAX31865_config", "11000001"},
		{"get_version", Version},
		{"get_all", "0,24.50,25.00,0,1000,0.0000,0.0000,0.0000"},
	}

	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			reply, ok := eng.Handle(tt.cmd)
			require.True(t, ok)
			assert.Equal(t, tt.want, reply)
		})
	}
}

func TestHandle_UnknownCommand(t *testing.T) {
	eng := New(quietPlant())

	for _, cmd := range []string{"", "bogus", "get_everything", "set_dac"} {
		_, ok := eng.Handle(cmd)
		assert.False(t, ok, "command %q must not produce a reply", cmd)
	}
}

func TestHandle_SetCommandsProduceNoReply(t *testing.T) {
	eng := New(quietPlant())

	for _, cmd := range []string{
		"set_dac,100",
		"set_setpoint,30.0",
		"set_pid,1.0000,2.0000,3.0000",
		"set_mode,CLOSED_LOOP",
		"set_period,500",
	} {
		_, ok := eng.Handle(cmd)
		assert.False(t, ok, "command %q must not produce a reply", cmd)
	}
}

func TestSetDAC_OpenLoop(t *testing.T) {
	plant := quietPlant()
	eng := New(plant)

	eng.Handle("set_dac,150")
	reply, _ := eng.Handle("get_dac")
	assert.Equal(t, "150", reply)
	assert.InDelta(t, 150.0/DACMax, float64(plant.drive), 1e-6)

	eng.Handle("set_dac,-2048")
	reply, _ = eng.Handle("get_dac")
	assert.Equal(t, "-2048", reply)
}

func TestSetDAC_IgnoredInClosedLoop(t *testing.T) {
	eng := New(quietPlant())

	eng.Handle("set_mode,CLOSED_LOOP")
	eng.Handle("set_dac,150")

	reply, _ := eng.Handle("get_dac")
	assert.Equal(t, "0", reply)
}

func TestSetDAC_RejectsBadInput(t *testing.T) {
	eng := New(quietPlant())

	for _, args := range []string{"set_dac,4096", "set_dac,-4096", "set_dac,abc", "set_dac,1.5"} {
		eng.Handle(args)
		reply, _ := eng.Handle("get_dac")
		assert.Equal(t, "0", reply, "%q must be ignored", args)
	}
}

func TestSetSetpoint_ClampedToLimit(t *testing.T) {
	eng := New(quietPlant())

	eng.Handle("set_setpoint,40.5")
	reply, _ := eng.Handle("get_setpoint")
	assert.Equal(t, "40.50", reply)

	eng.Handle("set_setpoint,120.0")
	reply, _ = eng.Handle("get_setpoint")
	assert.Equal(t, "80.00", reply)
}

func TestSetPID_Validation(t *testing.T) {
	eng := New(quietPlant())

	eng.Handle("set_pid,5.0000,30.0000,1.0000")
	reply, _ := eng.Handle("get_pid")
	assert.Equal(t, "5.0000,30.0000,1.0000", reply)

	// Wrong field count and negative values leave parameters untouched.
	eng.Handle("set_pid,1.0,2.0")
	eng.Handle("set_pid,1.0,-2.0,3.0")
	reply, _ = eng.Handle("get_pid")
	assert.Equal(t, "5.0000,30.0000,1.0000", reply)
}

func TestSetMode_Validation(t *testing.T) {
	eng := New(quietPlant())

	eng.Handle("set_mode,CLOSED_LOOP")
	assert.Equal(t, ClosedLoop, eng.Mode())

	eng.Handle("set_mode,AUTO")
	assert.Equal(t, ClosedLoop, eng.Mode())

	eng.Handle("set_mode,OPEN_LOOP")
	assert.Equal(t, OpenLoop, eng.Mode())
}

func TestSetPeriod_Clamping(t *testing.T) {
	eng := New(quietPlant())

	tests := []struct {
		args string
		want string
	}{
		{"set_period,500", "500"},
		{"set_period,5", "20"},
		{"set_period,60000", "10000"},
	}

	for _, tt := range tests {
		eng.Handle(tt.args)
		reply, _ := eng.Handle("get_period")
		assert.Equal(t, tt.want, reply)
	}
}

func TestTick_AccumulatesElapsedTime(t *testing.T) {
	eng := New(quietPlant())

	for i := 0; i < 4; i++ {
		eng.Tick(250 * time.Millisecond)
	}

	reply, _ := eng.Handle("get_all")
	fields := strings.Split(reply, ",")
	require.Len(t, fields, 8)
	assert.Equal(t, "1000", fields[0])
}

func TestTick_ClosedLoopDrivesOutput(t *testing.T) {
	plant := quietPlant()
	eng := New(plant)

	eng.Handle("set_mode,CLOSED_LOOP")
	eng.Handle("set_setpoint,40.0")
	eng.Tick(time.Second)

	reply, _ := eng.Handle("get_dac")
	dac, err := strconv.Atoi(reply)
	require.NoError(t, err)
	assert.Positive(t, dac, "below setpoint must heat")
}

func TestClosedLoop_ConvergesToSetpoint(t *testing.T) {
	plant := quietPlant()
	eng := New(plant)

	eng.Handle("set_pid,10.0000,60.0000,0.0000")
	eng.Handle("set_setpoint,40.0")
	eng.Handle("set_mode,CLOSED_LOOP")

	// Five simulated minutes at 100 ms steps.
	for i := 0; i < 3000; i++ {
		plant.Step(0.1)
		eng.Tick(100 * time.Millisecond)
	}

	assert.InDelta(t, 40.0, float64(plant.Temperature()), 0.5)
}

func TestGetAll_DebugChannelsAreLoopTerms(t *testing.T) {
	plant := quietPlant()
	eng := New(plant)

	eng.Handle("set_setpoint,40.0")
	eng.Handle("set_mode,CLOSED_LOOP")
	eng.Tick(time.Second)

	reply, _ := eng.Handle("get_all")
	fields := strings.Split(reply, ",")
	require.Len(t, fields, 8)

	p, err := strconv.ParseFloat(fields[5], 64)
	require.NoError(t, err)
	assert.InDelta(t, 40.0-24.5, p, 0.01)
}

func TestSimPlant_HeatsAndCools(t *testing.T) {
	plant := quietPlant()

	plant.SetOutput(DACMax)
	for i := 0; i < 600; i++ {
		plant.Step(0.1)
	}
	hot := plant.Temperature()
	assert.InDelta(t, 24.5+60.0, float64(hot), 2.0)

	plant.SetOutput(0)
	for i := 0; i < 600; i++ {
		plant.Step(0.1)
	}
	assert.InDelta(t, 24.5, float64(plant.Temperature()), 2.0)
}

func TestSimPlant_NoiseIsBounded(t *testing.T) {
	plant := NewSimPlant(nil)

	for i := 0; i < 100; i++ {
		plant.Step(0.05)
		temp := float64(plant.Temperature())
		assert.InDelta(t, 24.5, temp, 0.2)
	}
}
