package engine

import (
	"github.com/chewxy/math32"
)

// SimPlantConfig parameterizes the simulated thermal load.
type SimPlantConfig struct {
	Ambient      float32 // resting temperature (C)
	MaxRise      float32 // rise above ambient at full positive drive (C)
	TimeConstant float32 // thermal lag (s)
	NoiseLevel   float32 // peak measurement noise (C)
	RTDConfig    uint8   // reported configuration register
}

// DefaultSimPlantConfig mimics a small resistive heater block on a lab
// bench at room temperature.
func DefaultSimPlantConfig() SimPlantConfig {
	return SimPlantConfig{
		Ambient:      24.5,
		MaxRise:      60.0,
		TimeConstant: 15.0,
		NoiseLevel:   0.05,
		RTDConfig:    0xC1, // VBIAS on, auto conversion, 50 Hz filter
	}
}

// SimPlant is a first-order thermal model: the temperature lags toward
// ambient plus a drive-proportional rise, with small periodic measurement
// noise on top.
type SimPlant struct {
	cfg   SimPlantConfig
	temp  float32
	drive float32 // last commanded output, normalized to [-1, 1]
	phase float32 // noise phase accumulator (s)
}

var _ Plant = (*SimPlant)(nil)

// NewSimPlant creates a plant at its ambient temperature. A nil config
// uses the defaults.
func NewSimPlant(cfg *SimPlantConfig) *SimPlant {
	c := DefaultSimPlantConfig()
	if cfg != nil {
		c = *cfg
	}
	if c.TimeConstant <= 0 {
		c.TimeConstant = DefaultSimPlantConfig().TimeConstant
	}

	return &SimPlant{cfg: c, temp: c.Ambient}
}

// Step advances the thermal model by dt seconds.
func (p *SimPlant) Step(dt float32) {
	target := p.cfg.Ambient + p.drive*p.cfg.MaxRise

	alpha := dt / p.cfg.TimeConstant
	if alpha > 1 {
		alpha = 1
	}
	p.temp += alpha * (target - p.temp)
	p.phase += dt
}

// Temperature returns the model temperature with measurement noise.
func (p *SimPlant) Temperature() float32 {
	noise := (math32.Sin(p.phase*7.3) + math32.Cos(p.phase*13.1)) * p.cfg.NoiseLevel * 0.5
	return p.temp + noise
}

// SetOutput records the actuator drive level.
func (p *SimPlant) SetOutput(level int16) {
	p.drive = float32(level) / DACMax
}

// RTDConfig returns the configured register value.
func (p *SimPlant) RTDConfig() uint8 {
	return p.cfg.RTDConfig
}
