package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Serial     SerialConfig     `yaml:"serial"`
	Controller ControllerConfig `yaml:"controller"`
	Sim        SimConfig        `yaml:"sim"`
	Log        LogConfig        `yaml:"log"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string        `yaml:"port"`
	BaudRate int           `yaml:"baud_rate"`
	Timeout  time.Duration `yaml:"timeout"` // reply deadline per round trip
}

// ControllerConfig contains session parameters.
type ControllerConfig struct {
	TemperatureLimit float64       `yaml:"temperature_limit"` // setpoint safety bound (C)
	PollInterval     time.Duration `yaml:"poll_interval"`     // get_all cadence
	RecordWindow     time.Duration `yaml:"record_window"`     // telemetry history kept in memory
}

// SimConfig contains the simulated plant parameters.
type SimConfig struct {
	Ambient      float64 `yaml:"ambient"`       // resting temperature (C)
	MaxRise      float64 `yaml:"max_rise"`      // rise above ambient at full drive (C)
	TimeConstant float64 `yaml:"time_constant"` // thermal lag (s)
	NoiseLevel   float64 `yaml:"noise_level"`   // measurement noise (C)
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "COM3", // Default for Windows, should be "/dev/ttyACM0" on Linux/Mac
			BaudRate: 115200,
			Timeout:  500 * time.Millisecond,
		},
		Controller: ControllerConfig{
			TemperatureLimit: 80,
			PollInterval:     250 * time.Millisecond,
			RecordWindow:     10 * time.Minute,
		},
		Sim: SimConfig{
			Ambient:      24.5,
			MaxRise:      60,
			TimeConstant: 15,
			NoiseLevel:   0.05,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Ensure minimum required fields are set (use defaults if missing)
	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Serial.Timeout == 0 {
		c.Serial.Timeout = def.Serial.Timeout
	}

	if c.Controller.TemperatureLimit == 0 {
		c.Controller.TemperatureLimit = def.Controller.TemperatureLimit
	}
	if c.Controller.PollInterval == 0 {
		c.Controller.PollInterval = def.Controller.PollInterval
	}
	if c.Controller.RecordWindow == 0 {
		c.Controller.RecordWindow = def.Controller.RecordWindow
	}

	if c.Sim.MaxRise == 0 {
		c.Sim.MaxRise = def.Sim.MaxRise
	}
	if c.Sim.TimeConstant == 0 {
		c.Sim.TimeConstant = def.Sim.TimeConstant
	}

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}
