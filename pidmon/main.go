// pidmon is a console monitor for the Arduino PID temperature controller.
// It connects to the controller (or a simulated one when no hardware is
// reachable), optionally applies one-shot set commands, then polls the full
// variable set at a fixed interval, logging every sample and appending it
// to a CSV file when requested.
package main

import (
	"errors"
	"flag"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/phsym/console-slog"

	"github.com/itohio/gopid/pkg/config"
	"github.com/itohio/gopid/pkg/controller"
	"github.com/itohio/gopid/pkg/engine"
	"github.com/itohio/gopid/pkg/record"
	"github.com/itohio/gopid/pkg/transport"
)

func main() {
	var (
		portFlag     = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag   = flag.String("config", "config.yaml", "Configuration file path")
		simFlag      = flag.Bool("sim", false, "Use the simulated controller instead of a serial port")
		intervalFlag = flag.Duration("interval", 0, "Poll interval override")
		csvFlag      = flag.String("csv", "", "Write telemetry to this CSV file")
		onceFlag     = flag.Bool("once", false, "Poll once and exit")

		setpointFlag = flag.Float64("setpoint", math.NaN(), "Set the temperature setpoint (C) before polling")
		modeFlag     = flag.String("mode", "", "Set the operating mode (OPEN_LOOP or CLOSED_LOOP) before polling")
		pidFlag      = flag.String("pid", "", "Set PID parameters as band,ti,td before polling")
		periodFlag   = flag.Int("period", 0, "Set the sample-and-control period (ms) before polling")
		dacFlag      = flag.String("dac", "", "Set the DAC level (OPEN_LOOP only) before polling")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	// Command line overrides
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *simFlag {
		cfg.Serial.Port = transport.SimulationPort
	}
	if *intervalFlag > 0 {
		cfg.Controller.PollInterval = *intervalFlag
	}

	logger := slog.New(console.NewHandler(os.Stderr, &console.HandlerOptions{
		Level: parseLevel(cfg.Log.Level),
	}))

	session := controller.New(
		transport.Endpoint{
			Port:     cfg.Serial.Port,
			BaudRate: cfg.Serial.BaudRate,
			Timeout:  cfg.Serial.Timeout,
		},
		controller.WithLogger(logger),
		controller.WithTemperatureLimit(cfg.Controller.TemperatureLimit),
		controller.WithSimPlant(engine.SimPlantConfig{
			Ambient:      float32(cfg.Sim.Ambient),
			MaxRise:      float32(cfg.Sim.MaxRise),
			TimeConstant: float32(cfg.Sim.TimeConstant),
			NoiseLevel:   float32(cfg.Sim.NoiseLevel),
			RTDConfig:    0xC1,
		}),
	)

	if err := session.Connect(); err != nil {
		logger.Error("failed to connect", "err", err)
		os.Exit(1)
	}
	defer session.Disconnect()

	if version, err := session.Version(); err == nil {
		logger.Info("controller ready",
			"version", version, "simulated", session.IsSimulated())
	} else {
		logger.Warn("controller did not report a version", "err", err)
	}

	applySetCommands(logger, session, oneShots{
		setpoint: *setpointFlag,
		mode:     *modeFlag,
		pid:      *pidFlag,
		period:   *periodFlag,
		dac:      *dacFlag,
	})

	var writer *record.Writer
	if *csvFlag != "" {
		writer, err = record.Create(*csvFlag)
		if err != nil {
			logger.Error("failed to open CSV log", "err", err)
			os.Exit(1)
		}
		defer writer.Close()
	}

	buffer := record.NewBuffer(cfg.Controller.RecordWindow)
	poll(logger, session, buffer, writer, cfg.Controller.PollInterval, *onceFlag)

	if min, max := buffer.TemperatureSpan(); buffer.Len() > 0 {
		logger.Info("session summary",
			"samples", buffer.Len(), "temp_min", min, "temp_max", max)
	}
}

// oneShots carries the set commands applied before the poll loop starts.
type oneShots struct {
	setpoint float64
	mode     string
	pid      string
	period   int
	dac      string
}

// applySetCommands issues the requested one-shot mutations. Policy
// rejections are warnings, not fatal errors: the monitor keeps running so
// the operator can see what the controller is actually doing.
func applySetCommands(logger *slog.Logger, session *controller.Session, cmds oneShots) {
	report := func(op string, err error) {
		switch {
		case err == nil:
		case errors.Is(err, controller.ErrPolicy):
			// Already logged by the session.
		default:
			logger.Error("set command failed", "op", op, "err", err)
			os.Exit(1)
		}
	}

	if cmds.mode != "" {
		report("set_mode", session.SetMode(controller.Mode(cmds.mode)))
	}

	if cmds.pid != "" {
		fields := strings.Split(cmds.pid, ",")
		if len(fields) != 3 {
			logger.Error("invalid -pid value, want band,ti,td", "got", cmds.pid)
			os.Exit(1)
		}
		var vals [3]float64
		for n, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				logger.Error("invalid -pid value", "got", cmds.pid, "err", err)
				os.Exit(1)
			}
			vals[n] = v
		}
		report("set_pid", session.SetParameters(vals[0], vals[1], vals[2]))
	}

	if cmds.period > 0 {
		report("set_period", session.SetPeriod(cmds.period))
	}

	if !math.IsNaN(cmds.setpoint) {
		report("set_setpoint", session.SetSetpoint(cmds.setpoint))
	}

	if cmds.dac != "" {
		level, err := strconv.Atoi(cmds.dac)
		if err != nil {
			logger.Error("invalid -dac value", "got", cmds.dac, "err", err)
			os.Exit(1)
		}
		report("set_dac", session.SetDAC(level))
	}
}

// poll runs the blocking poll loop. One poll is in flight at a time: the
// next tick is only served after the previous round trip completed, which
// is the serialization the half-duplex protocol requires.
func poll(logger *slog.Logger, session *controller.Session, buffer *record.Buffer,
	writer *record.Writer, interval time.Duration, once bool) {

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		telemetry, err := session.AllVariables()
		if err != nil {
			// No retry: surface the failure and wait for the next tick.
			logger.Error("poll failed", "err", err)
		} else {
			sample := record.Sample{Timestamp: time.Now(), Data: telemetry}
			buffer.Add(sample)

			logger.Info("telemetry",
				"t_ms", telemetry.TimeMS,
				"temp", telemetry.Temperature,
				"setpoint", telemetry.Setpoint,
				"dac", int(telemetry.DAC),
				"period", int(telemetry.Period),
				"u1", telemetry.U1,
				"u2", telemetry.U2,
				"u3", telemetry.U3,
			)

			if writer != nil {
				if err := writer.Write(sample); err != nil {
					logger.Error("failed to write CSV row", "err", err)
				}
			}
		}

		if once {
			return
		}

		select {
		case <-interrupt:
			logger.Info("interrupted, disconnecting")
			return
		case <-ticker.C:
		}
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
