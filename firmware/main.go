//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"

	"github.com/itohio/gopid/pkg/engine"
)

var (
	uart = machine.UART0

	// Serial buffer for reading framed commands
	serialBuffer [64]byte
	serialPos    int
	inFrame      bool
)

// hardwarePlant implements engine.Plant over the MAX31865 RTD converter
// and the on-chip DAC with a polarity pin for the driver stage.
type hardwarePlant struct {
	rtd *max31865
}

func (p *hardwarePlant) Temperature() float32 {
	return p.rtd.Temperature()
}

func (p *hardwarePlant) SetOutput(level int16) {
	if level < 0 {
		PIN_POLARITY.High()
		level = -level
	} else {
		PIN_POLARITY.Low()
	}

	// 12-bit magnitude, left-aligned for the DAC
	machine.DAC0.Set(uint16(level) << 4)
}

func (p *hardwarePlant) RTDConfig() uint8 {
	return p.rtd.Config()
}

func main() {
	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	machine.SPI0.Configure(machine.SPIConfig{
		Frequency: SPI_FREQUENCY,
		Mode:      1,
	})
	rtd := newMAX31865(machine.SPI0, PIN_RTD_CS)

	machine.DAC0.Configure(machine.DACConfig{})
	PIN_POLARITY.Configure(machine.PinConfig{Mode: machine.PinOutput})

	eng := engine.New(&hardwarePlant{rtd: rtd})

	lastTick := time.Now()
	for {
		pollSerial(eng)

		if elapsed := time.Since(lastTick); elapsed >= time.Duration(eng.PeriodMS())*time.Millisecond {
			eng.Tick(elapsed)
			lastTick = time.Now()
		}

		time.Sleep(SERIAL_POLL_MS * time.Millisecond)
	}
}

// pollSerial consumes available UART bytes and dispatches completed
// '>'-framed commands to the engine. Replies go back CRLF-terminated.
func pollSerial(eng *engine.Engine) {
	for uart.Buffered() > 0 {
		b, err := uart.ReadByte()
		if err != nil {
			return
		}

		switch {
		case b == '>':
			inFrame = true
			serialPos = 0
		case b == '\n' && inFrame:
			inFrame = false
			if reply, ok := eng.Handle(string(serialBuffer[:serialPos])); ok {
				uart.Write([]byte(reply))
				uart.Write([]byte("\r\n"))
			}
		case inFrame && serialPos < len(serialBuffer):
			serialBuffer[serialPos] = b
			serialPos++
		}
	}
}
