//go:build tinygo

package main

import "machine"

const (
	// Serial link to the host GUI/monitor
	UART_BAUD_RATE = 115200

	// MAX31865 RTD converter on SPI
	PIN_RTD_CS             = machine.D3
	SPI_FREQUENCY          = 1000000
	RTD_REF_RESISTANCE     = 430.0 // reference resistor on the carrier board (ohm)
	RTD_NOMINAL_RESISTANCE = 100.0 // PT100 resistance at 0 C (ohm)

	// Actuator output: DAC magnitude plus a polarity pin for the
	// push-pull driver stage (heat vs. cool)
	PIN_POLARITY = machine.D2

	// How often the main loop checks the serial line (ms)
	SERIAL_POLL_MS = 1
)
