//go:build tinygo

package main

import "machine"

// MAX31865 register map (subset; write address = read address | 0x80).
const (
	regConfig = 0x00
	regRTDMSB = 0x01
	regRTDLSB = 0x02

	configVBias    = 0x80
	configAuto     = 0x40
	config3Wire    = 0x10
	configFilter50 = 0x01
)

// max31865 drives the RTD-to-digital converter over SPI.
type max31865 struct {
	bus machine.SPI
	cs  machine.Pin
}

func newMAX31865(bus machine.SPI, cs machine.Pin) *max31865 {
	cs.Configure(machine.PinConfig{Mode: machine.PinOutput})
	cs.High()

	m := &max31865{bus: bus, cs: cs}
	m.writeRegister(regConfig, configVBias|configAuto|configFilter50)
	return m
}

func (m *max31865) writeRegister(reg, value uint8) {
	m.cs.Low()
	m.bus.Transfer(reg | 0x80)
	m.bus.Transfer(value)
	m.cs.High()
}

func (m *max31865) readRegister(reg uint8) uint8 {
	m.cs.Low()
	m.bus.Transfer(reg)
	value, _ := m.bus.Transfer(0x00)
	m.cs.High()
	return value
}

// Config returns the live configuration register.
func (m *max31865) Config() uint8 {
	return m.readRegister(regConfig)
}

// Temperature converts the 15-bit RTD ratio to degrees C using the
// linearized Callendar-Van Dusen approximation, adequate for the 0-100 C
// range this controller operates in.
func (m *max31865) Temperature() float32 {
	msb := m.readRegister(regRTDMSB)
	lsb := m.readRegister(regRTDLSB)
	raw := (uint16(msb)<<8 | uint16(lsb)) >> 1 // bit 0 is the fault flag

	resistance := float32(raw) / 32768.0 * RTD_REF_RESISTANCE
	return (resistance/RTD_NOMINAL_RESISTANCE - 1.0) / 0.00385
}
