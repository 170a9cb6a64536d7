// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bus

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

// Transport is the register-level byte transport consumed by the sensor
// drivers. One transport owns exactly one device on one bus; no call on a
// transport may run concurrently with another call on the same transport.
type Transport interface {
	// Transfer performs a single full-duplex transaction. w and r must be
	// the same length; r[i] receives the byte clocked in while w[i] was
	// clocked out.
	Transfer(w, r []byte) error

	// ReadRegisterBuffer burst-reads len(buf) bytes starting at reg.
	ReadRegisterBuffer(reg byte, buf []byte) error

	// ReadRegister reads a single register.
	ReadRegister(reg byte) (byte, error)

	// WriteRegister writes a single register.
	WriteRegister(reg, val byte) error
}

// spiReadFlag is OR'd into the register address for SPI reads.
const spiReadFlag = 0x80

// SPITransport drives one device over SPI with a dedicated chip-select pin,
// the same wiring the legacy project used for its IMUs.
type SPITransport struct {
	conn spi.Conn
	port spi.PortCloser
	cs   gpio.PinOut
}

// NewSPITransport opens the named SPI port and claims the chip-select pin.
func NewSPITransport(dev, csPin string, speed physic.Frequency) (*SPITransport, error) {
	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("spi transport: CS pin %q not found", csPin)
	}
	if err := cs.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("spi transport: CS pin %q: %w", csPin, err)
	}

	port, err := spireg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("spi transport: open %s: %w", dev, err)
	}

	conn, err := port.Connect(speed, spi.Mode3, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("spi transport: connect %s: %w", dev, err)
	}

	return &SPITransport{conn: conn, port: port, cs: cs}, nil
}

func (t *SPITransport) Transfer(w, r []byte) error {
	if err := t.cs.Out(gpio.Low); err != nil {
		return fmt.Errorf("spi CS assert: %w", err)
	}
	err := t.conn.Tx(w, r)
	if csErr := t.cs.Out(gpio.High); err == nil && csErr != nil {
		err = fmt.Errorf("spi CS release: %w", csErr)
	}
	return err
}

func (t *SPITransport) ReadRegisterBuffer(reg byte, buf []byte) error {
	w := make([]byte, len(buf)+1)
	r := make([]byte, len(buf)+1)
	w[0] = reg | spiReadFlag
	if err := t.Transfer(w, r); err != nil {
		return err
	}
	copy(buf, r[1:])
	return nil
}

func (t *SPITransport) ReadRegister(reg byte) (byte, error) {
	var buf [1]byte
	if err := t.ReadRegisterBuffer(reg, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (t *SPITransport) WriteRegister(reg, val byte) error {
	return t.Transfer([]byte{reg &^ spiReadFlag, val}, make([]byte, 2))
}

// Close releases the SPI port.
func (t *SPITransport) Close() error {
	return t.port.Close()
}

// I2CTransport drives one device at a fixed address on an I2C bus.
type I2CTransport struct {
	dev i2c.Dev
	bus i2c.BusCloser
}

// NewI2CTransport opens the named I2C bus (empty string means the first
// available one) and binds the given device address.
func NewI2CTransport(busName string, addr uint16) (*I2CTransport, error) {
	b, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("i2c transport: open bus %q: %w", busName, err)
	}
	return &I2CTransport{dev: i2c.Dev{Bus: b, Addr: addr}, bus: b}, nil
}

// NewI2CDevice binds a second device address on an already open transport's
// bus. The returned transport shares the bus and must not outlive it.
func (t *I2CTransport) NewI2CDevice(addr uint16) *I2CTransport {
	return &I2CTransport{dev: i2c.Dev{Bus: t.dev.Bus, Addr: addr}}
}

func (t *I2CTransport) Transfer(w, r []byte) error {
	return t.dev.Tx(w, r)
}

func (t *I2CTransport) ReadRegisterBuffer(reg byte, buf []byte) error {
	return t.dev.Tx([]byte{reg}, buf)
}

func (t *I2CTransport) ReadRegister(reg byte) (byte, error) {
	var buf [1]byte
	if err := t.ReadRegisterBuffer(reg, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (t *I2CTransport) WriteRegister(reg, val byte) error {
	return t.dev.Tx([]byte{reg, val}, nil)
}

// Close releases the underlying I2C bus. Only the transport that opened the
// bus should close it.
func (t *I2CTransport) Close() error {
	if t.bus == nil {
		return nil
	}
	return t.bus.Close()
}
