// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package board exposes the uniform hardware contract the control loop
// polls: gyro acquisition, cached accel/mag/quaternion accessors, motor
// writes, LED, serial pass-through, and a microsecond clock. One
// implementation value per physical board, selected by name at startup;
// there is no per-board subclassing.
package board

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/flight_computer/internal/bus"
	"github.com/relabs-tech/flight_computer/internal/config"
	"github.com/relabs-tech/flight_computer/internal/sensors"
)

// Board is the contract consumed by the control loop. All calls are
// synchronous and single-owner: exactly one caller drives a board instance,
// once per control cycle.
//
// ReadGyro returns false when no new sample was available this cycle; that
// is normal steady-state, not a fault. The accessors never block and never
// fail; they repeat the last cached value until the next successful read.
type Board interface {
	ReadGyro(out *[3]float64) bool
	Accelerometer() [3]float64
	Magnetometer() [3]float64

	// Quaternion is the raw on-sensor fusion register. HasFusion reports
	// whether an estimator actually feeds it; when it returns false the
	// quaternion is a resting placeholder and must not be used as
	// attitude.
	Quaternion() ([4]float64, bool)
	HasFusion() bool

	// WriteMotor scales value in [0,1] linearly into the board's pulse
	// range. Out-of-range values pass through unvalidated; bounding is
	// the caller's job.
	WriteMotor(index int, value float64)

	LedSet(on bool)
	Micros() uint32

	SerialAvailableBytes() int
	SerialReadByte() (byte, error)
	SerialWriteByte(b byte) error
}

// Open brings up the board named in the configuration.
func Open(cfg *config.Config) (Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("board: periph host init: %w", err)
	}

	base, err := newRealBoard(cfg)
	if err != nil {
		return nil, err
	}

	switch cfg.Board {
	case "f3evo":
		return openF3Evo(cfg, base)
	case "butterfly":
		return openButterfly(cfg, base)
	default:
		return nil, fmt.Errorf("board: unknown board %q", cfg.Board)
	}
}

// realBoard carries the plumbing every physical board shares: motors, LED,
// serial pass-through, and the startup-relative microsecond clock.
type realBoard struct {
	motors *MotorBank
	led    LED
	serial *SerialIO
	start  time.Time
}

func newRealBoard(cfg *config.Config) (*realBoard, error) {
	b := &realBoard{start: time.Now()}

	if cfg.MotorPins[0] != "" {
		out, err := NewGPIOPulseOutput(cfg.MotorPins,
			physic.Frequency(cfg.MotorPWMRate)*physic.Hertz)
		if err != nil {
			return nil, err
		}
		b.motors = NewMotorBank(out,
			time.Duration(cfg.MotorMinPulseUS)*time.Microsecond,
			time.Duration(cfg.MotorMaxPulseUS)*time.Microsecond)
		log.Printf("board: motors on pins %v, %d..%d us at %d Hz",
			cfg.MotorPins, cfg.MotorMinPulseUS, cfg.MotorMaxPulseUS, cfg.MotorPWMRate)
	}

	if cfg.LEDPin != "" {
		led, err := NewGPIOLed(cfg.LEDPin)
		if err != nil {
			return nil, err
		}
		b.led = led
	}

	if cfg.SerialPort != "" {
		s, err := OpenSerialIO(cfg.SerialPort, cfg.SerialBaud)
		if err != nil {
			return nil, err
		}
		b.serial = s
	}

	return b, nil
}

func (b *realBoard) WriteMotor(index int, value float64) {
	if b.motors == nil {
		return
	}
	b.motors.WriteMotor(index, value)
}

func (b *realBoard) LedSet(on bool) {
	if b.led == nil {
		return
	}
	if err := b.led.Set(on); err != nil {
		log.Printf("board: led: %v", err)
	}
}

func (b *realBoard) Micros() uint32 {
	return uint32(time.Since(b.start).Microseconds())
}

func (b *realBoard) SerialAvailableBytes() int {
	if b.serial == nil {
		return 0
	}
	return b.serial.Available()
}

func (b *realBoard) SerialReadByte() (byte, error) {
	if b.serial == nil {
		return 0, fmt.Errorf("board: no serial port configured")
	}
	return b.serial.ReadByte()
}

func (b *realBoard) SerialWriteByte(c byte) error {
	if b.serial == nil {
		return fmt.Errorf("board: no serial port configured")
	}
	return b.serial.WriteByte(c)
}

// openF3Evo wires the polled raw SPI acquisition path.
func openF3Evo(cfg *config.Config, base *realBoard) (Board, error) {
	tr, err := bus.NewSPITransport(cfg.IMUSPIDevice, cfg.IMUCSPin, 7*physic.MegaHertz)
	if err != nil {
		return nil, fmt.Errorf("f3evo: %w", err)
	}

	imu := sensors.NewMPU6500(tr, sensors.F3EvoAccelAssembly)
	if err := imu.Init(cfg.IMUGyroRange, cfg.IMUAccelRange, cfg.IMUSampleRateDiv); err != nil {
		return nil, fmt.Errorf("f3evo: %w", err)
	}
	log.Printf("f3evo: IMU up on %s (CS %s)", cfg.IMUSPIDevice, cfg.IMUCSPin)

	return &F3Evo{realBoard: base, imu: imu}, nil
}

// openButterfly wires the buffered calibrated I2C acquisition path.
func openButterfly(cfg *config.Config, base *realBoard) (Board, error) {
	cal, err := sensors.LoadCalibration(cfg.CalibrationFile)
	if err != nil {
		return nil, fmt.Errorf("butterfly: %w", err)
	}
	cal.ApplyGyroBias = cfg.IMUApplyGyroBias

	tr, err := bus.NewI2CTransport(cfg.IMUI2CBus, cfg.IMUI2CAddr)
	if err != nil {
		return nil, fmt.Errorf("butterfly: %w", err)
	}
	mag := tr.NewI2CDevice(sensors.AK8963I2CAddr)

	imu := sensors.NewMPU9250(tr, mag, cal)
	if err := imu.Init(cfg.IMUGyroRange, cfg.IMUAccelRange, cfg.IMUSampleRateDiv, cfg.IMUMag16Bit); err != nil {
		return nil, fmt.Errorf("butterfly: %w", err)
	}
	log.Printf("butterfly: IMU up on i2c %q addr 0x%02X (accel ±%dg, gyro ±%d°/s)",
		cfg.IMUI2CBus, cfg.IMUI2CAddr,
		2<<cfg.IMUAccelRange, 250<<cfg.IMUGyroRange)

	return &Butterfly{realBoard: base, imu: imu}, nil
}
