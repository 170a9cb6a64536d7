// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"time"

	"github.com/relabs-tech/flight_computer/internal/bus"
)

// ByteAssembly names the two frame bytes (and a sign) that form one axis
// word. Boards mount the sensor rotated, so the byte-to-axis wiring is board
// data, not driver code.
type ByteAssembly struct {
	Hi, Lo int
	Sign   int16
}

// AccelAssembly is the per-axis assembly table for a 6-byte accel frame.
type AccelAssembly [3]ByteAssembly

// F3EvoAccelAssembly reproduces the Hyperion F3 Evo Brushed wiring: the IMU
// sits rotated on the board, so X and Y arrive cross-wired.
// ax <- bytes {0,3}, ay <- bytes {2,1}, az <- bytes {4,5}.
var F3EvoAccelAssembly = AccelAssembly{
	{Hi: 0, Lo: 3, Sign: 1},
	{Hi: 2, Lo: 1, Sign: 1},
	{Hi: 4, Lo: 5, Sign: 1},
}

// StraightAccelAssembly is the datasheet byte order, for boards without
// rotation compensation.
var StraightAccelAssembly = AccelAssembly{
	{Hi: 0, Lo: 1, Sign: 1},
	{Hi: 2, Lo: 3, Sign: 1},
	{Hi: 4, Lo: 5, Sign: 1},
}

// MPU6500 is the polled raw-register acquisition path: one SPI transfer for
// the gyro, one burst read for the accel, no scaling, no calibration. The
// counts it produces are for diagnostic logging, not control.
//
// The caller owns the bus for the duration of each Read; no two calls on the
// same instance may overlap.
type MPU6500 struct {
	tr       bus.Transport
	accelMap AccelAssembly

	gx, gy, gz int16
	ax, ay, az int16
}

// NewMPU6500 wraps an SPI transport with the given accel assembly table.
func NewMPU6500(tr bus.Transport, accelMap AccelAssembly) *MPU6500 {
	return &MPU6500{tr: tr, accelMap: accelMap}
}

// Init runs the bring-up register sequence: reset, signal-path reset, PLL
// clock, full ranges, data-ready interrupt. The fixed delays match the
// part's documented post-write settle times.
func (m *MPU6500) Init(gyroFS, accelFS, smplrtDiv byte) error {
	seq := []struct {
		reg, val byte
		settle   time.Duration
	}{
		{RegPwrMgmt1, BitHReset, 100 * time.Millisecond},
		{RegSignalPathRst, 0x07, 100 * time.Millisecond},
		{RegPwrMgmt1, 0, 100 * time.Millisecond},
		{RegPwrMgmt1, BitClkSelPLL, 15 * time.Millisecond},
		{RegGyroConfig, (gyroFS & 0x03) << 3, 15 * time.Millisecond},
		{RegAccelConfig, (accelFS & 0x03) << 3, 15 * time.Millisecond},
		{RegConfig, 0, 15 * time.Millisecond}, // no DLPF
		{RegSmplrtDiv, smplrtDiv, 100 * time.Millisecond},
		{RegIntPinCfg, BitIntAnyrd2Clr, 15 * time.Millisecond},
		{RegIntEnable, BitRawRdyEn, 15 * time.Millisecond},
	}
	for _, s := range seq {
		if err := m.tr.WriteRegister(s.reg, s.val); err != nil {
			return fmt.Errorf("mpu6500 init: reg 0x%02X: %w", s.reg, err)
		}
		time.Sleep(s.settle)
	}

	id, err := m.tr.ReadRegister(RegWhoAmI)
	if err != nil {
		return fmt.Errorf("mpu6500 init: WHO_AM_I: %w", err)
	}
	if id != WhoAmIMPU6500 && id != WhoAmIMPU9250 {
		return fmt.Errorf("mpu6500 init: unexpected WHO_AM_I 0x%02X", id)
	}
	return nil
}

// Read performs one acquisition cycle. It returns false, with no state
// mutated, when the gyro transfer fails; the caller retries on its next
// scheduler tick. A failed accel burst keeps the previous accel counts.
func (m *MPU6500) Read() bool {
	cmd := [7]byte{RegGyroXoutH | 0x80, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	var data [7]byte

	if err := m.tr.Transfer(cmd[:], data[:]); err != nil {
		return false
	}

	// Wire order on this part is gy, gx, gz.
	m.gy = int16(uint16(data[1])<<8 | uint16(data[2]))
	m.gx = int16(uint16(data[3])<<8 | uint16(data[4]))
	m.gz = int16(uint16(data[5])<<8 | uint16(data[6]))

	var acc [6]byte
	if err := m.tr.ReadRegisterBuffer(RegAccelXoutH, acc[:]); err == nil {
		m.ax = m.accelMap[0].Sign * int16(uint16(acc[m.accelMap[0].Hi])<<8|uint16(acc[m.accelMap[0].Lo]))
		m.ay = m.accelMap[1].Sign * int16(uint16(acc[m.accelMap[1].Hi])<<8|uint16(acc[m.accelMap[1].Lo]))
		m.az = m.accelMap[2].Sign * int16(uint16(acc[m.accelMap[2].Hi])<<8|uint16(acc[m.accelMap[2].Lo]))
	}

	return true
}

// Gyro returns the last assembled gyro counts in axis order x, y, z.
func (m *MPU6500) Gyro() (int16, int16, int16) {
	return m.gx, m.gy, m.gz
}

// Accel returns the last assembled accel counts in axis order x, y, z.
func (m *MPU6500) Accel() (int16, int16, int16) {
	return m.ax, m.ay, m.az
}
