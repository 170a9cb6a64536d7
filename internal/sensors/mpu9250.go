// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/flight_computer/internal/bus"
)

// MPU9250 is the buffered, calibrated acquisition path. Accel and gyro are
// gated on the part's raw-data-ready status; the AK8963 magnetometer runs at
// its own rate and is sub-sampled inside a ready cycle, keeping its last
// valid reading between updates.
//
// Conversions use resolution scalars fixed at Init from the selected full
// scale ranges. Accel bias is subtracted; gyro bias only when the
// calibration policy says so (see Calibration.ApplyGyroBias).
type MPU9250 struct {
	tr  bus.Transport // MPU registers
	mag bus.Transport // AK8963, reachable through the bypass mux

	aRes, gRes, mRes float64
	factoryMagCal    [3]float64
	cal              Calibration
	magReady         bool

	accel [3]float64
	gyro  [3]float64
	magV  [3]float64
}

// NewMPU9250 wraps the MPU transport and the magnetometer transport. mag may
// be nil when the board has no reachable AK8963; the magnetometer then stays
// at zero and is never refreshed.
func NewMPU9250(tr, mag bus.Transport, cal Calibration) *MPU9250 {
	return &MPU9250{
		tr:            tr,
		mag:           mag,
		cal:           cal,
		factoryMagCal: [3]float64{1, 1, 1},
	}
}

// Init brings up the part, fixes the resolution scalars for the selected
// ranges, enables the aux-I2C bypass, and configures the AK8963 in 100 Hz
// continuous mode with its factory sensitivity adjustment loaded.
func (m *MPU9250) Init(gyroFS, accelFS, smplrtDiv byte, mag16Bit bool) error {
	seq := []struct {
		reg, val byte
		settle   time.Duration
	}{
		{RegPwrMgmt1, BitHReset, 100 * time.Millisecond},
		{RegPwrMgmt1, BitClkSelPLL, 100 * time.Millisecond},
		{RegConfig, 0x03, 10 * time.Millisecond},
		{RegSmplrtDiv, smplrtDiv, 10 * time.Millisecond},
		{RegGyroConfig, (gyroFS & 0x03) << 3, 10 * time.Millisecond},
		{RegAccelConfig, (accelFS & 0x03) << 3, 10 * time.Millisecond},
		{RegAccelConfig2, 0x03, 10 * time.Millisecond},
		{RegIntPinCfg, BitIntAnyrd2Clr | BitBypassEn, 10 * time.Millisecond},
		{RegIntEnable, BitRawRdyEn, 10 * time.Millisecond},
	}
	for _, s := range seq {
		if err := m.tr.WriteRegister(s.reg, s.val); err != nil {
			return fmt.Errorf("mpu9250 init: reg 0x%02X: %w", s.reg, err)
		}
		time.Sleep(s.settle)
	}

	id, err := m.tr.ReadRegister(RegWhoAmI)
	if err != nil {
		return fmt.Errorf("mpu9250 init: WHO_AM_I: %w", err)
	}
	if id != WhoAmIMPU9250 && id != WhoAmIMPU6500 {
		return fmt.Errorf("mpu9250 init: unexpected WHO_AM_I 0x%02X", id)
	}

	m.aRes = AccelResolution(accelFS)
	m.gRes = GyroResolution(gyroFS)
	m.mRes = MagResolution(mag16Bit)

	if m.mag == nil {
		log.Printf("mpu9250: no magnetometer transport, mag disabled")
		return nil
	}
	if err := m.initAK8963(mag16Bit); err != nil {
		// Not fatal: the board still flies on accel/gyro alone.
		log.Printf("mpu9250: magnetometer init failed (continuing without mag): %v", err)
		m.mag = nil
		return nil
	}
	m.magReady = true
	return nil
}

func (m *MPU9250) initAK8963(mag16Bit bool) error {
	id, err := m.mag.ReadRegister(AK8963RegWIA)
	if err != nil {
		return fmt.Errorf("ak8963 WIA: %w", err)
	}
	if id != WhoAmIAK8963 {
		return fmt.Errorf("ak8963: unexpected WIA 0x%02X", id)
	}

	if err := m.mag.WriteRegister(AK8963RegCntl2, AK8963BitSrst); err != nil {
		return fmt.Errorf("ak8963 reset: %w", err)
	}
	time.Sleep(10 * time.Millisecond)

	// Factory sensitivity adjustment lives in fuse ROM.
	if err := m.mag.WriteRegister(AK8963RegCntl1, AK8963ModeFuse); err != nil {
		return fmt.Errorf("ak8963 fuse mode: %w", err)
	}
	time.Sleep(10 * time.Millisecond)
	var asa [3]byte
	if err := m.mag.ReadRegisterBuffer(AK8963RegASAX, asa[:]); err != nil {
		return fmt.Errorf("ak8963 ASA: %w", err)
	}
	for i, v := range asa {
		m.factoryMagCal[i] = (float64(v)-128.0)/256.0 + 1.0
	}

	if err := m.mag.WriteRegister(AK8963RegCntl1, AK8963ModePwrDn); err != nil {
		return fmt.Errorf("ak8963 power down: %w", err)
	}
	time.Sleep(10 * time.Millisecond)

	mode := byte(AK8963Mode100Hz)
	if mag16Bit {
		mode |= AK8963Bit16Bit
	}
	if err := m.mag.WriteRegister(AK8963RegCntl1, mode); err != nil {
		return fmt.Errorf("ak8963 continuous mode: %w", err)
	}
	time.Sleep(10 * time.Millisecond)

	log.Printf("mpu9250: mag sensitivity adj X=%.4f Y=%.4f Z=%.4f",
		m.factoryMagCal[0], m.factoryMagCal[1], m.factoryMagCal[2])
	return nil
}

// dataReady polls the raw-data-ready status bit. A read failure counts as
// not ready; the next cycle retries.
func (m *MPU9250) dataReady() bool {
	st, err := m.tr.ReadRegister(RegIntStatus)
	if err != nil {
		return false
	}
	return st&BitRawDataRdyInt != 0
}

// magDataReady polls the AK8963 DRDY bit.
func (m *MPU9250) magDataReady() bool {
	if m.mag == nil || !m.magReady {
		return false
	}
	st, err := m.mag.ReadRegister(AK8963RegSt1)
	if err != nil {
		return false
	}
	return st&AK8963BitDRDY != 0
}

// ReadGyro performs one acquisition cycle. When the accel/gyro data-ready
// condition does not hold it returns false with no state changed; that is
// the normal "no new sample this cycle" outcome, not a fault.
//
// On a ready cycle it burst-reads the 14-byte accel/temp/gyro frame,
// converts to physical units, refreshes the magnetometer if (and only if)
// the mag has new data, and copies the gyro values in deg/s into out.
func (m *MPU9250) ReadGyro(out *[3]float64) bool {
	if !m.dataReady() {
		return false
	}

	// 3 accel words, 1 temperature word (unused here), 3 gyro words.
	var frame [14]byte
	if err := m.tr.ReadRegisterBuffer(RegAccelXoutH, frame[:]); err != nil {
		return false
	}

	var raw [7]int16
	for i := range raw {
		raw[i] = int16(uint16(frame[2*i])<<8 | uint16(frame[2*i+1]))
	}

	for i := 0; i < 3; i++ {
		m.accel[i] = float64(raw[i])*m.aRes - m.cal.AccelBias[i]
	}
	for i := 0; i < 3; i++ {
		m.gyro[i] = float64(raw[i+4]) * m.gRes
		if m.cal.ApplyGyroBias {
			m.gyro[i] -= m.cal.GyroBias[i]
		}
	}

	if m.magDataReady() {
		m.readMag()
	}

	out[0] = m.gyro[0]
	out[1] = m.gyro[1]
	out[2] = m.gyro[2]
	return true
}

// readMag reads the 7-byte AK8963 frame (three little-endian words plus
// ST2). ST2 must be read to release the data latch; its overflow bit voids
// the sample, keeping the previous value.
func (m *MPU9250) readMag() {
	var frame [7]byte
	if err := m.mag.ReadRegisterBuffer(AK8963RegHXL, frame[:]); err != nil {
		return
	}
	if frame[6]&AK8963BitHOFL != 0 {
		return
	}
	for i := 0; i < 3; i++ {
		raw := int16(uint16(frame[2*i+1])<<8 | uint16(frame[2*i]))
		v := float64(raw)*m.mRes*m.factoryMagCal[i] - m.cal.MagBias[i]
		m.magV[i] = v * m.cal.MagScale[i]
	}
}

// Accelerometer returns the most recent converted accel sample in g's.
// It never blocks and never fails; between acquisitions it repeats the
// cached value.
func (m *MPU9250) Accelerometer() [3]float64 {
	return m.accel
}

// Magnetometer returns the most recent converted mag sample in milligauss.
// Values persist unchanged across cycles in which the magnetometer had no
// new data.
func (m *MPU9250) Magnetometer() [3]float64 {
	return m.magV
}

// Quaternion reports the on-sensor fusion output. No estimator is wired to
// this pipeline yet, so the value is a fixed placeholder.
func (m *MPU9250) Quaternion() ([4]float64, bool) {
	return [4]float64{0.3, 0, 0, 1}, true
}
