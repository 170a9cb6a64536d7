// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Calibration holds the per-axis corrections applied during conversion.
// It is fixed after device construction; there is no runtime recalibration.
//
// ApplyGyroBias defaults to false: the legacy pipeline converted gyro counts
// without subtracting the measured bias, and flight tuning was done against
// that behavior. Both behaviors stay selectable.
type Calibration struct {
	AccelBias [3]float64
	GyroBias  [3]float64
	MagBias   [3]float64
	MagScale  [3]float64

	ApplyGyroBias bool
}

// DefaultCalibration is the identity correction.
func DefaultCalibration() Calibration {
	return Calibration{MagScale: [3]float64{1, 1, 1}}
}

// CalibrationFile is the on-disk JSON produced by cmd/calibration.
type CalibrationFile struct {
	Version   int       `json:"version"`
	Timestamp time.Time `json:"timestamp"`

	AccelBiasX float64 `json:"accel_bias_x"`
	AccelBiasY float64 `json:"accel_bias_y"`
	AccelBiasZ float64 `json:"accel_bias_z"`

	GyroBiasX float64 `json:"gyro_bias_x"`
	GyroBiasY float64 `json:"gyro_bias_y"`
	GyroBiasZ float64 `json:"gyro_bias_z"`

	MagBiasX float64 `json:"mag_bias_x"`
	MagBiasY float64 `json:"mag_bias_y"`
	MagBiasZ float64 `json:"mag_bias_z"`

	MagScaleX float64 `json:"mag_scale_x"`
	MagScaleY float64 `json:"mag_scale_y"`
	MagScaleZ float64 `json:"mag_scale_z"`

	TotalSamples int `json:"total_samples"`
}

// LoadCalibration reads a calibration JSON. A missing file is not an error:
// boards fly uncalibrated until someone runs cmd/calibration.
func LoadCalibration(path string) (Calibration, error) {
	cal := DefaultCalibration()
	if path == "" {
		return cal, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cal, nil
		}
		return cal, fmt.Errorf("calibration: read %s: %w", path, err)
	}

	var f CalibrationFile
	if err := json.Unmarshal(data, &f); err != nil {
		return cal, fmt.Errorf("calibration: parse %s: %w", path, err)
	}

	cal.AccelBias = [3]float64{f.AccelBiasX, f.AccelBiasY, f.AccelBiasZ}
	cal.GyroBias = [3]float64{f.GyroBiasX, f.GyroBiasY, f.GyroBiasZ}
	cal.MagBias = [3]float64{f.MagBiasX, f.MagBiasY, f.MagBiasZ}
	if f.MagScaleX != 0 || f.MagScaleY != 0 || f.MagScaleZ != 0 {
		cal.MagScale = [3]float64{f.MagScaleX, f.MagScaleY, f.MagScaleZ}
	}
	return cal, nil
}

// SaveCalibration writes the calibration JSON consumed by LoadCalibration.
func SaveCalibration(path string, f CalibrationFile) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("calibration: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("calibration: write %s: %w", path, err)
	}
	return nil
}

// AccelResolution returns g per count for an ACCEL_FS_SEL value 0..3
// (±2g, ±4g, ±8g, ±16g).
func AccelResolution(fsSel byte) float64 {
	return float64(uint(2)<<(fsSel&0x03)) / 32768.0
}

// GyroResolution returns deg/s per count for a GYRO_FS_SEL value 0..3
// (±250, ±500, ±1000, ±2000 deg/s).
func GyroResolution(fsSel byte) float64 {
	return float64(uint(250)<<(fsSel&0x03)) / 32768.0
}

// MagResolution returns milligauss per count for the AK8963 output width.
// The part spans ±4912 µT over 8190 counts in 14-bit mode and 32760 counts
// in 16-bit mode.
func MagResolution(sixteenBit bool) float64 {
	if sixteenBit {
		return 10.0 * 4912.0 / 32760.0
	}
	return 10.0 * 4912.0 / 8190.0
}
