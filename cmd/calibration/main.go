// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


// Guided calibration for the flight IMU.
// Calibrates:
//  1. Gyro: static bias while the board rests still
//  2. Accel: level-pose bias against gravity (+1g on Z)
//  3. Mag: guided 3D rotation to estimate hard-iron offset + per-axis
//     soft-iron scale (min/max method)
//
// Output:
//
//	Writes the calibration JSON consumed at board open time. The file is
//	in physical units (g, deg/s, milligauss), matching the conversion
//	pipeline it corrects.
//
// Run:
//
//	go run ./cmd/calibration -config ./fc_config.txt
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/relabs-tech/flight_computer/internal/board"
	"github.com/relabs-tech/flight_computer/internal/config"
	"github.com/relabs-tech/flight_computer/internal/sensors"
)

const (
	restSamples = 200
	magSamples  = 300
	sampleEvery = 10 * time.Millisecond
)

func main() {
	configPath := flag.String("config", "./fc_config.txt", "path to configuration file")
	outPath := flag.String("out", "", "output file (defaults to CALIBRATION_FILE from config)")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	out := *outPath
	if out == "" {
		out = cfg.CalibrationFile
	}
	if out == "" {
		out = fmt.Sprintf("%s_%d_calibration.json", cfg.Board, time.Now().Unix())
	}

	brd, err := board.Open(cfg)
	if err != nil {
		log.Fatalf("failed to open board: %v", err)
	}

	stdin := bufio.NewReader(os.Stdin)
	result := sensors.CalibrationFile{
		Version:   1,
		Timestamp: time.Now(),
		MagScaleX: 1.0,
		MagScaleY: 1.0,
		MagScaleZ: 1.0,
	}

	// ---- 1) Gyro + accel at rest ----
	fmt.Println("Place the board flat and still, then press Enter.")
	waitEnter(stdin)

	gyroSamples := collect(brd, restSamples, func(b board.Board, out *[3]float64) bool {
		return b.ReadGyro(out)
	})
	accelSamples := collect(brd, restSamples, func(b board.Board, out *[3]float64) bool {
		*out = b.Accelerometer()
		return true
	})

	result.GyroBiasX = mean(gyroSamples, 0)
	result.GyroBiasY = mean(gyroSamples, 1)
	result.GyroBiasZ = mean(gyroSamples, 2)

	// Level pose: gravity shows up as +1g on Z, the rest is bias.
	result.AccelBiasX = mean(accelSamples, 0)
	result.AccelBiasY = mean(accelSamples, 1)
	result.AccelBiasZ = mean(accelSamples, 2) - 1.0

	fmt.Printf("gyro bias:  %+.3f %+.3f %+.3f deg/s (stddev %.4f)\n",
		result.GyroBiasX, result.GyroBiasY, result.GyroBiasZ,
		(stddev(gyroSamples, 0)+stddev(gyroSamples, 1)+stddev(gyroSamples, 2))/3.0)
	fmt.Printf("accel bias: %+.4f %+.4f %+.4f g\n",
		result.AccelBiasX, result.AccelBiasY, result.AccelBiasZ)

	result.TotalSamples = len(gyroSamples) + len(accelSamples)

	// ---- 2) Magnetometer, skipped on boards without one ----
	mag := brd.Magnetometer()
	if mag != ([3]float64{}) {
		fmt.Println("Rotate the board slowly through all orientations, then press Enter to start.")
		waitEnter(stdin)

		minV := [3]float64{math.MaxFloat64, math.MaxFloat64, math.MaxFloat64}
		maxV := [3]float64{-math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64}

		for i := 0; i < magSamples; i++ {
			var g [3]float64
			brd.ReadGyro(&g) // drives the sample pipeline
			m := brd.Magnetometer()
			for axis := 0; axis < 3; axis++ {
				if m[axis] < minV[axis] {
					minV[axis] = m[axis]
				}
				if m[axis] > maxV[axis] {
					maxV[axis] = m[axis]
				}
			}
			time.Sleep(sampleEvery)
		}

		// Hard-iron offset is the center of the min/max box, soft-iron
		// scale normalizes each axis span to the average span.
		ranges := [3]float64{maxV[0] - minV[0], maxV[1] - minV[1], maxV[2] - minV[2]}
		avgRange := (ranges[0] + ranges[1] + ranges[2]) / 3.0

		result.MagBiasX = (maxV[0] + minV[0]) / 2.0
		result.MagBiasY = (maxV[1] + minV[1]) / 2.0
		result.MagBiasZ = (maxV[2] + minV[2]) / 2.0
		if ranges[0] > 0 && ranges[1] > 0 && ranges[2] > 0 {
			result.MagScaleX = avgRange / ranges[0]
			result.MagScaleY = avgRange / ranges[1]
			result.MagScaleZ = avgRange / ranges[2]
		}
		result.TotalSamples += magSamples

		fmt.Printf("mag bias:   %+.1f %+.1f %+.1f mG\n",
			result.MagBiasX, result.MagBiasY, result.MagBiasZ)
		fmt.Printf("mag scale:  %.3f %.3f %.3f\n",
			result.MagScaleX, result.MagScaleY, result.MagScaleZ)
	} else {
		fmt.Println("no magnetometer data, skipping mag calibration")
	}

	// ---- 3) Save ----
	if err := sensors.SaveCalibration(out, result); err != nil {
		log.Fatalf("failed to save calibration: %v", err)
	}
	fmt.Printf("calibration written to %s (%d samples)\n", out, result.TotalSamples)
}

func waitEnter(r *bufio.Reader) {
	if _, err := r.ReadString('\n'); err != nil {
		log.Fatalf("stdin: %v", err)
	}
}

// collect gathers n vector samples, waiting out cycles where the board has
// nothing new.
func collect(brd board.Board, n int, read func(board.Board, *[3]float64) bool) [][3]float64 {
	samples := make([][3]float64, 0, n)
	for len(samples) < n {
		var v [3]float64
		if read(brd, &v) {
			samples = append(samples, v)
		}
		time.Sleep(sampleEvery)
	}
	return samples
}

func mean(data [][3]float64, axis int) float64 {
	sum := 0.0
	for _, v := range data {
		sum += v[axis]
	}
	return sum / float64(len(data))
}

func stddev(data [][3]float64, axis int) float64 {
	if len(data) == 0 {
		return 0
	}
	m := mean(data, axis)
	variance := 0.0
	for _, v := range data {
		diff := v[axis] - m
		variance += diff * diff
	}
	variance /= float64(len(data))
	return math.Sqrt(variance)
}
