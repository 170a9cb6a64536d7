// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// Board selection: "f3evo" (SPI, raw polled IMU) or "butterfly"
	// (I2C, calibrated buffered IMU).
	Board string

	// IMU hardware
	IMUSPIDevice string
	IMUCSPin     string
	IMUI2CBus    string
	IMUI2CAddr   uint16

	// IMU sensor ranges
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUGyroRange byte
	// Magnetometer output width: false=14-bit, true=16-bit
	IMUMag16Bit bool
	// Sample rate divider (output rate = internal rate / (1 + div))
	IMUSampleRateDiv byte

	// Calibration
	CalibrationFile  string
	IMUApplyGyroBias bool

	// Receiver
	Receiver          string // "ibus" or "mock"
	ReceiverPort      string
	ReceiverBaudRate  uint
	AxisMap           [5]int // throttle, roll, pitch, yaw, aux -> raw axis
	ReversedVerticals bool
	SpringyThrottle   bool
	UseButtonForAux   bool
	ThrottleRate      float64 // units/second

	// Motors
	MotorPins        [4]string
	MotorPWMRate     int // Hz
	MotorMinPulseUS  int
	MotorMaxPulseUS  int
	MotorPassthrough bool // bench mode: demands drive motors directly

	// LED / serial pass-through
	LEDPin     string
	SerialPort string
	SerialBaud uint

	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDConsole  string
	MQTTClientIDMonitor  string
	MQTTClientIDGPS      string
	MQTTClientIDDisplay  string

	// Topics
	TopicIMU     string
	TopicDemands string
	TopicPose    string
	TopicGPS     string

	// GPS
	GPSSerialPort string
	GPSBaudRate   int

	// Timing
	SampleInterval int // milliseconds

	// Monitor web server
	WebServerPort int

	// Display
	DisplayUpdateInterval int // milliseconds
}

// Package-level unexported variables for the singleton:
//   - globalConfig is unexported so other packages cannot bypass Get().
//   - configOnce ensures InitGlobal() only runs once, even if called twice.
//   - configMu protects concurrent access: write lock for initialization,
//     read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := defaults()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaults returns a Config preloaded with the values that have sane
// hardware-independent answers.
func defaults() *Config {
	return &Config{
		Board:            "butterfly",
		Receiver:         "mock",
		AxisMap:          [5]int{0, 1, 2, 3, 4},
		ThrottleRate:     1.0,
		MotorPWMRate:     500,
		MotorMinPulseUS:  1000,
		MotorMaxPulseUS:  2000,
		SampleInterval:   10,
		TopicIMU:         "fc/imu",
		TopicDemands:     "fc/demands",
		TopicPose:        "fc/pose",
		TopicGPS:         "fc/gps",
		WebServerPort:    8080,
		IMUMag16Bit:      true,
		IMUI2CAddr:       0x68,
		ReceiverBaudRate: 115200,
	}
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

func parseRangeByte(key, value string, max int) (byte, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v < 0 || v > max {
		return 0, fmt.Errorf("%s must be 0-%d, got %d", key, max, v)
	}
	return byte(v), nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// Board
	case "BOARD":
		if value != "f3evo" && value != "butterfly" {
			return fmt.Errorf("BOARD must be \"f3evo\" or \"butterfly\", got %q", value)
		}
		c.Board = value

	// IMU hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_I2C_BUS":
		c.IMUI2CBus = value
	case "IMU_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid IMU_I2C_ADDR %q: %w", value, err)
		}
		c.IMUI2CAddr = uint16(addr)

	// IMU sensor ranges
	case "IMU_ACCEL_RANGE":
		v, err := parseRangeByte(key, value, 3)
		if err != nil {
			return err
		}
		c.IMUAccelRange = v
	case "IMU_GYRO_RANGE":
		v, err := parseRangeByte(key, value, 3)
		if err != nil {
			return err
		}
		c.IMUGyroRange = v
	case "IMU_MAG_16BIT":
		v, err := parseBool(key, value)
		if err != nil {
			return err
		}
		c.IMUMag16Bit = v
	case "IMU_SMPLRT_DIV":
		v, err := parseRangeByte(key, value, 255)
		if err != nil {
			return err
		}
		c.IMUSampleRateDiv = v

	// Calibration
	case "CALIBRATION_FILE":
		c.CalibrationFile = value
	case "IMU_APPLY_GYRO_BIAS":
		v, err := parseBool(key, value)
		if err != nil {
			return err
		}
		c.IMUApplyGyroBias = v

	// Receiver
	case "RECEIVER":
		if value != "ibus" && value != "mock" {
			return fmt.Errorf("RECEIVER must be \"ibus\" or \"mock\", got %q", value)
		}
		c.Receiver = value
	case "RECEIVER_PORT":
		c.ReceiverPort = value
	case "RECEIVER_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid RECEIVER_BAUD_RATE %q: %w", value, err)
		}
		c.ReceiverBaudRate = uint(rate)
	case "AXIS_MAP":
		fields := strings.Split(value, ",")
		if len(fields) != 5 {
			return fmt.Errorf("AXIS_MAP must list 5 axes, got %d", len(fields))
		}
		for i, f := range fields {
			axis, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil {
				return fmt.Errorf("invalid AXIS_MAP entry %q: %w", f, err)
			}
			if axis < 0 || axis > 5 {
				return fmt.Errorf("AXIS_MAP entries must be 0-5, got %d", axis)
			}
			c.AxisMap[i] = axis
		}
	case "REVERSED_VERTICALS":
		v, err := parseBool(key, value)
		if err != nil {
			return err
		}
		c.ReversedVerticals = v
	case "SPRINGY_THROTTLE":
		v, err := parseBool(key, value)
		if err != nil {
			return err
		}
		c.SpringyThrottle = v
	case "USE_BUTTON_FOR_AUX":
		v, err := parseBool(key, value)
		if err != nil {
			return err
		}
		c.UseButtonForAux = v
	case "THROTTLE_RATE":
		rate, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid THROTTLE_RATE %q: %w", value, err)
		}
		if rate <= 0 {
			return fmt.Errorf("THROTTLE_RATE must be positive, got %v", rate)
		}
		c.ThrottleRate = rate

	// Motors
	case "MOTOR_PINS":
		fields := strings.Split(value, ",")
		if len(fields) != 4 {
			return fmt.Errorf("MOTOR_PINS must list 4 pins, got %d", len(fields))
		}
		for i, f := range fields {
			c.MotorPins[i] = strings.TrimSpace(f)
		}
	case "MOTOR_PWM_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MOTOR_PWM_RATE %q: %w", value, err)
		}
		c.MotorPWMRate = rate
	case "MOTOR_MIN_PULSE_US":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MOTOR_MIN_PULSE_US %q: %w", value, err)
		}
		c.MotorMinPulseUS = v
	case "MOTOR_MAX_PULSE_US":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MOTOR_MAX_PULSE_US %q: %w", value, err)
		}
		c.MotorMaxPulseUS = v
	case "MOTOR_PASSTHROUGH":
		v, err := parseBool(key, value)
		if err != nil {
			return err
		}
		c.MotorPassthrough = v

	// LED / serial
	case "LED_PIN":
		c.LEDPin = value
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SERIAL_BAUD %q: %w", value, err)
		}
		c.SerialBaud = uint(rate)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_MONITOR":
		c.MQTTClientIDMonitor = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_IMU":
		c.TopicIMU = value
	case "TOPIC_DEMANDS":
		c.TopicDemands = value
	case "TOPIC_POSE":
		c.TopicPose = value
	case "TOPIC_GPS":
		c.TopicGPS = value

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = rate

	// Timing
	case "SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SAMPLE_INTERVAL %q: %w", value, err)
		}
		if interval <= 0 {
			return fmt.Errorf("SAMPLE_INTERVAL must be positive, got %d", interval)
		}
		c.SampleInterval = interval

	// Monitor web server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks cross-field consistency and required fields.
func (c *Config) validate() error {
	switch c.Board {
	case "f3evo":
		if c.IMUSPIDevice == "" {
			return fmt.Errorf("IMU_SPI_DEVICE is required for BOARD=f3evo")
		}
		if c.IMUCSPin == "" {
			return fmt.Errorf("IMU_CS_PIN is required for BOARD=f3evo")
		}
	case "butterfly":
		// The empty I2C bus name means "first available", which is fine.
	}
	if c.Receiver == "ibus" && c.ReceiverPort == "" {
		return fmt.Errorf("RECEIVER_PORT is required for RECEIVER=ibus")
	}
	if c.MotorMinPulseUS >= c.MotorMaxPulseUS {
		return fmt.Errorf("MOTOR_MIN_PULSE_US (%d) must be below MOTOR_MAX_PULSE_US (%d)",
			c.MotorMinPulseUS, c.MotorMaxPulseUS)
	}
	seen := [6]bool{}
	for _, axis := range c.AxisMap {
		if seen[axis] {
			return fmt.Errorf("AXIS_MAP maps the same raw axis twice: %v", c.AxisMap)
		}
		seen[axis] = true
	}
	return nil
}

// InitGlobal initializes the global configuration from file. Uses sync.Once
// so repeated calls are harmless.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance. InitGlobal must be called
// first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
