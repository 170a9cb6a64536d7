package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fc_config.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
# flight computer bench config
BOARD=f3evo
IMU_SPI_DEVICE=/dev/spidev0.0
IMU_CS_PIN=18
IMU_ACCEL_RANGE=3
IMU_GYRO_RANGE=3
IMU_SMPLRT_DIV=4

RECEIVER=ibus
RECEIVER_PORT=/dev/ttyAMA0
AXIS_MAP=2,0,1,3,4
REVERSED_VERTICALS=true
SPRINGY_THROTTLE=true
THROTTLE_RATE=0.5

MOTOR_PINS=12,13,18,19
MOTOR_MIN_PULSE_US=1100
MOTOR_MAX_PULSE_US=1900

MQTT_BROKER=tcp://localhost:1883
SAMPLE_INTERVAL=5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Board != "f3evo" {
		t.Errorf("Board = %q", cfg.Board)
	}
	if cfg.IMUAccelRange != 3 || cfg.IMUGyroRange != 3 {
		t.Errorf("ranges = %d/%d, want 3/3", cfg.IMUAccelRange, cfg.IMUGyroRange)
	}
	if cfg.AxisMap != [5]int{2, 0, 1, 3, 4} {
		t.Errorf("AxisMap = %v", cfg.AxisMap)
	}
	if !cfg.ReversedVerticals || !cfg.SpringyThrottle {
		t.Error("receiver flags not parsed")
	}
	if cfg.ThrottleRate != 0.5 {
		t.Errorf("ThrottleRate = %v", cfg.ThrottleRate)
	}
	if cfg.MotorPins != [4]string{"12", "13", "18", "19"} {
		t.Errorf("MotorPins = %v", cfg.MotorPins)
	}
	if cfg.MotorMinPulseUS != 1100 || cfg.MotorMaxPulseUS != 1900 {
		t.Errorf("pulse range = %d..%d", cfg.MotorMinPulseUS, cfg.MotorMaxPulseUS)
	}
	if cfg.SampleInterval != 5 {
		t.Errorf("SampleInterval = %d", cfg.SampleInterval)
	}
	// Untouched keys keep their defaults.
	if cfg.TopicIMU != "fc/imu" {
		t.Errorf("TopicIMU default = %q", cfg.TopicIMU)
	}
	if cfg.MotorPWMRate != 500 {
		t.Errorf("MotorPWMRate default = %d", cfg.MotorPWMRate)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown key", "NO_SUCH_KEY=1\n", "unknown config key"},
		{"missing equals", "BOARD\n", "invalid config line"},
		{"bad board", "BOARD=naze32\n", "BOARD must be"},
		{"accel range too big", "IMU_ACCEL_RANGE=4\n", "must be 0-3"},
		{"axis map short", "AXIS_MAP=0,1,2\n", "must list 5"},
		{"axis map duplicate", "AXIS_MAP=0,0,1,2,3\n", "twice"},
		{"negative throttle rate", "THROTTLE_RATE=-1\n", "must be positive"},
		{"inverted pulse range", "MOTOR_MIN_PULSE_US=2000\nMOTOR_MAX_PULSE_US=1000\n", "must be below"},
		{"f3evo without spi", "BOARD=f3evo\n", "IMU_SPI_DEVICE is required"},
		{"ibus without port", "RECEIVER=ibus\n", "RECEIVER_PORT is required"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			if err == nil {
				t.Fatal("Load succeeded, want error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not contain %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadSkipsCommentsAndBlank(t *testing.T) {
	cfg, err := Load(writeConfig(t, "\n# comment\n\nSAMPLE_INTERVAL=20\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SampleInterval != 20 {
		t.Errorf("SampleInterval = %d, want 20", cfg.SampleInterval)
	}
}
