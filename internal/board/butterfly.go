package board

import (
	"github.com/relabs-tech/flight_computer/internal/sensors"
)

// Butterfly is the Butterfly dev-board profile: buffered calibrated I2C
// acquisition with the dual-rate magnetometer.
type Butterfly struct {
	*realBoard
	imu *sensors.MPU9250
}

func (b *Butterfly) ReadGyro(out *[3]float64) bool {
	return b.imu.ReadGyro(out)
}

func (b *Butterfly) Accelerometer() [3]float64 {
	return b.imu.Accelerometer()
}

func (b *Butterfly) Magnetometer() [3]float64 {
	return b.imu.Magnetometer()
}

func (b *Butterfly) Quaternion() ([4]float64, bool) {
	return b.imu.Quaternion()
}

// HasFusion is false: the MPU9250 fusion output is not wired to an
// estimator yet, so its quaternion is a resting placeholder.
func (b *Butterfly) HasFusion() bool {
	return false
}
