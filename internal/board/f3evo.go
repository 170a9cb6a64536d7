package board

import (
	"github.com/relabs-tech/flight_computer/internal/sensors"
)

// F3Evo is the Hyperion F3 Evo Brushed profile: polled raw SPI acquisition.
// Its readings are uncalibrated ADC counts meant for diagnostic logging;
// there is no magnetometer and no attitude placeholder on this board.
type F3Evo struct {
	*realBoard
	imu *sensors.MPU6500
}

// ReadGyro polls the IMU once and reports the raw gyro counts. False means
// the bus transaction failed this cycle; the caller retries next tick.
func (b *F3Evo) ReadGyro(out *[3]float64) bool {
	if !b.imu.Read() {
		return false
	}
	gx, gy, gz := b.imu.Gyro()
	out[0] = float64(gx)
	out[1] = float64(gy)
	out[2] = float64(gz)
	return true
}

// Accelerometer returns the last raw accel counts.
func (b *F3Evo) Accelerometer() [3]float64 {
	ax, ay, az := b.imu.Accel()
	return [3]float64{float64(ax), float64(ay), float64(az)}
}

// Magnetometer always reads zero: the board has none.
func (b *F3Evo) Magnetometer() [3]float64 {
	return [3]float64{}
}

// Quaternion reports unavailable: nothing estimates attitude on this path.
func (b *F3Evo) Quaternion() ([4]float64, bool) {
	return [4]float64{}, false
}

func (b *F3Evo) HasFusion() bool {
	return false
}
