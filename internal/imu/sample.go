package imu

// Sample is a single inertial sample in physical units, suitable for
// JSON and MQTT.
type Sample struct {
	Board string `json:"board"` // "f3evo" or "butterfly"

	Ax float64 `json:"ax"` // accel, g (raw counts on boards without scaling)
	Ay float64 `json:"ay"`
	Az float64 `json:"az"`

	Gx float64 `json:"gx"` // gyro, deg/s (raw counts on boards without scaling)
	Gy float64 `json:"gy"`
	Gz float64 `json:"gz"`

	Mx float64 `json:"mx"` // magnetometer, milligauss (zero when absent)
	My float64 `json:"my"`
	Mz float64 `json:"mz"`
}

// Demands is a normalized control-demand frame as produced by the
// receiver layer.
type Demands struct {
	Throttle float64 `json:"throttle"` // [-1, +1]
	Roll     float64 `json:"roll"`
	Pitch    float64 `json:"pitch"`
	Yaw      float64 `json:"yaw"`
	Aux      float64 `json:"aux"`
}
