package models

// IMUData holds one inertial measurement unit reading.
type IMUData struct {
	TimestampNs int64   `json:"timestamp_ns"`
	GyroX       float64 `json:"angular_velocity_x"` // rad/s
	GyroY       float64 `json:"angular_velocity_y"`
	GyroZ       float64 `json:"angular_velocity_z"`
	AccelX      float64 `json:"linear_acceleration_x"` // m/s²
	AccelY      float64 `json:"linear_acceleration_y"`
	AccelZ      float64 `json:"linear_acceleration_z"`
}

func (IMUData) CSVHeader() []string {
	return []string{
		"timestamp_ns",
		"angular_velocity_x", "angular_velocity_y", "angular_velocity_z",
		"linear_acceleration_x", "linear_acceleration_y", "linear_acceleration_z",
	}
}

func (d *IMUData) CSVRow() []string {
	return []string{
		itoa64(d.TimestampNs),
		ftoa(d.GyroX), ftoa(d.GyroY), ftoa(d.GyroZ),
		ftoa(d.AccelX), ftoa(d.AccelY), ftoa(d.AccelZ),
	}
}
