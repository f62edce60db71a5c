package imu

// Sample represents one calibrated inertial sample suitable for JSON
// and MQTT.
type Sample struct {
	Time float64 `json:"time"` // capture time, seconds

	Gyro  [3]float64 `json:"gyro"`  // rad/s, body frame
	Accel [3]float64 `json:"accel"` // m/s², body frame, specific force
}

// Source is anything that can provide inertial samples over time.
type Source interface {
	Next() (Sample, error)
}
