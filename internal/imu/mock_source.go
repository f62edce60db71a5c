package imu

import (
	"math"
	"time"
)

type mockSource struct {
	start time.Time
}

// NewMockSource creates a mock inertial source: a gentle oscillation
// around level flight, gravity on the body z axis.
func NewMockSource() Source {
	return &mockSource{start: time.Now()}
}

func (m *mockSource) Next() (Sample, error) {
	now := time.Now()
	elapsed := now.Sub(m.start).Seconds()

	return Sample{
		Time: float64(now.UnixNano()) / 1e9,
		Gyro: [3]float64{
			0.02 * math.Sin(elapsed),
			0.015 * math.Cos(elapsed*0.7),
			0,
		},
		Accel: [3]float64{
			0.1 * math.Sin(elapsed*0.3),
			0.1 * math.Cos(elapsed*0.4),
			9.80665,
		},
	}, nil
}
