package orientation

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Pose is the canonical representation of orientation for the estimator:
// ZYX Euler angles in radians.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Source is anything that can provide poses over time: a mock source, a
// camera pipeline, a replay source from file, etc.
type Source interface {
	Next() (Pose, error)
}

// RotationMatrix returns the body-to-nav rotation for the attitude
// [roll, pitch, yaw] (ZYX convention, radians).
func RotationMatrix(att []float64) *mat.Dense {
	cr, sr := math.Cos(att[0]), math.Sin(att[0])
	cp, sp := math.Cos(att[1]), math.Sin(att[1])
	cy, sy := math.Cos(att[2]), math.Sin(att[2])

	return mat.NewDense(3, 3, []float64{
		cy * cp, cy*sp*sr - sy*cr, cy*sp*cr + sy*sr,
		sy * cp, sy*sp*sr + cy*cr, sy*sp*cr - cy*sr,
		-sp, cp * sr, cp * cr,
	})
}

// ComputePoseFromAccel computes roll and pitch from accelerometer data
// only. Yaw is set to 0 (no magnetometer in the loop).
//
// Uses simple tilt formulas:
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func ComputePoseFromAccel(ax, ay, az float64) Pose {
	return Pose{
		Roll:  math.Atan2(ay, az),
		Pitch: math.Atan2(-ax, math.Sqrt(ay*ay+az*az)),
		Yaw:   0,
	}
}
