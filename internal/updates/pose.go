package updates

import (
	"log"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/relabs-tech/fusion_computer/internal/measurement"
	"github.com/relabs-tech/fusion_computer/internal/orientation"
	"github.com/relabs-tech/fusion_computer/internal/state"
)

// PoseReading is a raw 6-DoF report from an external pose estimator
// (visual odometry, motion capture), already in the nav frame.
type PoseReading struct {
	Time     float64          `json:"time"`
	Position [3]float64       `json:"position"`
	Attitude orientation.Pose `json:"attitude"`
}

// Pose is the 6-D measurement observing position and attitude together.
type Pose struct {
	measurement.Sensor[PoseReading]
	posVariance float64
	attVariance float64
}

// NewPose returns an empty pose measurement with per-axis position (m²)
// and attitude (rad²) noise.
func NewPose(posVariance, attVariance float64) *Pose {
	return &Pose{posVariance: posVariance, attVariance: attVariance}
}

// FromReading builds the fixed 6×6 noise block.
func (m *Pose) FromReading(r *PoseReading) error {
	R := mat.NewSymDense(6, nil)
	for i := 0; i < 3; i++ {
		R.SetSym(i, i, m.posVariance)
		R.SetSym(3+i, 3+i, m.attVariance)
	}
	m.Stage(r, R)
	return nil
}

// Apply corrects position and attitude; attitude residuals are wrapped
// to (-π, π] so a yaw crossing doesn't look like a full turn.
func (m *Pose) Apply(st *state.Vector, core measurement.Core) {
	r := m.Reading()
	H := mat.NewDense(6, state.Dim(), nil)
	residual := mat.NewVecDense(6, nil)

	pos := st.Value(state.Position)
	att := st.Value(state.Attitude)
	measured := [3]float64{r.Attitude.Roll, r.Attitude.Pitch, r.Attitude.Yaw}

	for i := 0; i < 3; i++ {
		H.Set(i, state.Position.Offset()+i, 1)
		residual.SetVec(i, r.Position[i]-pos[i])

		H.Set(3+i, state.Attitude.Offset()+i, 1)
		residual.SetVec(3+i, wrapAngle(measured[i]-att[i]))
	}
	if err := core.ApplyCorrection(st, H, residual, m.Noise()); err != nil {
		log.Printf("updates: pose correction at t=%.6f skipped: %v", m.Time(), err)
	}
}

func wrapAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
