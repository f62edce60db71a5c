package updates

import (
	"fmt"
	"log"

	"gonum.org/v1/gonum/mat"

	"github.com/relabs-tech/fusion_computer/internal/gps"
	"github.com/relabs-tech/fusion_computer/internal/measurement"
	"github.com/relabs-tech/fusion_computer/internal/state"
)

// Position is the 3-D position measurement from a GPS fix, projected to
// the local ENU frame at construction.
type Position struct {
	measurement.Sensor[gps.Fix]
	origin   gps.Origin
	variance float64
	enu      [3]float64
}

// NewPosition returns an empty position measurement; variance is the
// per-axis noise (m²) and origin anchors the ENU projection.
func NewPosition(variance float64, origin gps.Origin) *Position {
	return &Position{origin: origin, variance: variance}
}

// FromReading rejects fixes the receiver marked void; drivers normally
// filter those, so a void fix here becomes an Invalid measurement.
func (m *Position) FromReading(f *gps.Fix) error {
	if !f.Valid() {
		return fmt.Errorf("void GPS fix (validity %q)", f.Validity)
	}
	m.enu = m.origin.ToENU(*f)
	m.Stage(f, mat.NewSymDense(3, []float64{
		m.variance, 0, 0,
		0, m.variance, 0,
		0, 0, m.variance,
	}))
	return nil
}

// Apply corrects the full position block against the projected fix.
func (m *Position) Apply(st *state.Vector, core measurement.Core) {
	H := mat.NewDense(3, state.Dim(), nil)
	pos := st.Value(state.Position)
	residual := mat.NewVecDense(3, nil)
	for i := 0; i < 3; i++ {
		H.Set(i, state.Position.Offset()+i, 1)
		residual.SetVec(i, m.enu[i]-pos[i])
	}
	if err := core.ApplyCorrection(st, H, residual, m.Noise()); err != nil {
		log.Printf("updates: position correction at t=%.6f skipped: %v", m.Time(), err)
	}
}
