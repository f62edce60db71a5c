package updates

import (
	"fmt"
	"log"

	"gonum.org/v1/gonum/mat"

	"github.com/relabs-tech/fusion_computer/internal/env"
	"github.com/relabs-tech/fusion_computer/internal/measurement"
	"github.com/relabs-tech/fusion_computer/internal/state"
)

// Baro is the 1-D barometric altitude measurement built from a static
// pressure sample. The reference altitude shifts the standard-atmosphere
// altitude into the local ENU frame.
type Baro struct {
	measurement.Sensor[env.Sample]
	variance float64
	ref      float64
}

// NewBaro returns an empty baro measurement with noise variance (m²)
// and the reference altitude (m) of the ENU origin.
func NewBaro(variance, ref float64) *Baro {
	return &Baro{variance: variance, ref: ref}
}

// FromReading rejects physically impossible samples; rejection surfaces
// as an Invalid measurement, not an error at the call site.
func (m *Baro) FromReading(r *env.Sample) error {
	if r.Pressure <= 0 {
		return fmt.Errorf("non-positive pressure %.1f Pa", r.Pressure)
	}
	m.Stage(r, mat.NewSymDense(1, []float64{m.variance}))
	return nil
}

// Apply corrects altitude against the barometric altitude of the
// sample's pressure.
func (m *Baro) Apply(st *state.Vector, core measurement.Core) {
	H := mat.NewDense(1, state.Dim(), nil)
	H.Set(0, state.Position.Offset()+2, 1)

	residual := mat.NewVecDense(1, []float64{
		m.Reading().Altitude() - m.ref - st.Value(state.Position)[2],
	})
	if err := core.ApplyCorrection(st, H, residual, m.Noise()); err != nil {
		log.Printf("updates: baro correction at t=%.6f skipped: %v", m.Time(), err)
	}
}
