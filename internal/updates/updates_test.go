package updates

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/relabs-tech/fusion_computer/internal/env"
	"github.com/relabs-tech/fusion_computer/internal/gps"
	"github.com/relabs-tech/fusion_computer/internal/measurement"
	"github.com/relabs-tech/fusion_computer/internal/orientation"
	"github.com/relabs-tech/fusion_computer/internal/state"
)

// captureCore records the observation model a measurement hands the
// filter, without doing any correction arithmetic.
type captureCore struct {
	H        mat.Matrix
	residual mat.Vector
	R        mat.Matrix
	calls    int
}

func (c *captureCore) ApplyCorrection(st *state.Vector, H mat.Matrix, residual mat.Vector, R mat.Matrix) error {
	c.H, c.residual, c.R = H, residual, R
	c.calls++
	return nil
}

func (c *captureCore) InitializeState(st *state.Vector, withReadings bool) {}
func (c *captureCore) Running() bool                                      { return false }

func TestRange(t *testing.T) {
	t.Parallel()

	t.Run("observes altitude directly", func(t *testing.T) {
		t.Parallel()
		m := measurement.MakeFrom(NewRange(0.25), &RangeReading{Distance: 2.5}, 1.0)
		st := state.New()
		st.Set(state.Position, []float64{0, 0, 1.0})

		core := &captureCore{}
		m.Apply(st, core)
		require.Equal(t, 1, core.calls)
		assert.Equal(t, 1.0, core.H.At(0, state.Position.Offset()+2))
		assert.InDelta(t, 1.5, core.residual.AtVec(0), 1e-12)
		assert.Equal(t, 0.25, core.R.At(0, 0))
	})

	t.Run("non-positive distance degrades to a zero-information update", func(t *testing.T) {
		t.Parallel()
		m := measurement.MakeFrom(NewRange(0.25), &RangeReading{Distance: -1}, 1.0)
		_, invalid := m.(*measurement.Invalid)
		require.False(t, invalid)

		st := state.New()
		st.Set(state.Position, []float64{0, 0, 5.0})
		core := &captureCore{}
		m.Apply(st, core)
		require.Equal(t, 1, core.calls)

		// The correction still runs, but carries no information.
		for j := 0; j < state.Dim(); j++ {
			assert.Equal(t, 0.0, core.H.At(0, j))
		}
		assert.Equal(t, 0.0, core.residual.AtVec(0))
	})
}

func TestBaro(t *testing.T) {
	t.Parallel()

	t.Run("non-positive pressure yields an invalid measurement", func(t *testing.T) {
		t.Parallel()
		m := measurement.MakeFrom(NewBaro(1.0, 0), &env.Sample{Pressure: 0}, 2.0)
		_, invalid := m.(*measurement.Invalid)
		assert.True(t, invalid)
	})

	t.Run("residual is altitude relative to the reference", func(t *testing.T) {
		t.Parallel()
		s := &env.Sample{Pressure: 89874.6} // roughly 1000 m ISA
		m := measurement.MakeFrom(NewBaro(1.0, 990.0), s, 2.0)

		st := state.New()
		st.Set(state.Position, []float64{0, 0, 3.0})
		core := &captureCore{}
		m.Apply(st, core)
		require.Equal(t, 1, core.calls)
		assert.InDelta(t, s.Altitude()-990.0-3.0, core.residual.AtVec(0), 1e-12)
		assert.Equal(t, 1.0, core.H.At(0, state.Position.Offset()+2))
	})
}

func TestPosition(t *testing.T) {
	t.Parallel()

	origin := gps.Origin{Latitude: 47.0, Longitude: 8.0, Altitude: 400.0}

	t.Run("void fix yields an invalid measurement", func(t *testing.T) {
		t.Parallel()
		m := measurement.MakeFrom(NewPosition(4.0, origin),
			&gps.Fix{Latitude: 47.0, Longitude: 8.0, Validity: "V"}, 3.0)
		_, invalid := m.(*measurement.Invalid)
		assert.True(t, invalid)
	})

	t.Run("residual is the ENU offset from the state position", func(t *testing.T) {
		t.Parallel()
		fix := &gps.Fix{Latitude: 47.001, Longitude: 8.0, Altitude: 410.0, Validity: "A"}
		m := measurement.MakeFrom(NewPosition(4.0, origin), fix, 3.0)

		enu := origin.ToENU(*fix)
		st := state.New()
		st.Set(state.Position, []float64{1, 2, 3})
		core := &captureCore{}
		m.Apply(st, core)
		require.Equal(t, 1, core.calls)

		for i := 0; i < 3; i++ {
			assert.Equal(t, 1.0, core.H.At(i, state.Position.Offset()+i))
			assert.InDelta(t, enu[i]-float64(i+1), core.residual.AtVec(i), 1e-9)
		}
		assert.Equal(t, 4.0, core.R.At(1, 1))
	})
}

func TestPose(t *testing.T) {
	t.Parallel()

	t.Run("observes position and attitude together", func(t *testing.T) {
		t.Parallel()
		r := &PoseReading{
			Position: [3]float64{1, 2, 3},
			Attitude: orientation.Pose{Roll: 0.1, Pitch: 0.2, Yaw: 0.3},
		}
		m := measurement.MakeFrom(NewPose(0.04, 0.01), r, 4.0)

		st := state.New()
		core := &captureCore{}
		m.Apply(st, core)
		require.Equal(t, 1, core.calls)
		assert.InDelta(t, 1.0, core.residual.AtVec(0), 1e-12)
		assert.InDelta(t, 0.3, core.residual.AtVec(5), 1e-12)
		assert.Equal(t, 0.04, core.R.At(0, 0))
		assert.Equal(t, 0.01, core.R.At(3, 3))
	})

	t.Run("attitude residuals wrap across the yaw discontinuity", func(t *testing.T) {
		t.Parallel()
		r := &PoseReading{Attitude: orientation.Pose{Yaw: -3.0}}
		m := measurement.MakeFrom(NewPose(0.04, 0.01), r, 4.0)

		st := state.New()
		st.Set(state.Attitude, []float64{0, 0, 3.0})
		core := &captureCore{}
		m.Apply(st, core)
		require.Equal(t, 1, core.calls)
		assert.InDelta(t, 2*math.Pi-6.0, core.residual.AtVec(5), 1e-12)
	})
}

func TestWrapAngle(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.0, wrapAngle(2*math.Pi), 1e-12)
	assert.InDelta(t, math.Pi, wrapAngle(math.Pi), 1e-12)
	assert.InDelta(t, math.Pi, wrapAngle(-math.Pi), 1e-12)
	assert.InDelta(t, -0.5, wrapAngle(2*math.Pi-0.5), 1e-12)
}
