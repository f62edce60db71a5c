package core

import (
	"gonum.org/v1/gonum/mat"

	"github.com/relabs-tech/fusion_computer/internal/measurement"
	"github.com/relabs-tech/fusion_computer/internal/orientation"
	"github.com/relabs-tech/fusion_computer/internal/state"
)

var _ measurement.Core = (*Filter)(nil)

// propagate integrates from's state forward to capture time ts using the
// inertial readings stored on from, returning a new snapshot. Strapdown
// mechanization with Euler attitude and a linearized covariance pass;
// accurate enough for the sample intervals the buffer retains.
func (f *Filter) propagate(from *state.Vector, ts float64) *state.Vector {
	dt := ts - from.Time
	next := from.Clone()
	next.Time = ts
	if dt <= 0 {
		return next
	}

	bw := from.Value(state.GyroBias)
	ba := from.Value(state.AccelBias)
	att := from.Value(state.Attitude)
	vel := from.Value(state.Velocity)
	pos := from.Value(state.Position)

	// Attitude: bias-corrected rates integrated directly.
	for i := 0; i < 3; i++ {
		att[i] += (from.Gyro[i] - bw[i]) * dt
	}
	rot := orientation.RotationMatrix(att)

	// Velocity: bias-corrected specific force rotated to the nav frame,
	// gravity removed (ENU, z up).
	aBody := []float64{
		from.Accel[0] - ba[0],
		from.Accel[1] - ba[1],
		from.Accel[2] - ba[2],
	}
	aNav := make([]float64, 3)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			aNav[i] += rot.At(i, j) * aBody[j]
		}
	}
	aNav[2] -= Gravity

	// Semi-implicit: position uses the updated velocity.
	for i := 0; i < 3; i++ {
		vel[i] += aNav[i] * dt
		pos[i] += vel[i] * dt
	}

	next.Set(state.Attitude, att)
	next.Set(state.Velocity, vel)
	next.Set(state.Position, pos)

	f.propagateCov(next, rot, dt)
	return next
}

// propagateCov applies P ← F P Fᵀ + Q·dt in place on st's covariance.
// F is the discrete transition linearized about the propagated state:
// position couples to velocity, velocity to accel bias (through the
// body-to-nav rotation), attitude to gyro bias.
func (f *Filter) propagateCov(st *state.Vector, rot *mat.Dense, dt float64) {
	n := state.Dim()
	F := identity(n)

	pOff := state.Position.Offset()
	vOff := state.Velocity.Offset()
	aOff := state.Attitude.Offset()
	bwOff := state.GyroBias.Offset()
	baOff := state.AccelBias.Offset()

	for i := 0; i < 3; i++ {
		F.Set(pOff+i, vOff+i, dt)
		F.Set(aOff+i, bwOff+i, -dt)
		for j := 0; j < 3; j++ {
			F.Set(vOff+i, baOff+j, -rot.At(i, j)*dt)
		}
	}

	var tmp, fpf mat.Dense
	tmp.Mul(F, st.Cov())
	fpf.Mul(&tmp, F.T())

	for b := 0; b < state.NumBlocks(); b++ {
		idx := state.BlockIndex(b)
		q := f.cfg.ProcessNoise[b] * dt
		for i := 0; i < idx.Size(); i++ {
			k := idx.Offset() + i
			fpf.Set(k, k, fpf.At(k, k)+q)
		}
	}

	symmetrize(st.Cov(), &fpf)
}
