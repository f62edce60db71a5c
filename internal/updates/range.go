// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package updates holds the concrete sensor measurements: each type
// supplies its own observation model (Jacobian, residual, noise) and
// delegates the correction arithmetic to the filter core.
package updates

import (
	"log"

	"gonum.org/v1/gonum/mat"

	"github.com/relabs-tech/fusion_computer/internal/measurement"
	"github.com/relabs-tech/fusion_computer/internal/state"
)

// RangeReading is a raw vertical range-to-ground report.
type RangeReading struct {
	Time     float64 `json:"time"`       // capture time, seconds
	Distance float64 `json:"distance_m"` // metres, positive down-range
}

// Range is the 1-D range measurement observing altitude directly.
// Non-positive distances (sensor out of range, dropout) degrade to a
// zero-information update instead of failing the pipeline.
type Range struct {
	measurement.Sensor[RangeReading]
	variance   float64
	degenerate bool
}

// NewRange returns an empty range measurement with noise variance (m²);
// build it with measurement.MakeFrom.
func NewRange(variance float64) *Range {
	return &Range{variance: variance}
}

// FromReading is the sensor-specific construction hook.
func (m *Range) FromReading(r *RangeReading) error {
	m.degenerate = r.Distance <= 0
	m.Stage(r, mat.NewSymDense(1, []float64{m.variance}))
	return nil
}

// Apply corrects the altitude component of position against the ranged
// distance at the measurement's capture time.
func (m *Range) Apply(st *state.Vector, core measurement.Core) {
	H := mat.NewDense(1, state.Dim(), nil)
	residual := mat.NewVecDense(1, nil)
	if !m.degenerate {
		H.Set(0, state.Position.Offset()+2, 1)
		residual.SetVec(0, m.Reading().Distance-st.Value(state.Position)[2])
	}
	if err := core.ApplyCorrection(st, H, residual, m.Noise()); err != nil {
		log.Printf("updates: range correction at t=%.6f skipped: %v", m.Time(), err)
	}
}
