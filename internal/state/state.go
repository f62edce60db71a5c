// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package state

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// BlockIndex identifies one named block of the filter state.
type BlockIndex int

const (
	Position BlockIndex = iota
	Velocity
	Attitude
	GyroBias
	AccelBias

	numBlocks
)

// blockSpec describes one block of the state layout: its name (for
// diagnostics) and its dimension. Offsets into the flat state/covariance
// are derived from the sizes, in declaration order.
type blockSpec struct {
	name string
	size int
}

var schema = [numBlocks]blockSpec{
	Position:  {"position", 3},
	Velocity:  {"velocity", 3},
	Attitude:  {"attitude", 3},
	GyroBias:  {"gyro_bias", 3},
	AccelBias: {"accel_bias", 3},
}

var offsets [numBlocks]int

func init() {
	off := 0
	for i := range schema {
		offsets[i] = off
		off += schema[i].size
	}
}

// Dim returns the total dimension of the flat state vector, which is
// also the order of the covariance matrix.
func Dim() int {
	last := numBlocks - 1
	return offsets[last] + schema[last].size
}

// NumBlocks returns the number of blocks in the state layout.
func NumBlocks() int { return int(numBlocks) }

func (i BlockIndex) check() {
	if i < 0 || i >= numBlocks {
		panic(fmt.Sprintf("state: block index %d out of range [0,%d)", i, numBlocks))
	}
}

// Name returns the block's name in the schema.
func (i BlockIndex) Name() string {
	i.check()
	return schema[i].name
}

// Size returns the block's dimension.
func (i BlockIndex) Size() int {
	i.check()
	return schema[i].size
}

// Offset returns the block's offset into the flat state vector.
func (i BlockIndex) Offset() int {
	i.check()
	return offsets[i]
}

type block struct {
	value   []float64
	hasInit bool
}

// Vector is one snapshot of the filter state: the block values, the
// covariance of the flat state, the capture time, and the inertial
// readings valid at that time (used to propagate to the next snapshot).
//
// The filter core owns every Vector; a measurement only sees one for the
// duration of its Apply call.
type Vector struct {
	Time float64 // capture time, seconds

	// Inertial readings at Time: angular rate (rad/s) and linear
	// acceleration (m/s²) in the body frame.
	Gyro  [3]float64
	Accel [3]float64

	blocks [numBlocks]block
	cov    *mat.SymDense
}

// New returns a zero-valued snapshot with a zero covariance.
func New() *Vector {
	v := &Vector{cov: mat.NewSymDense(Dim(), nil)}
	for i := range v.blocks {
		v.blocks[i].value = make([]float64, schema[i].size)
	}
	return v
}

// Value returns a copy of the block's current value.
func (v *Vector) Value(i BlockIndex) []float64 {
	i.check()
	out := make([]float64, len(v.blocks[i].value))
	copy(out, v.blocks[i].value)
	return out
}

// Set replaces the block's value. The length must match the schema.
func (v *Vector) Set(i BlockIndex, value []float64) {
	i.check()
	if len(value) != schema[i].size {
		panic(fmt.Sprintf("state: %s takes %d values, got %d",
			schema[i].name, schema[i].size, len(value)))
	}
	copy(v.blocks[i].value, value)
}

// SetInit sets the block's value and marks it as externally initialized.
// The value and the flag change together.
func (v *Vector) SetInit(i BlockIndex, value []float64) {
	v.Set(i, value)
	v.blocks[i].hasInit = true
}

// ResetInit clears the block's initialized flag. The stored value is
// kept but becomes don't-care.
func (v *Vector) ResetInit(i BlockIndex) {
	i.check()
	v.blocks[i].hasInit = false
}

// HasInit reports whether the block carries an externally supplied
// initial value.
func (v *Vector) HasInit(i BlockIndex) bool {
	i.check()
	return v.blocks[i].hasInit
}

// Cov returns the covariance of the flat state. Callers granted a
// Vector may mutate it in place for the duration of that grant.
func (v *Vector) Cov() *mat.SymDense { return v.cov }

// SetCov replaces the covariance. The order must match Dim.
func (v *Vector) SetCov(p *mat.SymDense) {
	if n := p.SymmetricDim(); n != Dim() {
		panic(fmt.Sprintf("state: covariance order %d, want %d", n, Dim()))
	}
	v.cov = p
}

// Flat returns the state as a single dense vector in schema order.
func (v *Vector) Flat() *mat.VecDense {
	out := mat.NewVecDense(Dim(), nil)
	for i := range v.blocks {
		for j, x := range v.blocks[i].value {
			out.SetVec(offsets[i]+j, x)
		}
	}
	return out
}

// AddDelta adds a flat correction vector to the block values in place.
func (v *Vector) AddDelta(delta mat.Vector) {
	if delta.Len() != Dim() {
		panic(fmt.Sprintf("state: correction length %d, want %d", delta.Len(), Dim()))
	}
	for i := range v.blocks {
		for j := range v.blocks[i].value {
			v.blocks[i].value[j] += delta.AtVec(offsets[i] + j)
		}
	}
}

// Clone returns a deep copy of the snapshot.
func (v *Vector) Clone() *Vector {
	out := New()
	out.Time = v.Time
	out.Gyro = v.Gyro
	out.Accel = v.Accel
	for i := range v.blocks {
		copy(out.blocks[i].value, v.blocks[i].value)
		out.blocks[i].hasInit = v.blocks[i].hasInit
	}
	out.cov.CopySym(v.cov)
	return out
}
