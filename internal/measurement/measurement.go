// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package measurement defines the uniform representation of one sensor
// observation: captured at one time, applied exactly once to one filter
// state. Sensor packages provide the observation model; the filter core
// provides the correction arithmetic; this package owns everything in
// between (construction, capture-time bookkeeping, ordering, staged
// initialization).
package measurement

import (
	"log"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/relabs-tech/fusion_computer/internal/state"
)

// Core is the filter-core service a measurement needs during Apply. The
// concrete implementation lives in internal/core; measurements never
// touch filter internals beyond these calls.
type Core interface {
	// ApplyCorrection performs the generic delayed-state correction on
	// st: Jacobian H, residual and noise R are all evaluated at the
	// measurement's own capture time, which may precede the filter's
	// newest propagated snapshot.
	ApplyCorrection(st *state.Vector, H mat.Matrix, residual mat.Vector, R mat.Matrix) error

	// InitializeState seeds the filter's initial snapshot from staged
	// init values. Fatal once steady-state filtering has begun.
	InitializeState(st *state.Vector, withReadings bool)

	// Running reports whether steady-state filtering has begun.
	Running() bool
}

// Measurement is one observation flowing through the pipeline. The
// capture time is set exactly once at construction; Seq is the arrival
// sequence number used to break capture-time ties deterministically.
type Measurement interface {
	Time() float64
	Seq() uint64

	// Apply mutates st's value and covariance in place using core's
	// correction services. It is the only way a measurement affects the
	// filter. Expected sensor-model conditions must be absorbed by the
	// concrete model; a panic out of Apply means a broken pipeline
	// invariant, not a sensor fault.
	Apply(st *state.Vector, core Core)
}

// Base carries the bookkeeping every measurement shares. Concrete types
// embed it; only this package can stamp it, so the capture time stays
// immutable after construction.
type Base struct {
	time float64
	seq  uint64
}

// Time returns the capture time in seconds.
func (b *Base) Time() float64 { return b.time }

// Seq returns the arrival sequence number.
func (b *Base) Seq() uint64 { return b.seq }

var arrivalSeq atomic.Uint64

func (b *Base) stamp(ts float64) {
	b.time = ts
	b.seq = arrivalSeq.Add(1)
}

// Seconds converts a wall-clock time to the capture-time scale.
func Seconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// Maker is a concrete measurement type that can be built from a raw
// reading of type T. FromReading is the sensor-specific construction
// hook run by MakeFrom after the capture time has been stamped.
type Maker[T any] interface {
	Measurement
	stamp(ts float64)
	FromReading(reading *T) error
}

// MakeFrom is the single entry point a sensor driver uses to turn a raw
// reading into a measurement. It stamps the immutable capture time, then
// delegates to the concrete type's construction hook. A hook error does
// not surface as control flow: the caller gets an Invalid value that
// travels the same pipeline as any other measurement.
func MakeFrom[T any](m Maker[T], reading *T, ts float64) Measurement {
	m.stamp(ts)
	if err := m.FromReading(reading); err != nil {
		log.Printf("measurement: construction from reading at t=%.6f failed: %v", ts, err)
		return newInvalid(ts)
	}
	return m
}

// Sensor is the shared part of every sensor-derived measurement: the raw
// reading (shared with the producing driver, read-only here) and the
// fixed noise block R describing sensor uncertainty. The concrete type
// fills both in its FromReading hook; neither changes afterwards.
type Sensor[T any] struct {
	Base
	reading *T
	noise   *mat.SymDense
}

// Stage records the reading and the noise block during construction.
func (s *Sensor[T]) Stage(reading *T, noise *mat.SymDense) {
	s.reading = reading
	s.noise = noise
}

// Reading returns the raw reading this measurement was built from.
func (s *Sensor[T]) Reading() *T { return s.reading }

// Noise returns the fixed N×N measurement-noise block R.
func (s *Sensor[T]) Noise() *mat.SymDense { return s.noise }
