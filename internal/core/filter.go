// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package core owns the time-indexed history of filter states and the
// generic correction arithmetic. Measurements drive it exclusively
// through the measurement.Core interface.
package core

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/relabs-tech/fusion_computer/internal/imu"
	"github.com/relabs-tech/fusion_computer/internal/state"
)

// Gravity is the nominal gravitational acceleration, m/s², ENU z-up.
const Gravity = 9.80665

// Config tunes the filter's propagation and buffering.
type Config struct {
	// BufferSize caps the number of retained snapshots; older ones are
	// pruned. Bounds how far back a delayed measurement can reach.
	BufferSize int

	// ProcessNoise is the continuous-time process noise density per
	// state block (variance/s), applied to the block's diagonal.
	ProcessNoise [5]float64

	// InitVariance seeds the diagonal of the initial covariance when no
	// init measurement supplies one.
	InitVariance float64
}

// DefaultConfig returns propagation defaults usable without tuning.
func DefaultConfig() Config {
	return Config{
		BufferSize:   256,
		ProcessNoise: [5]float64{0.01, 0.1, 0.005, 1e-6, 1e-5},
		InitVariance: 1.0,
	}
}

// Filter is the EKF core: a ring of timestamped state snapshots plus the
// correction and propagation services measurements call into.
//
// All snapshot access is serialized internally; Apply dispatch itself is
// serialized by the scheduler.
type Filter struct {
	cfg Config

	mu      sync.Mutex
	buf     []*state.Vector // ascending by Time
	running bool
	seeded  bool
}

// NewFilter creates an idle filter. It holds no state until an init
// measurement (or the first IMU sample) seeds one.
func NewFilter(cfg Config) *Filter {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	return &Filter{cfg: cfg}
}

// Running reports whether steady-state filtering has begun, which
// happens with the first applied correction.
func (f *Filter) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// InitialState returns the snapshot init measurements stage into,
// creating it on first use. Fatal once steady state has begun.
func (f *Filter) InitialState() *state.Vector {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		panic("core: initial state requested after steady-state filtering began")
	}
	if len(f.buf) == 0 {
		f.buf = append(f.buf, state.New())
	}
	return f.buf[0]
}

// InitializeState adopts st as the filter's initial snapshot. Called by
// measurement.Init at the end of its Apply; fatal after steady state.
func (f *Filter) InitializeState(st *state.Vector, withReadings bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		panic("core: init measurement applied after steady-state filtering began")
	}
	if covZero(st.Cov()) {
		n := state.Dim()
		for i := 0; i < n; i++ {
			st.Cov().SetSym(i, i, f.cfg.InitVariance)
		}
	}
	f.buf = f.buf[:0]
	f.buf = append(f.buf, st)
	f.seeded = true

	set := 0
	for i := 0; i < state.NumBlocks(); i++ {
		if st.HasInit(state.BlockIndex(i)) {
			set++
		}
	}
	log.Printf("core: initial state staged at t=%.3f (%d/%d blocks set, readings=%v)",
		st.Time, set, state.NumBlocks(), withReadings)
}

// HandleIMU appends a propagated snapshot for one inertial sample.
// Samples older than the newest snapshot only refresh stored readings;
// propagation is strictly forward.
func (f *Filter) HandleIMU(s imu.Sample) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.buf) == 0 {
		st := state.New()
		st.Time = s.Time
		st.Gyro = s.Gyro
		st.Accel = s.Accel
		n := state.Dim()
		for i := 0; i < n; i++ {
			st.Cov().SetSym(i, i, f.cfg.InitVariance)
		}
		f.buf = append(f.buf, st)
		f.seeded = true
		return
	}
	newest := f.buf[len(f.buf)-1]
	if s.Time <= newest.Time {
		log.Printf("core: IMU sample at t=%.6f not newer than t=%.6f, dropped", s.Time, newest.Time)
		return
	}
	next := f.propagate(newest, s.Time)
	next.Gyro = s.Gyro
	next.Accel = s.Accel
	f.buf = append(f.buf, next)
	f.prune()
}

// ClosestState returns the snapshot matching capture time ts, creating
// one by propagation from the newest older snapshot when no exact match
// exists. Returns nil when the filter holds no state yet.
func (f *Filter) ClosestState(ts float64) *state.Vector {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.buf) == 0 {
		return nil
	}
	// First snapshot at or after ts.
	i := sort.Search(len(f.buf), func(k int) bool { return f.buf[k].Time >= ts })
	if i < len(f.buf) && f.buf[i].Time == ts {
		return f.buf[i]
	}
	if i == 0 {
		// Older than everything retained; the oldest snapshot is the
		// best history available.
		log.Printf("core: t=%.6f precedes retained history (oldest t=%.6f)", ts, f.buf[0].Time)
		return f.buf[0]
	}
	st := f.propagate(f.buf[i-1], ts)
	f.buf = append(f.buf, nil)
	copy(f.buf[i+1:], f.buf[i:])
	f.buf[i] = st
	f.prune()
	return st
}

// ApplyCorrection performs the delayed-state Kalman correction on st in
// place and repropagates every retained snapshot newer than it. H,
// residual and R are evaluated at st's capture time.
func (f *Filter) ApplyCorrection(st *state.Vector, H mat.Matrix, residual mat.Vector, R mat.Matrix) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := state.Dim()
	hr, hc := H.Dims()
	if hc != n || hr != residual.Len() {
		panic(fmt.Sprintf("core: Jacobian %dx%d does not fit state dim %d / residual dim %d",
			hr, hc, n, residual.Len()))
	}

	P := st.Cov()

	var PHt mat.Dense
	PHt.Mul(P, H.T())

	var S mat.Dense
	S.Mul(H, &PHt)
	S.Add(&S, R)

	var Sinv mat.Dense
	if err := Sinv.Inverse(&S); err != nil {
		return fmt.Errorf("core: singular innovation covariance at t=%.6f: %w", st.Time, err)
	}

	var K mat.Dense
	K.Mul(&PHt, &Sinv)

	var dx mat.VecDense
	dx.MulVec(&K, residual)
	st.AddDelta(&dx)

	// Joseph form keeps the covariance symmetric positive semi-definite
	// under roundoff.
	var KH mat.Dense
	KH.Mul(&K, H)
	ikh := identity(n)
	ikh.Sub(ikh, &KH)

	var tmp, newP mat.Dense
	tmp.Mul(ikh, P)
	newP.Mul(&tmp, ikh.T())

	var KR, KRKt mat.Dense
	KR.Mul(&K, R)
	KRKt.Mul(&KR, K.T())
	newP.Add(&newP, &KRKt)

	symmetrize(P, &newP)

	f.repropagateAfter(st)
	f.running = true
	return nil
}

// repropagateAfter replays propagation from st through every retained
// newer snapshot so a delayed correction reaches the present.
func (f *Filter) repropagateAfter(st *state.Vector) {
	i := sort.Search(len(f.buf), func(k int) bool { return f.buf[k].Time >= st.Time })
	if i >= len(f.buf) || f.buf[i] != st {
		// A correction against an unretained snapshot still updated the
		// state it was handed; nothing newer to replay.
		return
	}
	for k := i + 1; k < len(f.buf); k++ {
		gyro, accel := f.buf[k].Gyro, f.buf[k].Accel
		next := f.propagate(f.buf[k-1], f.buf[k].Time)
		next.Gyro = gyro
		next.Accel = accel
		f.buf[k] = next
	}
}

// NewestTime returns the capture time of the most recent snapshot and
// whether one exists.
func (f *Filter) NewestTime() (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.buf) == 0 {
		return 0, false
	}
	return f.buf[len(f.buf)-1].Time, true
}

// Newest returns a copy of the most recent snapshot, or nil when the
// filter holds no state.
func (f *Filter) Newest() *state.Vector {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.buf) == 0 {
		return nil
	}
	return f.buf[len(f.buf)-1].Clone()
}

func (f *Filter) prune() {
	if over := len(f.buf) - f.cfg.BufferSize; over > 0 {
		f.buf = append(f.buf[:0:0], f.buf[over:]...)
	}
}

func covZero(p *mat.SymDense) bool {
	n := p.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if p.At(i, j) != 0 {
				return false
			}
		}
	}
	return true
}

func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// symmetrize writes (m+mᵀ)/2 into dst.
func symmetrize(dst *mat.SymDense, m *mat.Dense) {
	n := dst.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			dst.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}
}
