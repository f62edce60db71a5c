package measurement

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/relabs-tech/fusion_computer/internal/state"
)

// Init stages explicit values for selected state blocks before the
// filter starts running. Several sensors may each contribute their own
// Init measurement for disjoint (or overlapping) blocks; the filter
// assembles its initial state from the union of flagged blocks.
//
// Applying an Init after steady-state filtering has begun is a fatal
// protocol violation.
type Init struct {
	Base
	staged      *state.Vector
	hasReadings bool
}

// NewInit creates an init measurement stamped from the supplied clock.
// withReadings declares that the measurement also carries raw inertial
// readings (gyro, accel) to seed propagation.
func NewInit(withReadings bool, now func() time.Time) *Init {
	m := &Init{staged: state.New(), hasReadings: withReadings}
	m.stamp(Seconds(now()))
	return m
}

// SetStateValue stages a value for the block at index i and marks the
// block as carrying an initial value. Value and flag change together.
func (m *Init) SetStateValue(i state.BlockIndex, value []float64) {
	m.staged.SetInit(i, value)
}

// ResetStateValue clears the block's staged flag. The stored value is
// kept but becomes don't-care.
func (m *Init) ResetStateValue(i state.BlockIndex) {
	m.staged.ResetInit(i)
}

// StateValue returns the currently staged value for the block,
// regardless of flag state.
func (m *Init) StateValue(i state.BlockIndex) []float64 {
	return m.staged.Value(i)
}

// HasStateValue reports whether the block's staged flag is set.
func (m *Init) HasStateValue(i state.BlockIndex) bool {
	return m.staged.HasInit(i)
}

// Cov returns the staged initial covariance for in-place population.
func (m *Init) Cov() *mat.SymDense { return m.staged.Cov() }

// SetReadings stores the raw inertial readings embedded in this
// measurement: angular rate (rad/s) and linear acceleration (m/s²).
func (m *Init) SetReadings(gyro, accel [3]float64) {
	m.staged.Gyro = gyro
	m.staged.Accel = accel
}

// Gyro returns the embedded angular-rate reading.
func (m *Init) Gyro() [3]float64 { return m.staged.Gyro }

// Accel returns the embedded acceleration reading.
func (m *Init) Accel() [3]float64 { return m.staged.Accel }

// HasReadings reports whether inertial readings are embedded.
func (m *Init) HasReadings() bool { return m.hasReadings }

// Apply copies every staged block whose flag is set into the filter's
// initial snapshot, leaves unflagged blocks untouched, seeds the
// inertial propagation inputs when readings are embedded, and hands the
// snapshot to the core. The core rejects the call once steady state has
// begun.
func (m *Init) Apply(st *state.Vector, core Core) {
	for i := 0; i < state.NumBlocks(); i++ {
		idx := state.BlockIndex(i)
		if m.staged.HasInit(idx) {
			st.SetInit(idx, m.staged.Value(idx))
		}
	}
	if covSet(m.staged.Cov()) {
		st.Cov().CopySym(m.staged.Cov())
	}
	if m.hasReadings {
		st.Gyro = m.staged.Gyro
		st.Accel = m.staged.Accel
	}
	if st.Time < m.Time() {
		st.Time = m.Time()
	}
	core.InitializeState(st, m.hasReadings)
}

// covSet reports whether any entry of the staged covariance was
// populated; an untouched staged covariance must not clobber the
// filter's defaults.
func covSet(p *mat.SymDense) bool {
	n := p.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if p.At(i, j) != 0 {
				return true
			}
		}
	}
	return false
}
