package measurement

import (
	"fmt"

	"github.com/relabs-tech/fusion_computer/internal/state"
)

// Invalid is the sentinel for "this measurement could not be
// constructed". It flows through ordering and queuing like any other
// measurement so call sites never special-case a missing result, but it
// must be filtered out before dispatch: applying one is a pipeline
// defect, not a recoverable condition.
type Invalid struct {
	Base
}

func newInvalid(ts float64) *Invalid {
	m := &Invalid{}
	m.stamp(ts)
	return m
}

// NewInvalid returns an invalid measurement stamped with the capture
// time of the reading whose construction failed.
func NewInvalid(ts float64) *Invalid { return newInvalid(ts) }

// Apply always panics: reaching it means a rejected reading leaked past
// the scheduler's filtering.
func (m *Invalid) Apply(st *state.Vector, core Core) {
	panic(fmt.Sprintf(
		"measurement: Apply called on invalid measurement (t=%.6f seq=%d); construction failures must never reach dispatch",
		m.Time(), m.Seq()))
}
