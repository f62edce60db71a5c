package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAltitude(t *testing.T) {
	t.Parallel()

	t.Run("sea-level pressure is zero altitude", func(t *testing.T) {
		t.Parallel()
		s := Sample{Pressure: 101325.0}
		assert.InDelta(t, 0.0, s.Altitude(), 1e-9)
	})

	t.Run("ISA pressure at 1000 m", func(t *testing.T) {
		t.Parallel()
		s := Sample{Pressure: 89874.6}
		assert.InDelta(t, 1000.0, s.Altitude(), 1.0)
	})

	t.Run("lower pressure means higher altitude", func(t *testing.T) {
		t.Parallel()
		low := Sample{Pressure: 95000}
		high := Sample{Pressure: 90000}
		assert.Greater(t, high.Altitude(), low.Altitude())
	})
}
