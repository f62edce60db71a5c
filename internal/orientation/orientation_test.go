package orientation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRotationMatrix(t *testing.T) {
	t.Parallel()

	t.Run("zero attitude is identity", func(t *testing.T) {
		t.Parallel()
		r := RotationMatrix([]float64{0, 0, 0})
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				want := 0.0
				if i == j {
					want = 1.0
				}
				assert.InDelta(t, want, r.At(i, j), 1e-12)
			}
		}
	})

	t.Run("quarter-turn yaw maps body x to nav y", func(t *testing.T) {
		t.Parallel()
		r := RotationMatrix([]float64{0, 0, math.Pi / 2})
		assert.InDelta(t, 0, r.At(0, 0), 1e-12)
		assert.InDelta(t, 1, r.At(1, 0), 1e-12)
		assert.InDelta(t, 0, r.At(2, 0), 1e-12)
	})

	t.Run("rotation is orthonormal", func(t *testing.T) {
		t.Parallel()
		r := RotationMatrix([]float64{0.3, -0.5, 1.2})
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				dot := 0.0
				for k := 0; k < 3; k++ {
					dot += r.At(k, i) * r.At(k, j)
				}
				want := 0.0
				if i == j {
					want = 1.0
				}
				assert.InDelta(t, want, dot, 1e-12)
			}
		}
	})
}

func TestComputePoseFromAccel(t *testing.T) {
	t.Parallel()

	t.Run("level body reads zero tilt", func(t *testing.T) {
		t.Parallel()
		p := ComputePoseFromAccel(0, 0, 9.81)
		assert.InDelta(t, 0, p.Roll, 1e-12)
		assert.InDelta(t, 0, p.Pitch, 1e-12)
		assert.Equal(t, 0.0, p.Yaw)
	})

	t.Run("gravity along body y is a quarter-turn roll", func(t *testing.T) {
		t.Parallel()
		p := ComputePoseFromAccel(0, 9.81, 0)
		assert.InDelta(t, math.Pi/2, p.Roll, 1e-12)
	})

	t.Run("nose down pitches positive", func(t *testing.T) {
		t.Parallel()
		p := ComputePoseFromAccel(-9.81, 0, 0)
		assert.InDelta(t, math.Pi/2, p.Pitch, 1e-12)
	})
}
