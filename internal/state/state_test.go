package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSchema(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 15, Dim())
	assert.Equal(t, 5, NumBlocks())
	assert.Equal(t, 0, Position.Offset())
	assert.Equal(t, 3, Velocity.Offset())
	assert.Equal(t, 12, AccelBias.Offset())
	assert.Equal(t, "attitude", Attitude.Name())
	assert.Equal(t, 3, GyroBias.Size())
}

func TestBlockAccess(t *testing.T) {
	t.Parallel()

	t.Run("set and get round trip", func(t *testing.T) {
		t.Parallel()
		v := New()
		v.Set(Velocity, []float64{1, -2, 3})
		assert.Equal(t, []float64{1, -2, 3}, v.Value(Velocity))
	})

	t.Run("Value returns a copy", func(t *testing.T) {
		t.Parallel()
		v := New()
		v.Set(Position, []float64{1, 2, 3})
		got := v.Value(Position)
		got[0] = 99
		assert.Equal(t, []float64{1, 2, 3}, v.Value(Position))
	})

	t.Run("out-of-range index is fatal", func(t *testing.T) {
		t.Parallel()
		v := New()
		require.Panics(t, func() { v.Value(BlockIndex(99)) })
		require.Panics(t, func() { v.Set(BlockIndex(-1), []float64{0, 0, 0}) })
	})

	t.Run("wrong value size is fatal", func(t *testing.T) {
		t.Parallel()
		v := New()
		require.Panics(t, func() { v.Set(Position, []float64{1, 2}) })
	})
}

func TestInitFlags(t *testing.T) {
	t.Parallel()

	v := New()
	assert.False(t, v.HasInit(Position))

	v.SetInit(Position, []float64{4, 5, 6})
	assert.True(t, v.HasInit(Position))
	assert.Equal(t, []float64{4, 5, 6}, v.Value(Position))

	v.ResetInit(Position)
	assert.False(t, v.HasInit(Position))
	// Value survives the reset.
	assert.Equal(t, []float64{4, 5, 6}, v.Value(Position))
}

func TestFlatAndDelta(t *testing.T) {
	t.Parallel()

	v := New()
	v.Set(Position, []float64{1, 2, 3})
	v.Set(AccelBias, []float64{0.1, 0.2, 0.3})

	flat := v.Flat()
	assert.Equal(t, 3.0, flat.AtVec(Position.Offset()+2))
	assert.Equal(t, 0.2, flat.AtVec(AccelBias.Offset()+1))

	delta := mat.NewVecDense(Dim(), nil)
	delta.SetVec(Position.Offset(), 0.5)
	delta.SetVec(AccelBias.Offset()+2, -0.3)
	v.AddDelta(delta)

	assert.InDelta(t, 1.5, v.Value(Position)[0], 1e-12)
	assert.InDelta(t, 0.0, v.Value(AccelBias)[2], 1e-12)

	require.Panics(t, func() { v.AddDelta(mat.NewVecDense(3, nil)) })
}

func TestClone(t *testing.T) {
	t.Parallel()

	v := New()
	v.Time = 7.5
	v.Gyro = [3]float64{0.1, 0.2, 0.3}
	v.SetInit(Velocity, []float64{1, 1, 1})
	v.Cov().SetSym(0, 0, 2.5)

	c := v.Clone()
	assert.Equal(t, 7.5, c.Time)
	assert.Equal(t, v.Gyro, c.Gyro)
	assert.True(t, c.HasInit(Velocity))
	assert.Equal(t, 2.5, c.Cov().At(0, 0))

	// Mutating the clone must not touch the original.
	c.Set(Velocity, []float64{9, 9, 9})
	c.Cov().SetSym(0, 0, 99)
	assert.Equal(t, []float64{1, 1, 1}, v.Value(Velocity))
	assert.Equal(t, 2.5, v.Cov().At(0, 0))
}
