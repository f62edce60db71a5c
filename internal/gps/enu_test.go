package gps

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToENU(t *testing.T) {
	t.Parallel()

	t.Run("origin projects to zero", func(t *testing.T) {
		t.Parallel()
		o := Origin{Latitude: 47.0, Longitude: 8.0, Altitude: 400.0}
		enu := o.ToENU(Fix{Latitude: 47.0, Longitude: 8.0, Altitude: 400.0})
		assert.Equal(t, [3]float64{0, 0, 0}, enu)
	})

	t.Run("one degree of latitude is about 111 km north", func(t *testing.T) {
		t.Parallel()
		o := Origin{Latitude: 0, Longitude: 0}
		enu := o.ToENU(Fix{Latitude: 1, Longitude: 0})
		assert.InDelta(t, math.Pi/180*earthRadius, enu[1], 1e-6)
		assert.InDelta(t, 0, enu[0], 1e-6)
	})

	t.Run("east shrinks with the cosine of latitude", func(t *testing.T) {
		t.Parallel()
		o := Origin{Latitude: 60, Longitude: 10}
		enu := o.ToENU(Fix{Latitude: 60, Longitude: 11})
		assert.InDelta(t, math.Pi/180*earthRadius*math.Cos(60*math.Pi/180), enu[0], 1e-6)
	})

	t.Run("altitude is a plain difference", func(t *testing.T) {
		t.Parallel()
		o := Origin{Altitude: 400}
		enu := o.ToENU(Fix{Altitude: 412.5})
		assert.Equal(t, 12.5, enu[2])
	})
}

func TestFixValidity(t *testing.T) {
	t.Parallel()

	assert.True(t, Fix{Validity: "A"}.Valid())
	assert.False(t, Fix{Validity: "V"}.Valid())
	assert.False(t, Fix{}.Valid())
}
