package gps

import "math"

const earthRadius = 6378137.0 // WGS84 semi-major axis, metres

// Origin anchors the local east-north-up tangent plane the estimator
// works in. The first valid fix normally becomes the origin.
type Origin struct {
	Latitude  float64
	Longitude float64
	Altitude  float64
}

// ToENU projects a fix onto the local tangent plane around the origin
// using an equirectangular approximation, which is plenty for the
// few-kilometre workspaces this estimator serves.
func (o Origin) ToENU(f Fix) [3]float64 {
	latRad := o.Latitude * math.Pi / 180
	return [3]float64{
		(f.Longitude - o.Longitude) * math.Pi / 180 * earthRadius * math.Cos(latRad),
		(f.Latitude - o.Latitude) * math.Pi / 180 * earthRadius,
		f.Altitude - o.Altitude,
	}
}
