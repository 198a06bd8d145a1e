// Package globe places geographic coordinates on a sphere.
//
// Frame: right-handed, sphere centered at the origin, +Z through the north
// pole, +X through latitude 0 longitude 0, +Y through latitude 0 longitude 90E.
package globe

import "math"

// EarthRadius is the mean Earth radius in meters.
const EarthRadius = 6_371_000.0

// DefaultAltitudeFactor lifts plotted points just above the surface mesh.
const DefaultAltitudeFactor = 1.02

// Vec3 is a Cartesian position.
type Vec3 struct {
	X, Y, Z float64
}

// Float32 narrows the position for the visualization wire format.
func (v Vec3) Float32() [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}

// Norm returns the distance from the origin.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Project converts latitude and longitude in degrees to a point at the given
// radius. Out-of-range angles are not rejected; they wrap trigonometrically.
func Project(latDeg, lonDeg, radius float64) Vec3 {
	lat := latDeg * (math.Pi / 180)
	lon := lonDeg * (math.Pi / 180)
	cosLat := math.Cos(lat)
	return Vec3{
		X: radius * cosLat * math.Cos(lon),
		Y: radius * cosLat * math.Sin(lon),
		Z: radius * math.Sin(lat),
	}
}
