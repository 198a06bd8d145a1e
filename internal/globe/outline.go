package globe

import (
	"math"

	"github.com/twpayne/go-geom"
)

// OutlineOptions controls how layer rings are turned into 3D line strips.
type OutlineOptions struct {
	Radius float64
	// MaxSegment is the longest great-circle step, in the units of Radius,
	// left unsplit. Zero disables subdivision.
	MaxSegment float64
	// Depth caps how many times a single segment is bisected.
	Depth int
}

// OutlineStrips projects every ring of mp onto the sphere, one strip per ring.
func OutlineStrips(mp *geom.MultiPolygon, opts OutlineOptions) [][]Vec3 {
	if mp == nil {
		return nil
	}
	var strips [][]Vec3
	for i := 0; i < mp.NumPolygons(); i++ {
		p := mp.Polygon(i)
		for j := 0; j < p.NumLinearRings(); j++ {
			if strip := ringStrip(p.LinearRing(j).FlatCoords(), opts); len(strip) > 1 {
				strips = append(strips, strip)
			}
		}
	}
	return strips
}

func ringStrip(flat []float64, opts OutlineOptions) []Vec3 {
	n := len(flat) / 2
	if n == 0 {
		return nil
	}
	out := make([]Vec3, 0, n)
	prev := unitVector(flat[1], flat[0])
	out = append(out, scale(prev, opts.Radius))
	for k := 1; k < n; k++ {
		next := unitVector(flat[2*k+1], flat[2*k])
		out = subdivide(out, prev, next, opts, opts.Depth)
		out = append(out, scale(next, opts.Radius))
		prev = next
	}
	return out
}

// subdivide appends the interior points between unit vectors a and b,
// bisecting along the great circle while the arc is longer than MaxSegment.
func subdivide(out []Vec3, a, b Vec3, opts OutlineOptions, depth int) []Vec3 {
	if depth <= 0 || opts.MaxSegment <= 0 {
		return out
	}
	if arcAngle(a, b)*opts.Radius <= opts.MaxSegment {
		return out
	}
	mid := Vec3{X: a.X + b.X, Y: a.Y + b.Y, Z: a.Z + b.Z}
	norm := mid.Norm()
	if norm < 1e-12 {
		// Antipodal endpoints have no unique midpoint.
		return out
	}
	mid = scale(mid, 1/norm)
	out = subdivide(out, a, mid, opts, depth-1)
	out = append(out, scale(mid, opts.Radius))
	return subdivide(out, mid, b, opts, depth-1)
}

func unitVector(latDeg, lonDeg float64) Vec3 {
	return Project(latDeg, lonDeg, 1)
}

func scale(v Vec3, s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

func arcAngle(a, b Vec3) float64 {
	dot := a.X*b.X + a.Y*b.Y + a.Z*b.Z
	return math.Acos(math.Max(-1, math.Min(1, dot)))
}
