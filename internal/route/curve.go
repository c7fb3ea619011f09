// Package route builds elevated cubic Bézier arcs between projected points.
package route

import (
	"github.com/golang/geo/r3"
)

const (
	// DefaultElevation lifts the arc midpoint above the globe surface.
	DefaultElevation = 0.5

	// controlBlend is the share of the elevated midpoint mixed into each
	// interior control point. The same weight is used for both ends so that
	// reversing a route yields the mirror-image curve.
	controlBlend = 0.2
)

// Curve is a cubic Bézier: start, two interior control points, end.
type Curve struct {
	P0, C1, C2, P3 r3.Vector
}

// Build constructs the transit arc from origin to destination.
//
// The midpoint of the chord is pushed outward along its own direction by
// elevation, so the arc bulges away from the sphere instead of cutting
// through it. Identical endpoints produce a zero-length curve.
func Build(origin, destination r3.Vector, elevation float64) Curve {
	if origin == destination {
		return Curve{P0: origin, C1: origin, C2: origin, P3: origin}
	}

	mid := origin.Add(destination).Mul(0.5)

	outward := mid.Normalize()
	if outward == (r3.Vector{}) {
		// Antipodal endpoints: the chord passes through the centre.
		outward = r3.Vector{Y: 1}
	}
	elevated := mid.Add(outward.Mul(elevation))

	return Curve{
		P0: origin,
		C1: origin.Mul(1 - controlBlend).Add(elevated.Mul(controlBlend)),
		C2: destination.Mul(1 - controlBlend).Add(elevated.Mul(controlBlend)),
		P3: destination,
	}
}

// At evaluates the curve at t, clamped to [0, 1].
func (c Curve) At(t float64) r3.Vector {
	if t <= 0 {
		return c.P0
	}
	if t >= 1 {
		return c.P3
	}

	u := 1 - t
	b0 := u * u * u
	b1 := 3 * u * u * t
	b2 := 3 * u * t * t
	b3 := t * t * t

	return c.P0.Mul(b0).Add(c.C1.Mul(b1)).Add(c.C2.Mul(b2)).Add(c.P3.Mul(b3))
}

// Tangent returns the (unnormalized) derivative at t.
func (c Curve) Tangent(t float64) r3.Vector {
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	u := 1 - t
	d0 := c.C1.Sub(c.P0).Mul(3 * u * u)
	d1 := c.C2.Sub(c.C1).Mul(6 * u * t)
	d2 := c.P3.Sub(c.C2).Mul(3 * t * t)
	return d0.Add(d1).Add(d2)
}

// Reverse returns the same path traversed from destination to origin.
func (c Curve) Reverse() Curve {
	return Curve{P0: c.P3, C1: c.C2, C2: c.C1, P3: c.P0}
}

// IsDegenerate reports whether the curve has zero length.
func (c Curve) IsDegenerate() bool {
	return c.P0 == c.C1 && c.C1 == c.C2 && c.C2 == c.P3
}

// Sample returns n+1 evenly spaced (in t) points including both endpoints.
func (c Curve) Sample(n int) []r3.Vector {
	if n < 1 {
		n = 1
	}
	pts := make([]r3.Vector, n+1)
	for i := 0; i <= n; i++ {
		pts[i] = c.At(float64(i) / float64(n))
	}
	return pts
}

// Length approximates arc length with an n-segment polyline.
func (c Curve) Length(n int) float64 {
	pts := c.Sample(n)
	var total float64
	for i := 1; i < len(pts); i++ {
		total += pts[i].Distance(pts[i-1])
	}
	return total
}

// Apex returns the sampled point furthest from the origin of the sphere.
func (c Curve) Apex(n int) r3.Vector {
	var best r3.Vector
	bestR := -1.0
	for _, p := range c.Sample(n) {
		if r := p.Norm(); r > bestR {
			best, bestR = p, r
		}
	}
	return best
}
