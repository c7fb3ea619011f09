package camera

import (
	"math"

	"github.com/golang/geo/r3"
)

// DefaultFovYDeg is the vertical field of view of the globe camera.
const DefaultFovYDeg = 45.0

const nearPlane = 1e-3

// Lens is a perspective projection into normalized screen space, where
// x and y run from -1 to 1 across the viewport and y points up.
type Lens struct {
	FovYDeg float64
	Aspect  float64 // viewport width / height
}

func (l Lens) focal() float64 {
	fov := l.FovYDeg
	if fov <= 0 {
		fov = DefaultFovYDeg
	}
	return 1 / math.Tan(fov*math.Pi/360)
}

func (l Lens) aspect() float64 {
	if l.Aspect <= 0 {
		return 1
	}
	return l.Aspect
}

// Basis returns the camera's right, up and forward unit vectors.
func (p Pose) Basis() (right, up, forward r3.Vector) {
	forward = p.Target.Sub(p.Position).Normalize()
	if forward == (r3.Vector{}) {
		forward = r3.Vector{Z: -1}
	}
	upHint := p.Up
	if upHint == (r3.Vector{}) {
		upHint = worldUp
	}
	right = forward.Cross(upHint).Normalize()
	if right == (r3.Vector{}) {
		// Looking straight along the up hint.
		right = forward.Cross(r3.Vector{Z: 1}).Normalize()
	}
	up = right.Cross(forward)
	return right, up, forward
}

// Project maps a point to normalized screen coordinates. ok is false for
// points behind the camera.
func (l Lens) Project(p Pose, v r3.Vector) (x, y, depth float64, ok bool) {
	right, up, forward := p.Basis()
	rel := v.Sub(p.Position)
	depth = rel.Dot(forward)
	if depth <= nearPlane {
		return 0, 0, depth, false
	}
	f := l.focal()
	x = rel.Dot(right) / depth * f / l.aspect()
	y = rel.Dot(up) / depth * f
	return x, y, depth, true
}

// Ray returns the unit view direction through normalized screen point (x, y).
func (l Lens) Ray(p Pose, x, y float64) r3.Vector {
	right, up, forward := p.Basis()
	f := l.focal()
	dir := forward.
		Add(right.Mul(x * l.aspect() / f)).
		Add(up.Mul(y / f))
	return dir.Normalize()
}

// IntersectSphere returns the smallest t > 0 where origin + t·dir meets a
// sphere of the given radius centred at the origin.
func IntersectSphere(origin, dir r3.Vector, radius float64) (float64, bool) {
	a := dir.Dot(dir)
	if a == 0 {
		return 0, false
	}
	b := 2 * origin.Dot(dir)
	c := origin.Dot(origin) - radius*radius
	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	t0 := (-b - sq) / (2 * a)
	t1 := (-b + sq) / (2 * a)
	if t0 > 0 {
		return t0, true
	}
	if t1 > 0 {
		return t1, true
	}
	return 0, false
}

// Occluded reports whether the globe of the given radius hides v from the
// camera.
func (p Pose) Occluded(v r3.Vector, radius float64) bool {
	dir := v.Sub(p.Position)
	t, hit := IntersectSphere(p.Position, dir, radius)
	if !hit {
		return false
	}
	// t == 1 is v itself lying on the surface facing the camera.
	return t < 1-1e-6
}
