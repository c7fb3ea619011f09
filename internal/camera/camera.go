// Package camera computes camera poses for the globe view: a free orbit
// around the globe centre, or tracking of a selected shipment's mover.
//
// Poses are expressed in the globe-local frame (the frame route curves are
// built in). Spinning the globe by θ is rendered as orbiting the camera by
// -θ, so a tracked shipment stays centred while the globe turns.
package camera

import (
	"math"

	"github.com/golang/geo/r3"
)

// Mode is the camera behaviour.
type Mode int

const (
	ModeOrbit Mode = iota
	ModeTracking
)

func (m Mode) String() string {
	switch m {
	case ModeOrbit:
		return "orbit"
	case ModeTracking:
		return "tracking"
	default:
		return "unknown"
	}
}

// TrackingScale places the tracking camera at point·TrackingScale.
const TrackingScale = 1.5

// maxElevationDeg keeps the orbit away from the poles where the up vector
// would be parallel to the view direction.
const maxElevationDeg = 85.0

var worldUp = r3.Vector{Y: 1}

// Pose is a camera placement.
type Pose struct {
	Position r3.Vector
	Target   r3.Vector
	Up       r3.Vector
}

// Orbit is a spherical camera placement around the origin.
type Orbit struct {
	AzimuthDeg   float64
	ElevationDeg float64
	Distance     float64
}

// Pose converts the orbit to a pose looking at the origin.
func (o Orbit) Pose() Pose {
	az := o.AzimuthDeg * math.Pi / 180
	el := o.ElevationDeg * math.Pi / 180
	return Pose{
		Position: r3.Vector{
			X: o.Distance * math.Cos(el) * math.Sin(az),
			Y: o.Distance * math.Sin(el),
			Z: o.Distance * math.Cos(el) * math.Cos(az),
		},
		Up: worldUp,
	}
}

// Selection is the camera's subject. Valid is false when nothing routed is
// selected.
type Selection struct {
	ID    string
	Point r3.Vector
	Valid bool
}

// TrackingPose frames a point from just above it.
func TrackingPose(point r3.Vector) Pose {
	return Pose{
		Position: point.Mul(TrackingScale),
		Target:   point,
		Up:       worldUp,
	}
}

// ComputePose is the stateless pose for a mode. Tracking without a valid
// selection falls back to the orbit pose.
func ComputePose(mode Mode, sel Selection, orbit Orbit) Pose {
	if mode == ModeTracking && sel.Valid {
		return TrackingPose(sel.Point)
	}
	return orbit.Pose()
}

// Lerp blends two poses component-wise.
func Lerp(a, b Pose, t float64) Pose {
	return Pose{
		Position: lerpVec(a.Position, b.Position, t),
		Target:   lerpVec(a.Target, b.Target, t),
		Up:       lerpVec(a.Up, b.Up, t).Normalize(),
	}
}

func lerpVec(a, b r3.Vector, t float64) r3.Vector {
	return a.Add(b.Sub(a).Mul(t))
}

// orbitOf recovers the spherical placement of a camera position.
func orbitOf(pos r3.Vector) Orbit {
	d := pos.Norm()
	if d == 0 {
		return Orbit{}
	}
	return Orbit{
		AzimuthDeg:   WrapDegrees(math.Atan2(pos.X, pos.Z) * 180 / math.Pi),
		ElevationDeg: math.Asin(clamp(pos.Y/d, -1, 1)) * 180 / math.Pi,
		Distance:     d,
	}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// easeOutCubic decelerates toward the end of a transition.
func easeOutCubic(t float64) float64 {
	return 1 - math.Pow(1-t, 3)
}

// normalizeAngle wraps angle to -180..+180 range
func normalizeAngle(a float64) float64 {
	for a > 180 {
		a -= 360
	}
	for a < -180 {
		a += 360
	}
	return a
}

// WrapDegrees wraps an angle to [0, 360).
func WrapDegrees(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}

// lerpAngle interpolates along the shortest arc.
func lerpAngle(a, b, t float64) float64 {
	diff := normalizeAngle(b - a)
	return a + diff*t
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
