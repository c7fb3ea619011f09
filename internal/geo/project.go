// Package geo provides geographic points and their projection onto a sphere.
package geo

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// ErrInvalidCoordinate is returned for latitude, longitude or radius values
// outside their valid range.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// CoordinateError describes which input of a projection was rejected.
type CoordinateError struct {
	Field string
	Value float64
}

func (e *CoordinateError) Error() string {
	return fmt.Sprintf("invalid coordinate: %s=%v out of range", e.Field, e.Value)
}

// Unwrap lets errors.Is match ErrInvalidCoordinate.
func (e *CoordinateError) Unwrap() error {
	return ErrInvalidCoordinate
}

// Point is a geographic position in degrees.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat"` // -90 to +90
	Lon float64 `json:"lon" yaml:"lon"` // -180 to +180
}

// Validate reports whether the point lies within the valid lat/lon ranges.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return &CoordinateError{Field: "lat", Value: p.Lat}
	}
	if math.IsNaN(p.Lon) || p.Lon < -180 || p.Lon > 180 {
		return &CoordinateError{Field: "lon", Value: p.Lon}
	}
	return nil
}

// Project maps the point onto a sphere of the given radius.
func (p Point) Project(radius float64) (r3.Vector, error) {
	return Project(p.Lat, p.Lon, radius)
}

// Orb converts to an orb.Point (lon, lat order).
func (p Point) Orb() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// FromOrb converts an orb.Point (lon, lat order).
func FromOrb(p orb.Point) Point {
	return Point{Lat: p.Lat(), Lon: p.Lon()}
}

// String formats the point as "40.71°N 74.01°W".
func (p Point) String() string {
	ns, ew := "N", "E"
	if p.Lat < 0 {
		ns = "S"
	}
	if p.Lon < 0 {
		ew = "W"
	}
	return fmt.Sprintf("%.2f°%s %.2f°%s", math.Abs(p.Lat), ns, math.Abs(p.Lon), ew)
}

// Project converts latitude/longitude in degrees to a point on a sphere.
//
// The convention is fixed: phi is the polar angle from +Y, theta is the
// longitude shifted by 180°, and x is negated, so (0°, 0°) lands at
// (-r·cos(π), 0, r·sin(π)) = (r, 0, ~0). Textures and every route curve
// depend on this exact mapping.
func Project(lat, lon, radius float64) (r3.Vector, error) {
	if err := (Point{Lat: lat, Lon: lon}).Validate(); err != nil {
		return r3.Vector{}, err
	}
	if math.IsNaN(radius) || radius <= 0 {
		return r3.Vector{}, &CoordinateError{Field: "radius", Value: radius}
	}

	phi := (90 - lat) * math.Pi / 180
	theta := (lon + 180) * math.Pi / 180

	return r3.Vector{
		X: -radius * math.Sin(phi) * math.Cos(theta),
		Y: radius * math.Cos(phi),
		Z: radius * math.Sin(phi) * math.Sin(theta),
	}, nil
}

// Unproject is the inverse of Project for a point on (or off) the sphere.
// The zero vector maps to (0°, 0°).
func Unproject(v r3.Vector) Point {
	r := v.Norm()
	if r == 0 {
		return Point{}
	}
	y := v.Y / r
	if y > 1 {
		y = 1
	} else if y < -1 {
		y = -1
	}
	phi := math.Acos(y)
	theta := math.Atan2(v.Z, -v.X)

	lon := theta*180/math.Pi - 180
	if lon < -180 {
		lon += 360
	}
	return Point{Lat: 90 - phi*180/math.Pi, Lon: lon}
}

// DistanceKm returns the great-circle distance between two points.
func DistanceKm(a, b Point) float64 {
	return orbgeo.DistanceHaversine(a.Orb(), b.Orb()) / 1000
}

type cacheKey struct {
	lat, lon, radius float64
}

// ProjectionCache memoizes Project results. Safe for concurrent use.
type ProjectionCache struct {
	mu      sync.Mutex
	entries map[cacheKey]r3.Vector
	maxSize int
}

// NewProjectionCache creates a cache holding at most maxSize entries.
// A non-positive maxSize means unbounded.
func NewProjectionCache(maxSize int) *ProjectionCache {
	return &ProjectionCache{
		entries: make(map[cacheKey]r3.Vector),
		maxSize: maxSize,
	}
}

// Project returns the memoized projection, computing it on first use.
// Invalid input is never cached.
func (c *ProjectionCache) Project(lat, lon, radius float64) (r3.Vector, error) {
	key := cacheKey{lat, lon, radius}

	c.mu.Lock()
	v, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		return v, nil
	}

	v, err := Project(lat, lon, radius)
	if err != nil {
		return r3.Vector{}, err
	}

	c.mu.Lock()
	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		// Full: start over rather than track recency.
		c.entries = make(map[cacheKey]r3.Vector)
	}
	c.entries[key] = v
	c.mu.Unlock()

	return v, nil
}

// Len returns the number of cached projections.
func (c *ProjectionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
