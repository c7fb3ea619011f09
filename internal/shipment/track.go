package shipment

import (
	"fmt"

	"github.com/golang/geo/r3"

	"github.com/litescript/ls-freight/internal/geo"
	"github.com/litescript/ls-freight/internal/route"
)

// Track is a shipment placed on the globe.
type Track struct {
	ID       string
	Shipment Shipment
	Status   Status
	Progress float64

	// Routed is false when no coordinates were available; such tracks have
	// no curve and cannot be focused by the camera.
	Routed      bool
	Origin      geo.Point
	Destination geo.Point
	Curve       route.Curve
}

// Position returns the mover location: the curve evaluated at Progress.
func (t Track) Position() (r3.Vector, bool) {
	if !t.Routed {
		return r3.Vector{}, false
	}
	return t.Curve.At(t.Progress), true
}

// Color returns the display color for the track's status.
func (t Track) Color() Color {
	return ColorFor(t.Status)
}

// DistanceKm returns the great-circle route length, or 0 when unrouted.
func (t Track) DistanceKm() float64 {
	if !t.Routed {
		return 0
	}
	return geo.DistanceKm(t.Origin, t.Destination)
}

// WithStatus returns a copy of the track with a new status and the
// progress recomputed from it.
func (t Track) WithStatus(s Status) Track {
	t.Status = s
	t.Shipment.Status = s
	t.Progress = Progress(s)
	return t
}

// Builder turns shipment records into tracks.
type Builder struct {
	Radius    float64
	Elevation float64
	Table     *CoordinateTable

	cache *geo.ProjectionCache
}

// NewBuilder creates a builder for a globe of the given radius.
func NewBuilder(table *CoordinateTable, radius, elevation float64) *Builder {
	return &Builder{
		Radius:    radius,
		Elevation: elevation,
		Table:     table,
		cache:     geo.NewProjectionCache(4096),
	}
}

// Build maps every shipment to a track. Invalid coordinates in the table
// or in a shipment record abort the build: they indicate malformed data
// upstream and are not silently repaired. A repeated id keeps its first
// occurrence only.
func (b *Builder) Build(shipments []Shipment) ([]Track, error) {
	tracks := make([]Track, 0, len(shipments))
	seen := make(map[string]bool, len(shipments))
	for i, s := range shipments {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		t, err := b.BuildOne(i, s)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

// BuildOne maps the shipment at position index to a track.
func (b *Builder) BuildOne(index int, s Shipment) (Track, error) {
	t := Track{
		ID:       s.ID,
		Shipment: s,
		Status:   s.Status,
		Progress: Progress(s.Status),
	}

	r, ok := b.Table.Lookup(index, s)
	if !ok {
		return t, nil
	}

	o, err := b.project(r.Origin)
	if err != nil {
		return Track{}, fmt.Errorf("shipment %s origin: %w", s.ID, err)
	}
	d, err := b.project(r.Destination)
	if err != nil {
		return Track{}, fmt.Errorf("shipment %s destination: %w", s.ID, err)
	}

	t.Routed = true
	t.Origin = r.Origin
	t.Destination = r.Destination
	t.Curve = route.Build(o, d, b.Elevation)
	return t, nil
}

func (b *Builder) project(p geo.Point) (r3.Vector, error) {
	if b.cache == nil {
		return geo.Project(p.Lat, p.Lon, b.Radius)
	}
	return b.cache.Project(p.Lat, p.Lon, b.Radius)
}
