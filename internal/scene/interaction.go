package scene

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"

	"github.com/litescript/ls-freight/internal/camera"
)

// Event is delivered to subscribers when the host needs to react to a
// view change.
type Event interface {
	View() uuid.UUID
}

// SelectionEvent reports a selection change. SelectedID is empty after a
// deselect.
type SelectionEvent struct {
	ViewID     uuid.UUID
	PreviousID string
	SelectedID string
	Action     string // select, deselect or cleared
}

// View returns the emitting view.
func (e SelectionEvent) View() uuid.UUID { return e.ViewID }

// TrackingEvent reports the tracking toggle.
type TrackingEvent struct {
	ViewID  uuid.UUID
	Enabled bool
}

// View returns the emitting view.
func (e TrackingEvent) View() uuid.UUID { return e.ViewID }

// Subscribe registers fn for events and returns a function that removes it.
func (e *Engine) Subscribe(fn func(Event)) (unsubscribe func()) {
	if e.subs == nil {
		return func() {}
	}
	id := e.nextID
	e.nextID++
	e.subs[id] = fn
	return func() {
		if e.subs != nil {
			delete(e.subs, id)
		}
	}
}

func (e *Engine) emit(ev Event) {
	for _, fn := range e.subs {
		fn(ev)
	}
}

func (e *Engine) live() bool {
	return e.phase != PhaseUnmounted
}

// SelectPoint toggles the selection of id. Selecting the selected id
// deselects it; unknown ids are ignored.
func (e *Engine) SelectPoint(id string) {
	if !e.live() {
		return
	}
	if _, ok := e.index[id]; !ok {
		e.log.Debug("select %q: no such shipment", id)
		return
	}
	if e.state.SelectedID == id {
		e.setSelection("", "deselect")
		return
	}
	e.setSelection(id, "select")
}

// ClearSelection deselects whatever is selected.
func (e *Engine) ClearSelection() {
	if !e.live() || e.state.SelectedID == "" {
		return
	}
	e.setSelection("", "deselect")
}

// SelectNext selects the track after the current one, wrapping around.
func (e *Engine) SelectNext() { e.selectStep(1) }

// SelectPrev selects the track before the current one, wrapping around.
func (e *Engine) SelectPrev() { e.selectStep(-1) }

func (e *Engine) selectStep(dir int) {
	if !e.live() || len(e.tracks) == 0 {
		return
	}
	next := 0
	if dir < 0 {
		next = len(e.tracks) - 1
	}
	if i, ok := e.index[e.state.SelectedID]; ok {
		next = (i + dir + len(e.tracks)) % len(e.tracks)
	}
	id := e.tracks[next].ID
	if id == e.state.SelectedID {
		return
	}
	e.setSelection(id, "select")
}

func (e *Engine) setSelection(id, action string) {
	prev := e.state.SelectedID
	e.state.SelectedID = id
	e.refreshSubject()
	e.metrics.ObserveSelection(e.kind, action)
	e.log.Debug("%s %q -> %q", action, prev, id)
	e.emit(SelectionEvent{ViewID: e.id, PreviousID: prev, SelectedID: id, Action: action})
}

// ToggleRotation starts or stops the globe spin.
func (e *Engine) ToggleRotation() {
	if !e.live() {
		return
	}
	e.state.IsRotating = !e.state.IsRotating
}

// ToggleTracking flips the tracking switch. The camera only tracks while a
// routed shipment is the subject.
func (e *Engine) ToggleTracking() {
	if !e.live() {
		return
	}
	e.state.IsTracking = !e.state.IsTracking
	e.emit(TrackingEvent{ViewID: e.id, Enabled: e.state.IsTracking})
}

// Zoom moves the orbit camera by delta globe radii, clamped to the
// configured range.
func (e *Engine) Zoom(delta float64) {
	if !e.live() {
		return
	}
	e.state.Zoom = e.opts.ClampZoom(e.state.Zoom + delta)
}

// Drag rotates the orbit camera and pauses auto-rotation.
func (e *Engine) Drag(dAzDeg, dElDeg float64) {
	if !e.live() {
		return
	}
	e.cam.Drag(dAzDeg, dElDeg)
}

// Marker is a pickable point of a track.
type Marker struct {
	ID    string
	Point r3.Vector
	Kind  MarkerKind
}

// MarkerKind tells movers from route endpoints.
type MarkerKind int

const (
	MarkerMover MarkerKind = iota
	MarkerOrigin
	MarkerDestination
)

// Markers lists the mover and both endpoints of every routed track in the
// globe-local frame.
func (e *Engine) Markers() []Marker {
	out := make([]Marker, 0, 3*len(e.tracks))
	for _, t := range e.tracks {
		if !t.Routed {
			continue
		}
		p, _ := t.Position()
		out = append(out,
			Marker{ID: t.ID, Point: p, Kind: MarkerMover},
			Marker{ID: t.ID, Point: t.Curve.P0, Kind: MarkerOrigin},
			Marker{ID: t.ID, Point: t.Curve.P3, Kind: MarkerDestination},
		)
	}
	return out
}

// HitTest returns the shipment whose visible marker is nearest to the
// normalized screen point (x, y), within radius. Movers win ties against
// endpoints of other routes at the same distance.
func (e *Engine) HitTest(lens camera.Lens, x, y, radius float64) (string, bool) {
	pose := e.state.Camera
	globe := e.opts.GlobeRadius

	best := ""
	bestDist := math.Inf(1)
	for _, m := range e.Markers() {
		if pose.Occluded(m.Point, globe) {
			continue
		}
		sx, sy, _, ok := lens.Project(pose, m.Point)
		if !ok {
			continue
		}
		d := math.Hypot(sx-x, sy-y)
		if d > radius {
			continue
		}
		if d < bestDist || (d == bestDist && m.Kind == MarkerMover) {
			best, bestDist = m.ID, d
		}
	}
	return best, best != ""
}
