// Package flatmap is the simplified logistics map: a linear lat/lon to
// percent mapping instead of a sphere, with rotation simulated as a
// horizontal wrap. It shares the status progress and color contracts of
// the globe but not its positions; the two views are allowed to disagree.
package flatmap

import (
	"math"

	"github.com/google/uuid"

	"github.com/litescript/ls-freight/internal/config"
	"github.com/litescript/ls-freight/internal/geo"
	"github.com/litescript/ls-freight/internal/logging"
	"github.com/litescript/ls-freight/internal/metrics"
	"github.com/litescript/ls-freight/internal/scene"
	"github.com/litescript/ls-freight/internal/shipment"
	"github.com/litescript/ls-freight/internal/telemetry"
)

// Scale limits for the flat map zoom.
const (
	MinScale = 1.0
	MaxScale = 4.0
)

// arcLift raises the quadratic control point by this share of the chord
// length.
const arcLift = 0.25

// Point is a position in percent of the map container. X grows to the
// east and Y grows to the north, both 0..100 for on-map points.
type Point struct {
	X, Y float64
}

// Project maps a coordinate with X = 50 + lon/180·50 and Y = 50 + lat/90·50.
func Project(p geo.Point) Point {
	return Point{
		X: 50 + (p.Lon/180)*50,
		Y: 50 + (p.Lat/90)*50,
	}
}

// Unproject inverts Project.
func Unproject(p Point) geo.Point {
	return geo.Point{
		Lat: (p.Y - 50) / 50 * 90,
		Lon: (p.X - 50) / 50 * 180,
	}
}

// Arc is the quadratic route drawn between two projected endpoints.
type Arc struct {
	From, Control, To Point
}

// NewArc lifts the control point north of the chord midpoint.
func NewArc(from, to Point) Arc {
	mid := Point{X: (from.X + to.X) / 2, Y: (from.Y + to.Y) / 2}
	chord := math.Hypot(to.X-from.X, to.Y-from.Y)
	mid.Y += chord * arcLift
	return Arc{From: from, Control: mid, To: to}
}

// At evaluates the arc at t, clamped to [0, 1].
func (a Arc) At(t float64) Point {
	if t <= 0 {
		return a.From
	}
	if t >= 1 {
		return a.To
	}
	u := 1 - t
	return Point{
		X: u*u*a.From.X + 2*u*t*a.Control.X + t*t*a.To.X,
		Y: u*u*a.From.Y + 2*u*t*a.Control.Y + t*t*a.To.Y,
	}
}

// Marker is one shipment on the flat map.
type Marker struct {
	Track  shipment.Track
	Arc    Arc
	Routed bool
	Env    telemetry.Sample
	HasEnv bool
}

// Mover returns the marker position at the shipment's progress.
func (m Marker) Mover() (Point, bool) {
	if !m.Routed {
		return Point{}, false
	}
	return m.Arc.At(m.Track.Progress), true
}

// State is the mutable state of a flat map view.
type State struct {
	OffsetX    float64 // horizontal wrap in percent, [0,100)
	IsRotating bool
	SelectedID string
	Scale      float64
	Pulse      float64
	Frame      uint64
}

// Map is a flat map view instance. Like the globe engine it is owned by a
// single goroutine.
type Map struct {
	id      uuid.UUID
	opts    config.Options
	log     *logging.Logger
	metrics *metrics.Collector

	phase   scene.Phase
	state   State
	markers []Marker
	index   map[string]int

	subs   map[int]func(scene.Event)
	nextID int
}

// New creates a flat map in the Idle phase.
func New(opts config.Options, log *logging.Logger, m *metrics.Collector) *Map {
	if log == nil {
		log = logging.Discard()
	}
	id := uuid.New()
	return &Map{
		id:      id,
		opts:    opts,
		log:     log.Named("flat").Named(id.String()[:8]),
		metrics: m,
		index:   make(map[string]int),
		subs:    make(map[int]func(scene.Event)),
		state: State{
			IsRotating: true,
			Scale:      MinScale,
		},
	}
}

// ViewID identifies this view.
func (m *Map) ViewID() uuid.UUID { return m.id }

// Phase returns the lifecycle phase.
func (m *Map) Phase() scene.Phase { return m.phase }

// State returns a copy of the view state.
func (m *Map) State() State { return m.state }

// Mount activates the map. It has no assets to wait for.
func (m *Map) Mount() {
	if m.phase != scene.PhaseIdle {
		return
	}
	m.phase = scene.PhaseActive
	m.log.Debug("mounted")
}

// Unmount stops the map; later calls are no-ops.
func (m *Map) Unmount() {
	if m.phase == scene.PhaseUnmounted {
		return
	}
	m.phase = scene.PhaseUnmounted
	m.subs = nil
	m.log.Debug("unmounted")
}

// Subscribe registers fn for selection events.
func (m *Map) Subscribe(fn func(scene.Event)) (unsubscribe func()) {
	if m.subs == nil {
		return func() {}
	}
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	return func() {
		if m.subs != nil {
			delete(m.subs, id)
		}
	}
}

// Tick advances the wrap offset and pulse when Active.
func (m *Map) Tick() bool {
	if m.phase != scene.PhaseActive {
		return false
	}
	if m.state.IsRotating {
		m.state.OffsetX = wrapPercent(m.state.OffsetX + m.opts.RotationSpeedDegPerTick/360*100)
	}
	m.state.Pulse = math.Mod(m.state.Pulse+1.0/24, 1)
	m.state.Frame++
	m.metrics.ObserveTick("flat")
	return true
}

// SetTracks replaces the markers, keeping environment samples of
// shipments that remain.
func (m *Map) SetTracks(tracks []shipment.Track) {
	if m.phase == scene.PhaseUnmounted {
		return
	}

	old := m.index
	oldMarkers := m.markers
	m.markers = make([]Marker, len(tracks))
	m.index = make(map[string]int, len(tracks))
	routed := 0
	for i, t := range tracks {
		mk := Marker{Track: t, Routed: t.Routed}
		if t.Routed {
			mk.Arc = NewArc(Project(t.Origin), Project(t.Destination))
			routed++
		}
		if j, ok := old[t.ID]; ok {
			mk.Env, mk.HasEnv = oldMarkers[j].Env, oldMarkers[j].HasEnv
		}
		m.markers[i] = mk
		m.index[t.ID] = i
	}
	m.metrics.SetTracks("flat", routed, len(tracks)-routed)

	if sel := m.state.SelectedID; sel != "" {
		if _, ok := m.index[sel]; !ok {
			m.setSelection("", "cleared")
		}
	}
}

// Markers returns a copy of the markers.
func (m *Map) Markers() []Marker {
	out := make([]Marker, len(m.markers))
	copy(out, m.markers)
	return out
}

// Marker looks up a marker by shipment id.
func (m *Map) Marker(id string) (Marker, bool) {
	i, ok := m.index[id]
	if !ok {
		return Marker{}, false
	}
	return m.markers[i], true
}

// SetEnvironment attaches the latest reading to a shipment's marker.
// Unknown ids are ignored.
func (m *Map) SetEnvironment(id string, s telemetry.Sample) {
	if m.phase == scene.PhaseUnmounted {
		return
	}
	i, ok := m.index[id]
	if !ok {
		return
	}
	m.markers[i].Env = s.Normalize()
	m.markers[i].HasEnv = true
}

// SelectPoint toggles selection of id; unknown ids are ignored.
func (m *Map) SelectPoint(id string) {
	if m.phase == scene.PhaseUnmounted {
		return
	}
	if _, ok := m.index[id]; !ok {
		return
	}
	if m.state.SelectedID == id {
		m.setSelection("", "deselect")
		return
	}
	m.setSelection(id, "select")
}

// ClearSelection deselects the current shipment, if any.
func (m *Map) ClearSelection() {
	if m.phase == scene.PhaseUnmounted || m.state.SelectedID == "" {
		return
	}
	m.setSelection("", "deselect")
}

// SelectNext cycles the selection forward.
func (m *Map) SelectNext() { m.selectStep(1) }

// SelectPrev cycles the selection backward.
func (m *Map) SelectPrev() { m.selectStep(-1) }

func (m *Map) selectStep(dir int) {
	if m.phase == scene.PhaseUnmounted || len(m.markers) == 0 {
		return
	}
	n := len(m.markers)
	next := 0
	if dir < 0 {
		next = n - 1
	}
	if i, ok := m.index[m.state.SelectedID]; ok {
		next = ((i+dir)%n + n) % n
	}
	if id := m.markers[next].Track.ID; id != m.state.SelectedID {
		m.setSelection(id, "select")
	}
}

func (m *Map) setSelection(id, action string) {
	prev := m.state.SelectedID
	m.state.SelectedID = id
	m.metrics.ObserveSelection("flat", action)
	for _, fn := range m.subs {
		fn(scene.SelectionEvent{ViewID: m.id, PreviousID: prev, SelectedID: id, Action: action})
	}
}

// ToggleRotation starts or stops the horizontal drift.
func (m *Map) ToggleRotation() {
	if m.phase == scene.PhaseUnmounted {
		return
	}
	m.state.IsRotating = !m.state.IsRotating
}

// Zoom changes the scale by delta, clamped to [MinScale, MaxScale].
func (m *Map) Zoom(delta float64) {
	if m.phase == scene.PhaseUnmounted {
		return
	}
	s := m.state.Scale + delta
	if s < MinScale {
		s = MinScale
	}
	if s > MaxScale {
		s = MaxScale
	}
	m.state.Scale = s
}

// Transform applies the wrap offset and the zoom about the map centre to a
// map point, giving its position in the viewport in percent.
func (m *Map) Transform(p Point) Point {
	x := wrapPercent(p.X + m.state.OffsetX)
	s := m.state.Scale
	return Point{
		X: 50 + (x-50)*s,
		Y: 50 + (p.Y-50)*s,
	}
}

// Untransform maps a viewport point back to map percent. ok is false when
// the point falls outside the map vertically.
func (m *Map) Untransform(p Point) (Point, bool) {
	s := m.state.Scale
	y := 50 + (p.Y-50)/s
	if y < 0 || y > 100 {
		return Point{}, false
	}
	x := 50 + (p.X-50)/s
	return Point{X: wrapPercent(x - m.state.OffsetX), Y: y}, true
}

// HitTest finds the marker whose transformed mover is nearest to (x, y) in
// viewport percent, within radius.
func (m *Map) HitTest(x, y, radius float64) (string, bool) {
	best := ""
	bestDist := math.Inf(1)
	for _, mk := range m.markers {
		mv, ok := mk.Mover()
		if !ok {
			continue
		}
		p := m.Transform(mv)
		if d := math.Hypot(p.X-x, p.Y-y); d <= radius && d < bestDist {
			best, bestDist = mk.Track.ID, d
		}
	}
	return best, best != ""
}

func wrapPercent(x float64) float64 {
	x = math.Mod(x, 100)
	if x < 0 {
		x += 100
	}
	return x
}
