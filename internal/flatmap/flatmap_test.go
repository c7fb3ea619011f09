package flatmap

import (
	"math"
	"testing"
	"time"

	"github.com/litescript/ls-freight/internal/config"
	"github.com/litescript/ls-freight/internal/geo"
	"github.com/litescript/ls-freight/internal/scene"
	"github.com/litescript/ls-freight/internal/shipment"
	"github.com/litescript/ls-freight/internal/telemetry"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func demoMap(t *testing.T) *Map {
	t.Helper()
	tracks, err := shipment.NewBuilder(shipment.DemoTable(), 1, 0.5).Build(shipment.DemoShipments(time.Unix(0, 0)))
	if err != nil {
		t.Fatal(err)
	}
	m := New(config.Default(), nil, nil)
	m.Mount()
	m.SetTracks(tracks)
	return m
}

func TestProject(t *testing.T) {
	tests := []struct {
		name string
		in   geo.Point
		want Point
	}{
		{"origin", geo.Point{Lat: 0, Lon: 0}, Point{50, 50}},
		{"north pole", geo.Point{Lat: 90, Lon: 0}, Point{50, 100}},
		{"south pole", geo.Point{Lat: -90, Lon: 0}, Point{50, 0}},
		{"date line east", geo.Point{Lat: 0, Lon: 180}, Point{100, 50}},
		{"date line west", geo.Point{Lat: 0, Lon: -180}, Point{0, 50}},
		{"new york", geo.Point{Lat: 45, Lon: -90}, Point{25, 75}},
	}
	for _, tt := range tests {
		got := Project(tt.in)
		if !near(got.X, tt.want.X) || !near(got.Y, tt.want.Y) {
			t.Errorf("%s: Project(%v) = %+v, want %+v", tt.name, tt.in, got, tt.want)
		}
		back := Unproject(got)
		if !near(back.Lat, tt.in.Lat) || !near(back.Lon, tt.in.Lon) {
			t.Errorf("%s: Unproject = %+v", tt.name, back)
		}
	}
}

func TestArcEndpointsAndLift(t *testing.T) {
	from, to := Point{10, 40}, Point{70, 40}
	a := NewArc(from, to)

	if a.At(0) != from || a.At(1) != to {
		t.Errorf("arc endpoints %+v %+v", a.At(0), a.At(1))
	}
	if mid := a.At(0.5); mid.Y <= 40 {
		t.Errorf("arc midpoint %+v should be lifted north", mid)
	}
	if a.At(-1) != from || a.At(2) != to {
		t.Error("arc parameter should clamp")
	}
}

func TestMoverUsesStatusProgress(t *testing.T) {
	m := demoMap(t)
	mk, ok := m.Marker("1")
	if !ok {
		t.Fatal("missing marker 1")
	}
	mv, ok := mk.Mover()
	if !ok {
		t.Fatal("routed marker should have a mover")
	}
	if want := mk.Arc.At(shipment.Progress(shipment.StatusInTransit)); mv != want {
		t.Errorf("mover = %+v, want %+v", mv, want)
	}
	if mk.Track.Color() != shipment.ColorFor(shipment.StatusInTransit) {
		t.Error("flat map should share the status color contract")
	}
}

func TestSelectToggleAndStale(t *testing.T) {
	m := demoMap(t)
	var events []scene.SelectionEvent
	m.Subscribe(func(ev scene.Event) {
		events = append(events, ev.(scene.SelectionEvent))
	})

	m.SelectPoint("2")
	m.SelectPoint("2")
	if m.State().SelectedID != "" {
		t.Errorf("double select should deselect, got %q", m.State().SelectedID)
	}
	m.SelectPoint("missing")
	if m.State().SelectedID != "" {
		t.Error("unknown id should be a no-op")
	}
	if len(events) != 2 {
		t.Errorf("got %d events, want 2", len(events))
	}

	m.SelectPoint("5")
	m.SetTracks(m.tracks()[:3])
	if m.State().SelectedID != "" {
		t.Error("selection of a removed shipment should clear")
	}
}

func TestSelectNextPrevWrap(t *testing.T) {
	m := demoMap(t)

	m.SelectPrev()
	if got := m.State().SelectedID; got != "5" {
		t.Errorf("SelectPrev from empty = %q, want 5", got)
	}
	m.SelectNext()
	if got := m.State().SelectedID; got != "1" {
		t.Errorf("SelectNext wrap = %q, want 1", got)
	}
	m.SelectNext()
	if got := m.State().SelectedID; got != "2" {
		t.Errorf("SelectNext = %q, want 2", got)
	}

	m.ClearSelection()
	if m.State().SelectedID != "" {
		t.Error("ClearSelection left a selection")
	}
}

func (m *Map) tracks() []shipment.Track {
	out := make([]shipment.Track, len(m.markers))
	for i, mk := range m.markers {
		out[i] = mk.Track
	}
	return out
}

func TestTickWrapsOffset(t *testing.T) {
	opts := config.Default()
	opts.RotationSpeedDegPerTick = 90
	m := New(opts, nil, nil)

	if m.Tick() {
		t.Error("unmounted map should not tick")
	}
	m.Mount()
	for i := 0; i < 5; i++ {
		m.Tick()
	}
	if got := m.State().OffsetX; !near(got, 25) {
		t.Errorf("offset = %v, want 25 after wrapping", got)
	}

	m.ToggleRotation()
	m.Tick()
	if got := m.State().OffsetX; !near(got, 25) {
		t.Errorf("offset moved while stopped: %v", got)
	}
}

func TestTransform(t *testing.T) {
	m := New(config.Default(), nil, nil)
	m.Mount()
	m.state.OffsetX = 30

	got := m.Transform(Point{80, 50})
	if !near(got.X, 10) || !near(got.Y, 50) {
		t.Errorf("Transform = %+v, want wrapped to (10, 50)", got)
	}

	m.Zoom(1)
	got = m.Transform(Point{30, 60})
	if !near(got.X, 70) || !near(got.Y, 70) {
		t.Errorf("Transform at 2x = %+v, want (70, 70)", got)
	}
}

func TestUntransformInvertsTransform(t *testing.T) {
	m := New(config.Default(), nil, nil)
	m.Mount()
	m.state.OffsetX = 42
	m.Zoom(0.5)

	for _, p := range []Point{{10, 50}, {75, 40}, {50, 55}} {
		v := m.Transform(p)
		back, ok := m.Untransform(v)
		if !ok {
			t.Fatalf("Untransform(%+v) reported off-map", v)
		}
		if !near(back.X, p.X) || !near(back.Y, p.Y) {
			t.Errorf("Untransform(Transform(%+v)) = %+v", p, back)
		}
	}

	if _, ok := m.Untransform(Point{50, 200}); ok {
		t.Error("point above the map should be off-map")
	}
}

func TestZoomClamp(t *testing.T) {
	m := demoMap(t)
	m.Zoom(50)
	if m.State().Scale != MaxScale {
		t.Errorf("scale = %v, want %v", m.State().Scale, MaxScale)
	}
	m.Zoom(-50)
	if m.State().Scale != MinScale {
		t.Errorf("scale = %v, want %v", m.State().Scale, MinScale)
	}
}

func TestHitTest(t *testing.T) {
	m := demoMap(t)
	mk, _ := m.Marker("3")
	mv, _ := mk.Mover()
	p := m.Transform(mv)

	id, ok := m.HitTest(p.X, p.Y, 0.5)
	if !ok || id != "3" {
		t.Errorf("HitTest = %q, %v, want 3", id, ok)
	}
	if _, ok := m.HitTest(-50, -50, 0.5); ok {
		t.Error("HitTest outside the map should miss")
	}
}

func TestEnvironmentAttachment(t *testing.T) {
	m := demoMap(t)
	m.SetEnvironment("1", telemetry.Sample{Humidity: 130, BatteryLevel: 50, SignalStrength: 50})
	m.SetEnvironment("nope", telemetry.Sample{})

	mk, _ := m.Marker("1")
	if !mk.HasEnv {
		t.Fatal("environment not attached")
	}
	if mk.Env.Humidity != 100 {
		t.Errorf("humidity = %v, want clamped 100", mk.Env.Humidity)
	}
	if mk.Env.Health != telemetry.HealthWarning {
		t.Errorf("health = %q, want warning", mk.Env.Health)
	}

	// Samples survive a list refresh for shipments that remain.
	m.SetTracks(m.tracks())
	if mk, _ := m.Marker("1"); !mk.HasEnv {
		t.Error("environment lost on refresh")
	}
}

func TestUnmountFreezesState(t *testing.T) {
	m := demoMap(t)
	m.SelectPoint("1")
	m.Tick()
	m.Unmount()
	before := m.State()

	for i := 0; i < 5; i++ {
		if m.Tick() {
			t.Fatal("tick after unmount")
		}
	}
	m.SelectPoint("2")
	m.ToggleRotation()
	m.Zoom(1)

	if m.State() != before {
		t.Errorf("state changed after unmount: %+v -> %+v", before, m.State())
	}
	if m.Phase() != scene.PhaseUnmounted {
		t.Errorf("phase = %v", m.Phase())
	}
}
