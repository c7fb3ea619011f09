// Package scene owns the per-view animation state of the globe: rotation,
// marker pulse, selection, tracking and the camera pose. The host calls
// Tick once per frame; nothing in here starts goroutines of its own except
// the asset load it is asked to run.
package scene

import (
	"context"
	"math"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"

	"github.com/litescript/ls-freight/internal/camera"
	"github.com/litescript/ls-freight/internal/config"
	"github.com/litescript/ls-freight/internal/logging"
	"github.com/litescript/ls-freight/internal/metrics"
	"github.com/litescript/ls-freight/internal/shipment"
)

// Phase is the lifecycle stage of a view.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseActive
	PhaseFallback
	PhaseUnmounted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseActive:
		return "active"
	case PhaseFallback:
		return "fallback"
	case PhaseUnmounted:
		return "unmounted"
	default:
		return "unknown"
	}
}

// pulseStep is the marker pulse advance per tick (one cycle per 24 ticks).
const pulseStep = 1.0 / 24

// AnimationState is the mutable state of one mounted view. SelectedID is
// empty when nothing is selected.
type AnimationState struct {
	GlobeRotationDeg float64
	IsRotating       bool
	SelectedID       string
	IsTracking       bool
	Zoom             float64
	Pulse            float64 // marker pulse phase in [0,1)
	CameraMode       camera.Mode
	Camera           camera.Pose
	Frame            uint64
}

// PulseScale maps the pulse phase to a marker size factor around 1.
func (s AnimationState) PulseScale() float64 {
	return 1 + 0.3*math.Sin(2*math.Pi*s.Pulse)
}

// Engine drives the globe view. It is not safe for concurrent use; the
// host mutates it from its update loop only.
type Engine struct {
	id      uuid.UUID
	kind    string
	opts    config.Options
	log     *logging.Logger
	metrics *metrics.Collector

	phase  Phase
	state  AnimationState
	tracks []shipment.Track
	index  map[string]int

	cam *camera.Controller
	// subject is the last routed selection; it survives selecting an
	// unrouted shipment so the camera keeps its mode.
	subject camera.Selection

	texture  *Texture
	timedOut bool
	lastErr  error

	subs   map[int]func(Event)
	nextID int
}

// NewEngine creates an engine in the Idle phase. A nil logger discards
// output and a nil collector records nothing.
func NewEngine(opts config.Options, log *logging.Logger, m *metrics.Collector) *Engine {
	if log == nil {
		log = logging.Discard()
	}
	id := uuid.New()
	zoom := opts.ClampZoom(opts.InitialZoom)

	e := &Engine{
		id:      id,
		kind:    "globe",
		opts:    opts,
		log:     log.Named("globe").Named(id.String()[:8]),
		metrics: m,
		index:   make(map[string]int),
		subs:    make(map[int]func(Event)),
		state: AnimationState{
			IsRotating: true,
			Zoom:       zoom,
		},
		cam: camera.NewController(camera.Config{
			Distance:            opts.CameraDistance(zoom),
			InitialElevationDeg: 20,
			AutoRotate:          opts.AutoRotateWhenIdle,
			AutoRotateSpeed:     opts.AutoRotateSpeedDegPerTick,
			DragCooldownTicks:   opts.DragCooldownTicks,
			TransitionTicks:     opts.TrackingTransitionTicks,
		}),
	}
	e.state.Camera = e.cam.Pose()
	return e
}

// ViewID identifies this view instance in events and logs.
func (e *Engine) ViewID() uuid.UUID { return e.id }

// Phase returns the lifecycle phase.
func (e *Engine) Phase() Phase { return e.phase }

// State returns a copy of the animation state.
func (e *Engine) State() AnimationState { return e.state }

// Options returns the options the engine was built with.
func (e *Engine) Options() config.Options { return e.opts }

// Texture returns the loaded land mask, or nil.
func (e *Engine) Texture() *Texture { return e.texture }

// TimedOut reports whether the last load gave up waiting for assets.
func (e *Engine) TimedOut() bool { return e.timedOut }

// Err returns the asset failure that put the view in Fallback.
func (e *Engine) Err() error { return e.lastErr }

// Mount moves Idle to Loading.
func (e *Engine) Mount() {
	if e.phase != PhaseIdle {
		return
	}
	e.phase = PhaseLoading
	e.log.Debug("mounted")
}

// LoadAssets acquires assets with the configured timeout. It does not
// touch engine state and may run on another goroutine; apply the result
// with CompleteLoad.
func (e *Engine) LoadAssets(ctx context.Context, loader AssetLoader) LoadResult {
	return LoadAssets(ctx, loader, e.opts.AssetTimeout)
}

// CompleteLoad applies a load result. A timeout still activates the view,
// without a texture; any other failure moves it to Fallback.
func (e *Engine) CompleteLoad(res LoadResult) {
	if e.phase != PhaseLoading {
		return
	}

	switch {
	case res.OK():
		e.texture = res.Texture
		e.timedOut = false
		e.lastErr = nil
		e.phase = PhaseActive
		e.metrics.ObserveAssetLoad(metrics.AssetLoaded)
		e.log.Info("assets loaded in %v (%dx%d mask)", res.Duration, res.Texture.Width, res.Texture.Height)
	case res.TimedOut:
		e.texture = nil
		e.timedOut = true
		e.lastErr = nil
		e.phase = PhaseActive
		e.metrics.ObserveAssetLoad(metrics.AssetTimedOut)
		e.log.Warn("asset load timed out after %v, continuing without texture", res.Duration)
	default:
		e.texture = nil
		e.lastErr = res.Error
		e.phase = PhaseFallback
		e.metrics.ObserveAssetLoad(metrics.AssetFailed)
		e.log.Error("asset load: %v", res.Error)
	}
}

// Reload moves Fallback back to Loading so the host can retry.
func (e *Engine) Reload() bool {
	if e.phase != PhaseFallback {
		return false
	}
	e.phase = PhaseLoading
	e.lastErr = nil
	e.log.Info("reloading assets")
	return true
}

// Unmount stops the view. Afterwards Tick and every interaction are
// no-ops and no listener is called again.
func (e *Engine) Unmount() {
	if e.phase == PhaseUnmounted {
		return
	}
	e.phase = PhaseUnmounted
	e.texture = nil
	e.subs = nil
	e.metrics.SetTracking(e.kind, false)
	e.log.Debug("unmounted")
}

// Tick advances one frame: rotation, then marker pulse, then camera. It
// returns false without changing anything unless the view is Active.
func (e *Engine) Tick() bool {
	if e.phase != PhaseActive {
		return false
	}

	if e.state.IsRotating {
		e.state.GlobeRotationDeg = camera.WrapDegrees(e.state.GlobeRotationDeg + e.opts.RotationSpeedDegPerTick)
	}
	e.state.Pulse = math.Mod(e.state.Pulse+pulseStep, 1)
	e.updateCamera()
	e.state.Frame++

	e.metrics.ObserveTick(e.kind)
	return true
}

func (e *Engine) updateCamera() {
	e.cam.SetDistance(e.opts.CameraDistance(e.state.Zoom))
	wasTracking := e.state.CameraMode == camera.ModeTracking
	e.state.Camera = e.cam.Update(camera.Input{
		Tracking:         e.state.IsTracking,
		Selection:        e.subject,
		GlobeRotationDeg: e.state.GlobeRotationDeg,
		Idle:             e.state.SelectedID == "" && !e.state.IsTracking,
	})
	e.state.CameraMode = e.cam.Mode()
	if tracking := e.state.CameraMode == camera.ModeTracking; tracking != wasTracking {
		e.metrics.SetTracking(e.kind, tracking)
	}
}

// Transitioning reports whether the camera is easing back to orbit.
func (e *Engine) Transitioning() bool { return e.cam.Transitioning() }

// SetTracks replaces the displayed tracks. A selection whose id is gone is
// cleared; a selected track whose status changed moves the camera subject.
func (e *Engine) SetTracks(tracks []shipment.Track) {
	if e.phase == PhaseUnmounted {
		return
	}

	e.tracks = append(e.tracks[:0:0], tracks...)
	e.index = make(map[string]int, len(tracks))
	routed := 0
	for i, t := range e.tracks {
		e.index[t.ID] = i
		if t.Routed {
			routed++
		}
	}
	e.metrics.SetTracks(e.kind, routed, len(tracks)-routed)

	if sel := e.state.SelectedID; sel != "" {
		if _, ok := e.index[sel]; !ok {
			e.log.Debug("selected shipment %s left the list", sel)
			e.setSelection("", "cleared")
			return
		}
	}
	e.refreshSubject()
	if e.subject.Valid && e.subject.ID != e.state.SelectedID {
		if p, ok := e.Mover(e.subject.ID); ok {
			e.subject.Point = p
		} else {
			e.subject = camera.Selection{}
		}
	}
}

// Tracks returns a copy of the displayed tracks.
func (e *Engine) Tracks() []shipment.Track {
	out := make([]shipment.Track, len(e.tracks))
	copy(out, e.tracks)
	return out
}

// Track looks up a displayed track by id.
func (e *Engine) Track(id string) (shipment.Track, bool) {
	i, ok := e.index[id]
	if !ok {
		return shipment.Track{}, false
	}
	return e.tracks[i], true
}

// Selected returns the selected track, if any.
func (e *Engine) Selected() (shipment.Track, bool) {
	if e.state.SelectedID == "" {
		return shipment.Track{}, false
	}
	return e.Track(e.state.SelectedID)
}

// Mover returns the mover position of a routed track in the globe-local
// frame.
func (e *Engine) Mover(id string) (r3.Vector, bool) {
	t, ok := e.Track(id)
	if !ok {
		return r3.Vector{}, false
	}
	return t.Position()
}

// refreshSubject points the camera at the selected track when it is
// routed. Unrouted or empty selections leave the subject alone, except
// that clearing the selection also clears the subject.
func (e *Engine) refreshSubject() {
	if e.state.SelectedID == "" {
		e.subject = camera.Selection{}
		return
	}
	if p, ok := e.Mover(e.state.SelectedID); ok {
		e.subject = camera.Selection{ID: e.state.SelectedID, Point: p, Valid: true}
	}
}
