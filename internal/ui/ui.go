// Package ui provides the terminal user interface using Bubble Tea.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-freight/internal/camera"
	"github.com/litescript/ls-freight/internal/config"
	"github.com/litescript/ls-freight/internal/flatmap"
	"github.com/litescript/ls-freight/internal/logging"
	"github.com/litescript/ls-freight/internal/metrics"
	"github.com/litescript/ls-freight/internal/scene"
	"github.com/litescript/ls-freight/internal/shipment"
	"github.com/litescript/ls-freight/internal/state"
	"github.com/litescript/ls-freight/internal/telemetry"
	"github.com/litescript/ls-freight/internal/version"
)

// ViewMode represents the current UI view.
type ViewMode int

const (
	ViewGlobe ViewMode = iota
	ViewFlat
)

func (v ViewMode) String() string {
	if v == ViewFlat {
		return "flat"
	}
	return "globe"
}

// ParseViewMode maps "flat" to ViewFlat and anything else to ViewGlobe.
func ParseViewMode(s string) ViewMode {
	if strings.EqualFold(s, "flat") {
		return ViewFlat
	}
	return ViewGlobe
}

// Layout rows around the map area.
const (
	headerLines = 2
	footerLines = 1
)

// Msg types for Bubble Tea
type (
	// FrameMsg advances the animation by one tick.
	FrameMsg time.Time

	// DataUpdateMsg signals a new shipment list is available.
	DataUpdateMsg struct {
		Snapshot state.Snapshot
	}

	// TelemetryMsg carries the latest environment readings by shipment id.
	TelemetryMsg struct {
		Samples map[string]telemetry.Sample
	}

	// AssetsLoadedMsg carries the outcome of a globe asset load.
	AssetsLoadedMsg struct {
		Result scene.LoadResult
	}

	// ErrorMsg signals a fetch error.
	ErrorMsg struct {
		Error error
	}
)

// Config wires the model to its collaborators.
type Config struct {
	Options config.Options
	Table   *shipment.CoordinateTable
	Loader  scene.AssetLoader
	Logger  *logging.Logger
	Metrics *metrics.Collector
	View    ViewMode
}

// eventFeed keeps the last view event as a status line. It is shared by
// pointer so Model copies see the same feed.
type eventFeed struct {
	last string
}

func (f *eventFeed) record(ev scene.Event) {
	switch ev := ev.(type) {
	case scene.SelectionEvent:
		if ev.SelectedID == "" {
			f.last = fmt.Sprintf("%s #%s", ev.Action, ev.PreviousID)
		} else {
			f.last = fmt.Sprintf("%s #%s", ev.Action, ev.SelectedID)
		}
	case scene.TrackingEvent:
		if ev.Enabled {
			f.last = "tracking on"
		} else {
			f.last = "tracking off"
		}
	}
}

// Model is the root Bubble Tea model.
type Model struct {
	// Dependencies
	state   *state.Manager
	engine  *scene.Engine
	flat    *flatmap.Map
	builder *shipment.Builder
	loader  scene.AssetLoader
	opts    config.Options
	log     *logging.Logger

	keys    KeyMap
	help    help.Model
	spinner spinner.Model

	// UI state
	viewMode ViewMode
	width    int
	height   int
	ready    bool
	quitting bool

	snapshot state.Snapshot
	env      map[string]telemetry.Sample
	buildErr error
	fetchErr error
	events   *eventFeed
	now      func() time.Time
}

// New creates the root model and mounts both views.
func New(stateMgr *state.Manager, cfg Config) Model {
	opts := cfg.Options
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	loader := cfg.Loader
	if loader == nil {
		loader = scene.EmbeddedLoader{}
	}
	table := cfg.Table
	if table == nil {
		table = shipment.DemoTable()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7B2CBF"))

	m := Model{
		state:    stateMgr,
		engine:   scene.NewEngine(opts, log, cfg.Metrics),
		flat:     flatmap.New(opts, log, cfg.Metrics),
		builder:  shipment.NewBuilder(table, opts.GlobeRadius, opts.ElevationFactor),
		loader:   loader,
		opts:     opts,
		log:      log.Named("ui"),
		keys:     DefaultKeyMap(),
		help:     help.New(),
		spinner:  sp,
		viewMode: cfg.View,
		env:      make(map[string]telemetry.Sample),
		events:   &eventFeed{},
		now:      time.Now,
	}

	m.engine.Mount()
	m.flat.Mount()
	m.engine.Subscribe(m.events.record)
	m.flat.Subscribe(m.events.record)

	if stateMgr != nil && stateMgr.HasData() {
		m.applySnapshot(stateMgr.Snapshot())
	}
	return m
}

// Engine returns the globe engine.
func (m Model) Engine() *scene.Engine { return m.engine }

// Flat returns the flat map.
func (m Model) Flat() *flatmap.Map { return m.flat }

// Mode returns the active view.
func (m Model) Mode() ViewMode { return m.viewMode }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		frameCmd(m.opts.FrameInterval),
		m.loadAssetsCmd(),
		m.spinner.Tick,
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if cmd := m.handleKey(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case tea.MouseMsg:
		m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true

	case FrameMsg:
		if m.quitting {
			return m, nil
		}
		globe := m.engine.Tick()
		flat := m.flat.Tick()
		loading := m.engine.Phase() == scene.PhaseLoading
		// Frames stop once neither view can advance.
		if globe || flat || loading {
			cmds = append(cmds, frameCmd(m.opts.FrameInterval))
		}

	case spinner.TickMsg:
		if m.engine.Phase() == scene.PhaseLoading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case AssetsLoadedMsg:
		m.engine.CompleteLoad(msg.Result)

	case DataUpdateMsg:
		m.applySnapshot(msg.Snapshot)

	case TelemetryMsg:
		m.env = make(map[string]telemetry.Sample, len(msg.Samples))
		for id, s := range msg.Samples {
			m.env[id] = s
			m.flat.SetEnvironment(id, s)
		}

	case ErrorMsg:
		m.fetchErr = msg.Error
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.engine.Unmount()
		m.flat.Unmount()
		return tea.Quit

	case key.Matches(msg, m.keys.SwitchView):
		m.switchView()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Reload):
		if m.engine.Reload() {
			return tea.Batch(m.loadAssetsCmd(), m.spinner.Tick)
		}
	}

	if m.viewMode == ViewFlat {
		m.handleFlatKey(msg)
		return nil
	}
	m.handleGlobeKey(msg)
	return nil
}

func (m *Model) handleGlobeKey(msg tea.KeyMsg) {
	e := m.engine
	switch {
	case key.Matches(msg, m.keys.Next):
		e.SelectNext()
	case key.Matches(msg, m.keys.Prev):
		e.SelectPrev()
	case key.Matches(msg, m.keys.Clear):
		e.ClearSelection()
	case key.Matches(msg, m.keys.Rotate):
		e.ToggleRotation()
	case key.Matches(msg, m.keys.Track):
		e.ToggleTracking()
	case key.Matches(msg, m.keys.ZoomIn):
		e.Zoom(-0.25)
	case key.Matches(msg, m.keys.ZoomOut):
		e.Zoom(0.25)
	case key.Matches(msg, m.keys.Left):
		e.Drag(-5, 0)
	case key.Matches(msg, m.keys.Right):
		e.Drag(5, 0)
	case key.Matches(msg, m.keys.Up):
		e.Drag(0, 5)
	case key.Matches(msg, m.keys.Down):
		e.Drag(0, -5)
	}
}

func (m *Model) handleFlatKey(msg tea.KeyMsg) {
	f := m.flat
	switch {
	case key.Matches(msg, m.keys.Next):
		f.SelectNext()
	case key.Matches(msg, m.keys.Prev):
		f.SelectPrev()
	case key.Matches(msg, m.keys.Clear):
		f.ClearSelection()
	case key.Matches(msg, m.keys.Rotate):
		f.ToggleRotation()
	case key.Matches(msg, m.keys.ZoomIn):
		f.Zoom(0.5)
	case key.Matches(msg, m.keys.ZoomOut):
		f.Zoom(-0.5)
	}
}

// switchView flips between globe and flat map, carrying the selection over.
func (m *Model) switchView() {
	if m.viewMode == ViewGlobe {
		m.viewMode = ViewFlat
		if id := m.engine.State().SelectedID; id != "" && id != m.flat.State().SelectedID {
			m.flat.SelectPoint(id)
		}
		return
	}
	m.viewMode = ViewGlobe
	if id := m.flat.State().SelectedID; id != "" && id != m.engine.State().SelectedID {
		m.engine.SelectPoint(id)
	}
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	if msg.Action != tea.MouseActionPress {
		return
	}
	w, h := m.mapSize()
	col, row := msg.X, msg.Y-headerLines

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		if m.viewMode == ViewFlat {
			m.flat.Zoom(0.5)
		} else {
			m.engine.Zoom(-0.25)
		}
		return
	case tea.MouseButtonWheelDown:
		if m.viewMode == ViewFlat {
			m.flat.Zoom(-0.5)
		} else {
			m.engine.Zoom(0.25)
		}
		return
	case tea.MouseButtonLeft:
	default:
		return
	}

	if col < 0 || col >= w || row < 0 || row >= h {
		return
	}

	if m.viewMode == ViewFlat {
		p := flatPoint(col, row, w, h)
		if id, ok := m.flat.HitTest(p.X, p.Y, 200/float64(w)); ok {
			m.flat.SelectPoint(id)
		}
		return
	}

	x, y := toNormalized(col, row, w, h)
	if id, ok := m.engine.HitTest(globeLens(w, h), x, y, 4/float64(w)); ok {
		m.engine.SelectPoint(id)
	}
}

// applySnapshot rebuilds the tracks of both views from a shipment list.
func (m *Model) applySnapshot(snap state.Snapshot) {
	m.snapshot = snap
	m.fetchErr = snap.LastError

	tracks, err := m.builder.Build(snap.Shipments)
	if err != nil {
		m.buildErr = err
		m.log.Error("build tracks: %v", err)
		return
	}
	m.buildErr = nil
	m.engine.SetTracks(tracks)
	m.flat.SetTracks(tracks)
	for id, s := range m.env {
		m.flat.SetEnvironment(id, s)
	}
}

func (m Model) loadAssetsCmd() tea.Cmd {
	engine, loader := m.engine, m.loader
	return func() tea.Msg {
		return AssetsLoadedMsg{Result: engine.LoadAssets(context.Background(), loader)}
	}
}

// mapSize returns the cell size of the map area, leaving room for the
// details panel when something is selected and the terminal is wide enough.
func (m Model) mapSize() (int, int) {
	w := m.width
	if m.selectedID() != "" && m.width >= panelWidth+44 {
		w = m.width - panelWidth - 6
	}
	h := m.height - headerLines - footerLines - lipgloss.Height(m.help.View(m.keys))
	if h < 0 {
		h = 0
	}
	return w, h
}

func (m Model) selectedID() string {
	if m.viewMode == ViewFlat {
		return m.flat.State().SelectedID
	}
	return m.engine.State().SelectedID
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Initializing..."
	}

	var content string
	switch m.viewMode {
	case ViewFlat:
		content = m.renderFlatView()
	default:
		content = m.renderGlobeView()
	}

	return m.renderHeader() + "\n" + content + "\n" + m.renderFooter()
}

func (m Model) renderGlobeView() string {
	_, h := m.mapSize()
	e := m.engine

	switch e.Phase() {
	case scene.PhaseIdle, scene.PhaseLoading:
		msg := m.spinner.View() + " Loading globe assets..."
		return lipgloss.Place(m.width, h, lipgloss.Center, lipgloss.Center, msg)
	case scene.PhaseFallback:
		panel := fallbackPanel(e.Err(), e.Tracks(), m.width)
		return lipgloss.Place(m.width, h, lipgloss.Center, lipgloss.Center, panel)
	case scene.PhaseUnmounted:
		return ""
	}

	w, h := m.mapSize()
	globe := renderGlobe(e, w, h)
	tr, ok := e.Selected()
	if !ok || w == m.width {
		return globe
	}

	st := e.State()
	panel := detailsPanel{
		track:    tr,
		env:      m.envFor(tr.ID),
		mode:     st.CameraMode,
		tracking: st.IsTracking,
		globe:    true,
		now:      m.now(),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, globe, "  ", panel.render())
}

func (m Model) renderFlatView() string {
	w, h := m.mapSize()
	flat := renderFlat(m.flat, m.engine.Texture(), w, h)

	id := m.flat.State().SelectedID
	mk, ok := m.flat.Marker(id)
	if !ok || w == m.width {
		return flat
	}
	panel := detailsPanel{track: mk.Track, now: m.now()}
	if mk.HasEnv {
		env := mk.Env
		panel.env = &env
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, flat, "  ", panel.render())
}

func (m Model) envFor(id string) *telemetry.Sample {
	s, ok := m.env[id]
	if !ok {
		return nil
	}
	s = s.Normalize()
	return &s
}

func (m Model) renderHeader() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#9D4EDD"))
	title := titleStyle.Render("◍ ls-freight") + dimStyle.Render(" v"+version.Version)
	return "  " + title + "  " + m.renderTabs() + "\n  " + m.renderStatusLine()
}

func (m Model) renderTabs() string {
	tabs := []string{"Globe", "Flat"}
	activeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9D4EDD")).Bold(true)

	var parts []string
	for i, tab := range tabs {
		if ViewMode(i) == m.viewMode {
			parts = append(parts, activeStyle.Render("▶ "+tab))
		} else {
			parts = append(parts, dimStyle.Render("  "+tab))
		}
	}
	return strings.Join(parts, "  ")
}

// renderStatusLine summarizes the view state and the status counts.
func (m Model) renderStatusLine() string {
	var parts []string

	if m.viewMode == ViewFlat {
		st := m.flat.State()
		parts = append(parts, fmt.Sprintf("zoom %.1fx", st.Scale), onOff("drift", st.IsRotating))
	} else {
		st := m.engine.State()
		parts = append(parts,
			m.engine.Phase().String(),
			fmt.Sprintf("zoom %.2f", st.Zoom),
			onOff("spin", st.IsRotating),
			onOff("track", st.IsTracking),
		)
		if st.CameraMode == camera.ModeTracking {
			parts = append(parts, "following")
		}
		if m.engine.TimedOut() {
			parts = append(parts, "no texture")
		}
	}

	line := dimStyle.Render(strings.Join(parts, " · "))
	for _, s := range shipment.AllStatuses() {
		n := m.snapshot.StatusCounts[s]
		if n == 0 {
			continue
		}
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(shipment.ColorFor(s)))
		line += "  " + style.Render(fmt.Sprintf("● %d %s", n, s.Label()))
	}
	return line
}

func (m Model) renderFooter() string {
	var status string
	switch {
	case m.buildErr != nil:
		status = errorStyle.Render("ERROR: " + m.buildErr.Error())
	case m.fetchErr != nil:
		status = errorStyle.Render("ERROR: " + m.fetchErr.Error())
	case !m.snapshot.LastFetch.IsZero():
		age := m.now().Sub(m.snapshot.LastFetch).Round(time.Second)
		status = dimStyle.Render(fmt.Sprintf("%d shipments from %s, %s ago",
			len(m.snapshot.Shipments), orDash(m.snapshot.Source), age))
	default:
		status = dimStyle.Render("Waiting for data...")
	}
	if m.events.last != "" {
		status += dimStyle.Render("  |  " + m.events.last)
	}

	return "  " + status + "\n  " + m.help.View(m.keys)
}

func onOff(name string, on bool) string {
	if on {
		return name + " on"
	}
	return name + " off"
}

func frameCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return FrameMsg(t)
	})
}

// SendDataUpdate creates a command that sends a data update message.
func SendDataUpdate(snapshot state.Snapshot) tea.Cmd {
	return func() tea.Msg {
		return DataUpdateMsg{Snapshot: snapshot}
	}
}

// SendError creates a command that sends an error message.
func SendError(err error) tea.Cmd {
	return func() tea.Msg {
		return ErrorMsg{Error: err}
	}
}
