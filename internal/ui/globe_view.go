package ui

import (
	"math"

	"github.com/charmbracelet/lipgloss"
	"github.com/golang/geo/r3"

	"github.com/litescript/ls-freight/internal/camera"
	"github.com/litescript/ls-freight/internal/geo"
	"github.com/litescript/ls-freight/internal/scene"
	"github.com/litescript/ls-freight/internal/shipment"
)

const (
	// Terminal cells are about twice as tall as they are wide.
	cellAspect = 2.0

	arcSamples = 48

	glyphMover         = '●'
	glyphMoverPulse    = '◉'
	glyphMoverSelected = '◆'
	glyphOrigin        = '○'
	glyphDestination   = '◎'
	glyphArc           = '·'
	glyphArcSelected   = '•'

	colorSelected = lipgloss.Color("229") // bright gold
	colorLabel    = lipgloss.Color("255")
)

// Land and ocean ramps, dark to lit.
var (
	landShades  = []rune{'.', ':', '+', '#'}
	oceanShades = []rune{' ', '.', '·', '~'}
	bareShades  = []rune{'.', '░', '▒', '▓'}

	landColors  = []lipgloss.Color{"22", "28", "34", "70"}
	oceanColors = []lipgloss.Color{"17", "18", "19", "25"}
	bareColors  = []lipgloss.Color{"238", "241", "244", "248"}
)

// globeLens returns the lens for a map area of w×h cells.
func globeLens(w, h int) camera.Lens {
	return camera.Lens{
		FovYDeg: camera.DefaultFovYDeg,
		Aspect:  float64(w) / (float64(h) * cellAspect),
	}
}

// toCell maps normalized screen coordinates to a cell.
func toCell(x, y float64, w, h int) (int, int) {
	col := int(math.Floor((x + 1) / 2 * float64(w)))
	row := int(math.Floor((1 - y) / 2 * float64(h)))
	return col, row
}

// toNormalized maps the centre of a cell to normalized screen coordinates.
func toNormalized(col, row, w, h int) (float64, float64) {
	x := (float64(col)+0.5)/float64(w)*2 - 1
	y := 1 - (float64(row)+0.5)/float64(h)*2
	return x, y
}

// renderGlobe ray-casts the globe into a w×h canvas and draws every routed
// track on top of it.
func renderGlobe(e *scene.Engine, w, h int) string {
	if w <= 0 || h <= 0 {
		return ""
	}
	c := newCanvas(w, h)
	st := e.State()
	pose := st.Camera
	lens := globeLens(w, h)
	radius := e.Options().GlobeRadius
	tex := e.Texture()

	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			x, y := toNormalized(col, row, w, h)
			dir := lens.Ray(pose, x, y)
			t, hit := camera.IntersectSphere(pose.Position, dir, radius)
			if !hit {
				continue
			}
			p := pose.Position.Add(dir.Mul(t))
			light := p.Normalize().Dot(dir.Mul(-1))
			level := shadeLevel(light)

			switch {
			case tex == nil:
				c.set(col, row, bareShades[level], bareColors[level])
			case tex.Land(geo.Unproject(p)):
				c.set(col, row, landShades[level], landColors[level])
			default:
				c.set(col, row, oceanShades[level], oceanColors[level])
			}
		}
	}

	project := func(v r3.Vector) (int, int, bool) {
		if pose.Occluded(v, radius) {
			return 0, 0, false
		}
		x, y, _, ok := lens.Project(pose, v)
		if !ok {
			return 0, 0, false
		}
		col, row := toCell(x, y, w, h)
		return col, row, c.inside(col, row)
	}

	// Arcs first so markers draw over them.
	for _, tr := range e.Tracks() {
		if !tr.Routed {
			continue
		}
		selected := tr.ID == st.SelectedID
		color := lipgloss.Color(tr.Color())
		glyph := glyphArc
		if selected {
			glyph = glyphArcSelected
		}

		prevCol, prevRow, havePrev := 0, 0, false
		for _, pt := range tr.Curve.Sample(arcSamples) {
			col, row, ok := project(pt)
			if !ok {
				havePrev = false
				continue
			}
			if havePrev && abs(col-prevCol) < w/2 {
				c.line(prevCol, prevRow, col, row, glyph, color)
			} else {
				c.set(col, row, glyph, color)
			}
			prevCol, prevRow, havePrev = col, row, true
		}
	}

	var label struct {
		col, row int
		text     string
		ok       bool
	}
	for _, mk := range e.Markers() {
		col, row, ok := project(mk.Point)
		if !ok {
			continue
		}
		tr, _ := e.Track(mk.ID)
		color := lipgloss.Color(tr.Color())
		selected := mk.ID == st.SelectedID

		switch mk.Kind {
		case scene.MarkerOrigin:
			c.set(col, row, glyphOrigin, color)
		case scene.MarkerDestination:
			c.set(col, row, glyphDestination, color)
		case scene.MarkerMover:
			switch {
			case selected:
				c.setBold(col, row, glyphMoverSelected, colorSelected)
				label.col, label.row, label.text, label.ok = col+2, row, moverLabel(tr), true
			case st.PulseScale() > 1.15:
				c.setBold(col, row, glyphMoverPulse, color)
			default:
				c.set(col, row, glyphMover, color)
			}
		}
	}
	if label.ok {
		c.text(label.col, label.row, label.text, colorLabel)
	}

	return c.String()
}

// shadeLevel buckets a Lambert term into the four-step ramps.
func shadeLevel(light float64) int {
	switch {
	case light > 0.75:
		return 3
	case light > 0.5:
		return 2
	case light > 0.25:
		return 1
	default:
		return 0
	}
}

func moverLabel(tr shipment.Track) string {
	return "#" + tr.ID + " " + tr.Status.Label()
}
