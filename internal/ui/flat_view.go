package ui

import (
	"math"

	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-freight/internal/flatmap"
	"github.com/litescript/ls-freight/internal/scene"
	"github.com/litescript/ls-freight/internal/telemetry"
)

const flatArcSamples = 32

var (
	colorFlatLand  = lipgloss.Color("28")
	colorFlatOcean = lipgloss.Color("18")
	colorGraticule = lipgloss.Color("238")
)

// flatCell maps a viewport point in percent to a cell. Percent Y grows to
// the north, so rows count down from 100.
func flatCell(p flatmap.Point, w, h int) (int, int) {
	col := int(math.Floor(p.X / 100 * float64(w)))
	row := int(math.Floor((100 - p.Y) / 100 * float64(h)))
	return col, row
}

// flatPoint maps the centre of a cell to a viewport point in percent.
func flatPoint(col, row, w, h int) flatmap.Point {
	return flatmap.Point{
		X: (float64(col) + 0.5) / float64(w) * 100,
		Y: 100 - (float64(row)+0.5)/float64(h)*100,
	}
}

// renderFlat draws the flat map. tex may be nil, in which case a graticule
// stands in for the coastline.
func renderFlat(m *flatmap.Map, tex *scene.Texture, w, h int) string {
	if w <= 0 || h <= 0 {
		return ""
	}
	c := newCanvas(w, h)
	st := m.State()
	cellX := 100 / float64(w) / st.Scale
	cellY := 100 / float64(h) / st.Scale

	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			mp, ok := m.Untransform(flatPoint(col, row, w, h))
			if !ok {
				continue
			}
			if tex != nil {
				if tex.Land(flatmap.Unproject(mp)) {
					c.set(col, row, '▒', colorFlatLand)
				} else {
					c.set(col, row, '·', colorFlatOcean)
				}
				continue
			}
			// Every 30° of longitude and latitude.
			if math.Mod(mp.X, 100.0/12) < cellX || math.Mod(mp.Y, 100.0/6) < cellY {
				c.set(col, row, '·', colorGraticule)
			}
		}
	}

	markers := m.Markers()
	for _, mk := range markers {
		if !mk.Routed {
			continue
		}
		color := lipgloss.Color(mk.Track.Color())
		glyph := glyphArc
		if mk.Track.ID == st.SelectedID {
			glyph = glyphArcSelected
		}
		prevCol, prevRow, havePrev := 0, 0, false
		for i := 0; i <= flatArcSamples; i++ {
			p := m.Transform(mk.Arc.At(float64(i) / flatArcSamples))
			col, row := flatCell(p, w, h)
			// A jump across the wrap seam breaks the line.
			if havePrev && abs(col-prevCol) < w/2 {
				c.line(prevCol, prevRow, col, row, glyph, color)
			} else {
				c.set(col, row, glyph, color)
			}
			prevCol, prevRow, havePrev = col, row, true
		}
	}

	for _, mk := range markers {
		mv, ok := mk.Mover()
		if !ok {
			continue
		}
		col, row := flatCell(m.Transform(mv), w, h)
		color := lipgloss.Color(mk.Track.Color())
		if mk.Track.ID == st.SelectedID {
			c.setBold(col, row, glyphMoverSelected, colorSelected)
			c.text(col+2, row, moverLabel(mk.Track), colorLabel)
			continue
		}
		if mk.HasEnv && mk.Env.Health == telemetry.HealthCritical {
			c.setBold(col, row, '!', colorForHealth(mk.Env.Health))
			continue
		}
		c.set(col, row, glyphMover, color)
	}

	return c.String()
}
