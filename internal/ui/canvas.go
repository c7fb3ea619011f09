package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// canvas is a grid of styled cells drawn by the map views.
type canvas struct {
	w, h   int
	runes  [][]rune
	colors [][]lipgloss.Color
	bold   [][]bool
}

func newCanvas(w, h int) *canvas {
	c := &canvas{w: w, h: h}
	c.runes = make([][]rune, h)
	c.colors = make([][]lipgloss.Color, h)
	c.bold = make([][]bool, h)
	for y := 0; y < h; y++ {
		c.runes[y] = make([]rune, w)
		c.colors[y] = make([]lipgloss.Color, w)
		c.bold[y] = make([]bool, w)
		for x := 0; x < w; x++ {
			c.runes[y][x] = ' '
		}
	}
	return c
}

func (c *canvas) inside(x, y int) bool {
	return x >= 0 && x < c.w && y >= 0 && y < c.h
}

func (c *canvas) set(x, y int, r rune, color lipgloss.Color) {
	if !c.inside(x, y) {
		return
	}
	c.runes[y][x] = r
	c.colors[y][x] = color
	c.bold[y][x] = false
}

func (c *canvas) setBold(x, y int, r rune, color lipgloss.Color) {
	if !c.inside(x, y) {
		return
	}
	c.set(x, y, r, color)
	c.bold[y][x] = true
}

// text writes s starting at (x, y), clipped at the right edge.
func (c *canvas) text(x, y int, s string, color lipgloss.Color) {
	for i, r := range []rune(s) {
		c.setBold(x+i, y, r, color)
	}
}

// line draws a Bresenham line of r between two cells.
func (c *canvas) line(x0, y0, x1, y1 int, r rune, color lipgloss.Color) {
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	e := dx + dy
	for {
		c.set(x0, y0, r, color)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// String renders the grid, styling runs of equal color together.
func (c *canvas) String() string {
	var b strings.Builder
	for y := 0; y < c.h; y++ {
		start := 0
		for x := 1; x <= c.w; x++ {
			if x < c.w && c.colors[y][x] == c.colors[y][start] && c.bold[y][x] == c.bold[y][start] {
				continue
			}
			run := string(c.runes[y][start:x])
			if col := c.colors[y][start]; col != "" {
				style := lipgloss.NewStyle().Foreground(col).Bold(c.bold[y][start])
				run = style.Render(run)
			}
			b.WriteString(run)
			start = x
		}
		if y < c.h-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
