// Package triangle holds the interactive state of the overlay triangle: an
// upright equilateral triangle kept inside the screen, dragged by its apex
// and resized with the wheel.
package triangle

import (
	"image"
	"math"
)

var sqrt3 = math.Sqrt(3)

// minSide is the smallest side length Zoom accepts.
const minSide = 8

// Model is a triangle scoped to a screen. Coordinates are pixels with y
// pointing down; the apex is the top vertex.
type Model struct {
	screenW, screenH float64
	topX, topY       float64
	length           float64

	points [3]image.Point
}

// NewModel returns the triangle centered on a 1280x720 screen.
func NewModel() *Model {
	m := &Model{}
	m.Resize(1280, 720)
	return m
}

// Resize rescopes the triangle to a screen of the given size, moving the
// apex to the screen center and picking the largest side that fits. It
// returns false and changes nothing when either dimension is unchanged.
func (m *Model) Resize(width, height int) bool {
	if float64(width) == m.screenW || float64(height) == m.screenH {
		return false
	}
	m.screenW = math.Max(0, float64(width))
	m.screenH = math.Max(0, float64(height))

	m.topX = m.screenW / 2
	m.topY = m.screenH / 2
	m.length = math.Min(m.topY/sqrt3, m.topX/2)
	m.update()
	return true
}

// Move shifts the apex by (dx, dy).
func (m *Model) Move(dx, dy int) {
	m.MoveTo(int(m.topX)+dx, int(m.topY)+dy)
}

// MoveTo places the apex at (x, y), clamped so the triangle stays on the
// screen.
func (m *Model) MoveTo(x, y int) {
	xMin := m.length / 2
	xMax := math.Max(xMin, m.screenW-xMin)
	yMax := math.Max(0, m.screenH-m.length/2*sqrt3)
	m.topX = clamp(float64(x), xMin, xMax)
	m.topY = clamp(float64(y), 0, yMax)
	m.update()
}

// Zoom changes the side length by d pixels.
func (m *Model) Zoom(d int) {
	m.ZoomTo(int(math.Floor(m.length)) + d)
}

// ZoomTo sets the side length, clamped between 8 pixels and the largest
// triangle the screen fits below the current apex.
func (m *Model) ZoomTo(side int) {
	xLimit := math.Min(m.screenW-m.topX, m.topX) * 2
	yLimit := (m.screenH - m.topY) * 2 / sqrt3
	upper := math.Max(minSide, math.Min(xLimit, yLimit))
	m.length = clamp(float64(side), minSide, upper)
	m.update()
}

// Top returns the apex.
func (m *Model) Top() image.Point {
	return image.Pt(int(m.topX), int(m.topY))
}

// Side returns the side length in whole pixels.
func (m *Model) Side() int { return int(m.length) }

// Vertices returns the apex, the bottom-right and the bottom-left vertex.
func (m *Model) Vertices() [3]image.Point { return m.points }

func (m *Model) update() {
	k := m.length / 2
	x, y := m.topX, m.topY
	m.points[0] = image.Pt(int(x), int(y))
	m.points[1] = image.Pt(int(x+k), int(y+k*sqrt3))
	m.points[2] = image.Pt(int(x-k), m.points[1].Y)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
