// Package overlay provides the outline geometry and the target layout
// engine that derives alignment targets from it.
package overlay

import (
	"math"

	"github.com/ayusman/palmgate/internal/geometry"
)

// Outline is a closed polyline in overlay-local coordinates describing
// the shape the user must align with.
type Outline struct {
	points []geometry.Point
}

// NewOutline creates an outline from the given vertices. The polyline is
// treated as closed: an implicit segment joins the last vertex back to
// the first.
func NewOutline(points []geometry.Point) Outline {
	return Outline{points: points}
}

// Points returns the outline vertices.
func (o Outline) Points() []geometry.Point {
	return o.points
}

// Length returns the total perimeter of the closed outline.
func (o Outline) Length() float64 {
	if len(o.points) < 2 {
		return 0
	}

	var total float64
	for i := range o.points {
		next := o.points[(i+1)%len(o.points)]
		total += geometry.Dist(o.points[i], next)
	}
	return total
}

// Bounds returns the bounding box of the outline vertices.
func (o Outline) Bounds() geometry.Rect {
	if len(o.points) == 0 {
		return geometry.Rect{}
	}

	minX, minY := o.points[0].X, o.points[0].Y
	maxX, maxY := minX, minY
	for _, p := range o.points[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}

	return geometry.Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Sample returns n points equally spaced by arc length along the closed
// outline. Returns nil when the outline has no measurable length.
func (o Outline) Sample(n int) []geometry.Point {
	total := o.Length()
	if total == 0 || n <= 0 {
		return nil
	}

	samples := make([]geometry.Point, 0, n)
	step := total / float64(n)

	seg := 0
	segStart := 0.0 // arc length at the start of the current segment
	segLen := geometry.Dist(o.points[0], o.points[1%len(o.points)])

	for i := 0; i < n; i++ {
		s := float64(i) * step

		// Advance to the segment containing arc position s.
		for s > segStart+segLen && seg < len(o.points)-1 {
			segStart += segLen
			seg++
			segLen = geometry.Dist(o.points[seg], o.points[(seg+1)%len(o.points)])
		}

		a := o.points[seg]
		b := o.points[(seg+1)%len(o.points)]

		var t float64
		if segLen > 0 {
			t = (s - segStart) / segLen
		}
		samples = append(samples, geometry.Point{
			X: a.X + t*(b.X-a.X),
			Y: a.Y + t*(b.Y-a.Y),
		})
	}

	return samples
}

// DefaultHandOutline returns the built-in right-hand silhouette used by
// the alignment overlay: palm facing the camera, fingers up, thumb on
// the left, drawn in a 300x380 local box.
func DefaultHandOutline() Outline {
	// Each finger is emitted as rise, apex, fall so the layout engine
	// sees one fingertip peak per digit. Slopes are slightly asymmetric
	// to keep the apex a strict extremum after smoothing.
	return NewOutline([]geometry.Point{
		// Left wrist corner, up the thumb side of the palm.
		{X: 95, Y: 372},
		{X: 72, Y: 320},
		{X: 52, Y: 262},
		// Thumb.
		{X: 36, Y: 215},
		{X: 30, Y: 178},
		{X: 38, Y: 148}, // thumb tip
		{X: 52, Y: 172},
		{X: 64, Y: 205},
		{X: 76, Y: 232},
		// Valley between thumb and index.
		{X: 88, Y: 210},
		// Index finger.
		{X: 96, Y: 120},
		{X: 104, Y: 42}, // index tip
		{X: 118, Y: 110},
		{X: 124, Y: 172},
		// Valley index/middle.
		{X: 132, Y: 178},
		// Middle finger.
		{X: 142, Y: 96},
		{X: 151, Y: 24}, // middle tip
		{X: 164, Y: 98},
		{X: 170, Y: 170},
		// Valley middle/ring.
		{X: 178, Y: 176},
		// Ring finger.
		{X: 188, Y: 106},
		{X: 197, Y: 44}, // ring tip
		{X: 209, Y: 112},
		{X: 214, Y: 182},
		// Valley ring/pinky.
		{X: 222, Y: 192},
		// Pinky.
		{X: 232, Y: 132},
		{X: 241, Y: 82}, // pinky tip
		{X: 252, Y: 136},
		{X: 258, Y: 196},
		// Down the outer edge of the palm to the wrist.
		{X: 264, Y: 252},
		{X: 258, Y: 310},
		{X: 244, Y: 372},
		// Wrist base.
		{X: 170, Y: 380},
	})
}
