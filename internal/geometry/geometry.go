// Package geometry provides coordinate mapping between the video frame,
// screen pixel space and the overlay drawing space.
package geometry

import "math"

// Point represents a 2D point in pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect represents an axis-aligned rectangle in pixel space.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Aspect returns the width/height ratio of the rectangle.
// Returns 0 for rectangles with no height.
func (r Rect) Aspect() float64 {
	if r.H == 0 {
		return 0
	}
	return r.W / r.H
}

// Dist returns the Euclidean distance between two points.
func Dist(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Letterbox computes the content rectangle occupied by a video of the
// given source aspect ratio when fitted inside container, preserving
// aspect ratio and centering along the non-matching axis.
//
// A source wider than the container is letterboxed (bars above and
// below); a narrower source is pillarboxed (bars left and right).
func Letterbox(container Rect, sourceAspect float64) Rect {
	if container.Empty() || sourceAspect <= 0 {
		return container
	}

	containerAspect := container.Aspect()

	if sourceAspect > containerAspect {
		// Content fills the width, bars on top and bottom.
		h := container.W / sourceAspect
		return Rect{
			X: container.X,
			Y: container.Y + (container.H-h)/2,
			W: container.W,
			H: h,
		}
	}

	// Content fills the height, bars on left and right.
	w := container.H * sourceAspect
	return Rect{
		X: container.X + (container.W-w)/2,
		Y: container.Y,
		W: w,
		H: container.H,
	}
}

// MapNormalized maps a normalized [0,1] coordinate pair onto the given
// content rectangle in screen space.
func MapNormalized(nx, ny float64, content Rect) Point {
	return Point{
		X: content.X + nx*content.W,
		Y: content.Y + ny*content.H,
	}
}

// Transform is a 2D affine transform:
//
//	x' = A*x + C*y + Tx
//	y' = B*x + D*y + Ty
type Transform struct {
	A, B, C, D, Tx, Ty float64
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{A: 1, D: 1}
}

// Apply transforms the point p.
func (t Transform) Apply(p Point) Point {
	return Point{
		X: t.A*p.X + t.C*p.Y + t.Tx,
		Y: t.B*p.X + t.D*p.Y + t.Ty,
	}
}

// Invert returns the inverse transform and true, or the identity
// transform and false when the matrix is singular.
func (t Transform) Invert() (Transform, bool) {
	det := t.A*t.D - t.B*t.C
	if math.Abs(det) < 1e-12 {
		return Identity(), false
	}

	inv := Transform{
		A: t.D / det,
		B: -t.B / det,
		C: -t.C / det,
		D: t.A / det,
	}
	inv.Tx = -(inv.A*t.Tx + inv.C*t.Ty)
	inv.Ty = -(inv.B*t.Tx + inv.D*t.Ty)

	return inv, true
}

// Scale returns a transform scaling by sx, sy then translating by tx, ty.
func Scale(sx, sy, tx, ty float64) Transform {
	return Transform{A: sx, D: sy, Tx: tx, Ty: ty}
}

// FitRect returns the transform that maps src onto the largest
// aspect-preserving rectangle centered inside dst, along with that
// rectangle. Degenerate rectangles yield the identity transform.
func FitRect(src, dst Rect) (Transform, Rect) {
	if src.Empty() || dst.Empty() {
		return Identity(), dst
	}

	fitted := Letterbox(dst, src.Aspect())
	s := fitted.W / src.W
	return Scale(s, s, fitted.X-src.X*s, fitted.Y-src.Y*s), fitted
}
