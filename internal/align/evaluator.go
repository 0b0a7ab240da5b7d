// Package align scores how closely tracked hand landmarks match the
// overlay targets.
package align

import (
	"math"

	"github.com/ayusman/palmgate/internal/detector"
	"github.com/ayusman/palmgate/internal/geometry"
	"github.com/ayusman/palmgate/internal/overlay"
)

// ThresholdFrac scales the alignment threshold by the smaller overlay
// dimension.
const ThresholdFrac = 0.10

// Result is the per-frame alignment verdict. Aligned holds iff all six
// tracked points were resolvable and every distance is within the
// threshold.
type Result struct {
	Distances [detector.NumTracked]float64 `json:"distances"`
	Aligned   bool                         `json:"aligned"`
}

// Evaluator computes per-frame alignment between tracked landmarks and
// the target registry. Targets are looked up by id from the registry
// populated once at session start; the evaluator performs no per-frame
// target recomputation.
//
// The verdict carries no hysteresis: it is derived fresh from the
// current transform and landmarks on every call. Debounce against
// flicker is the capture state machine's job.
type Evaluator struct {
	targets *overlay.Registry
	content geometry.Rect // video content rect in screen space
	bounds  geometry.Rect // overlay rect in screen space
	toScr   geometry.Transform
}

// NewEvaluator creates an evaluator over the given target registry. The
// content rect is where video pixels actually land on screen (after
// letterboxing); bounds is the overlay's on-screen rectangle; overlayToScreen
// maps overlay-local coordinates into screen space. A nil transform
// falls back to the identity.
func NewEvaluator(targets *overlay.Registry, content, bounds geometry.Rect, overlayToScreen *geometry.Transform) *Evaluator {
	toScr := geometry.Identity()
	if overlayToScreen != nil {
		toScr = *overlayToScreen
	}
	return &Evaluator{
		targets: targets,
		content: content,
		bounds:  bounds,
		toScr:   toScr,
	}
}

// Threshold returns the maximum permitted pixel distance between every
// tracked point and its target.
func (e *Evaluator) Threshold() float64 {
	return math.Min(e.bounds.W, e.bounds.H) * ThresholdFrac
}

// SetContent updates the video content rectangle, e.g. after a resize.
func (e *Evaluator) SetContent(content geometry.Rect) {
	e.content = content
}

// Evaluate maps each tracked landmark and its target into screen space
// and measures the Euclidean pixel distance. A partial landmark set is
// never an error: it simply yields Aligned=false.
func (e *Evaluator) Evaluate(hand *detector.HandLandmarks) Result {
	var res Result

	if hand == nil || !hand.TrackedResolvable() {
		return res
	}

	threshold := e.Threshold()
	res.Aligned = true

	for id, idx := range detector.TrackedPoints {
		lm := hand.Points[idx]
		lmScreen := geometry.MapNormalized(lm.X, lm.Y, e.content)
		targetScreen := e.toScr.Apply(e.targets[id].Pos)

		d := geometry.Dist(lmScreen, targetScreen)
		res.Distances[id] = d
		if d > threshold {
			res.Aligned = false
		}
	}

	return res
}
