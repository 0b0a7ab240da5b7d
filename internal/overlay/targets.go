package overlay

import (
	"errors"
	"math"
	"sort"

	"github.com/ayusman/palmgate/internal/geometry"
)

// Layout tuning constants. Fractions are relative to the outline
// bounding box.
const (
	// SampleCount is the number of equally spaced arc-length samples
	// taken along the outline.
	SampleCount = 2400
	// smoothHalfWindow is the half-window of the centered moving
	// average applied to the sampled y sequence.
	smoothHalfWindow = 7
	// topGateFrac restricts fingertip candidates to the upper region of
	// the shape.
	topGateFrac = 0.72
	// minDxFrac is the minimum horizontal separation between two
	// fingertip targets.
	minDxFrac = 0.12
	// backfillFactor relaxes the separation when fewer than five tips
	// are found on the first pass.
	backfillFactor = 0.6
	// tipYOffset nudges fingertip targets down for visual alignment.
	tipYOffset = 4.0
	// palmYFrac places the palm target inside the shape.
	palmYFrac = 0.63
)

// NumTargets is the number of alignment targets: five fingertips plus
// the palm center.
const NumTargets = 6

// ErrNotMeasurable is returned when the outline has no measurable
// geometry yet; the caller should retry once the outline is laid out.
var ErrNotMeasurable = errors.New("overlay: outline not measurable")

// ErrTooFewPeaks is returned when fewer than five fingertip peaks can be
// derived from the outline; like ErrNotMeasurable it is retryable, and
// no degenerate targets are produced.
var ErrTooFewPeaks = errors.New("overlay: fewer than five fingertip peaks")

// Target is a fixed point in overlay-local space a tracked landmark must
// approach. IDs 0-4 are thumb through pinky tips ordered by ascending x;
// id 5 is the palm center.
type Target struct {
	ID  int            `json:"id"`
	Pos geometry.Point `json:"pos"`
}

// Registry is the indexed target set produced once per session and
// passed by reference into the alignment evaluator.
type Registry [NumTargets]Target

// LayoutTargets derives the six alignment targets from the outline
// geometry. The result is a pure function of the outline: identical
// geometry yields identical targets.
func LayoutTargets(o Outline) (Registry, error) {
	var reg Registry

	if o.Length() == 0 {
		return reg, ErrNotMeasurable
	}

	samples := o.Sample(SampleCount)
	ys := smoothY(samples, smoothHalfWindow)
	bb := o.Bounds()
	topGate := bb.Y + bb.H*topGateFrac

	// Strict local minima of smoothed y in the fingertip region.
	// Screen y grows downward, so fingertips are y minima.
	var candidates []int
	for i := 1; i < len(ys)-1; i++ {
		if ys[i] < ys[i-1] && ys[i] < ys[i+1] && ys[i] < topGate {
			candidates = append(candidates, i)
		}
	}

	// Most prominent peak (smallest smoothed y) first.
	sort.Slice(candidates, func(a, b int) bool {
		return ys[candidates[a]] < ys[candidates[b]]
	})

	minDx := bb.W * minDxFrac
	picked, rest := pickSpaced(candidates, nil, samples, minDx)
	if len(picked) < 5 {
		// Backfill with a relaxed separation over the leftovers.
		picked, _ = pickSpaced(rest, picked, samples, minDx*backfillFactor)
	}
	if len(picked) < 5 {
		return reg, ErrTooFewPeaks
	}
	picked = picked[:5]

	// Thumb-to-pinky ordering by ascending x.
	sort.Slice(picked, func(a, b int) bool {
		return samples[picked[a]].X < samples[picked[b]].X
	})

	for id, idx := range picked {
		reg[id] = Target{
			ID: id,
			Pos: geometry.Point{
				X: samples[idx].X,
				Y: ys[idx] + tipYOffset,
			},
		}
	}

	// Palm target: middle fingertip x, fixed depth into the shape.
	reg[5] = Target{
		ID: 5,
		Pos: geometry.Point{
			X: reg[2].Pos.X,
			Y: bb.Y + bb.H*palmYFrac,
		},
	}

	return reg, nil
}

// pickSpaced greedily selects candidates whose x differs from every
// already-picked candidate's x by more than minDx. It returns the picks
// (including any seeded in) and the rejected leftovers in order.
func pickSpaced(candidates, seed []int, samples []geometry.Point, minDx float64) (picked, rest []int) {
	picked = append(picked, seed...)

	for _, c := range candidates {
		if len(picked) >= 5 {
			rest = append(rest, c)
			continue
		}
		ok := true
		for _, p := range picked {
			if math.Abs(samples[c].X-samples[p].X) <= minDx {
				ok = false
				break
			}
		}
		if ok {
			picked = append(picked, c)
		} else {
			rest = append(rest, c)
		}
	}

	return picked, rest
}

// smoothY applies a centered moving average of the given half-window to
// the y coordinates of the samples. Boundary samples average over the
// in-range neighbors only.
func smoothY(samples []geometry.Point, half int) []float64 {
	out := make([]float64, len(samples))
	for i := range samples {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half
		if hi > len(samples)-1 {
			hi = len(samples) - 1
		}

		var sum float64
		for j := lo; j <= hi; j++ {
			sum += samples[j].Y
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}
