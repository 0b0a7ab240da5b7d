// Package detector provides hand landmark detection interfaces and types
// for palm alignment.
package detector

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// TrackedPoints lists the six landmark indices used for alignment
// correspondence: the five digit tips ordered thumb to pinky, plus the
// wrist as a stand-in for the palm center. Index i corresponds to
// target id i.
var TrackedPoints = [6]int{ThumbTip, IndexTip, MiddleTip, RingTip, PinkyTip, Wrist}

// NumTracked is the number of tracked correspondence points.
const NumTracked = len(TrackedPoints)

// Point3D represents a normalized landmark position within the video
// frame: x and y in [0,1], z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents one detected hand. Points usually holds all
// 21 landmarks, but a tracking engine may deliver a partial set; callers
// must check Resolvable before indexing.
type HandLandmarks struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"` // "Left" or "Right"
	Score      float64   `json:"score"`
}

// Resolvable reports whether the landmark at index i is present in this
// set.
func (h *HandLandmarks) Resolvable(i int) bool {
	return h != nil && i >= 0 && i < len(h.Points)
}

// TrackedResolvable reports whether all six tracked correspondence
// points are present.
func (h *HandLandmarks) TrackedResolvable() bool {
	for _, idx := range TrackedPoints {
		if !h.Resolvable(idx) {
			return false
		}
	}
	return true
}
