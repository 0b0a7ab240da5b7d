package detector

import (
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results, either as a sticky
// result or as a per-call sequence.
type MockDetector struct {
	hands []HandLandmarks
	queue [][]HandLandmarks
	err   error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by every Detect call
// once the queue is drained.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.hands = hands
}

// QueueHands appends a one-shot result; queued results are returned in
// order before the sticky result applies.
func (m *MockDetector) QueueHands(hands []HandLandmarks) {
	m.queue = append(m.queue, hands)
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(m.queue) > 0 {
		hands := m.queue[0]
		m.queue = m.queue[1:]
		return hands, nil
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// OpenPalmLandmarks returns a preset HandLandmarks representing an open
// palm facing the camera, fingers spread, roughly centered in the frame.
func OpenPalmLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
		Points:     make([]Point3D, NumLandmarks),
	}

	// Wrist at the bottom center
	landmarks.Points[Wrist] = Point3D{X: 0.50, Y: 0.82, Z: 0.0}

	// Thumb extended to the side
	landmarks.Points[ThumbCMC] = Point3D{X: 0.42, Y: 0.76, Z: 0.02}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.35, Y: 0.70, Z: 0.03}
	landmarks.Points[ThumbIP] = Point3D{X: 0.30, Y: 0.64, Z: 0.03}
	landmarks.Points[ThumbTip] = Point3D{X: 0.27, Y: 0.58, Z: 0.03}

	// Index finger extended upward
	landmarks.Points[IndexMCP] = Point3D{X: 0.42, Y: 0.58, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: 0.41, Y: 0.46, Z: 0.0}
	landmarks.Points[IndexDIP] = Point3D{X: 0.40, Y: 0.38, Z: 0.0}
	landmarks.Points[IndexTip] = Point3D{X: 0.40, Y: 0.30, Z: 0.0}

	// Middle finger extended upward (longest)
	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.56, Z: 0.0}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.42, Z: 0.0}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.33, Z: 0.0}
	landmarks.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.25, Z: 0.0}

	// Ring finger extended upward
	landmarks.Points[RingMCP] = Point3D{X: 0.58, Y: 0.58, Z: 0.0}
	landmarks.Points[RingPIP] = Point3D{X: 0.59, Y: 0.45, Z: 0.0}
	landmarks.Points[RingDIP] = Point3D{X: 0.60, Y: 0.36, Z: 0.0}
	landmarks.Points[RingTip] = Point3D{X: 0.60, Y: 0.29, Z: 0.0}

	// Pinky finger extended upward
	landmarks.Points[PinkyMCP] = Point3D{X: 0.66, Y: 0.62, Z: 0.0}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.68, Y: 0.52, Z: 0.0}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.69, Y: 0.45, Z: 0.0}
	landmarks.Points[PinkyTip] = Point3D{X: 0.70, Y: 0.40, Z: 0.0}

	return landmarks
}

// PartialLandmarks returns an open palm truncated to the first n
// landmark points, simulating a tracking gap.
func PartialLandmarks(n int) HandLandmarks {
	full := OpenPalmLandmarks()
	if n < 0 {
		n = 0
	}
	if n > len(full.Points) {
		n = len(full.Points)
	}
	full.Points = full.Points[:n]
	return full
}
