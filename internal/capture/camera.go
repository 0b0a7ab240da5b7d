// Package capture provides camera acquisition and presence gating using
// GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 5
	DefaultWidth  = 640
	DefaultHeight = 480
)

// Frames to attempt per ReadFrame call. Webcams deliver a few empty
// frames right after acquisition while the sensor warms up.
const readAttempts = 3

var (
	// ErrCameraNotOpen is returned when trying to read from a camera
	// that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")

	// ErrEmptyFrame is returned when the device keeps producing empty
	// frames, e.g. because another process holds it.
	ErrEmptyFrame = errors.New("camera produced only empty frames")
)

// Camera defines the interface for camera capture implementations.
// The camera is an exclusive resource: one acquisition per session, and
// Close releases the underlying device before re-acquisition is allowed.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
	// Resolution returns the native frame width and height, or zeros
	// when the camera is not open.
	Resolution() (int, int)
}

// device is the GoCV-backed Camera for a local video device.
type device struct {
	deviceID int

	mu   sync.Mutex
	vc   *gocv.VideoCapture
	fps  int
	open bool
}

// NewCamera creates a Camera for the given device ID. The device is not
// acquired until Open. The default FPS is 5; the session raises it
// while a hand is present.
func NewCamera(deviceID int) Camera {
	return &device{
		deviceID: deviceID,
		fps:      DefaultFPS,
	}
}

// Open acquires the device and applies the 640x480 capture resolution.
// Opening an already-open camera is a no-op.
func (d *device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.open {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(d.deviceID)
	if err != nil {
		return fmt.Errorf("opening camera %d: %w", d.deviceID, err)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
	vc.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)
	vc.Set(gocv.VideoCaptureFPS, float64(d.fps))

	d.vc = vc
	d.open = true

	return nil
}

// Close releases the device. Closing a closed camera is a no-op.
func (d *device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open || d.vc == nil {
		d.open = false
		return nil
	}

	err := d.vc.Close()
	d.vc = nil
	d.open = false

	return err
}

// ReadFrame grabs the next non-empty frame, retrying a few times to
// ride out sensor warm-up. The caller owns the returned Mat and must
// close it.
func (d *device) ReadFrame() (*gocv.Mat, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open || d.vc == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	for attempt := 0; attempt < readAttempts; attempt++ {
		if ok := d.vc.Read(&mat); !ok {
			mat.Close()
			return nil, fmt.Errorf("reading from camera %d failed", d.deviceID)
		}
		if !mat.Empty() {
			return &mat, nil
		}
	}

	mat.Close()
	return nil, ErrEmptyFrame
}

// SetFPS sets the capture frame rate, applying it to the device when
// one is held. Non-positive values are ignored.
func (d *device) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.fps = fps
	if d.vc != nil {
		d.vc.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frame rate setting.
func (d *device) FPS() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.fps
}

// IsOpen reports whether the device is currently held.
func (d *device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.open
}

// Resolution returns the native capture resolution.
func (d *device) Resolution() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open || d.vc == nil {
		return 0, 0
	}

	w := int(d.vc.Get(gocv.VideoCaptureFrameWidth))
	h := int(d.vc.Get(gocv.VideoCaptureFrameHeight))
	return w, h
}
