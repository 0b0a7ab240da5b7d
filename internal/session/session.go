package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gocv.io/x/gocv"

	"github.com/ayusman/palmgate/internal/align"
	"github.com/ayusman/palmgate/internal/capture"
	"github.com/ayusman/palmgate/internal/detector"
	"github.com/ayusman/palmgate/internal/store"
	"github.com/ayusman/palmgate/internal/verify"
)

// Mode selects what happens with a captured frame: enrollment or
// verification. The alignment and capture logic is identical; only the
// endpoint and the post-capture action differ.
type Mode string

const (
	ModeRegister Mode = "register"
	ModeVerify   Mode = "verify"
)

// Loop timing constants.
const (
	// IdleFPS is the frame rate while nothing moves in front of the camera.
	IdleFPS = 5
	// ActiveFPS is the frame rate while a hand is being presented.
	ActiveFPS = 15
	// idleTimeout is how long without presence before dropping back to
	// the idle rate.
	idleTimeout = 2 * time.Second
	// captureJPEGQuality is the encode quality for uploaded frames.
	captureJPEGQuality = 90
)

// Status is a snapshot of the session for status consumers (WebSocket
// stream, HTTP status endpoint, tray).
type Status struct {
	State     string                       `json:"state"`
	Remaining int                          `json:"remaining"`
	Aligned   bool                         `json:"aligned"`
	Distances [detector.NumTracked]float64 `json:"distances"`
	Unlocked  bool                         `json:"unlocked"`
	Message   string                       `json:"message,omitempty"`
}

// Config holds the collaborators and parameters for a session.
type Config struct {
	Camera    capture.Camera
	Detector  detector.Detector
	Presence  *capture.PresenceGate // optional; nil disables rate gating
	Client    *verify.Client
	Store     *store.Store // optional audit log
	Evaluator *align.Evaluator
	Clock     clockwork.Clock // nil selects the real clock

	Mode           Mode
	Subject        string // phone number collected earlier in the flow
	MatchThreshold float64

	CountdownStart int           // 0 selects the default
	Cooldown       time.Duration // 0 selects the default

	// OnUnlock fires exactly once, on the first positive verification.
	OnUnlock func()
	// OnResult fires for every resolved capture, both modes.
	OnResult func(*verify.Result)
	// OnStatus fires after every evaluated frame.
	OnStatus func(Status)
}

// Session orchestrates one camera session: it owns the camera resource,
// drives the per-frame loop, and wires the evaluator, state machine and
// capture pipeline together. Construct with New; a Session is not
// reusable after Stop.
type Session struct {
	config  Config
	machine *Machine
	clock   clockwork.Clock

	mu        sync.Mutex
	id        string
	active    bool
	unlocked  bool
	capturing bool
	lastFrame *gocv.Mat
	status    Status
	message   string

	stopCh chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a session from the given config. The caller owns the
// returned object; there is no process-global instance.
func New(config Config) *Session {
	clock := config.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	s := &Session{
		config:  config,
		clock:   clock,
		machine: NewMachine(clock),
	}

	if config.CountdownStart > 0 {
		s.machine.SetCountdownStart(config.CountdownStart)
	}
	if config.Cooldown > 0 {
		s.machine.SetCooldown(config.Cooldown)
	}

	s.machine.OnCapture(s.startCapture)
	s.machine.OnTick(func(remaining int) {
		log.Printf("capture in %d...", remaining)
	})

	return s
}

// ID returns the session's identifier, assigned at Start.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Start acquires the camera and begins the per-frame loop. Starting an
// already-running session is a no-op.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return nil
	}

	if err := s.config.Camera.Open(); err != nil {
		return err
	}
	if s.config.Presence != nil {
		s.config.Camera.SetFPS(IdleFPS)
	} else {
		s.config.Camera.SetFPS(ActiveFPS)
	}

	if s.config.Presence != nil {
		s.config.Presence.Reset()
	}

	s.id = uuid.NewString()
	s.active = true
	s.unlocked = false
	s.message = ""
	s.stopCh = make(chan struct{})

	s.ctx, s.cancel = context.WithCancel(context.Background())

	if s.config.Store != nil {
		err := s.config.Store.Sessions().Create(&store.AuthSession{
			ID:      s.id,
			Subject: s.config.Subject,
			Mode:    string(s.config.Mode),
		})
		if err != nil {
			log.Printf("failed to record session start: %v", err)
		}
	}

	s.wg.Add(1)
	go s.run()

	log.Printf("session %s started (%s, subject %s)", s.id, s.config.Mode, s.config.Subject)
	return nil
}

// Stop tears the session down: it cancels any in-flight upload, clears
// all pending timers, stops the frame loop and releases the camera.
// Stopping an inactive session is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()

	if !s.active {
		s.mu.Unlock()
		return
	}

	s.active = false
	close(s.stopCh)
	s.cancel()
	id := s.id
	unlocked := s.unlocked

	if s.lastFrame != nil {
		s.lastFrame.Close()
		s.lastFrame = nil
	}
	s.mu.Unlock()

	s.machine.Stop()
	s.wg.Wait()

	if err := s.config.Camera.Close(); err != nil {
		log.Printf("error closing camera: %v", err)
	}
	if s.config.Presence != nil {
		s.config.Presence.Close()
	}
	if s.config.Detector != nil {
		if err := s.config.Detector.Close(); err != nil {
			log.Printf("error closing detector: %v", err)
		}
	}

	if s.config.Store != nil {
		if err := s.config.Store.Sessions().Finish(id, unlocked); err != nil {
			log.Printf("failed to record session end: %v", err)
		}
	}

	log.Printf("session %s stopped", id)
}

// Active reports whether the session is running.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Unlocked reports whether the session has produced a positive
// verification.
func (s *Session) Unlocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unlocked
}

// Status returns the latest per-frame snapshot.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// run is the per-frame loop: read, gate, detect, evaluate, feed the
// state machine. Device errors are logged and skipped; tracking gaps are
// alignment misses, never errors.
func (s *Session) run() {
	defer s.wg.Done()

	activeMode := s.config.Presence == nil
	lastPresence := s.clock.Now()

	interval := time.Second / time.Duration(IdleFPS)
	if activeMode {
		interval = time.Second / time.Duration(ActiveFPS)
	}

	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.Chan():
			frame, err := s.config.Camera.ReadFrame()
			if err != nil {
				log.Printf("error reading frame: %v", err)
				continue
			}

			if s.config.Presence != nil {
				present, _ := s.config.Presence.Check(frame)

				if present {
					lastPresence = s.clock.Now()
					if !activeMode {
						activeMode = true
						s.config.Camera.SetFPS(ActiveFPS)
						ticker.Reset(time.Second / time.Duration(ActiveFPS))
					}
				} else if activeMode && s.clock.Since(lastPresence) > idleTimeout {
					activeMode = false
					s.config.Camera.SetFPS(IdleFPS)
					ticker.Reset(time.Second / time.Duration(IdleFPS))
				}
			}

			if !activeMode {
				frame.Close()
				continue
			}

			// Keep the newest frame around for the capture pipeline.
			s.mu.Lock()
			if s.lastFrame != nil {
				s.lastFrame.Close()
			}
			clone := frame.Clone()
			s.lastFrame = &clone
			s.mu.Unlock()

			hands, err := s.config.Detector.Detect(frame)
			frame.Close()
			if err != nil {
				log.Printf("error detecting hands: %v", err)
				continue
			}

			// At most one hand is consumed: first result wins.
			var hand *detector.HandLandmarks
			if len(hands) > 0 {
				hand = &hands[0]
			}

			res := s.config.Evaluator.Evaluate(hand)
			s.machine.HandleAlignment(res.Aligned)
			s.publishStatus(res)
		}
	}
}

// startCapture runs the capture pipeline: freeze frame, mirror, encode,
// upload, interpret. It is invoked by the state machine on countdown
// completion and always resolves the machine via CaptureDone.
func (s *Session) startCapture() {
	s.mu.Lock()

	// Defense in depth: the state machine cannot enter Capturing twice,
	// but a second invocation must still be impossible mid-flight.
	if s.capturing || !s.active {
		s.mu.Unlock()
		if !s.capturing {
			s.machine.CaptureDone()
		}
		return
	}
	s.capturing = true

	var frozen *gocv.Mat
	if s.lastFrame != nil {
		clone := s.lastFrame.Clone()
		frozen = &clone
	}
	ctx := s.ctx
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.capture(ctx, frozen)
	}()
}

func (s *Session) capture(ctx context.Context, frozen *gocv.Mat) {
	defer func() {
		s.mu.Lock()
		s.capturing = false
		s.mu.Unlock()
		s.machine.CaptureDone()
	}()

	if frozen == nil {
		s.setMessage("no frame available, try again")
		return
	}
	defer frozen.Close()

	// Mirror horizontally so the upload matches the mirrored preview
	// the user aligned against.
	mirrored := gocv.NewMat()
	defer mirrored.Close()
	gocv.Flip(*frozen, &mirrored, 1)

	buf, err := gocv.IMEncodeWithParams(".jpg", mirrored, []int{gocv.IMWriteJpegQuality, captureJPEGQuality})
	if err != nil {
		log.Printf("encode capture: %v", err)
		s.setMessage("failed to encode capture")
		return
	}
	image := buf.GetBytes()
	defer buf.Close()

	var result *verify.Result
	switch s.config.Mode {
	case ModeRegister:
		result, err = s.config.Client.Register(ctx, image, s.config.Subject)
	default:
		result, err = s.config.Client.Verify(ctx, image, s.config.Subject, s.config.MatchThreshold)
	}

	// The session may have been stopped while the upload was in flight;
	// never resurrect state afterwards.
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if err != nil {
		log.Printf("capture upload failed: %v", err)
		s.setMessage("network error, try again")
		return
	}

	s.recordAttempt(result)
	s.interpret(result)

	if s.config.OnResult != nil {
		s.config.OnResult(result)
	}
}

// interpret applies the backend's verdict to the session.
func (s *Session) interpret(result *verify.Result) {
	switch {
	case result.Matched() && s.config.Mode == ModeVerify:
		s.mu.Lock()
		first := !s.unlocked
		s.unlocked = true
		s.mu.Unlock()

		s.setMessage("palm recognized")
		if first && s.config.OnUnlock != nil {
			s.config.OnUnlock()
		}

	case result.Success && s.config.Mode == ModeRegister:
		s.setMessage("palm registered")

	case result.Success:
		// A well-formed negative: not an error, just not recognized.
		s.setMessage("not recognized, try again")

	default:
		msg := result.Message
		if msg == "" {
			msg = "verification failed, try again"
		}
		s.setMessage(msg)
	}
}

func (s *Session) recordAttempt(result *verify.Result) {
	if s.config.Store == nil {
		return
	}

	err := s.config.Store.Attempts().Create(&store.Attempt{
		ID:         uuid.NewString(),
		SessionID:  s.ID(),
		Subject:    s.config.Subject,
		Mode:       string(s.config.Mode),
		Success:    result.Success,
		Match:      result.Match,
		Confidence: result.Confidence,
		Message:    result.Message,
	})
	if err != nil {
		log.Printf("failed to record attempt: %v", err)
	}
}

func (s *Session) setMessage(msg string) {
	s.mu.Lock()
	s.message = msg
	s.status.Message = msg
	s.mu.Unlock()
	log.Printf("session: %s", msg)
}

func (s *Session) publishStatus(res align.Result) {
	s.mu.Lock()
	s.status = Status{
		State:     s.machine.State().String(),
		Remaining: s.machine.Remaining(),
		Aligned:   res.Aligned,
		Distances: res.Distances,
		Unlocked:  s.unlocked,
		Message:   s.message,
	}
	status := s.status
	notify := s.config.OnStatus
	s.mu.Unlock()

	if notify != nil {
		notify(status)
	}
}
