// Package app wires the palm authentication agent together: it owns the
// overlay layout, builds sessions on demand, and fans session events out
// to hooks, the tray and the alignment stream.
package app

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/ayusman/palmgate/internal/align"
	"github.com/ayusman/palmgate/internal/capture"
	"github.com/ayusman/palmgate/internal/config"
	"github.com/ayusman/palmgate/internal/detector"
	"github.com/ayusman/palmgate/internal/geometry"
	"github.com/ayusman/palmgate/internal/hook"
	"github.com/ayusman/palmgate/internal/overlay"
	"github.com/ayusman/palmgate/internal/session"
	"github.com/ayusman/palmgate/internal/store"
	"github.com/ayusman/palmgate/internal/verify"
)

// ErrSessionRunning is returned when a session start is requested while
// one is already active.
var ErrSessionRunning = errors.New("a session is already running")

// Agent is the long-lived application object behind the tray and the
// HTTP control surface. It builds one session at a time.
type Agent struct {
	config     *config.Config
	store      *store.Store
	targets    overlay.Registry
	content    geometry.Rect      // video content rect in screen space
	overlayBox geometry.Rect      // on-screen rect the outline is fitted into
	toScreen   geometry.Transform // overlay-local to screen
	hooks      *hook.Manager
	hookExec   *hook.Executor
	onStatus   func(session.Status)
	onChange   func(running bool)
	onUnlock   func()
	current    *session.Session
	mu         sync.Mutex

	// Factories, overridable in tests.
	newCamera   func(deviceID int) capture.Camera
	newDetector func() detector.Detector
}

// NewAgent creates the agent, laying out the overlay targets once from
// the built-in hand outline.
func NewAgent(cfg *config.Config, st *store.Store) (*Agent, error) {
	outline := overlay.DefaultHandOutline()
	targets, err := overlay.LayoutTargets(outline)
	if err != nil {
		return nil, err
	}

	// The overlay is drawn over the video itself, so screen space is
	// frame pixel space and the whole frame is content. The outline is
	// fitted inside the frame, which keeps every target inside the
	// region a normalized landmark can reach.
	content := geometry.Rect{W: float64(capture.DefaultWidth), H: float64(capture.DefaultHeight)}
	toScreen, overlayBox := geometry.FitRect(outline.Bounds(), content)

	a := &Agent{
		config:     cfg,
		store:      st,
		targets:    targets,
		content:    content,
		overlayBox: overlayBox,
		toScreen:   toScreen,
		hooks:      hook.NewManager(cfg.HookDir),
		hookExec:   hook.NewExecutor(cfg.HookTimeoutMs),

		newCamera: capture.NewCamera,
		newDetector: func() detector.Detector {
			mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig())
			if err != nil {
				log.Printf("MediaPipe not available (%v), using mock detector", err)
				return detector.NewMockDetector()
			}
			log.Println("using MediaPipe hand detection")
			return mp
		},
	}

	if err := a.hooks.Discover(); err != nil {
		log.Printf("hook discovery failed: %v", err)
	} else if n := len(a.hooks.List()); n > 0 {
		log.Printf("discovered %d hooks", n)
	}

	return a, nil
}

// OnStatus sets the per-frame status listener.
func (a *Agent) OnStatus(fn func(session.Status)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onStatus = fn
}

// OnSessionChange sets the listener fired when a session starts or stops.
func (a *Agent) OnSessionChange(fn func(running bool)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onChange = fn
}

// OnUnlock sets the listener fired on the first positive verification of
// a session, after the unlock hooks have run.
func (a *Agent) OnUnlock(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onUnlock = fn
}

// UseFactories overrides how sessions acquire their camera and detector.
// Intended for tests and embedders with custom capture stacks; nil
// arguments keep the current factory.
func (a *Agent) UseFactories(newCamera func(deviceID int) capture.Camera, newDetector func() detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if newCamera != nil {
		a.newCamera = newCamera
	}
	if newDetector != nil {
		a.newDetector = newDetector
	}
}

// Hooks returns the hook manager.
func (a *Agent) Hooks() *hook.Manager {
	return a.hooks
}

// Targets returns the overlay target registry.
func (a *Agent) Targets() overlay.Registry {
	return a.targets
}

// Content returns the video content rect in screen space.
func (a *Agent) Content() geometry.Rect {
	return a.content
}

// OverlayTransform returns the transform from overlay-local coordinates
// into screen space.
func (a *Agent) OverlayTransform() geometry.Transform {
	return a.toScreen
}

func (a *Agent) newEvaluator() *align.Evaluator {
	return align.NewEvaluator(&a.targets, a.content, a.overlayBox, &a.toScreen)
}

// StartSession builds and starts a session in the given mode. Only one
// session runs at a time.
func (a *Agent) StartSession(mode session.Mode, subject string) (string, error) {
	a.mu.Lock()

	if a.current != nil && a.current.Active() {
		a.mu.Unlock()
		return "", ErrSessionRunning
	}

	det := a.newDetector()

	var presence *capture.PresenceGate
	if a.config.PresenceThreshold > 0 {
		presence = capture.NewPresenceGate(a.config.PresenceThreshold)
	}

	sess := session.New(session.Config{
		Camera:         a.newCamera(a.config.CameraID),
		Detector:       det,
		Presence:       presence,
		Client:         verify.NewClient(a.config.BackendURL),
		Store:          a.store,
		Evaluator:      a.newEvaluator(),
		Mode:           mode,
		Subject:        subject,
		MatchThreshold: a.config.MatchThreshold,
		CountdownStart: a.config.CountdownSeconds,
		Cooldown:       time.Duration(a.config.CooldownSeconds) * time.Second,
		OnUnlock:       func() { a.handleUnlock(subject) },
		OnResult:       func(r *verify.Result) { a.handleResult(mode, subject, r) },
		OnStatus:       a.publishStatus,
	})

	if err := sess.Start(); err != nil {
		a.mu.Unlock()
		return "", err
	}

	a.current = sess
	onChange := a.onChange
	a.mu.Unlock()

	if onChange != nil {
		onChange(true)
	}
	return sess.ID(), nil
}

// StopSession halts the current session, if any.
func (a *Agent) StopSession() {
	a.mu.Lock()
	sess := a.current
	onChange := a.onChange
	a.mu.Unlock()

	if sess == nil {
		return
	}

	sess.Stop()
	if onChange != nil {
		onChange(false)
	}
}

// SessionStatus returns the latest snapshot and whether a session is
// running.
func (a *Agent) SessionStatus() (session.Status, bool) {
	a.mu.Lock()
	sess := a.current
	a.mu.Unlock()

	if sess == nil {
		return session.Status{State: "idle"}, false
	}
	return sess.Status(), sess.Active()
}

func (a *Agent) handleUnlock(subject string) {
	a.hookExec.Fire(a.hooks, hook.EventUnlock, &hook.Request{
		Subject: subject,
		Mode:    string(session.ModeVerify),
	})

	a.mu.Lock()
	onUnlock := a.onUnlock
	a.mu.Unlock()
	if onUnlock != nil {
		onUnlock()
	}
}

func (a *Agent) handleResult(mode session.Mode, subject string, r *verify.Result) {
	req := &hook.Request{
		Subject:    subject,
		Mode:       string(mode),
		Confidence: r.Confidence,
		Message:    r.Message,
	}

	switch {
	case mode == session.ModeRegister && r.Success:
		a.hookExec.Fire(a.hooks, hook.EventRegistered, req)
	case mode == session.ModeVerify && !r.Matched():
		a.hookExec.Fire(a.hooks, hook.EventMismatch, req)
	}
}

func (a *Agent) publishStatus(status session.Status) {
	a.mu.Lock()
	onStatus := a.onStatus
	a.mu.Unlock()

	if onStatus != nil {
		onStatus(status)
	}
}
