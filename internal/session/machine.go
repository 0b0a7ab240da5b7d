// Package session owns the capture state machine and the session
// orchestrator that drives the palm alignment and capture flow.
package session

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// State is the capture state machine's current phase.
type State int

const (
	// StateIdle: locating the hand, no countdown running.
	StateIdle State = iota
	// StateCountingDown: alignment held, counting down to capture.
	StateCountingDown
	// StateCapturing: a capture upload is in flight.
	StateCapturing
	// StateCooldown: mandatory quiet period after a capture resolves.
	StateCooldown
)

// String returns the lowercase state name for logs and the status API.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCountingDown:
		return "countdown"
	case StateCapturing:
		return "capturing"
	case StateCooldown:
		return "cooldown"
	}
	return "unknown"
}

// Timing defaults.
const (
	// DefaultCountdownStart is the number of countdown seconds before a
	// capture fires.
	DefaultCountdownStart = 2
	// DefaultCooldown is the quiet period after a capture resolves,
	// preventing a sustained alignment from re-triggering immediately.
	DefaultCooldown = 3 * time.Second

	countdownTick = time.Second
)

// Machine is the capture state machine. It owns the countdown and
// cooldown timers; all transitions go through it.
//
// A momentary loss of alignment during the countdown abandons the
// countdown entirely rather than pausing it, so a jittery detection that
// aligns only briefly never produces a misaligned capture.
type Machine struct {
	mu    sync.Mutex
	clock clockwork.Clock

	state     State
	remaining int

	countdownStart int
	cooldown       time.Duration

	tickTimer clockwork.Timer
	coolTimer clockwork.Timer

	// epoch invalidates timer callbacks scheduled before a reset, so a
	// late-firing timer cannot act on a newer countdown.
	epoch uint64

	onTick    func(remaining int)
	onCapture func()
}

// NewMachine creates a machine in StateIdle with default timings. A nil
// clock selects the real clock.
func NewMachine(clock clockwork.Clock) *Machine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Machine{
		clock:          clock,
		state:          StateIdle,
		countdownStart: DefaultCountdownStart,
		cooldown:       DefaultCooldown,
	}
}

// SetCountdownStart sets how many countdown seconds precede a capture.
// Values less than 1 are ignored.
func (m *Machine) SetCountdownStart(n int) {
	if n < 1 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countdownStart = n
}

// SetCooldown sets the post-capture quiet period.
// Non-positive durations are ignored.
func (m *Machine) SetCooldown(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cooldown = d
}

// OnTick registers a callback invoked with the remaining seconds when a
// countdown starts and after each tick.
func (m *Machine) OnTick(fn func(remaining int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTick = fn
}

// OnCapture registers the callback invoked when the countdown completes
// and the machine enters StateCapturing.
func (m *Machine) OnCapture(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCapture = fn
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Remaining returns the countdown seconds left, or 0 outside a
// countdown.
func (m *Machine) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateCountingDown {
		return 0
	}
	return m.remaining
}

// HandleAlignment feeds the per-frame alignment verdict into the
// machine. Alignment starts a countdown only from StateIdle, never
// while capturing or cooling down. Misalignment abandons a running
// countdown.
func (m *Machine) HandleAlignment(aligned bool) {
	m.mu.Lock()

	var notify func(int)
	var notifyRemaining int

	switch m.state {
	case StateIdle:
		if aligned {
			m.state = StateCountingDown
			m.remaining = m.countdownStart
			m.scheduleTickLocked()
			notify = m.onTick
			notifyRemaining = m.remaining
		}

	case StateCountingDown:
		if !aligned {
			m.abandonCountdownLocked()
		}

	case StateCapturing, StateCooldown:
		// Alignment is irrelevant here; the cooldown exists precisely
		// so a sustained alignment cannot re-trigger immediately.
	}

	m.mu.Unlock()

	if notify != nil {
		notify(notifyRemaining)
	}
}

// CaptureDone moves the machine from StateCapturing into StateCooldown.
// The capture pipeline calls it when the upload resolves, on success and
// failure alike.
func (m *Machine) CaptureDone() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateCapturing {
		return
	}

	m.state = StateCooldown
	epoch := m.epoch
	m.coolTimer = m.clock.AfterFunc(m.cooldown, func() {
		m.cooldownElapsed(epoch)
	})
}

// Stop synchronously clears all pending timers and resets to StateIdle.
// Safe to call from any state.
func (m *Machine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.epoch++
	m.stopTimersLocked()
	m.state = StateIdle
	m.remaining = 0
}

func (m *Machine) scheduleTickLocked() {
	epoch := m.epoch
	m.tickTimer = m.clock.AfterFunc(countdownTick, func() {
		m.tick(epoch)
	})
}

func (m *Machine) abandonCountdownLocked() {
	m.epoch++
	if m.tickTimer != nil {
		m.tickTimer.Stop()
		m.tickTimer = nil
	}
	m.state = StateIdle
	m.remaining = 0
}

func (m *Machine) stopTimersLocked() {
	if m.tickTimer != nil {
		m.tickTimer.Stop()
		m.tickTimer = nil
	}
	if m.coolTimer != nil {
		m.coolTimer.Stop()
		m.coolTimer = nil
	}
}

func (m *Machine) tick(epoch uint64) {
	m.mu.Lock()

	if epoch != m.epoch || m.state != StateCountingDown {
		m.mu.Unlock()
		return
	}

	if m.remaining > 1 {
		m.remaining--
		remaining := m.remaining
		notify := m.onTick
		m.scheduleTickLocked()
		m.mu.Unlock()

		if notify != nil {
			notify(remaining)
		}
		return
	}

	// Countdown complete: hand over to the capture pipeline.
	m.state = StateCapturing
	m.remaining = 0
	m.tickTimer = nil
	capture := m.onCapture
	m.mu.Unlock()

	if capture != nil {
		capture()
	}
}

func (m *Machine) cooldownElapsed(epoch uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if epoch != m.epoch || m.state != StateCooldown {
		return
	}

	m.state = StateIdle
	m.coolTimer = nil
}
