package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

// waitForState polls until the machine reaches the wanted state; timer
// callbacks run on their own goroutines, so tests synchronize by
// observation rather than by sleeping fixed amounts.
func waitForState(t *testing.T, m *Machine, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("machine stuck in %v, want %v", m.State(), want)
}

func waitForCount(t *testing.T, c *atomic.Int32, want int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.Load() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("count = %d, want %d", c.Load(), want)
}

// driveToCapturing walks a machine from idle through a full countdown,
// waiting out the tick reschedule between clock advances.
func driveToCapturing(t *testing.T, fc *clockwork.FakeClock, m *Machine) {
	t.Helper()

	m.HandleAlignment(true)
	fc.Advance(time.Second)
	deadline := time.Now().Add(2 * time.Second)
	for m.Remaining() != 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if m.Remaining() != 1 {
		t.Fatalf("countdown never reached 1, state %v", m.State())
	}
	fc.Advance(time.Second)
	waitForState(t, m, StateCapturing)
}

func TestMachine_InitialState(t *testing.T) {
	m := NewMachine(clockwork.NewFakeClock())

	if m.State() != StateIdle {
		t.Errorf("initial state = %v, want idle", m.State())
	}
	if m.Remaining() != 0 {
		t.Errorf("initial remaining = %d, want 0", m.Remaining())
	}
}

func TestMachine_CountdownToCapture(t *testing.T) {
	fc := clockwork.NewFakeClock()
	m := NewMachine(fc)

	var captures atomic.Int32
	m.OnCapture(func() { captures.Add(1) })

	var tickMu sync.Mutex
	var ticks []int
	m.OnTick(func(remaining int) {
		tickMu.Lock()
		ticks = append(ticks, remaining)
		tickMu.Unlock()
	})

	// Alignment from idle starts the countdown at 2.
	m.HandleAlignment(true)
	if m.State() != StateCountingDown {
		t.Fatalf("state = %v, want countdown", m.State())
	}
	if m.Remaining() != 2 {
		t.Fatalf("remaining = %d, want 2", m.Remaining())
	}

	// First tick: 2 -> 1.
	fc.Advance(time.Second)
	deadline := time.Now().Add(2 * time.Second)
	for m.Remaining() != 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if m.Remaining() != 1 {
		t.Fatalf("remaining after first tick = %d, want 1", m.Remaining())
	}

	// Second tick: countdown completes, capture fires exactly once.
	fc.Advance(time.Second)
	waitForState(t, m, StateCapturing)
	waitForCount(t, &captures, 1)

	tickMu.Lock()
	defer tickMu.Unlock()
	if len(ticks) < 2 || ticks[0] != 2 || ticks[1] != 1 {
		t.Errorf("tick sequence = %v, want [2 1]", ticks)
	}
}

func TestMachine_MisalignmentAbandonsCountdown(t *testing.T) {
	for _, remaining := range []int{2, 1} {
		fc := clockwork.NewFakeClock()
		m := NewMachine(fc)

		var captures atomic.Int32
		m.OnCapture(func() { captures.Add(1) })

		m.HandleAlignment(true)
		if remaining == 1 {
			fc.Advance(time.Second)
			deadline := time.Now().Add(2 * time.Second)
			for m.Remaining() != 1 && time.Now().Before(deadline) {
				time.Sleep(time.Millisecond)
			}
		}

		// Misalignment abandons the countdown, never pauses it.
		m.HandleAlignment(false)
		if m.State() != StateIdle {
			t.Fatalf("remaining=%d: state after misalign = %v, want idle", remaining, m.State())
		}

		// The old timer is dead: advancing time must not fire a capture.
		fc.Advance(10 * time.Second)
		time.Sleep(20 * time.Millisecond)
		if captures.Load() != 0 {
			t.Errorf("remaining=%d: abandoned countdown fired a capture", remaining)
		}

		// A fresh alignment starts a new full countdown, not a resumed one.
		m.HandleAlignment(true)
		if m.Remaining() != 2 {
			t.Errorf("remaining=%d: new countdown starts at %d, want 2", remaining, m.Remaining())
		}
	}
}

func TestMachine_NoCountdownWhileCapturingOrCoolingDown(t *testing.T) {
	fc := clockwork.NewFakeClock()
	m := NewMachine(fc)

	var captures atomic.Int32
	m.OnCapture(func() { captures.Add(1) })

	driveToCapturing(t, fc, m)

	// Sustained alignment while capturing must not start a countdown.
	m.HandleAlignment(true)
	if m.State() != StateCapturing {
		t.Fatalf("alignment during capture moved state to %v", m.State())
	}

	// Resolve the capture; alignment during cooldown is equally inert.
	m.CaptureDone()
	if m.State() != StateCooldown {
		t.Fatalf("state after CaptureDone = %v, want cooldown", m.State())
	}
	m.HandleAlignment(true)
	if m.State() != StateCooldown {
		t.Fatalf("alignment during cooldown moved state to %v", m.State())
	}

	// After the cooldown elapses the machine returns to idle and a new
	// countdown may start.
	fc.Advance(DefaultCooldown)
	waitForState(t, m, StateIdle)

	m.HandleAlignment(true)
	if m.State() != StateCountingDown {
		t.Errorf("state after cooldown + alignment = %v, want countdown", m.State())
	}
	if captures.Load() != 1 {
		t.Errorf("captures = %d, want exactly 1", captures.Load())
	}
}

func TestMachine_CooldownGuaranteesQuietPeriod(t *testing.T) {
	fc := clockwork.NewFakeClock()
	m := NewMachine(fc)
	m.OnCapture(func() {})

	driveToCapturing(t, fc, m)
	m.CaptureDone()

	// Just short of the cooldown: still quiet.
	fc.Advance(DefaultCooldown - time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	m.HandleAlignment(true)
	if m.State() != StateCooldown {
		t.Fatalf("countdown started %v before the cooldown elapsed", time.Millisecond)
	}

	fc.Advance(time.Millisecond)
	waitForState(t, m, StateIdle)
}

func TestMachine_CaptureDoneOutsideCapturing(t *testing.T) {
	m := NewMachine(clockwork.NewFakeClock())

	// Defensive: a stray CaptureDone from idle must not reach cooldown.
	m.CaptureDone()
	if m.State() != StateIdle {
		t.Errorf("CaptureDone from idle moved state to %v", m.State())
	}
}

func TestMachine_StopClearsTimers(t *testing.T) {
	fc := clockwork.NewFakeClock()
	m := NewMachine(fc)

	var captures atomic.Int32
	m.OnCapture(func() { captures.Add(1) })

	// Stop during countdown.
	m.HandleAlignment(true)
	m.Stop()
	if m.State() != StateIdle {
		t.Fatalf("state after Stop = %v, want idle", m.State())
	}
	fc.Advance(10 * time.Second)
	time.Sleep(20 * time.Millisecond)
	if captures.Load() != 0 {
		t.Error("stopped countdown still fired a capture")
	}

	// Stop during cooldown: the cooldown timer must not resurrect state.
	driveToCapturing(t, fc, m)
	m.CaptureDone()
	m.Stop()
	if m.State() != StateIdle {
		t.Fatalf("state after Stop from cooldown = %v, want idle", m.State())
	}
	fc.Advance(10 * time.Second)
	time.Sleep(20 * time.Millisecond)
	if m.State() != StateIdle {
		t.Errorf("late cooldown timer changed state to %v", m.State())
	}
}

func TestMachine_ConfigValidation(t *testing.T) {
	m := NewMachine(clockwork.NewFakeClock())

	m.SetCountdownStart(5)
	m.SetCountdownStart(0) // ignored
	m.HandleAlignment(true)
	if m.Remaining() != 5 {
		t.Errorf("remaining = %d, want 5", m.Remaining())
	}
	m.Stop()

	m.SetCooldown(10 * time.Second)
	m.SetCooldown(0) // ignored
	m.mu.Lock()
	cooldown := m.cooldown
	m.mu.Unlock()
	if cooldown != 10*time.Second {
		t.Errorf("cooldown = %v, want 10s", cooldown)
	}
}
