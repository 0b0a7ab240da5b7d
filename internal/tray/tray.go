// Package tray provides the system tray interface for the palm
// authentication agent.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray is the agent's system tray application.
type Tray struct {
	onVerify   func()
	onStop     func()
	onSettings func()
	onQuit     func()
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuVerify *systray.MenuItem
	menuStop   *systray.MenuItem
	menuState  *systray.MenuItem
}

// New creates a new Tray instance.
func New() *Tray {
	return &Tray{}
}

// OnVerify sets the callback for the verify menu item.
func (t *Tray) OnVerify(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onVerify = fn
}

// OnStop sets the callback for the stop menu item.
func (t *Tray) OnStop(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStop = fn
}

// OnSettings sets the callback for the settings menu item.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback for the quit menu item.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// onReady sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Palmgate")
	systray.SetTooltip("Palmgate palm authentication")

	t.menuState = systray.AddMenuItem("Locked", "Current authentication state")
	t.menuState.Disable()
	systray.AddSeparator()

	t.menuVerify = systray.AddMenuItem("Verify Palm...", "Start a verification session")
	t.menuStop = systray.AddMenuItem("Stop Session", "Stop the running session")
	t.menuStop.Disable()
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Palmgate")

	go func() {
		for {
			select {
			case <-t.menuVerify.ClickedCh:
				t.handleVerify()
			case <-t.menuStop.ClickedCh:
				t.handleStop()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
}

func (t *Tray) handleVerify() {
	t.mu.RLock()
	callback := t.onVerify
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleStop() {
	t.mu.RLock()
	callback := t.onStop
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetSessionRunning toggles the verify/stop items to match the session
// state.
func (t *Tray) SetSessionRunning(running bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuVerify == nil || t.menuStop == nil {
		return
	}
	if running {
		t.menuVerify.Disable()
		t.menuStop.Enable()
	} else {
		t.menuVerify.Enable()
		t.menuStop.Disable()
	}
}

// SetUnlocked updates the state display in the menu.
func (t *Tray) SetUnlocked(unlocked bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuState == nil {
		return
	}
	if unlocked {
		t.menuState.SetTitle("Unlocked")
	} else {
		t.menuState.SetTitle("Locked")
	}
}
