// Package tray provides a system tray menu for the poster kiosk operator.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle   func(enabled bool)
	onRetry    func()
	onSettings func()
	onQuit     func()
	enabled    bool
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuToggle  *systray.MenuItem
	menuLast    *systray.MenuItem
	menuWarning *systray.MenuItem
}

// New creates a new Tray instance with enabled state set to true by default.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnRetry sets the callback function to be called when the retry menu item is clicked.
func (t *Tray) OnRetry(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRetry = fn
}

// OnSettings sets the callback function to be called when the kiosk page menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
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

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	// Set the tray title and tooltip
	systray.SetTitle("PosterPoint")
	systray.SetTooltip("PosterPoint kiosk")

	t.mu.RLock()
	enabled := t.enabled
	t.mu.RUnlock()

	// Create menu items
	t.menuToggle = systray.AddMenuItem(toggleTitle(enabled), "Pause or resume pointing detection")
	menuRetry := systray.AddMenuItem("Retry", "Clear the current selection and start over")
	systray.AddSeparator()

	t.menuLast = systray.AddMenuItem("Last: none", "Last confirmed zone")
	t.menuLast.Disable()
	t.menuWarning = systray.AddMenuItem("Status: ok", "Current kiosk warning")
	t.menuWarning.Disable()
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Kiosk Page...", "Open the kiosk page in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit PosterPoint")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuRetry.ClickedCh:
				t.handleRetry()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
// It performs cleanup tasks.
func (t *Tray) onExit() {
	// Cleanup resources if needed
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	// Update menu item text based on new state
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleRetry handles the retry menu item click.
func (t *Tray) handleRetry() {
	t.mu.RLock()
	callback := t.onRetry
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleSettings handles the kiosk page menu item click.
func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetLastZone updates the last confirmed zone display in the menu.
func (t *Tray) SetLastZone(title string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLast != nil {
		t.menuLast.SetTitle(lastTitle(title))
	}
}

// SetWarning shows the current kiosk warning in the menu.
func (t *Tray) SetWarning(msg string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuWarning != nil {
		t.menuWarning.SetTitle(warningTitle(msg))
	}
}

// SetEnabled updates the toggle without running the callback.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Detecting"
	}
	return "○ Paused"
}

func lastTitle(title string) string {
	if title == "" {
		return "Last: none"
	}
	return "Last: " + title
}

func warningTitle(msg string) string {
	if msg == "" {
		return "Status: ok"
	}
	return "Status: " + msg
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Quit closes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}
