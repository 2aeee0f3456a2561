package tray

import "testing"

func TestTitles(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"detecting", toggleTitle(true), "● Detecting"},
		{"paused", toggleTitle(false), "○ Paused"},
		{"no zone", lastTitle(""), "Last: none"},
		{"zone", lastTitle("I eat mindfully"), "Last: I eat mindfully"},
		{"no warning", warningTitle(""), "Status: ok"},
		{"warning", warningTitle("Camera unavailable."), "Status: Camera unavailable."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestTray_Callbacks(t *testing.T) {
	tr := New()
	if !tr.IsEnabled() {
		t.Fatal("expected tray to start enabled")
	}

	var toggled []bool
	retries := 0
	opened := 0
	tr.OnToggle(func(enabled bool) { toggled = append(toggled, enabled) })
	tr.OnRetry(func() { retries++ })
	tr.OnSettings(func() { opened++ })

	// Menu items are nil until systray is running.
	tr.handleToggle()
	tr.handleToggle()
	tr.handleRetry()
	tr.handleSettings()
	tr.SetLastZone("I eat in hurry")
	tr.SetWarning("")

	if len(toggled) != 2 || toggled[0] != false || toggled[1] != true {
		t.Errorf("toggled = %v, want [false true]", toggled)
	}
	if retries != 1 || opened != 1 {
		t.Errorf("retries = %d, opened = %d", retries, opened)
	}

	tr.SetEnabled(false)
	if tr.IsEnabled() {
		t.Error("SetEnabled(false) did not stick")
	}
	if len(toggled) != 2 {
		t.Error("SetEnabled ran the toggle callback")
	}
}
