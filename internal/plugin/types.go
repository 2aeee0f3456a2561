// Package plugin runs external executables when a poster zone is confirmed.
package plugin

import (
	"encoding/json"
	"slices"
)

// ActionZoneConfirmed is sent to plugins when a zone selection is confirmed.
const ActionZoneConfirmed = "zone_confirmed"

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Supports reports whether the plugin declares action.
func (m Manifest) Supports(action string) bool {
	return slices.Contains(m.Actions, action)
}

// Request is written to the plugin's stdin as JSON.
type Request struct {
	Action      string          `json:"action"`
	Zone        string          `json:"zone"`
	Title       string          `json:"title,omitempty"`
	VideoURL    string          `json:"video_url,omitempty"`
	DeviceID    string          `json:"device_id,omitempty"`
	SelectionID string          `json:"selection_id,omitempty"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
