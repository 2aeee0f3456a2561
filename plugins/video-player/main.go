// Package main provides a plugin that opens the video for a confirmed zone
// in the platform's default player.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action   string          `json:"action"`
	Zone     string          `json:"zone"`
	Title    string          `json:"title"`
	VideoURL string          `json:"video_url"`
	Config   json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type config struct {
	// DryRun reports the command instead of running it.
	DryRun bool `json:"dry_run"`
	// Player overrides the platform opener.
	Player string `json:"player"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	if req.Action != "zone_confirmed" {
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}
	if req.VideoURL == "" {
		writeErrorResponse(fmt.Sprintf("zone %s has no video", req.Zone))
		return
	}

	var cfg config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}

	name, args := opener(cfg.Player, req.VideoURL)
	if cfg.DryRun {
		data, _ := json.Marshal(map[string]any{"command": append([]string{name}, args...)})
		writeSuccessResponse(data)
		return
	}

	if err := exec.Command(name, args...).Start(); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to open %s: %v", req.VideoURL, err))
		return
	}
	writeSuccessResponse(nil)
}

// opener returns the command that opens url.
func opener(player, url string) (string, []string) {
	if player != "" {
		return player, []string{url}
	}
	switch runtime.GOOS {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "cmd", []string{"/c", "start", "", url}
	default:
		return "xdg-open", []string{url}
	}
}

func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

func writeSuccessResponse(data json.RawMessage) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true, Data: data})
}
