// Package main provides an unlock hook that unlocks the desktop session
// when a palm verification succeeds.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// Request represents the event payload from the hook executor.
type Request struct {
	Event      string   `json:"event"`
	Subject    string   `json:"subject"`
	Mode       string   `json:"mode"`
	Confidence *float64 `json:"confidence,omitempty"`
	Message    string   `json:"message,omitempty"`
	Timestamp  int64    `json:"timestamp"`
}

// Response represents the output to the hook executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	if req.Event != "unlock" {
		writeErrorResponse(fmt.Sprintf("unsupported event: %s", req.Event))
		return
	}

	if err := unlockSession(); err != nil {
		writeErrorResponse(fmt.Sprintf("unlock failed: %v", err))
		return
	}

	writeResponse(Response{Success: true})
}

// unlockSession asks the display manager to unlock the current session.
func unlockSession() error {
	switch runtime.GOOS {
	case "linux":
		return exec.Command("loginctl", "unlock-session").Run()
	case "darwin":
		// Wake the display; macOS offers no scriptable unlock.
		return exec.Command("caffeinate", "-u", "-t", "1").Run()
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}

func writeErrorResponse(msg string) {
	writeResponse(Response{Success: false, Error: msg})
}
