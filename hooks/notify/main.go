// Package main provides a notification hook that surfaces verification
// outcomes as desktop notifications.
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
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(Response{Success: false, Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}

	title := "Palmgate"
	var body string
	switch req.Event {
	case "unlock":
		body = "Palm recognized, session unlocked"
	case "mismatch":
		body = "Palm not recognized"
		if req.Message != "" {
			body = req.Message
		}
	case "registered":
		body = "Palm registered for " + req.Subject
	default:
		body = req.Message
	}

	if err := notify(title, body); err != nil {
		writeResponse(Response{Success: false, Error: fmt.Sprintf("notification failed: %v", err)})
		return
	}

	writeResponse(Response{Success: true})
}

func notify(title, body string) error {
	switch runtime.GOOS {
	case "linux":
		return exec.Command("notify-send", title, body).Run()
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", body, title)
		return exec.Command("osascript", "-e", script).Run()
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
