// Package hook runs operator-provided executables on authentication
// events, e.g. unlocking the desktop session after a palm match.
package hook

import "encoding/json"

// Event names hooks can subscribe to.
const (
	EventUnlock     = "unlock"
	EventMismatch   = "mismatch"
	EventRegistered = "registered"
)

// Manifest describes a hook's metadata and the events it handles.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Events      []string `json:"events"`
}

// Request is the event payload written to a hook's stdin as JSON.
type Request struct {
	Event      string   `json:"event"`
	Subject    string   `json:"subject"`
	Mode       string   `json:"mode"`
	Confidence *float64 `json:"confidence,omitempty"`
	Message    string   `json:"message,omitempty"`
	Timestamp  int64    `json:"timestamp"`
}

// Response is what a hook prints to stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Hook is a discovered hook with its manifest and location.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Handles reports whether the hook subscribed to the given event.
func (h *Hook) Handles(event string) bool {
	for _, e := range h.Manifest.Events {
		if e == event {
			return true
		}
	}
	return false
}
