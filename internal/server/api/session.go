package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/palmgate/internal/session"
)

// Controller is the surface the session handlers drive. The agent's app
// layer implements it; tests substitute a fake.
type Controller interface {
	// StartSession begins a session and returns its id. Starting while a
	// session is already running is an error.
	StartSession(mode session.Mode, subject string) (string, error)
	// StopSession halts the current session. Stopping when none is
	// running is a no-op.
	StopSession()
	// SessionStatus returns the latest snapshot and whether a session is
	// currently running.
	SessionStatus() (session.Status, bool)
}

// SessionHandler exposes start/stop/status control over the session.
type SessionHandler struct {
	controller Controller
}

// NewSessionHandler creates a SessionHandler over the given controller.
func NewSessionHandler(c Controller) *SessionHandler {
	return &SessionHandler{controller: c}
}

type startSessionRequest struct {
	Mode    string `json:"mode"`
	Subject string `json:"subject"`
}

type startSessionResponse struct {
	ID string `json:"id"`
}

type sessionStatusResponse struct {
	Active bool           `json:"active"`
	Status session.Status `json:"status"`
}

// Start handles POST /api/session/start.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mode := session.Mode(req.Mode)
	if mode != session.ModeVerify && mode != session.ModeRegister {
		writeError(w, http.StatusBadRequest, "mode must be \"verify\" or \"register\"")
		return
	}
	if req.Subject == "" {
		writeError(w, http.StatusBadRequest, "subject is required")
		return
	}

	id, err := h.controller.StartSession(mode, req.Subject)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, startSessionResponse{ID: id})
}

// Stop handles POST /api/session/stop.
func (h *SessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.controller.StopSession()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// Status handles GET /api/session/status.
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, active := h.controller.SessionStatus()
	writeJSON(w, http.StatusOK, sessionStatusResponse{
		Active: active,
		Status: status,
	})
}
