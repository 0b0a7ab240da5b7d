package api

import (
	"net/http"
	"strconv"

	"github.com/ayusman/palmgate/internal/store"
)

// AttemptsHandler serves the capture attempt audit log.
type AttemptsHandler struct {
	store *store.Store
}

// NewAttemptsHandler creates an AttemptsHandler over the given store.
func NewAttemptsHandler(s *store.Store) *AttemptsHandler {
	return &AttemptsHandler{store: s}
}

type attemptResponse struct {
	ID         string   `json:"id"`
	SessionID  string   `json:"session_id"`
	Subject    string   `json:"subject"`
	Mode       string   `json:"mode"`
	Success    bool     `json:"success"`
	Match      *bool    `json:"match,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Message    string   `json:"message,omitempty"`
	CreatedAt  string   `json:"created_at"`
}

type listAttemptsResponse struct {
	Attempts []attemptResponse `json:"attempts"`
}

// List handles GET /api/attempts. Optional query parameters: subject
// filters by subject, limit caps the result count.
func (h *AttemptsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	var attempts []store.Attempt
	var err error
	if subject := r.URL.Query().Get("subject"); subject != "" {
		attempts, err = h.store.Attempts().ListBySubject(subject, limit)
	} else {
		attempts, err = h.store.Attempts().ListRecent(limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list attempts")
		return
	}

	resp := listAttemptsResponse{Attempts: make([]attemptResponse, 0, len(attempts))}
	for _, a := range attempts {
		resp.Attempts = append(resp.Attempts, attemptResponse{
			ID:         a.ID,
			SessionID:  a.SessionID,
			Subject:    a.Subject,
			Mode:       a.Mode,
			Success:    a.Success,
			Match:      a.Match,
			Confidence: a.Confidence,
			Message:    a.Message,
			CreatedAt:  a.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
