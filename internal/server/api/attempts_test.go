package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/palmgate/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedAttempt(t *testing.T, s *store.Store, id, sessionID, subject string, match bool) {
	t.Helper()

	if _, err := s.Sessions().GetByID(sessionID); err == store.ErrNotFound {
		err := s.Sessions().Create(&store.AuthSession{ID: sessionID, Subject: subject, Mode: "verify"})
		if err != nil {
			t.Fatalf("failed to seed session: %v", err)
		}
	}

	conf := 0.08
	err := s.Attempts().Create(&store.Attempt{
		ID:         id,
		SessionID:  sessionID,
		Subject:    subject,
		Mode:       "verify",
		Success:    true,
		Match:      &match,
		Confidence: &conf,
	})
	if err != nil {
		t.Fatalf("failed to seed attempt: %v", err)
	}
}

func TestAttemptsHandler_List(t *testing.T) {
	s := newTestStore(t)
	seedAttempt(t, s, "a1", "s1", "+15550001111", true)
	seedAttempt(t, s, "a2", "s1", "+15550001111", false)
	seedAttempt(t, s, "a3", "s2", "+15550002222", true)

	h := NewAttemptsHandler(s)

	req := httptest.NewRequest(http.MethodGet, "/api/attempts", nil)
	w := httptest.NewRecorder()
	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp listAttemptsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Attempts) != 3 {
		t.Errorf("attempts = %d, want 3", len(resp.Attempts))
	}
}

func TestAttemptsHandler_ListBySubject(t *testing.T) {
	s := newTestStore(t)
	seedAttempt(t, s, "a1", "s1", "+15550001111", true)
	seedAttempt(t, s, "a2", "s2", "+15550002222", true)

	h := NewAttemptsHandler(s)

	req := httptest.NewRequest(http.MethodGet, "/api/attempts?subject=%2B15550002222", nil)
	w := httptest.NewRecorder()
	h.List(w, req)

	var resp listAttemptsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Attempts) != 1 || resp.Attempts[0].Subject != "+15550002222" {
		t.Errorf("attempts = %+v, want just the second subject", resp.Attempts)
	}
	if resp.Attempts[0].Match == nil || !*resp.Attempts[0].Match {
		t.Error("match verdict should round-trip")
	}
}

func TestAttemptsHandler_BadLimit(t *testing.T) {
	h := NewAttemptsHandler(newTestStore(t))

	for _, limit := range []string{"0", "abc", "-3"} {
		req := httptest.NewRequest(http.MethodGet, "/api/attempts?limit="+limit, nil)
		w := httptest.NewRecorder()
		h.List(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("limit %q: status = %d, want %d", limit, w.Code, http.StatusBadRequest)
		}
	}
}
