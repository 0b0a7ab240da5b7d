package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/palmgate/internal/session"
)

type stubController struct {
	active bool
	status session.Status
}

func (c *stubController) StartSession(mode session.Mode, subject string) (string, error) {
	c.active = true
	return "sess-1", nil
}

func (c *stubController) StopSession() {
	c.active = false
}

func (c *stubController) SessionStatus() (session.Status, bool) {
	return c.status, c.active
}

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}
		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})
}

func TestServer_SessionRoutes(t *testing.T) {
	ctrl := &stubController{}
	s := New(Config{Controller: ctrl})

	t.Run("start", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/session/start",
			strings.NewReader(`{"mode":"verify","subject":"+15550001111"}`))
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Errorf("expected status %d, got %d; body: %s", http.StatusCreated, rec.Code, rec.Body.String())
		}
		if !ctrl.active {
			t.Error("controller should have started a session")
		}
	})

	t.Run("status", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/session/status", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
	})

	t.Run("stop", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/session/stop", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if ctrl.active {
			t.Error("controller should have stopped the session")
		}
	})

	t.Run("start rejects GET", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/session/start", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})
}

func TestServer_RoutesDisabledWithoutCollaborators(t *testing.T) {
	s := New(Config{})

	paths := []string{"/api/session/status", "/api/attempts", "/api/stream", "/api/alignment"}
	for _, path := range paths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected status %d, got %d", path, http.StatusNotFound, rec.Code)
		}
	}
}

func TestServer_StaticFiles(t *testing.T) {
	tmpDir := t.TempDir()

	testContent := "<html><body>palmgate</body></html>"
	if err := os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte(testContent), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	s := New(Config{StaticDir: tmpDir})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if rec.Body.String() != testContent {
		t.Errorf("expected body %q, got %q", testContent, rec.Body.String())
	}
}

func TestAlignmentHandler_Publish(t *testing.T) {
	h := NewAlignmentHandler()
	s := New(Config{Alignment: h})

	srv := httptest.NewServer(s)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/alignment"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	defer conn.Close()

	// Wait for the server side to register the client.
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(time.Millisecond)
	}

	h.Publish(session.Status{State: "countdown", Remaining: 2, Aligned: true})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}

	var payload struct {
		Status    session.Status `json:"status"`
		Timestamp int64          `json:"timestamp"`
	}
	if err := json.Unmarshal(msg, &payload); err != nil {
		t.Fatalf("failed to unmarshal message: %v", err)
	}
	if payload.Status.State != "countdown" || payload.Status.Remaining != 2 || !payload.Status.Aligned {
		t.Errorf("payload status = %+v, want countdown/2/aligned", payload.Status)
	}
	if payload.Timestamp == 0 {
		t.Error("expected non-zero timestamp")
	}
}

func TestAlignmentHandler_PublishNoClients(t *testing.T) {
	h := NewAlignmentHandler()
	// Must not panic or block with nobody connected.
	h.Publish(session.Status{State: "idle"})
}
