package verify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// backendStub records the last multipart request and replies with a
// fixed JSON body.
type backendStub struct {
	t        *testing.T
	path     string
	subject  string
	thresh   string
	imageLen int
	reply    any
	status   int
}

func (b *backendStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.path = r.URL.Path

		if err := r.ParseMultipartForm(4 << 20); err != nil {
			b.t.Errorf("parse multipart: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		b.subject = r.FormValue("subjectId")
		b.thresh = r.FormValue("threshold")

		file, _, err := r.FormFile("image")
		if err != nil {
			b.t.Errorf("missing image part: %v", err)
		} else {
			buf := make([]byte, 1<<20)
			n, _ := file.Read(buf)
			b.imageLen = n
			file.Close()
		}

		status := b.status
		if status == 0 {
			status = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(b.reply)
	}
}

func TestClient_VerifyMatch(t *testing.T) {
	stub := &backendStub{t: t, reply: map[string]any{
		"success":    true,
		"match":      true,
		"confidence": 0.91,
		"message":    "Palm recognized successfully",
	}}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c := NewClient(srv.URL)
	res, err := c.Verify(context.Background(), []byte("jpegdata"), "+15551234567", 0.13)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if stub.path != "/verify" {
		t.Errorf("upload path = %q, want /verify", stub.path)
	}
	if stub.subject != "+15551234567" {
		t.Errorf("subjectId = %q", stub.subject)
	}
	if stub.thresh != "0.13" {
		t.Errorf("threshold field = %q, want 0.13", stub.thresh)
	}
	if stub.imageLen != len("jpegdata") {
		t.Errorf("image length = %d, want %d", stub.imageLen, len("jpegdata"))
	}

	if !res.Matched() {
		t.Errorf("Matched() = false for a positive backend response: %+v", res)
	}
	if res.Confidence == nil || *res.Confidence != 0.91 {
		t.Errorf("confidence = %v, want 0.91", res.Confidence)
	}
}

func TestClient_VerifyNoMatch(t *testing.T) {
	// A non-match is a normal negative result, not an error.
	stub := &backendStub{t: t, reply: map[string]any{
		"success": true,
		"match":   false,
		"message": "Palm not recognized",
	}}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c := NewClient(srv.URL)
	res, err := c.Verify(context.Background(), []byte("img"), "+15550000000", 0.13)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if res.Matched() {
		t.Error("Matched() = true for a no-match response")
	}
	if !res.Success {
		t.Error("Success should be true for a well-formed negative result")
	}
}

func TestClient_VerifyThresholdFallback(t *testing.T) {
	stub := &backendStub{t: t, reply: map[string]any{"success": true, "match": false}}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.Verify(context.Background(), []byte("img"), "x", 0); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if stub.thresh != "0.13" {
		t.Errorf("out-of-range threshold should fall back to default, got %q", stub.thresh)
	}
}

func TestClient_RegisterAlreadyRegistered(t *testing.T) {
	// The backend treats re-registration as success:false plus message;
	// the client surfaces it rather than erroring.
	stub := &backendStub{t: t, reply: map[string]any{
		"success": false,
		"message": "Palm already registered for this phone number. Please delete existing registration first.",
	}}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c := NewClient(srv.URL)
	res, err := c.Register(context.Background(), []byte("img"), "+15551234567")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if stub.path != "/register" {
		t.Errorf("upload path = %q, want /register", stub.path)
	}
	if stub.thresh != "" {
		t.Errorf("registration must not carry a threshold field, got %q", stub.thresh)
	}
	if res.Success {
		t.Error("Success should be false for already-registered")
	}
	if res.Message == "" {
		t.Error("message should be surfaced")
	}
}

func TestClient_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(srv.URL)
	if _, err := c.Verify(context.Background(), []byte("img"), "x", 0.13); err == nil {
		t.Fatal("expected a transport error from a dead backend")
	}
}

func TestClient_CancelledContext(t *testing.T) {
	stub := &backendStub{t: t, reply: map[string]any{"success": true}}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(srv.URL)
	if _, err := c.Verify(ctx, []byte("img"), "x", 0.13); err == nil {
		t.Fatal("expected an error from a cancelled context")
	}
}

func TestClient_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.Verify(context.Background(), []byte("img"), "x", 0.13); err == nil {
		t.Fatal("expected a parse error for non-JSON response")
	}
}
