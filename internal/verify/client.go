// Package verify implements the HTTP client for the remote palm
// verification backend.
package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultMatchThreshold is the backend's default template distance
// threshold for a match.
const DefaultMatchThreshold = 0.13

// Result is the interpreted backend response. Match and Confidence are
// nil when the backend did not report them (registration responses,
// backend-side failures).
type Result struct {
	Success    bool     `json:"success"`
	Match      *bool    `json:"match,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Message    string   `json:"message,omitempty"`
}

// Matched reports whether the backend confirmed a positive match.
func (r *Result) Matched() bool {
	return r != nil && r.Success && r.Match != nil && *r.Match
}

// Client talks to the verification backend. The zero value is not
// usable; construct with NewClient.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// NewClientWithHTTP creates a client using the provided http.Client,
// mainly for tests.
func NewClientWithHTTP(baseURL string, httpc *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   httpc,
	}
}

// Verify uploads a captured image for comparison against the subject's
// registered palm. threshold is the backend match threshold; values
// outside (0,1] fall back to the backend default.
func (c *Client) Verify(ctx context.Context, image []byte, subjectID string, threshold float64) (*Result, error) {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultMatchThreshold
	}
	fields := map[string]string{
		"subjectId": subjectID,
		"threshold": strconv.FormatFloat(threshold, 'f', -1, 64),
	}
	return c.upload(ctx, "/verify", image, fields)
}

// Register uploads a captured image to enroll the subject's palm. The
// backend reports "already registered" as success:false with a message;
// that is surfaced to the caller, not treated as a transport error.
func (c *Client) Register(ctx context.Context, image []byte, subjectID string) (*Result, error) {
	fields := map[string]string{
		"subjectId": subjectID,
	}
	return c.upload(ctx, "/register", image, fields)
}

func (c *Client) upload(ctx context.Context, path string, image []byte, fields map[string]string) (*Result, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("image", "capture.jpg")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("write image: %w", err)
	}

	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("write field %s: %w", name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parse response (status %d): %w", resp.StatusCode, err)
	}

	return &result, nil
}
