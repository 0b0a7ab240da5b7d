package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/exec"
	"time"
)

// Executor runs hooks with a per-execution timeout.
type Executor struct {
	timeoutMs int
}

// NewExecutor creates an Executor with the given timeout in milliseconds.
func NewExecutor(timeoutMs int) *Executor {
	return &Executor{
		timeoutMs: timeoutMs,
	}
}

// Execute runs one hook: it marshals the event to JSON on stdin and
// parses the hook's stdout as a Response.
func (e *Executor) Execute(hook *Hook, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(e.timeoutMs)*time.Millisecond)
	defer cancel()

	cmd := exec.CommandContext(ctx, hook.Executable)
	cmd.Dir = hook.Path

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal hook request: %w", err)
	}
	cmd.Stdin = bytes.NewReader(reqJSON)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("hook %s timed out after %dms", hook.Manifest.Name, e.timeoutMs)
	}
	if err != nil {
		if stderrStr := stderr.String(); stderrStr != "" {
			return nil, fmt.Errorf("hook %s failed: %w, stderr: %s", hook.Manifest.Name, err, stderrStr)
		}
		return nil, fmt.Errorf("hook %s failed: %w", hook.Manifest.Name, err)
	}

	var response Response
	if err := json.Unmarshal(stdout.Bytes(), &response); err != nil {
		return nil, fmt.Errorf("failed to parse hook %s response: %w, stdout: %s", hook.Manifest.Name, err, stdout.String())
	}

	return &response, nil
}

// Fire runs every hook subscribed to the event. Failures are logged, not
// propagated: one broken hook must never break authentication.
func (e *Executor) Fire(m *Manager, event string, req *Request) {
	req.Event = event
	if req.Timestamp == 0 {
		req.Timestamp = time.Now().Unix()
	}

	for _, hook := range m.ForEvent(event) {
		resp, err := e.Execute(hook, req)
		if err != nil {
			log.Printf("hook %s (%s): %v", hook.Manifest.Name, event, err)
			continue
		}
		if !resp.Success {
			log.Printf("hook %s (%s) reported failure: %s", hook.Manifest.Name, event, resp.Error)
		}
	}
}
