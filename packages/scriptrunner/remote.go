package scriptrunner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// RemoteRunner sends script code to an HTTP agent that executes it inside
// the target runtime (a browser extension host, a device, a container).
//
// The agent receives POST {"code": "..."} and answers with
// {"success": bool, "output": "..."}.
type RemoteRunner struct {
	endpoint string
	headers  map[string]string
	client   *http.Client
}

// RemoteOption is a functional option for RemoteRunner
type RemoteOption func(*RemoteRunner)

// WithHeader adds a header to every request
func WithHeader(key, value string) RemoteOption {
	return func(r *RemoteRunner) {
		r.headers[key] = value
	}
}

// NewRemoteRunner creates a runner for the agent listening at endpoint.
func NewRemoteRunner(endpoint string, opts ...RemoteOption) *RemoteRunner {
	r := &RemoteRunner{
		endpoint: endpoint,
		headers:  make(map[string]string),
		// deadlines come from the caller's context
		client: &http.Client{Timeout: 0},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type remoteRequest struct {
	Code string `json:"code"`
}

// Invoke posts code to the agent.
func (r *RemoteRunner) Invoke(ctx context.Context, code string) (*Result, error) {
	data, err := json.Marshal(remoteRequest{Code: code})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agent request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading agent response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("agent returned status %d after %s: %s",
			resp.StatusCode, time.Since(start).Round(time.Millisecond), string(body))
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("agent returned invalid JSON: %s", string(body))
	}

	parsed := gjson.ParseBytes(body)
	success := parsed.Get("success")
	if !success.Exists() {
		return nil, fmt.Errorf("agent response has no success field")
	}

	output := parsed.Get("output")
	text := output.String()
	if output.IsObject() || output.IsArray() {
		text = output.Raw
	}

	return &Result{Success: success.Bool(), Output: text}, nil
}

// Describe reports the agent endpoint.
func (r *RemoteRunner) Describe() string {
	return "remote agent " + r.endpoint
}
