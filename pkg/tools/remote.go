package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultRemoteTimeout = 60 * time.Second

// HTTPRemote invokes external tools over HTTP against an execution
// endpoint. The wire shape is the executor contract the engine depends on:
// {success: true, output} or {success: false, error}.
type HTTPRemote struct {
	endpoint string
	client   *http.Client
}

type remoteRequest struct {
	ToolID string         `json:"tool_id"`
	Params map[string]any `json:"params"`
}

type remoteResponse struct {
	Success bool           `json:"success"`
	Output  map[string]any `json:"output,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// NewHTTPRemote creates a remote executor for the given endpoint URL.
func NewHTTPRemote(endpoint string) *HTTPRemote {
	return &HTTPRemote{
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultRemoteTimeout},
	}
}

// Invoke posts the invocation and maps the response to the executor shape.
func (r *HTTPRemote) Invoke(ctx context.Context, toolID string, params map[string]any) (map[string]any, error) {
	body, err := json.Marshal(remoteRequest{ToolID: toolID, Params: params})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invocation for tool %q: %w", toolID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build invocation request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tool executor unreachable: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read executor response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("tool executor returned status %d", resp.StatusCode)
	}

	var decoded remoteResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode executor response: %w", err)
	}

	if !decoded.Success {
		if decoded.Error == "" {
			return nil, errors.New("tool executor reported failure")
		}

		return nil, errors.New(decoded.Error)
	}

	return decoded.Output, nil
}
