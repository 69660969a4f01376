// File: internal/infra/adapters/provider/client.go
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"video-analysis-platform/internal/domain"
	"video-analysis-platform/internal/domain/ports/adapter"
)

var _ adapter.ComputeProvider = (*Client)(nil)

// Client implements adapter.ComputeProvider against the provider's serverless
// endpoint API (POST /run, GET /status/{id}).
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient constructs the provider client. An empty baseURL or apiKey is
// allowed here; Submit and Status fail with domain.ErrMissingConfig before
// any network I/O, so the trigger path can tag error_type=missing_config.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) configured() error {
	if c.baseURL == "" || c.apiKey == "" {
		return domain.ErrMissingConfig
	}
	return nil
}

func (c *Client) Submit(ctx context.Context, req adapter.SubmitRequest) (adapter.SubmitResult, error) {
	if err := c.configured(); err != nil {
		return adapter.SubmitResult{}, err
	}
	payload := map[string]any{
		"input": map[string]any{
			"video_url":   req.VideoURL,
			"user_id":     req.UserID,
			"video_id":    req.VideoID,
			"job_id":      req.JobID,
			"webhook_url": req.WebhookURL,
		},
	}
	b, _ := json.Marshal(payload)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/run", bytes.NewReader(b))
	if err != nil {
		return adapter.SubmitResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return adapter.SubmitResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return adapter.SubmitResult{}, &adapter.ProviderAPIError{StatusCode: resp.StatusCode, Body: readBody(resp.Body)}
	}
	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return adapter.SubmitResult{}, fmt.Errorf("decode submit response: %w", err)
	}
	if out.ID == "" {
		return adapter.SubmitResult{}, &adapter.ProviderAPIError{StatusCode: resp.StatusCode, Body: "submit response missing id"}
	}
	return adapter.SubmitResult{ID: out.ID, Status: adapter.ProviderStatus(out.Status)}, nil
}

func (c *Client) Status(ctx context.Context, handle string) (adapter.StatusResult, error) {
	if err := c.configured(); err != nil {
		return adapter.StatusResult{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status/"+handle, nil)
	if err != nil {
		return adapter.StatusResult{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return adapter.StatusResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return adapter.StatusResult{}, &adapter.ProviderAPIError{StatusCode: resp.StatusCode, Body: readBody(resp.Body)}
	}
	var out struct {
		Status string         `json:"status"`
		Output map[string]any `json:"output"`
		Error  string         `json:"error"`
		Logs   string         `json:"logs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return adapter.StatusResult{}, fmt.Errorf("decode status response: %w", err)
	}
	return adapter.StatusResult{
		Status: adapter.ProviderStatus(out.Status),
		Output: out.Output,
		Error:  out.Error,
		Logs:   out.Logs,
	}, nil
}

// readBody returns at most 4KB of the response body for error details.
func readBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	return strings.TrimSpace(string(b))
}
