// Package httpjob implements remote.JobService over a small JSON HTTP API:
//
//	POST {base}/jobs       {"payload": ...}          -> {"job_id": "..."}
//	GET  {base}/jobs/{id}                            -> {"status": "...", "result": ..., "reason": "..."}
//
// The credential travels as a bearer token.
package httpjob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/remote"
)

// Client talks to one job service base URL.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithTimeout sets the timeout of the default *http.Client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.http.Timeout = d }
}

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type submitRequest struct {
	Payload any `json:"payload"`
}

type submitResponse struct {
	JobID string `json:"job_id"`
}

type pollResponse struct {
	Status string `json:"status"`
	Result any    `json:"result,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Submit implements remote.JobService.
func (c *Client) Submit(ctx context.Context, credential string, payload any) (string, error) {
	body, err := json.Marshal(submitRequest{Payload: payload})
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	var out submitResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/jobs", credential, body, &out); err != nil {
		return "", err
	}
	if out.JobID == "" {
		return "", fmt.Errorf("job service returned an empty job id")
	}
	return out.JobID, nil
}

// Poll implements remote.JobService.
func (c *Client) Poll(ctx context.Context, credential, jobID string) (remote.PollResult, error) {
	var out pollResponse
	endpoint := c.baseURL + "/jobs/" + url.PathEscape(jobID)
	if err := c.do(ctx, http.MethodGet, endpoint, credential, nil, &out); err != nil {
		return remote.PollResult{}, err
	}
	return remote.PollResult{Status: out.Status, Result: out.Result, Reason: out.Reason}, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint, credential string, body []byte, out any) error {
	logger := ctxlog.FromContext(ctx).With("method", method, "url", endpoint)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", remote.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()
	logger.Debug("Received job service response.", "status", resp.Status)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response body: %w", remote.ErrRemoteUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s: %s", remote.ErrRemoteUnavailable, resp.Status, strings.TrimSpace(string(data)))
	case resp.StatusCode >= 400:
		return fmt.Errorf("job service rejected request: %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
