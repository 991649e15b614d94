// internal/common/http/client.go
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	userAgent = "overdue-watchdog/1.0"
	// maxBodyBytes caps how much of a provider response is kept for error reporting.
	maxBodyBytes = 4096
)

// Client is a timeout-bounded HTTP client for outbound provider APIs.
type Client struct {
	httpClient *http.Client
}

// Response is a fully read, size-capped provider response.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

type RequestOption func(*http.Request)

func WithBasicAuth(user, password string) RequestOption {
	return func(req *http.Request) { req.SetBasicAuth(user, password) }
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// NewClientWithTransport is used by tests to point the client at an httptest server.
func NewClientWithTransport(timeout time.Duration, rt http.RoundTripper) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: rt,
		},
	}
}

// PostForm sends form url-encoded and returns the response whatever its status.
// A non-nil error means no response was received.
func (c *Client) PostForm(ctx context.Context, endpoint string, form url.Values, opts ...RequestOption) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
