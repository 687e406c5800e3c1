// internal/common/http/client.go
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultUserAgent = "joinnow/1.0"

// Client is a timeout-bound HTTP client for outbound calls.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: defaultUserAgent,
	}
}

// NewClientWith wraps an existing *http.Client (tests pass httptest clients).
func NewClientWith(hc *http.Client) *Client {
	return &Client{httpClient: hc, userAgent: defaultUserAgent}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.httpClient.Do(req)
}

// Post sends body to url with the given content type.
func (c *Client) Post(ctx context.Context, url, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "text/html,application/json")
	return c.Do(req)
}
