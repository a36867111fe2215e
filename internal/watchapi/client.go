// Package watchapi is a client for changedetection.io-compatible watch
// services.
package watchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds each API request.
	DefaultTimeout = 10 * time.Second

	watchPath    = "/api/v1/watch"
	headerAPIKey = "x-api-key"

	// maxErrorBodySize is the maximum error body size to include in errors.
	maxErrorBodySize = 512
)

// ErrUnauthorized reports that the service rejected the API key.
var ErrUnauthorized = errors.New("api key rejected")

// Client is an HTTP client for the watch API. The api key, when non-empty,
// is sent as x-api-key on every request.
type Client struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client. Takes precedence over
// WithTimeout — a custom client keeps its own timeout.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout bounds each request made with the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient creates a watch API client for the service at rawURL.
func NewClient(rawURL, apiKey string, opts ...ClientOption) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(rawURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse service URL %q: %w", rawURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("service URL %q must use http or https", rawURL)
	}

	c := &Client{
		baseURL: base,
		apiKey:  apiKey,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c, nil
}

// Verify confirms the API key is accepted by the watch endpoint. A 2xx
// answer means accepted; 401 and 403 mean rejected (ErrUnauthorized);
// anything else is a service error.
func (c *Client) Verify(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, []string{watchPath}, nil)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	default:
		return unexpectedStatus("verify", resp)
	}
}

func (c *Client) do(ctx context.Context, method string, path []string, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	u := c.baseURL.JoinPath(path...)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(headerAPIKey, c.apiKey)
	}

	return c.httpClient.Do(req)
}

func unexpectedStatus(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	return fmt.Errorf("%s: unexpected status %d: %s", op, resp.StatusCode, bytes.TrimSpace(body))
}
