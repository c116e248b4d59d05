// Package source fetches the ticker list from the upstream exchange API.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"top-tickers/internal/domain"
	"top-tickers/internal/observability"
)

// Default configuration values.
const (
	DefaultURL       = "https://api.wazirx.com/api/v2/tickers"
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "top-tickers/1.0"

	// maxBodyBytes bounds how much of an upstream response is read.
	maxBodyBytes = 16 << 20
)

// Fetcher returns the current upstream ticker list.
type Fetcher interface {
	Fetch(ctx context.Context) (domain.RawTickers, error)
}

// Client implements Fetcher over HTTP.
type Client struct {
	url       string
	client    *http.Client
	userAgent string
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithUserAgent sets the User-Agent header sent upstream.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a new ticker API client. An empty url selects DefaultURL.
func NewClient(url string, opts ...ClientOption) *Client {
	if url == "" {
		url = DefaultURL
	}
	c := &Client{
		url:       url,
		client:    &http.Client{Timeout: DefaultTimeout},
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Fetcher = (*Client)(nil)

// URL returns the endpoint the client fetches from.
func (c *Client) URL() string {
	return c.url
}

// Fetch performs a single GET against the ticker endpoint.
// It does not retry; every failure is returned as *FetchError.
func (c *Client) Fetch(ctx context.Context) (domain.RawTickers, error) {
	start := time.Now()
	tickers, err := c.fetch(ctx)
	status := "success"
	if err != nil {
		status = "error"
	}
	observability.RecordSourceFetch(status, time.Since(start).Seconds())
	return tickers, err
}

func (c *Client) fetch(ctx context.Context) (domain.RawTickers, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, &FetchError{URL: c.url, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: c.url, Err: fmt.Errorf("http request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{URL: c.url, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			URL:        c.url,
			StatusCode: resp.StatusCode,
			Body:       body,
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	tickers, err := decodeTickers(body)
	if err != nil {
		return nil, &FetchError{
			URL:        c.url,
			StatusCode: resp.StatusCode,
			Body:       body,
			Err:        fmt.Errorf("%w: %w", ErrMalformedPayload, err),
		}
	}

	return tickers, nil
}
