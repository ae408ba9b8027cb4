// Package fetch provides the shared outbound HTTP plumbing used by the
// Overpass, web-search and speech fetchers.
//
// Every call performs exactly one HTTP request. Rate limiting may delay a
// request but nothing here retries.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultUserAgent is the default User-Agent string
	DefaultUserAgent = "parkmcp/0.1.0"

	// DefaultTimeout bounds every outbound request
	DefaultTimeout = 30 * time.Second

	// maxBodyBytes caps how much of a response body is read into memory
	maxBodyBytes = 32 << 20
)

// ErrMissingAPIKey is returned by fetchers whose credential was not configured.
var ErrMissingAPIKey = errors.New("api key not configured")

// FetchError describes a failed outbound request. Status is zero when the
// request never produced an HTTP response.
type FetchError struct {
	Service string
	Status  int
	Cause   error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s request failed with status %d: %v", e.Service, e.Status, e.Cause)
	}
	return fmt.Sprintf("%s request failed: %v", e.Service, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Client performs rate-limited HTTP requests against external services.
type Client struct {
	httpClient *http.Client
	limiter    *RateLimiter
	userAgent  string
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimiter replaces the default per-service rate limiter.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(c *Client) { c.limiter = rl }
}

// WithUserAgent sets the User-Agent sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
// Non-positive values keep DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger for the client
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a client with connection pooling and default rate limits.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: DefaultTimeout,
		},
		limiter:   NewRateLimiter(DefaultLimits()),
		userAgent: DefaultUserAgent,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UserAgent returns the User-Agent sent with every request.
func (c *Client) UserAgent() string {
	return c.userAgent
}

// Do waits for the service's rate limit, performs req once and returns the
// response body. Transport failures and non-2xx responses become *FetchError.
func (c *Client) Do(ctx context.Context, service string, req *http.Request) ([]byte, error) {
	req.Header.Set("User-Agent", c.userAgent)

	if err := c.limiter.Wait(ctx, service); err != nil {
		return nil, &FetchError{Service: service, Cause: err}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		c.logger.Error("request failed", "service", service, "url", req.URL.Redacted(), "error", err)
		return nil, &FetchError{Service: service, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{Service: service, Status: resp.StatusCode, Cause: fmt.Errorf("read body: %w", err)}
	}

	c.logger.Debug("request completed",
		"service", service,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			Service: service,
			Status:  resp.StatusCode,
			Cause:   fmt.Errorf("unexpected response: %s", snippet(body)),
		}
	}

	return body, nil
}

// snippet trims a response body for inclusion in error messages.
func snippet(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
