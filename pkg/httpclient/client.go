// Package httpclient implements the retrying HTTP client used for all
// outbound calls, covering the LLM provider APIs and the Blazegraph
// SPARQL endpoint. Transient failures back off exponentially, rate
// limit responses honor the server's own backoff signals when a header
// parser is configured, and waits are cancelable through the request
// context.
package httpclient

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"time"
)

// RetryStrategy selects how a failed attempt is handled.
type RetryStrategy int

const (
	// NoRetry fails immediately. Client errors and transport failures
	// land here.
	NoRetry RetryStrategy = iota
	// ConservativeRetry allows a couple of quick retries for transient
	// server errors.
	ConservativeRetry
	// SmartRetry backs off exponentially and honors rate limit headers.
	SmartRetry
)

// conservativeAttempts caps quick retries for transient server errors.
const conservativeAttempts = 2

// RateLimitInfo carries backoff hints extracted from response headers.
type RateLimitInfo struct {
	RetryAfter        time.Duration
	ResetTime         int64
	RequestsRemaining int
	TokensRemaining   int
}

// RateLimitHeaderParser extracts backoff hints from response headers.
type RateLimitHeaderParser func(http.Header) RateLimitInfo

// RetryStrategyFunc maps an HTTP status code to a retry strategy.
type RetryStrategyFunc func(int) RetryStrategy

// Client wraps http.Client with status-aware retries.
type Client struct {
	client       *http.Client
	maxRetries   int
	baseDelay    time.Duration
	headerParser RateLimitHeaderParser
	strategyFunc RetryStrategyFunc
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client, usually to set a
// provider-specific timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithMaxRetries sets how many times a failed request is retried.
func WithMaxRetries(max int) Option {
	return func(c *Client) {
		c.maxRetries = max
	}
}

// WithBaseDelay sets the unit delay the backoff schedule scales from.
func WithBaseDelay(delay time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = delay
	}
}

// WithHeaderParser installs a parser for vendor rate limit headers.
func WithHeaderParser(parser RateLimitHeaderParser) Option {
	return func(c *Client) {
		c.headerParser = parser
	}
}

// WithRetryStrategy overrides the status-to-strategy mapping.
func WithRetryStrategy(strategyFunc RetryStrategyFunc) Option {
	return func(c *Client) {
		c.strategyFunc = strategyFunc
	}
}

// New builds a Client with a 60s timeout, 5 retries and a 2s base
// delay unless options say otherwise.
func New(opts ...Option) *Client {
	c := &Client{
		client:       &http.Client{Timeout: 60 * time.Second},
		maxRetries:   5,
		baseDelay:    2 * time.Second,
		strategyFunc: DefaultRetryStrategy,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.maxRetries < 0 {
		c.maxRetries = 0
	}

	return c
}

// DefaultRetryStrategy retries rate limits and availability errors
// with backoff, transient server errors briefly, and nothing else.
func DefaultRetryStrategy(statusCode int) RetryStrategy {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusServiceUnavailable:
		return SmartRetry
	case http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusGatewayTimeout:
		return ConservativeRetry
	default:
		return NoRetry
	}
}

// Do executes the request, retrying failed attempts per the configured
// strategy. Retries need a replayable body (req.GetBody set, which
// http.NewRequest provides for common body types). Non-2xx responses
// are returned alongside the error so callers can read the body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if err := rewindBody(req); err != nil {
				return nil, err
			}
		}

		resp, err := c.client.Do(req)
		if err != nil {
			// Transport errors are not retried: the server may have
			// processed the request before the connection broke.
			return nil, err
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		statusErr := fmt.Errorf("HTTP %d", resp.StatusCode)
		strategy := c.strategyFunc(resp.StatusCode)
		if strategy == NoRetry {
			return resp, statusErr
		}

		var hints RateLimitInfo
		if c.headerParser != nil {
			hints = c.headerParser(resp.Header)
		}

		delay := c.retryDelay(strategy, attempt, hints)
		if delay <= 0 {
			// The strategy has given up on this request.
			return resp, statusErr
		}
		if attempt >= c.maxRetries {
			return resp, &RetryableError{
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("max HTTP retries (%d) exceeded", c.maxRetries),
				RetryAfter: delay,
				Err:        statusErr,
			}
		}

		drain(resp)
		c.logRetry(req, resp.StatusCode, strategy, delay, attempt)

		if err := wait(req, delay); err != nil {
			return nil, err
		}
	}
}

// retryDelay computes how long to wait before the next attempt. A zero
// delay means the strategy declines to retry further.
func (c *Client) retryDelay(strategy RetryStrategy, attempt int, hints RateLimitInfo) time.Duration {
	switch strategy {
	case SmartRetry:
		if hints.RetryAfter > 0 {
			return hints.RetryAfter
		}
		if hints.ResetTime > 0 {
			if until := time.Until(time.Unix(hints.ResetTime, 0)); until > 0 {
				return until
			}
		}
		backoff := time.Duration(math.Pow(2, float64(attempt))) * c.baseDelay
		return backoff + rand.N(backoff/10+1)

	case ConservativeRetry:
		if attempt >= conservativeAttempts {
			return 0
		}
		return time.Duration(1+attempt) * c.baseDelay

	default:
		return 0
	}
}

func (c *Client) logRetry(req *http.Request, status int, strategy RetryStrategy, delay time.Duration, attempt int) {
	if strategy == SmartRetry {
		slog.Warn("Rate limited, backing off",
			"url", req.URL.Redacted(),
			"status", status,
			"delay", delay,
			"attempt", attempt+1)
		return
	}
	slog.Debug("Retrying after server error",
		"url", req.URL.Redacted(),
		"status", status,
		"delay", delay,
		"attempt", attempt+1)
}

func rewindBody(req *http.Request) error {
	if req.GetBody == nil {
		return nil
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("failed to recreate request body for retry: %w", err)
	}
	req.Body = body
	return nil
}

// drain discards a failed response so its connection can be reused for
// the retry.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}

// wait sleeps for the backoff delay, aborting early if the request
// context is canceled.
func wait(req *http.Request, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-req.Context().Done():
		return req.Context().Err()
	case <-timer.C:
		return nil
	}
}
