// Package apiclient is the SDK's resilient HTTP client for the Onairos
// backend: bounded timeouts, bounded retries on transport failure, and
// centralized classification of error responses into the public taxonomy.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/onairos/onairos-go/internal/session"
	"github.com/onairos/onairos-go/pkg/api"
)

// RetryPolicy controls how a request is retried after a transport-level
// failure. MaxAttempts includes the first attempt; Delay is the fixed wait
// between attempts. HTTP error responses are never retried here: the server
// answered, and the answer is classified instead.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

func (p RetryPolicy) normalize() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	return p
}

// Config describes how to construct a Client.
type Config struct {
	// BaseURL is the backend root, e.g. "https://api.onairos.uk".
	BaseURL string

	// RequestTimeout bounds each individual attempt. Defaults to 15s.
	RequestTimeout time.Duration

	// ClientTimeout is the larger resource timeout on the underlying
	// http.Client, covering the response body as well. Defaults to 60s.
	ClientTimeout time.Duration

	// Retry is applied to transport-level failures.
	Retry RetryPolicy

	// Sessions supplies the bearer token for authenticated endpoints and
	// receives proactive stale-token clears.
	Sessions session.Store

	// Logger receives diagnostics. Nil means slog.Default().
	Logger *slog.Logger

	// Level adds per-attempt detail at LogVerbose.
	Level api.LogLevel

	// HTTPClient overrides the underlying client; mainly for tests.
	HTTPClient *http.Client

	// Now overrides the clock; mainly for tests.
	Now func() time.Time
}

// Client issues requests to the Onairos backend. It is safe for concurrent
// use and is normally constructed once per SDK instance.
type Client struct {
	baseURL        string
	http           *http.Client
	requestTimeout time.Duration
	retry          RetryPolicy
	sessions       session.Store
	logger         *slog.Logger
	verbose        bool
	now            func() time.Time
}

// New creates a Client from cfg.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, api.ErrInvalidConfig.WithCause(errors.New("apiclient: BaseURL is required"))
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, api.ErrInvalidConfig.WithCause(err)
	}

	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 15 * time.Second
	}
	clientTimeout := cfg.ClientTimeout
	if clientTimeout <= 0 {
		clientTimeout = 60 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: clientTimeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		baseURL:        base,
		http:           httpClient,
		requestTimeout: requestTimeout,
		retry:          cfg.Retry.normalize(),
		sessions:       cfg.Sessions,
		logger:         logger,
		verbose:        cfg.Level == api.LogVerbose,
		now:            now,
	}, nil
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string { return c.baseURL }

// bearer runs the local pre-flight for authenticated endpoints: token must
// be present and unexpired, otherwise the call fails fast without a
// guaranteed-401 round trip.
func (c *Client) bearer(ctx context.Context) (string, error) {
	if c.sessions == nil {
		return "", api.ErrInvalidCredentials
	}
	creds, err := session.ActiveBearer(ctx, c.sessions, c.now())
	if err != nil {
		return "", err
	}
	return creds.BearerToken, nil
}

// do issues one logical request: marshal, attempt loop with bounded retry on
// transport failure, then classify the response. out may be nil.
func (c *Client) do(ctx context.Context, method, path string, body any, out any, bearer string) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return api.UnknownError(fmt.Errorf("apiclient: encode request: %w", err))
		}
	}

	rawURL := c.baseURL + path

	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if attempt > 1 && c.retry.Delay > 0 {
			select {
			case <-ctx.Done():
				return classifyTransport(ctx.Err())
			case <-time.After(c.retry.Delay):
			}
		}

		resp, err := c.attempt(ctx, method, rawURL, payload, bearer)
		if err == nil {
			return c.decode(resp, out)
		}

		lastErr = err
		if c.verbose {
			c.logger.Debug("request_attempt_failed",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
		}
		// The parent context is gone; further attempts cannot succeed.
		if ctx.Err() != nil {
			break
		}
	}

	c.logger.Debug("request_failed",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("attempts", c.retry.MaxAttempts),
	)
	return classifyTransport(lastErr)
}

// attempt performs a single HTTP exchange under the per-attempt timeout.
func (c *Client) attempt(ctx context.Context, method, rawURL string, payload []byte, bearer string) (*http.Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, rawURL, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	// Read the body before the attempt context is cancelled.
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(data))
	return resp, nil
}

// decode maps the response onto out or onto a classified error.
func (c *Client) decode(resp *http.Response, out any) error {
	data, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(data) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return api.UnknownError(fmt.Errorf("apiclient: decode response: %w", err))
		}
		return nil
	}

	return classifyStatus(resp.StatusCode, data)
}

// classifyStatus is the centralized HTTP status mapping.
func classifyStatus(status int, body []byte) *api.Error {
	if status == http.StatusUnauthorized {
		return api.ErrInvalidCredentials.WithCause(fmt.Errorf("apiclient: status %d", status))
	}
	return api.APIError(status, extractMessage(body))
}

// extractMessage opportunistically pulls a "message" (or "error") field out
// of an error body to enrich generic status-code errors.
func extractMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if envelope.Message != "" {
		return envelope.Message
	}
	return envelope.Error
}

// classifyTransport maps transport-level failures into the taxonomy.
func classifyTransport(err error) *api.Error {
	if err == nil {
		return api.ErrNetworkFailure
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return api.ErrRequestTimeout.WithCause(err)
	}
	if errors.Is(err, context.Canceled) {
		return api.ErrNetworkFailure.WithCause(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return api.ErrRequestTimeout.WithCause(err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return api.ErrNetworkUnavailable.WithCause(err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return api.ErrNetworkUnavailable.WithCause(err)
	}
	return api.ErrNetworkFailure.WithCause(err)
}
