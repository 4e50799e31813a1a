// Package transport issues HTTP requests with a bounded, linear-backoff retry
// loop. Only failures to reach the server are retried; any delivered response,
// whatever its status, is handed back to the caller untouched.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// MaxResponseSize bounds how much of a response body is read into memory.
const MaxResponseSize int64 = 32 << 20

// Policy is the retry budget of one call site.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int
	// BaseDelay is multiplied by the attempt number to get the wait after
	// that attempt fails.
	BaseDelay time.Duration
}

// Delay returns the wait after the given failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(attempt)
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

type Request struct {
	Method string
	URL    string
	Header http.Header
	// Body is sent verbatim on every attempt. Nil means no body.
	Body []byte
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Clock is the part of time the retry loop needs. Tests substitute a clock
// that records the requested delays.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock returns a Clock backed by the time package.
func RealClock() Clock { return realClock{} }

type Config struct {
	// HTTPClient is used for every attempt. If nil, a client with a 30s
	// timeout is used.
	HTTPClient *http.Client
	// Logger receives retry (Info) and final failure (Error) events. If
	// nil, slog.Default() is used.
	Logger *slog.Logger
	Clock  Clock
}

type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	clock      Clock
}

func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		clock:      clock,
	}
}

// Send performs req, retrying network failures up to policy.MaxAttempts
// times with a delay of BaseDelay*attempt between attempts. A response that
// was received is returned as-is regardless of status. When every attempt
// fails at the network level the error is a *NetworkError; other failures
// are returned immediately without retry.
func (c *Client) Send(ctx context.Context, req Request, policy Policy) (*Response, error) {
	attempts := policy.attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := c.do(ctx, req)
		if err == nil {
			return resp, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("transport: %s %s: %w", req.Method, req.URL, ctxErr)
		}
		if !IsNetworkError(err) {
			c.logger.Error("api request failed",
				"method", req.Method, "url", req.URL, "attempt", attempt, "err", err)
			return nil, fmt.Errorf("transport: %s %s: %w", req.Method, req.URL, err)
		}
		lastErr = err
		if attempt == attempts {
			break
		}

		delay := policy.Delay(attempt)
		c.logger.Info("network error, retrying api request",
			"method", req.Method, "url", req.URL, "attempt", attempt, "delay", delay, "err", err)
		select {
		case <-c.clock.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("transport: %s %s: %w", req.Method, req.URL, ctx.Err())
		}
	}

	c.logger.Error("api request failed",
		"method", req.Method, "url", req.URL, "attempts", attempts, "err", lastErr)
	return nil, &NetworkError{
		Method:   req.Method,
		URL:      req.URL,
		Attempts: attempts,
		Err:      lastErr,
	}
}

func (c *Client) do(ctx context.Context, req Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, MaxResponseSize))
	if err != nil {
		return nil, &ResponseReadError{StatusCode: httpResp.StatusCode, Err: err}
	}
	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}, nil
}
