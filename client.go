package usertrace

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxResponseBodySize = 1 << 20 // 1MB

// connection pooling limits to prevent resource exhaustion when probing many sites
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 10
	defaultIdleConnTimeout     = 60 * time.Second
)

// Response holds the outcome of an HTTP request made by [Client].
//
// Response captures everything a site needs to judge a probe: the body
// (limited to 1MB), status code, the URL the request ended at after
// redirects, latency, and any error that occurred.
type Response struct {
	// Body contains the HTTP response body, limited to 1MB.
	Body []byte

	// StatusCode is the HTTP status code (e.g., 200, 404, 500).
	// Zero if the request failed before receiving a response.
	StatusCode int

	// FinalURL is the URL of the last request after following redirects.
	// Empty if the request failed before receiving a response.
	FinalURL string

	// Latency is the total time taken for the request.
	Latency time.Duration

	// Err contains any error that occurred during the request.
	// nil indicates the request completed (though the status code may
	// still indicate a failure).
	Err error
}

// Client is an HTTP client wrapper shared by all probes of a dispatch round.
//
// Client uses per-request timeouts via context rather than a global timeout,
// allowing different sites to have different timeout configurations.
// Response bodies are limited to 1MB to prevent memory issues. A Client is
// safe for concurrent use by any number of probes.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// ClientOption configures a [Client] during construction via [NewClient].
type ClientOption func(*Client)

// WithUserAgent sets the User-Agent header sent with every request that
// does not carry its own User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithHTTPClient replaces the underlying *http.Client.
//
// Use this to supply custom transport configuration (proxies, TLS settings).
// The supplied client must be safe for concurrent use.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a new probe [Client].
//
// The client is configured with connection pooling limits to prevent
// resource exhaustion when probing many sites at once. Timeouts are applied
// per request via the context parameter in [Client.Fetch], not as a global
// client timeout.
//
// Connection pooling configuration:
//   - MaxIdleConns: 100 total idle connections
//   - MaxIdleConnsPerHost: 10 idle connections per host
//   - MaxConnsPerHost: 10 concurrent connections per host
//   - IdleConnTimeout: 60 seconds before closing idle connections
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			// no default timeout - we use per-request timeouts via context
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
				DisableKeepAlives:   false,
			},
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Fetch performs an HTTP request and returns a structured [Response].
//
// The request is made with the provided context, method, URL, headers, and
// timeout. If method is empty, GET is used. A timeout of zero means no
// per-request deadline beyond the context's own. Response bodies are limited
// to 1MB to prevent memory exhaustion.
//
// Fetch always returns a Response; errors are captured in the Err field
// rather than returned separately. This simplifies handling in probes.
func (c *Client) Fetch(ctx context.Context, method, url string, headers map[string]string, timeout time.Duration) Response {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()

	// default to GET if method is empty
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Err:     fmt.Errorf("failed to create request: %w", err),
		}
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Err:     fmt.Errorf("request failed: %w", err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	// read body with size limit
	limitedReader := io.LimitReader(resp.Body, maxResponseBodySize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return Response{
			StatusCode: resp.StatusCode,
			FinalURL:   finalURL,
			Latency:    time.Since(start),
			Err:        fmt.Errorf("failed to read response body: %w", err),
		}
	}

	return Response{
		Body:       body,
		StatusCode: resp.StatusCode,
		FinalURL:   finalURL,
		Latency:    time.Since(start),
	}
}

// Close closes all idle connections in the client's connection pool.
//
// This should be called when the client is no longer needed to release
// resources immediately rather than waiting for the idle connection timeout.
// Safe to call multiple times. After Close, the client remains usable but
// new connections will be established as needed.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
