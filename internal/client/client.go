// Package client is a typed HTTP client for the warikan REST API
// (/api/v1). It mirrors the API's JSON contract with the types from
// internal/models and reports non-2xx responses as *APIError.
//
// The client holds no state besides its configuration and cookie jar;
// caching and refetch-after-write live in the directory and ledger packages.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// APIPrefix is the path prefix of every API endpoint.
const APIPrefix = "/api/v1"

// DefaultTimeout bounds each HTTP exchange when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// TokenSource supplies the bearer token for outgoing requests. An empty
// token means no Authorization header is sent.
type TokenSource interface {
	Token() string
}

// Client talks to the warikan REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

type options struct {
	timeout   time.Duration
	transport http.RoundTripper
	tokens    TokenSource
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*options)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithTransport replaces the base transport (http.DefaultTransport).
// Tests use it to route requests to an httptest.Server or a stub.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithTokenSource attaches bearer tokens from ts to every request.
func WithTokenSource(ts TokenSource) Option {
	return func(o *options) { o.tokens = ts }
}

// WithLogger sets the logger used for request logging.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New creates a Client for the API served at baseURL (scheme and host,
// optionally a path prefix in front of /api/v1).
func New(baseURL string, opts ...Option) (*Client, error) {
	o := options{
		timeout:   DefaultTimeout,
		transport: http.DefaultTransport,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	var transport http.RoundTripper = o.transport
	transport = &loggingTransport{next: transport, logger: o.logger}
	if o.tokens != nil {
		transport = &bearerTransport{next: transport, tokens: o.tokens}
	}
	transport = &requestIDTransport{next: transport}

	return &Client{
		baseURL: u,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   o.timeout,
			Jar:       jar,
		},
	}, nil
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// endpoint builds the absolute URL for an API path. path must already be
// escaped (see url.PathEscape).
func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL.JoinPath(APIPrefix + path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// call performs one JSON exchange. body, when non-nil, is encoded as the
// request body; out, when non-nil and the response has a body, receives the
// decoded response. op names the operation in returned errors.
func (c *Client) call(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if err := CheckResponse(op, resp); err != nil {
		return err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
