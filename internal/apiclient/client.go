package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// TokenSource returns the bearer token to attach, or "" for none.
type TokenSource func() string

// UnauthorizedHandler is called once for every 401 received on a request
// that carried a token. It receives the token that was rejected.
type UnauthorizedHandler func(token string)

type ctxKey int

const (
	skipUnauthorizedKey ctxKey = iota
	tokenOverrideKey
)

// WithoutUnauthorizedHook marks requests made with ctx so that a 401 is
// returned to the caller without invoking the unauthorized handler.
// Session restore uses it to avoid a redirect loop at startup.
func WithoutUnauthorizedHook(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipUnauthorizedKey, true)
}

// WithToken makes requests made with ctx use token instead of the
// client's token source.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenOverrideKey, token)
}

// Client is a thin HTTP client for the email agent REST API. It attaches
// the bearer token on every request, maps failures to *Error and reports
// authentication failures to the registered handler. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger

	mu             sync.RWMutex
	tokens         TokenSource
	onUnauthorized UnauthorizedHandler
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the transport timeout for each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRateLimit delays outbound requests to at most perSecond per second.
// A non-positive rate leaves requests unthrottled.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTokenSource sets the initial token source.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// New creates a new API client. The baseURL is the REST root including any
// provider prefix (e.g., http://localhost:8000/api/v1).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the REST root the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetTokenSource replaces the token source. The session store installs
// itself here once it has been constructed.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = ts
}

// OnUnauthorized registers the handler invoked on authentication failure.
func (c *Client) OnUnauthorized(fn UnauthorizedHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

// Token returns the token that a request made with ctx would carry.
func (c *Client) Token(ctx context.Context) string {
	if override, ok := ctx.Value(tokenOverrideKey).(string); ok {
		return override
	}

	c.mu.RLock()
	ts := c.tokens
	c.mu.RUnlock()

	if ts == nil {
		return ""
	}
	return ts()
}

// Get performs an HTTP GET request and unmarshals the JSON response.
func (c *Client) Get(
	ctx context.Context,
	path string,
	query url.Values,
	result any,
) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, result)
}

// Post performs an HTTP POST request with a JSON body and unmarshals
// the JSON response.
func (c *Client) Post(
	ctx context.Context,
	path string,
	body any,
	result any,
) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, result)
}

// Put performs an HTTP PUT request with a JSON body and unmarshals the
// JSON response.
func (c *Client) Put(
	ctx context.Context,
	path string,
	body any,
	result any,
) error {
	return c.Do(ctx, http.MethodPut, path, nil, body, result)
}

// Delete performs an HTTP DELETE request and unmarshals the JSON response.
func (c *Client) Delete(
	ctx context.Context,
	path string,
	result any,
) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, result)
}

// Do builds one request, attaches auth, executes it and decodes the JSON
// response into result (which may be nil).
func (c *Client) Do(
	ctx context.Context,
	method string,
	path string,
	query url.Values,
	body any,
	result any,
) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &Error{
				Kind:    KindTransport,
				Method:  method,
				Path:    path,
				Message: "request canceled while rate limited",
				Err:     err,
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	token := c.Token(ctx)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("api request failed",
			"method", method, "path", path, "error", err)
		return &Error{
			Kind:    KindTransport,
			Method:  method,
			Path:    path,
			Message: "could not reach the server",
			Err:     err,
		}
	}

	respBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return &Error{
			Kind:       KindTransport,
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Message:    "reading response body failed",
			Err:        readErr,
		}
	}

	c.logger.Debug("api request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newStatusError(method, path, resp.StatusCode, respBody)
		if apiErr.Kind == KindUnauthorized && token != "" {
			c.notifyUnauthorized(ctx, token)
		}
		return apiErr
	}

	// No content to parse (e.g. 204).
	if result == nil || resp.StatusCode == http.StatusNoContent || len(respBody) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return &Error{
			Kind:       KindDecode,
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Message:    "unexpected response from server",
			Err:        err,
		}
	}

	return nil
}

// notifyUnauthorized runs the registered handler unless ctx opted out.
func (c *Client) notifyUnauthorized(ctx context.Context, token string) {
	if skip, _ := ctx.Value(skipUnauthorizedKey).(bool); skip {
		return
	}

	c.mu.RLock()
	fn := c.onUnauthorized
	c.mu.RUnlock()

	if fn != nil {
		fn(token)
	}
}

// WebSocketURL converts the REST root into a ws(s) URL for path.
func (c *Client) WebSocketURL(path string, query url.Values) (string, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return "", fmt.Errorf("parsing websocket url: %w", err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported base url scheme %q", u.Scheme)
	}

	u.RawQuery = query.Encode()
	return u.String(), nil
}
