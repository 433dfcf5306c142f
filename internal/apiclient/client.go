// Package apiclient is the shared HTTP client every page uses to talk to the
// hospital REST API.
package apiclient

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
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apperrors "hmsportal/internal/errors"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4096

// ErrUnauthorized matches any *StatusError carrying a 401.
var ErrUnauthorized = errors.New("unauthorized")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("api status %d: %s", e.StatusCode, msg)
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses and
// errors.Is(err, apperrors.ErrUpstream) match 5xx responses.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case apperrors.ErrUpstream:
		return e.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// RequestInterceptor may modify an outgoing request.
type RequestInterceptor func(req *http.Request) error

// ResponseInterceptor observes every response before the caller sees it.
type ResponseInterceptor func(resp *http.Response) error

type requestHook struct {
	id int
	fn RequestInterceptor
}

type responseHook struct {
	id int
	fn ResponseInterceptor
}

// Client prefixes every request with the configured base URL and runs the
// registered interceptors around it. It applies no timeout of its own.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	observe    func(method string, status int)

	mu       sync.RWMutex
	seq      int
	requests []requestHook
	replies  []responseHook
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithObserver is called with the method and status of every response.
func WithObserver(fn func(method string, status int)) Option {
	return func(c *Client) { c.observe = fn }
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host required", baseURL)
	}
	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// UseRequest registers fn and returns a func that removes it.
func (c *Client) UseRequest(fn RequestInterceptor) (eject func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	id := c.seq
	c.requests = append(c.requests, requestHook{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, h := range c.requests {
			if h.id == id {
				c.requests = append(c.requests[:i:i], c.requests[i+1:]...)
				return
			}
		}
	}
}

// UseResponse registers fn and returns a func that removes it.
func (c *Client) UseResponse(fn ResponseInterceptor) (eject func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	id := c.seq
	c.replies = append(c.replies, responseHook{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, h := range c.replies {
			if h.id == id {
				c.replies = append(c.replies[:i:i], c.replies[i+1:]...)
				return
			}
		}
	}
}

// Interceptors reports how many request and response interceptors are installed.
func (c *Client) Interceptors() (requests, responses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.requests), len(c.replies)
}

type skipResponseKey struct{}

// WithoutResponseInterceptors marks ctx so responses bypass response interceptors.
// The login call uses it: a rejected password is not an expired session.
func WithoutResponseInterceptors(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipResponseKey{}, true)
}

func skipResponse(ctx context.Context) bool {
	skip, _ := ctx.Value(skipResponseKey{}).(bool)
	return skip
}

// URL resolves an API path (optionally with a query string) against the base URL.
func (c *Client) URL(path string) string {
	p, query, _ := strings.Cut(path, "?")
	u := c.baseURL.JoinPath(p)
	u.RawQuery = query
	return u.String()
}

// NewRequest builds a request with body encoded as JSON.
func (c *Client) NewRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Send runs the interceptors around one round trip.
func (c *Client) Send(req *http.Request) (*http.Response, error) {
	c.mu.RLock()
	requests := append([]requestHook(nil), c.requests...)
	replies := append([]responseHook(nil), c.replies...)
	c.mu.RUnlock()

	for _, h := range requests {
		if err := h.fn(req); err != nil {
			return nil, fmt.Errorf("request interceptor: %w", err)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	if c.observe != nil {
		c.observe(req.Method, resp.StatusCode)
	}

	if skipResponse(req.Context()) {
		return resp, nil
	}
	for _, h := range replies {
		if err := h.fn(resp); err != nil {
			resp.Body.Close()
			return nil, err
		}
	}
	return resp, nil
}

// Do sends a JSON request and decodes a 2xx JSON answer into out (when non-nil).
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.NewRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.Send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newStatusError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func newStatusError(resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		StatusCode: resp.StatusCode,
		Message:    MessageFromBody(body),
		Body:       body,
	}
}

// MessageFromBody extracts a human readable message from an error body of the
// form {"message": "..."} or {"error": "..."}. It returns "" when neither exists.
func MessageFromBody(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if m := strings.TrimSpace(payload.Message); m != "" {
		return m
	}
	if s, ok := payload.Error.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
