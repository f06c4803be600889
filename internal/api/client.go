// Package api is the typed client for the Evergreen banking REST backend.
//
// Every call reads the bearer token from a TokenSource at request time, so a
// login or logout is observed by the very next call. A 401 from any endpoint
// is reported once through the OnUnauthorized hook; nothing is retried.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"evergreen/internal/log"
)

// TokenSource yields the access token of the current caller, if any.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, bool)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, bool)

func (f TokenSourceFunc) AccessToken(ctx context.Context) (string, bool) { return f(ctx) }

// Client is a client for the banking backend.
type Client struct {
	baseURL        *url.URL
	httpClient     *http.Client
	tokens         TokenSource
	onUnauthorized func(ctx context.Context)
	logger         *log.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the timeout on the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithUnauthorizedHandler registers the hook invoked on every 401 response.
func WithUnauthorizedHandler(fn func(ctx context.Context)) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(log.ComponentAPI) }
}

// New creates a client rooted at baseURL, e.g. http://localhost:8000/api/v1.0/.
func New(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     tokens,
		logger:     log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// request describes one backend call.
type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   io.Reader
	// contentType defaults to application/json when body is set.
	contentType string
	// expect lists accepted status codes; empty means any 2xx.
	expect []int
}

func (c *Client) endpoint(path string, query url.Values) string {
	ref := &url.URL{Path: path}
	if len(query) > 0 {
		ref.RawQuery = query.Encode()
	}
	return c.baseURL.ResolveReference(ref).String()
}

// do executes req and decodes a successful body into out (when non-nil).
func (c *Client) do(ctx context.Context, req request, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.endpoint(req.path, req.query), req.body)
	if err != nil {
		return fmt.Errorf("api %s: build request: %w", req.op, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		ct := req.contentType
		if ct == "" {
			ct = "application/json"
		}
		httpReq.Header.Set("Content-Type", ct)
	}
	if c.tokens != nil {
		if token, ok := c.tokens.AccessToken(ctx); ok && token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.WarnContext(ctx, "Backend request failed",
			log.FieldEndpoint, req.op,
			log.FieldErrorType, log.ErrorTypeNetwork,
			log.FieldError, err)
		return &NetworkError{Op: req.op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: req.op, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.DebugContext(ctx, "Backend request completed",
		log.FieldEndpoint, req.op,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if !accepted(resp.StatusCode, req.expect) {
		msg, fields := parseErrorBody(body)
		apiErr := &APIError{Op: req.op, Status: resp.StatusCode, Message: msg, Fields: fields}
		if resp.StatusCode == http.StatusUnauthorized {
			if apiErr.Message == "" {
				apiErr.Message = "Your session has expired. Please log in again."
			}
			if c.onUnauthorized != nil {
				c.onUnauthorized(ctx)
			}
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("api %s: decode response: %w", req.op, err)
	}
	return nil
}

func accepted(status int, expect []int) bool {
	if len(expect) == 0 {
		return status >= 200 && status < 300
	}
	for _, s := range expect {
		if s == status {
			return true
		}
	}
	return false
}

func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}
