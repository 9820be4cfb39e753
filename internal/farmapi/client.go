// Package farmapi is the client for the external Farm REST API and its
// Authentication API.
//
// Tokens live in a Session that the caller creates and passes to every call. An
// authenticated request that comes back 401 triggers one refresh of the session
// followed by one retry; if that fails too the call returns ErrSessionExpired.
package farmapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/stwalsh4118/farmboard/internal/logger"
	"github.com/stwalsh4118/farmboard/internal/metrics"
)

const (
	// DefaultTimeout bounds every outbound request.
	DefaultTimeout = 15 * time.Second

	// FallbackMessage is shown when the API gives no usable message.
	FallbackMessage = "An unexpected error occurred. Please try again."

	serviceName  = "farmapi"
	maxBodyBytes = 4 << 20
)

var (
	// ErrSessionExpired means authentication failed even after one refresh. The user
	// has to sign in again.
	ErrSessionExpired = errors.New("session expired")

	// ErrUnavailable wraps transport failures: the API could not be reached.
	ErrUnavailable = errors.New("farm api unavailable")
)

// APIError is a non-2xx response. Message is the server-provided message when the
// body carried one, otherwise FallbackMessage.
type APIError struct {
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("farm api returned %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// UserMessage returns the text to show for err: the server message for API errors,
// the fallback for everything else.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return FallbackMessage
}

// Client talks to the Farm REST API. It holds no per-user state.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	log       *logger.Logger
	refreshes singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the client logger.
func WithLogger(log *logger.Logger) Option {
	return func(c *Client) {
		c.log = log.Component(serviceName)
	}
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid farm api url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid farm api url %q: scheme and host are required", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: DefaultTimeout},
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// request describes one API call. Public requests carry no bearer token and are
// never refreshed.
type request struct {
	body   interface{}
	out    interface{}
	query  url.Values
	method string
	path   string
	public bool
}

func (c *Client) do(ctx context.Context, sess *Session, r request) error {
	var payload []byte
	if r.body != nil {
		var err error
		payload, err = json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	if r.public {
		status, body, err := c.send(ctx, r, payload, "")
		if err != nil {
			return err
		}
		return decode(status, body, r.out)
	}

	if sess == nil {
		return fmt.Errorf("%w: no session", ErrSessionExpired)
	}

	sent := sess.Tokens()
	status, body, err := c.send(ctx, r, payload, sent.Access)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		if err := c.refresh(ctx, sess, sent); err != nil {
			return err
		}
		status, body, err = c.send(ctx, r, payload, sess.Tokens().Access)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			return fmt.Errorf("%w: %s %s rejected after refresh", ErrSessionExpired, r.method, r.path)
		}
	}

	return decode(status, body, r.out)
}

// refresh rotates the session's tokens once. Concurrent refreshes of the same
// refresh token share one upstream call.
func (c *Client) refresh(ctx context.Context, sess *Session, sent Tokens) error {
	// Another request on this session already rotated the pair
	if sess.Tokens().Access != sent.Access {
		return nil
	}
	if sent.Refresh == "" {
		metrics.TokenRefreshes.WithLabelValues("missing").Inc()
		return fmt.Errorf("%w: no refresh token", ErrSessionExpired)
	}

	v, err, _ := c.refreshes.Do(sent.Refresh, func() (interface{}, error) {
		return c.RefreshTokens(ctx, sent.Refresh)
	})
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("failure").Inc()
		c.log.Warn("Token refresh failed", map[string]interface{}{
			"error": err.Error(),
		})
		// Only a refused refresh ends the session; outages surface as upstream errors
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
			return fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}
		return fmt.Errorf("failed to refresh tokens: %w", err)
	}

	metrics.TokenRefreshes.WithLabelValues("success").Inc()
	sess.rotate(v.(Tokens))
	return nil
}

func (c *Client) send(ctx context.Context, r request, payload []byte, token string) (int, []byte, error) {
	ref := &url.URL{Path: strings.TrimPrefix(r.path, "/")}
	if len(r.query) > 0 {
		ref.RawQuery = r.query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL.ResolveReference(ref).String(), reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveUpstream(serviceName, 0, time.Since(start))
		c.log.Warn("Farm API request failed", map[string]interface{}{
			"method": r.method,
			"path":   r.path,
			"error":  err.Error(),
		})
		return 0, nil, fmt.Errorf("%w: %s %s: %w", ErrUnavailable, r.method, r.path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	elapsed := time.Since(start)
	metrics.ObserveUpstream(serviceName, resp.StatusCode, elapsed)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: reading %s %s: %w", ErrUnavailable, r.method, r.path, err)
	}

	c.log.Debug("Farm API request", map[string]interface{}{
		"method":      r.method,
		"path":        r.path,
		"status":      resp.StatusCode,
		"duration_ms": elapsed.Milliseconds(),
	})

	return resp.StatusCode, body, nil
}

func decode(status int, body []byte, out interface{}) error {
	if status < 200 || status >= 300 {
		return &APIError{StatusCode: status, Message: serverMessage(body)}
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode farm api response: %w", err)
	}
	return nil
}

// serverMessage extracts a human-readable message from an error body. It looks at
// detail, message and error in that order, then at field errors of the form
// {"name": ["This field is required."]}.
func serverMessage(body []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return firstString(body, FallbackMessage)
	}

	for _, key := range []string{"detail", "message", "error"} {
		if raw, ok := fields[key]; ok {
			if msg := firstString(raw, ""); msg != "" {
				return msg
			}
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if msg := firstString(fields[k], ""); msg != "" {
			if k == "non_field_errors" {
				return msg
			}
			return k + ": " + msg
		}
	}

	return FallbackMessage
}

// firstString decodes raw as a string or a list of strings and returns the first
// non-blank one.
func firstString(raw []byte, fallback string) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
		return fallback
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, item := range list {
			if item = strings.TrimSpace(item); item != "" {
				return item
			}
		}
	}
	return fallback
}

// listAll fetches a collection. Both bare arrays and paginated {"results": [...]}
// bodies are accepted.
func listAll[T any](ctx context.Context, c *Client, sess *Session, path string) ([]T, error) {
	var raw json.RawMessage
	if err := c.do(ctx, sess, request{method: http.MethodGet, path: path, out: &raw}); err != nil {
		return nil, err
	}

	items := []T{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return items, nil
	}

	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("failed to decode %s list: %w", path, err)
		}
		return items, nil
	}

	var page struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, fmt.Errorf("failed to decode %s page: %w", path, err)
	}
	if page.Results != nil {
		items = page.Results
	}
	return items, nil
}
