package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/dmitrijs2005/appauth/internal/client/models"
	"golang.org/x/net/publicsuffix"
)

const (
	responseFormat     = "1.6.0"
	maxResponseBytes   = 1 << 20
	fallbackCookieName = "X-Fallback-Cookies"
)

// Options configures an HTTPClient.
type Options struct {
	// Endpoint is the API root, e.g. https://fra.cloud.appwrite.io/v1.
	Endpoint  string
	ProjectID string
	// Platform is the application id registered with the project; it is
	// sent as the request origin.
	Platform string
	// Timeout bounds every request; zero means no client-side limit.
	Timeout time.Duration
	// Transport overrides the HTTP transport; nil uses the default.
	Transport http.RoundTripper
}

// HTTPClient implements Client over the service's REST API.
type HTTPClient struct {
	endpoint  *url.URL
	projectID string
	origin    string
	timeout   time.Duration
	http      *http.Client

	mu              sync.Mutex
	fallbackCookies string
}

func NewHTTPClient(opts Options) (*HTTPClient, error) {
	u, err := url.Parse(opts.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q", opts.Endpoint)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	c := &HTTPClient{
		endpoint:  u,
		projectID: opts.ProjectID,
		timeout:   opts.Timeout,
		http:      &http.Client{Jar: jar, Transport: opts.Transport},
	}
	if opts.Platform != "" {
		c.origin = "appwrite-android://" + opts.Platform
	}
	return c, nil
}

type call struct {
	method string
	path   []string
	body   any
	out    any
	// remap adjusts the sentinel of an error response for this endpoint.
	remap func(e *APIError)
}

func (c *HTTPClient) do(ctx context.Context, cl call) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	u := c.endpoint.JoinPath(cl.path...)
	req, err := http.NewRequestWithContext(ctx, cl.method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Appwrite-Project", c.projectID)
	req.Header.Set("X-Appwrite-Response-Format", responseFormat)
	if c.origin != "" {
		req.Header.Set("Origin", c.origin)
	}
	if fb := c.fallback(); fb != "" {
		req.Header.Set(fallbackCookieName, fb)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, cl.method, u.Path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if fb := resp.Header.Get(fallbackCookieName); fb != "" {
		c.setFallback(fb)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", ErrUnavailable, err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := parseAPIError(resp.StatusCode, data)
		if cl.remap != nil {
			cl.remap(apiErr)
		}
		return apiErr
	}

	if cl.out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, cl.out); err != nil {
			return fmt.Errorf("decode %s response: %w", u.Path, err)
		}
	}
	return nil
}

func parseAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status, kind: kindForStatus(status)}

	var payload struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	}
	if json.Unmarshal(body, &payload) == nil {
		e.Message = payload.Message
		e.Type = payload.Type
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

func kindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict:
		return ErrConflict
	case status == http.StatusTooManyRequests, status >= http.StatusInternalServerError:
		return ErrUnavailable
	default:
		return ErrBadRequest
	}
}

func (c *HTTPClient) fallback() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fallbackCookies
}

func (c *HTTPClient) setFallback(v string) {
	c.mu.Lock()
	c.fallbackCookies = v
	c.mu.Unlock()
}

func (c *HTTPClient) CreateAccount(ctx context.Context, id, email, password, name string) (*models.Identity, error) {
	req := map[string]string{"userId": id, "email": email, "password": password, "name": name}

	var out models.Identity
	if err := c.do(ctx, call{method: http.MethodPost, path: []string{"account"}, body: req, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) CreateSession(ctx context.Context, email, password string) (*models.RemoteSession, error) {
	req := map[string]string{"email": email, "password": password}

	var out models.RemoteSession
	if err := c.do(ctx, call{method: http.MethodPost, path: []string{"account", "sessions", "email"}, body: req, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetAccount(ctx context.Context) (*models.Identity, error) {
	var out models.Identity
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   []string{"account"},
		out:    &out,
		remap: func(e *APIError) {
			if e.Status == http.StatusUnauthorized {
				e.kind = ErrNoSession
			}
		},
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteSession(ctx context.Context, sessionID string) error {
	if err := c.do(ctx, call{method: http.MethodDelete, path: []string{"account", "sessions", sessionID}}); err != nil {
		return err
	}
	if sessionID == models.CurrentSessionID {
		c.setFallback("")
	}
	return nil
}

func (c *HTTPClient) CreateVerification(ctx context.Context, redirectURL string) error {
	req := map[string]string{"url": redirectURL}
	return c.do(ctx, call{method: http.MethodPost, path: []string{"account", "verification"}, body: req})
}

func (c *HTTPClient) UpdateVerification(ctx context.Context, userID, secret string) error {
	req := map[string]string{"userId": userID, "secret": secret}
	return c.do(ctx, call{
		method: http.MethodPut,
		path:   []string{"account", "verification"},
		body:   req,
		remap: func(e *APIError) {
			if e.Status < http.StatusInternalServerError && e.Status != http.StatusTooManyRequests {
				e.kind = ErrInvalidToken
			}
		},
	})
}

func (c *HTTPClient) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data map[string]any) error {
	req := map[string]any{"documentId": documentID, "data": data}
	return c.do(ctx, call{
		method: http.MethodPost,
		path:   []string{"databases", databaseID, "collections", collectionID, "documents"},
		body:   req,
	})
}

func (c *HTTPClient) CreateJWT(ctx context.Context) (string, error) {
	var out struct {
		JWT string `json:"jwt"`
	}
	if err := c.do(ctx, call{method: http.MethodPost, path: []string{"account", "jwts"}, out: &out}); err != nil {
		return "", err
	}
	return out.JWT, nil
}

// Close releases idle connections. The session cookie is dropped with the
// client.
func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
