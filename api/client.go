package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultPrefix is the path segment every backend route lives under.
const DefaultPrefix = "/api/v1"

// maxErrorBody bounds how much of an error response is kept on [Error.Body].
const maxErrorBody = 64 << 10

// Client sends JSON requests to the backend through a session-aware [Transport].
type Client struct {
	root string
	http *http.Client
}

type options struct {
	httpClient  *http.Client
	prefix      string
	session     SessionSource
	invalidator Invalidator
	logger      *slog.Logger
	userAgent   string
	timeout     time.Duration
	observer    RequestObserver
}

// Option configures a [Client].
type Option func(*options)

// WithHTTPClient sets the underlying client. Its Transport becomes the base of
// the session transport; the value passed in is not modified.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithPrefix overrides [DefaultPrefix].
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithSession sets where the bearer token is read from.
func WithSession(s SessionSource) Option {
	return func(o *options) { o.session = s }
}

// WithInvalidator sets what clears the session on 401.
func WithInvalidator(inv Invalidator) Option {
	return func(o *options) { o.invalidator = inv }
}

// WithLogger sets the request logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// WithTimeout sets a per-request timeout. Zero means none.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithObserver sets a [RequestObserver].
func WithObserver(fn RequestObserver) Option {
	return func(o *options) { o.observer = fn }
}

// New creates a [Client] for the backend rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	o := options{prefix: DefaultPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be an absolute http(s) url", baseURL)
	}

	root := strings.TrimRight(u.String(), "/")
	if prefix := strings.Trim(o.prefix, "/"); prefix != "" {
		root += "/" + prefix
	}

	var hc http.Client
	if o.httpClient != nil {
		hc = *o.httpClient
	}
	if o.timeout > 0 {
		hc.Timeout = o.timeout
	}
	t := &Transport{
		Base:        hc.Transport,
		Session:     o.session,
		Invalidator: o.invalidator,
		Logger:      o.logger,
		UserAgent:   o.userAgent,
		Observer:    o.observer,
	}
	hc.Transport = t

	return &Client{root: root, http: &hc}, nil
}

// URL returns the absolute URL for path.
func (c *Client) URL(path string) string {
	return c.root + "/" + strings.TrimLeft(path, "/")
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, body, out)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodDelete, path, query, nil, out)
}

// Do sends one request. A nil body sends no payload; a nil out discards the
// response body. Non-2xx responses and transport failures return an [*Error].
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, query, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

// Upload sends r as a multipart form file under field.
func (c *Client) Upload(ctx context.Context, path, field, filename string, r io.Reader, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, nil, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	target := c.URL(path)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return networkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return responseError(resp.StatusCode, data)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode %s %s response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}
