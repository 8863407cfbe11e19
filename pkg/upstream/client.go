package upstream

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
	"time"

	pkgerrors "github.com/angelmondragon/vendorportal/pkg/errors"
	"github.com/angelmondragon/vendorportal/pkg/metrics"
)

const (
	defaultTimeout            = 15 * time.Second
	defaultMaxBodyBytes int64 = 5 << 20
	contentTypeJSON           = "application/json"
)

var errBaseURLRequired = errors.New("backend api base url is required")

// Client talks to the backend REST API on behalf of a vendor session.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	maxBodyBytes int64
	metrics      *metrics.UpstreamMetrics
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithMaxBodyBytes caps how much of an upstream response is buffered.
func WithMaxBodyBytes(limit int64) Option {
	return func(c *Client) {
		if limit > 0 {
			c.maxBodyBytes = limit
		}
	}
}

// WithMetrics records request latency and status per call.
func WithMetrics(m *metrics.UpstreamMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient builds a backend API client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		baseURL:      trimmed,
		httpClient:   &http.Client{Timeout: defaultTimeout},
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return client, nil
}

// Request describes one call to the backend API.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        []byte
	ContentType string
	// Token is sent as a bearer credential when non-empty.
	Token  string
	Header http.Header
}

// Response is a fully buffered upstream answer.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// ContentType returns the upstream content type, defaulting to JSON.
func (r *Response) ContentType() string {
	if r == nil || r.Header == nil {
		return contentTypeJSON
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return contentTypeJSON
}

// Do sends req and buffers the response. Only transport failures return an error;
// non-2xx answers come back as a Response for the caller to inspect.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "backend api client not configured")
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.buildURL(req.Path, req.Query), body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build upstream request")
	}

	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
	httpReq.Header.Set("Accept", contentTypeJSON)
	if len(req.Body) > 0 {
		contentType := req.ContentType
		if contentType == "" {
			contentType = contentTypeJSON
		}
		httpReq.Header.Set("Content-Type", contentType)
	}
	if token := strings.TrimSpace(req.Token); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.Observe(metrics.TargetBackend, method, 0, time.Since(start))
		return nil, pkgerrors.Wrap(pkgerrors.CodeBadGateway, err, "backend api unreachable")
	}
	defer func() { _ = resp.Body.Close() }()
	c.metrics.Observe(metrics.TargetBackend, method, resp.StatusCode, time.Since(start))

	payload, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeBadGateway, err, "read upstream response")
	}
	if int64(len(payload)) > c.maxBodyBytes {
		return nil, pkgerrors.New(pkgerrors.CodeBadGateway, "upstream response too large")
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: payload}, nil
}

// DoJSON marshals payload (when non-nil) and sends it as the request body.
func (c *Client) DoJSON(ctx context.Context, method, path, token string, payload any) (*Response, error) {
	req := Request{Method: method, Path: path, Token: token}
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode upstream payload")
		}
		req.Body = encoded
	}
	return c.Do(ctx, req)
}

func (c *Client) buildURL(path string, query url.Values) string {
	path = "/" + strings.TrimLeft(strings.TrimSpace(path), "/")
	target := fmt.Sprintf("%s%s", c.baseURL, path)
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}
	return target
}
