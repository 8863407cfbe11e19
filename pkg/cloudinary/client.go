package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/vendorportal/pkg/config"
	pkgerrors "github.com/angelmondragon/vendorportal/pkg/errors"
	"github.com/angelmondragon/vendorportal/pkg/metrics"
	"github.com/angelmondragon/vendorportal/pkg/upstream"
)

const (
	defaultBaseURL          = "https://api.cloudinary.com"
	responseReadLimit int64 = 1 << 20
)

// Client uploads images to Cloudinary, signed when api credentials are configured.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	cloudName    string
	apiKey       string
	apiSecret    string
	uploadPreset string
	folder       string
	now          func() time.Time
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

// WithClock overrides the timestamp source used for signatures.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMetrics records request latency and status per call.
func WithMetrics(m *metrics.UpstreamMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient validates cfg and builds a client. Either api key + secret or an upload preset is required.
func NewClient(cfg config.CloudinaryConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.CloudName) == "" {
		return nil, fmt.Errorf("cloudinary cloud name is required")
	}
	if !cfg.Signed() && strings.TrimSpace(cfg.UploadPreset) == "" {
		return nil, fmt.Errorf("cloudinary needs api key and secret or an upload preset")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		baseURL:      baseURL,
		cloudName:    strings.TrimSpace(cfg.CloudName),
		apiKey:       strings.TrimSpace(cfg.APIKey),
		apiSecret:    strings.TrimSpace(cfg.APISecret),
		uploadPreset: strings.TrimSpace(cfg.UploadPreset),
		folder:       strings.TrimSpace(cfg.Folder),
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Signed reports whether uploads are authenticated with the api secret.
func (c *Client) Signed() bool {
	return c.apiKey != "" && c.apiSecret != ""
}

// UploadInput is a single image upload.
type UploadInput struct {
	DataURI  string
	Folder   string
	PublicID string
}

// UploadResult is the subset of the Cloudinary answer returned to vendors.
type UploadResult struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Format   string `json:"format"`
	Bytes    int64  `json:"bytes"`
}

// ToDataURI encodes payload as a base64 data URI.
func ToDataURI(mime string, payload []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(payload)
}

// Sign computes the upload signature: SHA-1 hex of the sorted key=value pairs
// joined by '&' with the api secret appended. Empty values are skipped.
func Sign(params map[string]string, apiSecret string) string {
	keys := make([]string, 0, len(params))
	for key, value := range params {
		if value == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+params[key])
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + apiSecret))
	return hex.EncodeToString(sum[:])
}

// Upload posts the image and returns its hosted URL.
func (c *Client) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "image uploads are not configured")
	}
	if !strings.HasPrefix(in.DataURI, "data:") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file must be a data uri")
	}

	folder := strings.TrimSpace(in.Folder)
	if folder == "" {
		folder = c.folder
	}
	params := map[string]string{
		"folder":    folder,
		"public_id": strings.TrimSpace(in.PublicID),
	}
	if c.Signed() {
		params["timestamp"] = strconv.FormatInt(c.now().Unix(), 10)
		params["signature"] = Sign(params, c.apiSecret)
		params["api_key"] = c.apiKey
	} else {
		params["upload_preset"] = c.uploadPreset
	}

	body, contentType, err := buildForm(in.DataURI, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build upload form")
	}

	target := fmt.Sprintf("%s/v1_1/%s/image/upload", c.baseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build upload request")
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.Observe(metrics.TargetCloudinary, http.MethodPost, 0, time.Since(start))
		return nil, pkgerrors.Wrap(pkgerrors.CodeBadGateway, err, "image host unreachable")
	}
	defer func() { _ = resp.Body.Close() }()
	c.metrics.Observe(metrics.TargetCloudinary, http.MethodPost, resp.StatusCode, time.Since(start))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeBadGateway, err, "read upload response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, upstream.ErrorFromResponse(&upstream.Response{Status: resp.StatusCode, Body: raw})
	}

	var decoded struct {
		SecureURL string `json:"secure_url"`
		URL       string `json:"url"`
		PublicID  string `json:"public_id"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Format    string `json:"format"`
		Bytes     int64  `json:"bytes"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeBadGateway, err, "decode upload response")
	}
	url := decoded.SecureURL
	if url == "" {
		url = decoded.URL
	}
	return &UploadResult{
		URL:      url,
		PublicID: decoded.PublicID,
		Width:    decoded.Width,
		Height:   decoded.Height,
		Format:   decoded.Format,
		Bytes:    decoded.Bytes,
	}, nil
}

func buildForm(dataURI string, params map[string]string) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	if err := writer.WriteField("file", dataURI); err != nil {
		return nil, "", err
	}
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if params[key] == "" {
			continue
		}
		if err := writer.WriteField(key, params[key]); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf, writer.FormDataContentType(), nil
}
