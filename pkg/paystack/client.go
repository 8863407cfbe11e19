package paystack

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

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/vendorportal/pkg/errors"
	"github.com/angelmondragon/vendorportal/pkg/metrics"
	"github.com/angelmondragon/vendorportal/pkg/upstream"
)

const (
	defaultBaseURL            = "https://api.paystack.co"
	responseReadLimit   int64 = 1 << 20
	minorUnitsPerMajor        = 100
	defaultBankCountry        = "nigeria"
)

var errSecretKeyRequired = errors.New("paystack secret key is required")

// Client calls the Paystack REST API with a secret key.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
	metrics    *metrics.UpstreamMetrics
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

// WithBaseURL overrides the API root, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// WithMetrics records request latency and status per call.
func WithMetrics(m *metrics.UpstreamMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient builds a Paystack client for the given secret key.
func NewClient(secretKey string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(secretKey)
	if trimmed == "" {
		return nil, errSecretKeyRequired
	}
	client := &Client{
		secretKey:  trimmed,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// ToMinorUnits converts a major-unit amount (naira, cedi) to the integer subunit Paystack expects.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(minorUnitsPerMajor)).Round(0).IntPart()
}

// FromMinorUnits converts a Paystack subunit amount back to major units.
func FromMinorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, 0).Div(decimal.NewFromInt(minorUnitsPerMajor))
}

// InitializeInput describes a new transaction.
type InitializeInput struct {
	Email       string
	Amount      decimal.Decimal
	Currency    string
	Reference   string
	CallbackURL string
	Metadata    map[string]any
}

// Initialization is what the browser needs to open the checkout page.
type Initialization struct {
	AuthorizationURL string `json:"authorizationUrl"`
	AccessCode       string `json:"accessCode"`
	Reference        string `json:"reference"`
}

// InitializeTransaction starts a payment and returns the hosted checkout URL.
func (c *Client) InitializeTransaction(ctx context.Context, in InitializeInput) (*Initialization, error) {
	if strings.TrimSpace(in.Email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if !in.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	payload := map[string]any{
		"email":  in.Email,
		"amount": ToMinorUnits(in.Amount),
	}
	if in.Currency != "" {
		payload["currency"] = in.Currency
	}
	if in.Reference != "" {
		payload["reference"] = in.Reference
	}
	if in.CallbackURL != "" {
		payload["callback_url"] = in.CallbackURL
	}
	if len(in.Metadata) > 0 {
		payload["metadata"] = in.Metadata
	}

	var data struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	}
	if err := c.call(ctx, http.MethodPost, "/transaction/initialize", nil, payload, &data); err != nil {
		return nil, err
	}
	return &Initialization{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        data.Reference,
	}, nil
}

// Verification is the settled state of a transaction.
type Verification struct {
	Reference       string          `json:"reference"`
	Status          string          `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	GatewayResponse string          `json:"gatewayResponse,omitempty"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	CustomerEmail   string          `json:"customerEmail,omitempty"`
}

// VerifyTransaction fetches the current status of reference.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*Verification, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}

	var data struct {
		Reference       string     `json:"reference"`
		Status          string     `json:"status"`
		Amount          int64      `json:"amount"`
		Currency        string     `json:"currency"`
		GatewayResponse string     `json:"gateway_response"`
		PaidAt          *time.Time `json:"paid_at"`
		Customer        struct {
			Email string `json:"email"`
		} `json:"customer"`
	}
	if err := c.call(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, nil, &data); err != nil {
		return nil, err
	}
	return &Verification{
		Reference:       data.Reference,
		Status:          data.Status,
		Amount:          FromMinorUnits(data.Amount),
		Currency:        data.Currency,
		GatewayResponse: data.GatewayResponse,
		PaidAt:          data.PaidAt,
		CustomerEmail:   data.Customer.Email,
	}, nil
}

// Bank is a settlement bank supported by the gateway.
type Bank struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	Slug     string `json:"slug"`
	Currency string `json:"currency"`
	Active   bool   `json:"active"`
}

// ListBanks returns the banks available in country (defaults to nigeria).
func (c *Client) ListBanks(ctx context.Context, country string) ([]Bank, error) {
	country = strings.ToLower(strings.TrimSpace(country))
	if country == "" {
		country = defaultBankCountry
	}
	var banks []Bank
	if err := c.call(ctx, http.MethodGet, "/bank", url.Values{"country": []string{country}}, nil, &banks); err != nil {
		return nil, err
	}
	return banks, nil
}

// ResolvedAccount is the verified holder of a bank account.
type ResolvedAccount struct {
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
	BankCode      string `json:"bankCode"`
}

// ResolveAccount looks up the account name for accountNumber at bankCode.
func (c *Client) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*ResolvedAccount, error) {
	accountNumber = strings.TrimSpace(accountNumber)
	bankCode = strings.TrimSpace(bankCode)
	if accountNumber == "" || bankCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account number and bank code are required")
	}
	query := url.Values{"account_number": []string{accountNumber}, "bank_code": []string{bankCode}}
	var data struct {
		AccountNumber string `json:"account_number"`
		AccountName   string `json:"account_name"`
	}
	if err := c.call(ctx, http.MethodGet, "/bank/resolve", query, nil, &data); err != nil {
		return nil, err
	}
	return &ResolvedAccount{AccountNumber: data.AccountNumber, AccountName: data.AccountName, BankCode: bankCode}, nil
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, payload any, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "paystack client not configured")
	}

	target := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode paystack request")
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build paystack request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.Observe(metrics.TargetPaystack, method, 0, time.Since(start))
		return pkgerrors.Wrap(pkgerrors.CodeBadGateway, err, "paystack unreachable")
	}
	defer func() { _ = resp.Body.Close() }()
	c.metrics.Observe(metrics.TargetPaystack, method, resp.StatusCode, time.Since(start))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseReadLimit))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeBadGateway, err, "read paystack response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return upstream.ErrorFromResponse(&upstream.Response{Status: resp.StatusCode, Body: raw})
	}

	var envelope struct {
		Status  bool            `json:"status"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeBadGateway, err, "decode paystack response")
	}
	if !envelope.Status {
		msg := envelope.Message
		if msg == "" {
			msg = "paystack request failed"
		}
		return pkgerrors.Upstream(http.StatusBadGateway, msg)
	}
	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeBadGateway, fmt.Errorf("%s: %w", path, err), "decode paystack data")
	}
	return nil
}
