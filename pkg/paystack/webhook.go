package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/vendorportal/pkg/errors"
)

// SignatureHeader carries the HMAC of the webhook body.
const SignatureHeader = "X-Paystack-Signature"

// Webhook event names handled by checkout.
const (
	EventChargeSuccess = "charge.success"
	EventChargeFailed  = "charge.failed"
)

// VerifySignature checks the HMAC-SHA512 of body against the hex signature header.
func VerifySignature(secretKey string, body []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	if secretKey == "" || signature == "" {
		return false
	}
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}

// Sign returns the hex signature Paystack would send for body.
func Sign(secretKey string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a webhook against this client's secret key.
func (c *Client) VerifySignature(body []byte, signature string) bool {
	if c == nil {
		return false
	}
	return VerifySignature(c.secretKey, body, signature)
}

// Event is a decoded webhook notification.
type Event struct {
	Name      string
	Reference string
	Status    string
	Amount    decimal.Decimal
	Currency  string
}

// ParseEvent decodes the subset of the webhook payload checkout needs.
func ParseEvent(body []byte) (*Event, error) {
	var payload struct {
		Event string `json:"event"`
		Data  struct {
			Reference string `json:"reference"`
			Status    string `json:"status"`
			Amount    int64  `json:"amount"`
			Currency  string `json:"currency"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload")
	}
	if payload.Event == "" || payload.Data.Reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook event and reference are required")
	}
	return &Event{
		Name:      payload.Event,
		Reference: payload.Data.Reference,
		Status:    payload.Data.Status,
		Amount:    FromMinorUnits(payload.Data.Amount),
		Currency:  payload.Data.Currency,
	}, nil
}
