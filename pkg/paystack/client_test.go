package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/vendorportal/pkg/errors"
)

func TestInitializeTransactionSendsMinorUnits(t *testing.T) {
	var payload map[string]any
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.String() != "http://paystack.test/transaction/initialize" {
			t.Fatalf("unexpected url %s", req.URL)
		}
		if req.Header.Get("Authorization") != "Bearer sk_test_123" {
			t.Fatalf("missing secret key header")
		}
		body, _ := io.ReadAll(req.Body)
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal request: %v", err)
		}
		return jsonResponse(http.StatusOK, `{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.paystack.com/abc","access_code":"abc","reference":"ref-1"}}`), nil
	})

	client := newTestClient(t, rt)
	initialized, err := client.InitializeTransaction(context.Background(), InitializeInput{
		Email:     "buyer@example.com",
		Amount:    decimal.RequireFromString("1500.50"),
		Currency:  "NGN",
		Reference: "ref-1",
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if payload["amount"] != float64(150050) {
		t.Fatalf("expected amount in kobo, got %v", payload["amount"])
	}
	if initialized.AuthorizationURL != "https://checkout.paystack.com/abc" || initialized.Reference != "ref-1" {
		t.Fatalf("unexpected initialization %+v", initialized)
	}
}

func TestInitializeTransactionValidatesInput(t *testing.T) {
	client := newTestClient(t, roundTripFunc(func(*http.Request) (*http.Response, error) {
		t.Fatal("should not call gateway")
		return nil, nil
	}))
	_, err := client.InitializeTransaction(context.Background(), InitializeInput{Email: "a@b.c", Amount: decimal.Zero})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestVerifyTransactionConvertsAmount(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/transaction/verify/ref-9" {
			t.Fatalf("unexpected path %s", req.URL.Path)
		}
		return jsonResponse(http.StatusOK, `{"status":true,"data":{"reference":"ref-9","status":"success","amount":250000,"currency":"NGN","customer":{"email":"buyer@example.com"}}}`), nil
	})
	verification, err := newTestClient(t, rt).VerifyTransaction(context.Background(), "ref-9")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verification.Status != "success" || !verification.Amount.Equal(decimal.NewFromInt(2500)) {
		t.Fatalf("unexpected verification %+v", verification)
	}
	if verification.CustomerEmail != "buyer@example.com" {
		t.Fatalf("unexpected customer email %q", verification.CustomerEmail)
	}
}

func TestResolveAccountErrorKeepsGatewayStatus(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Query().Get("account_number") != "0001234567" || req.URL.Query().Get("bank_code") != "058" {
			t.Fatalf("unexpected query %s", req.URL.RawQuery)
		}
		return jsonResponse(http.StatusUnprocessableEntity, `{"status":false,"message":"Could not resolve account name"}`), nil
	})
	_, err := newTestClient(t, rt).ResolveAccount(context.Background(), "0001234567", "058")
	typed := pkgerrors.As(err)
	if typed == nil || typed.HTTPStatus() != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 upstream error, got %v", err)
	}
	if typed.Message() != "Could not resolve account name" {
		t.Fatalf("unexpected message %q", typed.Message())
	}
}

func TestListBanksDefaultsCountry(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Query().Get("country") != "nigeria" {
			t.Fatalf("expected default country, got %q", req.URL.Query().Get("country"))
		}
		return jsonResponse(http.StatusOK, `{"status":true,"data":[{"name":"Access Bank","code":"044","slug":"access-bank","currency":"NGN","active":true}]}`), nil
	})
	banks, err := newTestClient(t, rt).ListBanks(context.Background(), "")
	if err != nil {
		t.Fatalf("list banks: %v", err)
	}
	if len(banks) != 1 || banks[0].Code != "044" {
		t.Fatalf("unexpected banks %+v", banks)
	}
}

func TestTransportFailureIsBadGateway(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: timeout")
	})
	if _, err := newTestClient(t, rt).ListBanks(context.Background(), "ghana"); !pkgerrors.IsCode(err, pkgerrors.CodeBadGateway) {
		t.Fatalf("expected bad gateway, got %v", err)
	}
}

func TestMinorUnitConversions(t *testing.T) {
	if got := ToMinorUnits(decimal.RequireFromString("19.999")); got != 2000 {
		t.Fatalf("expected rounding to 2000, got %d", got)
	}
	if got := FromMinorUnits(1050); !got.Equal(decimal.RequireFromString("10.5")) {
		t.Fatalf("expected 10.5, got %s", got)
	}
}

func newTestClient(t *testing.T, rt http.RoundTripper) *Client {
	t.Helper()
	client, err := NewClient("sk_test_123", WithBaseURL("http://paystack.test/"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
