package upstream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/vendorportal/pkg/errors"
)

func TestClientDoForwardsMethodQueryBodyAndToken(t *testing.T) {
	var captured *http.Request
	var capturedBody string

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		captured = req
		if req.Body != nil {
			b, _ := io.ReadAll(req.Body)
			capturedBody = string(b)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"data":[{"id":"p1"}]}`)),
			Header:     http.Header{"Content-Type": []string{"application/json"}},
		}, nil
	})

	client, err := NewClient("http://backend.test/", WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	resp, err := client.Do(context.Background(), Request{
		Method: http.MethodPut,
		Path:   "/api/vendor/products/p1",
		Query:  url.Values{"page": []string{"2"}},
		Body:   []byte(`{"name":"Tee"}`),
		Token:  "tok-123",
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if captured.Method != http.MethodPut {
		t.Fatalf("expected PUT, got %s", captured.Method)
	}
	if got := captured.URL.String(); got != "http://backend.test/api/vendor/products/p1?page=2" {
		t.Fatalf("unexpected url %s", got)
	}
	if got := captured.Header.Get("Authorization"); got != "Bearer tok-123" {
		t.Fatalf("unexpected authorization %q", got)
	}
	if got := captured.Header.Get("Content-Type"); got != "application/json" {
		t.Fatalf("unexpected content type %q", got)
	}
	if capturedBody != `{"name":"Tee"}` {
		t.Fatalf("unexpected body %q", capturedBody)
	}
	if !resp.OK() || string(resp.Body) != `{"data":[{"id":"p1"}]}` {
		t.Fatalf("expected body passthrough, got status=%d body=%s", resp.Status, resp.Body)
	}
}

func TestClientDoOmitsAuthorizationWithoutToken(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.Header.Get("Authorization") != "" {
			t.Fatalf("did not expect authorization header")
		}
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(`{}`)), Header: http.Header{}}, nil
	})
	client, _ := NewClient("http://backend.test", WithHTTPClient(&http.Client{Transport: rt}))
	if _, err := client.DoJSON(context.Background(), http.MethodPost, "api/vendors/login", "", map[string]string{"email": "a@b.c"}); err != nil {
		t.Fatalf("do json: %v", err)
	}
}

func TestClientDoTransportFailureIsBadGateway(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	client, _ := NewClient("http://backend.test", WithHTTPClient(&http.Client{Transport: rt}))
	_, err := client.Do(context.Background(), Request{Path: "/api/vendor/wallet"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeBadGateway) {
		t.Fatalf("expected bad gateway, got %v", err)
	}
	if pkgerrors.As(err).HTTPStatus() != http.StatusBadGateway {
		t.Fatalf("expected 502")
	}
}

func TestClientDoRejectsOversizedBody(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(strings.Repeat("a", 32))), Header: http.Header{}}, nil
	})
	client, _ := NewClient("http://backend.test", WithHTTPClient(&http.Client{Transport: rt}), WithMaxBodyBytes(16))
	if _, err := client.Do(context.Background(), Request{Path: "/big"}); !pkgerrors.IsCode(err, pkgerrors.CodeBadGateway) {
		t.Fatalf("expected oversized body to fail, got %v", err)
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatal("expected error for blank base url")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
