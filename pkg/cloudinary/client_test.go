package cloudinary

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/vendorportal/pkg/config"
	pkgerrors "github.com/angelmondragon/vendorportal/pkg/errors"
)

const uploadResponse = `{"secure_url":"https://res.cloudinary.com/demo/image/upload/v1/vendors/logo.png","public_id":"vendors/logo","width":640,"height":480,"format":"png","bytes":2048}`

func TestSignMatchesDocumentedAlgorithm(t *testing.T) {
	// Reference values from Cloudinary's signature guide.
	got := Sign(map[string]string{
		"eager":     "w_400,h_300,c_pad|w_260,h_200,c_crop",
		"public_id": "sample_image",
		"timestamp": "1315060510",
		"file":      "",
	}, "abcd")
	if got != "bfd09f95f331f558cbd1320e67aa8d488770583e" {
		t.Fatalf("unexpected signature %s", got)
	}
}

func TestUploadSignedSendsSignature(t *testing.T) {
	fixed := time.Unix(1700000000, 0)
	var form map[string]string

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.String() != "http://cloudinary.test/v1_1/demo/image/upload" {
			t.Fatalf("unexpected url %s", req.URL)
		}
		form = readForm(t, req)
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(uploadResponse)), Header: http.Header{}}, nil
	})

	client, err := NewClient(config.CloudinaryConfig{
		CloudName: "demo",
		APIKey:    "key-1",
		APISecret: "secret-1",
		Folder:    "vendors",
		BaseURL:   "http://cloudinary.test",
	}, WithHTTPClient(&http.Client{Transport: rt}), WithClock(func() time.Time { return fixed }))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	result, err := client.Upload(context.Background(), UploadInput{DataURI: ToDataURI("image/png", []byte("png-bytes"))})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	expected := Sign(map[string]string{"folder": "vendors", "timestamp": "1700000000"}, "secret-1")
	if form["signature"] != expected {
		t.Fatalf("expected signature %s, got %s", expected, form["signature"])
	}
	if form["api_key"] != "key-1" || form["timestamp"] != "1700000000" {
		t.Fatalf("missing signed fields %+v", form)
	}
	if _, ok := form["upload_preset"]; ok {
		t.Fatal("signed upload should not send a preset")
	}
	if !strings.HasPrefix(form["file"], "data:image/png;base64,") {
		t.Fatalf("expected data uri, got %q", form["file"])
	}
	if result.URL != "https://res.cloudinary.com/demo/image/upload/v1/vendors/logo.png" || result.Width != 640 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestUploadUnsignedUsesPreset(t *testing.T) {
	var form map[string]string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		form = readForm(t, req)
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(uploadResponse)), Header: http.Header{}}, nil
	})

	client, err := NewClient(config.CloudinaryConfig{CloudName: "demo", UploadPreset: "vendor_unsigned", BaseURL: "http://cloudinary.test"},
		WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.Signed() {
		t.Fatal("expected unsigned client")
	}
	if _, err := client.Upload(context.Background(), UploadInput{DataURI: ToDataURI("image/jpeg", []byte{0xff})}); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if form["upload_preset"] != "vendor_unsigned" {
		t.Fatalf("expected preset, got %+v", form)
	}
	if _, ok := form["signature"]; ok {
		t.Fatal("unsigned upload must not carry a signature")
	}
}

func TestUploadErrorKeepsHostMessage(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusBadRequest, Body: io.NopCloser(strings.NewReader(`{"error":{"message":"Invalid image file"}}`)), Header: http.Header{}}, nil
	})
	client, _ := NewClient(config.CloudinaryConfig{CloudName: "demo", UploadPreset: "p", BaseURL: "http://cloudinary.test"},
		WithHTTPClient(&http.Client{Transport: rt}))

	_, err := client.Upload(context.Background(), UploadInput{DataURI: "data:image/png;base64,AA=="})
	typed := pkgerrors.As(err)
	if typed == nil || typed.HTTPStatus() != http.StatusBadRequest || typed.Message() != "Invalid image file" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestNewClientRequiresCredentialsOrPreset(t *testing.T) {
	if _, err := NewClient(config.CloudinaryConfig{CloudName: "demo"}); err == nil {
		t.Fatal("expected missing credentials to fail")
	}
	if _, err := NewClient(config.CloudinaryConfig{APIKey: "k", APISecret: "s"}); err == nil {
		t.Fatal("expected missing cloud name to fail")
	}
}

func readForm(t *testing.T, req *http.Request) map[string]string {
	t.Helper()
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("parse multipart: %v", err)
	}
	form := map[string]string{}
	for key, values := range req.MultipartForm.Value {
		form[key] = values[0]
	}
	return form
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
