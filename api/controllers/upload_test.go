package controllers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/vendorportal/pkg/cloudinary"
)

type stubUploads struct {
	maxBytes int64
	payloads [][]byte
	vendors  []string
}

func (s *stubUploads) MaxBytes() int64 { return s.maxBytes }

func (s *stubUploads) Upload(_ context.Context, vendorID string, file io.Reader) (*cloudinary.UploadResult, error) {
	payload, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	s.vendors = append(s.vendors, vendorID)
	s.payloads = append(s.payloads, payload)
	return &cloudinary.UploadResult{URL: "https://res.cloudinary.com/demo/image/upload/v1/x.png", Bytes: int64(len(payload))}, nil
}

func multipartRequest(t *testing.T, field string, payload []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, "logo.png")
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadStoresFile(t *testing.T) {
	svc := &stubUploads{maxBytes: 1 << 20}
	payload := []byte("\x89PNG\r\n\x1a\nfake")
	req := withSession(multipartRequest(t, "file", payload), "tok", "vendor-1")
	rec := httptest.NewRecorder()
	Upload(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"vendor-1"}, svc.vendors)
	assert.Equal(t, [][]byte{payload}, svc.payloads)
	assert.JSONEq(t, `"https://res.cloudinary.com/demo/image/upload/v1/x.png"`, string(extractField(t, decodeEnvelope(t, rec.Body.Bytes()).Data, "url")))
}

func TestUploadMissingFile(t *testing.T) {
	svc := &stubUploads{maxBytes: 1 << 20}
	req := withSession(multipartRequest(t, "image", []byte("data")), "tok", "vendor-1")
	rec := httptest.NewRecorder()
	Upload(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file provided", decodeEnvelope(t, rec.Body.Bytes()).Error)
}

func TestUploadRejectsOversizedBody(t *testing.T) {
	svc := &stubUploads{maxBytes: 16}
	req := withSession(multipartRequest(t, "file", bytes.Repeat([]byte("a"), 2<<20)), "tok", "vendor-1")
	rec := httptest.NewRecorder()
	Upload(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, svc.payloads)
}

func TestUploadRequiresVendor(t *testing.T) {
	svc := &stubUploads{maxBytes: 1 << 20}
	rec := httptest.NewRecorder()
	Upload(svc, nil).ServeHTTP(rec, multipartRequest(t, "file", []byte("data")))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
