package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/vendorportal/pkg/errors"
	"github.com/angelmondragon/vendorportal/pkg/upstream"
)

type fakeBackend struct {
	calls []upstream.Request
	resp  *upstream.Response
	err   error
}

func (f *fakeBackend) Do(_ context.Context, req upstream.Request) (*upstream.Response, error) {
	f.calls = append(f.calls, req)
	return f.resp, f.err
}

func jsonResponse(status int, body string) *upstream.Response {
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	return &upstream.Response{Status: status, Header: header, Body: []byte(body)}
}

func TestProxyForwardsRequest(t *testing.T) {
	backend := &fakeBackend{resp: jsonResponse(http.StatusCreated, `{"success":true,"data":{"id":"ev-1"}}`)}
	handler := Proxy(backend, 0, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/vendor/events?draft=true", strings.NewReader(`{"title":"Lagos Pop-up"}`))
	req.Header.Set("Content-Type", "application/json")
	req = withSession(req, "tok-1", "vendor-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, `{"success":true,"data":{"id":"ev-1"}}`, rec.Body.String())
	require.Len(t, backend.calls, 1)
	call := backend.calls[0]
	assert.Equal(t, http.MethodPost, call.Method)
	assert.Equal(t, "/api/vendor/events", call.Path)
	assert.Equal(t, "true", call.Query.Get("draft"))
	assert.Equal(t, "tok-1", call.Token)
	assert.Equal(t, "application/json", call.ContentType)
	assert.JSONEq(t, `{"title":"Lagos Pop-up"}`, string(call.Body))
}

func TestProxyNormalizesErrorBody(t *testing.T) {
	backend := &fakeBackend{resp: jsonResponse(http.StatusBadRequest, `{"message":"Title is required","errors":[{"field":"title"}]}`)}
	rec := httptest.NewRecorder()
	Proxy(backend, 0, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/vendor/events", strings.NewReader(`{}`)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec.Body.Bytes())
	assert.False(t, env.Success)
	assert.Equal(t, "Title is required", env.Error)
	assert.Equal(t, string(pkgerrors.CodeUpstream), env.Code)
	assert.JSONEq(t, `[{"field":"title"}]`, string(env.Details))
}

func TestProxyRejectsOversizedBody(t *testing.T) {
	backend := &fakeBackend{}
	rec := httptest.NewRecorder()
	Proxy(backend, 8, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/vendor/products/p1", strings.NewReader(`{"name":"too long"}`)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, backend.calls)
}

func TestProxyTransportFailure(t *testing.T) {
	backend := &fakeBackend{err: pkgerrors.New(pkgerrors.CodeDependency, "backend api unreachable")}
	rec := httptest.NewRecorder()
	Proxy(backend, 0, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/vendor/wallet", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProxyWithoutBackend(t *testing.T) {
	rec := httptest.NewRecorder()
	Proxy(nil, 0, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/vendor/wallet", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
