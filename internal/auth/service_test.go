package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	pkgerrors "github.com/angelmondragon/vendorportal/pkg/errors"
	"github.com/angelmondragon/vendorportal/pkg/upstream"
)

type recordedCall struct {
	method  string
	path    string
	token   string
	payload []byte
}

type stubBackend struct {
	calls    []recordedCall
	response *upstream.Response
	err      error
}

func (s *stubBackend) DoJSON(ctx context.Context, method, path, token string, payload any) (*upstream.Response, error) {
	var encoded []byte
	if payload != nil {
		encoded, _ = json.Marshal(payload)
	}
	s.calls = append(s.calls, recordedCall{method: method, path: path, token: token, payload: encoded})
	if s.err != nil {
		return nil, s.err
	}
	return s.response, nil
}

func newService(t *testing.T, backend *stubBackend) Service {
	t.Helper()
	svc, err := NewService(backend)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestLoginExtractsTokensAndStripsBody(t *testing.T) {
	backend := &stubBackend{response: &upstream.Response{
		Status: http.StatusOK,
		Body:   []byte(`{"success":true,"data":{"accessToken":"acc","refreshToken":"ref","vendor":{"id":"v-1","businessName":"Ada Crafts","email":"ada@example.com"}}}`),
	}}

	result, err := newService(t, backend).Login(context.Background(), LoginRequest{Email: " Ada@Example.com ", Password: "secret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.Tokens.Access != "acc" || result.Tokens.Refresh != "ref" {
		t.Fatalf("unexpected tokens %+v", result.Tokens)
	}
	if string(result.Body) != `{"success":true,"data":{"vendor":{"id":"v-1","businessName":"Ada Crafts","email":"ada@example.com"}}}` {
		t.Fatalf("tokens not stripped: %s", result.Body)
	}
	if result.Vendor == nil || result.Vendor.BusinessName != "Ada Crafts" {
		t.Fatalf("expected vendor to be parsed, got %+v", result.Vendor)
	}

	call := backend.calls[0]
	if call.method != http.MethodPost || call.path != pathLogin {
		t.Fatalf("unexpected call %+v", call)
	}
	if string(call.payload) != `{"email":"ada@example.com","password":"secret"}` {
		t.Fatalf("expected normalized email in payload, got %s", call.payload)
	}
}

func TestLoginUpstreamErrorKeepsStatusAndMessage(t *testing.T) {
	backend := &stubBackend{response: &upstream.Response{Status: http.StatusUnauthorized, Body: []byte(`{"detail":"Invalid email or password"}`)}}

	_, err := newService(t, backend).Login(context.Background(), LoginRequest{Email: "a@b.co", Password: "x"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.HTTPStatus() != http.StatusUnauthorized || typed.Message() != "Invalid email or password" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestLoginWithoutTokenIsBadGateway(t *testing.T) {
	backend := &stubBackend{response: &upstream.Response{Status: http.StatusOK, Body: []byte(`{"success":true}`)}}
	_, err := newService(t, backend).Login(context.Background(), LoginRequest{Email: "a@b.co", Password: "x"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeBadGateway) {
		t.Fatalf("expected bad gateway, got %v", err)
	}
}

func TestRegisterAllowsMissingTokens(t *testing.T) {
	backend := &stubBackend{response: &upstream.Response{Status: http.StatusCreated, Body: []byte(`{"message":"Check your inbox"}`)}}
	result, err := newService(t, backend).Register(context.Background(), RegisterRequest{BusinessName: " Ada ", Email: "ADA@example.com", Password: "longenough"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if result.Status != http.StatusCreated || result.Tokens.Access != "" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestRefreshRequiresTokenAndKeepsOldRefresh(t *testing.T) {
	svc := newService(t, &stubBackend{})
	if _, err := svc.Refresh(context.Background(), " "); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	backend := &stubBackend{response: &upstream.Response{Status: http.StatusOK, Body: []byte(`{"accessToken":"new-acc"}`)}}
	result, err := newService(t, backend).Refresh(context.Background(), "old-ref")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if result.Tokens.Access != "new-acc" || result.Tokens.Refresh != "old-ref" {
		t.Fatalf("unexpected tokens %+v", result.Tokens)
	}
	if string(backend.calls[0].payload) != `{"refreshToken":"old-ref"}` {
		t.Fatalf("unexpected refresh payload %s", backend.calls[0].payload)
	}
}

func TestLogoutSkipsBackendWithoutToken(t *testing.T) {
	backend := &stubBackend{}
	if err := newService(t, backend).Logout(context.Background(), ""); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(backend.calls) != 0 {
		t.Fatalf("expected no backend call, got %d", len(backend.calls))
	}
}

func TestUpdateProfileForwardsBearer(t *testing.T) {
	backend := &stubBackend{response: &upstream.Response{Status: http.StatusOK, Body: []byte(`{"data":{"id":"v-1"}}`)}}
	name := "New Name"
	resp, err := newService(t, backend).UpdateProfile(context.Background(), "tok", UpdateProfileRequest{BusinessName: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if string(resp.Body) != `{"data":{"id":"v-1"}}` {
		t.Fatalf("expected passthrough body, got %s", resp.Body)
	}
	call := backend.calls[0]
	if call.method != http.MethodPatch || call.path != pathMe || call.token != "tok" {
		t.Fatalf("unexpected call %+v", call)
	}
	if string(call.payload) != `{"businessName":"New Name"}` {
		t.Fatalf("nil fields should be omitted, got %s", call.payload)
	}
}

func TestTransportErrorsPropagate(t *testing.T) {
	backend := &stubBackend{err: pkgerrors.New(pkgerrors.CodeBadGateway, "backend api unreachable")}
	if _, err := newService(t, backend).Me(context.Background(), "tok"); !pkgerrors.IsCode(err, pkgerrors.CodeBadGateway) {
		t.Fatalf("expected bad gateway, got %v", err)
	}
}
