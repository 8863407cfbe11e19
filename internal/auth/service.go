package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/angelmondragon/vendorportal/internal/session"
	pkgerrors "github.com/angelmondragon/vendorportal/pkg/errors"
	"github.com/angelmondragon/vendorportal/pkg/types"
	"github.com/angelmondragon/vendorportal/pkg/upstream"
)

const (
	pathLogin              = "/api/vendors/login"
	pathRegister           = "/api/vendors/register"
	pathLogout             = "/api/vendors/logout"
	pathRefresh            = "/api/vendors/refresh"
	pathForgotPassword     = "/api/vendors/forgot-password"
	pathResetPassword      = "/api/vendors/reset-password"
	pathVerifyEmail        = "/api/vendors/verify-email"
	pathResendVerification = "/api/vendors/resend-verification"
	pathMe                 = "/api/vendors/me"
)

// Service runs vendor authentication flows against the backend API.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*SessionResult, error)
	Register(ctx context.Context, req RegisterRequest) (*SessionResult, error)
	Logout(ctx context.Context, accessToken string) error
	Refresh(ctx context.Context, refreshToken string) (*SessionResult, error)
	ForgotPassword(ctx context.Context, req ForgotPasswordRequest) (*upstream.Response, error)
	ResetPassword(ctx context.Context, req ResetPasswordRequest) (*upstream.Response, error)
	VerifyEmail(ctx context.Context, req VerifyEmailRequest) (*upstream.Response, error)
	ResendVerification(ctx context.Context, req ResendVerificationRequest) (*upstream.Response, error)
	Me(ctx context.Context, accessToken string) (*upstream.Response, error)
	UpdateProfile(ctx context.Context, accessToken string, req UpdateProfileRequest) (*upstream.Response, error)
	ResolveVendor(ctx context.Context, accessToken string) (session.Claims, error)
}

type backendClient interface {
	DoJSON(ctx context.Context, method, path, token string, payload any) (*upstream.Response, error)
}

type service struct {
	backend    backendClient
	signingKey []byte
	cache      SessionCache
	cacheTTL   time.Duration
}

// NewService constructs the auth service over the backend API client.
func NewService(backend backendClient, opts ...Option) (Service, error) {
	if backend == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "backend client is required")
	}
	s := &service{backend: backend}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*SessionResult, error) {
	req.Email = normalizeEmail(req.Email)
	return s.openSession(ctx, pathLogin, "", req, true)
}

// Register creates the vendor. Backends that require email verification answer
// without tokens, which is not an error.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*SessionResult, error) {
	req.Email = normalizeEmail(req.Email)
	req.BusinessName = strings.TrimSpace(req.BusinessName)
	return s.openSession(ctx, pathRegister, "", req, false)
}

// Logout tells the backend to revoke the session. Callers clear cookies regardless of the outcome.
func (s *service) Logout(ctx context.Context, accessToken string) error {
	if strings.TrimSpace(accessToken) == "" {
		return nil
	}
	s.forget(ctx, accessToken)
	resp, err := s.backend.DoJSON(ctx, http.MethodPost, pathLogout, accessToken, nil)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return upstream.ErrorFromResponse(resp)
	}
	return nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*SessionResult, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Unauthorized")
	}
	result, err := s.openSession(ctx, pathRefresh, "", map[string]string{"refreshToken": refreshToken}, true)
	if err != nil {
		return nil, err
	}
	// Backends that do not rotate refresh tokens only return a new access token.
	if result.Tokens.Refresh == "" {
		result.Tokens.Refresh = refreshToken
	}
	return result, nil
}

func (s *service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) (*upstream.Response, error) {
	req.Email = normalizeEmail(req.Email)
	return s.forward(ctx, http.MethodPost, pathForgotPassword, "", req)
}

func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) (*upstream.Response, error) {
	return s.forward(ctx, http.MethodPost, pathResetPassword, "", req)
}

func (s *service) VerifyEmail(ctx context.Context, req VerifyEmailRequest) (*upstream.Response, error) {
	return s.forward(ctx, http.MethodPost, pathVerifyEmail, "", req)
}

func (s *service) ResendVerification(ctx context.Context, req ResendVerificationRequest) (*upstream.Response, error) {
	req.Email = normalizeEmail(req.Email)
	return s.forward(ctx, http.MethodPost, pathResendVerification, "", req)
}

func (s *service) Me(ctx context.Context, accessToken string) (*upstream.Response, error) {
	return s.forward(ctx, http.MethodGet, pathMe, accessToken, nil)
}

func (s *service) UpdateProfile(ctx context.Context, accessToken string, req UpdateProfileRequest) (*upstream.Response, error) {
	return s.forward(ctx, http.MethodPatch, pathMe, accessToken, req)
}

func (s *service) forward(ctx context.Context, method, path, token string, payload any) (*upstream.Response, error) {
	resp, err := s.backend.DoJSON(ctx, method, path, token, payload)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, upstream.ErrorFromResponse(resp)
	}
	return resp, nil
}

func (s *service) openSession(ctx context.Context, path, token string, payload any, requireToken bool) (*SessionResult, error) {
	resp, err := s.forward(ctx, http.MethodPost, path, token, payload)
	if err != nil {
		return nil, err
	}

	tokens := session.ExtractTokens(resp.Body)
	if requireToken && tokens.Access == "" {
		return nil, pkgerrors.New(pkgerrors.CodeBadGateway, "authentication response did not include a token")
	}

	result := &SessionResult{
		Status: resp.Status,
		Tokens: tokens,
		Body:   session.StripTokens(resp.Body),
		Vendor: parseVendor(resp.Body),
	}
	if result.Vendor != nil {
		s.remember(ctx, tokens.Access, result.Vendor.ID)
	}
	return result, nil
}

var vendorPaths = []string{"data.vendor", "vendor", "data.user", "user", "data"}

func parseVendor(body []byte) *types.Vendor {
	for _, path := range vendorPaths {
		result := gjson.GetBytes(body, path)
		if !result.IsObject() {
			continue
		}
		var vendor types.Vendor
		if err := json.Unmarshal([]byte(result.Raw), &vendor); err != nil || vendor.ID == "" {
			continue
		}
		return &vendor
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
