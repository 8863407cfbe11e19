package controllers

import (
	"net/http"

	"github.com/angelmondragon/vendorportal/api/middleware"
	"github.com/angelmondragon/vendorportal/api/responses"
	"github.com/angelmondragon/vendorportal/api/validators"
	"github.com/angelmondragon/vendorportal/internal/auth"
	"github.com/angelmondragon/vendorportal/internal/session"
	pkgerrors "github.com/angelmondragon/vendorportal/pkg/errors"
	"github.com/angelmondragon/vendorportal/pkg/logger"
	"github.com/angelmondragon/vendorportal/pkg/upstream"
)

// AuthLogin forwards the credentials and moves the issued tokens into cookies.
func AuthLogin(svc auth.Service, cookies *session.Cookies, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSession(w, cookies, result)
	}
}

func AuthRegister(svc auth.Service, cookies *session.Cookies, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Register(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSession(w, cookies, result)
	}
}

// AuthLogout always clears the cookies; the upstream revoke is best effort.
func AuthLogout(svc auth.Service, cookies *session.Cookies, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, _ := session.AccessToken(r)
		if svc != nil {
			if err := svc.Logout(r.Context(), token); err != nil && logg != nil {
				ctx := logg.WithField(r.Context(), "error", err.Error())
				logg.Warn(ctx, "auth.logout.upstream_failed")
			}
		}
		cookies.Clear(w)
		responses.WriteSuccess(w, map[string]string{"message": "Logged out successfully"})
	}
}

// AuthRefresh trades the refreshToken cookie for a new pair. A rejected refresh
// clears both cookies so the browser falls back to the login screen.
func AuthRefresh(svc auth.Service, cookies *session.Cookies, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		refreshToken, ok := session.RefreshToken(r)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "refresh token missing"))
			return
		}

		result, err := svc.Refresh(r.Context(), refreshToken)
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.HTTPStatus() == http.StatusUnauthorized {
				cookies.Clear(w)
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSession(w, cookies, result)
	}
}

func AuthForgotPassword(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return authForward(svc, logg, func(r *http.Request) (*upstream.Response, error) {
		var body auth.ForgotPasswordRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.ForgotPassword(r.Context(), body)
	})
}

func AuthResetPassword(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return authForward(svc, logg, func(r *http.Request) (*upstream.Response, error) {
		var body auth.ResetPasswordRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.ResetPassword(r.Context(), body)
	})
}

func AuthVerifyEmail(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return authForward(svc, logg, func(r *http.Request) (*upstream.Response, error) {
		var body auth.VerifyEmailRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.VerifyEmail(r.Context(), body)
	})
}

func AuthResendVerification(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return authForward(svc, logg, func(r *http.Request) (*upstream.Response, error) {
		var body auth.ResendVerificationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.ResendVerification(r.Context(), body)
	})
}

// VendorMe returns the signed-in vendor profile.
func VendorMe(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return authForward(svc, logg, func(r *http.Request) (*upstream.Response, error) {
		return svc.Me(r.Context(), middleware.AccessTokenFromContext(r.Context()))
	})
}

func VendorUpdateProfile(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return authForward(svc, logg, func(r *http.Request) (*upstream.Response, error) {
		var body auth.UpdateProfileRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.UpdateProfile(r.Context(), middleware.AccessTokenFromContext(r.Context()), body)
	})
}

func authForward(svc auth.Service, logg *logger.Logger, call func(*http.Request) (*upstream.Response, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		resp, err := call(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteUpstream(w, resp)
	}
}

func writeSession(w http.ResponseWriter, cookies *session.Cookies, result *auth.SessionResult) {
	cookies.SetTokens(w, result.Tokens)
	status := result.Status
	if status == 0 {
		status = http.StatusOK
	}
	responses.WriteUpstream(w, &upstream.Response{Status: status, Body: result.Body})
}
