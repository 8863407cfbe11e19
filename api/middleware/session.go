package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/vendorportal/api/responses"
	"github.com/angelmondragon/vendorportal/api/validators"
	"github.com/angelmondragon/vendorportal/internal/session"
	pkgerrors "github.com/angelmondragon/vendorportal/pkg/errors"
	"github.com/angelmondragon/vendorportal/pkg/logger"
)

// VendorResolver confirms an access token and reports the vendor it belongs to.
type VendorResolver interface {
	ResolveVendor(ctx context.Context, accessToken string) (session.Claims, error)
}

// RequireSession gates a route on the accessToken cookie. An Authorization bearer
// header is accepted for API clients that cannot hold cookies. The token is only
// carried forward; routes that own vendor data also need RequireVendor.
func RequireSession(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := session.AccessToken(r)
			if !ok {
				bearer, err := validators.BearerToken(r.Header.Get("Authorization"))
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
					return
				}
				token = bearer
			}

			if claims, err := session.ParseClaims(token); err == nil && claims.Expired(time.Now()) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), token, "")))
		})
	}
}

// RequireVendor resolves the session token to a confirmed vendor id. It runs
// after RequireSession on routes whose records the portal stores itself.
func RequireVendor(resolver VendorResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := AccessTokenFromContext(r.Context())
			if token == "" || resolver == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}

			claims, err := resolver.ResolveVendor(r.Context(), token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithSession(r.Context(), token, claims.VendorID)
			if logg != nil {
				ctx = logg.WithVendorID(ctx, claims.VendorID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
