package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/vendorportal/internal/session"
	pkgerrors "github.com/angelmondragon/vendorportal/pkg/errors"
)

const sessionCacheScope = "session"

// SessionCache remembers which vendor an opaque access token belongs to.
// *redis.Client satisfies it, including a nil client which behaves as a permanent miss.
type SessionCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CacheKey(scope string, parts ...string) string
}

// Option configures how the service confirms vendor sessions.
type Option func(*service)

// WithSigningKey verifies access tokens locally with the backend's HMAC key.
func WithSigningKey(key string) Option {
	return func(s *service) {
		if key = strings.TrimSpace(key); key != "" {
			s.signingKey = []byte(key)
		}
	}
}

// WithSessionCache caches backend-confirmed token to vendor lookups for at most ttl.
func WithSessionCache(cache SessionCache, ttl time.Duration) Option {
	return func(s *service) {
		if cache == nil || ttl <= 0 {
			return
		}
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// ResolveVendor confirms the access token and returns the vendor it belongs to.
// A configured signing key verifies the token locally; otherwise the backend
// answers GET /api/vendors/me with the token and the result is cached.
func (s *service) ResolveVendor(ctx context.Context, accessToken string) (session.Claims, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return session.Claims{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	if len(s.signingKey) > 0 {
		claims, err := session.VerifyClaims(accessToken, s.signingKey)
		switch {
		case errors.Is(err, session.ErrTokenExpired):
			return session.Claims{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired")
		case err != nil:
			return session.Claims{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid session token")
		}
		return claims, nil
	}

	if vendorID := s.cachedVendor(ctx, accessToken); vendorID != "" {
		return session.Claims{VendorID: vendorID}, nil
	}

	resp, err := s.Me(ctx, accessToken)
	if err != nil {
		return session.Claims{}, err
	}
	vendor := parseVendor(resp.Body)
	if vendor == nil {
		return session.Claims{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session does not identify a vendor")
	}
	s.remember(ctx, accessToken, vendor.ID)
	return session.Claims{VendorID: vendor.ID}, nil
}

func (s *service) cachedVendor(ctx context.Context, token string) string {
	if s.cache == nil {
		return ""
	}
	vendorID, err := s.cache.Get(ctx, s.sessionKey(token))
	if err != nil {
		return ""
	}
	return vendorID
}

// remember stores a backend-confirmed vendor id no longer than the token itself lives.
func (s *service) remember(ctx context.Context, token, vendorID string) {
	if s.cache == nil || token == "" || vendorID == "" {
		return
	}
	ttl := s.cacheTTL
	if claims, err := session.ParseClaims(token); err == nil && !claims.ExpiresAt.IsZero() {
		remaining := time.Until(claims.ExpiresAt)
		if remaining <= 0 {
			return
		}
		if remaining < ttl {
			ttl = remaining
		}
	}
	_ = s.cache.Set(ctx, s.sessionKey(token), vendorID, ttl)
}

func (s *service) forget(ctx context.Context, token string) {
	if s.cache == nil || token == "" {
		return
	}
	_ = s.cache.Del(ctx, s.sessionKey(token))
}

func (s *service) sessionKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return s.cache.CacheKey(sessionCacheScope, hex.EncodeToString(sum[:]))
}
