package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var accessTokenPaths = []string{
	"accessToken",
	"access_token",
	"token",
	"data.accessToken",
	"data.access_token",
	"data.token",
	"data.tokens.accessToken",
	"data.tokens.access",
	"tokens.accessToken",
	"tokens.access",
}

var refreshTokenPaths = []string{
	"refreshToken",
	"refresh_token",
	"data.refreshToken",
	"data.refresh_token",
	"data.tokens.refreshToken",
	"data.tokens.refresh",
	"tokens.refreshToken",
	"tokens.refresh",
}

// ExtractTokens finds the first access and refresh token strings in an upstream payload.
func ExtractTokens(body []byte) Tokens {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return Tokens{}
	}
	return Tokens{
		Access:  firstString(body, accessTokenPaths),
		Refresh: firstString(body, refreshTokenPaths),
	}
}

// StripTokens removes every token field so credentials only travel in cookies.
func StripTokens(body []byte) []byte {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return body
	}
	paths := append(append([]string{}, accessTokenPaths...), refreshTokenPaths...)
	paths = append(paths, "data.tokens", "tokens")
	out := body
	for _, path := range paths {
		if !gjson.GetBytes(out, path).Exists() {
			continue
		}
		stripped, err := sjson.DeleteBytes(out, path)
		if err != nil {
			continue
		}
		out = stripped
	}
	return out
}

func firstString(body []byte, paths []string) string {
	for _, path := range paths {
		result := gjson.GetBytes(body, path)
		if result.Type != gjson.String {
			continue
		}
		if value := strings.TrimSpace(result.String()); value != "" {
			return value
		}
	}
	return ""
}

// Claims is what the portal reads from a backend-issued access token.
type Claims struct {
	VendorID  string
	ExpiresAt time.Time
}

// Expired reports whether the token carried an expiry that has passed.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

var vendorClaimKeys = []string{"vendorId", "vendor_id", "sub", "id"}

// ErrTokenExpired is returned by VerifyClaims for a correctly signed token past its expiry.
var ErrTokenExpired = errors.New("token expired")

// ParseClaims decodes the token without verifying its signature. The result only
// bounds cache lifetimes and early expiry checks; it never identifies a vendor.
func ParseClaims(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, fmt.Errorf("token is empty")
	}
	mapClaims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mapClaims); err != nil {
		return Claims{}, fmt.Errorf("parse token: %w", err)
	}
	return claimsFromMap(mapClaims)
}

// VerifyClaims checks the HMAC signature and expiry of a backend-issued token
// against the shared signing key before reading its claims.
func VerifyClaims(token string, key []byte) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, fmt.Errorf("token is empty")
	}
	if len(key) == 0 {
		return Claims{}, fmt.Errorf("signing key is empty")
	}
	mapClaims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{
		jwt.SigningMethodHS256.Alg(),
		jwt.SigningMethodHS384.Alg(),
		jwt.SigningMethodHS512.Alg(),
	}))
	_, err := parser.ParseWithClaims(token, mapClaims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, fmt.Errorf("verify token: %w", err)
	}
	return claimsFromMap(mapClaims)
}

func claimsFromMap(mapClaims jwt.MapClaims) (Claims, error) {
	var claims Claims
	for _, key := range vendorClaimKeys {
		if id := claimString(mapClaims[key]); id != "" {
			claims.VendorID = id
			break
		}
	}
	if claims.VendorID == "" {
		return Claims{}, fmt.Errorf("token has no vendor identifier")
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

func claimString(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
