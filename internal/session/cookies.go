package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/vendorportal/pkg/config"
)

// Cookie names shared with the browser client.
const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

const (
	defaultAccessTTL  = time.Hour
	defaultRefreshTTL = 30 * 24 * time.Hour
)

// Tokens is the credential pair issued by the backend API.
type Tokens struct {
	Access  string
	Refresh string
}

// Cookies writes and clears the session cookies.
type Cookies struct {
	secure     bool
	domain     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewCookies builds the cookie writer. Cookies are Secure in production or when forced.
func NewCookies(cfg config.CookieConfig, production bool) *Cookies {
	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}
	return &Cookies{
		secure:     production || cfg.ForceSecure,
		domain:     strings.TrimSpace(cfg.Domain),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// SetTokens writes whichever tokens are present.
func (c *Cookies) SetTokens(w http.ResponseWriter, tokens Tokens) {
	if tokens.Access != "" {
		http.SetCookie(w, c.cookie(AccessCookie, tokens.Access, int(c.accessTTL.Seconds())))
	}
	if tokens.Refresh != "" {
		http.SetCookie(w, c.cookie(RefreshCookie, tokens.Refresh, int(c.refreshTTL.Seconds())))
	}
}

// Clear expires both session cookies.
func (c *Cookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(AccessCookie, "", -1))
	http.SetCookie(w, c.cookie(RefreshCookie, "", -1))
}

func (c *Cookies) cookie(name, value string, maxAge int) *http.Cookie {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	}
	if maxAge < 0 {
		cookie.Expires = time.Unix(0, 0)
	}
	return cookie
}

// AccessToken reads the access token cookie.
func AccessToken(r *http.Request) (string, bool) {
	return readCookie(r, AccessCookie)
}

// RefreshToken reads the refresh token cookie.
func RefreshToken(r *http.Request) (string, bool) {
	return readCookie(r, RefreshCookie)
}

func readCookie(r *http.Request, name string) (string, bool) {
	cookie, err := r.Cookie(name)
	if err != nil {
		return "", false
	}
	value := strings.TrimSpace(cookie.Value)
	return value, value != ""
}
