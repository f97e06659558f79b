package middleware

import (
	"net/http"
	"time"
)

// RefreshCookieName is the cookie carrying the refresh token between the
// browser and the refresh/logout endpoints.
const RefreshCookieName = "refresh_token"

// refreshCookiePath scopes the cookie to the endpoints that consume it, so
// the long-lived token never rides along on ordinary API requests.
const refreshCookiePath = "/auth"

// RefreshCookie builds the Set-Cookie value for a freshly minted refresh
// token. HttpOnly and SameSite=Strict always; Secure unless the deployment
// explicitly opts out for local development.
func RefreshCookie(tok string, ttl time.Duration, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    tok,
		Path:     refreshCookiePath,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// ClearRefreshCookie builds the Set-Cookie value that deletes the refresh
// cookie on logout.
func ClearRefreshCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// RefreshTokenFromRequest extracts the refresh token, preferring the cookie
// and falling back to the X-Refresh-Token header for non-browser clients.
func RefreshTokenFromRequest(r *http.Request) (string, bool) {
	if cookie, err := r.Cookie(RefreshCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	if v := r.Header.Get("X-Refresh-Token"); v != "" {
		return v, true
	}
	return "", false
}
