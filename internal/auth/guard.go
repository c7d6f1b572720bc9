// Package auth gates the admin API: a single shared password, a session
// cookie derived from it and a per-client fixed-window rate limiter.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"time"
)

// CookieName is the admin session cookie.
const CookieName = "admin_session"

// Guard checks admin passwords and session cookies. The session token is the
// hex SHA-256 of the password, computed once at construction.
type Guard struct {
	password []byte
	token    string
	ttl      time.Duration
	secure   bool
}

// NewGuard builds a guard. An empty password leaves the guard unconfigured,
// which rejects every login and protected request.
func NewGuard(password string, ttl time.Duration, secure bool) *Guard {
	g := &Guard{ttl: ttl, secure: secure}
	if password != "" {
		g.password = []byte(password)
		sum := sha256.Sum256(g.password)
		g.token = hex.EncodeToString(sum[:])
	}
	return g
}

// Configured reports whether an admin password is set.
func (g *Guard) Configured() bool {
	return g != nil && len(g.password) > 0
}

// CheckPassword compares provided against the admin password in constant time.
func (g *Guard) CheckPassword(provided string) bool {
	if !g.Configured() {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), g.password) == 1
}

// Authorized reports whether r carries a valid session cookie.
func (g *Guard) Authorized(r *http.Request) bool {
	if !g.Configured() {
		return false
	}
	c, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Value), []byte(g.token)) == 1
}

// SessionCookie returns the cookie set after a successful login.
func (g *Guard) SessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    g.token,
		Path:     "/",
		MaxAge:   int(g.ttl / time.Second),
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
