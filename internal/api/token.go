package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenHolder keeps the session bearer token handed to us by the
// surrounding application. Authentication itself lives outside this
// subsystem; the holder only attaches the token and warns when it has
// visibly expired, since the server will start rejecting calls.
type TokenHolder struct {
	mu     sync.RWMutex
	token  string
	warned bool
}

// NewTokenHolder creates a holder with an initial token, which may be
// empty.
func NewTokenHolder(token string) *TokenHolder {
	return &TokenHolder{token: token}
}

// Set replaces the session token, e.g. after the surrounding app
// refreshes the session.
func (h *TokenHolder) Set(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = token
	h.warned = false
}

// Attach sets the Authorization header on the request when a token is
// present.
func (h *TokenHolder) Attach(req *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.token == "" {
		return
	}

	if !h.warned && isExpired(h.token, time.Now()) {
		slog.Warn("Session token has expired; requests will likely be rejected")
		h.warned = true
	}

	req.Header.Set("Authorization", "Bearer "+h.token)
}

// isExpired parses the token without verifying its signature, solely to
// read the exp claim. Verification is the server's job.
func isExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false // opaque tokens carry no readable expiry
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
