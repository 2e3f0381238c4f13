// Package auth extracts and optionally validates the bearer token the
// client sends. The token is forwarded to the backend verbatim; when a
// JWT secret is configured the proxy additionally verifies the token
// before forwarding it.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a configured gate rejects a token.
var ErrInvalidToken = errors.New("invalid token")

// BearerToken extracts the token from the Authorization header. It
// reports false when the header is absent, has a different scheme, or
// carries an empty token.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// MaskToken obscures a token for logging, keeping only the first and
// last four characters.
func MaskToken(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// Gate validates bearer tokens as HMAC-signed JWTs. A nil Gate accepts
// everything, so callers can hold one unconditionally.
type Gate struct {
	secret []byte
	issuer string
}

// NewGate builds a Gate for the given HMAC secret. An empty secret
// yields a nil Gate, which disables validation. The issuer is checked
// only when non-empty.
func NewGate(secret, issuer string) *Gate {
	if secret == "" {
		return nil
	}
	return &Gate{secret: []byte(secret), issuer: issuer}
}

// Validate checks the token's signature, expiry, and issuer.
func (g *Gate) Validate(token string) error {
	if g == nil {
		return nil
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if g.issuer != "" {
		opts = append(opts, jwt.WithIssuer(g.issuer))
	}

	_, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return g.secret, nil
	}, opts...)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return nil
}
