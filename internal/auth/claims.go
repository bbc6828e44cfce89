package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Identity names the session owner used for persistence ownership tags.
type Identity struct {
	UserID string
}

// AccessTokenClaims is the subset of the storefront's JWT the engine reads.
type AccessTokenClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Owner resolves the identity string, preferring the explicit user_id claim
// and falling back to the registered subject.
func (c AccessTokenClaims) Owner() string {
	if id := strings.TrimSpace(c.UserID); id != "" {
		return id
	}
	return strings.TrimSpace(c.Subject)
}
