package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/nxtgenia/miniaturia/internal/logger"
)

// represents the claims of a bearer token issued by the auth service;
// the account id travels in the standard "sub" claim
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// returns the account id the token was issued for
func (c *Claims) UserID() string {
	return c.Subject
}

// gin context keys set by the middleware
const (
	contextKeyUserID    = logger.UserIDKey
	contextKeyUserEmail = "user_email"
)
