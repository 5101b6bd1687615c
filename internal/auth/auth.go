package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingSecret = errors.New("auth secret not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

// verifies HS256 bearer tokens signed by the auth service
type Verifier struct {
	secret   []byte
	audience string
}

// creates a verifier; an empty audience disables the audience check
func NewVerifier(secret, audience string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}

	return &Verifier{secret: []byte(secret), audience: audience}, nil
}

// validates a token and returns its claims
func (v *Verifier) Validate(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}

	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return v.secret, nil
	}, opts...)

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// mints a token the same way the auth service does (admin CLI, tests)
func (v *Verifier) Issue(userID, email string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}

	now := time.Now()
	claims := Claims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
