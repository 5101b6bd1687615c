package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-testing"

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()

	v, err := NewVerifier(testSecret, "authenticated")
	require.NoError(t, err)

	return v
}

func TestNewVerifier_MissingSecret(t *testing.T) {
	_, err := NewVerifier("", "authenticated")
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestIssue_Success(t *testing.T) {
	v := newTestVerifier(t)

	token, err := v.Issue("user-123", "test@example.com", time.Hour)

	require.NoError(t, err)
	assert.Equal(t, 3, len(strings.Split(token, ".")), "JWT should have 3 parts")
}

func TestValidate_ValidToken(t *testing.T) {
	v := newTestVerifier(t)

	token, err := v.Issue("user-123", "test@example.com", time.Hour)
	require.NoError(t, err)

	claims, err := v.Validate(token)

	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID())
	assert.Equal(t, "test@example.com", claims.Email)
}

func TestValidate_ExpiredToken(t *testing.T) {
	v := newTestVerifier(t)

	claims := Claims{
		Email: "test@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-1 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = v.Validate(tokenString)
	assert.Error(t, err, "expired token should be rejected")
}

func TestValidate_WrongAudience(t *testing.T) {
	issuer, err := NewVerifier(testSecret, "anon")
	require.NoError(t, err)

	token, err := issuer.Issue("user-123", "test@example.com", time.Hour)
	require.NoError(t, err)

	_, err = newTestVerifier(t).Validate(token)
	assert.Error(t, err, "token for another audience should be rejected")
}

func TestValidate_WrongSecret(t *testing.T) {
	other, err := NewVerifier("different-secret-key", "authenticated")
	require.NoError(t, err)

	token, err := other.Issue("user-123", "test@example.com", time.Hour)
	require.NoError(t, err)

	_, err = newTestVerifier(t).Validate(token)
	assert.Error(t, err, "token signed with different secret should be rejected")
}

func TestValidate_AlgorithmConfusionAttack(t *testing.T) {
	claims := Claims{
		Email: "attacker@evil.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "attacker",
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	tokenString, _ := token.SignedString(jwt.UnsafeAllowNoneSignatureType) //nolint:errcheck // test code

	_, err := newTestVerifier(t).Validate(tokenString)
	assert.Error(t, err, "token with 'none' algorithm should be rejected")
}

func TestValidate_MissingSubject(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = newTestVerifier(t).Validate(tokenString)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_MalformedToken(t *testing.T) {
	v := newTestVerifier(t)

	malformedTokens := []string{
		"",
		"not.a.jwt",
		"only.two",
		"too.many.parts.in.this.token",
		"<script>alert('xss')</script>",
	}

	for _, token := range malformedTokens {
		_, err := v.Validate(token)
		assert.Error(t, err, "malformed token '%s' should be rejected", token)
	}
}

func newMiddlewareRouter(v *Verifier) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/me", Middleware(v), func(c *gin.Context) {
		userID, _ := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "email": GetUserEmail(c)})
	})
	r.GET("/users/:id", Middleware(v), func(c *gin.Context) {
		if !RequireSameUser(c, c.Param("id")) {
			return
		}
		c.Status(http.StatusNoContent)
	})

	return r
}

func TestMiddleware(t *testing.T) {
	v := newTestVerifier(t)
	r := newMiddlewareRouter(v)

	token, err := v.Issue("user-123", "test@example.com", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"missing header", "/me", "", http.StatusUnauthorized},
		{"wrong scheme", "/me", "Basic " + token, http.StatusUnauthorized},
		{"bad token", "/me", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "/me", "Bearer " + token, http.StatusOK},
		{"same user", "/users/user-123", "Bearer " + token, http.StatusNoContent},
		{"other user", "/users/user-456", "Bearer " + token, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}
