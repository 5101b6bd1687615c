package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nxtgenia/miniaturia/internal/errors"
)

// validates bearer tokens and adds user info to context
func Middleware(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			errors.Unauthorized(c, "missing or invalid authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			errors.Unauthorized(c, "missing or invalid authorization header")
			return
		}

		claims, err := v.Validate(parts[1])
		if err != nil {
			errors.Unauthorized(c, "invalid or expired token")
			return
		}

		SetUserID(c, claims.UserID())
		c.Set(contextKeyUserEmail, claims.Email)

		c.Next()
	}
}

// marks the request as authenticated for userID
func SetUserID(c *gin.Context, userID string) {
	c.Set(contextKeyUserID, userID)
}

// extracts user_id from context after Middleware
func GetUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(contextKeyUserID)
	return userID, userID != ""
}

// extracts the token email from context after Middleware
func GetUserEmail(c *gin.Context) string {
	return c.GetString(contextKeyUserEmail)
}

// responds 403 and returns false when the authenticated user is not userID
func RequireSameUser(c *gin.Context, userID string) bool {
	authUserID, ok := GetUserID(c)
	if !ok {
		errors.Unauthorized(c, "")
		return false
	}

	if authUserID != userID {
		errors.Forbidden(c, "forbidden: userId mismatch")
		return false
	}

	return true
}
