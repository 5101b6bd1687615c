package main

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/nxtgenia/miniaturia/internal/auth"
	"github.com/nxtgenia/miniaturia/internal/cache"
	"github.com/nxtgenia/miniaturia/internal/errors"
	"github.com/nxtgenia/miniaturia/internal/logger"
	"github.com/nxtgenia/miniaturia/miniaturia/ledger"
)

const (
	ensuredAccountTTL   = 10 * time.Minute
	ensuredAccountSweep = 5 * time.Minute
)

// creates accounts on first authenticated request
type accountEnsurer interface {
	EnsureAccount(ctx context.Context, accountID, email string) (*ledger.Account, error)
}

// allows localhost, miniatur-ia.com, vercel previews and the configured frontend
func CORSMiddleware(frontendURL string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return allowedOrigin(origin, frontendURL)
		},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key", logger.RequestIDHeader},
		ExposeHeaders:    []string{logger.RequestIDHeader, "Idempotent-Replayed", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func allowedOrigin(origin, frontendURL string) bool {
	if frontendURL != "" && strings.TrimRight(origin, "/") == strings.TrimRight(frontendURL, "/") {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil || u.Hostname() == "" {
		return false
	}

	host := u.Hostname()

	switch {
	case host == "localhost", host == "127.0.0.1":
		return true
	case host == "miniatur-ia.com", strings.HasSuffix(host, ".miniatur-ia.com"):
		return true
	case strings.HasSuffix(host, ".vercel.app"):
		return true
	}

	return false
}

// makes sure the authenticated user has a ledger account; remembered for a while to skip the write
func AccountMiddleware(accounts accountEnsurer, seen *cache.TTL[string, struct{}]) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.GetUserID(c)
		if !ok {
			errors.Unauthorized(c, "")
			return
		}

		if _, ok := seen.Get(userID); ok {
			c.Next()
			return
		}

		if _, err := accounts.EnsureAccount(c.Request.Context(), userID, auth.GetUserEmail(c)); err != nil {
			errors.InternalError(c, "failed to load account", err)
			c.Abort()
			return
		}

		seen.Set(userID, struct{}{})
		c.Next()
	}
}

func newEnsuredAccountCache() *cache.TTL[string, struct{}] {
	return cache.New[string, struct{}](ensuredAccountTTL, ensuredAccountSweep)
}
