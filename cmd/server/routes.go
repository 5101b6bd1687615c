package main

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/nxtgenia/miniaturia/api/rest/billing"
	"github.com/nxtgenia/miniaturia/api/rest/credits"
	"github.com/nxtgenia/miniaturia/api/rest/generate"
	"github.com/nxtgenia/miniaturia/api/rest/health"
	"github.com/nxtgenia/miniaturia/api/rest/plans"
	"github.com/nxtgenia/miniaturia/api/rest/webhooks"
	"github.com/nxtgenia/miniaturia/internal/auth"
	"github.com/nxtgenia/miniaturia/internal/ratelimit"
)

// sets up all API routes and middleware
func RegisterRoutes(router *gin.Engine, server *Server, verifier *auth.Verifier) error {
	router.Use(CORSMiddleware(server.config.FrontendURL))
	router.GET("/health", health.Handler(server.db))

	generateLimit, err := ratelimit.Middleware(server.services.RateLimits, "generate", server.config.GenerateRateLimit)
	if err != nil {
		return fmt.Errorf("failed to create generate rate limiter: %w", err)
	}

	billingLimit, err := ratelimit.Middleware(server.services.RateLimits, "billing", server.config.BillingRateLimit)
	if err != nil {
		return fmt.Errorf("failed to create billing rate limiter: %w", err)
	}

	v1 := router.Group("/api/v1")

	{
		v1.GET("/ping", health.PingHandler)

		plans.RegisterRoutes(v1)
		webhooks.RegisterRoutes(v1, server.services.Verifier, server.services.Translator)

		authed := v1.Group("", auth.Middleware(verifier), AccountMiddleware(server.ledger, server.ensured))

		generate.RegisterRoutes(authed, server.services.Generator, server.services.Idempotency, generateLimit)
		credits.RegisterRoutes(authed, server.ledger)
		billing.RegisterRoutes(authed, server.services.Payments, server.ledger, server.config.FrontendURL, billingLimit)
	}

	return nil
}
