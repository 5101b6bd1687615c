package main

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"

	"github.com/nxtgenia/miniaturia/internal/cache"
	"github.com/nxtgenia/miniaturia/internal/config"
	"github.com/nxtgenia/miniaturia/internal/idempotency"
	"github.com/nxtgenia/miniaturia/internal/kie"
	"github.com/nxtgenia/miniaturia/internal/payments"
	"github.com/nxtgenia/miniaturia/miniaturia/billing"
	"github.com/nxtgenia/miniaturia/miniaturia/generation"
	"github.com/nxtgenia/miniaturia/miniaturia/ledger"
)

// holds all dependencies and state for the API server
type Server struct {
	db       *pgxpool.Pool
	redis    *redis.Client
	config   *config.Config
	ledger   *ledger.Repository
	ensured  *cache.TTL[string, struct{}]
	services *Services
	router   *gin.Engine
}

// holds the external clients and the domain services built on them
type Services struct {
	Kie         *kie.Client
	Payments    *payments.Gateway
	Generator   *generation.Orchestrator
	Translator  *billing.Translator
	Verifier    *billing.Verifier
	Idempotency idempotency.Store
	RateLimits  limiter.Store
}
