package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nxtgenia/miniaturia/internal/config"
	"github.com/nxtgenia/miniaturia/internal/idempotency"
	"github.com/nxtgenia/miniaturia/internal/kie"
	"github.com/nxtgenia/miniaturia/internal/logger"
	"github.com/nxtgenia/miniaturia/internal/payments"
	"github.com/nxtgenia/miniaturia/internal/ratelimit"
	"github.com/nxtgenia/miniaturia/miniaturia/billing"
	"github.com/nxtgenia/miniaturia/miniaturia/generation"
	"github.com/nxtgenia/miniaturia/miniaturia/ledger"
)

const catalogSyncTimeout = 30 * time.Second

// creates and configures all service clients
func InitializeServices(cfg *config.Config, repo *ledger.Repository, redisClient *redis.Client) (*Services, error) {
	kieClient := kie.NewClient(kie.Config{
		APIKey:  cfg.Kie.APIKey,
		BaseURL: cfg.Kie.BaseURL,
		Model:   cfg.Kie.Model,
	})

	generator := generation.NewOrchestrator(repo, kieClient, generation.Config{
		Cost:         cfg.Generation.Cost,
		PollInterval: cfg.Generation.PollInterval,
		MaxAttempts:  cfg.Generation.MaxAttempts,
		Model:        cfg.Kie.Model,
	}).WithObserver(func(state generation.State, attempt int) {
		logger.Debug("generation state", "state", state, "attempt", attempt)
	})

	// nil backends select stripe's default http backends
	gateway := payments.NewGateway(cfg.StripeSecretKey, repo, nil)

	verifier := billing.NewVerifier(cfg.StripeWebhookSecret)
	if !verifier.Configured() {
		logger.Warn("STRIPE_WEBHOOK_SECRET not set, every stripe webhook will be rejected")
	}

	var store idempotency.Store
	if redisClient != nil {
		store = idempotency.NewRedisStore(redisClient, idempotency.LockTTL(generator.PollBudget()))
	} else {
		logger.Warn("REDIS_URL not set, idempotency keys and rate limits are kept in memory")
		store = idempotency.NewMemoryStore()
	}

	limits, err := ratelimit.NewStore(redisClient)
	if err != nil {
		gateway.Close()
		return nil, fmt.Errorf("failed to create rate limit store: %w", err)
	}

	return &Services{
		Kie:         kieClient,
		Payments:    gateway,
		Generator:   generator,
		Translator:  billing.NewTranslator(repo, gateway),
		Verifier:    verifier,
		Idempotency: store,
		RateLimits:  limits,
	}, nil
}

// makes sure every plan and pack has a stripe price; failures only degrade checkout
func SyncCatalog(ctx context.Context, gateway *payments.Gateway) {
	ctx, cancel := context.WithTimeout(ctx, catalogSyncTimeout)
	defer cancel()

	prices, err := gateway.SyncCatalog(ctx)
	if err != nil {
		logger.ErrorErr(err, "failed to sync stripe catalog, checkout will retry lazily")
		return
	}

	logger.Info("stripe catalog synced", "prices", len(prices))
}

// releases what the services hold
func (s *Services) Close() {
	s.Payments.Close()

	if closer, ok := s.Idempotency.(interface{ Close() }); ok {
		closer.Close()
	}
}
