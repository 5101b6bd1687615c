package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nxtgenia/miniaturia/api/rest/billing"
	"github.com/nxtgenia/miniaturia/internal/auth"
	"github.com/nxtgenia/miniaturia/internal/cache"
	"github.com/nxtgenia/miniaturia/internal/config"
	"github.com/nxtgenia/miniaturia/internal/logger"
	"github.com/nxtgenia/miniaturia/internal/migrations"
	"github.com/nxtgenia/miniaturia/miniaturia/ledger"
)

// creates and configures a new server instance with all dependencies
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	if cfg.RunMigrations {
		if err := migrations.Run(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	db, err := newPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
	}

	repo := ledger.NewRepository(db, cfg.SignupCredits)

	services, err := InitializeServices(cfg, repo, redisClient)
	if err != nil {
		closeRedis(redisClient)
		db.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := billing.RegisterValidators(); err != nil {
		services.Close()
		closeRedis(redisClient)
		db.Close()
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	verifier, err := auth.NewVerifier(cfg.AuthJWTSecret, cfg.AuthAudience)
	if err != nil {
		services.Close()
		closeRedis(redisClient)
		db.Close()
		return nil, fmt.Errorf("failed to create token verifier: %w", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), logger.Middleware())

	server := &Server{
		db:       db,
		redis:    redisClient,
		config:   cfg,
		ledger:   repo,
		ensured:  newEnsuredAccountCache(),
		services: services,
		router:   router,
	}

	if err := RegisterRoutes(router, server, verifier); err != nil {
		server.Close()
		return nil, fmt.Errorf("failed to register routes: %w", err)
	}

	return server, nil
}

func newPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// supabase pooler has few connections, keep our pool small
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	// pgbouncer in transaction mode does not support prepared statements
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	db, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// releases every connection the server holds
func (s *Server) Close() {
	s.ensured.Close()
	s.services.Close()
	closeRedis(s.redis)
	s.db.Close()
}

func closeRedis(client *redis.Client) {
	if client != nil {
		client.Close() //nolint:errcheck,gosec // best-effort cleanup on shutdown
	}
}
