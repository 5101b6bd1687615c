package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/nxtgenia/miniaturia/internal/config"
	"github.com/nxtgenia/miniaturia/internal/logger"
)

// @title MiniaturIA API
// @version 1.0
// @description AI thumbnail generation with a prepaid credit ledger
// @description
// @description Features:
// @description - Thumbnail generation from a prompt and reference images
// @description - Credit balance, spending and transaction history
// @description - Stripe subscriptions and one-time credit packs

// @contact.name API Support
// @contact.url https://miniatur-ia.com

// @host api.miniatur-ia.com

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Supabase access token. Format: Bearer {token}

const (
	// headroom on top of the poll budget for submission, debit and response
	writeTimeoutSlack = 30 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	logger.Info("starting miniaturia server")

	// load configuration from environment
	cfg, err := config.LoadEnvironmentVariables()
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// create server with all dependencies
	srv, err := NewServer(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}

	go SyncCatalog(ctx, srv.services.Payments)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           srv.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Generation.PollBudget() + writeTimeoutSlack,
		IdleTimeout:       60 * time.Second,
	}

	// start server in goroutine
	go func() {
		logger.Info("server listening",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"write_timeout", httpServer.WriteTimeout.String(),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	// wait for interrupt signal for graceful shutdown
	<-ctx.Done()

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	srv.Close()

	logger.Info("server stopped")
}
