package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort              = "3001"
	defaultKieBaseURL        = "https://api.kie.ai"
	defaultKieModel          = "nano-banana-pro"
	defaultGenerationCost    = 10
	defaultPollInterval      = 2 * time.Second
	defaultPollMaxAttempts   = 120
	defaultAuthAudience      = "authenticated"
	defaultGenerateRateLimit = "10-M"
	defaultBillingRateLimit  = "30-M"
)

// loads configuration from environment variables
func LoadEnvironmentVariables() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		_ = err // not an error - production environments may not have .env file
	}

	return FromEnv()
}

// builds the configuration from the current process environment
func FromEnv() (*Config, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	jwtSecret := os.Getenv("SUPABASE_JWT_SECRET")
	kieKey := os.Getenv("KIE_API_KEY")
	stripeKey := os.Getenv("STRIPE_SECRET_KEY")

	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	if jwtSecret == "" {
		return nil, fmt.Errorf("SUPABASE_JWT_SECRET environment variable is required")
	}

	if kieKey == "" {
		return nil, fmt.Errorf("KIE_API_KEY environment variable is required")
	}

	if stripeKey == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY environment variable is required")
	}

	cost, err := intEnv("GENERATION_COST", defaultGenerationCost)
	if err != nil {
		return nil, err
	}

	maxAttempts, err := intEnv("POLL_MAX_ATTEMPTS", defaultPollMaxAttempts)
	if err != nil {
		return nil, err
	}

	pollInterval, err := durationEnv("POLL_INTERVAL", defaultPollInterval)
	if err != nil {
		return nil, err
	}

	signupCredits, err := intEnv("SIGNUP_CREDITS", 0)
	if err != nil {
		return nil, err
	}

	if cost <= 0 || maxAttempts <= 0 || pollInterval <= 0 {
		return nil, fmt.Errorf("GENERATION_COST, POLL_MAX_ATTEMPTS and POLL_INTERVAL must be positive")
	}

	// accounts.credits has CHECK (credits >= 0)
	if signupCredits < 0 {
		return nil, fmt.Errorf("SIGNUP_CREDITS must not be negative")
	}

	return &Config{
		Environment:         stringEnv("ENVIRONMENT", "development"),
		Port:                stringEnv("PORT", defaultPort),
		FrontendURL:         os.Getenv("FRONTEND_URL"),
		DatabaseURL:         databaseURL,
		RedisURL:            os.Getenv("REDIS_URL"),
		RunMigrations:       os.Getenv("RUN_MIGRATIONS") == "true",
		AuthJWTSecret:       jwtSecret,
		AuthAudience:        stringEnv("AUTH_AUDIENCE", defaultAuthAudience),
		StripeSecretKey:     stripeKey,
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		Kie: KieConfig{
			APIKey:  kieKey,
			BaseURL: stringEnv("KIE_API_BASE", defaultKieBaseURL),
			Model:   stringEnv("KIE_MODEL", defaultKieModel),
		},
		Generation: GenerationConfig{
			Cost:         cost,
			PollInterval: pollInterval,
			MaxAttempts:  maxAttempts,
		},
		SignupCredits:     signupCredits,
		GenerateRateLimit: stringEnv("GENERATE_RATE_LIMIT", defaultGenerateRateLimit),
		BillingRateLimit:  stringEnv("BILLING_RATE_LIMIT", defaultBillingRateLimit),
	}, nil
}

func stringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}

	return v, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 2s: %w", key, err)
	}

	return v, nil
}
