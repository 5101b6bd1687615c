package config

import "time"

type Config struct {
	Environment string
	Port        string
	FrontendURL string

	DatabaseURL   string
	RedisURL      string
	RunMigrations bool

	// secret used by the auth service to sign bearer tokens
	AuthJWTSecret string
	AuthAudience  string

	StripeSecretKey     string
	StripeWebhookSecret string

	Kie        KieConfig
	Generation GenerationConfig

	// credits granted when an account is first seen
	SignupCredits int

	// ulule/limiter formatted rates, e.g. "10-M"
	GenerateRateLimit string
	BillingRateLimit  string
}

type KieConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type GenerationConfig struct {
	Cost         int
	PollInterval time.Duration
	MaxAttempts  int
}

// returns the longest time a single generation request may be held open
func (g GenerationConfig) PollBudget() time.Duration {
	return g.PollInterval * time.Duration(g.MaxAttempts)
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
