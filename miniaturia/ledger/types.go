package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nxtgenia/miniaturia/miniaturia/catalog"
)

var (
	ErrNotFound            = errors.New("account not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrDuplicateEvent      = errors.New("event already processed")
)

// carries the numbers behind a failed debit; matches ErrInsufficientCredits
type InsufficientCreditsError struct {
	Required  int
	Available int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: required %d, available %d", e.Required, e.Available)
}

func (e *InsufficientCreditsError) Is(target error) bool {
	return target == ErrInsufficientCredits
}

// handles credit balance and audit trail persistence
type Repository struct {
	db            *pgxpool.Pool
	signupCredits int
}

// kind of a credit transaction
type Kind string

const (
	KindPurchase     Kind = "purchase"
	KindSubscription Kind = "subscription"
	KindUsage        Kind = "usage"
	KindGrant        Kind = "grant"
	KindAdjustment   Kind = "adjustment"
)

type Account struct {
	ID                   string         `json:"id"`
	Email                string         `json:"email"`
	Plan                 catalog.Plan   `json:"plan"`
	PlanPeriod           catalog.Period `json:"plan_period"`
	Credits              int            `json:"credits"`
	StripeCustomerID     string         `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID string         `json:"stripe_subscription_id,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// the subset of an account the generation flow and the client care about
type Balance struct {
	Credits    int            `json:"credits"`
	Plan       catalog.Plan   `json:"plan"`
	PlanPeriod catalog.Period `json:"plan_period"`
}

// immutable audit row written with every balance mutation
type Transaction struct {
	ID           uuid.UUID `json:"id"`
	AccountID    string    `json:"account_id"`
	Amount       int       `json:"amount"`
	Kind         Kind      `json:"kind"`
	Reason       string    `json:"reason"`
	BalanceAfter int       `json:"balance_after"`
	EventID      string    `json:"event_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// a subscription payment: plan set and balance reset to the plan's grant
type PlanChange struct {
	EventID        string
	EventType      string
	AccountID      string
	Plan           catalog.Plan
	Period         catalog.Period
	SubscriptionID string
	Credits        int
	Reason         string
}
