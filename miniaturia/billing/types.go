package billing

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v81"

	"github.com/nxtgenia/miniaturia/miniaturia/ledger"
)

var (
	ErrNoSecret         = errors.New("webhook secret not configured")
	ErrMissingSignature = errors.New("missing Stripe-Signature header")
)

// ledger mutations a billing event can trigger
type Ledger interface {
	CreditForEvent(ctx context.Context, eventID, eventType, accountID string, amount int, reason string) (int, error)
	ApplyPlan(ctx context.Context, change ledger.PlanChange) (int, error)
	Downgrade(ctx context.Context, eventID, eventType, accountID string) error
	SetCustomerID(ctx context.Context, accountID, customerID string) error
	FindByCustomerID(ctx context.Context, customerID string) (*ledger.Account, error)
}

// invoices only reference their subscription; metadata lives on the subscription
type SubscriptionFetcher interface {
	GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
}

// turns verified stripe events into ledger mutations
type Translator struct {
	ledger        Ledger
	subscriptions SubscriptionFetcher
}

// outcome of handling one event
type Result struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Processed bool   `json:"processed"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Message   string `json:"message,omitempty"`
	AccountID string `json:"-"`
	Credits   int    `json:"-"`
}

// checks Stripe-Signature headers against the endpoint secret
type Verifier struct {
	secret string
}
