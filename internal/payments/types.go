package payments

import (
	"context"
	"errors"
	"sync"

	"github.com/stripe/stripe-go/v81/client"

	"github.com/nxtgenia/miniaturia/internal/cache"
	"github.com/nxtgenia/miniaturia/miniaturia/ledger"
)

// metadata keys shared with the webhook translator
const (
	MetadataAccountID = "supabase_user_id"
	MetadataPlanKey   = "plan_key"
	MetadataCredits   = "credits"
)

var (
	ErrUnknownPlan = errors.New("plan not found")
	ErrNoCustomer  = errors.New("no stripe customer for account")
)

// account lookups needed to find or create stripe customers
type Accounts interface {
	GetAccount(ctx context.Context, accountID string) (*ledger.Account, error)
	SetCustomerID(ctx context.Context, accountID, customerID string) error
}

// wraps the stripe API for checkout, portal, subscriptions and catalog sync
type Gateway struct {
	sc       *client.API
	accounts Accounts
	prices   *cache.TTL[string, string]
	currency string

	// serializes catalog syncs triggered by cache misses
	syncMu sync.Mutex
}

type CheckoutInput struct {
	AccountID  string
	Email      string
	PlanKey    string
	SuccessURL string
	CancelURL  string
}

type CheckoutSession struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	CustomerID string `json:"-"`
}
