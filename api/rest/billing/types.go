package billing

import (
	"context"

	"github.com/nxtgenia/miniaturia/internal/payments"
	"github.com/nxtgenia/miniaturia/miniaturia/catalog"
	"github.com/nxtgenia/miniaturia/miniaturia/ledger"
)

type Gateway interface {
	CreateCheckoutSession(ctx context.Context, in payments.CheckoutInput) (*payments.CheckoutSession, error)
	CreatePortalSession(ctx context.Context, accountID, returnURL string) (string, error)
}

type Accounts interface {
	GetAccount(ctx context.Context, accountID string) (*ledger.Account, error)
}

// CheckoutRequest starts a hosted checkout for a plan or pack
type CheckoutRequest struct {
	PlanKey    string `json:"planKey" binding:"required,plankey"`
	UserID     string `json:"userId" binding:"required"`
	UserEmail  string `json:"userEmail" binding:"omitempty,email"`
	SuccessURL string `json:"successUrl" binding:"omitempty,url"`
	CancelURL  string `json:"cancelUrl" binding:"omitempty,url"`
}

type PortalRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// URLResponse carries a stripe hosted page url
type URLResponse struct {
	URL string `json:"url"`
}

type SubscriptionStatusResponse struct {
	Credits              int            `json:"credits"`
	Plan                 catalog.Plan   `json:"plan"`
	PlanPeriod           catalog.Period `json:"plan_period"`
	StripeSubscriptionID *string        `json:"stripe_subscription_id"`
}
