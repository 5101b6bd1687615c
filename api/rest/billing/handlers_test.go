package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nxtgenia/miniaturia/internal/auth"
	"github.com/nxtgenia/miniaturia/internal/payments"
	"github.com/nxtgenia/miniaturia/miniaturia/catalog"
	"github.com/nxtgenia/miniaturia/miniaturia/ledger"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := RegisterValidators(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type mockGateway struct {
	checkoutFunc func(ctx context.Context, in payments.CheckoutInput) (*payments.CheckoutSession, error)
	portalFunc   func(ctx context.Context, accountID, returnURL string) (string, error)
}

func (m *mockGateway) CreateCheckoutSession(ctx context.Context, in payments.CheckoutInput) (*payments.CheckoutSession, error) {
	return m.checkoutFunc(ctx, in)
}

func (m *mockGateway) CreatePortalSession(ctx context.Context, accountID, returnURL string) (string, error) {
	return m.portalFunc(ctx, accountID, returnURL)
}

type mockAccounts struct {
	accounts map[string]*ledger.Account
}

func (m *mockAccounts) GetAccount(ctx context.Context, accountID string) (*ledger.Account, error) {
	acc, ok := m.accounts[accountID]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return acc, nil
}

func newRouter(gw Gateway, accounts Accounts, userID string) *gin.Engine {
	r := gin.New()
	group := r.Group("/api/v1", func(c *gin.Context) {
		auth.SetUserID(c, userID)
		c.Set("user_email", userID+"@example.com")
		c.Next()
	})
	RegisterRoutes(group, gw, accounts, "https://miniatur-ia.com")

	return r
}

func do(r *gin.Engine, method, path string, body any, origin string) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body) //nolint:errcheck // test code
	if body == nil {
		raw = nil
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if origin != "" {
		req.Header.Set("Origin", origin)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestCheckoutSession_DefaultsReturnURLs(t *testing.T) {
	var got payments.CheckoutInput
	gw := &mockGateway{
		checkoutFunc: func(ctx context.Context, in payments.CheckoutInput) (*payments.CheckoutSession, error) {
			got = in
			return &payments.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.com/cs_1"}, nil
		},
	}

	w := do(newRouter(gw, nil, "user-1"), http.MethodPost, "/api/v1/billing/checkout-session",
		map[string]string{"planKey": "pro_monthly", "userId": "user-1"}, "https://preview.vercel.app")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"url":"https://checkout.stripe.com/cs_1"}`, w.Body.String())

	assert.Equal(t, "user-1", got.AccountID)
	assert.Equal(t, "user-1@example.com", got.Email)
	assert.Equal(t, "pro_monthly", got.PlanKey)
	assert.Equal(t, "https://preview.vercel.app/app?payment=success", got.SuccessURL)
	assert.Equal(t, "https://preview.vercel.app/app?payment=cancelled", got.CancelURL)
}

func TestCheckoutSession_FallsBackToFrontendURL(t *testing.T) {
	var got payments.CheckoutInput
	gw := &mockGateway{
		checkoutFunc: func(ctx context.Context, in payments.CheckoutInput) (*payments.CheckoutSession, error) {
			got = in
			return &payments.CheckoutSession{URL: "https://checkout.stripe.com/x"}, nil
		},
	}

	w := do(newRouter(gw, nil, "user-1"), http.MethodPost, "/api/v1/billing/checkout-session",
		map[string]string{
			"planKey":   "pack_basic",
			"userId":    "user-1",
			"cancelUrl": "https://miniatur-ia.com/pricing",
		}, "")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "https://miniatur-ia.com/app?payment=success", got.SuccessURL)
	assert.Equal(t, "https://miniatur-ia.com/pricing", got.CancelURL)
}

func TestCheckoutSession_Rejections(t *testing.T) {
	gw := &mockGateway{
		checkoutFunc: func(ctx context.Context, in payments.CheckoutInput) (*payments.CheckoutSession, error) {
			switch in.PlanKey {
			case "agency_annual":
				return nil, fmt.Errorf("%w: agency_annual", payments.ErrUnknownPlan)
			case "starter_monthly":
				return nil, fmt.Errorf("stripe unavailable")
			}
			return &payments.CheckoutSession{URL: "https://checkout.stripe.com/ok"}, nil
		},
	}
	r := newRouter(gw, nil, "user-1")

	tests := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{"unknown plan key", map[string]string{"planKey": "enterprise", "userId": "user-1"}, http.StatusNotFound},
		{"unknown plan for other user", map[string]string{"planKey": "enterprise", "userId": "user-2"}, http.StatusForbidden},
		{"unknown plan and missing user", map[string]string{"planKey": "enterprise"}, http.StatusBadRequest},
		{"missing plan key", map[string]string{"userId": "user-1"}, http.StatusBadRequest},
		{"missing user", map[string]string{"planKey": "pro_monthly"}, http.StatusBadRequest},
		{"bad email", map[string]string{"planKey": "pro_monthly", "userId": "user-1", "userEmail": "nope"}, http.StatusBadRequest},
		{"other user", map[string]string{"planKey": "pro_monthly", "userId": "user-2"}, http.StatusForbidden},
		{"price not synced", map[string]string{"planKey": "agency_annual", "userId": "user-1"}, http.StatusNotFound},
		{"stripe failure", map[string]string{"planKey": "starter_monthly", "userId": "user-1"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/api/v1/billing/checkout-session", tt.body, "")
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestCustomerPortal(t *testing.T) {
	var returnURL string
	gw := &mockGateway{
		portalFunc: func(ctx context.Context, accountID, ret string) (string, error) {
			if accountID == "user-2" {
				return "", payments.ErrNoCustomer
			}
			returnURL = ret
			return "https://billing.stripe.com/p/session", nil
		},
	}

	w := do(newRouter(gw, nil, "user-1"), http.MethodPost, "/api/v1/billing/customer-portal",
		map[string]string{"userId": "user-1"}, "http://localhost:3000")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"url":"https://billing.stripe.com/p/session"}`, w.Body.String())
	assert.Equal(t, "http://localhost:3000/app", returnURL)

	w = do(newRouter(gw, nil, "user-2"), http.MethodPost, "/api/v1/billing/customer-portal",
		map[string]string{"userId": "user-2"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no stripe customer found")
}

func TestSubscriptionStatus(t *testing.T) {
	accounts := &mockAccounts{accounts: map[string]*ledger.Account{
		"user-1": {
			ID:                   "user-1",
			Credits:              850,
			Plan:                 catalog.PlanPro,
			PlanPeriod:           catalog.PeriodYear,
			StripeSubscriptionID: "sub_123",
		},
		"user-2": {ID: "user-2", Credits: 3, Plan: catalog.PlanFree},
	}}

	w := do(newRouter(nil, accounts, "user-1"), http.MethodGet, "/api/v1/billing/subscription-status/user-1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"credits":850,"plan":"pro","plan_period":"year","stripe_subscription_id":"sub_123"}`, w.Body.String())

	w = do(newRouter(nil, accounts, "user-2"), http.MethodGet, "/api/v1/billing/subscription-status/user-2", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"credits":3,"plan":"free","plan_period":null,"stripe_subscription_id":null}`, w.Body.String())

	w = do(newRouter(nil, accounts, "user-1"), http.MethodGet, "/api/v1/billing/subscription-status/user-2", nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(newRouter(nil, accounts, "ghost"), http.MethodGet, "/api/v1/billing/subscription-status/ghost", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
