package billing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"

	"github.com/nxtgenia/miniaturia/miniaturia/catalog"
	"github.com/nxtgenia/miniaturia/miniaturia/ledger"
)

// in-memory ledger with event dedupe, mirroring the postgres repository
type fakeLedger struct {
	accounts  map[string]*ledger.Account
	processed map[string]bool
	failWith  error
}

func newFakeLedger(accounts ...*ledger.Account) *fakeLedger {
	f := &fakeLedger{accounts: map[string]*ledger.Account{}, processed: map[string]bool{}}
	for _, a := range accounts {
		f.accounts[a.ID] = a
	}
	return f
}

func (f *fakeLedger) mark(eventID string) error {
	if f.processed[eventID] {
		return ledger.ErrDuplicateEvent
	}
	f.processed[eventID] = true
	return nil
}

func (f *fakeLedger) CreditForEvent(ctx context.Context, eventID, eventType, accountID string, amount int, reason string) (int, error) {
	if f.failWith != nil {
		return 0, f.failWith
	}
	acc, ok := f.accounts[accountID]
	if !ok {
		return 0, ledger.ErrNotFound
	}
	if err := f.mark(eventID); err != nil {
		return 0, err
	}
	acc.Credits += amount
	return acc.Credits, nil
}

func (f *fakeLedger) ApplyPlan(ctx context.Context, change ledger.PlanChange) (int, error) {
	acc, ok := f.accounts[change.AccountID]
	if !ok {
		return 0, ledger.ErrNotFound
	}
	if err := f.mark(change.EventID); err != nil {
		return 0, err
	}
	acc.Plan = change.Plan
	acc.PlanPeriod = change.Period
	acc.StripeSubscriptionID = change.SubscriptionID
	acc.Credits = change.Credits
	return acc.Credits, nil
}

func (f *fakeLedger) Downgrade(ctx context.Context, eventID, eventType, accountID string) error {
	acc, ok := f.accounts[accountID]
	if !ok {
		return ledger.ErrNotFound
	}
	if err := f.mark(eventID); err != nil {
		return err
	}
	acc.Plan = catalog.PlanFree
	acc.PlanPeriod = catalog.PeriodNone
	acc.StripeSubscriptionID = ""
	return nil
}

func (f *fakeLedger) SetCustomerID(ctx context.Context, accountID, customerID string) error {
	acc, ok := f.accounts[accountID]
	if !ok {
		return ledger.ErrNotFound
	}
	acc.StripeCustomerID = customerID
	return nil
}

func (f *fakeLedger) FindByCustomerID(ctx context.Context, customerID string) (*ledger.Account, error) {
	for _, a := range f.accounts {
		if a.StripeCustomerID == customerID {
			return a, nil
		}
	}
	return nil, ledger.ErrNotFound
}

type mockSubscriptions struct {
	getSubscriptionFunc func(ctx context.Context, id string) (*stripe.Subscription, error)
}

func (m *mockSubscriptions) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	return m.getSubscriptionFunc(ctx, id)
}

func subscriptionWith(metadata map[string]string) *mockSubscriptions {
	return &mockSubscriptions{
		getSubscriptionFunc: func(ctx context.Context, id string) (*stripe.Subscription, error) {
			return &stripe.Subscription{ID: id, Metadata: metadata}, nil
		},
	}
}

func newEvent(t *testing.T, id string, eventType stripe.EventType, obj any) stripe.Event {
	t.Helper()

	raw, err := json.Marshal(obj)
	require.NoError(t, err)

	return stripe.Event{
		ID:   id,
		Type: eventType,
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestHandle_PackPurchase(t *testing.T) {
	l := newFakeLedger(&ledger.Account{ID: "user-1", Credits: 50})
	tr := NewTranslator(l, &mockSubscriptions{})

	event := newEvent(t, "evt_1", stripe.EventTypeCheckoutSessionCompleted, map[string]any{
		"id":       "cs_1",
		"customer": "cus_1",
		"metadata": map[string]string{"supabase_user_id": "user-1", "plan_key": "pack_basic"},
	})

	result, err := tr.Handle(context.Background(), event)

	require.NoError(t, err)
	assert.True(t, result.Processed)
	assert.Equal(t, 150, result.Credits)
	assert.Equal(t, 150, l.accounts["user-1"].Credits)
	assert.Equal(t, "cus_1", l.accounts["user-1"].StripeCustomerID)
}

func TestHandle_RedeliveredEventIsDuplicate(t *testing.T) {
	l := newFakeLedger(&ledger.Account{ID: "user-1", Credits: 50})
	tr := NewTranslator(l, &mockSubscriptions{})

	event := newEvent(t, "evt_1", stripe.EventTypeCheckoutSessionCompleted, map[string]any{
		"id":       "cs_1",
		"metadata": map[string]string{"supabase_user_id": "user-1", "plan_key": "pack_basic"},
	})

	_, err := tr.Handle(context.Background(), event)
	require.NoError(t, err)

	result, err := tr.Handle(context.Background(), event)

	require.NoError(t, err)
	assert.True(t, result.Duplicate)
	assert.False(t, result.Processed)
	assert.Equal(t, 150, l.accounts["user-1"].Credits)
}

func TestHandle_SubscriptionCheckoutDefersCredits(t *testing.T) {
	l := newFakeLedger(&ledger.Account{ID: "user-1", Credits: 3})
	tr := NewTranslator(l, &mockSubscriptions{})

	event := newEvent(t, "evt_1", stripe.EventTypeCheckoutSessionCompleted, map[string]any{
		"id":       "cs_1",
		"customer": "cus_9",
		"metadata": map[string]string{"supabase_user_id": "user-1", "plan_key": "pro_monthly"},
	})

	result, err := tr.Handle(context.Background(), event)

	require.NoError(t, err)
	assert.True(t, result.Processed)
	assert.Equal(t, 3, l.accounts["user-1"].Credits)
	assert.Equal(t, "cus_9", l.accounts["user-1"].StripeCustomerID)
}

func TestHandle_InvoicePaidResetsCredits(t *testing.T) {
	l := newFakeLedger(&ledger.Account{ID: "user-1", Credits: 3, Plan: catalog.PlanFree})
	tr := NewTranslator(l, subscriptionWith(map[string]string{
		"supabase_user_id": "user-1",
		"plan_key":         "pro_monthly",
	}))

	event := newEvent(t, "evt_inv_1", stripe.EventTypeInvoicePaid, map[string]any{
		"id":           "in_1",
		"subscription": "sub_1",
	})

	result, err := tr.Handle(context.Background(), event)

	require.NoError(t, err)
	assert.True(t, result.Processed)

	acc := l.accounts["user-1"]
	assert.Equal(t, 900, acc.Credits)
	assert.Equal(t, catalog.PlanPro, acc.Plan)
	assert.Equal(t, catalog.PeriodMonth, acc.PlanPeriod)
	assert.Equal(t, "sub_1", acc.StripeSubscriptionID)
}

func TestHandle_InvoiceWithoutSubscriptionIsDropped(t *testing.T) {
	subs := &mockSubscriptions{
		getSubscriptionFunc: func(ctx context.Context, id string) (*stripe.Subscription, error) {
			t.Fatal("subscription should not be fetched")
			return nil, nil
		},
	}
	tr := NewTranslator(newFakeLedger(), subs)

	result, err := tr.Handle(context.Background(), newEvent(t, "evt_1", stripe.EventTypeInvoicePaid, map[string]any{"id": "in_1"}))

	require.NoError(t, err)
	assert.False(t, result.Processed)
	assert.Equal(t, "invoice has no subscription", result.Message)
}

func TestHandle_MissingMetadataIsDropped(t *testing.T) {
	l := newFakeLedger(&ledger.Account{ID: "user-1", Credits: 50})
	tr := NewTranslator(l, subscriptionWith(map[string]string{}))

	tests := []struct {
		name  string
		event stripe.Event
	}{
		{"checkout", newEvent(t, "evt_a", stripe.EventTypeCheckoutSessionCompleted, map[string]any{"id": "cs_1"})},
		{"invoice", newEvent(t, "evt_b", stripe.EventTypeInvoicePaid, map[string]any{"id": "in_1", "subscription": "sub_1"})},
		{"deleted", newEvent(t, "evt_c", stripe.EventTypeCustomerSubscriptionDeleted, map[string]any{"id": "sub_1"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tr.Handle(context.Background(), tt.event)

			require.NoError(t, err)
			assert.False(t, result.Processed)
			assert.Contains(t, result.Message, "missing metadata")
		})
	}

	assert.Equal(t, 50, l.accounts["user-1"].Credits)
}

func TestHandle_UnknownPlanAndAccount(t *testing.T) {
	l := newFakeLedger(&ledger.Account{ID: "user-1", Credits: 50})
	tr := NewTranslator(l, &mockSubscriptions{})

	result, err := tr.Handle(context.Background(), newEvent(t, "evt_1", stripe.EventTypeCheckoutSessionCompleted, map[string]any{
		"metadata": map[string]string{"supabase_user_id": "user-1", "plan_key": "pack_mega"},
	}))
	require.NoError(t, err)
	assert.False(t, result.Processed)

	result, err = tr.Handle(context.Background(), newEvent(t, "evt_2", stripe.EventTypeCheckoutSessionCompleted, map[string]any{
		"metadata": map[string]string{"supabase_user_id": "ghost", "plan_key": "pack_basic"},
	}))
	require.NoError(t, err)
	assert.False(t, result.Processed)
	assert.Equal(t, "account not found", result.Message)
}

func TestHandle_SubscriptionDeletedDowngrades(t *testing.T) {
	l := newFakeLedger(&ledger.Account{
		ID:                   "user-1",
		Credits:              420,
		Plan:                 catalog.PlanPro,
		PlanPeriod:           catalog.PeriodMonth,
		StripeSubscriptionID: "sub_1",
	})
	tr := NewTranslator(l, &mockSubscriptions{})

	event := newEvent(t, "evt_del", stripe.EventTypeCustomerSubscriptionDeleted, map[string]any{
		"id":       "sub_1",
		"metadata": map[string]string{"supabase_user_id": "user-1"},
	})

	result, err := tr.Handle(context.Background(), event)

	require.NoError(t, err)
	assert.True(t, result.Processed)

	acc := l.accounts["user-1"]
	assert.Equal(t, catalog.PlanFree, acc.Plan)
	assert.Equal(t, catalog.PeriodNone, acc.PlanPeriod)
	assert.Empty(t, acc.StripeSubscriptionID)
	assert.Equal(t, 420, acc.Credits)
}

func TestHandle_SubscriptionDeletedFallsBackToCustomer(t *testing.T) {
	l := newFakeLedger(&ledger.Account{ID: "user-1", Plan: catalog.PlanPro, StripeCustomerID: "cus_1"})
	tr := NewTranslator(l, &mockSubscriptions{})

	result, err := tr.Handle(context.Background(), newEvent(t, "evt_del", stripe.EventTypeCustomerSubscriptionDeleted, map[string]any{
		"id":       "sub_1",
		"customer": "cus_1",
	}))

	require.NoError(t, err)
	assert.True(t, result.Processed)
	assert.Equal(t, catalog.PlanFree, l.accounts["user-1"].Plan)
}

func TestHandle_SubscriptionUpdatedOnlyLogs(t *testing.T) {
	l := newFakeLedger(&ledger.Account{ID: "user-1", Credits: 10, Plan: catalog.PlanPro})
	tr := NewTranslator(l, &mockSubscriptions{})

	result, err := tr.Handle(context.Background(), newEvent(t, "evt_upd", stripe.EventTypeCustomerSubscriptionUpdated, map[string]any{
		"id":       "sub_1",
		"status":   "past_due",
		"metadata": map[string]string{"supabase_user_id": "user-1"},
	}))

	require.NoError(t, err)
	assert.Equal(t, "subscription is past_due", result.Message)
	assert.Equal(t, catalog.PlanPro, l.accounts["user-1"].Plan)
	assert.Equal(t, 10, l.accounts["user-1"].Credits)
}

func TestHandle_UnhandledType(t *testing.T) {
	tr := NewTranslator(newFakeLedger(), &mockSubscriptions{})

	result, err := tr.Handle(context.Background(), newEvent(t, "evt_x", stripe.EventType("customer.created"), map[string]any{"id": "cus_1"}))

	require.NoError(t, err)
	assert.False(t, result.Processed)
	assert.Equal(t, "event type not handled", result.Message)
}

func TestHandle_LedgerFailureIsReturned(t *testing.T) {
	l := newFakeLedger(&ledger.Account{ID: "user-1"})
	l.failWith = errors.New("connection reset")
	tr := NewTranslator(l, &mockSubscriptions{})

	result, err := tr.Handle(context.Background(), newEvent(t, "evt_1", stripe.EventTypeCheckoutSessionCompleted, map[string]any{
		"metadata": map[string]string{"supabase_user_id": "user-1", "plan_key": "pack_micro"},
	}))

	require.Error(t, err)
	assert.False(t, result.Processed)
}
