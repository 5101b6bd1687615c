package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v81"

	"github.com/nxtgenia/miniaturia/internal/logger"
	"github.com/nxtgenia/miniaturia/internal/payments"
	"github.com/nxtgenia/miniaturia/miniaturia/catalog"
	"github.com/nxtgenia/miniaturia/miniaturia/ledger"
)

// creates a new translator
func NewTranslator(l Ledger, subscriptions SubscriptionFetcher) *Translator {
	return &Translator{ledger: l, subscriptions: subscriptions}
}

// applies one verified event; dropped events return a result and a nil error
func (t *Translator) Handle(ctx context.Context, event stripe.Event) (*Result, error) {
	log := logger.FromContext(ctx).With("event_id", event.ID, "event_type", string(event.Type))
	log.Info("processing stripe event")

	result := &Result{
		EventID:   event.ID,
		EventType: string(event.Type),
	}

	if event.Data == nil {
		result.Message = "event has no data"
		return result, nil
	}

	var err error

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		err = t.handleCheckoutCompleted(ctx, event, result)
	case stripe.EventTypeInvoicePaid:
		err = t.handleInvoicePaid(ctx, event, result)
	case stripe.EventTypeCustomerSubscriptionUpdated:
		err = t.handleSubscriptionUpdated(ctx, event, result)
	case stripe.EventTypeCustomerSubscriptionDeleted:
		err = t.handleSubscriptionDeleted(ctx, event, result)
	default:
		result.Message = "event type not handled"
		return result, nil
	}

	switch {
	case errors.Is(err, ledger.ErrDuplicateEvent):
		log.Info("stripe event already processed")
		result.Processed = false
		result.Duplicate = true
		result.Message = "event already processed"
		return result, nil

	case errors.Is(err, ledger.ErrNotFound):
		log.Warn("stripe event references unknown account", "account_id", result.AccountID)
		result.Processed = false
		result.Message = "account not found"
		return result, nil

	case err != nil:
		log.Error("failed to process stripe event", "error", err)
		result.Processed = false
		result.Message = err.Error()
		return result, err
	}

	if !result.Processed {
		log.Warn("stripe event dropped", "reason", result.Message)
	}

	return result, nil
}

func (t *Translator) handleCheckoutCompleted(ctx context.Context, event stripe.Event, result *Result) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}

	accountID := session.Metadata[payments.MetadataAccountID]
	planKey := session.Metadata[payments.MetadataPlanKey]
	result.AccountID = accountID

	if accountID == "" || planKey == "" {
		result.Message = "missing metadata in checkout session"
		return nil
	}

	if session.Customer != nil && session.Customer.ID != "" {
		if err := t.ledger.SetCustomerID(ctx, accountID, session.Customer.ID); err != nil && !errors.Is(err, ledger.ErrNotFound) {
			return err
		}
	}

	// subscriptions are credited by invoice.paid
	if !catalog.IsPack(planKey) {
		result.Processed = true
		result.Message = "subscription checkout, credits follow invoice.paid"
		return nil
	}

	pack, ok := catalog.Lookup(planKey)
	if !ok {
		result.Message = "unknown pack " + planKey
		return nil
	}

	balance, err := t.ledger.CreditForEvent(ctx, event.ID, string(event.Type), accountID, pack.Credits, "purchase:"+pack.Key)
	if err != nil {
		return err
	}

	logger.FromContext(ctx).Info("credit pack purchased",
		"account_id", accountID,
		"pack", pack.Key,
		"credits", pack.Credits,
		"balance", balance,
	)

	result.Processed = true
	result.Credits = balance

	return nil
}

func (t *Translator) handleInvoicePaid(ctx context.Context, event stripe.Event, result *Result) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to unmarshal invoice: %w", err)
	}

	if invoice.Subscription == nil || invoice.Subscription.ID == "" {
		result.Message = "invoice has no subscription"
		return nil
	}

	sub, err := t.subscriptions.GetSubscription(ctx, invoice.Subscription.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch subscription: %w", err)
	}

	accountID := sub.Metadata[payments.MetadataAccountID]
	planKey := sub.Metadata[payments.MetadataPlanKey]
	result.AccountID = accountID

	if accountID == "" || planKey == "" {
		result.Message = "missing metadata in subscription"
		return nil
	}

	entry, ok := catalog.Lookup(planKey)
	if !ok || entry.IsPack() {
		result.Message = "unknown plan " + planKey
		return nil
	}

	sel, err := catalog.ParsePlanKey(planKey)
	if err != nil {
		result.Message = err.Error()
		return nil
	}

	// renewals reset to the full grant; unused credits do not roll over
	balance, err := t.ledger.ApplyPlan(ctx, ledger.PlanChange{
		EventID:        event.ID,
		EventType:      string(event.Type),
		AccountID:      accountID,
		Plan:           sel.Plan,
		Period:         sel.Period,
		SubscriptionID: sub.ID,
		Credits:        entry.Credits,
		Reason:         "subscription:" + entry.Key,
	})
	if err != nil {
		return err
	}

	logger.FromContext(ctx).Info("subscription renewed",
		"account_id", accountID,
		"plan", entry.Key,
		"credits", balance,
	)

	result.Processed = true
	result.Credits = balance

	return nil
}

func (t *Translator) handleSubscriptionUpdated(ctx context.Context, event stripe.Event, result *Result) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	result.AccountID = sub.Metadata[payments.MetadataAccountID]
	result.Processed = true

	switch sub.Status {
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		logger.FromContext(ctx).Warn("subscription payment problem",
			"subscription_id", sub.ID,
			"account_id", result.AccountID,
			"status", string(sub.Status),
		)
		result.Message = "subscription is " + string(sub.Status)
	}

	return nil
}

func (t *Translator) handleSubscriptionDeleted(ctx context.Context, event stripe.Event, result *Result) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	accountID := sub.Metadata[payments.MetadataAccountID]

	// subscriptions created outside checkout carry no metadata
	if accountID == "" && sub.Customer != nil && sub.Customer.ID != "" {
		acc, err := t.ledger.FindByCustomerID(ctx, sub.Customer.ID)
		if err != nil && !errors.Is(err, ledger.ErrNotFound) {
			return err
		}
		if acc != nil {
			accountID = acc.ID
		}
	}

	result.AccountID = accountID

	if accountID == "" {
		result.Message = "missing metadata in subscription"
		return nil
	}

	if err := t.ledger.Downgrade(ctx, event.ID, string(event.Type), accountID); err != nil {
		return err
	}

	logger.FromContext(ctx).Info("subscription cancelled, downgraded to free", "account_id", accountID)
	result.Processed = true

	return nil
}
