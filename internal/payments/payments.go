package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"

	"github.com/nxtgenia/miniaturia/internal/cache"
	"github.com/nxtgenia/miniaturia/internal/logger"
	"github.com/nxtgenia/miniaturia/miniaturia/catalog"
)

const (
	priceTTL        = 24 * time.Hour
	priceSweepEvery = time.Hour
	listLimit       = 100
)

// creates a new gateway; nil backends use the stripe defaults
func NewGateway(secretKey string, accounts Accounts, backends *stripe.Backends) *Gateway {
	return &Gateway{
		sc:       client.New(secretKey, backends),
		accounts: accounts,
		prices:   cache.New[string, string](priceTTL, priceSweepEvery),
		currency: string(stripe.CurrencyEUR),
	}
}

// stops the price cache sweeper
func (g *Gateway) Close() {
	g.prices.Close()
}

// makes sure every catalog entry has a stripe product and price; returns key → price id
func (g *Gateway) SyncCatalog(ctx context.Context) (map[string]string, error) {
	g.syncMu.Lock()
	defer g.syncMu.Unlock()

	products, err := g.activeProducts(ctx)
	if err != nil {
		return nil, err
	}

	prices, err := g.activePrices(ctx)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]string, len(catalog.All()))

	for _, entry := range catalog.All() {
		product, exists := products[entry.Key]

		if exists {
			if price := matchingPrice(prices, product.ID, entry); price != nil {
				ids[entry.Key] = price.ID
				g.prices.Set(entry.Key, price.ID)
				continue
			}
		} else {
			params := &stripe.ProductParams{Name: stripe.String("MiniaturIA " + entry.Name)}
			params.Context = ctx
			params.AddMetadata(MetadataPlanKey, entry.Key)
			params.AddMetadata(MetadataCredits, fmt.Sprint(entry.Credits))

			product, err = g.sc.Products.New(params)
			if err != nil {
				return nil, fmt.Errorf("failed to create product %s: %w", entry.Key, err)
			}
		}

		params := &stripe.PriceParams{
			Product:    stripe.String(product.ID),
			UnitAmount: stripe.Int64(entry.PriceCents),
			Currency:   stripe.String(g.currency),
		}
		params.Context = ctx
		params.AddMetadata(MetadataPlanKey, entry.Key)
		params.AddMetadata(MetadataCredits, fmt.Sprint(entry.Credits))

		if !entry.IsPack() {
			params.Recurring = &stripe.PriceRecurringParams{Interval: stripe.String(string(entry.Interval))}
		}

		price, err := g.sc.Prices.New(params)
		if err != nil {
			return nil, fmt.Errorf("failed to create price %s: %w", entry.Key, err)
		}

		logger.Info("stripe price created", "plan_key", entry.Key, "price_id", price.ID)

		ids[entry.Key] = price.ID
		g.prices.Set(entry.Key, price.ID)
	}

	return ids, nil
}

func (g *Gateway) activeProducts(ctx context.Context) (map[string]*stripe.Product, error) {
	params := &stripe.ProductListParams{Active: stripe.Bool(true)}
	params.Context = ctx
	params.Limit = stripe.Int64(listLimit)

	out := make(map[string]*stripe.Product)

	it := g.sc.Products.List(params)
	for it.Next() {
		p := it.Product()
		if key := p.Metadata[MetadataPlanKey]; key != "" {
			if _, seen := out[key]; !seen {
				out[key] = p
			}
		}
	}

	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return out, nil
}

func (g *Gateway) activePrices(ctx context.Context) ([]*stripe.Price, error) {
	params := &stripe.PriceListParams{Active: stripe.Bool(true)}
	params.Context = ctx
	params.Limit = stripe.Int64(listLimit)

	var out []*stripe.Price

	it := g.sc.Prices.List(params)
	for it.Next() {
		out = append(out, it.Price())
	}

	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("failed to list prices: %w", err)
	}

	return out, nil
}

// a price is reusable when product, amount and interval all match
func matchingPrice(prices []*stripe.Price, productID string, entry catalog.Entry) *stripe.Price {
	for _, p := range prices {
		if p.Product == nil || p.Product.ID != productID || p.UnitAmount != entry.PriceCents {
			continue
		}

		if entry.IsPack() {
			if p.Recurring == nil {
				return p
			}
			continue
		}

		if p.Recurring != nil && string(p.Recurring.Interval) == string(entry.Interval) {
			return p
		}
	}

	return nil
}

// returns the stripe price id for a catalog key, syncing on a cache miss
func (g *Gateway) PriceID(ctx context.Context, key string) (string, error) {
	if !catalog.Valid(key) {
		return "", fmt.Errorf("%w: %s", ErrUnknownPlan, key)
	}

	if id, ok := g.prices.Get(key); ok {
		return id, nil
	}

	ids, err := g.SyncCatalog(ctx)
	if err != nil {
		return "", err
	}

	id, ok := ids[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownPlan, key)
	}

	return id, nil
}

// starts a hosted checkout for a plan or pack
func (g *Gateway) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (*CheckoutSession, error) {
	priceID, err := g.PriceID(ctx, in.PlanKey)
	if err != nil {
		return nil, err
	}

	customerID, err := g.findOrCreateCustomer(ctx, in.AccountID, in.Email)
	if err != nil {
		return nil, err
	}

	mode := stripe.CheckoutSessionModeSubscription
	if catalog.IsPack(in.PlanKey) {
		mode = stripe.CheckoutSessionModePayment
	}

	params := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		Mode:       stripe.String(string(mode)),
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
	}
	params.Context = ctx
	params.AddMetadata(MetadataAccountID, in.AccountID)
	params.AddMetadata(MetadataPlanKey, in.PlanKey)

	// invoice.paid only sees the subscription, so it needs the same metadata
	if mode == stripe.CheckoutSessionModeSubscription {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				MetadataAccountID: in.AccountID,
				MetadataPlanKey:   in.PlanKey,
			},
		}
	}

	session, err := g.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &CheckoutSession{ID: session.ID, URL: session.URL, CustomerID: customerID}, nil
}

func (g *Gateway) findOrCreateCustomer(ctx context.Context, accountID, email string) (string, error) {
	acc, err := g.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("failed to load account: %w", err)
	}

	if acc.StripeCustomerID != "" {
		return acc.StripeCustomerID, nil
	}

	if email == "" {
		email = acc.Email
	}

	params := &stripe.CustomerParams{}
	if email != "" {
		params.Email = stripe.String(email)
	}
	params.Context = ctx
	params.AddMetadata(MetadataAccountID, accountID)

	customer, err := g.sc.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create customer: %w", err)
	}

	if err := g.accounts.SetCustomerID(ctx, accountID, customer.ID); err != nil {
		return "", fmt.Errorf("failed to store customer id: %w", err)
	}

	return customer.ID, nil
}

// opens the stripe billing portal for the account's customer
func (g *Gateway) CreatePortalSession(ctx context.Context, accountID, returnURL string) (string, error) {
	acc, err := g.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("failed to load account: %w", err)
	}

	if acc.StripeCustomerID == "" {
		return "", ErrNoCustomer
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(acc.StripeCustomerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	session, err := g.sc.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create portal session: %w", err)
	}

	return session.URL, nil
}

// fetches a subscription with its metadata
func (g *Gateway) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	if id == "" {
		return nil, errors.New("subscription id is required")
	}

	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := g.sc.Subscriptions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return sub, nil
}
