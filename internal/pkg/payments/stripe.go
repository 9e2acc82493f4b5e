// Package payments talks to Stripe for brand subscriptions.
package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
)

var ErrNotConfigured = errors.New("payments: stripe secret key not configured")

type Config struct {
	SecretKey string
	PriceID   string
	// BaseURL overrides the Stripe API endpoint.
	BaseURL string
}

type Subscription struct {
	ID                string
	CustomerID        string
	Status            string
	CancelAtPeriodEnd bool
	CurrentPeriodEnd  time.Time
	// ClientSecret confirms the first payment client-side. Only set on create.
	ClientSecret string
}

type StripeGateway struct {
	api     *client.API
	priceID string
}

func NewStripeGateway(conf Config) (*StripeGateway, error) {
	if conf.SecretKey == "" {
		return nil, ErrNotConfigured
	}

	var backends *stripe.Backends
	if conf.BaseURL != "" {
		backends = &stripe.Backends{
			API: stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
				URL:               stripe.String(conf.BaseURL),
				MaxNetworkRetries: stripe.Int64(0),
			}),
		}
	}

	return &StripeGateway{
		api:     client.New(conf.SecretKey, backends),
		priceID: conf.PriceID,
	}, nil
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, email, paymentMethodID string) (string, error) {
	params := &stripe.CustomerParams{
		Email:         stripe.String(email),
		PaymentMethod: stripe.String(paymentMethodID),
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	params.Context = ctx

	c, err := g.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("g.api.Customers.New -> %w", err)
	}

	return c.ID, nil
}

func (g *StripeGateway) CreateSubscription(ctx context.Context, customerID string) (Subscription, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(g.priceID)},
		},
	}
	params.AddExpand("latest_invoice.payment_intent")
	params.Context = ctx

	s, err := g.api.Subscriptions.New(params)
	if err != nil {
		return Subscription{}, fmt.Errorf("g.api.Subscriptions.New -> %w", err)
	}

	return fromStripe(s), nil
}

func (g *StripeGateway) GetSubscription(ctx context.Context, id string) (Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	s, err := g.api.Subscriptions.Get(id, params)
	if err != nil {
		return Subscription{}, fmt.Errorf("g.api.Subscriptions.Get -> %w", err)
	}

	return fromStripe(s), nil
}

func (g *StripeGateway) SetCancelAtPeriodEnd(ctx context.Context, id string, cancel bool) (Subscription, error) {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(cancel),
	}
	params.Context = ctx

	s, err := g.api.Subscriptions.Update(id, params)
	if err != nil {
		return Subscription{}, fmt.Errorf("g.api.Subscriptions.Update -> %w", err)
	}

	return fromStripe(s), nil
}

func fromStripe(s *stripe.Subscription) Subscription {
	sub := Subscription{
		ID:                s.ID,
		Status:            string(s.Status),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
	}
	if s.CurrentPeriodEnd > 0 {
		sub.CurrentPeriodEnd = time.Unix(s.CurrentPeriodEnd, 0).UTC()
	}
	if s.Customer != nil {
		sub.CustomerID = s.Customer.ID
	}
	if s.LatestInvoice != nil && s.LatestInvoice.PaymentIntent != nil {
		sub.ClientSecret = s.LatestInvoice.PaymentIntent.ClientSecret
	}

	return sub
}
