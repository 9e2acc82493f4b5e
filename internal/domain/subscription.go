package domain

import "time"

type Subscription struct {
	ID                   uint      `json:"id"`
	BrandID              uint      `json:"brand_id"`
	StripeSubscriptionID string    `json:"stripe_subscription_id"`
	Status               string    `json:"status"`
	CancelAtPeriodEnd    bool      `json:"cancel_at_period_end"`
	CurrentPeriodEnd     time.Time `json:"current_period_end"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// CheckoutResult is returned to the client to confirm the first payment.
type CheckoutResult struct {
	SubscriptionID string `json:"subscription_id"`
	ClientSecret   string `json:"client_secret,omitempty"`
	Status         string `json:"status"`
}
