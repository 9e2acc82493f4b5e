package payments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *StripeGateway {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g, err := NewStripeGateway(Config{SecretKey: "sk_test_123", PriceID: "price_monthly", BaseURL: srv.URL})
	require.NoError(t, err)

	return g
}

func TestNewStripeGateway_RequiresKey(t *testing.T) {
	_, err := NewStripeGateway(Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestStripeGateway_CreateCustomer(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/customers", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "owner@tacobros.test", r.PostForm.Get("email"))
		assert.Equal(t, "pm_card_visa", r.PostForm.Get("payment_method"))
		assert.Equal(t, "pm_card_visa", r.PostForm.Get("invoice_settings[default_payment_method]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cus_123","object":"customer"}`))
	})

	id, err := g.CreateCustomer(context.Background(), "owner@tacobros.test", "pm_card_visa")
	require.NoError(t, err)
	assert.Equal(t, "cus_123", id)
}

func TestStripeGateway_CreateSubscription(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/subscriptions", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "cus_123", r.PostForm.Get("customer"))
		assert.Equal(t, "price_monthly", r.PostForm.Get("items[0][price]"))
		assert.Equal(t, "latest_invoice.payment_intent", r.PostForm.Get("expand[0]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "sub_123",
			"object": "subscription",
			"status": "incomplete",
			"current_period_end": 1767225600,
			"customer": "cus_123",
			"latest_invoice": {"id": "in_1", "object": "invoice", "payment_intent": {"id": "pi_1", "object": "payment_intent", "client_secret": "pi_1_secret"}}
		}`))
	})

	sub, err := g.CreateSubscription(context.Background(), "cus_123")
	require.NoError(t, err)
	assert.Equal(t, "sub_123", sub.ID)
	assert.Equal(t, "incomplete", sub.Status)
	assert.Equal(t, "cus_123", sub.CustomerID)
	assert.Equal(t, "pi_1_secret", sub.ClientSecret)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), sub.CurrentPeriodEnd)
}

func TestStripeGateway_SetCancelAtPeriodEnd(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/subscriptions/sub_123", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "true", r.PostForm.Get("cancel_at_period_end"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"sub_123","object":"subscription","status":"active","cancel_at_period_end":true}`))
	})

	sub, err := g.SetCancelAtPeriodEnd(context.Background(), "sub_123", true)
	require.NoError(t, err)
	assert.True(t, sub.CancelAtPeriodEnd)
	assert.Equal(t, "active", sub.Status)
}

func TestStripeGateway_APIError(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"type":"card_error","message":"Your card was declined."}}`))
	})

	_, err := g.GetSubscription(context.Background(), "sub_123")
	assert.Error(t, err)
}
