package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/gettruefans/truefans-api/internal/domain"
	"github.com/gettruefans/truefans-api/internal/pkg/payments"
)

type BillingGateway interface {
	CreateCustomer(ctx context.Context, email, paymentMethodID string) (string, error)
	CreateSubscription(ctx context.Context, customerID string) (payments.Subscription, error)
	GetSubscription(ctx context.Context, id string) (payments.Subscription, error)
	SetCancelAtPeriodEnd(ctx context.Context, id string, cancel bool) (payments.Subscription, error)
}

type BillingBrandRepository interface {
	FindByID(ctx context.Context, id uint) (domain.Brand, error)
	UpdateBilling(ctx context.Context, brandID uint, customerID string, status domain.SubscriptionStatus) error
}

type SubscriptionRepository interface {
	Create(ctx context.Context, sub domain.Subscription) (domain.Subscription, error)
	FindByBrand(ctx context.Context, brandID uint) (domain.Subscription, error)
	Update(ctx context.Context, sub domain.Subscription) (domain.Subscription, error)
}

type BillingService struct {
	brands  BillingBrandRepository
	subs    SubscriptionRepository
	gateway BillingGateway
}

// NewBillingService wires brand subscriptions. A nil gateway disables
// billing and every call returns ErrBillingDisabled.
func NewBillingService(brands BillingBrandRepository, subs SubscriptionRepository, gateway BillingGateway) *BillingService {
	return &BillingService{
		brands:  brands,
		subs:    subs,
		gateway: gateway,
	}
}

// Subscribe starts a subscription for the brand, creating the Stripe
// customer on first use. The returned client secret confirms the first
// payment on the client. A brand whose latest subscription has not ended
// in Stripe gets ErrDuplicate.
func (s *BillingService) Subscribe(ctx context.Context, user domain.User, brandID uint, email, paymentMethodID string) (domain.CheckoutResult, error) {
	if s.gateway == nil {
		return domain.CheckoutResult{}, ErrBillingDisabled
	}

	brand, err := authorizeBrand(ctx, s.brands, user, brandID, false)
	if err != nil {
		return domain.CheckoutResult{}, err
	}

	if err = s.ensureNoLiveSubscription(ctx, brandID); err != nil {
		return domain.CheckoutResult{}, err
	}

	customerID := brand.BillingCustomerID
	if customerID == "" {
		customerID, err = s.gateway.CreateCustomer(ctx, email, paymentMethodID)
		if err != nil {
			return domain.CheckoutResult{}, fmt.Errorf("s.gateway.CreateCustomer -> %w: %w", ErrExternalService, err)
		}
	}

	sub, err := s.gateway.CreateSubscription(ctx, customerID)
	if err != nil {
		return domain.CheckoutResult{}, fmt.Errorf("s.gateway.CreateSubscription -> %w: %w", ErrExternalService, err)
	}

	_, err = s.subs.Create(ctx, domain.Subscription{
		BrandID:              brandID,
		StripeSubscriptionID: sub.ID,
		Status:               sub.Status,
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
		CurrentPeriodEnd:     sub.CurrentPeriodEnd,
	})
	if err != nil {
		return domain.CheckoutResult{}, fmt.Errorf("s.subs.Create -> %w", err)
	}

	if err = s.brands.UpdateBilling(ctx, brandID, customerID, domain.SubscriptionActive); err != nil {
		return domain.CheckoutResult{}, fmt.Errorf("s.brands.UpdateBilling -> %w", err)
	}

	return domain.CheckoutResult{
		SubscriptionID: sub.ID,
		ClientSecret:   sub.ClientSecret,
		Status:         sub.Status,
	}, nil
}

func (s *BillingService) ensureNoLiveSubscription(ctx context.Context, brandID uint) error {
	stored, err := s.subs.FindByBrand(ctx, brandID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("s.subs.FindByBrand -> %w", err)
	}

	live, err := s.gateway.GetSubscription(ctx, stored.StripeSubscriptionID)
	if err != nil {
		return fmt.Errorf("s.gateway.GetSubscription -> %w: %w", ErrExternalService, err)
	}
	if !subscriptionEnded(live.Status) {
		return fmt.Errorf("%w: brand %d already has subscription %s (%s)", ErrDuplicate, brandID, stored.StripeSubscriptionID, live.Status)
	}

	return nil
}

// GetSubscription refreshes the stored subscription from Stripe.
func (s *BillingService) GetSubscription(ctx context.Context, user domain.User, brandID uint) (domain.Subscription, error) {
	if s.gateway == nil {
		return domain.Subscription{}, ErrBillingDisabled
	}

	brand, stored, err := s.storedSubscription(ctx, user, brandID)
	if err != nil {
		return domain.Subscription{}, err
	}

	live, err := s.gateway.GetSubscription(ctx, stored.StripeSubscriptionID)
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("s.gateway.GetSubscription -> %w: %w", ErrExternalService, err)
	}

	return s.sync(ctx, brand, stored, live)
}

// UpdateSubscription toggles cancellation at the end of the current period.
func (s *BillingService) UpdateSubscription(ctx context.Context, user domain.User, brandID uint, cancel bool) (domain.Subscription, error) {
	if s.gateway == nil {
		return domain.Subscription{}, ErrBillingDisabled
	}

	brand, stored, err := s.storedSubscription(ctx, user, brandID)
	if err != nil {
		return domain.Subscription{}, err
	}

	live, err := s.gateway.SetCancelAtPeriodEnd(ctx, stored.StripeSubscriptionID, cancel)
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("s.gateway.SetCancelAtPeriodEnd -> %w: %w", ErrExternalService, err)
	}

	return s.sync(ctx, brand, stored, live)
}

func (s *BillingService) storedSubscription(ctx context.Context, user domain.User, brandID uint) (domain.Brand, domain.Subscription, error) {
	brand, err := authorizeBrand(ctx, s.brands, user, brandID, false)
	if err != nil {
		return domain.Brand{}, domain.Subscription{}, err
	}

	stored, err := s.subs.FindByBrand(ctx, brandID)
	if err != nil {
		return domain.Brand{}, domain.Subscription{}, fmt.Errorf("s.subs.FindByBrand -> %w", err)
	}

	return brand, stored, nil
}

func (s *BillingService) sync(ctx context.Context, brand domain.Brand, stored domain.Subscription, live payments.Subscription) (domain.Subscription, error) {
	stored.Status = live.Status
	stored.CancelAtPeriodEnd = live.CancelAtPeriodEnd
	if !live.CurrentPeriodEnd.IsZero() {
		stored.CurrentPeriodEnd = live.CurrentPeriodEnd
	}

	updated, err := s.subs.Update(ctx, stored)
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("s.subs.Update -> %w", err)
	}

	if status := brandStatus(live.Status, brand.SubscriptionStatus); status != brand.SubscriptionStatus {
		if err = s.brands.UpdateBilling(ctx, brand.ID, brand.BillingCustomerID, status); err != nil {
			return domain.Subscription{}, fmt.Errorf("s.brands.UpdateBilling -> %w", err)
		}
		zap.L().Info("brand subscription status changed",
			zap.Uint("brand_id", brand.ID), zap.String("from", string(brand.SubscriptionStatus)), zap.String("to", string(status)))
	}

	return updated, nil
}

// subscriptionEnded reports whether Stripe will never bill the
// subscription again.
func subscriptionEnded(stripeStatus string) bool {
	return stripeStatus == "canceled" || stripeStatus == "incomplete_expired"
}

// brandStatus maps a Stripe subscription status onto the brand. Transient
// states such as past_due keep the current status.
func brandStatus(stripeStatus string, current domain.SubscriptionStatus) domain.SubscriptionStatus {
	switch stripeStatus {
	case "active", "trialing":
		return domain.SubscriptionActive
	case "canceled", "unpaid", "incomplete_expired":
		return domain.SubscriptionInactive
	default:
		return current
	}
}
